package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SearchStatus represents the lifecycle state of a scraper search
type SearchStatus string

const (
	SearchStatusPending   SearchStatus = "pending"
	SearchStatusRunning   SearchStatus = "running"
	SearchStatusCompleted SearchStatus = "completed"
	SearchStatusFailed    SearchStatus = "failed"
	SearchStatusStopped   SearchStatus = "stopped"
)

// IsTerminal reports whether a status is final
func (s SearchStatus) IsTerminal() bool {
	switch s {
	case SearchStatusCompleted, SearchStatusFailed, SearchStatusStopped:
		return true
	}
	return false
}

// CanTransition reports whether the status may move to next. Statuses only
// move forward: pending -> running -> {completed, failed, stopped}.
func (s SearchStatus) CanTransition(next SearchStatus) bool {
	switch s {
	case SearchStatusPending:
		return next == SearchStatusRunning || next.IsTerminal()
	case SearchStatusRunning:
		return next.IsTerminal()
	}
	return false
}

// SearchType classifies what kind of input a search was started with
type SearchType string

const (
	SearchTypeEmail    SearchType = "email"
	SearchTypeUsername SearchType = "username"
	SearchTypeDomain   SearchType = "domain"
	SearchTypeCompany  SearchType = "company"
	SearchTypeKeyword  SearchType = "keyword"
	SearchTypeGitHub   SearchType = "github"
)

var validSearchTypes = map[SearchType]bool{
	SearchTypeEmail:    true,
	SearchTypeUsername: true,
	SearchTypeDomain:   true,
	SearchTypeCompany:  true,
	SearchTypeKeyword:  true,
	SearchTypeGitHub:   true,
}

// ValidSearchType reports whether t is a known search type
func ValidSearchType(t SearchType) bool {
	return validSearchTypes[t]
}

// Search represents a single scraper run across all sources
type Search struct {
	ID           int          `json:"id"`
	SearchInput  string       `json:"search_input"`
	SearchType   SearchType   `json:"search_type"`
	ResultsCount int          `json:"results_count"`
	Status       SearchStatus `json:"status"`
	StartedAt    time.Time    `json:"started_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	AdminIP      string       `json:"admin_ip,omitempty"`

	MetadataJSON string         `json:"-"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// MarshalSearchFields serializes the metadata map into MetadataJSON
func (s *Search) MarshalSearchFields() error {
	if s.Metadata == nil {
		s.MetadataJSON = ""
		return nil
	}
	data, err := json.Marshal(s.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal search metadata: %w", err)
	}
	s.MetadataJSON = string(data)
	return nil
}

// UnmarshalSearchFields deserializes MetadataJSON into the metadata map
func (s *Search) UnmarshalSearchFields() error {
	if s.MetadataJSON == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s.MetadataJSON), &s.Metadata); err != nil {
		return fmt.Errorf("failed to unmarshal search metadata: %w", err)
	}
	return nil
}

// Stats holds the aggregate counts exposed by the stats endpoint
type Stats struct {
	TotalCredentials int          `json:"totalCredentials"`
	TotalScans       int          `json:"totalScans"`
	ByType           []GroupCount `json:"byType"`
	BySource         []GroupCount `json:"bySource"`
	BySeverity       []GroupCount `json:"bySeverity"`
}

// GroupCount is one row of a grouped count query
type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}
