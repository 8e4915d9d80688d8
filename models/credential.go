package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// CredentialType classifies what kind of secret a record holds
type CredentialType string

const (
	CredentialTypeEmail       CredentialType = "email"
	CredentialTypePassword    CredentialType = "password"
	CredentialTypeAPIKey      CredentialType = "api_key"
	CredentialTypeToken       CredentialType = "token"
	CredentialTypeAWSKey      CredentialType = "aws_key"
	CredentialTypeGitHubToken CredentialType = "github_token"
	CredentialTypeSlackToken  CredentialType = "slack_token"
	CredentialTypeStripeKey   CredentialType = "stripe_key"
	CredentialTypePrivateKey  CredentialType = "private_key"
	CredentialTypeBreach      CredentialType = "breach"
	CredentialTypeGoogleDork  CredentialType = "google_dork"
	CredentialTypeUnknown     CredentialType = "unknown"
)

// Severity represents the criticality of a credential find
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// severityTable fixes the severity per credential type. It is applied at
// record creation time and never recomputed.
var severityTable = map[CredentialType]Severity{
	CredentialTypeEmail:       SeverityMedium,
	CredentialTypePassword:    SeverityMedium,
	CredentialTypeAPIKey:      SeverityMedium,
	CredentialTypeToken:       SeverityMedium,
	CredentialTypeAWSKey:      SeverityCritical,
	CredentialTypeGitHubToken: SeverityCritical,
	CredentialTypeSlackToken:  SeverityHigh,
	CredentialTypeStripeKey:   SeverityCritical,
	CredentialTypePrivateKey:  SeverityCritical,
	CredentialTypeBreach:      SeverityHigh,
	CredentialTypeGoogleDork:  SeverityMedium,
	CredentialTypeUnknown:     SeverityMedium,
}

// SeverityForType returns the fixed severity for a credential type
func SeverityForType(t CredentialType) Severity {
	if sev, ok := severityTable[t]; ok {
		return sev
	}
	return SeverityMedium
}

// HighValueTypes are the credential types exposed by the "high-value"
// category filter on the admin API
var HighValueTypes = []CredentialType{
	CredentialTypeStripeKey,
	CredentialTypeAWSKey,
	CredentialTypeGitHubToken,
	CredentialTypeSlackToken,
	CredentialTypePrivateKey,
}

// Credential represents a scraped credential record
type Credential struct {
	ID             int            `json:"id"`
	SearchID       int            `json:"search_query"`
	CredentialType CredentialType `json:"credential_type"`
	Source         string         `json:"source"`
	Email          string         `json:"email,omitempty"`
	Username       string         `json:"username,omitempty"`
	Password       string         `json:"password,omitempty"`
	APIKey         string         `json:"api_key,omitempty"`
	Token          string         `json:"token,omitempty"`
	Domain         string         `json:"domain,omitempty"`
	URL            string         `json:"url,omitempty"`
	RawData        string         `json:"raw_data,omitempty"`
	Severity       Severity       `json:"severity"`
	Verified       bool           `json:"verified"`
	CreatedAt      time.Time      `json:"created_at"`
	LastSeen       time.Time      `json:"last_seen"`

	// Metadata is persisted as an opaque JSON blob for audit/export
	MetadataJSON string         `json:"-"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// MarshalCredentialFields serializes the metadata map into MetadataJSON
func (c *Credential) MarshalCredentialFields() error {
	if c.Metadata == nil {
		c.MetadataJSON = ""
		return nil
	}
	data, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal credential metadata: %w", err)
	}
	c.MetadataJSON = string(data)
	return nil
}

// UnmarshalCredentialFields deserializes MetadataJSON into the metadata map
func (c *Credential) UnmarshalCredentialFields() error {
	if c.MetadataJSON == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(c.MetadataJSON), &c.Metadata); err != nil {
		return fmt.Errorf("failed to unmarshal credential metadata: %w", err)
	}
	return nil
}

// CanonicalValue derives the string used to decide whether two records
// represent the same underlying secret. The same priority order is used by
// the SQL dedup queries; keep both in sync.
func (c *Credential) CanonicalValue() string {
	switch {
	case c.APIKey != "":
		return c.APIKey
	case c.Token != "":
		return c.Token
	case c.Email != "" && c.Password != "":
		return c.Email + ":" + c.Password
	case c.Email != "":
		return c.Email
	default:
		return c.RawData
	}
}

// DedupKey is the full in-memory grouping key (type plus canonical value)
func (c *Credential) DedupKey() string {
	return string(c.CredentialType) + ":" + c.CanonicalValue()
}

// DuplicateGroup is a derived view of records sharing one canonical value.
// It is computed on demand and never stored.
type DuplicateGroup struct {
	CredentialType CredentialType `json:"credential_type"`
	CanonicalValue string         `json:"canonical_value"`
	MemberIDs      []int          `json:"member_ids"`
	FirstSeen      time.Time      `json:"first_seen"`
	LastSeen       time.Time      `json:"last_seen"`
}

// Size returns the number of records in the group
func (g *DuplicateGroup) Size() int {
	return len(g.MemberIDs)
}
