package scanjob

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"credential-scanner/collector"
	"credential-scanner/db"
	"credential-scanner/models"
)

// Notifier is alerted after a scan that produced critical-severity finds
type Notifier interface {
	NotifyCriticalFinds(searchInput string, creds []*models.Credential) error
}

// Manager owns the scan lifecycle: it creates the search record, drives the
// collectors in order, deduplicates and persists results, and settles the
// search into a terminal status.
type Manager struct {
	database   *db.Database
	collectors []collector.Collector
	registry   *Registry
	notifier   Notifier
}

// Outcome summarizes one finished scan run
type Outcome struct {
	SearchID   int                  `json:"search_id"`
	Status     models.SearchStatus  `json:"status"`
	TotalFound int                  `json:"total_found"`
	Results    []*models.Credential `json:"results"`
}

// NewManager wires a manager over the given store and collectors. Collectors
// run in the order given. notifier may be nil.
func NewManager(database *db.Database, collectors []collector.Collector, notifier Notifier) *Manager {
	return &Manager{
		database:   database,
		collectors: collectors,
		registry:   NewRegistry(),
		notifier:   notifier,
	}
}

// Registry exposes the stop registry for the API layer
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Run executes one scan to completion. Validation failures surface before
// any row is written; once the search row exists the run always settles it
// into completed, stopped or failed, keeping whatever was saved so far.
func (m *Manager) Run(ctx context.Context, input string, searchType models.SearchType, adminIP string) (*Outcome, error) {
	if input == "" {
		return nil, fmt.Errorf("search input must not be empty")
	}
	if !models.ValidSearchType(searchType) {
		return nil, fmt.Errorf("invalid search type: %s", searchType)
	}

	runID := uuid.New().String()
	search := &models.Search{
		SearchInput: input,
		SearchType:  searchType,
		Status:      models.SearchStatusRunning,
		AdminIP:     adminIP,
		Metadata:    map[string]any{"run_id": runID},
	}
	searchID, err := m.database.CreateSearch(search)
	if err != nil {
		return nil, fmt.Errorf("failed to create search: %w", err)
	}

	m.registry.Register(searchID)
	defer m.registry.Unregister(searchID)

	log.Printf("scan %d (%s): starting %s search for %q", searchID, runID, searchType, input)

	query := collector.Query{Input: input, SearchType: searchType, RunID: runID}
	var collected []*models.Credential
	stopped := false

	for _, col := range m.collectors {
		if m.registry.IsStopped(searchID) || ctx.Err() != nil {
			stopped = true
			break
		}

		found, err := m.collect(ctx, col, query)
		// A collector interrupted mid-flight may hand back what it had
		// already gathered alongside the error; keep those
		collected = append(collected, found...)
		if err != nil {
			log.Printf("scan %d: collector %s failed after %d candidates: %v", searchID, col.Name(), len(found), err)
			continue
		}
		log.Printf("scan %d: collector %s found %d candidates", searchID, col.Name(), len(found))
	}

	if m.registry.IsStopped(searchID) || ctx.Err() != nil {
		stopped = true
	}

	results := dedupeInScan(collected)

	saved, err := m.database.SaveCredentials(results, searchID)
	if err != nil {
		log.Printf("scan %d: failed to save credentials: %v", searchID, err)
		m.settle(searchID, models.SearchStatusFailed, saved)
		return nil, fmt.Errorf("failed to save scan results: %w", err)
	}

	status := models.SearchStatusCompleted
	if stopped {
		status = models.SearchStatusStopped
	}
	m.settle(searchID, status, saved)

	m.alertCritical(input, results)

	log.Printf("scan %d: %s with %d results (%d before dedup)", searchID, status, saved, len(collected))

	return &Outcome{
		SearchID:   searchID,
		Status:     status,
		TotalFound: saved,
		Results:    results,
	}, nil
}

// collect wraps a single collector call so a panic inside one source does
// not take down the whole scan
func (m *Manager) collect(ctx context.Context, col collector.Collector, q collector.Query) (results []*models.Credential, err error) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = fmt.Errorf("collector %s panicked: %v", col.Name(), r)
		}
	}()
	return col.Collect(ctx, q)
}

func (m *Manager) settle(searchID int, status models.SearchStatus, count int) {
	if err := m.database.UpdateSearchStatus(searchID, status, count); err != nil {
		log.Printf("scan %d: failed to settle status %s: %v", searchID, status, err)
	}
}

func (m *Manager) alertCritical(input string, results []*models.Credential) {
	if m.notifier == nil {
		return
	}
	var critical []*models.Credential
	for _, cred := range results {
		if cred.Severity == models.SeverityCritical {
			critical = append(critical, cred)
		}
	}
	if len(critical) == 0 {
		return
	}
	if err := m.notifier.NotifyCriticalFinds(input, critical); err != nil {
		log.Printf("failed to send critical-finds alert: %v", err)
	}
}

// Stop requests cancellation of a live scan
func (m *Manager) Stop(searchID int) bool {
	return m.registry.Stop(searchID)
}

// Recent returns the latest scans, newest first
func (m *Manager) Recent(limit int) ([]*models.Search, error) {
	return m.database.GetRecentSearches(limit)
}

// dedupeInScan collapses credentials sharing a canonical key within one
// run, keeping the first occurrence. Collector ordering makes this
// deterministic.
func dedupeInScan(creds []*models.Credential) []*models.Credential {
	seen := make(map[string]bool, len(creds))
	out := make([]*models.Credential, 0, len(creds))
	for _, cred := range creds {
		key := cred.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, cred)
	}
	return out
}
