package db

import (
	"database/sql"
	"fmt"
	"time"

	"credential-scanner/models"
)

// CreateSearch records a newly started scan and returns its assigned ID. The
// row is created already in the running state since collection begins
// immediately.
func (db *Database) CreateSearch(search *models.Search) (int, error) {
	if !models.ValidSearchType(search.SearchType) {
		return 0, fmt.Errorf("invalid search type: %s", search.SearchType)
	}
	if search.Status == "" {
		search.Status = models.SearchStatusRunning
	}
	if err := search.MarshalSearchFields(); err != nil {
		return 0, err
	}

	result, err := db.conn.Exec(`
		INSERT INTO scraper_searches (search_input, search_type, status, admin_ip, metadata)
		VALUES (?, ?, ?, ?, ?)
	`, search.SearchInput, search.SearchType, search.Status, search.AdminIP,
		nullIfEmpty(search.MetadataJSON))
	if err != nil {
		return 0, fmt.Errorf("failed to create search: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get search ID: %w", err)
	}

	search.ID = int(id)
	return search.ID, nil
}

// UpdateSearchStatus moves a search to the given status and records its
// result count. Terminal rows are never reopened: the WHERE clause rejects
// transitions out of completed, failed or stopped.
func (db *Database) UpdateSearchStatus(id int, status models.SearchStatus, resultsCount int) error {
	var completedAt interface{}
	if status.IsTerminal() {
		completedAt = time.Now()
	}

	result, err := db.conn.Exec(`
		UPDATE scraper_searches
		SET status = ?, results_count = ?, completed_at = COALESCE(?, completed_at)
		WHERE id = ? AND status NOT IN ('completed', 'failed', 'stopped')
	`, status, resultsCount, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update search status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("search %d not found or already finished", id)
	}

	return nil
}

// GetSearch retrieves a single search by ID
func (db *Database) GetSearch(id int) (*models.Search, error) {
	row := db.conn.QueryRow(`
		SELECT id, search_input, search_type, results_count, status,
		       started_at, completed_at, admin_ip, metadata
		FROM scraper_searches
		WHERE id = ?
	`, id)

	search, err := scanSearch(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("search not found with ID %d", id)
	}
	if err != nil {
		return nil, err
	}
	return search, nil
}

// GetRecentSearches returns the most recently started scans, newest first
func (db *Database) GetRecentSearches(limit int) ([]*models.Search, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := db.conn.Query(`
		SELECT id, search_input, search_type, results_count, status,
		       started_at, completed_at, admin_ip, metadata
		FROM scraper_searches
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query searches: %w", err)
	}
	defer rows.Close()

	var searches []*models.Search
	for rows.Next() {
		search, err := scanSearch(rows)
		if err != nil {
			return nil, err
		}
		searches = append(searches, search)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating searches: %w", err)
	}

	return searches, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSearch(row rowScanner) (*models.Search, error) {
	search := &models.Search{}
	var completedAt sql.NullTime
	var adminIP, metadata sql.NullString

	err := row.Scan(
		&search.ID, &search.SearchInput, &search.SearchType, &search.ResultsCount,
		&search.Status, &search.StartedAt, &completedAt, &adminIP, &metadata,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan search: %w", err)
	}

	if completedAt.Valid {
		search.CompletedAt = &completedAt.Time
	}
	search.AdminIP = adminIP.String
	search.MetadataJSON = metadata.String

	if err := search.UnmarshalSearchFields(); err != nil {
		return nil, err
	}

	return search, nil
}
