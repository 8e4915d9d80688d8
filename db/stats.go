package db

import (
	"fmt"

	"credential-scanner/models"
)

// GetStats aggregates corpus-wide totals and per-type, per-source and
// per-severity breakdowns
func (db *Database) GetStats() (*models.Stats, error) {
	stats := &models.Stats{}

	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM scraped_credentials`).Scan(&stats.TotalCredentials); err != nil {
		return nil, fmt.Errorf("failed to count credentials: %w", err)
	}
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM scraper_searches`).Scan(&stats.TotalScans); err != nil {
		return nil, fmt.Errorf("failed to count scans: %w", err)
	}

	var err error
	if stats.ByType, err = db.groupCounts("credential_type"); err != nil {
		return nil, err
	}
	if stats.BySource, err = db.groupCounts("source"); err != nil {
		return nil, err
	}
	if stats.BySeverity, err = db.groupCounts("severity"); err != nil {
		return nil, err
	}

	return stats, nil
}

func (db *Database) groupCounts(column string) ([]models.GroupCount, error) {
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) AS cnt
		FROM scraped_credentials
		GROUP BY %s
		ORDER BY cnt DESC, %s
	`, column, column, column)

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to group by %s: %w", column, err)
	}
	defer rows.Close()

	var counts []models.GroupCount
	for rows.Next() {
		var gc models.GroupCount
		if err := rows.Scan(&gc.Key, &gc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan group count: %w", err)
		}
		counts = append(counts, gc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group counts: %w", err)
	}

	return counts, nil
}
