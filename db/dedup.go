package db

import (
	"fmt"
	"time"

	"credential-scanner/models"
)

// canonicalValueExpr mirrors models.Credential.CanonicalValue in SQL: the
// most specific populated field identifies a credential. Both the duplicate
// report and the cleanup statement group on this same expression, so what
// the report shows is exactly what cleanup removes.
const canonicalValueExpr = `
	COALESCE(
		NULLIF(api_key, ''),
		NULLIF(token, ''),
		CASE WHEN email IS NOT NULL AND email != '' AND password IS NOT NULL AND password != ''
		     THEN email || ':' || password END,
		NULLIF(email, ''),
		raw_data
	)`

// FindDuplicateGroups reports every set of two or more credentials sharing
// the same type and canonical value. Within each group IDs are ordered
// oldest first; the first ID is the row cleanup would keep.
func (db *Database) FindDuplicateGroups() ([]*models.DuplicateGroup, error) {
	query := fmt.Sprintf(`
		SELECT credential_type, %s AS canonical, COUNT(*) AS cnt,
		       MIN(created_at), MAX(created_at)
		FROM scraped_credentials
		WHERE %s IS NOT NULL
		GROUP BY credential_type, canonical
		HAVING cnt > 1
		ORDER BY cnt DESC, canonical
	`, canonicalValueExpr, canonicalValueExpr)

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.DuplicateGroup
	for rows.Next() {
		group := &models.DuplicateGroup{}
		var count int
		// Aggregates lose the column's DATETIME affinity, so the driver
		// hands MIN/MAX back as strings; parse them ourselves.
		var firstSeen, lastSeen string
		err := rows.Scan(&group.CredentialType, &group.CanonicalValue, &count,
			&firstSeen, &lastSeen)
		if err != nil {
			return nil, fmt.Errorf("failed to scan duplicate group: %w", err)
		}
		if group.FirstSeen, err = parseSQLiteTime(firstSeen); err != nil {
			return nil, fmt.Errorf("failed to parse first_seen: %w", err)
		}
		if group.LastSeen, err = parseSQLiteTime(lastSeen); err != nil {
			return nil, fmt.Errorf("failed to parse last_seen: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating duplicate groups: %w", err)
	}

	for _, group := range groups {
		idQuery := fmt.Sprintf(`
			SELECT id FROM scraped_credentials
			WHERE credential_type = ? AND %s = ?
			ORDER BY created_at, id
		`, canonicalValueExpr)

		idRows, err := db.conn.Query(idQuery, group.CredentialType, group.CanonicalValue)
		if err != nil {
			return nil, fmt.Errorf("failed to query duplicate IDs: %w", err)
		}
		for idRows.Next() {
			var id int
			if err := idRows.Scan(&id); err != nil {
				idRows.Close()
				return nil, fmt.Errorf("failed to scan duplicate ID: %w", err)
			}
			group.MemberIDs = append(group.MemberIDs, id)
		}
		if err := idRows.Err(); err != nil {
			idRows.Close()
			return nil, fmt.Errorf("error iterating duplicate IDs: %w", err)
		}
		idRows.Close()
	}

	return groups, nil
}

// sqliteTimeLayouts covers the formats sqlite itself writes (CURRENT_TIMESTAMP)
// and the ones the driver writes when a time.Time is bound directly.
var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
}

func parseSQLiteTime(s string) (time.Time, error) {
	for _, layout := range sqliteTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// RemoveDuplicates deletes every credential but the oldest in each duplicate
// group, in a single statement. Returns the number of rows removed.
func (db *Database) RemoveDuplicates() (int, error) {
	query := fmt.Sprintf(`
		DELETE FROM scraped_credentials
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY credential_type, %s
					ORDER BY created_at, id
				) AS rn
				FROM scraped_credentials
				WHERE %s IS NOT NULL
			)
			WHERE rn > 1
		)
	`, canonicalValueExpr, canonicalValueExpr)

	result, err := db.conn.Exec(query)
	if err != nil {
		return 0, fmt.Errorf("failed to remove duplicates: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(removed), nil
}
