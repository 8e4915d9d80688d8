package db

import (
	"database/sql"
	"fmt"
	"strings"

	"credential-scanner/models"
)

const credentialColumns = `id, search_query, credential_type, source, email, username, password,
	       api_key, token, domain, url, raw_data, metadata, severity, verified, created_at, last_seen`

// SaveCredentials bulk-inserts the given records for a search inside one
// transaction. Fields absent from a record's credential type are stored as
// NULL; the full record is also retained as an opaque metadata blob.
func (db *Database) SaveCredentials(creds []*models.Credential, searchID int) (int, error) {
	if len(creds) == 0 {
		return 0, nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO scraped_credentials
			(search_query, credential_type, source, email, username, password,
			 api_key, token, domain, url, raw_data, metadata, severity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare credential insert: %w", err)
	}
	defer stmt.Close()

	saved := 0
	for _, cred := range creds {
		if cred.CredentialType == "" {
			cred.CredentialType = models.CredentialTypeUnknown
		}
		if cred.Severity == "" {
			cred.Severity = models.SeverityForType(cred.CredentialType)
		}
		if err := cred.MarshalCredentialFields(); err != nil {
			return saved, err
		}

		result, err := stmt.Exec(
			searchID, cred.CredentialType, cred.Source,
			nullIfEmpty(cred.Email), nullIfEmpty(cred.Username), nullIfEmpty(cred.Password),
			nullIfEmpty(cred.APIKey), nullIfEmpty(cred.Token), nullIfEmpty(cred.Domain),
			nullIfEmpty(cred.URL), nullIfEmpty(cred.RawData), nullIfEmpty(cred.MetadataJSON),
			cred.Severity,
		)
		if err != nil {
			return saved, fmt.Errorf("failed to save credential: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return saved, fmt.Errorf("failed to get credential ID: %w", err)
		}
		cred.ID = int(id)
		cred.SearchID = searchID
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit credentials: %w", err)
	}

	return saved, nil
}

// GetCredentialsBySearch retrieves all credentials found by one search,
// newest first
func (db *Database) GetCredentialsBySearch(searchID int) ([]*models.Credential, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM scraped_credentials
		WHERE search_query = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1000
	`, credentialColumns)

	rows, err := db.conn.Query(query, searchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	return scanCredentials(rows)
}

// SearchMode selects which columns a substring search runs against
type SearchMode string

const (
	SearchModeEmail    SearchMode = "email"
	SearchModeDomain   SearchMode = "domain"
	SearchModeFreetext SearchMode = "freetext"
)

// SearchCredentials performs a case-insensitive substring search over the
// corpus
func (db *Database) SearchCredentials(term string, mode SearchMode) ([]*models.Credential, error) {
	pattern := "%" + strings.ToLower(term) + "%"

	var where string
	args := []interface{}{pattern}
	switch mode {
	case SearchModeEmail:
		where = "LOWER(email) LIKE ?"
	case SearchModeDomain:
		where = "LOWER(domain) LIKE ? OR LOWER(url) LIKE ?"
		args = append(args, pattern)
	default:
		where = "LOWER(raw_data) LIKE ?"
	}

	query := fmt.Sprintf(`
		SELECT %s FROM scraped_credentials
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT 100
	`, credentialColumns, where)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search credentials: %w", err)
	}
	defer rows.Close()

	return scanCredentials(rows)
}

// GetAllCredentials retrieves one page of the corpus, newest first. The
// "high-value" category restricts results to the directly abusable key types.
func (db *Database) GetAllCredentials(page, pageSize int, category string) ([]*models.Credential, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	where := "1=1"
	var args []interface{}
	if category == "high-value" {
		placeholders := make([]string, len(models.HighValueTypes))
		for i, t := range models.HighValueTypes {
			placeholders[i] = "?"
			args = append(args, t)
		}
		where = fmt.Sprintf("credential_type IN (%s)", strings.Join(placeholders, ", "))
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM scraped_credentials WHERE %s", where)
	if err := db.conn.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count credentials: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM scraped_credentials
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, credentialColumns, where)
	args = append(args, pageSize, offset)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	creds, err := scanCredentials(rows)
	if err != nil {
		return nil, 0, err
	}
	return creds, total, nil
}

// DeleteCredential removes a single record by id
func (db *Database) DeleteCredential(id int) error {
	result, err := db.conn.Exec(`DELETE FROM scraped_credentials WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("credential not found with ID %d", id)
	}

	return nil
}

// CountCredentials returns the total number of stored credentials
func (db *Database) CountCredentials() (int, error) {
	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM scraped_credentials`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count credentials: %w", err)
	}
	return count, nil
}

// scanCredentials reads credential rows, mapping NULL value columns back to
// empty strings
func scanCredentials(rows *sql.Rows) ([]*models.Credential, error) {
	var creds []*models.Credential
	for rows.Next() {
		cred := &models.Credential{}
		var email, username, password, apiKey, token, domain, url, rawData, metadata sql.NullString
		var verified int

		err := rows.Scan(
			&cred.ID, &cred.SearchID, &cred.CredentialType, &cred.Source,
			&email, &username, &password, &apiKey, &token, &domain, &url,
			&rawData, &metadata, &cred.Severity, &verified,
			&cred.CreatedAt, &cred.LastSeen,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}

		cred.Email = email.String
		cred.Username = username.String
		cred.Password = password.String
		cred.APIKey = apiKey.String
		cred.Token = token.String
		cred.Domain = domain.String
		cred.URL = url.String
		cred.RawData = rawData.String
		cred.MetadataJSON = metadata.String
		cred.Verified = verified != 0

		if err := cred.UnmarshalCredentialFields(); err != nil {
			return nil, err
		}

		creds = append(creds, cred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credentials: %w", err)
	}

	return creds, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
