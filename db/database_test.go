package db

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"credential-scanner/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary test database
func setupTestDB(t *testing.T) (*Database, func()) {
	// Create temporary directory for test database
	tempDir, err := os.MkdirTemp("", "db_test_*")
	require.NoError(t, err)

	dbPath := filepath.Join(tempDir, "test.db")
	db, err := NewDatabase("sqlite3", dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.RemoveAll(tempDir)
	}

	return db, cleanup
}

// newTestSearch inserts a running search row and returns its ID
func newTestSearch(t *testing.T, db *Database, input string, searchType models.SearchType) int {
	search := &models.Search{
		SearchInput: input,
		SearchType:  searchType,
		AdminIP:     "127.0.0.1",
	}
	id, err := db.CreateSearch(search)
	require.NoError(t, err)
	return id
}

func TestNewDatabase(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "db_test_*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "test.db")

	db, err := NewDatabase("sqlite3", dbPath)
	assert.NoError(t, err)
	assert.NotNil(t, db)
	assert.NotNil(t, db.conn)
	assert.NotNil(t, db.migrationManager)

	// Test that database is accessible
	err = db.Ping()
	assert.NoError(t, err)

	db.Close()
}

func TestNewDatabase_InvalidDriver(t *testing.T) {
	_, err := NewDatabase("invalid_driver", "test.db")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestDatabase_Close(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	err := db.Close()
	assert.NoError(t, err)

	// Closing again should not error
	err = db.Close()
	assert.NoError(t, err)
}

func TestDatabase_MigrationsApplied(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	migrations, err := db.GetMigrationStatus()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for _, m := range migrations {
		assert.True(t, m.Applied, "migration %s should be applied", m.Version)
	}

	// Both domain tables exist
	_, err = db.Exec("SELECT COUNT(*) FROM scraped_credentials")
	assert.NoError(t, err)
	_, err = db.Exec("SELECT COUNT(*) FROM scraper_searches")
	assert.NoError(t, err)
}

func TestDatabase_RunMigrationsIdempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	// Second run applies nothing and does not error
	err := db.RunMigrations()
	assert.NoError(t, err)
}

func TestDatabase_BeginTransaction(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	tx, err := db.BeginTransaction()
	require.NoError(t, err)
	require.NotNil(t, tx)

	_, err = tx.Exec(`
		INSERT INTO scraper_searches (search_input, search_type, status)
		VALUES ('test@example.org', 'email', 'running')
	`)
	assert.NoError(t, err)
	assert.NoError(t, tx.Rollback())

	// Rolled-back row must not be visible
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM scraper_searches").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDatabase_TimestampsDefaulted(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	searchID := newTestSearch(t, db, "acme.org", models.SearchTypeDomain)
	search, err := db.GetSearch(searchID)
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now(), search.StartedAt, time.Minute)
	assert.Nil(t, search.CompletedAt)
}
