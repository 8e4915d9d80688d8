package db

import (
	"testing"

	"credential-scanner/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSearch(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	search := &models.Search{
		SearchInput: "alice@example.org",
		SearchType:  models.SearchTypeEmail,
		AdminIP:     "10.0.0.5",
		Metadata:    map[string]any{"run_id": "7c9e6679-7425-40de-944b-e07fc1f90ae7"},
	}

	id, err := db.CreateSearch(search)
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Equal(t, id, search.ID)

	stored, err := db.GetSearch(id)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.org", stored.SearchInput)
	assert.Equal(t, models.SearchTypeEmail, stored.SearchType)
	assert.Equal(t, models.SearchStatusRunning, stored.Status)
	assert.Equal(t, "10.0.0.5", stored.AdminIP)
	assert.Equal(t, "7c9e6679-7425-40de-944b-e07fc1f90ae7", stored.Metadata["run_id"])
}

func TestCreateSearch_InvalidType(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	search := &models.Search{SearchInput: "x", SearchType: "wallet"}
	_, err := db.CreateSearch(search)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid search type")
}

func TestUpdateSearchStatus(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	id := newTestSearch(t, db, "acme.org", models.SearchTypeDomain)

	err := db.UpdateSearchStatus(id, models.SearchStatusCompleted, 42)
	require.NoError(t, err)

	stored, err := db.GetSearch(id)
	require.NoError(t, err)
	assert.Equal(t, models.SearchStatusCompleted, stored.Status)
	assert.Equal(t, 42, stored.ResultsCount)
	require.NotNil(t, stored.CompletedAt)
}

func TestUpdateSearchStatus_TerminalIsFinal(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	id := newTestSearch(t, db, "acme.org", models.SearchTypeDomain)

	require.NoError(t, db.UpdateSearchStatus(id, models.SearchStatusStopped, 3))

	// A settled search never reopens
	err := db.UpdateSearchStatus(id, models.SearchStatusRunning, 0)
	assert.Error(t, err)

	err = db.UpdateSearchStatus(id, models.SearchStatusCompleted, 10)
	assert.Error(t, err)

	stored, err := db.GetSearch(id)
	require.NoError(t, err)
	assert.Equal(t, models.SearchStatusStopped, stored.Status)
	assert.Equal(t, 3, stored.ResultsCount)
}

func TestUpdateSearchStatus_Unknown(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	err := db.UpdateSearchStatus(424242, models.SearchStatusCompleted, 0)
	assert.Error(t, err)
}

func TestGetSearch_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := db.GetSearch(424242)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGetRecentSearches(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	first := newTestSearch(t, db, "first@example.org", models.SearchTypeEmail)
	second := newTestSearch(t, db, "second.org", models.SearchTypeDomain)
	third := newTestSearch(t, db, "third", models.SearchTypeKeyword)

	searches, err := db.GetRecentSearches(2)
	require.NoError(t, err)
	require.Len(t, searches, 2)

	// Newest first; same-second inserts fall back to id ordering
	assert.Equal(t, third, searches[0].ID)
	assert.Equal(t, second, searches[1].ID)

	all, err := db.GetRecentSearches(10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, first, all[2].ID)
}
