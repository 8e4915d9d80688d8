package db

import (
	"testing"

	"credential-scanner/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDuplicates(t *testing.T, db *Database) (int, []*models.Credential) {
	searchID := newTestSearch(t, db, "acme.org", models.SearchTypeDomain)

	creds := []*models.Credential{
		// Three copies of the same API key from different sources
		{CredentialType: models.CredentialTypeAPIKey, Source: "github", APIKey: "abcdef1234567890abcdef12"},
		{CredentialType: models.CredentialTypeAPIKey, Source: "pastebin", APIKey: "abcdef1234567890abcdef12"},
		{CredentialType: models.CredentialTypeAPIKey, Source: "github_gist", APIKey: "abcdef1234567890abcdef12"},
		// Two copies of the same email:password pair
		{CredentialType: models.CredentialTypePassword, Source: "pastebin", Email: "bob@acme.org", Password: "hunter22"},
		{CredentialType: models.CredentialTypePassword, Source: "pastebin", Email: "bob@acme.org", Password: "hunter22"},
		// Same value, different type: not a duplicate
		{CredentialType: models.CredentialTypeToken, Source: "github", Token: "abcdef1234567890abcdef12"},
		// Unique row
		{CredentialType: models.CredentialTypeEmail, Source: "github", Email: "carol@acme.org"},
	}

	_, err := db.SaveCredentials(creds, searchID)
	require.NoError(t, err)
	return searchID, creds
}

func TestFindDuplicateGroups(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	seedDuplicates(t, db)

	groups, err := db.FindDuplicateGroups()
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// Largest group first
	assert.Equal(t, models.CredentialTypeAPIKey, groups[0].CredentialType)
	assert.Equal(t, "abcdef1234567890abcdef12", groups[0].CanonicalValue)
	assert.Equal(t, 3, groups[0].Size())

	assert.Equal(t, models.CredentialTypePassword, groups[1].CredentialType)
	assert.Equal(t, "bob@acme.org:hunter22", groups[1].CanonicalValue)
	assert.Equal(t, 2, groups[1].Size())

	// Member ids are oldest first, and the aggregate timestamps come back
	// as real times even though sqlite returns them untyped
	for _, group := range groups {
		for i := 1; i < len(group.MemberIDs); i++ {
			assert.Less(t, group.MemberIDs[i-1], group.MemberIDs[i])
		}
		assert.False(t, group.FirstSeen.IsZero())
		assert.False(t, group.LastSeen.IsZero())
		assert.False(t, group.LastSeen.Before(group.FirstSeen))
	}
}

func TestFindDuplicateGroups_NoDuplicates(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	searchID := newTestSearch(t, db, "acme", models.SearchTypeKeyword)
	_, err := db.SaveCredentials([]*models.Credential{
		{CredentialType: models.CredentialTypeEmail, Source: "github", Email: "a@acme.org"},
		{CredentialType: models.CredentialTypeEmail, Source: "github", Email: "b@acme.org"},
	}, searchID)
	require.NoError(t, err)

	groups, err := db.FindDuplicateGroups()
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestRemoveDuplicates_OldestSurvives(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	seedDuplicates(t, db)

	groups, err := db.FindDuplicateGroups()
	require.NoError(t, err)
	survivors := make(map[int]bool)
	for _, group := range groups {
		survivors[group.MemberIDs[0]] = true
	}

	removed, err := db.RemoveDuplicates()
	require.NoError(t, err)
	assert.Equal(t, 3, removed) // 2 extra api_key copies + 1 extra pair copy

	count, err := db.CountCredentials()
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	// The first-inserted row of each group is the one that remains
	remaining, _, err := db.GetAllCredentials(1, 100, "")
	require.NoError(t, err)
	remainingIDs := make(map[int]bool)
	for _, cred := range remaining {
		remainingIDs[cred.ID] = true
	}
	for id := range survivors {
		assert.True(t, remainingIDs[id], "oldest row %d should survive", id)
	}

	// Cleanup is idempotent
	removed, err = db.RemoveDuplicates()
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	groups, err = db.FindDuplicateGroups()
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestRemoveDuplicates_ReportMatchesCleanup(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	seedDuplicates(t, db)

	groups, err := db.FindDuplicateGroups()
	require.NoError(t, err)

	expected := 0
	for _, group := range groups {
		expected += group.Size() - 1
	}

	removed, err := db.RemoveDuplicates()
	require.NoError(t, err)
	assert.Equal(t, expected, removed)
}
