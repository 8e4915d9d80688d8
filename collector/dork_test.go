package collector

import (
	"context"
	"strings"
	"testing"

	"credential-scanner/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDorkCollector_Collect(t *testing.T) {
	c := NewDorkCollector()

	results, err := c.Collect(context.Background(), Query{Input: "acme.org", SearchType: models.SearchTypeDomain})
	require.NoError(t, err)
	require.Len(t, results, len(dorkTemplates))

	seen := make(map[string]bool)
	for _, cred := range results {
		assert.Equal(t, models.CredentialTypeGoogleDork, cred.CredentialType)
		assert.Equal(t, "google_dorks", cred.Source)
		assert.Equal(t, models.SeverityMedium, cred.Severity)
		assert.True(t, strings.HasPrefix(cred.URL, "https://www.google.com/search?q="))
		assert.Contains(t, cred.RawData, "Manual verification needed:")
		assert.Contains(t, cred.RawData, "acme.org")

		// Each dork is distinct
		assert.False(t, seen[cred.RawData])
		seen[cred.RawData] = true
	}
}

func TestDorkCollector_Deterministic(t *testing.T) {
	c := NewDorkCollector()
	q := Query{Input: "alice@acme.org", SearchType: models.SearchTypeEmail}

	first, err := c.Collect(context.Background(), q)
	require.NoError(t, err)
	second, err := c.Collect(context.Background(), q)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].RawData, second[i].RawData)
		assert.Equal(t, first[i].URL, second[i].URL)
	}
}
