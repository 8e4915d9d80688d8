package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"credential-scanner/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreachCollector_Collect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/alice@acme.org", r.URL.Path)
		fmt.Fprint(w, `[
			{"Name": "ExampleBreach", "Title": "Example Breach", "Domain": "example-breach.com",
			 "BreachDate": "2019-03-04", "PwnCount": 123456,
			 "DataClasses": ["Email addresses", "Passwords"]},
			{"Name": "OtherLeak", "Title": "Other Leak", "Domain": "otherleak.net",
			 "BreachDate": "2021-07-15", "PwnCount": 42,
			 "DataClasses": ["Email addresses"]}
		]`)
	}))
	defer srv.Close()

	c := NewBreachCollector(Options{})
	c.apiBase = srv.URL

	results, err := c.Collect(context.Background(), Query{Input: "alice@acme.org", SearchType: models.SearchTypeEmail})
	require.NoError(t, err)
	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, models.CredentialTypeBreach, first.CredentialType)
	assert.Equal(t, "breach_registry", first.Source)
	assert.Equal(t, "alice@acme.org", first.Email)
	assert.Equal(t, models.SeverityHigh, first.Severity)
	assert.Equal(t, "ExampleBreach", first.Metadata["breach_name"])
	assert.Equal(t, "2019-03-04", first.Metadata["breach_date"])
	assert.Equal(t, 123456, first.Metadata["pwn_count"])
	assert.Contains(t, first.RawData, "Example Breach")
}

func TestBreachCollector_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewBreachCollector(Options{})
	c.apiBase = srv.URL

	// 404 means no known breaches, not a failure
	results, err := c.Collect(context.Background(), Query{Input: "clean@acme.org", SearchType: models.SearchTypeEmail})
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestBreachCollector_SkipsNonEmailSearches(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewBreachCollector(Options{})
	c.apiBase = srv.URL

	results, err := c.Collect(context.Background(), Query{Input: "acme.org", SearchType: models.SearchTypeDomain})
	assert.NoError(t, err)
	assert.Empty(t, results)
	assert.False(t, called)
}

func TestBreachCollector_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewBreachCollector(Options{})
	c.apiBase = srv.URL

	_, err := c.Collect(context.Background(), Query{Input: "alice@acme.org", SearchType: models.SearchTypeEmail})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status: 429")
}
