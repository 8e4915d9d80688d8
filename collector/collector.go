package collector

import (
	"context"
	"time"

	"credential-scanner/models"
)

// Query is what a scan run hands to each collector
type Query struct {
	Input      string
	SearchType models.SearchType
	RunID      string
}

// Collector gathers credential records for one source. Implementations must
// honor ctx cancellation and return partial results with a nil error when a
// source yields nothing.
type Collector interface {
	Name() string
	Collect(ctx context.Context, q Query) ([]*models.Credential, error)
}

// Options carries the shared HTTP knobs every network collector uses
type Options struct {
	GitHubToken   string
	UserAgent     string
	SearchTimeout time.Duration
	FetchTimeout  time.Duration
	MaxPastes     int
}

// Defaults fills unset knobs
func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = "Mozilla/5.0 (compatible; credential-scanner/1.0)"
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = 10 * time.Second
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 5 * time.Second
	}
	if o.MaxPastes <= 0 {
		o.MaxPastes = 50
	}
	return o
}
