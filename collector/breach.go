package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"credential-scanner/models"
)

const breachAPI = "https://haveibeenpwned.com/api/v3/breachedaccount"

// BreachCollector looks an email address up in a breach registry. It only
// applies to email searches; any other search type yields nothing.
type BreachCollector struct {
	opts   Options
	client *http.Client

	apiBase string
}

func NewBreachCollector(opts Options) *BreachCollector {
	opts = opts.withDefaults()
	return &BreachCollector{
		opts:    opts,
		client:  &http.Client{Timeout: opts.SearchTimeout},
		apiBase: breachAPI,
	}
}

func (c *BreachCollector) Name() string {
	return "breach"
}

type breachEntry struct {
	Name        string   `json:"Name"`
	Title       string   `json:"Title"`
	Domain      string   `json:"Domain"`
	BreachDate  string   `json:"BreachDate"`
	PwnCount    int      `json:"PwnCount"`
	DataClasses []string `json:"DataClasses"`
}

func (c *BreachCollector) Collect(ctx context.Context, q Query) ([]*models.Credential, error) {
	if q.SearchType != models.SearchTypeEmail {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s?truncateResponse=false", c.apiBase, q.Input), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("breach lookup failed: %w", err)
	}
	defer resp.Body.Close()

	// 404 means the address has no known breaches
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("breach registry returned status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	var breaches []breachEntry
	if err := json.Unmarshal(body, &breaches); err != nil {
		return nil, fmt.Errorf("failed to unmarshal breaches: %w", err)
	}

	var results []*models.Credential
	for _, breach := range breaches {
		cred := &models.Credential{
			CredentialType: models.CredentialTypeBreach,
			Source:         "breach_registry",
			Email:          q.Input,
			Domain:         breach.Domain,
			RawData:        fmt.Sprintf("Found in breach: %s (%s)", breach.Title, breach.BreachDate),
			Severity:       models.SeverityHigh,
			Metadata: map[string]any{
				"breach_name":  breach.Name,
				"breach_date":  breach.BreachDate,
				"data_classes": breach.DataClasses,
				"pwn_count":    breach.PwnCount,
			},
		}
		results = append(results, cred)
	}

	return results, nil
}
