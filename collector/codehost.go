package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"credential-scanner/extract"
	"credential-scanner/models"
)

const (
	githubAPI      = "https://api.github.com"
	maxCodeResults = 10
	maxGists       = 50
)

// subQueryTerms are appended to the search input to surface files likely to
// leak secrets
var subQueryTerms = []string{
	"password", "api_key", "secret", "token", "credentials", ".env", "config",
}

// CodeHostCollector searches GitHub code and public gists for leaked
// credentials mentioning the search input
type CodeHostCollector struct {
	opts     Options
	searchCl *http.Client
	fetchCl  *http.Client

	// overridable in tests
	apiBase string
}

func NewCodeHostCollector(opts Options) *CodeHostCollector {
	opts = opts.withDefaults()
	return &CodeHostCollector{
		opts:     opts,
		searchCl: &http.Client{Timeout: opts.SearchTimeout},
		fetchCl:  &http.Client{Timeout: opts.FetchTimeout},
		apiBase:  githubAPI,
	}
}

func (c *CodeHostCollector) Name() string {
	return "code-host"
}

type githubSearchItem struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	HTMLURL    string `json:"html_url"`
	URL        string `json:"url"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

type githubSearchResponse struct {
	TotalCount int                `json:"total_count"`
	Items      []githubSearchItem `json:"items"`
}

type githubGist struct {
	ID      string `json:"id"`
	HTMLURL string `json:"html_url"`
	Files   map[string]struct {
		RawURL string `json:"raw_url"`
	} `json:"files"`
}

// Collect runs one code-search sub-query per term, then a public gists pass,
// extracting credentials from each fetched document. Individual fetch
// failures are logged and skipped.
func (c *CodeHostCollector) Collect(ctx context.Context, q Query) ([]*models.Credential, error) {
	var results []*models.Credential

	for _, term := range subQueryTerms {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		found, err := c.searchCode(ctx, q.Input, term)
		if err != nil {
			log.Printf("code-host: sub-query %q failed: %v", term, err)
			continue
		}
		results = append(results, found...)
	}

	gistResults, err := c.collectGists(ctx, q.Input)
	if err != nil {
		log.Printf("code-host: gists pass failed: %v", err)
	}
	results = append(results, gistResults...)

	return results, nil
}

func (c *CodeHostCollector) searchCode(ctx context.Context, input, term string) ([]*models.Credential, error) {
	query := fmt.Sprintf("%s %s", input, term)
	searchURL := fmt.Sprintf("%s/search/code?q=%s&per_page=%d",
		c.apiBase, url.QueryEscape(query), maxCodeResults)

	body, status, err := c.get(ctx, c.searchCl, searchURL, true)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("code search returned status: %d", status)
	}

	var searchResp githubSearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search response: %w", err)
	}

	var results []*models.Credential
	for _, item := range searchResp.Items {
		content, err := c.fetchFileContent(ctx, item.URL)
		if err != nil {
			log.Printf("code-host: skipping %s: %v", item.Path, err)
			continue
		}

		meta := map[string]any{
			"repository": item.Repository.FullName,
			"path":       item.Path,
			"sub_query":  term,
		}
		for _, cand := range extract.Extract(content) {
			results = append(results, cand.ToCredential("github", item.HTMLURL, models.SeverityHigh, meta))
		}
	}

	return results, nil
}

// fetchFileContent resolves a code-search item to its raw text via the
// contents API raw media type
func (c *CodeHostCollector) fetchFileContent(ctx context.Context, itemURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, itemURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.raw")
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if c.opts.GitHubToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.GitHubToken)
	}

	resp, err := c.fetchCl.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("content fetch returned status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	return string(body), nil
}

func (c *CodeHostCollector) collectGists(ctx context.Context, input string) ([]*models.Credential, error) {
	gistsURL := fmt.Sprintf("%s/gists/public?per_page=%d", c.apiBase, maxGists)

	body, status, err := c.get(ctx, c.searchCl, gistsURL, true)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("gists listing returned status: %d", status)
	}

	var gists []githubGist
	if err := json.Unmarshal(body, &gists); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gists: %w", err)
	}

	needle := strings.ToLower(input)
	var results []*models.Credential
	for _, gist := range gists {
		for name, file := range gist.Files {
			content, _, err := c.get(ctx, c.fetchCl, file.RawURL, false)
			if err != nil {
				continue
			}
			text := string(content)
			if !strings.Contains(strings.ToLower(text), needle) {
				continue
			}

			meta := map[string]any{"gist_id": gist.ID, "file": name}
			for _, cand := range extract.Extract(text) {
				results = append(results, cand.ToCredential("github_gist", gist.HTMLURL, models.SeverityHigh, meta))
			}
		}
	}

	return results, nil
}

func (c *CodeHostCollector) get(ctx context.Context, client *http.Client, rawURL string, authed bool) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if authed {
		req.Header.Set("Accept", "application/vnd.github+json")
		if c.opts.GitHubToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.opts.GitHubToken)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read body: %w", err)
	}

	return body, resp.StatusCode, nil
}
