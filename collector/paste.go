package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"credential-scanner/extract"
	"credential-scanner/models"
)

const (
	psbdmpAPI      = "https://psbdmp.ws/api/v3/search"
	pastebinRawURL = "https://pastebin.com/raw"
	pastebinWebURL = "https://pastebin.com"
)

// PasteCollector searches an index of paste dumps and pulls the matching
// pastes. Anything extracted from a paste is treated as critical: the content
// is already public in cleartext.
type PasteCollector struct {
	opts     Options
	searchCl *http.Client
	fetchCl  *http.Client

	searchBase string
	rawBase    string
	webBase    string
}

func NewPasteCollector(opts Options) *PasteCollector {
	opts = opts.withDefaults()
	return &PasteCollector{
		opts:       opts,
		searchCl:   &http.Client{Timeout: opts.SearchTimeout},
		fetchCl:    &http.Client{Timeout: opts.FetchTimeout},
		searchBase: psbdmpAPI,
		rawBase:    pastebinRawURL,
		webBase:    pastebinWebURL,
	}
}

func (c *PasteCollector) Name() string {
	return "paste"
}

type psbdmpResponse struct {
	Count int `json:"count"`
	Data  []struct {
		ID   string `json:"id"`
		Tags string `json:"tags"`
		Time string `json:"time"`
	} `json:"data"`
}

func (c *PasteCollector) Collect(ctx context.Context, q Query) ([]*models.Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s", c.searchBase, q.Input), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.searchCl.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paste search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paste search returned status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	var searchResp psbdmpResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal paste index: %w", err)
	}

	var results []*models.Credential
	fetched := 0
	for _, paste := range searchResp.Data {
		if fetched >= c.opts.MaxPastes {
			break
		}
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		content, err := c.fetchPaste(ctx, paste.ID)
		if err != nil {
			log.Printf("paste: skipping %s: %v", paste.ID, err)
			continue
		}
		fetched++

		meta := map[string]any{"paste_id": paste.ID, "indexed_at": paste.Time}
		pasteURL := fmt.Sprintf("%s/%s", c.webBase, paste.ID)
		for _, cand := range extract.Extract(content) {
			results = append(results, cand.ToCredential("pastebin", pasteURL, models.SeverityCritical, meta))
		}
	}

	return results, nil
}

// fetchPaste tries the raw endpoint first; when it is blocked or gone it
// scrapes the paste's HTML page instead
func (c *PasteCollector) fetchPaste(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s", c.rawBase, id), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.fetchCl.Do(req)
	if err != nil {
		return "", fmt.Errorf("raw fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return "", fmt.Errorf("failed to read body: %w", err)
		}
		return string(body), nil
	}

	return c.scrapePastePage(ctx, id)
}

func (c *PasteCollector) scrapePastePage(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s", c.webBase, id), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.fetchCl.Do(req)
	if err != nil {
		return "", fmt.Errorf("paste page fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paste page returned status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse paste page: %w", err)
	}

	var content string
	doc.Find("#paste_code, .de1").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			content = text
			return false
		}
		return true
	})

	if content == "" {
		return "", fmt.Errorf("no paste content found in page %s", id)
	}
	return content, nil
}
