package collector

import (
	"context"
	"fmt"
	"net/url"

	"credential-scanner/models"
)

// dorkTemplates target the sites and file shapes where credentials for a
// given subject most often leak
var dorkTemplates = []string{
	`site:pastebin.com "%s"`,
	`site:github.com "%s" password`,
	`site:github.com "%s" api_key`,
	`site:gitlab.com "%s" secret`,
	`site:trello.com "%s"`,
	`site:jsfiddle.net "%s"`,
	`"%s" filetype:env`,
	`"%s" filetype:config password`,
	`inurl:config "%s" password`,
	`intext:"%s" intext:password`,
}

// DorkCollector generates search-engine dork queries for manual follow-up.
// It never touches the network.
type DorkCollector struct{}

func NewDorkCollector() *DorkCollector {
	return &DorkCollector{}
}

func (c *DorkCollector) Name() string {
	return "dork"
}

func (c *DorkCollector) Collect(ctx context.Context, q Query) ([]*models.Credential, error) {
	results := make([]*models.Credential, 0, len(dorkTemplates))
	for _, tmpl := range dorkTemplates {
		dork := fmt.Sprintf(tmpl, q.Input)
		cred := &models.Credential{
			CredentialType: models.CredentialTypeGoogleDork,
			Source:         "google_dorks",
			URL:            "https://www.google.com/search?q=" + url.QueryEscape(dork),
			RawData:        "Manual verification needed: " + dork,
			Severity:       models.SeverityMedium,
			Metadata:       map[string]any{"dork": dork},
		}
		results = append(results, cred)
	}
	return results, nil
}
