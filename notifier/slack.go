package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"credential-scanner/models"
)

// SlackNotifier posts scan alerts to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
	username   string
	channel    string
	iconEmoji  string
	maxRetries int
	retryDelay time.Duration
	httpClient *http.Client
}

// NewSlackNotifier creates a new Slack notifier instance
func NewSlackNotifier(webhookURL, username, channel, iconEmoji string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		username:   username,
		channel:    channel,
		iconEmoji:  iconEmoji,
		maxRetries: 3,
		retryDelay: time.Second * 2,
		httpClient: &http.Client{
			Timeout: time.Second * 30,
		},
	}
}

// SlackMessage represents a Slack message structure
type SlackMessage struct {
	Text        string            `json:"text,omitempty"`
	Username    string            `json:"username,omitempty"`
	Channel     string            `json:"channel,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment represents a Slack message attachment
type SlackAttachment struct {
	Color     string       `json:"color,omitempty"`
	Title     string       `json:"title,omitempty"`
	TitleLink string       `json:"title_link,omitempty"`
	Text      string       `json:"text,omitempty"`
	Fields    []SlackField `json:"fields,omitempty"`
	Footer    string       `json:"footer,omitempty"`
	Timestamp int64        `json:"ts,omitempty"`
}

// SlackField represents a field in a Slack attachment
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

const maxFindsShown = 10

// NotifyCriticalFinds sends an alert summarizing critical-severity
// credentials discovered by a scan
func (sn *SlackNotifier) NotifyCriticalFinds(searchInput string, creds []*models.Credential) error {
	if len(creds) == 0 {
		return nil
	}

	byType := make(map[models.CredentialType]int)
	for _, cred := range creds {
		byType[cred.CredentialType]++
	}

	attachment := SlackAttachment{
		Color:     "danger",
		Title:     fmt.Sprintf("Search: %s", searchInput),
		Footer:    "Credential Scanner",
		Timestamp: time.Now().Unix(),
	}

	attachment.Fields = append(attachment.Fields,
		SlackField{
			Title: "Critical Findings",
			Value: fmt.Sprintf("%d", len(creds)),
			Short: true,
		},
		SlackField{
			Title: "Types",
			Value: formatTypeCounts(byType),
			Short: true,
		},
		SlackField{
			Title: "Top Findings",
			Value: formatFindList(creds, maxFindsShown),
			Short: false,
		},
	)

	message := &SlackMessage{
		Text:        "🚨 *Critical Credentials Exposed*",
		Username:    sn.username,
		Channel:     sn.channel,
		IconEmoji:   sn.iconEmoji,
		Attachments: []SlackAttachment{attachment},
	}

	return sn.sendMessage(message)
}

// SendCustomMessage sends a custom message to Slack
func (sn *SlackNotifier) SendCustomMessage(text string, channel string) error {
	message := &SlackMessage{
		Text:      text,
		Username:  sn.username,
		Channel:   getChannel(channel, sn.channel),
		IconEmoji: sn.iconEmoji,
	}

	return sn.sendMessage(message)
}

func formatTypeCounts(byType map[models.CredentialType]int) string {
	var parts []string
	for _, t := range models.HighValueTypes {
		if n, ok := byType[t]; ok {
			parts = append(parts, fmt.Sprintf("%s: %d", t, n))
		}
	}
	for t, n := range byType {
		known := false
		for _, hv := range models.HighValueTypes {
			if t == hv {
				known = true
				break
			}
		}
		if !known {
			parts = append(parts, fmt.Sprintf("%s: %d", t, n))
		}
	}
	return strings.Join(parts, " | ")
}

// formatFindList renders findings for display without quoting the secret
// itself; only source and location go to the channel
func formatFindList(creds []*models.Credential, maxShown int) string {
	var lines []string
	for i, cred := range creds {
		if i >= maxShown {
			lines = append(lines, fmt.Sprintf("... and %d more", len(creds)-i))
			break
		}
		line := fmt.Sprintf("🔴 *%s* via %s", cred.CredentialType, cred.Source)
		if cred.URL != "" {
			line += fmt.Sprintf(" — %s", cred.URL)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// sendMessage sends a message to Slack with retry logic
func (sn *SlackNotifier) sendMessage(message *SlackMessage) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= sn.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(sn.retryDelay)
		}

		resp, err := sn.httpClient.Post(sn.webhookURL, "application/json", bytes.NewBuffer(payload))
		if err != nil {
			lastErr = fmt.Errorf("failed to send request: %w", err)
			continue
		}

		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			return nil
		}

		lastErr = fmt.Errorf("slack API returned status %d", resp.StatusCode)

		// Don't retry for client errors
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			break
		}
	}

	return fmt.Errorf("failed to send Slack notification after %d attempts: %w", sn.maxRetries+1, lastErr)
}

// ValidateConfiguration validates the Slack notifier configuration
func (sn *SlackNotifier) ValidateConfiguration() error {
	if sn.webhookURL == "" {
		return fmt.Errorf("Slack webhook URL is required")
	}

	if !strings.HasPrefix(sn.webhookURL, "https://hooks.slack.com/") {
		return fmt.Errorf("invalid Slack webhook URL format")
	}

	return nil
}

// TestConnection tests the Slack connection by sending a test message
func (sn *SlackNotifier) TestConnection() error {
	if err := sn.ValidateConfiguration(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	testMessage := &SlackMessage{
		Text:      "🧪 Credential Scanner test message",
		Username:  sn.username,
		Channel:   sn.channel,
		IconEmoji: sn.iconEmoji,
	}

	return sn.sendMessage(testMessage)
}

func getChannel(customChannel, defaultChannel string) string {
	if customChannel != "" {
		return customChannel
	}
	return defaultChannel
}
