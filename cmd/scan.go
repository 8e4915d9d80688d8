package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"credential-scanner/collector"
	"credential-scanner/config"
	"credential-scanner/db"
	"credential-scanner/logging"
	"credential-scanner/models"
	"credential-scanner/notifier"
	"credential-scanner/scanjob"
)

var (
	searchTypeFlag string
	notify         bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [search input]",
	Short: "Run a one-shot credential scan for the given input",
	Long: `Scan searches public sources for credentials exposed for the given
email address, domain, company name or keyword.

Scan stages:
1. GitHub code and gist search
2. Paste-dump collection
3. Breach registry lookup (email searches only)
4. Google dork generation
5. Deduplication, storage and Slack alerting

Examples:
  # Scan for an email address
  credential-scanner scan alice@example.org --type email

  # Scan for a domain
  credential-scanner scan example.org --type domain

  # Scan for a company name without notifications
  credential-scanner scan "Acme Corp" --type company --notify=false`,
	Args: cobra.ExactArgs(1),
	Run:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&searchTypeFlag, "type", "t", "keyword", "Search type (email, username, domain, company, keyword, github)")
	scanCmd.Flags().BoolVar(&notify, "notify", true, "Send Slack notification on critical findings")

	viper.BindPFlag("scan.type", scanCmd.Flags().Lookup("type"))
	viper.BindPFlag("scan.notify", scanCmd.Flags().Lookup("notify"))
}

func runScan(cmd *cobra.Command, args []string) {
	input := args[0]
	searchType := models.SearchType(searchTypeFlag)

	if !models.ValidSearchType(searchType) {
		log.Fatalf("Invalid search type: %s", searchTypeFlag)
	}

	fmt.Println("🔍 Starting credential scan...")

	cfg, database, manager, err := buildComponents(notify)
	if err != nil {
		log.Fatalf("Failed to initialize components: %v", err)
	}
	defer database.Close()

	if verbose {
		log.Printf("Starting scan with parameters:")
		log.Printf("  Input: %s", input)
		log.Printf("  Type: %s", searchType)
		log.Printf("  Database: %s", cfg.Database.Path)
		log.Printf("  Notify: %t", notify)
	}

	start := time.Now()
	outcome, err := manager.Run(context.Background(), input, searchType, "cli")
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	fmt.Printf("\n📊 Scan %d finished in %s\n", outcome.SearchID, time.Since(start).Round(time.Millisecond))
	printOutcome(outcome)

	fmt.Println("✅ Scan completed successfully!")
}

// printOutcome renders a per-severity summary of the scan results
func printOutcome(outcome *scanjob.Outcome) {
	bySeverity := map[models.Severity]int{}
	for _, cred := range outcome.Results {
		bySeverity[cred.Severity]++
	}

	fmt.Printf("   Total findings: %d\n", outcome.TotalFound)
	fmt.Printf("   🔴 Critical: %d | 🟠 High: %d | 🟡 Medium: %d\n",
		bySeverity[models.SeverityCritical],
		bySeverity[models.SeverityHigh],
		bySeverity[models.SeverityMedium])

	if outcome.Status == models.SearchStatusStopped {
		fmt.Println("   ⚠️  Scan was stopped before all sources completed")
	}
}

// buildComponents loads configuration and wires the database, collectors and
// scan manager. Used by both the scan and server commands.
func buildComponents(withNotifier bool) (*config.Config, *db.Database, *scanjob.Manager, error) {
	if err := config.LoadConfig(cfgFile); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.GetConfig()

	if err := logging.Init(cfg.Logging); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	database, err := db.NewDatabase(cfg.Database.Driver, cfg.Database.GetDSN())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	opts := collector.Options{
		GitHubToken:   cfg.Scraper.GitHubToken,
		UserAgent:     cfg.Scraper.UserAgent,
		SearchTimeout: time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second,
		FetchTimeout:  time.Duration(cfg.Scraper.FetchTimeout) * time.Second,
		MaxPastes:     cfg.Scraper.MaxPastes,
	}

	collectors := []collector.Collector{
		collector.NewCodeHostCollector(opts),
		collector.NewPasteCollector(opts),
		collector.NewBreachCollector(opts),
		collector.NewDorkCollector(),
	}

	var alerter scanjob.Notifier
	if withNotifier && cfg.Notification.NotifyOnFinding && cfg.Notification.SlackWebhookURL != "" {
		alerter = notifier.NewSlackNotifier(
			cfg.Notification.SlackWebhookURL,
			cfg.Notification.SlackUsername,
			cfg.Notification.SlackChannel,
			cfg.Notification.SlackIconEmoji,
		)
	}

	manager := scanjob.NewManager(database, collectors, alerter)
	return cfg, database, manager, nil
}
