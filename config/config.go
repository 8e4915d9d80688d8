package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Database     DatabaseConfig     `yaml:"database" mapstructure:"database"`
	Scraper      ScraperConfig      `yaml:"scraper" mapstructure:"scraper"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Notification NotificationConfig `yaml:"notification" mapstructure:"notification"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// ScraperConfig controls the source collectors
type ScraperConfig struct {
	GitHubToken    string `yaml:"github_token" mapstructure:"github_token"`
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	FetchTimeout   int    `yaml:"fetch_timeout_seconds" mapstructure:"fetch_timeout_seconds"`
	MaxPastes      int    `yaml:"max_pastes" mapstructure:"max_pastes"`
}

// ServerConfig controls the admin API server
type ServerConfig struct {
	Port     int    `yaml:"port" mapstructure:"port"`
	AdminKey string `yaml:"admin_key" mapstructure:"admin_key"`
}

// NotificationConfig controls the Slack alert channel
type NotificationConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url" mapstructure:"slack_webhook_url"`
	SlackUsername   string `yaml:"slack_username" mapstructure:"slack_username"`
	SlackChannel    string `yaml:"slack_channel" mapstructure:"slack_channel"`
	SlackIconEmoji  string `yaml:"slack_icon_emoji" mapstructure:"slack_icon_emoji"`
	NotifyOnFinding bool   `yaml:"notify_on_finding" mapstructure:"notify_on_finding"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Output string `yaml:"output" mapstructure:"output"`
	File   string `yaml:"file" mapstructure:"file"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	Path   string `yaml:"path" mapstructure:"path"`
}

var config *Config = nil

func GetConfig() *Config {
	if config == nil {
		err := LoadConfig(os.Getenv("CRED_SCANNER_CONFIG_PATH"))
		if err != nil {
			log.Fatal("Failed to load config:", err)
			return getMinimalConfig()
		}
	}
	return config
}

// GetDSN returns the data source name for the database connection
func (dc *DatabaseConfig) GetDSN() string {
	return dc.Path
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) error {
	setDefaults()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName(".credential-scanner")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.AddConfigPath("/etc/credential-scanner")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	viper.SetEnvPrefix("CRED_SCANNER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	loadConfig := &Config{}
	if err := viper.Unmarshal(loadConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateAndSetDefaults(loadConfig); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	config = loadConfig
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("database.driver", "sqlite3")
	viper.SetDefault("database.path", "./credential_scan.db")

	viper.SetDefault("scraper.user_agent", "Mozilla/5.0 (compatible; credential-scanner/1.0)")
	viper.SetDefault("scraper.timeout_seconds", 10)
	viper.SetDefault("scraper.fetch_timeout_seconds", 5)
	viper.SetDefault("scraper.max_pastes", 50)

	viper.SetDefault("server.port", 3000)

	viper.SetDefault("notification.notify_on_finding", true)
	viper.SetDefault("notification.slack_username", "Credential Scanner")
	viper.SetDefault("notification.slack_channel", "#security-alerts")
	viper.SetDefault("notification.slack_icon_emoji", ":rotating_light:")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.output", "stdout")
}

// validateAndSetDefaults validates configuration and sets computed defaults
func validateAndSetDefaults(config *Config) error {
	config.Database.Path = os.ExpandEnv(config.Database.Path)

	if config.Database.Driver != "sqlite3" {
		return fmt.Errorf("unsupported database driver: %s", config.Database.Driver)
	}

	dbDir := filepath.Dir(config.Database.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	// Secrets come from the environment when not set in the file
	if config.Server.AdminKey == "" {
		config.Server.AdminKey = os.Getenv("ADMIN_KEY")
	}
	if config.Scraper.GitHubToken == "" {
		config.Scraper.GitHubToken = os.Getenv("GITHUB_TOKEN")
	}

	return nil
}

// getMinimalConfig returns a minimal configuration with defaults
func getMinimalConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite3",
			Path:   "./credential_scan.db",
		},
		Scraper: ScraperConfig{
			UserAgent:      "Mozilla/5.0 (compatible; credential-scanner/1.0)",
			TimeoutSeconds: 10,
			FetchTimeout:   5,
			MaxPastes:      50,
		},
		Server: ServerConfig{
			Port: 3000,
		},
		Notification: NotificationConfig{
			NotifyOnFinding: true,
			SlackUsername:   "Credential Scanner",
			SlackChannel:    "#security-alerts",
			SlackIconEmoji:  ":rotating_light:",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stdout",
		},
	}
}

// SaveConfig saves the current configuration to a file
func SaveConfig(config *Config, filePath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateDefaultConfig creates a default configuration file
func GenerateDefaultConfig(filePath string) error {
	config := getMinimalConfig()
	return SaveConfig(config, filePath)
}
