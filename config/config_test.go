package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	viper.Reset()
	config = nil
	t.Cleanup(func() {
		viper.Reset()
		config = nil
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetViper(t)
	tempDir := t.TempDir()
	t.Setenv("CRED_SCANNER_DATABASE_PATH", filepath.Join(tempDir, "scan.db"))

	err := LoadConfig("")
	require.NoError(t, err)

	cfg := GetConfig()
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 10, cfg.Scraper.TimeoutSeconds)
	assert.Equal(t, 5, cfg.Scraper.FetchTimeout)
	assert.Equal(t, 50, cfg.Scraper.MaxPastes)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.True(t, cfg.Notification.NotifyOnFinding)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_FromFile(t *testing.T) {
	resetViper(t)
	tempDir := t.TempDir()

	configYAML := `
database:
  driver: sqlite3
  path: ` + filepath.Join(tempDir, "custom.db") + `
scraper:
  timeout_seconds: 30
  max_pastes: 10
server:
  port: 8443
  admin_key: file-admin-key
`
	configPath := filepath.Join(tempDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(configYAML), 0644))

	err := LoadConfig(configPath)
	require.NoError(t, err)

	cfg := GetConfig()
	assert.Equal(t, 30, cfg.Scraper.TimeoutSeconds)
	assert.Equal(t, 10, cfg.Scraper.MaxPastes)
	assert.Equal(t, 8443, cfg.Server.Port)
	assert.Equal(t, "file-admin-key", cfg.Server.AdminKey)
}

func TestLoadConfig_EnvSecrets(t *testing.T) {
	resetViper(t)
	tempDir := t.TempDir()
	t.Setenv("CRED_SCANNER_DATABASE_PATH", filepath.Join(tempDir, "scan.db"))
	t.Setenv("ADMIN_KEY", "env-admin-key")
	t.Setenv("GITHUB_TOKEN", "ghp_envtoken")

	err := LoadConfig("")
	require.NoError(t, err)

	cfg := GetConfig()
	assert.Equal(t, "env-admin-key", cfg.Server.AdminKey)
	assert.Equal(t, "ghp_envtoken", cfg.Scraper.GitHubToken)
}

func TestLoadConfig_InvalidDriver(t *testing.T) {
	resetViper(t)
	t.Setenv("CRED_SCANNER_DATABASE_DRIVER", "postgres")

	err := LoadConfig("")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestSaveAndReloadConfig(t *testing.T) {
	resetViper(t)
	tempDir := t.TempDir()

	cfg := getMinimalConfig()
	cfg.Database.Path = filepath.Join(tempDir, "scan.db")
	cfg.Server.Port = 9000

	configPath := filepath.Join(tempDir, "saved.yaml")
	require.NoError(t, SaveConfig(cfg, configPath))

	err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, 9000, GetConfig().Server.Port)
}

func TestGenerateDefaultConfig(t *testing.T) {
	resetViper(t)
	tempDir := t.TempDir()

	configPath := filepath.Join(tempDir, "default.yaml")
	require.NoError(t, GenerateDefaultConfig(configPath))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "database:")
	assert.Contains(t, string(data), "scraper:")
}
