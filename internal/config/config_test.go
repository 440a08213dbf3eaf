package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresTelegramToken(t *testing.T) {
	t.Setenv("CTBOT_TELEGRAM_TOKEN", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram token")
}

func TestLoadDefaultsFromEnvironment(t *testing.T) {
	t.Setenv("CTBOT_TELEGRAM_TOKEN", "test-token")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.Telegram.Token)
	assert.Equal(t, 60, cfg.GitHub.PollInterval)
	assert.Equal(t, 100, cfg.GitHub.Lookback)
	assert.Equal(t, 60*time.Second, cfg.PollInterval())
	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddress())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
telegram:
  token: file-token
github:
  poll_interval: 120
  lookback: 50
server:
  port: 9090
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Telegram.Token)
	assert.Equal(t, 120, cfg.GitHub.PollInterval)
	assert.Equal(t, 50, cfg.GitHub.Lookback)
	assert.Equal(t, 2*time.Minute, cfg.PollInterval())
	assert.Equal(t, "0.0.0.0:9090", cfg.ServerAddress())
}

func TestValidateRejectsBadIntervals(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "x"},
		GitHub:   GitHubConfig{PollInterval: 0, Lookback: 100},
	}
	assert.Error(t, cfg.Validate())

	cfg.GitHub.PollInterval = 60
	cfg.GitHub.Lookback = 0
	assert.Error(t, cfg.Validate())

	cfg.GitHub.Lookback = 100
	assert.NoError(t, cfg.Validate())
}
