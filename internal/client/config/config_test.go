package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.APIBaseURL)
	assert.Equal(t, StorageSQLite, c.Storage)
	assert.Equal(t, 30*time.Second, c.SyncInterval)
	assert.Equal(t, 250*time.Millisecond, c.DispatchDelay)
	assert.Equal(t, 5*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 5*time.Minute, c.CacheTTL)
	assert.Equal(t, 3, c.MaxRetries)
	assert.Equal(t, 5*time.Minute, c.UndoTTL)
	assert.Equal(t, time.Minute, c.SweepInterval)
	assert.Equal(t, 20, c.PageSize)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://127.0.0.1:8080", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
}

func Test_parseFlags_Overrides(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin", "-a", "http://backend:9090", "-s", "60", "-r", "5", "-b", "s3"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, "http://backend:9090", cfg.APIBaseURL)
	assert.Equal(t, 60*time.Second, cfg.SyncInterval)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, StorageS3, cfg.Storage)
	assert.Equal(t, 5*time.Second, cfg.OnlineCheckInterval, "untouched flags keep defaults")
}
