// Package config handles configuration for the sync client, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// StorageBackend selects where scope records are persisted.
type StorageBackend string

const (
	StorageSQLite StorageBackend = "sqlite"
	StorageS3     StorageBackend = "s3"
)

// Config holds runtime settings for the category sync client.
//
// Fields:
//   - APIBaseURL: base URL of the category backend.
//   - DatabaseDSN: SQLite DSN for local scope persistence.
//   - Storage: persistence backend, "sqlite" (default) or "s3".
//   - SyncInterval / DispatchDelay: replay cadence of the sync engine.
//   - OnlineCheckInterval: how often backend reachability is probed.
//   - CacheTTL: lifetime of cached list and entity snapshots.
//   - MaxRetries: replay budget per queued operation.
//   - UndoTTL / SweepInterval: undo window and expiry sweep cadence.
//   - PageSize: default page size for listing requests.
//   - S3*: object storage settings, used when Storage is "s3".
type Config struct {
	APIBaseURL          string
	DatabaseDSN         string
	Storage             StorageBackend
	SyncInterval        time.Duration
	DispatchDelay       time.Duration
	OnlineCheckInterval time.Duration
	CacheTTL            time.Duration
	MaxRetries          int
	UndoTTL             time.Duration
	SweepInterval       time.Duration
	PageSize            int
	S3Bucket            string
	S3Region            string
	S3BaseEndpoint      string
	S3AccessKey         string
	S3SecretKey         string
	S3Prefix            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.DatabaseDSN = "categorysync.db"
	c.Storage = StorageSQLite
	c.SyncInterval = 30 * time.Second
	c.DispatchDelay = 250 * time.Millisecond
	c.OnlineCheckInterval = 5 * time.Second
	c.CacheTTL = 5 * time.Minute
	c.MaxRetries = 3
	c.UndoTTL = 5 * time.Minute
	c.SweepInterval = time.Minute
	c.PageSize = 20
	c.S3Region = "us-east-1"
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
