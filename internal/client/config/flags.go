package config

import (
	"flag"
	"os"
	"time"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the category backend (default from Config)
//	-d string   SQLite DSN for local persistence (default from Config)
//	-b string   storage backend, sqlite or s3 (default from Config)
//	-s int      sync interval in seconds (default from Config)
//	-i int      online check interval in seconds (default from Config)
//	-r int      replay budget per queued operation (default from Config)
//	-p int      default page size (default from Config)
//
// Note: The function filters os.Args to only include the flags it knows
// about, using flagx.FilterArgs, to avoid interference with other
// components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-b", "-s", "-i", "-r", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the category backend")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "SQLite DSN for local persistence")
	storage := fs.String("b", string(cfg.Storage), "storage backend (sqlite or s3)")
	syncInterval := fs.Int("s", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.IntVar(&cfg.MaxRetries, "r", cfg.MaxRetries, "replay budget per queued operation")
	fs.IntVar(&cfg.PageSize, "p", cfg.PageSize, "default page size")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.Storage = StorageBackend(*storage)
	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
