package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/flagx"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "30s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	APIBaseURL          string         `json:"api_base_url"`
	DatabaseDSN         string         `json:"database_dsn"`
	Storage             string         `json:"storage"`
	SyncInterval        timex.Duration `json:"sync_interval"`
	DispatchDelay       timex.Duration `json:"dispatch_delay"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	CacheTTL            timex.Duration `json:"cache_ttl"`
	MaxRetries          int            `json:"max_retries"`
	UndoTTL             timex.Duration `json:"undo_ttl"`
	SweepInterval       timex.Duration `json:"sweep_interval"`
	PageSize            int            `json:"page_size"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	S3AccessKey         string         `json:"s3_access_key"`
	S3SecretKey         string         `json:"s3_secret_key"`
	S3Prefix            string         `json:"s3_prefix"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The file path comes from the -c or -config command-line flags via
// flagx.JsonConfigFlags(); when neither is set nothing is loaded. Only
// fields present in the JSON override the current values, so a partial
// file keeps the remaining defaults. Read or unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	overlayString(&cfg.APIBaseURL, jc.APIBaseURL)
	overlayString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	if jc.Storage != "" {
		cfg.Storage = StorageBackend(jc.Storage)
	}
	overlayDuration(&cfg.SyncInterval, jc.SyncInterval)
	overlayDuration(&cfg.DispatchDelay, jc.DispatchDelay)
	overlayDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	overlayDuration(&cfg.CacheTTL, jc.CacheTTL)
	if jc.MaxRetries > 0 {
		cfg.MaxRetries = jc.MaxRetries
	}
	overlayDuration(&cfg.UndoTTL, jc.UndoTTL)
	overlayDuration(&cfg.SweepInterval, jc.SweepInterval)
	if jc.PageSize > 0 {
		cfg.PageSize = jc.PageSize
	}
	overlayString(&cfg.S3Bucket, jc.S3Bucket)
	overlayString(&cfg.S3Region, jc.S3Region)
	overlayString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	overlayString(&cfg.S3AccessKey, jc.S3AccessKey)
	overlayString(&cfg.S3SecretKey, jc.S3SecretKey)
	overlayString(&cfg.S3Prefix, jc.S3Prefix)
}

func overlayString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overlayDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = time.Duration(v.Duration)
	}
}
