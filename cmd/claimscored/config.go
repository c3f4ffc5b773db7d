package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// serverConfig is the service configuration, read from the environment.
type serverConfig struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"ENV"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	APIKey         string `mapstructure:"API_KEY"`
	ConfigFile     string `mapstructure:"CLAIMSCORE_CONFIG"` // engine YAML config
	StorageBackend string `mapstructure:"STORAGE_BACKEND"`   // local, s3, gcs
	LocalStorage   string `mapstructure:"LOCAL_STORAGE_PATH"`
	GCSBucket      string `mapstructure:"GCS_BUCKET"`
	S3Bucket       string `mapstructure:"S3_BUCKET"`
	S3Region       string `mapstructure:"S3_REGION"`
	S3Endpoint     string `mapstructure:"S3_ENDPOINT"`
	S3Prefix       string `mapstructure:"S3_PREFIX"`
	S3AccessKey    string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey    string `mapstructure:"S3_SECRET_KEY"`
	SummaryCache   int    `mapstructure:"SUMMARY_CACHE_SIZE"`
	MaxUploadMB    int64  `mapstructure:"MAX_UPLOAD_MB"`
}

var configKeys = []string{
	"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "API_KEY", "CLAIMSCORE_CONFIG",
	"STORAGE_BACKEND", "LOCAL_STORAGE_PATH", "GCS_BUCKET",
	"S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "S3_PREFIX", "S3_ACCESS_KEY", "S3_SECRET_KEY",
	"SUMMARY_CACHE_SIZE", "MAX_UPLOAD_MB",
}

func loadServerConfig() (*serverConfig, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "postgres://localhost:5432/claimscore?sslmode=disable")
	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("LOCAL_STORAGE_PATH", "/tmp/claimscore-data")
	v.SetDefault("SUMMARY_CACHE_SIZE", 100)
	v.SetDefault("MAX_UPLOAD_MB", 256)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range configKeys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &serverConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.StorageBackend = strings.ToLower(cfg.StorageBackend)

	switch cfg.StorageBackend {
	case "local":
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required for the s3 storage backend")
		}
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("GCS_BUCKET is required for the gcs storage backend")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q: want local, s3, or gcs", cfg.StorageBackend)
	}
	if cfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", cfg.MaxUploadMB)
	}
	return cfg, nil
}

func (c *serverConfig) isDev() bool {
	return c.Env == "development"
}
