package main

import (
	"strings"
	"testing"
)

func TestLoadServerConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
		check   func(t *testing.T, cfg *serverConfig)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg *serverConfig) {
				if cfg.Port != "8080" {
					t.Errorf("Port = %q, want 8080", cfg.Port)
				}
				if cfg.StorageBackend != "local" {
					t.Errorf("StorageBackend = %q, want local", cfg.StorageBackend)
				}
				if cfg.SummaryCache != 100 || cfg.MaxUploadMB != 256 {
					t.Errorf("unexpected limits: cache %d, upload %d", cfg.SummaryCache, cfg.MaxUploadMB)
				}
				if cfg.isDev() {
					t.Error("default env should not be development")
				}
			},
		},
		{
			name: "env overrides",
			env: map[string]string{
				"PORT":            "9090",
				"ENV":             "development",
				"STORAGE_BACKEND": "S3",
				"S3_BUCKET":       "claims",
				"S3_PREFIX":       "prod",
				"MAX_UPLOAD_MB":   "16",
			},
			check: func(t *testing.T, cfg *serverConfig) {
				if cfg.Port != "9090" || !cfg.isDev() {
					t.Errorf("unexpected port/env: %q %q", cfg.Port, cfg.Env)
				}
				if cfg.StorageBackend != "s3" || cfg.S3Bucket != "claims" || cfg.S3Prefix != "prod" {
					t.Errorf("unexpected s3 config: %+v", cfg)
				}
				if cfg.MaxUploadMB != 16 {
					t.Errorf("MaxUploadMB = %d, want 16", cfg.MaxUploadMB)
				}
			},
		},
		{
			name:    "s3 without bucket",
			env:     map[string]string{"STORAGE_BACKEND": "s3"},
			wantErr: "S3_BUCKET",
		},
		{
			name:    "gcs without bucket",
			env:     map[string]string{"STORAGE_BACKEND": "gcs"},
			wantErr: "GCS_BUCKET",
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"STORAGE_BACKEND": "ftp"},
			wantErr: "unknown STORAGE_BACKEND",
		},
		{
			name:    "non-positive upload limit",
			env:     map[string]string{"MAX_UPLOAD_MB": "0"},
			wantErr: "MAX_UPLOAD_MB",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for _, k := range configKeys {
				t.Setenv(k, "")
			}
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := loadServerConfig()
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("error = %v, want mention of %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadServerConfig: %v", err)
			}
			tc.check(t, cfg)
		})
	}
}
