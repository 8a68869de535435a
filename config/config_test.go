package config

import (
	"testing"
	"time"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, cfg Config)
	}{
		{
			name:    "missing secret",
			args:    []string{},
			wantErr: true,
		},
		{
			name: "defaults",
			args: []string{"-token-secret", "s3cr3t"},
			check: func(t *testing.T, cfg Config) {
				if cfg.Addr != "0.0.0.0:80" {
					t.Errorf("Expected addr 0.0.0.0:80, got %s", cfg.Addr)
				}
				if cfg.TokenTTL != 120*time.Second {
					t.Errorf("Expected ttl 120s, got %s", cfg.TokenTTL)
				}
				if cfg.DBUrl != "qsurvey.sqlite" {
					t.Errorf("Expected default db url, got %s", cfg.DBUrl)
				}
				if cfg.SinglePage {
					t.Error("Expected multi-step mode by default")
				}
			},
		},
		{
			name: "flags",
			args: []string{
				"-token-secret", "s", "-host", "127.0.0.1", "-port", "8080",
				"-token-ttl", "30", "-single-page", "-session-dir", "/tmp/sess",
			},
			check: func(t *testing.T, cfg Config) {
				if cfg.Addr != "127.0.0.1:8080" {
					t.Errorf("Expected addr 127.0.0.1:8080, got %s", cfg.Addr)
				}
				if cfg.TokenTTL != 30*time.Second {
					t.Errorf("Expected ttl 30s, got %s", cfg.TokenTTL)
				}
				if !cfg.SinglePage {
					t.Error("Expected single page mode")
				}
				if cfg.SessionDir != "/tmp/sess" {
					t.Errorf("Expected session dir /tmp/sess, got %s", cfg.SessionDir)
				}
				if cfg.Url() != "http://127.0.0.1:8080" {
					t.Errorf("Unexpected url %s", cfg.Url())
				}
			},
		},
		{
			name: "environment fallback",
			args: []string{},
			env: map[string]string{
				"QSURVEY_TOKEN_SECRET": "from-env",
				"QSURVEY_PORT":         "9000",
				"QSURVEY_DEBUG":        "true",
			},
			check: func(t *testing.T, cfg Config) {
				if cfg.TokenSecret != "from-env" {
					t.Errorf("Expected secret from env, got %q", cfg.TokenSecret)
				}
				if cfg.Url() != "http://localhost:9000" {
					t.Errorf("Unexpected url %s", cfg.Url())
				}
				if !cfg.Debug {
					t.Error("Expected debug from env")
				}
			},
		},
		{
			name:    "admin user without password",
			args:    []string{"-token-secret", "s", "-admin-user", "root"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := ParseFlags(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
