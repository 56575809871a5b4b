// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validTestConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.AuthMode = "none"
	return cfg
}

func TestDefaultConfigIsValidWithAuthDisabled(t *testing.T) {
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate with auth_mode none: %v", err)
	}
}

func TestValidateSecurity(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name: "jwt mode without secret",
			mutate: func(c *Config) {
				c.Security.AuthMode = "jwt"
			},
			wantErr: ErrMissingJWTSecret,
		},
		{
			name: "jwt mode with short secret",
			mutate: func(c *Config) {
				c.Security.AuthMode = "jwt"
				c.Security.JWTSecret = "too-short"
			},
			wantErr: ErrWeakJWTSecret,
		},
		{
			name: "jwt mode without credentials",
			mutate: func(c *Config) {
				c.Security.AuthMode = "jwt"
				c.Security.JWTSecret = strings.Repeat("s", 32)
			},
			wantErr: ErrMissingCredentials,
		},
		{
			name: "unknown auth mode",
			mutate: func(c *Config) {
				c.Security.AuthMode = "basic-ish"
			},
			wantErr: ErrInvalidAuthMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"negative interval", func(c *Config) { c.Sync.Interval = -time.Minute }},
		{"zero batch size", func(c *Config) { c.Sync.BatchSize = 0 }},
		{"bad jotform url", func(c *Config) { c.Jotform.BaseURL = "not a url" }},
		{"ftp scheme", func(c *Config) { c.Givebutter.BaseURL = "ftp://api.givebutter.com" }},
		{"mysql dsn", func(c *Config) { c.Database.URL = "mysql://localhost/swab" }},
		{"per_page over limit", func(c *Config) { c.Givebutter.PerPage = 250 }},
		{"max page below default", func(c *Config) { c.API.MaxPageSize = 10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env      string
		expected string
	}{
		{"JOTFORM_API_KEY", "jotform.api_key"},
		{"DISABLE_RATE_LIMIT", "security.rate_limit_disabled"},
		{"GIVEBUTTER_CAMPAIGN_ID", "givebutter.campaign_id"},
		{"DATABASE_URL", "database.url"},
		{"SYNC_INTERVAL", "sync.interval"},
		{"HTTP_PORT", "server.port"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},     // unmapped vars are dropped
		{"HOSTNAME", ""}, // unmapped vars are dropped
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.expected)
			}
		})
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("AUTH_MODE", "none")
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("SYNC_INTERVAL", "5m")
	t.Setenv("CORS_ORIGINS", "https://swab.example.org, https://admin.example.org")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected port 9100, got %d", cfg.Server.Port)
	}
	if cfg.Sync.Interval != 5*time.Minute {
		t.Errorf("expected 5m interval, got %s", cfg.Sync.Interval)
	}
	if len(cfg.Security.CORSOrigins) != 2 {
		t.Fatalf("expected 2 CORS origins, got %v", cfg.Security.CORSOrigins)
	}
	if cfg.Security.CORSOrigins[1] != "https://admin.example.org" {
		t.Errorf("unexpected origin %q", cfg.Security.CORSOrigins[1])
	}
}
