// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/mentorsync/config.yaml",
	"/etc/mentorsync/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Jotform: JotformConfig{
			BaseURL:   "https://api.jotform.com",
			RateLimit: 5, // Jotform free tier allows bursts; stay well under
		},
		Givebutter: GivebutterConfig{
			BaseURL:   "https://api.givebutter.com/v1",
			RateLimit: 2,
			PerPage:   100,
		},
		Database: DatabaseConfig{
			URL:              "postgres://localhost:5432/swab?sslmode=disable",
			MaxConns:         8,
			MinConns:         1,
			ConnectTimeout:   10 * time.Second,
			StatementTimeout: 30 * time.Second,
		},
		Sync: SyncConfig{
			Interval:      15 * time.Minute,
			RunOnStartup:  false,
			BatchSize:     200,
			RetryAttempts: 3,
			RetryDelay:    2 * time.Second,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8787,
			Timeout: 30 * time.Second,
		},
		API: APIConfig{
			DefaultPageSize: 50,
			MaxPageSize:     500,
		},
		Security: SecurityConfig{
			AuthMode:        "jwt",
			SessionTimeout:  24 * time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
// defaults, then an optional YAML file, then environment variables.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when set through the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated env values to slices for
// known slice fields. YAML-provided slices are left untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are dropped so unrelated environment doesn't pollute
// the config.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Jotform
		"jotform_api_key":        "jotform.api_key",
		"jotform_signup_form_id": "jotform.signup_form_id",
		"jotform_setup_form_id":  "jotform.setup_form_id",
		"jotform_base_url":       "jotform.base_url",
		"jotform_rate_limit":     "jotform.rate_limit",

		// Givebutter
		"givebutter_api_key":     "givebutter.api_key",
		"givebutter_campaign_id": "givebutter.campaign_id",
		"givebutter_base_url":    "givebutter.base_url",
		"givebutter_rate_limit":  "givebutter.rate_limit",
		"givebutter_per_page":    "givebutter.per_page",

		// Database
		"database_url":       "database.url",
		"database_max_conns": "database.max_conns",
		"database_min_conns": "database.min_conns",

		// Sync
		"sync_interval":       "sync.interval",
		"sync_on_startup":     "sync.run_on_startup",
		"sync_batch_size":     "sync.batch_size",
		"sync_retry_attempts": "sync.retry_attempts",
		"sync_retry_delay":    "sync.retry_delay",

		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// API
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",

		// Security
		"auth_mode":           "security.auth_mode",
		"jwt_secret":          "security.jwt_secret",
		"session_timeout":     "security.session_timeout",
		"admin_username":      "security.admin_username",
		"admin_password":      "security.admin_password",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",
		"cors_origins":        "security.cors_origins",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
