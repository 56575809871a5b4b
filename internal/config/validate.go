// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validation errors.
var (
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required when auth_mode is jwt")
	ErrWeakJWTSecret      = errors.New("JWT_SECRET must be at least 32 characters")
	ErrMissingCredentials = errors.New("ADMIN_USERNAME and ADMIN_PASSWORD are required when auth_mode is jwt")
	ErrInvalidAuthMode    = errors.New("auth_mode must be jwt or none")
)

// Validate checks the configuration for internal consistency. API keys are
// deliberately not required here: they may live in the sync_config table
// instead of the environment, and connectivity is checked at sync time.
func (c *Config) Validate() error {
	if err := c.validateURLs(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", c.Sync.Interval)
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync batch size must be positive, got %d", c.Sync.BatchSize)
	}
	if c.Sync.RetryAttempts < 0 {
		return fmt.Errorf("sync retry attempts must not be negative, got %d", c.Sync.RetryAttempts)
	}
	if c.API.DefaultPageSize <= 0 || c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("invalid API page sizes: default %d, max %d",
			c.API.DefaultPageSize, c.API.MaxPageSize)
	}
	if c.Jotform.RateLimit <= 0 || c.Givebutter.RateLimit <= 0 {
		return errors.New("API rate limits must be positive")
	}
	if c.Givebutter.PerPage < 1 || c.Givebutter.PerPage > 100 {
		return fmt.Errorf("givebutter per_page must be 1-100, got %d", c.Givebutter.PerPage)
	}

	return nil
}

func (c *Config) validateURLs() error {
	for name, raw := range map[string]string{
		"jotform.base_url":    c.Jotform.BaseURL,
		"givebutter.base_url": c.Givebutter.BaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s is not a valid URL: %q", name, raw)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s must use http or https, got %q", name, u.Scheme)
		}
	}
	if !strings.HasPrefix(c.Database.URL, "postgres://") && !strings.HasPrefix(c.Database.URL, "postgresql://") {
		return fmt.Errorf("database.url must be a postgres DSN, got %q", c.Database.URL)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case "jwt":
		if c.Security.JWTSecret == "" {
			return ErrMissingJWTSecret
		}
		if len(c.Security.JWTSecret) < 32 {
			return ErrWeakJWTSecret
		}
		if c.Security.AdminUsername == "" || c.Security.AdminPassword == "" {
			return ErrMissingCredentials
		}
	case "none":
		// Development mode; main logs a warning.
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAuthMode, c.Security.AuthMode)
	}
	return nil
}
