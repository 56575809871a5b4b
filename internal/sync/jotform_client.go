// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

// Package sync pulls form submissions and CRM data from the Jotform and
// Givebutter REST APIs into the raw mirror tables, and orchestrates the
// merge step that follows.
package sync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/swab-program/mentorsync/internal/config"
	"github.com/swab-program/mentorsync/internal/metrics"
	"github.com/swab-program/mentorsync/internal/models/jotform"
)

// maxErrorBodySize limits how much of a response body is read for error
// reporting.
const maxErrorBodySize = 64 * 1024 // 64KB

// jotformPageLimit is the submissions page size. Jotform caps limit at 1000.
const jotformPageLimit = 1000

// readBodyForError reads up to maxErrorBodySize of a response body for
// inclusion in error messages.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// JotformAPI is the slice of the Jotform API the sync manager uses.
// Implemented by JotformClient and by its circuit breaker wrapper.
type JotformAPI interface {
	Ping(ctx context.Context) error
	GetAllSubmissions(ctx context.Context, formID string) ([]jotform.Submission, error)
	SetAPIKey(key string)
}

// JotformClient talks to the Jotform REST API.
//
// Authentication uses the apiKey query parameter. All requests pass
// through a shared rate limiter; HTTP 429, transient 5xx and transport
// failures are retried with exponential backoff on top of that.
//
// Thread safety: safe for concurrent use.
type JotformClient struct {
	baseURL        string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration

	mu     sync.RWMutex
	apiKey string
}

// NewJotformClient creates a Jotform client from configuration. Retry
// behavior comes from the sync retry knobs; zero values fall back to 5
// attempts with a 1s base delay.
func NewJotformClient(cfg *config.JotformConfig, retry config.SyncConfig) *JotformClient {
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 5
	}
	maxRetries := retry.RetryAttempts
	if maxRetries <= 0 {
		maxRetries = 5
	}
	baseDelay := retry.RetryDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &JotformClient{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		client:         &http.Client{Timeout: 30 * time.Second},
		limiter:        rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries:     maxRetries,
		retryBaseDelay: baseDelay,
	}
}

// SetAPIKey replaces the API key. The dashboard stores keys in the
// database, so the running service must pick up changes without restart.
func (c *JotformClient) SetAPIKey(key string) {
	c.mu.Lock()
	c.apiKey = key
	c.mu.Unlock()
}

func (c *JotformClient) currentAPIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// doRequestWithRateLimit performs a GET with limiter wait and bounded
// retries. Transport errors, HTTP 429 and 5xx responses retry with
// exponential backoff (honoring Retry-After when present); other
// statuses return to the caller on the first attempt.
func (c *JotformClient) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		retryAfter := ""
		resp, err := c.client.Do(req)
		switch {
		case err != nil:
			lastErr = fmt.Errorf("HTTP request failed: %w", err)

		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter = resp.Header.Get("Retry-After")
			_ = resp.Body.Close()
			metrics.RecordExternalRequest("jotform", "rate_limited", 0)
			lastErr = fmt.Errorf("rate limit exceeded (HTTP 429)")

		case resp.StatusCode >= 500:
			errBody := readBodyForError(resp.Body)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("server error (HTTP %d): %s", resp.StatusCode, string(errBody))

		default:
			return resp, nil
		}

		if attempt == c.maxRetries {
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
}

// makeRequest performs one Jotform API call and decodes the content
// payload into result. Jotform wraps every reply in a responseCode
// envelope; anything other than 200 there is an API-level failure.
func (c *JotformClient) makeRequest(ctx context.Context, path string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.currentAPIKey())

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	start := time.Now()
	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		metrics.RecordExternalRequest("jotform", "error", time.Since(start))
		return fmt.Errorf("failed to make %s request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordExternalRequest("jotform", "error", time.Since(start))
		body := readBodyForError(resp.Body)
		return fmt.Errorf("%s request failed with status %d: %s", path, resp.StatusCode, string(body))
	}

	var envelope jotform.Response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		metrics.RecordExternalRequest("jotform", "error", time.Since(start))
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	if envelope.ResponseCode != http.StatusOK {
		metrics.RecordExternalRequest("jotform", "error", time.Since(start))
		return fmt.Errorf("%s returned response code %d: %s", path, envelope.ResponseCode, envelope.Message)
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Content, result); err != nil {
			metrics.RecordExternalRequest("jotform", "error", time.Since(start))
			return fmt.Errorf("failed to decode %s content: %w", path, err)
		}
	}
	metrics.RecordExternalRequest("jotform", "success", time.Since(start))
	return nil
}

// Ping verifies connectivity and credentials via GET /user.
func (c *JotformClient) Ping(ctx context.Context) error {
	var user jotform.User
	if err := c.makeRequest(ctx, "/user", nil, &user); err != nil {
		return fmt.Errorf("jotform ping failed: %w", err)
	}
	return nil
}

// GetSubmissions fetches one page of active submissions for a form.
func (c *JotformClient) GetSubmissions(ctx context.Context, formID string, limit, offset int) ([]jotform.Submission, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("offset", fmt.Sprintf("%d", offset))

	var subs []jotform.Submission
	path := fmt.Sprintf("/form/%s/submissions", formID)
	if err := c.makeRequest(ctx, path, params, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// GetAllSubmissions pages through every submission of a form. DELETED
// submissions are filtered out.
func (c *JotformClient) GetAllSubmissions(ctx context.Context, formID string) ([]jotform.Submission, error) {
	var all []jotform.Submission
	offset := 0
	for {
		page, err := c.GetSubmissions(ctx, formID, jotformPageLimit, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch submissions for form %s at offset %d: %w", formID, offset, err)
		}
		for _, s := range page {
			if s.Status == "DELETED" {
				continue
			}
			all = append(all, s)
		}
		if len(page) < jotformPageLimit {
			return all, nil
		}
		offset += jotformPageLimit
	}
}
