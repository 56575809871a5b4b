// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package sync

import (
	"bytes"
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
	"github.com/swab-program/mentorsync/internal/models/givebutter"
)

// GivebutterAPI is the slice of the Givebutter API the sync manager and
// push-back path use. Implemented by GivebutterClient and its circuit
// breaker wrapper.
type GivebutterAPI interface {
	GetCampaign(ctx context.Context, campaignID string) (*givebutter.Campaign, error)
	GetAllMembers(ctx context.Context, campaignID string) ([]givebutter.Member, error)
	GetAllContacts(ctx context.Context) ([]givebutter.Contact, error)
	GetAllTransactions(ctx context.Context, campaignID string) ([]givebutter.Transaction, error)
	CreateContact(ctx context.Context, input *givebutter.ContactInput) (*givebutter.Contact, error)
	UpdateContact(ctx context.Context, contactID string, input *givebutter.ContactInput) (*givebutter.Contact, error)
	SetAPIKey(key string)
}

// GivebutterClient talks to the Givebutter v1 REST API.
//
// Authentication is a Bearer token. Givebutter enforces a low rate limit,
// so the shared limiter defaults to 2 requests per second; HTTP 429,
// transient 5xx and transport failures are retried with backoff on top.
//
// Thread safety: safe for concurrent use.
type GivebutterClient struct {
	baseURL        string
	perPage        int
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration

	mu     sync.RWMutex
	apiKey string
}

// NewGivebutterClient creates a Givebutter client from configuration.
// Retry behavior comes from the sync retry knobs; zero values fall back
// to 5 attempts with a 1s base delay.
func NewGivebutterClient(cfg *config.GivebutterConfig, retry config.SyncConfig) *GivebutterClient {
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 2
	}
	perPage := cfg.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}
	maxRetries := retry.RetryAttempts
	if maxRetries <= 0 {
		maxRetries = 5
	}
	baseDelay := retry.RetryDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &GivebutterClient{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		perPage:        perPage,
		client:         &http.Client{Timeout: 30 * time.Second},
		limiter:        rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries:     maxRetries,
		retryBaseDelay: baseDelay,
	}
}

// SetAPIKey replaces the Bearer token, picking up dashboard key changes
// without a restart.
func (c *GivebutterClient) SetAPIKey(key string) {
	c.mu.Lock()
	c.apiKey = key
	c.mu.Unlock()
}

func (c *GivebutterClient) currentAPIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// doRequestWithRateLimit performs one request with limiter wait and
// bounded retries. Transport errors, HTTP 429 and 5xx responses retry
// with exponential backoff (honoring Retry-After); other statuses return
// to the caller on the first attempt. The body is re-created per attempt
// from the byte slice, so mutation retries stay safe.
func (c *GivebutterClient) doRequestWithRateLimit(ctx context.Context, method, reqURL string, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var reader io.Reader = http.NoBody
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.currentAPIKey())
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		retryAfter := ""
		resp, err := c.client.Do(req)
		switch {
		case err != nil:
			lastErr = fmt.Errorf("HTTP request failed: %w", err)

		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter = resp.Header.Get("Retry-After")
			_ = resp.Body.Close()
			metrics.RecordExternalRequest("givebutter", "rate_limited", 0)
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

// makeRequest performs one API call and decodes the response into result.
func (c *GivebutterClient) makeRequest(ctx context.Context, method, path string, params url.Values, body, result interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s body: %w", path, err)
		}
	}

	start := time.Now()
	resp, err := c.doRequestWithRateLimit(ctx, method, reqURL, payload)
	if err != nil {
		metrics.RecordExternalRequest("givebutter", "error", time.Since(start))
		return fmt.Errorf("failed to make %s request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordExternalRequest("givebutter", "error", time.Since(start))
		errBody := readBodyForError(resp.Body)
		return fmt.Errorf("%s request failed with status %d: %s", path, resp.StatusCode, string(errBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			metrics.RecordExternalRequest("givebutter", "error", time.Since(start))
			return fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}
	metrics.RecordExternalRequest("givebutter", "success", time.Since(start))
	return nil
}

// GetCampaign fetches one campaign by id or code. Doubles as the
// connectivity check.
func (c *GivebutterClient) GetCampaign(ctx context.Context, campaignID string) (*givebutter.Campaign, error) {
	var envelope givebutter.Envelope[givebutter.Campaign]
	path := fmt.Sprintf("/campaigns/%s", campaignID)
	if err := c.makeRequest(ctx, http.MethodGet, path, nil, nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// GetAllMembers pages through every member of a campaign.
func (c *GivebutterClient) GetAllMembers(ctx context.Context, campaignID string) ([]givebutter.Member, error) {
	var all []givebutter.Member
	path := fmt.Sprintf("/campaigns/%s/members", campaignID)
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("page", fmt.Sprintf("%d", page))
		params.Set("per_page", fmt.Sprintf("%d", c.perPage))

		var resp givebutter.Page[givebutter.Member]
		if err := c.makeRequest(ctx, http.MethodGet, path, params, nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to fetch members page %d: %w", page, err)
		}
		all = append(all, resp.Data...)
		if resp.Meta.LastPage == 0 || page >= resp.Meta.LastPage {
			return all, nil
		}
	}
}

// GetAllContacts pages through the full contact list. The raw JSON of
// each contact is preserved alongside the decoded struct.
func (c *GivebutterClient) GetAllContacts(ctx context.Context) ([]givebutter.Contact, error) {
	var all []givebutter.Contact
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("page", fmt.Sprintf("%d", page))
		params.Set("per_page", fmt.Sprintf("%d", c.perPage))

		var resp givebutter.Page[json.RawMessage]
		if err := c.makeRequest(ctx, http.MethodGet, "/contacts", params, nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to fetch contacts page %d: %w", page, err)
		}
		for _, raw := range resp.Data {
			var contact givebutter.Contact
			if err := json.Unmarshal(raw, &contact); err != nil {
				return nil, fmt.Errorf("failed to decode contact on page %d: %w", page, err)
			}
			contact.Raw = raw
			all = append(all, contact)
		}
		if resp.Meta.LastPage == 0 || page >= resp.Meta.LastPage {
			return all, nil
		}
	}
}

// GetAllTransactions pages through all donation transactions of a
// campaign. The raised totals on the member listing lag behind new
// donations, so the member sync sums succeeded transactions as a
// fallback.
func (c *GivebutterClient) GetAllTransactions(ctx context.Context, campaignID string) ([]givebutter.Transaction, error) {
	var all []givebutter.Transaction
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("campaign_id", campaignID)
		params.Set("page", fmt.Sprintf("%d", page))
		params.Set("per_page", fmt.Sprintf("%d", c.perPage))

		var resp givebutter.Page[givebutter.Transaction]
		if err := c.makeRequest(ctx, http.MethodGet, "/transactions", params, nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to fetch transactions page %d: %w", page, err)
		}
		all = append(all, resp.Data...)
		if resp.Meta.LastPage == 0 || page >= resp.Meta.LastPage {
			return all, nil
		}
	}
}

// CreateContact creates a CRM contact.
func (c *GivebutterClient) CreateContact(ctx context.Context, input *givebutter.ContactInput) (*givebutter.Contact, error) {
	var envelope givebutter.Envelope[givebutter.Contact]
	if err := c.makeRequest(ctx, http.MethodPost, "/contacts", nil, input, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// UpdateContact patches an existing CRM contact.
func (c *GivebutterClient) UpdateContact(ctx context.Context, contactID string, input *givebutter.ContactInput) (*givebutter.Contact, error) {
	var envelope givebutter.Envelope[givebutter.Contact]
	path := fmt.Sprintf("/contacts/%s", contactID)
	if err := c.makeRequest(ctx, http.MethodPatch, path, nil, input, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}
