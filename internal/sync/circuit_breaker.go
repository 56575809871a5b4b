// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/swab-program/mentorsync/internal/logging"
	"github.com/swab-program/mentorsync/internal/metrics"
	"github.com/swab-program/mentorsync/internal/models/givebutter"
	"github.com/swab-program/mentorsync/internal/models/jotform"
)

// Circuit breaker state mapping for metrics and logs.
func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// newBreaker builds a circuit breaker with the shared settings used for
// both external APIs:
//   - max 3 concurrent requests in half-open state
//   - 1 minute measurement window in closed state
//   - 2 minute open period before recovery attempts
//   - opens at >= 60% failure rate with at least 10 requests
//
// The breaker uses real time for its interval and timeout bookkeeping.
// Unit tests exercise the wrapped clients directly instead of mocking it.
func newBreaker(name string) *gobreaker.CircuitBreaker[interface{}] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Str("breaker", name).Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).
				Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})
}

// executeBreaker runs fn through a breaker and keeps the per-breaker
// request metrics current.
func executeBreaker(cb *gobreaker.CircuitBreaker[interface{}], name string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(name, "rejected").Inc()
			logging.Warn().Err(err).Str("breaker", name).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(name, "failure").Inc()
			counts := cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
	return result, nil
}

// castResult type-casts a breaker result with error checking.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// JotformBreaker wraps JotformClient with a circuit breaker so a Jotform
// outage cannot stall every sync tick behind timeouts.
type JotformBreaker struct {
	client *JotformClient
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewJotformBreaker wraps a Jotform client.
func NewJotformBreaker(client *JotformClient) *JotformBreaker {
	name := "jotform-api"
	return &JotformBreaker{client: client, cb: newBreaker(name), name: name}
}

func (b *JotformBreaker) Ping(ctx context.Context) error {
	_, err := executeBreaker(b.cb, b.name, func() (interface{}, error) {
		return nil, b.client.Ping(ctx)
	})
	return err
}

func (b *JotformBreaker) GetAllSubmissions(ctx context.Context, formID string) ([]jotform.Submission, error) {
	result, err := executeBreaker(b.cb, b.name, func() (interface{}, error) {
		return b.client.GetAllSubmissions(ctx, formID)
	})
	return castResult[[]jotform.Submission](result, err)
}

func (b *JotformBreaker) SetAPIKey(key string) {
	b.client.SetAPIKey(key)
}

// GivebutterBreaker wraps GivebutterClient with a circuit breaker.
type GivebutterBreaker struct {
	client *GivebutterClient
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewGivebutterBreaker wraps a Givebutter client.
func NewGivebutterBreaker(client *GivebutterClient) *GivebutterBreaker {
	name := "givebutter-api"
	return &GivebutterBreaker{client: client, cb: newBreaker(name), name: name}
}

func (b *GivebutterBreaker) GetCampaign(ctx context.Context, campaignID string) (*givebutter.Campaign, error) {
	result, err := executeBreaker(b.cb, b.name, func() (interface{}, error) {
		return b.client.GetCampaign(ctx, campaignID)
	})
	return castResult[*givebutter.Campaign](result, err)
}

func (b *GivebutterBreaker) GetAllMembers(ctx context.Context, campaignID string) ([]givebutter.Member, error) {
	result, err := executeBreaker(b.cb, b.name, func() (interface{}, error) {
		return b.client.GetAllMembers(ctx, campaignID)
	})
	return castResult[[]givebutter.Member](result, err)
}

func (b *GivebutterBreaker) GetAllContacts(ctx context.Context) ([]givebutter.Contact, error) {
	result, err := executeBreaker(b.cb, b.name, func() (interface{}, error) {
		return b.client.GetAllContacts(ctx)
	})
	return castResult[[]givebutter.Contact](result, err)
}

func (b *GivebutterBreaker) GetAllTransactions(ctx context.Context, campaignID string) ([]givebutter.Transaction, error) {
	result, err := executeBreaker(b.cb, b.name, func() (interface{}, error) {
		return b.client.GetAllTransactions(ctx, campaignID)
	})
	return castResult[[]givebutter.Transaction](result, err)
}

func (b *GivebutterBreaker) CreateContact(ctx context.Context, input *givebutter.ContactInput) (*givebutter.Contact, error) {
	result, err := executeBreaker(b.cb, b.name, func() (interface{}, error) {
		return b.client.CreateContact(ctx, input)
	})
	return castResult[*givebutter.Contact](result, err)
}

func (b *GivebutterBreaker) UpdateContact(ctx context.Context, contactID string, input *givebutter.ContactInput) (*givebutter.Contact, error) {
	result, err := executeBreaker(b.cb, b.name, func() (interface{}, error) {
		return b.client.UpdateContact(ctx, contactID, input)
	})
	return castResult[*givebutter.Contact](result, err)
}

func (b *GivebutterBreaker) SetAPIKey(key string) {
	b.client.SetAPIKey(key)
}
