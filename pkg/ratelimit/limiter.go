package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limiter enforces Limits against a Store. One limiter serves all
// tenants; each call carries the tenant's own limits.
type Limiter struct {
	store Store
	now   func() time.Time
}

func New(store Store) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &Limiter{store: store, now: time.Now}, nil
}

// Reserve admits one request for the tenant, counting it against the
// request limit and rejecting when either cap is already reached. Token
// usage is only known after the model call, so it is checked here and
// recorded later via RecordTokens.
func (l *Limiter) Reserve(ctx context.Context, tenantID string, limits Limits) error {
	if !limits.Enabled() {
		return nil
	}
	now := l.now()

	if limits.TokensPerMinute > 0 {
		current, windowEnd, err := l.store.Usage(ctx, tenantID, LimitTokens, now)
		if err != nil {
			return fmt.Errorf("failed to read token usage: %w", err)
		}
		if current >= int64(limits.TokensPerMinute) {
			return &LimitExceededError{
				TenantID:   tenantID,
				Type:       LimitTokens,
				Current:    current,
				Limit:      int64(limits.TokensPerMinute),
				RetryAfter: windowEnd.Sub(now),
			}
		}
	}

	if limits.RequestsPerMinute > 0 {
		current, windowEnd, err := l.store.Increment(ctx, tenantID, LimitRequests, 1, now)
		if err != nil {
			return fmt.Errorf("failed to record request: %w", err)
		}
		if current > int64(limits.RequestsPerMinute) {
			return &LimitExceededError{
				TenantID:   tenantID,
				Type:       LimitRequests,
				Current:    current,
				Limit:      int64(limits.RequestsPerMinute),
				RetryAfter: windowEnd.Sub(now),
			}
		}
	}

	return nil
}

// RecordTokens charges consumed tokens to the tenant's window.
func (l *Limiter) RecordTokens(ctx context.Context, tenantID string, limits Limits, tokens int64) error {
	if limits.TokensPerMinute <= 0 || tokens <= 0 {
		return nil
	}
	if _, _, err := l.store.Increment(ctx, tenantID, LimitTokens, tokens, l.now()); err != nil {
		return fmt.Errorf("failed to record token usage: %w", err)
	}
	return nil
}

// GetUsage returns the tenant's consumption against each enabled limit.
func (l *Limiter) GetUsage(ctx context.Context, tenantID string, limits Limits) ([]Usage, error) {
	now := l.now()
	var usages []Usage

	if limits.RequestsPerMinute > 0 {
		current, windowEnd, err := l.store.Usage(ctx, tenantID, LimitRequests, now)
		if err != nil {
			return nil, err
		}
		usages = append(usages, Usage{
			Type: LimitRequests, Current: current,
			Limit: int64(limits.RequestsPerMinute), WindowEnd: windowEnd,
		})
	}
	if limits.TokensPerMinute > 0 {
		current, windowEnd, err := l.store.Usage(ctx, tenantID, LimitTokens, now)
		if err != nil {
			return nil, err
		}
		usages = append(usages, Usage{
			Type: LimitTokens, Current: current,
			Limit: int64(limits.TokensPerMinute), WindowEnd: windowEnd,
		})
	}
	return usages, nil
}

// Reset clears the tenant's usage, for tests and manual quota resets.
func (l *Limiter) Reset(ctx context.Context, tenantID string) error {
	return l.store.Reset(ctx, tenantID)
}
