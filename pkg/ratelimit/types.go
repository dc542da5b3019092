// Package ratelimit enforces per-tenant model usage limits.
//
// Limits come from the tenant's model binding: requests per minute and
// tokens per minute. Usage is tracked in fixed one-minute windows. A
// zero limit means unlimited.
package ratelimit

import (
	"errors"
	"fmt"
	"time"

	"github.com/agenthub/agenthub/pkg/config"
)

// LimitType distinguishes what a limit counts.
type LimitType string

const (
	LimitRequests LimitType = "requests"
	LimitTokens   LimitType = "tokens"
)

// Window is the accounting period for all limits.
const Window = time.Minute

// Limits are the per-tenant caps. Zero disables the respective limit.
type Limits struct {
	RequestsPerMinute int
	TokensPerMinute   int
}

// FromBinding derives limits from a tenant's model binding.
func FromBinding(binding config.TenantModelBinding) Limits {
	return Limits{
		RequestsPerMinute: binding.RateLimitRPM,
		TokensPerMinute:   binding.RateLimitTPM,
	}
}

// Enabled reports whether any limit is set.
func (l Limits) Enabled() bool {
	return l.RequestsPerMinute > 0 || l.TokensPerMinute > 0
}

// Usage is the current consumption against one limit.
type Usage struct {
	Type      LimitType
	Current   int64
	Limit     int64
	WindowEnd time.Time
}

// Remaining returns the headroom left in the window, never negative.
func (u Usage) Remaining() int64 {
	if u.Current >= u.Limit {
		return 0
	}
	return u.Limit - u.Current
}

// LimitExceededError reports a tenant hitting a model usage cap.
type LimitExceededError struct {
	TenantID   string
	Type       LimitType
	Current    int64
	Limit      int64
	RetryAfter time.Duration
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("tenant '%s' exceeded %s limit (%d/%d per minute), retry in %s",
		e.TenantID, e.Type, e.Current, e.Limit, e.RetryAfter.Round(time.Millisecond))
}

// IsLimitExceeded reports whether err is a rate limit rejection.
func IsLimitExceeded(err error) bool {
	var target *LimitExceededError
	return errors.As(err, &target)
}
