package ratelimit

import (
	"context"

	"github.com/agenthub/agenthub/pkg/llms"
)

// LimitedProvider wraps an llms.Provider with tenant usage accounting.
// Requests are admitted before the call; consumed tokens are charged
// after it.
type LimitedProvider struct {
	inner    llms.Provider
	limiter  *Limiter
	tenantID string
	limits   Limits
}

// WrapProvider limits inner with the tenant's caps. When no limit is
// set the provider is returned unwrapped.
func WrapProvider(inner llms.Provider, limiter *Limiter, tenantID string, limits Limits) llms.Provider {
	if limiter == nil || !limits.Enabled() {
		return inner
	}
	return &LimitedProvider{
		inner:    inner,
		limiter:  limiter,
		tenantID: tenantID,
		limits:   limits,
	}
}

func (p *LimitedProvider) Generate(ctx context.Context, messages []llms.Message) (*llms.Response, error) {
	if err := p.limiter.Reserve(ctx, p.tenantID, p.limits); err != nil {
		return nil, err
	}

	resp, err := p.inner.Generate(ctx, messages)
	if err != nil {
		return nil, err
	}

	if err := p.limiter.RecordTokens(ctx, p.tenantID, p.limits, int64(resp.InputTokens+resp.OutputTokens)); err != nil {
		return nil, err
	}
	return resp, nil
}

func (p *LimitedProvider) ModelName() string { return p.inner.ModelName() }

func (p *LimitedProvider) Close() error { return p.inner.Close() }

var _ llms.Provider = (*LimitedProvider)(nil)
