package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/llms"
)

func testBinding(rpm, tpm int) config.TenantModelBinding {
	return config.TenantModelBinding{
		TenantID:     "acme",
		ModelID:      "m1",
		RateLimitRPM: rpm,
		RateLimitTPM: tpm,
	}
}

func newTestLimiter(t *testing.T) (*Limiter, *time.Time) {
	t.Helper()
	limiter, err := New(NewMemoryStore())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	return limiter, &now
}

func TestLimiter_RequestLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()
	limits := Limits{RequestsPerMinute: 3}

	for i := 0; i < 3; i++ {
		if err := limiter.Reserve(ctx, "acme", limits); err != nil {
			t.Fatalf("Reserve() #%d error = %v", i+1, err)
		}
	}

	err := limiter.Reserve(ctx, "acme", limits)
	if !IsLimitExceeded(err) {
		t.Fatalf("Reserve() #4 error = %v, want limit exceeded", err)
	}

	var exceeded *LimitExceededError
	errors.As(err, &exceeded)
	if exceeded.Type != LimitRequests {
		t.Errorf("Type = %s, want %s", exceeded.Type, LimitRequests)
	}
	if exceeded.RetryAfter <= 0 || exceeded.RetryAfter > Window {
		t.Errorf("RetryAfter = %s, want within one window", exceeded.RetryAfter)
	}
}

func TestLimiter_WindowExpiryResets(t *testing.T) {
	limiter, now := newTestLimiter(t)
	ctx := context.Background()
	limits := Limits{RequestsPerMinute: 1}

	if err := limiter.Reserve(ctx, "acme", limits); err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if err := limiter.Reserve(ctx, "acme", limits); !IsLimitExceeded(err) {
		t.Fatalf("Reserve() in same window error = %v, want limit exceeded", err)
	}

	*now = now.Add(Window + time.Second)

	if err := limiter.Reserve(ctx, "acme", limits); err != nil {
		t.Fatalf("Reserve() after window error = %v", err)
	}
}

func TestLimiter_TokenLimitBlocksAfterRecording(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()
	limits := Limits{TokensPerMinute: 1000}

	if err := limiter.Reserve(ctx, "acme", limits); err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if err := limiter.RecordTokens(ctx, "acme", limits, 1200); err != nil {
		t.Fatalf("RecordTokens() error = %v", err)
	}

	err := limiter.Reserve(ctx, "acme", limits)
	var exceeded *LimitExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("Reserve() error = %v, want limit exceeded", err)
	}
	if exceeded.Type != LimitTokens {
		t.Errorf("Type = %s, want %s", exceeded.Type, LimitTokens)
	}
	if exceeded.Current != 1200 {
		t.Errorf("Current = %d, want 1200", exceeded.Current)
	}
}

func TestLimiter_TenantsAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()
	limits := Limits{RequestsPerMinute: 1}

	if err := limiter.Reserve(ctx, "acme", limits); err != nil {
		t.Fatalf("Reserve(acme) error = %v", err)
	}
	if err := limiter.Reserve(ctx, "globex", limits); err != nil {
		t.Fatalf("Reserve(globex) error = %v", err)
	}
	if err := limiter.Reserve(ctx, "acme", limits); !IsLimitExceeded(err) {
		t.Fatalf("Reserve(acme) #2 error = %v, want limit exceeded", err)
	}
}

func TestLimiter_Reset(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()
	limits := Limits{RequestsPerMinute: 1}

	if err := limiter.Reserve(ctx, "acme", limits); err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if err := limiter.Reset(ctx, "acme"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if err := limiter.Reserve(ctx, "acme", limits); err != nil {
		t.Fatalf("Reserve() after reset error = %v", err)
	}
}

func TestLimiter_GetUsage(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()
	limits := Limits{RequestsPerMinute: 10, TokensPerMinute: 1000}

	for i := 0; i < 4; i++ {
		if err := limiter.Reserve(ctx, "acme", limits); err != nil {
			t.Fatalf("Reserve() error = %v", err)
		}
	}
	if err := limiter.RecordTokens(ctx, "acme", limits, 250); err != nil {
		t.Fatalf("RecordTokens() error = %v", err)
	}

	usages, err := limiter.GetUsage(ctx, "acme", limits)
	if err != nil {
		t.Fatalf("GetUsage() error = %v", err)
	}
	if len(usages) != 2 {
		t.Fatalf("len(usages) = %d, want 2", len(usages))
	}
	if usages[0].Type != LimitRequests || usages[0].Current != 4 {
		t.Errorf("requests usage = %+v, want current 4", usages[0])
	}
	if usages[1].Type != LimitTokens || usages[1].Current != 250 {
		t.Errorf("tokens usage = %+v, want current 250", usages[1])
	}
	if usages[0].Remaining() != 6 {
		t.Errorf("Remaining() = %d, want 6", usages[0].Remaining())
	}
}

type countingProvider struct {
	calls int
	resp  llms.Response
}

func (p *countingProvider) Generate(_ context.Context, _ []llms.Message) (*llms.Response, error) {
	p.calls++
	resp := p.resp
	return &resp, nil
}

func (p *countingProvider) ModelName() string { return "test-model" }
func (p *countingProvider) Close() error      { return nil }

func TestWrapProvider_NoLimitsReturnsInner(t *testing.T) {
	inner := &countingProvider{}
	limiter, _ := newTestLimiter(t)

	wrapped := WrapProvider(inner, limiter, "acme", Limits{})
	if wrapped != llms.Provider(inner) {
		t.Error("WrapProvider() with zero limits should return inner unchanged")
	}
}

func TestWrapProvider_EnforcesLimits(t *testing.T) {
	inner := &countingProvider{resp: llms.Response{Content: "hi", InputTokens: 600, OutputTokens: 100}}
	limiter, _ := newTestLimiter(t)
	limits := Limits{RequestsPerMinute: 5, TokensPerMinute: 1000}

	wrapped := WrapProvider(inner, limiter, "acme", limits)
	ctx := context.Background()

	if _, err := wrapped.Generate(ctx, nil); err != nil {
		t.Fatalf("Generate() #1 error = %v", err)
	}
	if _, err := wrapped.Generate(ctx, nil); err != nil {
		t.Fatalf("Generate() #2 error = %v", err)
	}

	// 1400 tokens recorded, above the 1000 cap.
	_, err := wrapped.Generate(ctx, nil)
	if !IsLimitExceeded(err) {
		t.Fatalf("Generate() #3 error = %v, want limit exceeded", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner.calls = %d, want 2 (third call rejected before reaching model)", inner.calls)
	}
}

func TestFromBinding(t *testing.T) {
	limits := FromBinding(testBinding(30, 90000))
	if limits.RequestsPerMinute != 30 || limits.TokensPerMinute != 90000 {
		t.Errorf("FromBinding() = %+v", limits)
	}
	if !limits.Enabled() {
		t.Error("Enabled() = false, want true")
	}
	if (Limits{}).Enabled() {
		t.Error("zero limits Enabled() = true, want false")
	}
}
