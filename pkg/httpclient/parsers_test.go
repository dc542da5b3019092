package httpclient

import (
	"net/http"
	"testing"
	"time"
)

func TestParseOpenAIRateLimitHeaders(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected RateLimitInfo
	}{
		{
			name:     "empty_headers",
			headers:  map[string]string{},
			expected: RateLimitInfo{},
		},
		{
			name: "retry_after",
			headers: map[string]string{
				"Retry-After": "30",
			},
			expected: RateLimitInfo{RetryAfter: 30 * time.Second},
		},
		{
			name: "reset_tokens",
			headers: map[string]string{
				"x-ratelimit-reset-tokens": "1700000000",
			},
			expected: RateLimitInfo{ResetTime: 1700000000},
		},
		{
			name: "remaining_counters",
			headers: map[string]string{
				"x-ratelimit-remaining-requests": "42",
				"x-ratelimit-remaining-tokens":   "9000",
			},
			expected: RateLimitInfo{RequestsRemaining: 42, TokensRemaining: 9000},
		},
		{
			name: "invalid_retry_after_ignored",
			headers: map[string]string{
				"Retry-After": "soon",
			},
			expected: RateLimitInfo{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}

			result := ParseOpenAIRateLimitHeaders(headers)

			if result.RetryAfter != tt.expected.RetryAfter {
				t.Errorf("RetryAfter = %v, want %v", result.RetryAfter, tt.expected.RetryAfter)
			}
			if result.ResetTime != tt.expected.ResetTime {
				t.Errorf("ResetTime = %d, want %d", result.ResetTime, tt.expected.ResetTime)
			}
			if result.RequestsRemaining != tt.expected.RequestsRemaining {
				t.Errorf("RequestsRemaining = %d, want %d", result.RequestsRemaining, tt.expected.RequestsRemaining)
			}
			if result.TokensRemaining != tt.expected.TokensRemaining {
				t.Errorf("TokensRemaining = %d, want %d", result.TokensRemaining, tt.expected.TokensRemaining)
			}
		})
	}
}

func TestParseStandardRateLimitHeaders(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected RateLimitInfo
	}{
		{
			name:     "empty_headers",
			headers:  map[string]string{},
			expected: RateLimitInfo{},
		},
		{
			name: "retry_after_seconds",
			headers: map[string]string{
				"Retry-After": "15",
			},
			expected: RateLimitInfo{RetryAfter: 15 * time.Second},
		},
		{
			name: "rate_limit_reset",
			headers: map[string]string{
				"X-RateLimit-Reset": "1700000123",
			},
			expected: RateLimitInfo{ResetTime: 1700000123},
		},
		{
			name: "remaining",
			headers: map[string]string{
				"X-RateLimit-Remaining": "7",
			},
			expected: RateLimitInfo{RequestsRemaining: 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}

			result := ParseStandardRateLimitHeaders(headers)

			if result.RetryAfter != tt.expected.RetryAfter {
				t.Errorf("RetryAfter = %v, want %v", result.RetryAfter, tt.expected.RetryAfter)
			}
			if result.ResetTime != tt.expected.ResetTime {
				t.Errorf("ResetTime = %d, want %d", result.ResetTime, tt.expected.ResetTime)
			}
			if result.RequestsRemaining != tt.expected.RequestsRemaining {
				t.Errorf("RequestsRemaining = %d, want %d", result.RequestsRemaining, tt.expected.RequestsRemaining)
			}
		})
	}
}

func TestParseStandardRateLimitHeaders_HTTPDate(t *testing.T) {
	headers := http.Header{}
	headers.Set("Retry-After", time.Now().Add(time.Minute).UTC().Format(http.TimeFormat))

	result := ParseStandardRateLimitHeaders(headers)
	if result.ResetTime == 0 {
		t.Error("ResetTime = 0, want parsed HTTP-date")
	}
}
