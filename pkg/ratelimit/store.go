package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store tracks usage per tenant and limit type. Implementations must be
// safe for concurrent use.
type Store interface {
	// Usage returns the current amount and window end. Expired windows
	// read as zero with a fresh window.
	Usage(ctx context.Context, tenantID string, limitType LimitType, now time.Time) (int64, time.Time, error)

	// Increment adds amount to the current window, starting a new one if
	// the previous expired. Returns the new amount and window end.
	Increment(ctx context.Context, tenantID string, limitType LimitType, amount int64, now time.Time) (int64, time.Time, error)

	// Reset clears all usage for a tenant.
	Reset(ctx context.Context, tenantID string) error

	Close() error
}

type usageKey struct {
	TenantID  string
	LimitType LimitType
}

type usageRecord struct {
	Amount    int64
	WindowEnd time.Time
}

// MemoryStore is an in-memory Store for single-instance deployments.
type MemoryStore struct {
	mu   sync.Mutex
	data map[usageKey]*usageRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[usageKey]*usageRecord)}
}

func (s *MemoryStore) Usage(_ context.Context, tenantID string, limitType LimitType, now time.Time) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.data[usageKey{TenantID: tenantID, LimitType: limitType}]
	if !ok || !record.WindowEnd.After(now) {
		return 0, now.Add(Window), nil
	}
	return record.Amount, record.WindowEnd, nil
}

func (s *MemoryStore) Increment(_ context.Context, tenantID string, limitType LimitType, amount int64, now time.Time) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey{TenantID: tenantID, LimitType: limitType}
	record, ok := s.data[key]
	if !ok || !record.WindowEnd.After(now) {
		record = &usageRecord{WindowEnd: now.Add(Window)}
		s.data[key] = record
	}
	record.Amount += amount
	return record.Amount, record.WindowEnd, nil
}

func (s *MemoryStore) Reset(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.data {
		if key.TenantID == tenantID {
			delete(s.data, key)
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
