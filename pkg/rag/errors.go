package rag

import "fmt"

// IngestionError reports a partially completed ingestion. Persisted is the
// number of chunks written before the failure.
type IngestionError struct {
	TenantID  string
	Source    string
	Persisted int
	Err       error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed for tenant '%s' source '%s' after %d chunks: %v",
		e.TenantID, e.Source, e.Persisted, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// SearchError reports a failed retrieval query.
type SearchError struct {
	TenantID string
	Err      error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search failed for tenant '%s': %v", e.TenantID, e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}
