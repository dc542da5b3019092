package tools

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/rag"
)

type stubSearcher struct {
	gotTenant string
	gotQuery  string
	gotTopK   int
	matches   []rag.Match
	err       error
}

func (s *stubSearcher) Query(ctx context.Context, tenantID, text string, topK int) ([]rag.Match, error) {
	s.gotTenant = tenantID
	s.gotQuery = text
	s.gotTopK = topK
	return s.matches, s.err
}

func docSearchSpec(topK int) config.ToolSpec {
	spec := config.ToolSpec{ID: "t3", Name: "search_docs", Kind: config.ToolDocumentSearch}
	if topK > 0 {
		spec.Config = map[string]any{"top_k": topK}
	}
	return spec
}

func TestDocumentSearchAdapter_DelegatesScoped(t *testing.T) {
	searcher := &stubSearcher{matches: []rag.Match{
		{ID: "c1", Content: "Returns accepted within 30 days.", Distance: 0.1},
		{ID: "c2", Content: "Refunds settle in 5 days.", Distance: 0.3},
	}}

	adapter, err := NewDocumentSearchAdapter(docSearchSpec(3), searcher)
	if err != nil {
		t.Fatalf("NewDocumentSearchAdapter() error: %v", err)
	}

	result, err := adapter.Execute(context.Background(),
		map[string]any{"query": "return policy"}, AuthContext{TenantID: "acme"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if searcher.gotTenant != "acme" || searcher.gotQuery != "return policy" || searcher.gotTopK != 3 {
		t.Errorf("delegated call = (%q, %q, %d)", searcher.gotTenant, searcher.gotQuery, searcher.gotTopK)
	}
	if result.Metadata["match_count"] != 2 {
		t.Errorf("match_count = %v", result.Metadata["match_count"])
	}
	if result.Content != "Returns accepted within 30 days.\n\nRefunds settle in 5 days." {
		t.Errorf("content = %q", result.Content)
	}
}

func TestDocumentSearchAdapter_DefaultTopK(t *testing.T) {
	searcher := &stubSearcher{}
	adapter, err := NewDocumentSearchAdapter(docSearchSpec(0), searcher)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := adapter.Execute(context.Background(),
		map[string]any{"query": "anything"}, AuthContext{TenantID: "acme"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if searcher.gotTopK != 5 {
		t.Errorf("topK = %d, want the default 5", searcher.gotTopK)
	}
}

func TestDocumentSearchAdapter_MissingQuery(t *testing.T) {
	adapter, err := NewDocumentSearchAdapter(docSearchSpec(0), &stubSearcher{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = adapter.Execute(context.Background(), map[string]any{}, AuthContext{TenantID: "acme"})
	var toolErr *ToolExecutionError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error = %v, want *ToolExecutionError", err)
	}
}

func TestDocumentSearchAdapter_SearchFailure(t *testing.T) {
	adapter, err := NewDocumentSearchAdapter(docSearchSpec(0), &stubSearcher{err: fmt.Errorf("store down")})
	if err != nil {
		t.Fatal(err)
	}

	_, err = adapter.Execute(context.Background(),
		map[string]any{"query": "x"}, AuthContext{TenantID: "acme"})
	var toolErr *ToolExecutionError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error = %v, want *ToolExecutionError", err)
	}
}

func TestNewDocumentSearchAdapter_RequiresSearcher(t *testing.T) {
	if _, err := NewDocumentSearchAdapter(docSearchSpec(0), nil); err == nil {
		t.Error("nil searcher should be rejected")
	}
}
