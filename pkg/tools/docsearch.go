package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/rag"
)

// DocumentSearcher is the retrieval operation DOCUMENT_SEARCH tools
// delegate to; *rag.Engine satisfies it.
type DocumentSearcher interface {
	Query(ctx context.Context, tenantID, text string, topK int) ([]rag.Match, error)
}

// DocumentSearchToolConfig is the kind-specific configuration of
// DOCUMENT_SEARCH tools.
type DocumentSearchToolConfig struct {
	TopK int `mapstructure:"top_k"`
}

// DocumentSearchAdapter answers from the tenant's ingested knowledge.
type DocumentSearchAdapter struct {
	spec     config.ToolSpec
	cfg      DocumentSearchToolConfig
	searcher DocumentSearcher
}

var _ Adapter = (*DocumentSearchAdapter)(nil)

func NewDocumentSearchAdapter(spec config.ToolSpec, searcher DocumentSearcher) (*DocumentSearchAdapter, error) {
	if spec.Kind != config.ToolDocumentSearch {
		return nil, fmt.Errorf("tool '%s': kind %s is not DOCUMENT_SEARCH", spec.Name, spec.Kind)
	}
	if searcher == nil {
		return nil, fmt.Errorf("tool '%s': a retrieval engine is required", spec.Name)
	}

	var cfg DocumentSearchToolConfig
	if err := mapstructure.Decode(spec.Config, &cfg); err != nil {
		return nil, fmt.Errorf("tool '%s': invalid config: %w", spec.Name, err)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}

	return &DocumentSearchAdapter{spec: spec, cfg: cfg, searcher: searcher}, nil
}

func (a *DocumentSearchAdapter) Name() string          { return a.spec.Name }
func (a *DocumentSearchAdapter) Kind() config.ToolKind { return a.spec.Kind }

func (a *DocumentSearchAdapter) Execute(ctx context.Context, args map[string]any, auth AuthContext) (*Result, error) {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, &ToolExecutionError{Tool: a.spec.Name, Err: fmt.Errorf("query argument is required")}
	}

	matches, err := a.searcher.Query(ctx, auth.TenantID, query, a.cfg.TopK)
	if err != nil {
		return nil, &ToolExecutionError{Tool: a.spec.Name, Err: err}
	}

	sections := make([]string, 0, len(matches))
	for _, m := range matches {
		sections = append(sections, m.Content)
	}

	return &Result{
		Content:  strings.Join(sections, "\n\n"),
		Data:     matches,
		Metadata: map[string]any{"match_count": len(matches), "top_k": a.cfg.TopK},
	}, nil
}
