package observability

import (
	"context"
	"time"
)

// NoopMetrics is a metrics implementation that does nothing.
// Use this when observability is disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordAgentInvoke(_ context.Context, _ string, _ time.Duration, _ error) {}
func (NoopMetrics) RecordRouteDecision(_ context.Context, _ string)                         {}
func (NoopMetrics) RecordToolExecution(_ context.Context, _ string, _ time.Duration, _ error) {
}
func (NoopMetrics) RecordLLMCall(_ context.Context, _ string, _ time.Duration, _, _ int, _ error) {}
func (NoopMetrics) RecordRAGSearch(_ context.Context, _ string, _ time.Duration)                  {}
func (NoopMetrics) RecordRAGIngest(_ context.Context, _ string, _ int)                            {}

var (
	_ Metrics = (*PrometheusMetrics)(nil)
	_ Metrics = NoopMetrics{}
)
