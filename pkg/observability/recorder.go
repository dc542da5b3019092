package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	globalMetrics Metrics
	metricsMu     sync.RWMutex
)

type Metrics interface {
	RecordAgentInvoke(ctx context.Context, agent string, duration time.Duration, err error)
	RecordRouteDecision(ctx context.Context, kind string)
	RecordToolExecution(ctx context.Context, tool string, duration time.Duration, err error)
	RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error)
	RecordRAGSearch(ctx context.Context, tenant string, duration time.Duration)
	RecordRAGIngest(ctx context.Context, tenant string, chunks int)
}

type PrometheusMetrics struct {
	agentDuration    metric.Float64Histogram
	agentCallsTotal  metric.Int64Counter
	agentErrorsTotal metric.Int64Counter
	routeDecisions   metric.Int64Counter

	toolDuration    metric.Float64Histogram
	toolCallsTotal  metric.Int64Counter
	toolErrorsTotal metric.Int64Counter

	llmDuration     metric.Float64Histogram
	llmInputTokens  metric.Int64Counter
	llmOutputTokens metric.Int64Counter
	llmErrorsTotal  metric.Int64Counter

	ragSearchDuration metric.Float64Histogram
	ragChunksIngested metric.Int64Counter
}

func (m *PrometheusMetrics) RecordAgentInvoke(ctx context.Context, agent string, duration time.Duration, err error) {
	if m == nil || m.agentDuration == nil || m.agentCallsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("agent", agent),
	}

	m.agentDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.agentCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	if err != nil && m.agentErrorsTotal != nil {
		m.agentErrorsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *PrometheusMetrics) RecordRouteDecision(ctx context.Context, kind string) {
	if m == nil || m.routeDecisions == nil {
		return
	}

	m.routeDecisions.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *PrometheusMetrics) RecordToolExecution(ctx context.Context, tool string, duration time.Duration, err error) {
	if m == nil || m.toolDuration == nil || m.toolCallsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool", tool),
	}

	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.toolCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	if err != nil && m.toolErrorsTotal != nil {
		m.toolErrorsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *PrometheusMetrics) RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error) {
	if m == nil || m.llmDuration == nil || m.llmInputTokens == nil || m.llmOutputTokens == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("model", model),
	}

	m.llmDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.llmInputTokens.Add(ctx, int64(inputTokens), metric.WithAttributes(attrs...))
	m.llmOutputTokens.Add(ctx, int64(outputTokens), metric.WithAttributes(attrs...))

	if err != nil && m.llmErrorsTotal != nil {
		m.llmErrorsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *PrometheusMetrics) RecordRAGSearch(ctx context.Context, tenant string, duration time.Duration) {
	if m == nil || m.ragSearchDuration == nil {
		return
	}

	m.ragSearchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("tenant", tenant)))
}

func (m *PrometheusMetrics) RecordRAGIngest(ctx context.Context, tenant string, chunks int) {
	if m == nil || m.ragChunksIngested == nil {
		return
	}

	m.ragChunksIngested.Add(ctx, int64(chunks), metric.WithAttributes(attribute.String("tenant", tenant)))
}

func SetGlobalMetrics(m Metrics) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	globalMetrics = m
}

func GetGlobalMetrics() Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	if globalMetrics == nil {
		return NoopMetrics{}
	}
	return globalMetrics
}
