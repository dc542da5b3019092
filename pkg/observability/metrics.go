package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func InitMetrics(ctx context.Context, cfg MetricsConfig) (*PrometheusMetrics, error) {
	if !cfg.Enabled {
		return &PrometheusMetrics{}, nil
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	meter := meterProvider.Meter(cfg.Namespace)

	agentDuration, err := meter.Float64Histogram(
		cfg.Namespace+"_agent_invoke_duration_seconds",
		metric.WithDescription("Agent invocation duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent duration histogram: %w", err)
	}

	agentCalls, err := meter.Int64Counter(
		cfg.Namespace+"_agent_invocations_total",
		metric.WithDescription("Total agent invocations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent calls counter: %w", err)
	}

	agentErrors, err := meter.Int64Counter(
		cfg.Namespace+"_agent_errors_total",
		metric.WithDescription("Total agent errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent errors counter: %w", err)
	}

	routeDecisions, err := meter.Int64Counter(
		cfg.Namespace+"_route_decisions_total",
		metric.WithDescription("Total routing decisions by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create route decisions counter: %w", err)
	}

	toolDuration, err := meter.Float64Histogram(
		cfg.Namespace+"_tool_execution_duration_seconds",
		metric.WithDescription("Tool execution duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool duration histogram: %w", err)
	}

	toolCalls, err := meter.Int64Counter(
		cfg.Namespace+"_tool_calls_total",
		metric.WithDescription("Total tool calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool calls counter: %w", err)
	}

	toolErrors, err := meter.Int64Counter(
		cfg.Namespace+"_tool_errors_total",
		metric.WithDescription("Total tool errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool errors counter: %w", err)
	}

	llmDuration, err := meter.Float64Histogram(
		cfg.Namespace+"_llm_request_duration_seconds",
		metric.WithDescription("LLM request duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm duration histogram: %w", err)
	}

	llmInputTokens, err := meter.Int64Counter(
		cfg.Namespace+"_llm_tokens_input_total",
		metric.WithDescription("Total input tokens sent to LLM"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm input tokens counter: %w", err)
	}

	llmOutputTokens, err := meter.Int64Counter(
		cfg.Namespace+"_llm_tokens_output_total",
		metric.WithDescription("Total output tokens from LLM"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm output tokens counter: %w", err)
	}

	llmErrors, err := meter.Int64Counter(
		cfg.Namespace+"_llm_errors_total",
		metric.WithDescription("Total LLM errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm errors counter: %w", err)
	}

	ragSearchDuration, err := meter.Float64Histogram(
		cfg.Namespace+"_rag_search_duration_seconds",
		metric.WithDescription("Retrieval search duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rag search histogram: %w", err)
	}

	ragChunksIngested, err := meter.Int64Counter(
		cfg.Namespace+"_rag_chunks_ingested_total",
		metric.WithDescription("Total document chunks ingested"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rag chunks counter: %w", err)
	}

	return &PrometheusMetrics{
		agentDuration:     agentDuration,
		agentCallsTotal:   agentCalls,
		agentErrorsTotal:  agentErrors,
		routeDecisions:    routeDecisions,
		toolDuration:      toolDuration,
		toolCallsTotal:    toolCalls,
		toolErrorsTotal:   toolErrors,
		llmDuration:       llmDuration,
		llmInputTokens:    llmInputTokens,
		llmOutputTokens:   llmOutputTokens,
		llmErrorsTotal:    llmErrors,
		ragSearchDuration: ragSearchDuration,
		ragChunksIngested: ragChunksIngested,
	}, nil
}
