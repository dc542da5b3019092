package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/agenthub/agenthub/pkg/checkpoint"
	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/llms"
	"github.com/agenthub/agenthub/pkg/logger"
	"github.com/agenthub/agenthub/pkg/memory"
	"github.com/agenthub/agenthub/pkg/observability"
	"github.com/agenthub/agenthub/pkg/tools"
)

const (
	StatusOK    = "ok"
	StatusError = "error"

	defaultHistoryLimit = 20
)

// BoundTool attaches an executable adapter to its descriptor and the
// agent's priority for it. Lower priority is tried first.
type BoundTool struct {
	Spec     config.ToolSpec
	Adapter  tools.Adapter
	Priority int
}

// Input is one user turn addressed to this executor's agent.
type Input struct {
	SessionID   string
	ThreadID    string
	Message     string
	BearerToken string
}

// ToolCallRecord is the audit entry of one attempted tool invocation. It
// is recorded before execution, so failed calls appear with Error set.
type ToolCallRecord struct {
	Tool   string         `json:"tool"`
	ToolID string         `json:"tool_id"`
	Args   map[string]any `json:"args"`
	Error  string         `json:"error,omitempty"`
}

// Metadata is the structured telemetry attached to every turn result.
type Metadata struct {
	LLMModel          string            `json:"llm_model"`
	ToolCalls         []ToolCallRecord  `json:"tool_calls"`
	SkippedTools      []string          `json:"skipped_tools,omitempty"`
	ExtractedEntities map[string]string `json:"extracted_entities"`
	Intent            string            `json:"intent"`
	DurationMS        int64             `json:"duration_ms"`

	// Stage names the pipeline step that failed when Status is error.
	Stage string `json:"stage,omitempty"`
}

// Result is the outcome of one turn.
type Result struct {
	Status   string
	Agent    string
	Intent   string
	Response string
	Metadata Metadata
}

// ExecutorConfig wires one agent's execution pipeline.
type ExecutorConfig struct {
	TenantID string
	Agent    config.AgentSpec
	Provider llms.Provider
	Memory   memory.Store

	// Checkpoints is optional; without it turns are not resumable.
	Checkpoints checkpoint.Store

	Tools []BoundTool

	// HistoryLimit caps messages pulled per turn. Zero means 20.
	HistoryLimit int

	// TokenBudget trims history to fit; zero disables trimming.
	TokenBudget int
}

// Executor runs the turn pipeline for one agent of one tenant: extract
// entities, select and execute tools by priority, assemble a response,
// persist the exchange.
type Executor struct {
	tenantID     string
	spec         config.AgentSpec
	provider     llms.Provider
	memory       memory.Store
	checkpoints  checkpoint.Store
	tools        []BoundTool
	historyLimit int
	tokenBudget  int
}

func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.TenantID == "" {
		return nil, fmt.Errorf("tenant id is required")
	}
	if cfg.Agent.Name == "" {
		return nil, fmt.Errorf("agent spec is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("llm provider is required")
	}
	if cfg.Memory == nil {
		return nil, fmt.Errorf("memory store is required")
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}

	bound := make([]BoundTool, len(cfg.Tools))
	copy(bound, cfg.Tools)
	sort.SliceStable(bound, func(i, j int) bool {
		return bound[i].Priority < bound[j].Priority
	})

	return &Executor{
		tenantID:     cfg.TenantID,
		spec:         cfg.Agent,
		provider:     cfg.Provider,
		memory:       cfg.Memory,
		checkpoints:  cfg.Checkpoints,
		tools:        bound,
		historyLimit: cfg.HistoryLimit,
		tokenBudget:  cfg.TokenBudget,
	}, nil
}

func (e *Executor) Name() string { return e.spec.Name }

// Invoke runs one turn. A tool failure is recorded and the turn proceeds;
// an assembly failure returns StatusError and persists nothing.
func (e *Executor) Invoke(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	tracer := observability.GetTracer("agent")
	ctx, span := tracer.Start(ctx, observability.SpanAgentInvoke)
	defer span.End()
	span.SetAttributes(
		attribute.String(observability.AttrTenantID, e.tenantID),
		attribute.String(observability.AttrAgentName, e.spec.Name),
		attribute.String(observability.AttrAgentLLM, e.provider.ModelName()),
	)

	var invokeErr error
	defer func() {
		observability.GetGlobalMetrics().RecordAgentInvoke(ctx, e.spec.Name, time.Since(start), invokeErr)
	}()

	result := &Result{
		Agent: e.spec.Name,
		Metadata: Metadata{
			LLMModel:  e.provider.ModelName(),
			ToolCalls: []ToolCallRecord{},
		},
	}
	fail := func(stage string, err error) (*Result, error) {
		span.SetStatus(codes.Error, err.Error())
		result.Status = StatusError
		result.Metadata.Stage = stage
		result.Metadata.DurationMS = time.Since(start).Milliseconds()
		invokeErr = err
		return result, err
	}

	history, err := e.loadHistory(ctx, in.SessionID)
	if err != nil {
		return fail("memory", err)
	}

	intent, entities := e.extract(ctx, history, in.Message)
	result.Intent = intent
	result.Metadata.Intent = intent
	result.Metadata.ExtractedEntities = entities
	span.SetAttributes(attribute.String(observability.AttrIntent, intent))

	e.saveCheckpoint(ctx, in.ThreadID, checkpoint.State{
		Phase:    checkpoint.PhaseExtracted,
		Intent:   intent,
		Entities: entities,
	})

	selected, skipped := e.selectTool(entities)
	result.Metadata.SkippedTools = skipped

	var toolOutput string
	var outputFormat = e.spec.DefaultOutputFormat
	if selected != nil {
		record, output := e.executeTool(ctx, *selected, entities, in.BearerToken)
		result.Metadata.ToolCalls = append(result.Metadata.ToolCalls, record)
		toolOutput = output
		if selected.Spec.OutputFormat != "" {
			outputFormat = selected.Spec.OutputFormat
		}

		partial := map[string]any{}
		if record.Error == "" {
			partial[record.Tool] = output
		}
		e.saveCheckpoint(ctx, in.ThreadID, checkpoint.State{
			Phase:          checkpoint.PhaseToolsExecuted,
			Intent:         intent,
			Entities:       entities,
			PartialResults: partial,
		})
	}

	response, err := e.assemble(ctx, history, in.Message, intent, entities, toolOutput, outputFormat)
	if err != nil {
		return fail("response_assembly", &ResponseAssemblyError{Agent: e.spec.Name, Err: err})
	}
	result.Response = response

	if err := e.persistTurn(ctx, in.SessionID, in.Message, result); err != nil {
		return fail("persistence", err)
	}
	e.clearCheckpoints(ctx, in.ThreadID)

	result.Status = StatusOK
	result.Metadata.DurationMS = time.Since(start).Milliseconds()
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (e *Executor) loadHistory(ctx context.Context, sessionID string) ([]memory.Message, error) {
	if sessionID == "" {
		return nil, nil
	}
	history, err := e.memory.GetHistory(ctx, sessionID, e.historyLimit, false)
	if err != nil {
		return nil, &MemoryError{SessionID: sessionID, Err: err}
	}
	if e.tokenBudget > 0 {
		trimmed, err := memory.TrimToTokenBudget(history, e.provider.ModelName(), e.tokenBudget)
		if err == nil {
			history = trimmed
		}
	}
	return history, nil
}

// extract issues the entity-extraction call. A model failure is retried
// once; a second failure or an unparseable answer degrades to
// UnknownIntent instead of failing the turn.
func (e *Executor) extract(ctx context.Context, history []memory.Message, message string) (string, map[string]string) {
	prompt := buildExtractionPrompt(e.spec.PromptTemplate, e.parameterNames())
	messages := e.conversation(prompt, history, message)

	resp, err := e.provider.Generate(ctx, messages)
	if err != nil {
		resp, err = e.provider.Generate(ctx, messages)
	}
	if err != nil {
		logger.GetLogger().Warn("Entity extraction failed, proceeding without entities",
			"agent", e.spec.Name, "error", err)
		return UnknownIntent, map[string]string{}
	}
	return parseExtraction(resp.Content)
}

func (e *Executor) parameterNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, tool := range e.tools {
		for _, p := range tool.Spec.InputSchema.Parameters {
			if !seen[p.Name] {
				seen[p.Name] = true
				names = append(names, p.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// selectTool returns the first tool in priority order whose required
// parameters are all present among the extracted entities. Tools skipped
// on the way are reported by name; zero matches is a valid outcome.
func (e *Executor) selectTool(entities map[string]string) (*BoundTool, []string) {
	var skipped []string
	for i := range e.tools {
		tool := &e.tools[i]
		if satisfiable(tool.Spec.InputSchema, entities) {
			return tool, skipped
		}
		skipped = append(skipped, tool.Spec.Name)
	}
	return nil, skipped
}

func satisfiable(schema config.InputSchema, entities map[string]string) bool {
	for _, name := range schema.Required {
		if _, ok := entities[name]; !ok {
			return false
		}
	}
	return true
}

// executeTool records the call before running it, so the audit trail holds
// failed invocations too.
func (e *Executor) executeTool(ctx context.Context, tool BoundTool, entities map[string]string, bearerToken string) (ToolCallRecord, string) {
	args := make(map[string]any)
	for _, p := range tool.Spec.InputSchema.Parameters {
		if value, ok := entities[p.Name]; ok {
			args[p.Name] = value
		}
	}

	record := ToolCallRecord{Tool: tool.Spec.Name, ToolID: tool.Spec.ID, Args: args}

	tracer := observability.GetTracer("agent")
	toolCtx, span := tracer.Start(ctx, observability.SpanToolExecution)
	span.SetAttributes(
		attribute.String(observability.AttrToolName, tool.Spec.Name),
		attribute.String(observability.AttrToolType, string(tool.Spec.Kind)),
	)
	defer span.End()

	start := time.Now()
	result, err := tool.Adapter.Execute(toolCtx, args, tools.AuthContext{
		TenantID:    e.tenantID,
		BearerToken: bearerToken,
	})
	observability.GetGlobalMetrics().RecordToolExecution(toolCtx, tool.Spec.Name, time.Since(start), err)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		record.Error = err.Error()
		logger.GetLogger().Warn("Tool execution failed, continuing turn",
			"agent", e.spec.Name, "tool", tool.Spec.Name, "error", err)
		return record, ""
	}
	span.SetStatus(codes.Ok, "")
	return record, result.Content
}

func (e *Executor) assemble(ctx context.Context, history []memory.Message, message, intent string, entities map[string]string, toolOutput string, format config.OutputFormat) (string, error) {
	prompt := e.assemblyPrompt(intent, entities, toolOutput, format)
	resp, err := e.provider.Generate(ctx, e.conversation(prompt, history, message))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("model returned an empty response")
	}
	return resp.Content, nil
}

func (e *Executor) assemblyPrompt(intent string, entities map[string]string, toolOutput string, format config.OutputFormat) string {
	var context strings.Builder
	if toolOutput != "" {
		context.WriteString("Tool results:\n")
		context.WriteString(toolOutput)
		context.WriteString("\n\n")
	}
	context.WriteString("Detected intent: ")
	context.WriteString(intent)
	if len(entities) > 0 {
		keys := make([]string, 0, len(entities))
		for key := range entities {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		context.WriteString("\nExtracted parameters:")
		for _, key := range keys {
			context.WriteString(fmt.Sprintf("\n- %s: %s", key, entities[key]))
		}
	}

	base := e.spec.PromptTemplate
	if base == "" {
		base = fmt.Sprintf("You are %s, a helpful assistant.", e.spec.Name)
	}
	if strings.Contains(base, "{context}") {
		base = strings.ReplaceAll(base, "{context}", context.String())
	} else {
		base = base + "\n\n" + context.String()
	}

	if instruction := formatInstruction(format); instruction != "" {
		base = base + "\n\n" + instruction
	}
	return base
}

func formatInstruction(format config.OutputFormat) string {
	switch format {
	case config.OutputStructuredJSON:
		return "Respond with a single valid JSON object and nothing else."
	case config.OutputMarkdownTable:
		return "Format the answer as a markdown table."
	case config.OutputChartData:
		return `Respond with JSON chart data: {"labels": [...], "values": [...]}.`
	case config.OutputSummaryText:
		return "Respond with a short plain-text summary."
	default:
		return ""
	}
}

func (e *Executor) conversation(systemPrompt string, history []memory.Message, message string) []llms.Message {
	messages := make([]llms.Message, 0, len(history)+2)
	messages = append(messages, llms.Message{Role: llms.RoleSystem, Content: systemPrompt})
	for _, m := range history {
		messages = append(messages, llms.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llms.Message{Role: llms.RoleUser, Content: message})
	return messages
}

// persistTurn appends the user and assistant messages together at the end
// of the turn, so a failed turn leaves no partial exchange behind.
func (e *Executor) persistTurn(ctx context.Context, sessionID, message string, result *Result) error {
	if sessionID == "" {
		return nil
	}

	if err := e.memory.AppendMessage(ctx, sessionID, memory.Message{
		Role:    memory.RoleUser,
		Content: message,
	}); err != nil {
		return &MemoryError{SessionID: sessionID, Err: err}
	}

	toolCalls := make([]map[string]any, 0, len(result.Metadata.ToolCalls))
	for _, call := range result.Metadata.ToolCalls {
		entry := map[string]any{"tool": call.Tool, "tool_id": call.ToolID}
		if call.Error != "" {
			entry["error"] = call.Error
		}
		toolCalls = append(toolCalls, entry)
	}

	if err := e.memory.AppendMessage(ctx, sessionID, memory.Message{
		Role:    memory.RoleAssistant,
		Content: result.Response,
		Metadata: map[string]any{
			"llm_model":  result.Metadata.LLMModel,
			"intent":     result.Intent,
			"tool_calls": toolCalls,
			"agent":      e.spec.Name,
		},
	}); err != nil {
		return &MemoryError{SessionID: sessionID, Err: err}
	}
	return nil
}

func (e *Executor) saveCheckpoint(ctx context.Context, threadID string, state checkpoint.State) {
	if e.checkpoints == nil || threadID == "" {
		return
	}
	if _, err := e.checkpoints.Save(ctx, threadID, state, map[string]any{"agent": e.spec.Name}); err != nil {
		logger.GetLogger().Warn("Failed to save checkpoint",
			"agent", e.spec.Name, "thread", threadID, "error", err)
	}
}

func (e *Executor) clearCheckpoints(ctx context.Context, threadID string) {
	if e.checkpoints == nil || threadID == "" {
		return
	}
	if err := e.checkpoints.Clear(ctx, threadID); err != nil {
		logger.GetLogger().Warn("Failed to clear checkpoints",
			"agent", e.spec.Name, "thread", threadID, "error", err)
	}
}
