package router

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/llms"
	"github.com/agenthub/agenthub/pkg/observability"
)

// DecisionKind is the routing outcome. The three kinds are mutually
// exclusive.
type DecisionKind string

const (
	Single      DecisionKind = "SINGLE"
	MultiIntent DecisionKind = "MULTI_INTENT"
	Unclear     DecisionKind = "UNCLEAR"
)

// Decision is the router's classification of one message. Agent is set
// only for Single.
type Decision struct {
	Kind  DecisionKind
	Agent string
}

const routingPromptTemplate = `You are a routing supervisor for a customer service platform.
Classify the user message into exactly one of the registered agents below.

Registered agents:
%s

Rules:
- Respond with ONLY the agent name, nothing else.
- If the message contains requests for two or more distinct agents, respond with exactly MULTI_INTENT.
- If the message matches no agent's domain, respond with exactly UNCLEAR.`

const strictReminder = `

Your previous answer was not a valid agent name. Answer again with a single word: one agent name from the list, MULTI_INTENT, or UNCLEAR.`

// Router classifies messages onto the tenant's enabled agents with one
// supervisor model call. It never surfaces classification failures to
// callers; after one stricter retry the outcome degrades to Unclear.
type Router struct {
	provider llms.Provider

	mu     sync.RWMutex
	agents map[string]string
	prompt string
}

func New(provider llms.Provider, agents []config.AgentSpec) (*Router, error) {
	if provider == nil {
		return nil, fmt.Errorf("llm provider is required")
	}
	r := &Router{provider: provider}
	r.Rebuild(agents)
	return r, nil
}

// Rebuild replaces the routable agent set and regenerates the routing
// prompt. Call it whenever the tenant's enabled agents change.
func (r *Router) Rebuild(agents []config.AgentSpec) {
	byName := make(map[string]string, len(agents))
	var lines []string
	for _, agent := range agents {
		byName[strings.ToLower(agent.Name)] = agent.Name
		lines = append(lines, fmt.Sprintf("- %s: %s", agent.Name, agent.Description))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = byName
	r.prompt = fmt.Sprintf(routingPromptTemplate, strings.Join(lines, "\n"))
}

// Route classifies one message. A model failure or unparseable answer is
// retried once with a stricter instruction and then downgrades to Unclear.
func (r *Router) Route(ctx context.Context, message string) (Decision, error) {
	tracer := observability.GetTracer("router")
	ctx, span := tracer.Start(ctx, observability.SpanRouteDecision)
	defer span.End()

	r.mu.RLock()
	prompt := r.prompt
	r.mu.RUnlock()

	decision, ok := r.classify(ctx, prompt, message)
	if !ok {
		decision, ok = r.classify(ctx, prompt+strictReminder, message)
	}
	if !ok {
		decision = Decision{Kind: Unclear}
	}

	span.SetAttributes(attribute.String(observability.AttrIntent, string(decision.Kind)))
	if decision.Kind == Single {
		span.SetAttributes(attribute.String(observability.AttrAgentName, decision.Agent))
	}
	span.SetStatus(codes.Ok, "")
	observability.GetGlobalMetrics().RecordRouteDecision(ctx, string(decision.Kind))
	return decision, nil
}

func (r *Router) classify(ctx context.Context, prompt, message string) (Decision, bool) {
	resp, err := r.provider.Generate(ctx, []llms.Message{
		{Role: llms.RoleSystem, Content: prompt},
		{Role: llms.RoleUser, Content: message},
	})
	if err != nil {
		return Decision{}, false
	}
	return r.parse(resp.Content)
}

func (r *Router) parse(answer string) (Decision, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(answer))
	switch normalized {
	case string(MultiIntent):
		return Decision{Kind: MultiIntent}, true
	case string(Unclear):
		return Decision{Kind: Unclear}, true
	}

	r.mu.RLock()
	name, ok := r.agents[strings.ToLower(strings.TrimSpace(answer))]
	r.mu.RUnlock()
	if !ok {
		return Decision{}, false
	}
	return Decision{Kind: Single, Agent: name}, true
}
