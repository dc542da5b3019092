package observability

const (
	AttrServiceName     = "service.name"
	AttrTenantID        = "tenant.id"
	AttrAgentName       = "agent.name"
	AttrAgentLLM        = "agent.llm"
	AttrToolName        = "tool.name"
	AttrToolType        = "tool.type"
	AttrIntent          = "router.intent"
	AttrLLMModel        = "llm.model"
	AttrLLMTokensInput  = "llm.tokens.input"
	AttrLLMTokensOutput = "llm.tokens.output"
	AttrErrorType       = "error.type"

	SpanRouteDecision = "router.route"
	SpanAgentInvoke   = "agent.invoke"
	SpanLLMRequest    = "agent.llm_request"
	SpanToolExecution = "agent.tool_execution"
	SpanMemoryLookup  = "agent.memory_lookup"
	SpanRAGSearch     = "rag.search"
	SpanRAGIngest     = "rag.ingest"

	DefaultServiceName  = "agenthub"
	DefaultSamplingRate = 1.0
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultMetricsPath  = "/metrics"
)
