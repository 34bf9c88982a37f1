package observability

const (
	AttrServiceName     = "service.name"
	AttrAgentName       = "agent.name"
	AttrToolName        = "tool.name"
	AttrLLMModel        = "llm.model"
	AttrLLMTokensInput  = "llm.tokens.input"
	AttrLLMTokensOutput = "llm.tokens.output"
	AttrProviderID      = "provider.id"
	AttrProviderType    = "provider.type"
	AttrStageID         = "stage.id"
	AttrErrorType       = "error.type"
	AttrStatusCode      = "http.status_code"

	SpanScanRun       = "scan.run"
	SpanScanStage     = "scan.stage"
	SpanLLMRequest    = "agent.llm_request"
	SpanToolExecution = "agent.tool_execution"
	SpanProviderCall  = "provider.call"

	DefaultServiceName = "agentscan"
)
