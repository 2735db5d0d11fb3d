package types

import "context"

// LLMClient is the external LLM provider contract (§6.3 of SPEC_FULL.md).
// It mirrors codenerd's internal/types.LLMClient: a small, provider-agnostic
// surface that phases depend on instead of any concrete SDK type.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteWithTools(ctx context.Context, systemPrompt, userPrompt string, tools []ToolDefinition) (*LLMToolResponse, error)
}

// ToolDefinition describes a tool the LLM may invoke.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// UsageMetadata captures token accounting for a single LLM call.
type UsageMetadata struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// LLMToolResponse is the result of a tool-enabled completion.
type LLMToolResponse struct {
	Text       string        `json:"text"`
	ToolCalls  []ToolCall    `json:"tool_calls"`
	StopReason string        `json:"stop_reason"`
	Usage      UsageMetadata `json:"usage"`
}

// ToolExecutor runs a single tool call against the host environment (the
// agent/tool-execution runtime consumed per §6.3). Implemented by
// internal/synth's tool registry.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) (string, error)
}

// Sandbox is the external sandboxed build environment contract (§6.4).
type Sandbox interface {
	Create(ctx context.Context) error
	Upload(ctx context.Context, localPath, remotePath string) error
	Run(ctx context.Context, command string, timeoutSeconds int) (stdout, stderr string, exitCode int, err error)
	Close(ctx context.Context) error
}
