package llmclient

import (
	"context"

	"forge/internal/types"
)

// MockClient is a deterministic, scriptable LLMClient for tests and for
// running forge offline (config.LLMConfig.Provider == "mock"). Grounded on
// codenerd's mockLLMClientUT pattern in internal/perception's test files,
// promoted here to a first-class provider since forge's CLI exposes a mock
// mode for CI and demos.
type MockClient struct {
	// CompleteFunc, if set, backs Complete and CompleteWithSystem.
	CompleteFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// ToolsFunc, if set, backs CompleteWithTools.
	ToolsFunc func(ctx context.Context, systemPrompt, userPrompt string, tools []types.ToolDefinition) (*types.LLMToolResponse, error)
}

// NewMockClient returns a MockClient that always returns text responses.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteWithSystem(ctx, "", prompt)
}

func (m *MockClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, systemPrompt, userPrompt)
	}
	return "{}", nil
}

func (m *MockClient) CompleteWithTools(ctx context.Context, systemPrompt, userPrompt string, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	if m.ToolsFunc != nil {
		return m.ToolsFunc(ctx, systemPrompt, userPrompt, tools)
	}
	return &types.LLMToolResponse{Text: "", StopReason: "end_turn"}, nil
}
