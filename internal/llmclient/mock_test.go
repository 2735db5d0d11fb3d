package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forge/internal/types"
)

func TestMockClient_DefaultsAreStable(t *testing.T) {
	m := NewMockClient()

	text, err := m.Complete(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "{}", text)

	resp, err := m.CompleteWithTools(context.Background(), "sys", "user", nil)
	require.NoError(t, err)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Empty(t, resp.Text)
}

func TestMockClient_ScriptedFuncsAreUsed(t *testing.T) {
	m := &MockClient{
		CompleteFunc: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			return "scripted:" + userPrompt, nil
		},
		ToolsFunc: func(ctx context.Context, systemPrompt, userPrompt string, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
			return &types.LLMToolResponse{
				ToolCalls: []types.ToolCall{{ID: "call_1", Name: "write_file"}},
			}, nil
		},
	}

	text, err := m.CompleteWithSystem(context.Background(), "sys", "hello")
	require.NoError(t, err)
	assert.Equal(t, "scripted:hello", text)

	resp, err := m.CompleteWithTools(context.Background(), "sys", "user", nil)
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "write_file", resp.ToolCalls[0].Name)
}
