package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"forge/internal/config"
	"forge/internal/logging"
	"forge/internal/types"
)

// OpenAIClient implements types.LLMClient against the openai-go SDK.
// Grounded on phrazzld-thinktank's internal/openai/openai_client.go for
// client construction and message-building conventions.
type OpenAIClient struct {
	client   openai.Client
	model    string
	retryMax int
	bo       *backoff
}

// NewOpenAIClient constructs an OpenAIClient. An empty apiKey falls back to
// the OPENAI_API_KEY environment variable; if both are empty it returns an
// error.
func NewOpenAIClient(apiKey string, cfg config.LLMConfig) (*OpenAIClient, error) {
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIClient{
		client:   openai.NewClient(option.WithAPIKey(apiKey)),
		model:    model,
		retryMax: cfg.RetryMax,
		bo:       newBackoff(cfg.BackoffBase, cfg.BackoffMax),
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

func (c *OpenAIClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.CompleteWithTools(ctx, systemPrompt, userPrompt, nil)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *OpenAIClient) CompleteWithTools(ctx context.Context, systemPrompt, userPrompt string, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	log := logging.Get(logging.CategoryLLM)

	var messages []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    c.model,
	}
	if len(tools) > 0 {
		params.Tools = make([]openai.ChatCompletionToolParam, len(tools))
		for i, t := range tools {
			params.Tools[i] = openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  openai.FunctionParameters(t.InputSchema),
				},
			}
		}
	}

	maxAttempts := c.retryMax
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err == nil {
			return toolResponseFromOpenAI(completion), nil
		}
		lastErr = err
		log.Warn("openai: attempt %d/%d failed: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			if waitErr := sleepWithContext(ctx, c.bo.delay(attempt)); waitErr != nil {
				return nil, waitErr
			}
		}
	}
	return nil, fmt.Errorf("openai: exhausted %d attempts: %w", maxAttempts, lastErr)
}

func toolResponseFromOpenAI(completion *openai.ChatCompletion) *types.LLMToolResponse {
	result := &types.LLMToolResponse{}
	if completion == nil || len(completion.Choices) == 0 {
		return result
	}
	choice := completion.Choices[0]
	result.Text = strings.TrimSpace(choice.Message.Content)
	result.StopReason = string(choice.FinishReason)
	for _, call := range choice.Message.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			args = map[string]any{}
		}
		result.ToolCalls = append(result.ToolCalls, types.ToolCall{
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: args,
		})
	}
	result.Usage = types.UsageMetadata{
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
		TotalTokens:  int(completion.Usage.TotalTokens),
	}
	return result
}
