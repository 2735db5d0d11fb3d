package llmclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"forge/internal/config"
	"forge/internal/logging"
	"forge/internal/types"
)

// GeminiClient implements types.LLMClient against Google's official genai
// SDK. Grounded on codenerd's internal/embedding/genai.go for client
// construction and internal/perception/client_gemini.go for the
// Complete/CompleteWithSystem/CompleteWithTools method shapes (that file
// talks to the REST endpoint by hand; this one uses the SDK's own
// generate-content call since forge's go.mod depends on the SDK directly).
type GeminiClient struct {
	client   *genai.Client
	model    string
	timeout  time.Duration
	retryMax int
	bo       *backoff
}

// NewGeminiClient constructs a GeminiClient. apiKey must be non-empty.
func NewGeminiClient(ctx context.Context, apiKey string, cfg config.LLMConfig) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return &GeminiClient{
		client:   client,
		model:    model,
		timeout:  cfg.Timeout,
		retryMax: cfg.RetryMax,
		bo:       newBackoff(cfg.BackoffBase, cfg.BackoffMax),
	}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.CompleteWithTools(ctx, systemPrompt, userPrompt, nil)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *GeminiClient) CompleteWithTools(ctx context.Context, systemPrompt, userPrompt string, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	log := logging.Get(logging.CategoryLLM)

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contents := []*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)}

	genConfig := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(tools))
		for i, t := range tools {
			decls[i] = &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  convertSchema(t.InputSchema),
			}
		}
		genConfig.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	maxAttempts := c.retryMax
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, genConfig)
		if err == nil {
			return toolResponseFrom(resp), nil
		}
		lastErr = err
		log.Warn("gemini: attempt %d/%d failed: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			if waitErr := sleepWithContext(ctx, c.bo.delay(attempt)); waitErr != nil {
				return nil, waitErr
			}
		}
	}
	return nil, fmt.Errorf("gemini: exhausted %d attempts: %w", maxAttempts, lastErr)
}

func toolResponseFrom(resp *genai.GenerateContentResponse) *types.LLMToolResponse {
	result := &types.LLMToolResponse{}
	if resp == nil || len(resp.Candidates) == 0 {
		return result
	}
	cand := resp.Candidates[0]
	result.StopReason = string(cand.FinishReason)
	if cand.Content != nil {
		var text strings.Builder
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				text.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				result.ToolCalls = append(result.ToolCalls, types.ToolCall{
					ID:    fmt.Sprintf("call_%d", len(result.ToolCalls)),
					Name:  part.FunctionCall.Name,
					Input: part.FunctionCall.Args,
				})
			}
		}
		result.Text = strings.TrimSpace(text.String())
	}
	if resp.UsageMetadata != nil {
		result.Usage = types.UsageMetadata{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return result
}

// convertSchema translates forge's JSON-schema-shaped map[string]any (used
// for ToolDefinition.InputSchema, portable across providers) into the
// genai SDK's typed Schema.
func convertSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := m["type"].(string); ok {
		s.Type = jsonSchemaType(t)
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for k, v := range props {
			if sub, ok := v.(map[string]any); ok {
				s.Properties[k] = convertSchema(sub)
			}
		}
	}
	if req, ok := m["required"].([]string); ok {
		s.Required = req
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = convertSchema(items)
	}
	return s
}

func jsonSchemaType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeUnspecified
	}
}
