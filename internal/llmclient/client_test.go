package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forge/internal/config"
)

func TestNew_MockProvider(t *testing.T) {
	client, err := New(context.Background(), config.LLMConfig{Provider: "mock"})
	require.NoError(t, err)
	require.NotNil(t, client)
	_, ok := client.(*MockClient)
	assert.True(t, ok)
}

func TestNew_UnknownProviderErrors(t *testing.T) {
	_, err := New(context.Background(), config.LLMConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestNew_GeminiWithoutAPIKeyErrors(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	_, err := New(context.Background(), config.LLMConfig{Provider: "gemini"})
	assert.Error(t, err)
}
