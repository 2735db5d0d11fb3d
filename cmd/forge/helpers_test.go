package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forge/internal/config"
	"forge/internal/logging"
	"forge/internal/types"
)

func TestResolveFeatureRequest(t *testing.T) {
	reset := func() {
		featureRequest = ""
		featureRequestSpec = ""
	}

	t.Run("both flags set is an error", func(t *testing.T) {
		reset()
		defer reset()
		featureRequest = "add a widget"
		featureRequestSpec = "spec.txt"
		_, err := resolveFeatureRequest()
		assert.Error(t, err)
	})

	t.Run("neither flag set is an error", func(t *testing.T) {
		reset()
		defer reset()
		_, err := resolveFeatureRequest()
		assert.Error(t, err)
	})

	t.Run("inline flag wins when only it is set", func(t *testing.T) {
		reset()
		defer reset()
		featureRequest = "add a widget"
		got, err := resolveFeatureRequest()
		require.NoError(t, err)
		assert.Equal(t, "add a widget", got)
	})

	t.Run("spec file is read when only it is set", func(t *testing.T) {
		reset()
		defer reset()
		dir := t.TempDir()
		path := filepath.Join(dir, "spec.txt")
		require.NoError(t, os.WriteFile(path, []byte("add a gadget"), 0o644))
		featureRequestSpec = path
		got, err := resolveFeatureRequest()
		require.NoError(t, err)
		assert.Equal(t, "add a gadget", got)
	})
}

func TestApplyFlagOverrides(t *testing.T) {
	reset := func() {
		mode, sandboxEnabled, maxIteration = "", false, 0
		enableGuardrail, noGuardrail, guardrailMode = false, false, ""
	}
	defer reset()

	mode = "implement"
	sandboxEnabled = true
	maxIteration = 5
	enableGuardrail = true
	noGuardrail = true
	guardrailMode = "soft"

	cfg := config.DefaultConfig()
	applyFlagOverrides(cfg)

	assert.Equal(t, "implement", cfg.Execution.Mode)
	assert.True(t, cfg.Sandbox.Enabled)
	assert.Equal(t, 5, cfg.Sandbox.MaxIterations)
	assert.False(t, cfg.Guardrail.Enabled, "no-guardrail must win over enable-guardrail")
	assert.Equal(t, config.GuardrailMode("soft"), cfg.Guardrail.Mode)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logging.LevelDebug, parseLevel("debug"))
	assert.Equal(t, logging.LevelWarn, parseLevel("warn"))
	assert.Equal(t, logging.LevelError, parseLevel("error"))
	assert.Equal(t, logging.LevelInfo, parseLevel("anything-else"))
}

func TestVerificationStatus(t *testing.T) {
	state := &types.AgentState{}
	assert.Equal(t, "unknown", verificationStatus(state))

	state.ExecutionResults = &types.ExecutionResults{VerificationStatus: "verified"}
	assert.Equal(t, "verified", verificationStatus(state))
}
