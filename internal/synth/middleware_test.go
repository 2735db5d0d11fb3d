package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"forge/internal/config"
	"forge/internal/logging"
	"forge/internal/types"
)

func TestToolCallGuardrail_ResolvesRelativePathBeforeScopeCheck(t *testing.T) {
	root := "/repo"
	scope := Scope{Files: map[string]bool{"/repo/src/widget.go": true}}
	log := logging.Get(logging.CategorySynthesis)

	call := types.ToolCall{Name: "write_file", Input: map[string]any{"path": "src/widget.go"}}

	allow, message := toolCallGuardrail(call, root, scope, config.GuardrailStrict, log)

	assert.True(t, allow, "a relative path resolving into scope must be allowed")
	assert.Empty(t, message)
}

func TestToolCallGuardrail_RejectsOutOfScopeRelativePathInStrictMode(t *testing.T) {
	root := "/repo"
	scope := Scope{Files: map[string]bool{"/repo/src/widget.go": true}}
	log := logging.Get(logging.CategorySynthesis)

	call := types.ToolCall{Name: "write_file", Input: map[string]any{"path": "other/evil.go"}}

	allow, message := toolCallGuardrail(call, root, scope, config.GuardrailStrict, log)

	assert.False(t, allow)
	assert.NotEmpty(t, message)
}

func TestToolCallGuardrail_SoftModeAllowsButWarns(t *testing.T) {
	root := "/repo"
	scope := Scope{Files: map[string]bool{"/repo/src/widget.go": true}}
	log := logging.Get(logging.CategorySynthesis)

	call := types.ToolCall{Name: "write_file", Input: map[string]any{"path": "other/evil.go"}}

	allow, message := toolCallGuardrail(call, root, scope, config.GuardrailSoft, log)

	assert.True(t, allow)
	assert.Empty(t, message)
}

func TestToolCallGuardrail_IgnoresNonFileTargetingTools(t *testing.T) {
	root := "/repo"
	scope := Scope{}
	log := logging.Get(logging.CategorySynthesis)

	call := types.ToolCall{Name: "read_file", Input: map[string]any{"path": "anything.go"}}

	allow, message := toolCallGuardrail(call, root, scope, config.GuardrailStrict, log)

	assert.True(t, allow)
	assert.Empty(t, message)
}
