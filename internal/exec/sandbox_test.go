package exec

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forge/internal/logging"
	"forge/internal/types"
)

// fakeSandbox scripts a fixed build/run outcome for each call, in order.
type fakeSandbox struct {
	buildOutcomes []fakeOutcome
	runOutcome    fakeOutcome
	calls         int
}

type fakeOutcome struct {
	stdout, stderr string
	exitCode       int
}

func (f *fakeSandbox) Create(ctx context.Context) error { return nil }
func (f *fakeSandbox) Upload(ctx context.Context, local, remote string) error { return nil }
func (f *fakeSandbox) Close(ctx context.Context) error  { return nil }

func (f *fakeSandbox) Run(ctx context.Context, command string, timeoutSeconds int) (string, string, int, error) {
	if command == "run-it" {
		o := f.runOutcome
		return o.stdout, o.stderr, o.exitCode, nil
	}
	idx := f.calls
	if idx >= len(f.buildOutcomes) {
		idx = len(f.buildOutcomes) - 1
	}
	f.calls++
	o := f.buildOutcomes[idx]
	return o.stdout, o.stderr, o.exitCode, nil
}

var _ types.Sandbox = (*fakeSandbox)(nil)

// fakeLLM always proposes the same single-file fix.
type fakeLLM struct {
	seenPrompts []string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) { return "", nil }

func (f *fakeLLM) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.seenPrompts = append(f.seenPrompts, userPrompt)
	return `{"file": "main.go", "content": "package main\n", "reason": "fixed missing brace"}`, nil
}

func (f *fakeLLM) CompleteWithTools(ctx context.Context, systemPrompt, userPrompt string, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	return &types.LLMToolResponse{}, nil
}

var _ types.LLMClient = (*fakeLLM)(nil)

func testCfg() SandboxRunConfig {
	return SandboxRunConfig{
		Enabled:       true,
		BuildTimeout:  time.Second,
		RunTimeout:    time.Second,
		MaxIterations: 2,
		BuildCommand:  "build-it",
		RunCommand:    "run-it",
	}
}

func TestRunSandbox_SucceedsOnFirstTry(t *testing.T) {
	sandbox := &fakeSandbox{
		buildOutcomes: []fakeOutcome{{exitCode: 0}},
		runOutcome:    fakeOutcome{exitCode: 0},
	}
	log := logging.Get(logging.CategoryExecution)

	result := RunSandbox(context.Background(), sandbox, t.TempDir(), testCfg(), log)

	assert.True(t, result.BuildSuccess)
	assert.True(t, result.RunSuccess)
	assert.Equal(t, 1, result.Iterations)
}

func TestRunSandbox_StopsImmediatelyOnCriticalRunError(t *testing.T) {
	sandbox := &fakeSandbox{
		buildOutcomes: []fakeOutcome{{exitCode: 0}},
		runOutcome:    fakeOutcome{stdout: "APPLICATION FAILED TO START", exitCode: 1},
	}
	log := logging.Get(logging.CategoryExecution)
	cfg := testCfg()
	cfg.RunTimeout = 3 * time.Second

	result := RunSandbox(context.Background(), sandbox, t.TempDir(), cfg, log)

	assert.True(t, result.CriticalStop)
	assert.False(t, result.RunSuccess)
}

func TestRunSandbox_RetriesBuildFailureThenSucceeds(t *testing.T) {
	sandbox := &fakeSandbox{
		buildOutcomes: []fakeOutcome{
			{stderr: "compilation failed", exitCode: 1},
			{exitCode: 0},
		},
		runOutcome: fakeOutcome{exitCode: 0},
	}
	log := logging.Get(logging.CategoryExecution)

	result := RunSandbox(context.Background(), sandbox, t.TempDir(), testCfg(), log)

	assert.True(t, result.RunSuccess)
	assert.Equal(t, 2, result.Iterations)
}

func TestRunSandbox_AutoFixAppliesSuggestionBetweenRetries(t *testing.T) {
	dir := t.TempDir()
	sandbox := &fakeSandbox{
		buildOutcomes: []fakeOutcome{
			{stderr: "compilation failed: missing brace", exitCode: 1},
			{exitCode: 0},
		},
		runOutcome: fakeOutcome{exitCode: 0},
	}
	llm := &fakeLLM{}
	log := logging.Get(logging.CategoryExecution)
	cfg := testCfg()
	cfg.AutoFixOnBuildError = true
	cfg.LLM = llm

	result := RunSandbox(context.Background(), sandbox, dir, cfg, log)

	require.True(t, result.RunSuccess)
	require.Len(t, llm.seenPrompts, 1)

	data, err := os.ReadFile(filepath.Join(dir, "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(data))
}

func TestAttemptAutoFix_IgnoresSuggestionEscapingCodebase(t *testing.T) {
	dir := t.TempDir()
	llm := &fakeLLMWithFile{file: "../../etc/passwd"}
	log := logging.Get(logging.CategoryExecution)

	attemptAutoFix(context.Background(), llm, dir, "some build log", log)

	_, err := os.Stat(filepath.Join(dir, "../../etc/passwd"))
	assert.True(t, os.IsNotExist(err), "auto-fix must not write outside the codebase root")
}

type fakeLLMWithFile struct{ file string }

func (f *fakeLLMWithFile) Complete(ctx context.Context, prompt string) (string, error) { return "", nil }
func (f *fakeLLMWithFile) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return `{"file": "` + f.file + `", "content": "evil"}`, nil
}
func (f *fakeLLMWithFile) CompleteWithTools(ctx context.Context, systemPrompt, userPrompt string, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	return &types.LLMToolResponse{}, nil
}

var _ types.LLMClient = (*fakeLLMWithFile)(nil)
