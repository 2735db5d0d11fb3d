// Package main implements forge's CLI entry point: parse flags, load
// config, build the AgentState, and run the seven-phase workflow to
// completion. Grounded on codenerd's cmd/nerd/main.go — cobra root command,
// persistent flags, zap console logging initialized in PersistentPreRunE,
// internal file logging initialized alongside it.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"forge/internal/config"
	"forge/internal/discover"
	"forge/internal/llmclient"
	"forge/internal/logging"
	"forge/internal/sandboxrt"
	"forge/internal/types"
	"forge/internal/workflow"
)

const (
	exitSuccess       = 0
	exitWorkflowFatal = 1
	exitSandboxError  = 2
	exitConfigError   = 3
)

var (
	verbose            bool
	codebasePath       string
	featureRequest     string
	featureRequestSpec string
	mode               string
	sandboxEnabled     bool
	maxIteration       int
	enableGuardrail    bool
	noGuardrail        bool
	guardrailMode      string
	watchMode          bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "forge synthesizes feature implementations onto an existing codebase",
	Long: `forge analyzes an existing repository, parses a natural-language feature
request against its conventions, and emits (or applies) the concrete file
changes needed to implement it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.Close()
		logging.CloseAudit()
	},
	RunE: runForge,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose console logging")
	rootCmd.Flags().StringVar(&codebasePath, "codebase-path", "", "root of the target repository (required)")
	rootCmd.Flags().StringVar(&featureRequest, "feature-request", "", "natural-language feature request")
	rootCmd.Flags().StringVar(&featureRequestSpec, "feature-request-spec", "", "path to a file containing the feature request")
	rootCmd.Flags().StringVar(&mode, "mode", "dry_run", "execution mode: dry_run or implement")
	rootCmd.Flags().BoolVar(&sandboxEnabled, "sandbox", false, "enable P5 sandbox verification")
	rootCmd.Flags().IntVar(&maxIteration, "max-iteration", 10, "sandbox retry cap")
	rootCmd.Flags().BoolVar(&enableGuardrail, "enable-guardrail", true, "enable P4 middleware guardrails")
	rootCmd.Flags().BoolVar(&noGuardrail, "no-guardrail", false, "disable P4 middleware guardrails")
	rootCmd.Flags().StringVar(&guardrailMode, "guardrail-mode", "strict", "guardrail mode: strict or soft")
	rootCmd.Flags().BoolVar(&watchMode, "watch", false, "re-run the workflow on repository changes instead of exiting after one pass")
	rootCmd.MarkFlagRequired("codebase-path")
}

func runForge(cmd *cobra.Command, args []string) error {
	if codebasePath == "" {
		fmt.Fprintln(os.Stderr, "--codebase-path is required")
		os.Exit(exitConfigError)
	}
	abs, err := filepath.Abs(codebasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid codebase-path: %v\n", err)
		os.Exit(exitConfigError)
	}
	codebasePath = abs

	request, err := resolveFeatureRequest()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}

	cfg, err := config.Load(codebasePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}
	applyFlagOverrides(cfg)

	if err := logging.Initialize(codebasePath, cfg.Logging.DebugMode, cfg.Logging.Categories, parseLevel(cfg.Logging.Level)); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
	}
	if err := logging.InitAudit(codebasePath, cfg.Logging.DebugMode); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to initialize audit trail: %v\n", err)
	}

	ctx := context.Background()
	llm, err := llmclient.New(ctx, cfg.LLM)
	if err != nil {
		logger.Error("llm client init failed", zap.Error(err))
		os.Exit(exitConfigError)
	}

	var sandbox types.Sandbox
	if cfg.Sandbox.Enabled {
		sandbox, err = sandboxrt.NewDockerSandbox("")
		if err != nil {
			logger.Warn("sandbox unavailable, continuing unverified", zap.Error(err))
			cfg.Sandbox.Enabled = false
		}
	}

	state, resumed, err := workflow.LoadCheckpoint(codebasePath)
	if err != nil {
		logger.Warn("failed to load checkpoint, starting fresh", zap.Error(err))
	}
	if !resumed || state == nil {
		state = types.NewAgentState(codebasePath, request, types.Mode(mode))
	}

	if watchMode {
		return watchAndRun(ctx, state, cfg, llm, sandbox, request)
	}

	events := make(chan workflow.Event, 16)
	go streamEvents(events)
	final := workflow.Run(ctx, state, cfg, llm, sandbox, events)
	close(events)

	return reportOutcome(final)
}

func streamEvents(events <-chan workflow.Event) {
	for evt := range events {
		logger.Info(string(evt.Type), zap.String("phase", string(evt.Phase)), zap.String("message", evt.Message))
	}
}

// watchAndRun re-runs the workflow from AnalyzeContext each time the
// repository changes, until the process is interrupted. Unlike the
// single-shot path it never calls os.Exit on a successful or degraded run —
// only a workflow fatal error stops the watch loop.
func watchAndRun(ctx context.Context, state *types.AgentState, cfg *config.Config, llm types.LLMClient, sandbox types.Sandbox, request string) error {
	watcher, err := discover.NewWatcher(state.CodebasePath)
	if err != nil {
		logger.Warn("watch mode unavailable, running once", zap.Error(err))
		events := make(chan workflow.Event, 16)
		go streamEvents(events)
		final := workflow.Run(ctx, state, cfg, llm, sandbox, events)
		close(events)
		return reportOutcome(final)
	}
	defer watcher.Stop()

	rerun := make(chan struct{}, 1)
	watcher.Start(ctx, func() {
		select {
		case rerun <- struct{}{}:
		default:
		}
	})

	runOnce := func() *types.AgentState {
		events := make(chan workflow.Event, 16)
		go streamEvents(events)
		fresh := types.NewAgentState(state.CodebasePath, request, state.Mode)
		final := workflow.Run(ctx, fresh, cfg, llm, sandbox, events)
		close(events)
		return final
	}

	final := runOnce()
	if final.CurrentPhase == types.PhaseError {
		return reportOutcome(final)
	}
	logger.Info("watch mode: waiting for repository changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-rerun:
			logger.Info("watch mode: change detected, re-running")
			final = runOnce()
			if final.CurrentPhase == types.PhaseError {
				return reportOutcome(final)
			}
		}
	}
}

func resolveFeatureRequest() (string, error) {
	switch {
	case featureRequest != "" && featureRequestSpec != "":
		return "", fmt.Errorf("specify exactly one of --feature-request or --feature-request-spec")
	case featureRequest != "":
		return featureRequest, nil
	case featureRequestSpec != "":
		data, err := os.ReadFile(featureRequestSpec)
		if err != nil {
			return "", fmt.Errorf("reading --feature-request-spec: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("specify one of --feature-request or --feature-request-spec")
	}
}

func applyFlagOverrides(cfg *config.Config) {
	cfg.Execution.Mode = mode
	cfg.Sandbox.Enabled = sandboxEnabled
	cfg.Sandbox.MaxIterations = maxIteration
	cfg.Guardrail.Enabled = enableGuardrail && !noGuardrail
	cfg.Guardrail.Mode = config.GuardrailMode(guardrailMode)
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func reportOutcome(state *types.AgentState) error {
	if state.CurrentPhase == types.PhaseError {
		fmt.Fprintln(os.Stderr, "workflow error:", state.FirstErrorMessage())
		os.Exit(exitWorkflowFatal)
	}
	if state.ExecutionResults != nil && state.ExecutionResults.VerificationStatus == "critical_error" {
		fmt.Fprintln(os.Stderr, "sandbox critical error")
		os.Exit(exitSandboxError)
	}
	fmt.Printf("forge: completed run %s (%d patches, status=%s)\n",
		state.RunID, len(state.Patches), verificationStatus(state))
	os.Exit(exitSuccess)
	return nil
}

func verificationStatus(state *types.AgentState) string {
	if state.ExecutionResults == nil {
		return "unknown"
	}
	return state.ExecutionResults.VerificationStatus
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}
}
