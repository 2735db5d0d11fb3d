package exec

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"forge/internal/llmutil"
	"forge/internal/logging"
	"forge/internal/types"
)

// SandboxRunConfig mirrors config.SandboxConfig's fields needed by this
// package, kept separate so internal/exec does not import internal/config
// directly (callers translate at the boundary, mirroring codenerd's own
// separation between its config package and internal/build).
type SandboxRunConfig struct {
	Enabled       bool
	BuildTimeout  time.Duration
	RunTimeout    time.Duration
	MaxIterations int
	BuildCommand  string
	RunCommand    string

	// AutoFixOnBuildError, when true, asks LLM for a one-file corrective
	// edit after a failed build and applies it locally before the next
	// retry iteration. Off by default (spec.md's "MAY be omitted"
	// allowance); LLM must be non-nil for it to take effect.
	AutoFixOnBuildError bool
	LLM                 types.LLMClient
}

// autoFixSuggestion is the shape requested from the model: a single
// corrective full-file rewrite targeting the most likely offending file.
type autoFixSuggestion struct {
	File    string `json:"file"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// attemptAutoFix asks cfg.LLM to propose a single-file correction for a
// failed build, given the combined build log, and applies it directly to
// codebasePath. It never returns an error for a bad/unparseable
// suggestion — a skipped auto-fix just means the next iteration retries
// the unmodified build, same as auto-fix being disabled.
func attemptAutoFix(ctx context.Context, llm types.LLMClient, codebasePath, buildLog string, log *logging.Logger) {
	system := "You are diagnosing a failed build log. Propose exactly one corrective full-file rewrite " +
		"that is most likely to fix the failure. Respond with JSON: " +
		`{"file": "<path relative to repo root>", "content": "<full corrected file contents>", "reason": "<short reason>"}.`
	user := "Build log:\n\n" + buildLog

	var suggestion autoFixSuggestion
	raw, err := llm.CompleteWithSystem(ctx, system, user)
	if err != nil {
		log.Warn("auto-fix completion failed: %v", err)
		return
	}
	if err := json.Unmarshal([]byte(llmutil.ExtractJSON(raw)), &suggestion); err != nil {
		log.Warn("auto-fix response unparseable: %v", err)
		return
	}
	if suggestion.File == "" {
		log.Warn("auto-fix response named no file")
		return
	}

	target := filepath.Join(codebasePath, suggestion.File)
	if !withinCodebase(codebasePath, target) {
		log.Warn("auto-fix suggestion %s escapes codebase root, ignoring", suggestion.File)
		return
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		log.Warn("auto-fix mkdir failed: %v", err)
		return
	}
	if err := os.WriteFile(target, []byte(suggestion.Content), 0o644); err != nil {
		log.Warn("auto-fix write failed: %v", err)
		return
	}
	log.Info("auto-fix applied to %s: %s", suggestion.File, suggestion.Reason)
}

// criticalErrorPatterns is the case-insensitive regex set from §4.7 that
// stops the retry loop immediately on a match during the run phase.
var criticalErrorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)APPLICATION FAILED TO START`),
	regexp.MustCompile(`(?i)Port .* already in use`),
	regexp.MustCompile(`(?i)FATAL ERROR`),
	regexp.MustCompile(`(?i)OutOfMemoryError`),
	regexp.MustCompile(`(?i)ClassNotFoundException`),
	regexp.MustCompile(`(?i)No main class found`),
}

const samplingInterval = 2 * time.Second

// RunSandbox packages and verifies the repository per §4.7: build, then
// run with critical-error pattern checks against the run's output.
// Retries the build phase on non-critical build errors up to
// cfg.MaxIterations; never retries after a critical run error.
func RunSandbox(ctx context.Context, sandbox types.Sandbox, codebasePath string, cfg SandboxRunConfig, log *logging.Logger) *types.SandboxResult {
	result := &types.SandboxResult{}

	if err := sandbox.Create(ctx); err != nil {
		result.ErrorType = types.SandboxConfiguration
		result.Log = "sandbox create failed: " + err.Error()
		return result
	}
	defer sandbox.Close(ctx)

	if err := sandbox.Upload(ctx, codebasePath, "."); err != nil {
		result.ErrorType = types.SandboxConfiguration
		result.Log = "sandbox upload failed: " + err.Error()
		return result
	}

	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = 10
	}

	for iter := 1; iter <= maxIter; iter++ {
		result.Iterations = iter

		buildCtx, cancelBuild := context.WithTimeout(ctx, cfg.BuildTimeout)
		buildOK, buildLog, buildErrType := runBuild(buildCtx, sandbox, cfg)
		cancelBuild()
		result.Log += buildLog

		if !buildOK {
			result.ErrorType = buildErrType
			log.Warn("sandbox build failed on iteration %d/%d: %s", iter, maxIter, buildErrType)
			if cfg.AutoFixOnBuildError && cfg.LLM != nil && iter < maxIter {
				attemptAutoFix(ctx, cfg.LLM, codebasePath, buildLog, log)
			}
			continue // retry the build phase on non-critical build errors
		}
		result.BuildSuccess = true

		runCtx, cancelRun := context.WithTimeout(ctx, cfg.RunTimeout)
		runOK, critical, runLog, runErrType := runAndWatch(runCtx, sandbox, cfg, log)
		cancelRun()
		result.Log += runLog

		if critical {
			result.CriticalStop = true
			result.ErrorType = runErrType
			return result // never retry on critical run errors
		}
		if runOK {
			result.RunSuccess = true
			return result
		}
		result.ErrorType = runErrType
	}

	return result
}

func runBuild(ctx context.Context, sandbox types.Sandbox, cfg SandboxRunConfig) (ok bool, log string, errType types.SandboxErrorType) {
	stdout, stderr, exitCode, err := sandbox.Run(ctx, cfg.BuildCommand, int(cfg.BuildTimeout.Seconds()))
	combined := stdout + "\n" + stderr
	if err != nil || exitCode != 0 {
		return false, combined, classify(combined)
	}
	return true, combined, ""
}

// runAndWatch runs the application and samples output every samplingInterval
// up to cfg.RunTimeout looking for a critical-error pattern, using an
// errgroup to supervise the run goroutine and the polling goroutine
// together (mirrors codenerd's concurrent scan pattern of pairing a worker
// with a context-bound watcher). sandbox.Run hands back its output only when
// the command returns, so the complete output is checked once more after
// both goroutines finish.
func runAndWatch(ctx context.Context, sandbox types.Sandbox, cfg SandboxRunConfig, log *logging.Logger) (ok, critical bool, combinedLog string, errType types.SandboxErrorType) {
	var mu sync.Mutex
	var stdout, stderr string
	var exitCode int
	var runErr error

	read := func() (string, string) {
		mu.Lock()
		defer mu.Unlock()
		return stdout, stderr
	}

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		out, errOut, code, err := sandbox.Run(gctx, cfg.RunCommand, int(cfg.RunTimeout.Seconds()))
		mu.Lock()
		stdout, stderr, exitCode, runErr = out, errOut, code, err
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(samplingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return nil
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				out, errOut := read()
				if hit := matchCritical(out + errOut); hit != "" {
					log.Warn("critical error pattern matched during sandbox run: %s", hit)
					return errCritical{pattern: hit}
				}
			}
		}
	})

	waitErr := g.Wait()
	out, errOut := read()
	combined := out + "\n" + errOut

	var ce errCritical
	if asCritical(waitErr, &ce) {
		return false, true, combined, classify(combined)
	}
	if hit := matchCritical(combined); hit != "" {
		log.Warn("critical error pattern matched in sandbox run output: %s", hit)
		return false, true, combined, classify(combined)
	}
	if runErr != nil || exitCode != 0 {
		return false, false, combined, classify(combined)
	}
	return true, false, combined, ""
}

type errCritical struct{ pattern string }

func (e errCritical) Error() string { return "critical error pattern matched: " + e.pattern }

func asCritical(err error, target *errCritical) bool {
	if ce, ok := err.(errCritical); ok {
		*target = ce
		return true
	}
	return false
}

func matchCritical(text string) string {
	for _, re := range criticalErrorPatterns {
		if re.MatchString(text) {
			return re.String()
		}
	}
	return ""
}

func classify(log string) types.SandboxErrorType {
	lower := strings.ToLower(log)
	switch {
	case strings.Contains(lower, "classnotfoundexception") || strings.Contains(lower, "cannot find module") || strings.Contains(lower, "no module named"):
		return types.SandboxDependency
	case strings.Contains(lower, "port") && strings.Contains(lower, "already in use"):
		return types.SandboxRuntime
	case strings.Contains(lower, "outofmemoryerror") || strings.Contains(lower, "segmentation fault"):
		return types.SandboxRuntime
	case strings.Contains(lower, "syntax error") || strings.Contains(lower, "compilation failed") || strings.Contains(lower, "cannot find symbol"):
		return types.SandboxCompilation
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "network"):
		return types.SandboxNetwork
	case strings.Contains(lower, "no main class found") || strings.Contains(lower, "application failed to start"):
		return types.SandboxConfiguration
	default:
		return types.SandboxUnknown
	}
}
