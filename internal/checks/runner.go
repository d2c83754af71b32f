package checks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/lucasnoah/warnfactory/internal/analysis"
	"github.com/lucasnoah/warnfactory/internal/parsers"
	"github.com/lucasnoah/warnfactory/internal/report"
)

// DefaultTimeout applies to checks without a timeout of their own.
const DefaultTimeout = 2 * time.Minute

// Result holds the structured output of a check run.
type Result struct {
	CheckName  string           `json:"check_name"`
	Parser     string           `json:"parser"`
	Passed     bool             `json:"passed"`
	AutoFixed  bool             `json:"auto_fixed"`
	Canceled   bool             `json:"canceled,omitempty"`
	ExitCode   int              `json:"exit_code"`
	DurationMs int              `json:"duration_ms"`
	Summary    string           `json:"summary"`
	Issues     *analysis.Issues `json:"issues"`
	Stdout     string           `json:"-"`
	Stderr     string           `json:"-"`
}

// CheckConfig holds the fields the runner needs for one check.
type CheckConfig struct {
	Name       string
	Command    string
	Parser     string
	Timeout    time.Duration
	AutoFix    bool
	FixCommand string
	Transform  analysis.Transformer // nil keeps the parser's identity transformer
	FailOn     analysis.Severity    // 0 disables the severity threshold
	MaxIssues  *int                 // nil disables the count threshold
	Input      Input
}

// Input selects which output stream is handed to the parser.
type Input string

const (
	InputAuto     Input = ""         // stdout for structured reporters, combined otherwise
	InputCombined Input = "combined" // stdout followed by stderr
	InputStdout   Input = "stdout"
	InputStderr   Input = "stderr"
)

// ParseInput validates a stream name. An empty name selects InputAuto.
func ParseInput(s string) (Input, error) {
	switch in := Input(s); in {
	case InputAuto, InputCombined, InputStdout, InputStderr:
		return in, nil
	}
	return "", fmt.Errorf("unknown input %q (want combined, stdout or stderr)", s)
}

// resolve picks the concrete stream for p when in is InputAuto.
func (in Input) resolve(p analysis.Parser) Input {
	if in != InputAuto {
		return in
	}
	if s, ok := p.(parsers.StdoutReader); ok && s.StdoutOnly() {
		return InputStdout
	}
	return InputCombined
}

func (in Input) text(stdout, stderr string) string {
	switch in {
	case InputStdout:
		return stdout
	case InputStderr:
		return stderr
	}
	return joinOutput(stdout, stderr)
}

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string) (stdout string, stderr string, exitCode int, err error)
}

// ExecRunner implements CommandRunner by shelling out.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec: %w", err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// Runner executes checks and parses their output into issues.
type Runner struct {
	cmd     CommandRunner
	parsers *parsers.Registry
	log     *slog.Logger
}

// NewRunner creates a Runner with the given command runner and parser registry.
func NewRunner(cmd CommandRunner, reg *parsers.Registry) *Runner {
	return &Runner{
		cmd:     cmd,
		parsers: reg,
		log:     slog.Default(),
	}
}

// WithLogger replaces the logger used for run progress.
func (r *Runner) WithLogger(l *slog.Logger) *Runner {
	r.log = l
	return r
}

// Run executes a single check in the given directory. It returns an error
// only for problems outside the checked tool's control: an unknown parser or
// a command that could not be started.
func (r *Runner) Run(ctx context.Context, dir string, cfg CheckConfig) (*Result, error) {
	if !r.parsers.Has(cfg.Parser) {
		return nil, fmt.Errorf("check %q: %w: %q", cfg.Name, parsers.ErrUnknownParser, cfg.Parser)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	result, err := r.runOnce(ctx, dir, cfg, timeout)
	if err != nil {
		return nil, err
	}

	// Auto-fix: if check failed, auto_fix enabled, and fix_command set, run fix then re-check
	if !result.Passed && !result.Canceled && cfg.AutoFix && cfg.FixCommand != "" {
		r.log.Info("running fix command", "check", cfg.Name)
		fixCtx, cancel := context.WithTimeout(ctx, timeout)
		// Run fix command; its exit code is ignored, fixers often exit non-zero
		_, _, _, _ = r.cmd.Run(fixCtx, dir, cfg.FixCommand)
		cancel()

		recheck, err := r.runOnce(ctx, dir, cfg, timeout)
		if err != nil {
			return nil, fmt.Errorf("re-run after fix: %w", err)
		}
		recheck.AutoFixed = true
		return recheck, nil
	}

	return result, nil
}

// runOnce executes a check command once and parses the output.
func (r *Runner) runOnce(ctx context.Context, dir string, cfg CheckConfig, timeout time.Duration) (*Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.log.Info("running check", "check", cfg.Name, "parser", cfg.Parser, "dir", dir)
	start := time.Now()
	stdout, stderr, exitCode, err := r.cmd.Run(runCtx, dir, cfg.Command)
	durationMs := int(time.Since(start).Milliseconds())

	result := &Result{
		CheckName:  cfg.Name,
		Parser:     cfg.Parser,
		ExitCode:   exitCode,
		DurationMs: durationMs,
		Issues:     analysis.NewIssues(),
		Stdout:     stdout,
		Stderr:     stderr,
	}

	if err != nil {
		switch {
		case ctx.Err() != nil:
			r.log.Info("check canceled", "check", cfg.Name)
			result.Canceled = true
			result.ExitCode = -1
			result.Summary = "canceled"
			return result, nil
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			r.log.Warn("check timed out", "check", cfg.Name, "timeout", timeout)
			result.ExitCode = -1
			result.Summary = fmt.Sprintf("timeout after %s", timeout)
			return result, nil
		}
		return nil, fmt.Errorf("run check %q: %w", cfg.Name, err)
	}

	var opts []analysis.Option
	if cfg.Transform != nil {
		opts = append(opts, analysis.WithTransformer(cfg.Transform))
	}
	parser, err := r.parsers.New(cfg.Parser, opts...)
	if err != nil {
		return nil, err
	}

	issues, err := parser.Parse(ctx, strings.NewReader(cfg.Input.resolve(parser).text(stdout, stderr)))
	switch {
	case analysis.IsCanceled(err):
		r.log.Info("check canceled while parsing", "check", cfg.Name)
		result.Canceled = true
		result.Summary = "canceled"
		return result, nil
	case err != nil:
		r.log.Error("could not parse check output", "check", cfg.Name, "parser", analysis.Describe(parser), "err", err)
		result.Summary = fmt.Sprintf("exit code %d (%v)", exitCode, err)
		return result, nil
	}

	for _, msg := range issues.ErrorMessages() {
		r.log.Warn(msg, "check", cfg.Name)
	}
	for _, msg := range issues.InfoMessages() {
		r.log.Debug(msg, "check", cfg.Name)
	}

	result.Issues = issues
	result.Passed = exitCode == 0 && cfg.accepts(issues)
	result.Summary = report.Summary(issues.All())
	r.log.Info("check finished", "check", cfg.Name, "passed", result.Passed,
		"issues", issues.Size(), "duration_ms", durationMs)
	return result, nil
}

// accepts reports whether issues stay within the configured thresholds.
func (cfg CheckConfig) accepts(issues *analysis.Issues) bool {
	if cfg.MaxIssues != nil && issues.Size() > *cfg.MaxIssues {
		return false
	}
	if cfg.FailOn == 0 {
		return true
	}
	for _, is := range issues.All() {
		if is.Severity.AtLeast(cfg.FailOn) {
			return false
		}
	}
	return true
}

func joinOutput(stdout, stderr string) string {
	if stderr == "" {
		return stdout
	}
	if stdout == "" {
		return stderr
	}
	return strings.TrimSuffix(stdout, "\n") + "\n" + stderr
}
