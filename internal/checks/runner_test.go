package checks

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lucasnoah/warnfactory/internal/analysis"
	"github.com/lucasnoah/warnfactory/internal/parsers"
)

// mockCmd records calls and returns configured results.
type mockCmd struct {
	calls   []mockCall
	results []mockResult
	callIdx int
}

type mockCall struct {
	Dir     string
	Command string
}

type mockResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
	Block    bool // wait for ctx to finish and return its error
}

func (m *mockCmd) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	m.calls = append(m.calls, mockCall{Dir: dir, Command: command})
	if m.callIdx >= len(m.results) {
		return "", "", 0, nil
	}
	r := m.results[m.callIdx]
	m.callIdx++
	if r.Block {
		<-ctx.Done()
		return r.Stdout, r.Stderr, -1, ctx.Err()
	}
	return r.Stdout, r.Stderr, r.ExitCode, r.Err
}

const gccOutput = `src/main.c: In function 'main':
src/main.c:10:5: warning: unused variable 'x' [-Wunused-variable]
src/util.c:3:1: error: expected ';' before '}' token
`

func newTestRunner(mock *mockCmd) *Runner {
	return NewRunner(mock, parsers.Default())
}

func TestRunner_Run_HappyPath(t *testing.T) {
	mock := &mockCmd{
		results: []mockResult{
			{Stdout: "", ExitCode: 0},
		},
	}
	runner := newTestRunner(mock)

	result, err := runner.Run(context.Background(), "/tmp/test", CheckConfig{
		Name:    "build",
		Command: "make",
		Parser:  "gcc",
		Timeout: 30 * time.Second,
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Passed {
		t.Errorf("expected passed=true, got false")
	}
	if result.CheckName != "build" {
		t.Errorf("expected check_name=build, got %q", result.CheckName)
	}
	if result.Parser != "gcc" {
		t.Errorf("expected parser=gcc, got %q", result.Parser)
	}
	if result.Issues.Size() != 0 {
		t.Errorf("expected no issues, got %d", result.Issues.Size())
	}
	if result.Summary != "0 issues (0 errors, 0 high, 0 normal, 0 low)" {
		t.Errorf("unexpected summary %q", result.Summary)
	}
	if len(mock.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(mock.calls))
	}
	if mock.calls[0].Dir != "/tmp/test" {
		t.Errorf("expected dir=/tmp/test, got %q", mock.calls[0].Dir)
	}
	if mock.calls[0].Command != "make" {
		t.Errorf("expected command=make, got %q", mock.calls[0].Command)
	}
}

func TestRunner_Run_FailedCheck(t *testing.T) {
	mock := &mockCmd{
		results: []mockResult{
			{Stdout: gccOutput, ExitCode: 2},
		},
	}
	runner := newTestRunner(mock)

	result, err := runner.Run(context.Background(), "/tmp/test", CheckConfig{
		Name:    "build",
		Command: "make",
		Parser:  "gcc",
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Passed {
		t.Error("expected passed=false")
	}
	if result.ExitCode != 2 {
		t.Errorf("expected exit_code=2, got %d", result.ExitCode)
	}
	if result.Issues.Size() != 2 {
		t.Fatalf("expected 2 issues, got %d", result.Issues.Size())
	}
	first := result.Issues.Get(0)
	if first.FileName != "src/main.c" || first.LineStart != 10 || first.ColumnStart != 5 {
		t.Errorf("unexpected first issue location: %+v", first)
	}
	if first.Type != "gcc" {
		t.Errorf("expected type=gcc, got %q", first.Type)
	}
	if result.Summary != "2 issues (1 errors, 0 high, 1 normal, 0 low)" {
		t.Errorf("unexpected summary %q", result.Summary)
	}
}

func TestRunner_Run_FailOnThreshold(t *testing.T) {
	warnings := "src/main.c:10:5: warning: unused variable 'x' [-Wunused-variable]\n"

	tests := []struct {
		name   string
		stdout string
		failOn analysis.Severity
		passed bool
	}{
		{"no threshold", gccOutput, 0, true},
		{"warning below high", warnings, analysis.SeverityHigh, true},
		{"error reaches high", gccOutput, analysis.SeverityHigh, false},
		{"warning reaches normal", warnings, analysis.SeverityNormal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockCmd{results: []mockResult{{Stdout: tt.stdout, ExitCode: 0}}}
			result, err := newTestRunner(mock).Run(context.Background(), "/tmp", CheckConfig{
				Name:    "build",
				Command: "make",
				Parser:  "gcc",
				FailOn:  tt.failOn,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Passed != tt.passed {
				t.Errorf("passed = %v, want %v", result.Passed, tt.passed)
			}
		})
	}
}

func TestRunner_Run_MaxIssues(t *testing.T) {
	one, two := 1, 2
	for _, tt := range []struct {
		max    *int
		passed bool
	}{
		{nil, true},
		{&one, false},
		{&two, true},
	} {
		mock := &mockCmd{results: []mockResult{{Stdout: gccOutput, ExitCode: 0}}}
		result, err := newTestRunner(mock).Run(context.Background(), "/tmp", CheckConfig{
			Name:      "build",
			Command:   "make",
			Parser:    "gcc",
			MaxIssues: tt.max,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Passed != tt.passed {
			t.Errorf("max=%v: passed = %v, want %v", tt.max, result.Passed, tt.passed)
		}
	}
}

func TestRunner_Run_InputSelection(t *testing.T) {
	tests := []struct {
		input Input
		want  int
	}{
		{InputCombined, 2},
		{InputAuto, 2},
		{InputStdout, 1},
		{InputStderr, 1},
	}
	for _, tt := range tests {
		name := string(tt.input)
		if name == "" {
			name = "auto"
		}
		t.Run(name, func(t *testing.T) {
			mock := &mockCmd{results: []mockResult{{
				Stdout:   "a.c:1:1: warning: first\n",
				Stderr:   "b.c:2:1: warning: second\n",
				ExitCode: 0,
			}}}
			result, err := newTestRunner(mock).Run(context.Background(), "/tmp", CheckConfig{
				Name:    "build",
				Command: "make",
				Parser:  "gcc",
				Input:   tt.input,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Issues.Size() != tt.want {
				t.Errorf("expected %d issues, got %d", tt.want, result.Issues.Size())
			}
		})
	}
}

func TestRunner_Run_StructuredReporterIgnoresStderr(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{
		Stdout:   `[{"filePath":"/app/src/a.ts","messages":[{"ruleId":"no-unused-vars","severity":1,"message":"'x' is unused","line":3,"column":7}]}]`,
		Stderr:   "(node:123) ExperimentalWarning: VM Modules is an experimental feature\n",
		ExitCode: 1,
	}}}
	result, err := newTestRunner(mock).Run(context.Background(), "/tmp", CheckConfig{
		Name:    "lint",
		Command: "eslint -f json .",
		Parser:  "eslint",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Issues.Size() != 1 {
		t.Fatalf("expected 1 issue, got %d (summary %q)", result.Issues.Size(), result.Summary)
	}
	if got := result.Issues.Get(0).Category; got != "no-unused-vars" {
		t.Errorf("category = %q, want no-unused-vars", got)
	}

	mock = &mockCmd{results: []mockResult{{Stdout: mock.results[0].Stdout, Stderr: mock.results[0].Stderr}}}
	result, err = newTestRunner(mock).Run(context.Background(), "/tmp", CheckConfig{
		Name:    "lint",
		Command: "eslint -f json .",
		Parser:  "eslint",
		Input:   InputCombined,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Issues.Size() != 0 || !strings.Contains(result.Summary, "exit code 0") {
		t.Errorf("expected combined input to break the JSON parse, got %d issues, summary %q", result.Issues.Size(), result.Summary)
	}
}

func TestRunner_Run_Transform(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{
		Stdout:   "[build] src/main.c:10:5: warning: unused variable 'x'\n",
		ExitCode: 0,
	}}}
	result, err := newTestRunner(mock).Run(context.Background(), "/tmp", CheckConfig{
		Name:    "build",
		Command: "make",
		Parser:  "gcc",
		Transform: func(s string) string {
			return strings.TrimPrefix(s, "[build] ")
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Issues.Size() != 1 {
		t.Fatalf("expected 1 issue, got %d", result.Issues.Size())
	}
	if got := result.Issues.Get(0).FileName; got != "src/main.c" {
		t.Errorf("expected file src/main.c, got %q", got)
	}
}

func TestRunner_Run_UnknownParser(t *testing.T) {
	mock := &mockCmd{}
	_, err := newTestRunner(mock).Run(context.Background(), "/tmp", CheckConfig{
		Name:    "lint",
		Command: "npm run lint",
		Parser:  "nope",
	})
	if !errors.Is(err, parsers.ErrUnknownParser) {
		t.Fatalf("expected ErrUnknownParser, got %v", err)
	}
	if len(mock.calls) != 0 {
		t.Errorf("command should not run for an unknown parser, got %d calls", len(mock.calls))
	}
}

func TestRunner_Run_ParseError(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{Stdout: "not json", ExitCode: 1}}}
	result, err := newTestRunner(mock).Run(context.Background(), "/tmp", CheckConfig{
		Name:    "lint",
		Command: "eslint -f json .",
		Parser:  "eslint",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Passed {
		t.Error("expected passed=false on unparsable output")
	}
	if !strings.HasPrefix(result.Summary, "exit code 1 (") {
		t.Errorf("unexpected summary %q", result.Summary)
	}
}

func TestRunner_Run_ExecError(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{ExitCode: -1, Err: errors.New("sh: not found")}}}
	_, err := newTestRunner(mock).Run(context.Background(), "/tmp", CheckConfig{
		Name:    "build",
		Command: "make",
		Parser:  "gcc",
	})
	if err == nil {
		t.Fatal("expected error when the command cannot start")
	}
}

func TestRunner_Run_Timeout(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{Block: true}}}
	result, err := newTestRunner(mock).Run(context.Background(), "/tmp", CheckConfig{
		Name:    "build",
		Command: "make",
		Parser:  "gcc",
		Timeout: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Passed || result.Canceled {
		t.Errorf("expected a failed, non-canceled result, got %+v", result)
	}
	if result.Summary != "timeout after 10ms" {
		t.Errorf("unexpected summary %q", result.Summary)
	}
}

func TestRunner_Run_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := &mockCmd{results: []mockResult{{Block: true}}}
	result, err := newTestRunner(mock).Run(ctx, "/tmp", CheckConfig{
		Name:       "build",
		Command:    "make",
		Parser:     "gcc",
		AutoFix:    true,
		FixCommand: "make fix",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Canceled {
		t.Error("expected canceled=true")
	}
	if result.Passed {
		t.Error("canceled check must not pass")
	}
	if len(mock.calls) != 1 {
		t.Errorf("fix command must not run after cancel, got %d calls", len(mock.calls))
	}
}

func TestRunner_Run_AutoFix(t *testing.T) {
	mock := &mockCmd{
		results: []mockResult{
			{Stdout: gccOutput, ExitCode: 1}, // initial check fails
			{Stdout: "fixed", ExitCode: 0},   // fix command
			{Stdout: "", ExitCode: 0},        // re-check passes
		},
	}
	runner := newTestRunner(mock)

	result, err := runner.Run(context.Background(), "/tmp/test", CheckConfig{
		Name:       "build",
		Command:    "make",
		Parser:     "gcc",
		AutoFix:    true,
		FixCommand: "make fix",
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Passed {
		t.Error("expected passed=true after auto-fix")
	}
	if !result.AutoFixed {
		t.Error("expected auto_fixed=true")
	}
	if len(mock.calls) != 3 {
		t.Fatalf("expected 3 calls (check, fix, recheck), got %d", len(mock.calls))
	}
	if mock.calls[1].Command != "make fix" {
		t.Errorf("expected fix command, got %q", mock.calls[1].Command)
	}
}

func TestRunner_Run_AutoFixDisabled(t *testing.T) {
	mock := &mockCmd{
		results: []mockResult{
			{Stdout: gccOutput, ExitCode: 1},
		},
	}
	runner := newTestRunner(mock)

	result, err := runner.Run(context.Background(), "/tmp/test", CheckConfig{
		Name:       "build",
		Command:    "make",
		Parser:     "gcc",
		AutoFix:    false,
		FixCommand: "make fix",
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Passed {
		t.Error("expected passed=false")
	}
	if result.AutoFixed {
		t.Error("expected auto_fixed=false")
	}
	if len(mock.calls) != 1 {
		t.Errorf("expected 1 call (no fix), got %d", len(mock.calls))
	}
}

func TestParseInput(t *testing.T) {
	for in, want := range map[string]Input{
		"":         InputAuto,
		"combined": InputCombined,
		"stdout":   InputStdout,
		"stderr":   InputStderr,
	} {
		got, err := ParseInput(in)
		if err != nil || got != want {
			t.Errorf("ParseInput(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseInput("both"); err == nil {
		t.Error("expected error for unknown input")
	}
}

func TestExecRunner(t *testing.T) {
	stdout, stderr, code, err := (&ExecRunner{}).Run(context.Background(), t.TempDir(), "echo out; echo err >&2; exit 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout != "out\n" || stderr != "err\n" {
		t.Errorf("unexpected output %q / %q", stdout, stderr)
	}
	if code != 3 {
		t.Errorf("expected exit code 3, got %d", code)
	}
}
