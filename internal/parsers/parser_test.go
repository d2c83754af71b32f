package parsers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lucasnoah/warnfactory/internal/analysis"
)

func mustParse(t *testing.T, p analysis.Parser, input string) *analysis.Issues {
	t.Helper()
	issues, err := p.Parse(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return issues
}

func TestGCCParser_Warnings(t *testing.T) {
	input := `In file included from src/main.c:3:
src/util.h:7:13: warning: 'helper' defined but not used [-Wunused-function]
src/main.c:12:5: warning: 'gets' is deprecated
src/main.c:20: error: expected ';' before '}' token
src/io.c:4:10: fatal error: missing.h: No such file or directory
make: *** [all] Error 1`
	issues := mustParse(t, NewGCC("gcc"), input)
	if issues.Size() != 4 {
		t.Fatalf("expected 4 issues, got %d", issues.Size())
	}

	first := issues.Get(0)
	if first.FileName != "src/util.h" || first.LineStart != 7 || first.ColumnStart != 13 {
		t.Errorf("unexpected location: %s:%d:%d", first.FileName, first.LineStart, first.ColumnStart)
	}
	if first.Category != "Unused-function" {
		t.Errorf("expected category=Unused-function, got %q", first.Category)
	}
	if first.Message != "'helper' defined but not used" {
		t.Errorf("unexpected message: %q", first.Message)
	}
	if first.Type != "gcc" {
		t.Errorf("expected type=gcc, got %q", first.Type)
	}

	if got := issues.Get(1).Category; got != analysis.Deprecation {
		t.Errorf("expected heuristic category %q, got %q", analysis.Deprecation, got)
	}
	if got := issues.Get(2); got.Severity != analysis.SeverityError || got.ColumnStart != 0 {
		t.Errorf("expected error without column, got %+v", got)
	}
	if got := issues.Get(3); got.Severity != analysis.SeverityError || got.Message != "missing.h: No such file or directory" {
		t.Errorf("unexpected fatal error issue: %+v", got)
	}
}

func TestGCCParser_TransformerStripsPrefix(t *testing.T) {
	strip := func(s string) string { return strings.TrimPrefix(s, "[gcc] ") }
	issues := mustParse(t, NewGCC("clang", analysis.WithTransformer(strip)), "[gcc] a.c:1:2: note: declared here\n")
	if issues.Size() != 1 {
		t.Fatalf("expected 1 issue, got %d", issues.Size())
	}
	if issues.Get(0).Severity != analysis.SeverityLow {
		t.Errorf("expected note to be low severity, got %s", issues.Get(0).Severity)
	}
	if issues.Get(0).Type != "clang" {
		t.Errorf("expected type=clang, got %q", issues.Get(0).Type)
	}
}

func TestJavacParser(t *testing.T) {
	input := `[INFO] Compiling 12 source files
[WARNING] /work/src/Foo.java:[42,7] [unchecked] unchecked conversion
[WARNING] /work/src/Bar.java:[10] getDate() in Date has been deprecated
src/Baz.java:3: warning: [deprecation] foo() in Qux has been deprecated
src/Baz.java:9: error: sun.misc.Unsafe is internal proprietary API and may be removed
[ERROR] /work/src/Foo.java:[1,1] cannot find symbol`
	issues := mustParse(t, NewJavac("javac"), input)
	if issues.Size() != 5 {
		t.Fatalf("expected 5 issues, got %d", issues.Size())
	}

	want := []struct {
		file     string
		line     int
		column   int
		category string
		severity analysis.Severity
	}{
		{"/work/src/Foo.java", 42, 7, "Unchecked", analysis.SeverityNormal},
		{"/work/src/Bar.java", 10, 0, analysis.Deprecation, analysis.SeverityNormal},
		{"src/Baz.java", 3, 0, "Deprecation", analysis.SeverityNormal},
		{"src/Baz.java", 9, 0, analysis.ProprietaryAPI, analysis.SeverityError},
		{"/work/src/Foo.java", 1, 1, "", analysis.SeverityError},
	}
	for i, w := range want {
		got := issues.Get(i)
		if got.FileName != w.file || got.LineStart != w.line || got.ColumnStart != w.column {
			t.Errorf("issue %d: expected %s:%d:%d, got %s:%d:%d", i, w.file, w.line, w.column, got.FileName, got.LineStart, got.ColumnStart)
		}
		if got.Category != w.category {
			t.Errorf("issue %d: expected category=%q, got %q", i, w.category, got.Category)
		}
		if got.Severity != w.severity {
			t.Errorf("issue %d: expected severity=%s, got %s", i, w.severity, got.Severity)
		}
	}
}

func TestGoParser(t *testing.T) {
	input := `# example.com/app
./main.go:14:2: fmt.Printf format %d has arg s of wrong type string
vet: internal/db/db.go:30: ioutil.ReadFile is deprecated
ok  	example.com/app/internal	0.012s`
	issues := mustParse(t, NewGo("go"), input)
	if issues.Size() != 2 {
		t.Fatalf("expected 2 issues, got %d", issues.Size())
	}
	if got := issues.Get(0); got.FileName != "./main.go" || got.LineStart != 14 || got.ColumnStart != 2 {
		t.Errorf("unexpected first issue: %+v", got)
	}
	if got := issues.Get(1); got.FileName != "internal/db/db.go" || got.Category != analysis.Deprecation {
		t.Errorf("unexpected second issue: %+v", got)
	}
}

func TestTypeScriptParser_NoErrors(t *testing.T) {
	issues := mustParse(t, NewTypeScript("typescript"), "")
	if !issues.IsEmpty() {
		t.Errorf("expected no issues, got %d", issues.Size())
	}
}

func TestTypeScriptParser_Errors(t *testing.T) {
	input := `src/auth.ts(42,5): error TS2345: Argument of type 'string' is not assignable to parameter of type 'number'.
  src/index.ts(10,3): error TS2304: Cannot find name 'foo'.
Found 2 errors.`
	issues := mustParse(t, NewTypeScript("typescript"), input)
	if issues.Size() != 2 {
		t.Fatalf("expected 2 issues, got %d", issues.Size())
	}
	f := issues.Get(0)
	if f.FileName != "src/auth.ts" {
		t.Errorf("expected file=src/auth.ts, got %q", f.FileName)
	}
	if f.LineStart != 42 {
		t.Errorf("expected line=42, got %d", f.LineStart)
	}
	if f.Category != "TS2345" {
		t.Errorf("expected category=TS2345, got %q", f.Category)
	}
	if f.Severity != analysis.SeverityError {
		t.Errorf("expected severity=ERROR, got %s", f.Severity)
	}
	if issues.Get(1).FileName != "src/index.ts" {
		t.Errorf("expected indented line to match, got %q", issues.Get(1).FileName)
	}
}

func TestPrettierParser_AllFormatted(t *testing.T) {
	issues := mustParse(t, NewPrettier("prettier"), "Checking formatting...\nAll matched files use Prettier code style!")
	if !issues.IsEmpty() {
		t.Errorf("expected no issues, got %d", issues.Size())
	}
}

func TestPrettierParser_FilesNeedFormatting(t *testing.T) {
	input := `Checking formatting...
[warn] src/auth.ts
[warn] src/index.ts
[warn] Code style issues found in the above file(s). Forgot to run Prettier?`
	issues := mustParse(t, NewPrettier("prettier"), input)
	if issues.Size() != 2 {
		t.Fatalf("expected 2 issues, got %d", issues.Size())
	}
	if issues.Get(0).FileName != "src/auth.ts" {
		t.Errorf("expected src/auth.ts, got %q", issues.Get(0).FileName)
	}
	if issues.Get(0).LineStart != 0 {
		t.Errorf("expected line 0, got %d", issues.Get(0).LineStart)
	}
}

func TestESLintParser_Success(t *testing.T) {
	issues := mustParse(t, NewESLint("eslint"), `[{"filePath":"src/index.ts","messages":[]}]`)
	if !issues.IsEmpty() {
		t.Errorf("expected no issues, got %d", issues.Size())
	}
}

func TestESLintParser_EmptyInput(t *testing.T) {
	issues := mustParse(t, NewESLint("eslint"), "  \n")
	if !issues.IsEmpty() {
		t.Errorf("expected no issues, got %d", issues.Size())
	}
}

func TestESLintParser_Errors(t *testing.T) {
	input := `[{
		"filePath": "src/auth.ts",
		"messages": [
			{"ruleId": "no-unused-vars", "severity": 2, "message": "x is unused", "line": 42, "column": 5, "endLine": 42, "endColumn": 6},
			{"ruleId": "semi", "severity": 1, "message": "Missing semicolon", "line": 10, "column": 20}
		]
	}]`
	issues := mustParse(t, NewESLint("eslint"), input)
	if issues.Size() != 2 {
		t.Fatalf("expected 2 issues, got %d", issues.Size())
	}
	if issues.SizeOf(analysis.SeverityError) != 1 {
		t.Errorf("expected 1 error, got %d", issues.SizeOf(analysis.SeverityError))
	}
	first := issues.Get(0)
	if first.Category != "no-unused-vars" {
		t.Errorf("expected category=no-unused-vars, got %q", first.Category)
	}
	if first.ColumnEnd != 6 {
		t.Errorf("expected column_end=6, got %d", first.ColumnEnd)
	}
	if issues.Get(1).Severity != analysis.SeverityNormal {
		t.Errorf("expected severity=NORMAL, got %s", issues.Get(1).Severity)
	}
}

func TestESLintParser_InvalidJSON(t *testing.T) {
	_, err := NewESLint("eslint").Parse(context.Background(), strings.NewReader("not json"))
	if !errors.Is(err, analysis.ErrParsing) {
		t.Fatalf("expected parsing error, got %v", err)
	}
	if !strings.Contains(err.Error(), "eslint") {
		t.Errorf("expected parser ID in error, got %q", err.Error())
	}
}

func TestVitestParser_AllPass(t *testing.T) {
	input := `{
		"numTotalTests": 10,
		"numPassedTests": 10,
		"numFailedTests": 0,
		"testResults": []
	}`
	issues := mustParse(t, NewVitest("vitest"), input)
	if !issues.IsEmpty() {
		t.Errorf("expected no issues, got %d", issues.Size())
	}
}

func TestVitestParser_Failures(t *testing.T) {
	input := `{
		"testResults": [{
			"name": "auth.test.ts",
			"status": "failed",
			"assertionResults": [
				{"fullName": "should reject expired tokens", "status": "failed", "failureMessages": ["Expected 401, received 200\n    at auth.test.ts:12:7"], "location": {"line": 12, "column": 7}},
				{"fullName": "should accept valid tokens", "status": "passed", "failureMessages": []}
			]
		}]
	}`
	issues := mustParse(t, NewVitest("vitest"), input)
	if issues.Size() != 1 {
		t.Fatalf("expected 1 issue, got %d", issues.Size())
	}
	f := issues.Get(0)
	if f.Message != "should reject expired tokens: Expected 401, received 200" {
		t.Errorf("unexpected message: %q", f.Message)
	}
	if f.LineStart != 12 || f.FileName != "auth.test.ts" {
		t.Errorf("unexpected location: %s:%d", f.FileName, f.LineStart)
	}
}

func TestVitestParser_InvalidJSON(t *testing.T) {
	_, err := NewVitest("vitest").Parse(context.Background(), strings.NewReader("not json"))
	if !errors.Is(err, analysis.ErrParsing) {
		t.Fatalf("expected parsing error, got %v", err)
	}
}

func TestNPMAuditParser_Clean(t *testing.T) {
	input := `{"metadata":{"vulnerabilities":{"critical":0,"high":0,"moderate":0,"low":0,"info":0,"total":0}},"vulnerabilities":{}}`
	issues := mustParse(t, NewNPMAudit("npm-audit"), input)
	if !issues.IsEmpty() {
		t.Errorf("expected no issues, got %d", issues.Size())
	}
}

func TestNPMAuditParser_Vulnerabilities(t *testing.T) {
	input := `{
		"vulnerabilities": {
			"lodash": {"name": "lodash", "severity": "critical", "range": "<4.17.21",
				"via": [{"title": "Prototype Pollution", "url": "https://github.com/advisories/GHSA-1"}]},
			"express": {"name": "express", "severity": "moderate", "via": ["qs"]},
			"broken": {"name": "broken"}
		}
	}`
	issues := mustParse(t, NewNPMAudit("npm-audit"), input)
	if issues.Size() != 2 {
		t.Fatalf("expected 2 issues, got %d", issues.Size())
	}
	express, lodash := issues.Get(0), issues.Get(1)
	if express.PackageName != "express" || express.Message != "vulnerable through qs" {
		t.Errorf("unexpected express issue: %+v", express)
	}
	if lodash.Severity != analysis.SeverityError || lodash.Message != "Prototype Pollution" {
		t.Errorf("unexpected lodash issue: %+v", lodash)
	}
	if lodash.Description != "<4.17.21 https://github.com/advisories/GHSA-1" {
		t.Errorf("unexpected description: %q", lodash.Description)
	}
}

func TestNPMAuditParser_InvalidJSON(t *testing.T) {
	_, err := NewNPMAudit("npm-audit").Parse(context.Background(), strings.NewReader("not json"))
	if !errors.Is(err, analysis.ErrParsing) {
		t.Fatalf("expected parsing error, got %v", err)
	}
}

func TestParsers_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inputs := map[string]string{
		"gcc":       "a.c:1:1: warning: x\n",
		"eslint":    `[{"filePath":"a.js","messages":[]}]`,
		"vitest":    `{"testResults":[{"name":"a"}]}`,
		"npm-audit": `{"vulnerabilities":{"a":{"severity":"low"}}}`,
	}
	reg := Default()
	for id, input := range inputs {
		p, err := reg.New(id)
		if err != nil {
			t.Fatalf("new %s: %v", id, err)
		}
		_, err = p.Parse(ctx, strings.NewReader(input))
		if !analysis.IsCanceled(err) {
			t.Errorf("%s: expected canceled error, got %v", id, err)
		}
	}
}

func TestRustcParser(t *testing.T) {
	input := "   Compiling demo v0.1.0 (/work/demo)\r\n" +
		"warning: unused variable: `x`\r\n" +
		" --> src/main.rs:2:9\r\n" +
		"  |\r\n" +
		"2 |     let x = 5;\r\n" +
		"  |         ^ help: if this is intentional, prefix it with an underscore: `_x`\r\n" +
		"  |\r\n" +
		"  = note: `#[warn(unused_variables)]` on by default\r\n" +
		"\r\n" +
		"error[E0425]: cannot find value `y` in this scope\r\n" +
		"  --> src/lib.rs:14:5\r\n" +
		"\r\n" +
		"warning: use of deprecated function `old`\r\n" +
		" --> src/lib.rs:20:1\r\n" +
		"warning: `demo` (bin \"demo\") generated 2 warnings\r\n"
	issues := mustParse(t, NewRustc("cargo"), input)
	if issues.Size() != 3 {
		t.Fatalf("expected 3 issues, got %d", issues.Size())
	}

	first := issues.Get(0)
	if first.FileName != "src/main.rs" || first.LineStart != 2 || first.ColumnStart != 9 {
		t.Errorf("unexpected location: %s:%d:%d", first.FileName, first.LineStart, first.ColumnStart)
	}
	if first.Message != "unused variable: `x`" || first.Severity != analysis.SeverityNormal {
		t.Errorf("unexpected first issue: %+v", first)
	}
	if first.Type != "cargo" {
		t.Errorf("expected type=cargo, got %q", first.Type)
	}

	second := issues.Get(1)
	if second.Severity != analysis.SeverityError || second.Category != "E0425" {
		t.Errorf("unexpected error issue: %+v", second)
	}
	if got := issues.Get(2).Category; got != analysis.Deprecation {
		t.Errorf("expected heuristic category %q, got %q", analysis.Deprecation, got)
	}
}

func TestRustcParser_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRustc("rustc").Parse(ctx, strings.NewReader("warning: x\n --> a.rs:1:1\n"))
	if !errors.Is(err, analysis.ErrCanceled) {
		t.Errorf("expected ErrCanceled, got %v", err)
	}
}
