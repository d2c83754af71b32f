package parsers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/lucasnoah/warnfactory/internal/analysis"
)

// NPMAuditParser parses npm audit --json output. Each vulnerable module
// becomes one issue located in package.json.
type NPMAuditParser struct {
	*analysis.Base
}

type npmAuditOutput struct {
	Vulnerabilities map[string]npmVulnerability `json:"vulnerabilities"`
}

type npmVulnerability struct {
	Name     string          `json:"name"`
	Severity string          `json:"severity"`
	Range    string          `json:"range"`
	Via      json.RawMessage `json:"via"`
}

type npmAdvisory struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// NewNPMAudit returns an npm audit parser with the given ID.
func NewNPMAudit(id string, opts ...analysis.Option) analysis.Parser {
	return &NPMAuditParser{Base: analysis.NewBase(id, opts...)}
}

// StdoutOnly reports true; the JSON report is printed on stdout.
func (p *NPMAuditParser) StdoutOnly() bool { return true }

func (p *NPMAuditParser) Parse(ctx context.Context, r io.Reader) (*analysis.Issues, error) {
	text, err := analysis.ReadTransformed(r, p.Transformer())
	if err != nil {
		return nil, analysis.NewParsingError(p.ID(), 0, err)
	}

	var raw npmAuditOutput
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, analysis.NewParsingError(p.ID(), 0, fmt.Errorf("could not parse npm audit JSON: %w", err))
	}

	names := make([]string, 0, len(raw.Vulnerabilities))
	for name := range raw.Vulnerabilities {
		names = append(names, name)
	}
	sort.Strings(names)

	issues := analysis.NewIssues()
	issues.SetOrigin(p.ID())
	for _, name := range names {
		if err := analysis.Canceled(ctx); err != nil {
			return nil, err
		}
		vuln := raw.Vulnerabilities[name]
		if vuln.Severity == "" {
			slog.Debug("skipping vulnerability without severity", "parser", p.ID(), "module", name)
			continue
		}
		title, url := describeVia(vuln.Via)
		issues.Add(p.IssueBuilder().
			SetFileName("package.json").
			SetPackageName(name).
			SetSeverity(npmSeverity(vuln.Severity)).
			SetCategory("Vulnerability").
			SetMessage(title).
			SetDescription(strings.TrimSpace(vuln.Range + " " + url)).
			Build())
	}
	return issues, nil
}

// describeVia extracts a title from the "via" field, which holds either
// advisory objects or names of the dependencies the problem comes through.
func describeVia(via json.RawMessage) (title, url string) {
	var entries []json.RawMessage
	if err := json.Unmarshal(via, &entries); err != nil || len(entries) == 0 {
		return "vulnerable dependency", ""
	}
	var adv npmAdvisory
	if err := json.Unmarshal(entries[0], &adv); err == nil && adv.Title != "" {
		return adv.Title, adv.URL
	}
	var dep string
	if err := json.Unmarshal(entries[0], &dep); err == nil && dep != "" {
		return "vulnerable through " + dep, ""
	}
	return "vulnerable dependency", ""
}

func npmSeverity(level string) analysis.Severity {
	switch level {
	case "critical":
		return analysis.SeverityError
	case "high":
		return analysis.SeverityHigh
	case "moderate":
		return analysis.SeverityNormal
	default:
		return analysis.SeverityLow
	}
}
