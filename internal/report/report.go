// Package report renders parsed issues as text, JSON or msgpack.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/lucasnoah/warnfactory/internal/analysis"
)

// Format selects the output encoding.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatMsgpack:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, json or msgpack)", s)
}

// Document is the serialized form of one parse: which parser produced the
// issues and the issues themselves.
type Document struct {
	Parser analysis.Descriptor `json:"parser" msgpack:"parser"`
	Source string              `json:"source,omitempty" msgpack:"source,omitempty"`
	Issues []analysis.Issue    `json:"issues" msgpack:"issues"`
}

// NewDocument captures the result of p parsing source.
func NewDocument(p analysis.Parser, source string, issues *analysis.Issues) Document {
	all := issues.All()
	if all == nil {
		all = []analysis.Issue{}
	}
	return Document{Parser: analysis.DescriptorOf(p), Source: source, Issues: all}
}

// Write renders docs to w.
func Write(w io.Writer, f Format, docs ...Document) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(docs)
	case FormatText, "":
		for _, d := range docs {
			writeText(w, d)
		}
		return nil
	}
	return fmt.Errorf("unknown format %q", f)
}

// ReadMsgpack decodes documents written with FormatMsgpack.
func ReadMsgpack(r io.Reader) ([]Document, error) {
	var docs []Document
	if err := msgpack.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode msgpack report: %w", err)
	}
	return docs, nil
}

var severityColors = map[analysis.Severity]*color.Color{
	analysis.SeverityError:  color.New(color.FgRed, color.Bold),
	analysis.SeverityHigh:   color.New(color.FgRed),
	analysis.SeverityNormal: color.New(color.FgYellow),
	analysis.SeverityLow:    color.New(color.FgCyan),
}

func writeText(w io.Writer, d Document) {
	header := d.Parser.String()
	if d.Source != "" {
		header = d.Source + ": " + header
	}
	fmt.Fprintln(w, color.New(color.Bold).Sprint(header))
	for _, is := range d.Issues {
		label := fmt.Sprintf("%-6s", is.Severity)
		if c, ok := severityColors[is.Severity]; ok {
			label = c.Sprint(label)
		}
		loc := is.FileName
		if is.LineStart > 0 {
			loc = fmt.Sprintf("%s:%d", loc, is.LineStart)
			if is.ColumnStart > 0 {
				loc = fmt.Sprintf("%s:%d", loc, is.ColumnStart)
			}
		}
		category := ""
		if is.Category != "" {
			category = " [" + is.Category + "]"
		}
		fmt.Fprintf(w, "  %s %s %s%s\n", label, loc, is.Message, category)
	}
	fmt.Fprintf(w, "  %s\n", Summary(d.Issues))
}

// Summary describes issue counts by severity, e.g.
// "3 issues (1 errors, 0 high, 2 normal, 0 low)".
func Summary(issues []analysis.Issue) string {
	counts := make(map[analysis.Severity]int)
	for _, is := range issues {
		counts[is.Severity]++
	}
	return fmt.Sprintf("%d issues (%d errors, %d high, %d normal, %d low)", len(issues),
		counts[analysis.SeverityError], counts[analysis.SeverityHigh],
		counts[analysis.SeverityNormal], counts[analysis.SeverityLow])
}
