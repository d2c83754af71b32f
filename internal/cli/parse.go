package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/lucasnoah/warnfactory/internal/analysis"
	"github.com/lucasnoah/warnfactory/internal/parsers"
	"github.com/lucasnoah/warnfactory/internal/report"
	"github.com/lucasnoah/warnfactory/internal/transform"
)

// parseOpts holds the parse command flags.
type parseOpts struct {
	parser    string
	format    string
	failOn    string
	output    string
	jobs      int
	transform transform.Settings
}

var parseFlags parseOpts

var parseCmd = &cobra.Command{
	Use:   "parse [files...]",
	Short: "Parse tool output into issues",
	Long: `Parse reads tool output from each file (or stdin when no file or "-" is
given) with the selected parser and prints the issues found. Files are
parsed concurrently, each by its own parser instance.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := parseFlags
		format, err := report.ParseFormat(opts.format)
		if err != nil {
			return err
		}
		var failOn analysis.Severity
		if opts.failOn != "" {
			if failOn, err = analysis.ParseSeverity(opts.failOn); err != nil {
				return fmt.Errorf("--fail-on: %w", err)
			}
		}

		reg := parsers.Default()
		if !reg.Has(opts.parser) {
			return fmt.Errorf("%w: %q (known: %v)", parsers.ErrUnknownParser, opts.parser, reg.IDs())
		}
		var parserOpts []analysis.Option
		if !opts.transform.IsZero() {
			tr, err := transform.Build(opts.transform)
			if err != nil {
				return err
			}
			parserOpts = append(parserOpts, analysis.WithTransformer(tr))
		}

		sources := args
		if len(sources) == 0 {
			sources = []string{"-"}
		}

		docs, err := parseSources(cmd, reg, opts.parser, parserOpts, sources, opts.jobs)
		if err != nil {
			return err
		}
		if opts.output != "" {
			if err := report.WriteFile(opts.output, format, docs...); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
		} else if err := report.Write(cmd.OutOrStdout(), format, docs...); err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		if failOn != 0 {
			for _, d := range docs {
				for _, is := range d.Issues {
					if is.Severity.AtLeast(failOn) {
						return fmt.Errorf("found issues at or above %s", failOn)
					}
				}
			}
		}
		return nil
	},
}

// parseSources parses every source concurrently and returns the documents in
// source order. The first parsing error cancels the remaining parses.
func parseSources(cmd *cobra.Command, reg *parsers.Registry, id string, opts []analysis.Option, sources []string, jobs int) ([]report.Document, error) {
	docs := make([]report.Document, len(sources))
	g, ctx := errgroup.WithContext(cmd.Context())
	if jobs > 0 {
		g.SetLimit(jobs)
	}

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			p, err := reg.New(id, opts...)
			if err != nil {
				return err
			}
			r, closeFn, err := openSource(cmd, src)
			if err != nil {
				return err
			}
			defer closeFn()

			issues, err := p.Parse(ctx, r)
			if err != nil {
				if analysis.IsCanceled(err) {
					slog.Debug("parse canceled", "source", src)
					return nil
				}
				return fmt.Errorf("%s: %w", src, err)
			}
			for _, msg := range issues.ErrorMessages() {
				slog.Warn(msg, "source", src, "parser", analysis.Describe(p))
			}
			docs[i] = report.NewDocument(p, src, issues)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := cmd.Context().Err(); err != nil {
		return nil, errors.Join(analysis.ErrCanceled, err)
	}
	return docs, nil
}

// errTerminalInput is returned instead of blocking on an interactive stdin.
var errTerminalInput = errors.New("stdin is a terminal: pass files or pipe tool output")

func openSource(cmd *cobra.Command, src string) (io.Reader, func(), error) {
	if src == "-" {
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return nil, nil, errTerminalInput
		}
		return in, func() {}, nil
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", src, err)
	}
	return f, func() { f.Close() }, nil
}

var parsersCmd = &cobra.Command{
	Use:   "parsers",
	Short: "List the registered parser IDs",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := parsers.Default()
		w := cmd.OutOrStdout()
		for _, id := range reg.IDs() {
			p, err := reg.New(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, analysis.Describe(p))
		}
		return nil
	},
}

func init() {
	f := parseCmd.Flags()
	f.StringVarP(&parseFlags.parser, "parser", "p", "", "parser ID (see 'warnfactory parsers')")
	f.StringVar(&parseFlags.format, "format", "text", "output format: text, json or msgpack")
	f.StringVar(&parseFlags.failOn, "fail-on", "", "exit non-zero if an issue has at least this severity")
	f.StringVarP(&parseFlags.output, "output", "o", "", "write the report to this file instead of stdout")
	f.IntVarP(&parseFlags.jobs, "jobs", "j", 4, "maximum files parsed concurrently")
	f.StringVar(&parseFlags.transform.StripPrefix, "strip-prefix", "", "regexp removed from the start of each line")
	f.BoolVar(&parseFlags.transform.StripANSI, "strip-ansi", false, "remove ANSI escape sequences")
	f.BoolVar(&parseFlags.transform.TrimSpace, "trim-space", false, "trim surrounding whitespace from each line")
	f.BoolVar(&parseFlags.transform.NormalizeUnicode, "nfc", false, "normalize lines to Unicode NFC")
	_ = parseCmd.MarkFlagRequired("parser")
}
