package db

import (
	"database/sql"
	"fmt"

	"fortio.org/safecast"

	"github.com/lucasnoah/warnfactory/internal/analysis"
)

// CheckRun represents a row in the check_runs table.
type CheckRun struct {
	ID         int64
	CheckName  string
	Parser     string
	Passed     bool
	Canceled   bool
	AutoFixed  bool
	ExitCode   int
	DurationMs int
	Summary    string
	IssueCount int
	Timestamp  string
}

const checkRunColumns = `id, check_name, parser, passed, canceled, auto_fixed, exit_code, duration_ms, summary, issue_count, timestamp`

// LogCheckRun stores a run and its issues in one transaction and returns the
// new run ID.
func (d *DB) LogCheckRun(run CheckRun, issues []analysis.Issue) (int64, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow(d.dialect.rebind(
		`INSERT INTO check_runs (check_name, parser, passed, canceled, auto_fixed, exit_code, duration_ms, summary, issue_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		run.CheckName, run.Parser, run.Passed, run.Canceled, run.AutoFixed,
		run.ExitCode, run.DurationMs, run.Summary, len(issues),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("log check run: %w", err)
	}

	stmt, err := tx.Prepare(d.dialect.rebind(
		`INSERT INTO issues (run_id, seq, file, line_start, line_end, column_start, column_end,
		 category, type, severity, message, description, package, module, origin)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, fmt.Errorf("prepare issue insert: %w", err)
	}
	defer stmt.Close()

	for i, is := range issues {
		if _, err := stmt.Exec(id, i, is.FileName, is.LineStart, is.LineEnd, is.ColumnStart, is.ColumnEnd,
			is.Category, is.Type, is.Severity.String(), is.Message, is.Description, is.PackageName, is.ModuleName, is.Origin); err != nil {
			return 0, fmt.Errorf("log issue %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit check run: %w", err)
	}
	return id, nil
}

// GetLatestCheckRun returns the most recent run of a check, or nil if it never ran.
func (d *DB) GetLatestCheckRun(checkName string) (*CheckRun, error) {
	row := d.conn.QueryRow(d.dialect.rebind(
		`SELECT `+checkRunColumns+` FROM check_runs WHERE check_name = ? ORDER BY id DESC LIMIT 1`),
		checkName,
	)
	r, err := scanCheckRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest check run: %w", err)
	}
	return r, nil
}

// GetCheckHistory returns runs newest first. An empty checkName returns all checks.
func (d *DB) GetCheckHistory(checkName string, limit int) ([]CheckRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + checkRunColumns + ` FROM check_runs`
	var args []any
	if checkName != "" {
		query += ` WHERE check_name = ?`
		args = append(args, checkName)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.conn.Query(d.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("get check history: %w", err)
	}
	defer rows.Close()

	var runs []CheckRun
	for rows.Next() {
		r, err := scanCheckRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetIssues returns the issues stored for a run in their original order.
func (d *DB) GetIssues(runID int64) ([]analysis.Issue, error) {
	rows, err := d.conn.Query(d.dialect.rebind(
		`SELECT file, line_start, line_end, column_start, column_end, category, type, severity,
		 message, description, package, module, origin
		 FROM issues WHERE run_id = ? ORDER BY seq`), runID)
	if err != nil {
		return nil, fmt.Errorf("get issues: %w", err)
	}
	defer rows.Close()

	var out []analysis.Issue
	for rows.Next() {
		var is analysis.Issue
		var lineStart, lineEnd, colStart, colEnd int64
		var severity string
		if err := rows.Scan(&is.FileName, &lineStart, &lineEnd, &colStart, &colEnd, &is.Category, &is.Type,
			&severity, &is.Message, &is.Description, &is.PackageName, &is.ModuleName, &is.Origin); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		if is.Severity, err = analysis.ParseSeverity(severity); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		if err := convertInts(
			[]*int{&is.LineStart, &is.LineEnd, &is.ColumnStart, &is.ColumnEnd},
			[]int64{lineStart, lineEnd, colStart, colEnd},
		); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		out = append(out, is)
	}
	return out, rows.Err()
}

// CategoryCounts returns the number of issues per category for a run.
// Issues without a category are counted under "".
func (d *DB) CategoryCounts(runID int64) (map[string]int, error) {
	rows, err := d.conn.Query(d.dialect.rebind(
		`SELECT category, COUNT(*) FROM issues WHERE run_id = ? GROUP BY category`), runID)
	if err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int64
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		v, err := safecast.Conv[int](n)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", category, err)
		}
		counts[category] = v
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckRun(row rowScanner) (*CheckRun, error) {
	var r CheckRun
	var exitCode, durationMs sql.NullInt64
	var summary sql.NullString
	var issueCount int64
	if err := row.Scan(&r.ID, &r.CheckName, &r.Parser, &r.Passed, &r.Canceled, &r.AutoFixed,
		&exitCode, &durationMs, &summary, &issueCount, &r.Timestamp); err != nil {
		return nil, err
	}
	r.Summary = summary.String
	if err := convertInts(
		[]*int{&r.ExitCode, &r.DurationMs, &r.IssueCount},
		[]int64{exitCode.Int64, durationMs.Int64, issueCount},
	); err != nil {
		return nil, err
	}
	return &r, nil
}

func convertInts(dst []*int, src []int64) error {
	for i, v := range src {
		n, err := safecast.Conv[int](v)
		if err != nil {
			return err
		}
		*dst[i] = n
	}
	return nil
}
