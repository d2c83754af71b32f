// Package analytics aggregates the recorded check history: how long checks
// take, how often they fail, and which issue categories and files dominate.
package analytics

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
)

// DB is the interface for database queries used by analytics.
type DB interface {
	Conn() *sql.DB
	Rebind(query string) string
}

// CheckDuration holds duration stats for a check.
type CheckDuration struct {
	Check string  `json:"check"`
	Count int     `json:"count"`
	Avg   float64 `json:"avg_ms"`
	P50   float64 `json:"p50_ms"`
	P95   float64 `json:"p95_ms"`
}

// QueryCheckDurations returns average and percentile durations per check.
// Canceled runs are excluded since they never ran to completion.
func QueryCheckDurations(database DB, since string) ([]CheckDuration, error) {
	query := `
		SELECT check_name, duration_ms
		FROM check_runs
		WHERE canceled = FALSE AND duration_ms IS NOT NULL`

	args := []interface{}{}
	if since != "" {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}

	rows, err := database.Conn().Query(database.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query check durations: %w", err)
	}
	defer rows.Close()

	durations := make(map[string][]float64)
	for rows.Next() {
		var check string
		var ms int64
		if err := rows.Scan(&check, &ms); err != nil {
			return nil, fmt.Errorf("scan check duration: %w", err)
		}
		durations[check] = append(durations[check], float64(ms))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var results []CheckDuration
	for check, values := range durations {
		sort.Float64s(values)
		results = append(results, CheckDuration{
			Check: check,
			Count: len(values),
			Avg:   avg(values),
			P50:   percentile(values, 50),
			P95:   percentile(values, 95),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Check < results[j].Check
	})
	return results, nil
}

// CheckFailure holds failure stats for a specific check.
type CheckFailure struct {
	Check          string  `json:"check"`
	Total          int     `json:"total"`
	Canceled       int     `json:"canceled"`
	FailRate       float64 `json:"fail_rate_pct"`
	AutoFixRate    float64 `json:"auto_fix_rate_pct"`
	CommonCategory string  `json:"common_categories"`
}

// QueryCheckFailures returns which checks fail most and their auto-fix rates.
// Rates are computed over completed runs; canceled runs are only counted.
func QueryCheckFailures(database DB, since string) ([]CheckFailure, error) {
	query := `
		SELECT check_name,
			SUM(CASE WHEN canceled THEN 0 ELSE 1 END) as total,
			SUM(CASE WHEN canceled THEN 1 ELSE 0 END) as canceled,
			SUM(CASE WHEN NOT passed AND NOT canceled THEN 1 ELSE 0 END) as failed,
			SUM(CASE WHEN auto_fixed THEN 1 ELSE 0 END) as auto_fixed
		FROM check_runs`

	args := []interface{}{}
	if since != "" {
		query += ` WHERE timestamp >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY check_name ORDER BY failed DESC, check_name`

	rows, err := database.Conn().Query(database.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query check failures: %w", err)
	}
	defer rows.Close()

	var results []CheckFailure
	for rows.Next() {
		var checkName string
		var total, canceled, failed, autoFixed int
		if err := rows.Scan(&checkName, &total, &canceled, &failed, &autoFixed); err != nil {
			return nil, fmt.Errorf("scan check failure: %w", err)
		}
		results = append(results, CheckFailure{
			Check:       checkName,
			Total:       total,
			Canceled:    canceled,
			FailRate:    pct(failed, total),
			AutoFixRate: pct(autoFixed, total),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Most frequent issue categories in failed runs per check
	for i := range results {
		catQuery := `
			SELECT i.category, COUNT(*) as cnt
			FROM issues i JOIN check_runs r ON r.id = i.run_id
			WHERE r.check_name = ? AND NOT r.passed AND i.category != ''`
		cArgs := []interface{}{results[i].Check}
		if since != "" {
			catQuery += ` AND r.timestamp >= ?`
			cArgs = append(cArgs, since)
		}
		catQuery += ` GROUP BY i.category ORDER BY cnt DESC, i.category LIMIT 2`

		cats, err := queryStrings(database, catQuery, cArgs...)
		if err != nil {
			return nil, fmt.Errorf("query categories for %q: %w", results[i].Check, err)
		}
		results[i].CommonCategory = strings.Join(cats, ", ")
	}

	return results, nil
}

// CategoryCount holds how often an issue category was reported.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
	Checks   int    `json:"checks"`
}

// QueryTopCategories returns the most reported issue categories across all
// checks, with the number of distinct checks that reported each.
func QueryTopCategories(database DB, since string, limit int) ([]CategoryCount, error) {
	query := `
		SELECT i.category, COUNT(*) as cnt, COUNT(DISTINCT r.check_name)
		FROM issues i JOIN check_runs r ON r.id = i.run_id
		WHERE i.category != ''`

	args := []interface{}{}
	if since != "" {
		query += ` AND r.timestamp >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY i.category ORDER BY cnt DESC, i.category`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := database.Conn().Query(database.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query top categories: %w", err)
	}
	defer rows.Close()

	var results []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count, &c.Checks); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// FileHotspot holds the issue count for a single source file.
type FileHotspot struct {
	File   string `json:"file"`
	Issues int    `json:"issues"`
	Errors int    `json:"errors"`
}

// QueryFileHotspots returns the files with the most reported issues. Issues
// without a file name are skipped.
func QueryFileHotspots(database DB, since string, limit int) ([]FileHotspot, error) {
	query := `
		SELECT i.file, COUNT(*) as cnt,
			SUM(CASE WHEN i.severity = 'ERROR' THEN 1 ELSE 0 END)
		FROM issues i JOIN check_runs r ON r.id = i.run_id
		WHERE i.file != '-'`

	args := []interface{}{}
	if since != "" {
		query += ` AND r.timestamp >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY i.file ORDER BY cnt DESC, i.file`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := database.Conn().Query(database.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query file hotspots: %w", err)
	}
	defer rows.Close()

	var results []FileHotspot
	for rows.Next() {
		var h FileHotspot
		if err := rows.Scan(&h.File, &h.Issues, &h.Errors); err != nil {
			return nil, fmt.Errorf("scan file hotspot: %w", err)
		}
		results = append(results, h)
	}
	return results, rows.Err()
}

// --- helpers ---

func queryStrings(database DB, query string, args ...interface{}) ([]string, error) {
	rows, err := database.Conn().Query(database.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		var cnt int
		if err := rows.Scan(&s, &cnt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*10) / 10
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper || upper >= len(sorted) {
		return math.Round(sorted[lower]*10) / 10
	}
	weight := rank - float64(lower)
	return math.Round((sorted[lower]*(1-weight)+sorted[upper]*weight)*10) / 10
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}
