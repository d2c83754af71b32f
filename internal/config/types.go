package config

import "github.com/lucasnoah/warnfactory/internal/transform"

// Config is the top-level configuration parsed from warnfactory.yaml or
// warnfactory.toml.
type Config struct {
	Log           LogConfig        `yaml:"log" toml:"log"`
	Database      DatabaseConfig   `yaml:"database" toml:"database"`
	Defaults      CheckDefaults    `yaml:"defaults" toml:"defaults"`
	DefaultChecks []string         `yaml:"default_checks" toml:"default_checks"`
	Checks        map[string]Check `yaml:"checks" toml:"checks"`
	Gates         map[string]Gate  `yaml:"gates" toml:"gates"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // text or json
}

// DatabaseConfig points at the run history store. A postgres:// DSN selects
// PostgreSQL; anything else is a SQLite file path.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" toml:"dsn"`
}

// CheckDefaults holds values applied to checks that don't specify their own.
type CheckDefaults struct {
	Timeout string `yaml:"timeout" toml:"timeout"`
	FailOn  string `yaml:"fail_on" toml:"fail_on"`
}

// Check defines a tool invocation whose output is parsed into issues.
type Check struct {
	Command    string             `yaml:"command" toml:"command"`
	Parser     string             `yaml:"parser" toml:"parser"`
	Input      string             `yaml:"input" toml:"input"` // combined, stdout or stderr; empty lets the parser choose
	Timeout    string             `yaml:"timeout" toml:"timeout"`
	FixCommand string             `yaml:"fix_command" toml:"fix_command"`
	AutoFix    bool               `yaml:"auto_fix" toml:"auto_fix"`
	FailOn     string             `yaml:"fail_on" toml:"fail_on"`
	MaxIssues  *int               `yaml:"max_issues" toml:"max_issues"`
	Transform  transform.Settings `yaml:"transform" toml:"transform"`
}

// Gate groups checks that run together.
type Gate struct {
	Checks   []string `yaml:"checks" toml:"checks"`
	Continue bool     `yaml:"continue" toml:"continue"` // run all checks even if some fail
}
