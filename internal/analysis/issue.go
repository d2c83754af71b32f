package analysis

// Issue is a single finding reported by a tool.
type Issue struct {
	FileName    string   `json:"file" msgpack:"file"`
	LineStart   int      `json:"line_start" msgpack:"line_start"`
	LineEnd     int      `json:"line_end" msgpack:"line_end"`
	ColumnStart int      `json:"column_start,omitempty" msgpack:"column_start,omitempty"`
	ColumnEnd   int      `json:"column_end,omitempty" msgpack:"column_end,omitempty"`
	Category    string   `json:"category,omitempty" msgpack:"category,omitempty"`
	Type        string   `json:"type" msgpack:"type"`
	Severity    Severity `json:"severity" msgpack:"severity"`
	Message     string   `json:"message" msgpack:"message"`
	Description string   `json:"description,omitempty" msgpack:"description,omitempty"`
	PackageName string   `json:"package,omitempty" msgpack:"package,omitempty"`
	ModuleName  string   `json:"module,omitempty" msgpack:"module,omitempty"`
	Origin      string   `json:"origin,omitempty" msgpack:"origin,omitempty"`
}

// UndefinedFile is used as file name when the tool did not report one.
const UndefinedFile = "-"

// IssueBuilder assembles an Issue field by field. A builder can be reused;
// every Build returns an independent value.
type IssueBuilder struct {
	issue Issue
}

// NewIssueBuilder returns an empty builder.
func NewIssueBuilder() *IssueBuilder {
	return &IssueBuilder{}
}

func (b *IssueBuilder) SetType(t string) *IssueBuilder {
	b.issue.Type = t
	return b
}

func (b *IssueBuilder) SetFileName(name string) *IssueBuilder {
	b.issue.FileName = name
	return b
}

func (b *IssueBuilder) SetLineStart(line int) *IssueBuilder {
	b.issue.LineStart = line
	return b
}

// SetLineStartText sets the start line from tool text, see ConvertLineNumber.
func (b *IssueBuilder) SetLineStartText(line string) *IssueBuilder {
	return b.SetLineStart(ConvertLineNumber(line))
}

func (b *IssueBuilder) SetLineEnd(line int) *IssueBuilder {
	b.issue.LineEnd = line
	return b
}

func (b *IssueBuilder) SetColumnStart(col int) *IssueBuilder {
	b.issue.ColumnStart = col
	return b
}

// SetColumnStartText sets the start column from tool text, see ConvertLineNumber.
func (b *IssueBuilder) SetColumnStartText(col string) *IssueBuilder {
	return b.SetColumnStart(ConvertLineNumber(col))
}

func (b *IssueBuilder) SetColumnEnd(col int) *IssueBuilder {
	b.issue.ColumnEnd = col
	return b
}

func (b *IssueBuilder) SetCategory(category string) *IssueBuilder {
	b.issue.Category = category
	return b
}

func (b *IssueBuilder) SetSeverity(sev Severity) *IssueBuilder {
	b.issue.Severity = sev
	return b
}

func (b *IssueBuilder) SetMessage(msg string) *IssueBuilder {
	b.issue.Message = msg
	return b
}

func (b *IssueBuilder) SetDescription(desc string) *IssueBuilder {
	b.issue.Description = desc
	return b
}

func (b *IssueBuilder) SetPackageName(name string) *IssueBuilder {
	b.issue.PackageName = name
	return b
}

func (b *IssueBuilder) SetModuleName(name string) *IssueBuilder {
	b.issue.ModuleName = name
	return b
}

func (b *IssueBuilder) SetOrigin(origin string) *IssueBuilder {
	b.issue.Origin = origin
	return b
}

// Build returns the issue. Missing values are filled in: an undefined file
// name, NORMAL severity, and an end line/column no smaller than the start.
func (b *IssueBuilder) Build() Issue {
	is := b.issue
	if is.FileName == "" {
		is.FileName = UndefinedFile
	}
	if is.Severity == 0 {
		is.Severity = SeverityNormal
	}
	if is.LineStart < 0 {
		is.LineStart = 0
	}
	if is.LineEnd < is.LineStart {
		is.LineEnd = is.LineStart
	}
	if is.ColumnEnd < is.ColumnStart {
		is.ColumnEnd = is.ColumnStart
	}
	return is
}
