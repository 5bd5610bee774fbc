package extract

// IncludeKind distinguishes quoted from angle-bracketed includes.
type IncludeKind string

const (
	IncludeLocal  IncludeKind = "local"
	IncludeSystem IncludeKind = "system"
)

// IncludeDirective is one #include line of a scanned file.
type IncludeDirective struct {
	File   string      `json:"file" yaml:"file"`
	Header string      `json:"header" yaml:"header"`
	Kind   IncludeKind `json:"kind" yaml:"kind"`
	Line   int         `json:"line" yaml:"line"`
}

// Scope of a declared variable.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeStatic  Scope = "static"
	ScopeUnknown Scope = "unknown"
)

// Storage is where a variable's bytes are expected to live at runtime.
// It is inferred from textual markers only.
type Storage string

const (
	StorageRAM     Storage = "ram"
	StorageFlash   Storage = "flash"
	StoragePSRAM   Storage = "psram"
	StorageUnknown Storage = "unknown"
)

// Variable is a declaration matched by one of the declaration patterns.
// The same statement may be recorded once per matching pattern.
type Variable struct {
	Name         string  `json:"name" yaml:"name"`
	Type         string  `json:"type" yaml:"type"`
	File         string  `json:"file" yaml:"file"`
	Line         int     `json:"line" yaml:"line"`
	Scope        Scope   `json:"scope" yaml:"scope"`
	Storage      Storage `json:"storage" yaml:"storage"`
	SizeEstimate int     `json:"size_estimate" yaml:"size_estimate"`
	Initialized  bool    `json:"initialized" yaml:"initialized"`
}

// IssueKind names a quality check.
type IssueKind string

const (
	IssueDeepNesting IssueKind = "deep_nesting"
	IssueLongLine    IssueKind = "long_line"
	IssueMagicNumber IssueKind = "magic_number"
)

// Severity of a quality issue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// QualityIssue is a syntactic finding on one physical line.
type QualityIssue struct {
	Kind     IssueKind `json:"type" yaml:"type"`
	File     string    `json:"file" yaml:"file"`
	Line     int       `json:"line" yaml:"line"`
	Message  string    `json:"message" yaml:"message"`
	Severity Severity  `json:"severity" yaml:"severity"`
}

// LibraryUsage aggregates the include occurrences tagged with one library label.
type LibraryUsage struct {
	Label string   `json:"label" yaml:"label"`
	Files []string `json:"files" yaml:"files"` // sorted, unique
	Count int      `json:"count" yaml:"count"` // every matching #include, across all files
}
