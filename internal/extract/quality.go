package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// QualityRules holds the purely syntactic thresholds of the quality scanner.
type QualityRules struct {
	IndentWidth   int // whitespace characters per nesting level
	MaxNesting    int // levels above this are flagged
	MaxLineLength int // characters above this are flagged
	MagicDigits   int // minimum digit run counted as a magic number
}

// DefaultQualityRules returns the stock thresholds.
func DefaultQualityRules() QualityRules {
	return QualityRules{
		IndentWidth:   2,
		MaxNesting:    3,
		MaxLineLength: 120,
		MagicDigits:   3,
	}
}

// QualityScanner yields issues for single lines.
type QualityScanner struct {
	rules QualityRules
	magic *regexp.Regexp
}

// NewQualityScanner builds a scanner; zero-valued rule fields fall back to defaults.
func NewQualityScanner(rules QualityRules) *QualityScanner {
	def := DefaultQualityRules()
	if rules.IndentWidth <= 0 {
		rules.IndentWidth = def.IndentWidth
	}
	if rules.MaxNesting <= 0 {
		rules.MaxNesting = def.MaxNesting
	}
	if rules.MaxLineLength <= 0 {
		rules.MaxLineLength = def.MaxLineLength
	}
	if rules.MagicDigits <= 0 {
		rules.MagicDigits = def.MagicDigits
	}
	return &QualityScanner{
		rules: rules,
		magic: regexp.MustCompile(fmt.Sprintf(`\b\d{%d,}\b`, rules.MagicDigits)),
	}
}

// ScanLine runs every check independently. Numbers inside inline comments
// and string literals are still reported as magic numbers.
func (s *QualityScanner) ScanLine(file string, lineNo int, line string) []QualityIssue {
	var issues []QualityIssue

	indent := utf8.RuneCountInString(line) - utf8.RuneCountInString(strings.TrimLeftFunc(line, unicode.IsSpace))
	if level := indent / s.rules.IndentWidth; level > s.rules.MaxNesting {
		issues = append(issues, QualityIssue{
			Kind:     IssueDeepNesting,
			File:     file,
			Line:     lineNo,
			Message:  fmt.Sprintf("deep nesting (%d levels)", level),
			Severity: SeverityWarning,
		})
	}

	if n := utf8.RuneCountInString(line); n > s.rules.MaxLineLength {
		issues = append(issues, QualityIssue{
			Kind:     IssueLongLine,
			File:     file,
			Line:     lineNo,
			Message:  fmt.Sprintf("line too long (%d characters)", n),
			Severity: SeverityInfo,
		})
	}

	if s.magic.MatchString(line) && !strings.HasPrefix(strings.TrimSpace(line), "//") {
		issues = append(issues, QualityIssue{
			Kind:     IssueMagicNumber,
			File:     file,
			Line:     lineNo,
			Message:  "possible magic number",
			Severity: SeverityInfo,
		})
	}

	return issues
}

// ScanContent runs ScanLine over every physical line of content.
func (s *QualityScanner) ScanContent(file, content string) []QualityIssue {
	var issues []QualityIssue
	for i, line := range splitLines(content) {
		issues = append(issues, s.ScanLine(file, i+1, line)...)
	}
	return issues
}
