package extract

import (
	"context"
	"os"
	"slices"
	"sort"

	"github.com/mvp-joe/fwscan/internal/discovery"
	"github.com/phuslu/log"
)

// ProgressReporter reports progress during a scan.
type ProgressReporter interface {
	OnScanStart(totalFiles int)
	OnFileScanned(fileName string)
	OnScanComplete(model *Model)
}

// FileHook sees the content of every file that was read successfully.
// It lets other passes share the single read of each file.
type FileHook func(file discovery.File, content []byte)

// Model is everything the extractor derives from one source tree.
// HeaderDirectives only feed include cycle detection.
type Model struct {
	Files            []string                      `json:"files" yaml:"files"`
	Skipped          []string                      `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Directives       map[string][]IncludeDirective `json:"directives" yaml:"directives"`
	HeaderDirectives map[string][]IncludeDirective `json:"header_directives" yaml:"header_directives"`
	Libraries        map[string]*LibraryUsage      `json:"libraries" yaml:"libraries"`
	Calls            map[string]int                `json:"calls" yaml:"calls"`
	Variables        []Variable                    `json:"variables" yaml:"variables"`
	Issues           []QualityIssue                `json:"issues" yaml:"issues"`
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		Files:            []string{},
		Directives:       make(map[string][]IncludeDirective),
		HeaderDirectives: make(map[string][]IncludeDirective),
		Libraries:        make(map[string]*LibraryUsage),
		Calls:            make(map[string]int),
		Variables:        []Variable{},
		Issues:           []QualityIssue{},
	}
}

// LibraryLabels returns the used library labels sorted by name.
func (m *Model) LibraryLabels() []string {
	labels := make([]string, 0, len(m.Libraries))
	for label := range m.Libraries {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// TotalIncludeOccurrences sums the counted includes across all libraries.
func (m *Model) TotalIncludeOccurrences() int {
	total := 0
	for _, u := range m.Libraries {
		total += u.Count
	}
	return total
}

func (m *Model) addLibrary(label, file string) {
	u, ok := m.Libraries[label]
	if !ok {
		u = &LibraryUsage{Label: label, Files: []string{}}
		m.Libraries[label] = u
	}
	u.Count++
	if i, found := slices.BinarySearch(u.Files, file); !found {
		u.Files = slices.Insert(u.Files, i, file)
	}
}

// Extractor builds a Model by reading each file once, sequentially.
type Extractor struct {
	quality  *QualityScanner
	progress ProgressReporter
	hooks    []FileHook
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithProgress configures progress reporting.
func WithProgress(progress ProgressReporter) Option {
	return func(e *Extractor) {
		e.progress = progress
	}
}

// WithQualityRules overrides the quality thresholds.
func WithQualityRules(rules QualityRules) Option {
	return func(e *Extractor) {
		e.quality = NewQualityScanner(rules)
	}
}

// WithFileHook registers a hook called with each file's content.
func WithFileHook(hook FileHook) Option {
	return func(e *Extractor) {
		e.hooks = append(e.hooks, hook)
	}
}

// NewExtractor creates an extractor with default quality rules.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		quality: NewQualityScanner(DefaultQualityRules()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract scans files in order. Code files feed every pass; header files
// only feed the variable pass. Unreadable files are logged and skipped.
// The only error returned is the context's.
func (e *Extractor) Extract(ctx context.Context, files []discovery.File) (*Model, error) {
	model := NewModel()

	if e.progress != nil {
		e.progress.OnScanStart(len(files))
	}

	for _, f := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		content, err := os.ReadFile(f.Path)
		if err != nil {
			log.Warn().Err(err).Str("file", f.Rel).Msg("cannot read source file, skipping")
			model.Skipped = append(model.Skipped, f.Rel)
			if e.progress != nil {
				e.progress.OnFileScanned(f.Rel)
			}
			continue
		}

		e.scanFile(model, f, string(content))
		for _, hook := range e.hooks {
			hook(f, content)
		}

		if e.progress != nil {
			e.progress.OnFileScanned(f.Rel)
		}
	}

	log.Debug().
		Int("files", len(model.Files)).
		Int("skipped", len(model.Skipped)).
		Int("variables", len(model.Variables)).
		Int("issues", len(model.Issues)).
		Int("libraries", len(model.Libraries)).
		Msg("source scan complete")

	if e.progress != nil {
		e.progress.OnScanComplete(model)
	}

	return model, nil
}

func (e *Extractor) scanFile(model *Model, f discovery.File, content string) {
	model.Files = append(model.Files, f.Rel)

	if f.Kind == discovery.KindCode {
		for _, label := range ScanLibraryIncludes(content) {
			model.addLibrary(label, f.Rel)
		}
		for call, n := range CountLibraryCalls(content) {
			model.Calls[call] += n
		}
		model.Directives[f.Rel] = ParseIncludeDirectives(f.Rel, content)
		model.Issues = append(model.Issues, e.quality.ScanContent(f.Rel, content)...)
	} else {
		model.HeaderDirectives[f.Rel] = ParseIncludeDirectives(f.Rel, content)
	}

	model.Variables = append(model.Variables, ScanVariables(f.Rel, content)...)
}
