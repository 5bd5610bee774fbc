package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptySourceDir indicates a missing source directory
	ErrEmptySourceDir = errors.New("empty source directory")

	// ErrEmptyPatterns indicates no code file patterns
	ErrEmptyPatterns = errors.New("empty code patterns")

	// ErrEmptyTool indicates the build tool is enabled but unnamed
	ErrEmptyTool = errors.New("empty build tool")

	// ErrInvalidTimeout indicates a negative build timeout
	ErrInvalidTimeout = errors.New("invalid build timeout")

	// ErrInvalidQuality indicates a non-positive quality threshold
	ErrInvalidQuality = errors.New("invalid quality threshold")

	// ErrInvalidFormat indicates an unsupported report format
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrEmptyHistoryPath indicates history is enabled without a database path
	ErrEmptyHistoryPath = errors.New("empty history path")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}
	if err := validateBuild(&cfg.Build); err != nil {
		errs = append(errs, err)
	}
	if err := validateQuality(&cfg.Quality); err != nil {
		errs = append(errs, err)
	}

	format := strings.ToLower(cfg.Output.Format)
	if format != "json" && format != "yaml" {
		errs = append(errs, fmt.Errorf("%w: must be 'json' or 'yaml', got '%s'", ErrInvalidFormat, cfg.Output.Format))
	}

	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		errs = append(errs, fmt.Errorf("%w: path is required when history is enabled", ErrEmptyHistoryPath))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.SourceDir) == "" {
		errs = append(errs, fmt.Errorf("%w: source_dir is required", ErrEmptySourceDir))
	}
	if len(cfg.Code) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one code pattern required", ErrEmptyPatterns))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateBuild(cfg *BuildConfig) error {
	var errs []error

	if cfg.Enabled && strings.TrimSpace(cfg.Tool) == "" {
		errs = append(errs, fmt.Errorf("%w: tool is required when build is enabled", ErrEmptyTool))
	}
	if cfg.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: timeout cannot be negative, got %s", ErrInvalidTimeout, cfg.Timeout))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateQuality(cfg *QualityConfig) error {
	var errs []error

	checks := []struct {
		name  string
		value int
	}{
		{"indent_width", cfg.IndentWidth},
		{"max_nesting", cfg.MaxNesting},
		{"max_line_length", cfg.MaxLineLength},
		{"magic_digits", cfg.MagicDigits},
		{"max_complexity", cfg.MaxComplexity},
	}
	for _, c := range checks {
		if c.value <= 0 {
			errs = append(errs, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidQuality, c.name, c.value))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The result still matches each sentinel with errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return &validationError{errs: errs}
}

type validationError struct {
	errs []error
}

func (e *validationError) Error() string {
	msgs := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *validationError) Unwrap() []error {
	return e.errs
}
