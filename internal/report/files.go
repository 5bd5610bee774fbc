// Package report writes analysis results: data reports as JSON or YAML, the
// plain text dependency report, DOT graphs and their PNG renderings, and the
// styled console summary.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Report base names, without extension.
const (
	LibraryReportName  = "library_dependency_report"
	StaticReportName   = "static_analysis_report"
	DependencyTextName = "dependency_report.txt"
)

// Data report formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnknownFormat is returned for a format other than json or yaml.
var ErrUnknownFormat = errors.New("unknown report format")

// Encode serializes v as indented JSON or as YAML.
func Encode(v any, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("failed to marshal yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to marshal yaml: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// WriteData writes v to dir/name.<format> and returns the path.
func WriteData(dir, name, format string, v any) (string, error) {
	data, err := Encode(v, format)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+"."+strings.ToLower(format))
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
