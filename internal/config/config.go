// Package config loads fwscan settings for a firmware project.
//
// Settings come from .fwscan/config.yml (or config.yaml) under the project
// root, with FWSCAN_* environment variables taking precedence and Default()
// filling in anything left unset. Nested keys map to env names with
// underscores, e.g. FWSCAN_BUILD_ENVIRONMENT.
package config

import (
	"path/filepath"
	"time"
)

// Config represents the complete fwscan configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Manifest   ManifestConfig   `yaml:"manifest" mapstructure:"manifest"`
	Partitions PartitionsConfig `yaml:"partitions" mapstructure:"partitions"`
	Build      BuildConfig      `yaml:"build" mapstructure:"build"`
	Quality    QualityConfig    `yaml:"quality" mapstructure:"quality"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	History    HistoryConfig    `yaml:"history" mapstructure:"history"`
}

// PathsConfig defines where sources live and which files are scanned.
// Glob patterns are relative to SourceDir.
type PathsConfig struct {
	SourceDir string   `yaml:"source_dir" mapstructure:"source_dir"`
	LibDir    string   `yaml:"lib_dir" mapstructure:"lib_dir"`
	Code      []string `yaml:"code" mapstructure:"code"`       // files that get every pass
	Headers   []string `yaml:"headers" mapstructure:"headers"` // files scanned for variables only
	Ignore    []string `yaml:"ignore" mapstructure:"ignore"`
}

// ManifestConfig locates the PlatformIO project file.
type ManifestConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PartitionsConfig locates the flash partition table.
type PartitionsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// BuildConfig controls calls to the PlatformIO tool.
type BuildConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	Tool        string        `yaml:"tool" mapstructure:"tool"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"` // 0 means no limit
}

// QualityConfig holds the code quality thresholds.
type QualityConfig struct {
	IndentWidth   int `yaml:"indent_width" mapstructure:"indent_width"`
	MaxNesting    int `yaml:"max_nesting" mapstructure:"max_nesting"`
	MaxLineLength int `yaml:"max_line_length" mapstructure:"max_line_length"`
	MagicDigits   int `yaml:"magic_digits" mapstructure:"magic_digits"`
	MaxComplexity int `yaml:"max_complexity" mapstructure:"max_complexity"`
}

// OutputConfig controls where and how reports are written.
type OutputConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	Format   string `yaml:"format" mapstructure:"format"`     // "json" or "yaml"
	Render   bool   `yaml:"render" mapstructure:"render"`     // render DOT graphs to PNG
	Renderer string `yaml:"renderer" mapstructure:"renderer"` // graphviz executable
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// Default returns a configuration with sensible defaults for an ESP32-S3
// PlatformIO project.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			SourceDir: "src",
			LibDir:    "lib",
			Code:      []string{"**/*.cpp"},
			Headers:   []string{"**/*.h"},
			Ignore:    []string{"**/.pio/**"},
		},
		Manifest: ManifestConfig{
			Path: "platformio.ini",
		},
		Partitions: PartitionsConfig{
			Path: "FLASH_8MB.csv",
		},
		Build: BuildConfig{
			Enabled:     true,
			Tool:        "pio",
			Environment: "esp32-s3-devkitc-1",
		},
		Quality: QualityConfig{
			IndentWidth:   2,
			MaxNesting:    3,
			MaxLineLength: 120,
			MagicDigits:   3,
			MaxComplexity: 10,
		},
		Output: OutputConfig{
			Dir:      ".",
			Format:   "json",
			Render:   true,
			Renderer: "dot",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    ".fwscan/history.db",
		},
	}
}

// Resolve returns p joined to root unless it is already absolute.
func Resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
