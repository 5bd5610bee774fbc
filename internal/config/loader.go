package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DirName is the per-project settings directory.
const DirName = ".fwscan"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FWSCAN"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// LoaderOption configures a Loader.
type LoaderOption func(*loader)

// WithConfigFile reads the given file instead of searching .fwscan/.
// A missing explicit file is an error.
func WithConfigFile(path string) LoaderOption {
	return func(l *loader) {
		l.configFile = path
	}
}

// NewLoader creates a new configuration loader for the given project root.
func NewLoader(rootDir string, opts ...LoaderOption) Loader {
	l := &loader{rootDir: rootDir}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (FWSCAN_*)
// 2. Config file (.fwscan/config.yml or .fwscan/config.yaml, or --config)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, DirName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// FWSCAN_BUILD_ENVIRONMENT -> build.environment
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnv(v)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// bindEnv binds the scalar keys so AutomaticEnv sees them during Unmarshal.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"paths.source_dir",
		"paths.lib_dir",
		"manifest.path",
		"partitions.path",
		"build.enabled",
		"build.tool",
		"build.environment",
		"build.timeout",
		"quality.indent_width",
		"quality.max_nesting",
		"quality.max_line_length",
		"quality.magic_digits",
		"quality.max_complexity",
		"output.dir",
		"output.format",
		"output.render",
		"output.renderer",
		"history.enabled",
		"history.path",
	} {
		_ = v.BindEnv(key)
	}
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("paths.source_dir", d.Paths.SourceDir)
	v.SetDefault("paths.lib_dir", d.Paths.LibDir)
	v.SetDefault("paths.code", d.Paths.Code)
	v.SetDefault("paths.headers", d.Paths.Headers)
	v.SetDefault("paths.ignore", d.Paths.Ignore)

	v.SetDefault("manifest.path", d.Manifest.Path)
	v.SetDefault("partitions.path", d.Partitions.Path)

	v.SetDefault("build.enabled", d.Build.Enabled)
	v.SetDefault("build.tool", d.Build.Tool)
	v.SetDefault("build.environment", d.Build.Environment)
	v.SetDefault("build.timeout", d.Build.Timeout)

	v.SetDefault("quality.indent_width", d.Quality.IndentWidth)
	v.SetDefault("quality.max_nesting", d.Quality.MaxNesting)
	v.SetDefault("quality.max_line_length", d.Quality.MaxLineLength)
	v.SetDefault("quality.magic_digits", d.Quality.MagicDigits)
	v.SetDefault("quality.max_complexity", d.Quality.MaxComplexity)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.render", d.Output.Render)
	v.SetDefault("output.renderer", d.Output.Renderer)

	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
}

// LoadConfigFromDir loads configuration for the project at rootDir.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
