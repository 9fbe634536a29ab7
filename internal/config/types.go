// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/modrt/modrt/pkg/manifest"
	"github.com/modrt/modrt/pkg/modmeta"
)

const (
	// LogLevelDebug logs namespace probing and hook dispatch.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs loads and unloads.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs only problems.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs only failures.
	LogLevelError LogLevel = "error"

	// DefaultModuleDir is scanned when no module_dirs are configured.
	DefaultModuleDir = "./modules"
	// DefaultWatchDebounce coalesces bursts of file events.
	DefaultWatchDebounce = 500 * time.Millisecond
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level of the CLI logger.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidConfigError collects field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// ModuleDirs are scanned for module subdirectories.
		ModuleDirs []string `json:"module_dirs" mapstructure:"module_dirs"`
		// DataDir is the root of the per-module data directories.
		DataDir string `json:"data_dir" mapstructure:"data_dir"`
		// LogLevel sets the CLI log level.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// Watch configures hot reloading for 'modrt run'.
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
		// DescriptorDefaults are layered under every module manifest.
		DescriptorDefaults DescriptorDefaults `json:"descriptor_defaults" mapstructure:"descriptor_defaults"`
	}

	// WatchConfig configures the module watcher.
	WatchConfig struct {
		Enabled  bool          `json:"enabled" mapstructure:"enabled"`
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
	}

	// DescriptorDefaults holds manifest attributes used when a manifest
	// does not set them.
	DescriptorDefaults struct {
		Authors []string `json:"authors" mapstructure:"authors"`
	}
)

// DefaultConfig returns the built-in configuration. DataDir is left empty and
// filled in by Load relative to the config directory.
func DefaultConfig() *Config {
	return &Config{
		ModuleDirs: []string{DefaultModuleDir},
		LogLevel:   LogLevelInfo,
		Watch: WatchConfig{
			Debounce: DefaultWatchDebounce,
		},
	}
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Level converts l to a charmbracelet/log level. Unknown values map to Info.
func (l LogLevel) Level() log.Level {
	lvl, err := log.ParseLevel(string(l))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for i, dir := range c.ModuleDirs {
		if strings.TrimSpace(dir) == "" {
			errs = append(errs, fmt.Errorf("module_dirs[%d]: must be non-empty", i))
		}
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce: must not be negative, got %s", c.Watch.Debounce))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Reader returns the descriptor defaults as a manifest reader to be layered
// under module manifests. Unset defaults are absent from the reader.
func (d DescriptorDefaults) Reader() manifest.Reader {
	m := manifest.Map{}
	if len(d.Authors) > 0 {
		m[modmeta.KeyAuthors] = append([]string(nil), d.Authors...)
	}
	return m
}
