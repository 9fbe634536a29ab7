// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/modrt/modrt/internal/issue"
	"github.com/modrt/modrt/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "modrt"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. MODRT_LOG_LEVEL.
	EnvPrefix = "MODRT"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the modrt configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions layers defaults, the config file and the environment, and
// returns the validated config with the path of the file it read ("" when
// none was found).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("module_dirs", defaults.ModuleDirs)
	v.SetDefault("data_dir", "")
	v.SetDefault("log_level", string(defaults.LogLevel))
	v.SetDefault("watch.enabled", defaults.Watch.Enabled)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce.String())
	v.SetDefault("descriptor_defaults.authors", []string{})

	if opts.LookupEnv != nil {
		for _, key := range v.AllKeys() {
			if val, ok := opts.LookupEnv(EnvKey(key)); ok {
				v.Set(key, val)
			}
		}
	} else {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return nil, "", err
	}

	resolvedPath, err := resolveConfigFile(opts, cfgDir)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Use 'modrt config show' to see the default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(cfgDir, "data")
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check the MODRT_* environment variables and the config file").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// resolveConfigFile picks the config file: the explicit path, then the
// config directory, then the working directory.
func resolveConfigFile(opts LoadOptions, cfgDir string) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	fileName := ConfigFileName + "." + ConfigFileExt
	if cuePath := filepath.Join(cfgDir, fileName); fileExists(cuePath) {
		return cuePath, nil
	}
	localCuePath := fileName
	if opts.WorkDir != "" {
		localCuePath = filepath.Join(opts.WorkDir, fileName)
	}
	if fileExists(localCuePath) {
		return localCuePath, nil
	}
	return "", nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper validates a CUE file against the #Config schema and
// merges its contents into Viper. Fields are optional, so the file is not
// required to be concrete beyond what it sets.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	unified, err := cueutil.Unify(configSchema, data, "#Config", cueutil.WithFilename(path))
	if err != nil {
		return err
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// EnvKey returns the environment variable overriding a config key, for
// example MODRT_WATCH_DEBOUNCE for "watch.debounce".
func EnvKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// GenerateCUE renders cfg as a config.cue document.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// modrt configuration\n\n")

	sb.WriteString("module_dirs: [")
	for i, dir := range cfg.ModuleDirs {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q", dir)
	}
	sb.WriteString("]\n")

	if cfg.DataDir != "" {
		fmt.Fprintf(&sb, "data_dir: %q\n", cfg.DataDir)
	}
	fmt.Fprintf(&sb, "log_level: %q\n", cfg.LogLevel)

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tenabled: %v\n", cfg.Watch.Enabled)
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce.String())
	sb.WriteString("}\n")

	if len(cfg.DescriptorDefaults.Authors) > 0 {
		sb.WriteString("\ndescriptor_defaults: {\n\tauthors: [")
		for i, a := range cfg.DescriptorDefaults.Authors {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%q", a)
		}
		sb.WriteString("]\n}\n")
	}

	return sb.String()
}
