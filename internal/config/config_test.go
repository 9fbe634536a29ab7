// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/modrt/modrt/internal/issue"
	"github.com/modrt/modrt/pkg/manifest"
	"github.com/modrt/modrt/pkg/modmeta"
)

// env returns a LookupEnv backed by vars, isolating tests from the process environment.
func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func load(t *testing.T, opts LoadOptions) (*Config, string, error) {
	t.Helper()
	if opts.ConfigDirPath == "" {
		opts.ConfigDirPath = t.TempDir()
	}
	if opts.WorkDir == "" {
		opts.WorkDir = t.TempDir()
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = env(nil)
	}
	return NewProvider().Load(context.Background(), opts)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	want := &Config{
		ModuleDirs: []string{"./modules"},
		LogLevel:   LogLevelInfo,
		Watch:      WatchConfig{Debounce: 500 * time.Millisecond},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("DefaultConfig() mismatch (-want +got):\n%s", diff)
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("DefaultConfig() is invalid: %v", errs)
	}
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, path, err := load(t, LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("Load() path = %q, want none", path)
	}

	want := DefaultConfig()
	want.DataDir = filepath.Join(dir, "data")
	if diff := cmp.Diff(want, cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_ConfigFileLookup(t *testing.T) {
	t.Parallel()

	const content = `
module_dirs: ["/opt/modules", "./local"]
data_dir:    "/var/lib/modrt"
log_level:   "debug"
watch: {
	enabled:  true
	debounce: "1m30s"
}
descriptor_defaults: authors: ["ops"]
`
	want := &Config{
		ModuleDirs: []string{"/opt/modules", "./local"},
		DataDir:    "/var/lib/modrt",
		LogLevel:   LogLevelDebug,
		Watch:      WatchConfig{Enabled: true, Debounce: 90 * time.Second},
		DescriptorDefaults: DescriptorDefaults{
			Authors: []string{"ops"},
		},
	}

	tests := []struct {
		name  string
		place func(t *testing.T, cfgDir, workDir string) (LoadOptions, string)
	}{
		{
			name: "config dir",
			place: func(t *testing.T, cfgDir, workDir string) (LoadOptions, string) {
				p := filepath.Join(cfgDir, "config.cue")
				writeFile(t, p, content)
				// The config dir wins over the working directory.
				writeFile(t, filepath.Join(workDir, "config.cue"), `log_level: "error"`)
				return LoadOptions{}, p
			},
		},
		{
			name: "working directory",
			place: func(t *testing.T, _, workDir string) (LoadOptions, string) {
				p := filepath.Join(workDir, "config.cue")
				writeFile(t, p, content)
				return LoadOptions{}, p
			},
		},
		{
			name: "explicit file",
			place: func(t *testing.T, cfgDir, _ string) (LoadOptions, string) {
				writeFile(t, filepath.Join(cfgDir, "config.cue"), `log_level: "error"`)
				p := filepath.Join(t.TempDir(), "custom.cue")
				writeFile(t, p, content)
				return LoadOptions{ConfigFilePath: p}, p
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfgDir, workDir := t.TempDir(), t.TempDir()
			opts, wantPath := tt.place(t, cfgDir, workDir)
			opts.ConfigDirPath, opts.WorkDir = cfgDir, workDir

			cfg, path, err := load(t, opts)
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if path != wantPath {
				t.Errorf("Load() path = %q, want %q", path, wantPath)
			}
			if diff := cmp.Diff(want, cfg); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.cue"), `
log_level: "debug"
watch: enabled: false
`)
	cfg, _, err := load(t, LoadOptions{
		ConfigDirPath: dir,
		LookupEnv: env(map[string]string{
			"MODRT_LOG_LEVEL":      "warn",
			"MODRT_MODULE_DIRS":    "a,b",
			"MODRT_WATCH_ENABLED":  "true",
			"MODRT_WATCH_DEBOUNCE": "2s",
			"MODRT_DATA_DIR":       "/tmp/modrt-data",
		}),
	})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	want := &Config{
		ModuleDirs: []string{"a", "b"},
		DataDir:    "/tmp/modrt-data",
		LogLevel:   LogLevelWarn,
		Watch:      WatchConfig{Enabled: true, Debounce: 2 * time.Second},
	}
	if diff := cmp.Diff(want, cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		opts    func(t *testing.T) LoadOptions
		wantIs  error
	}{
		{
			name: "explicit file missing",
			opts: func(t *testing.T) LoadOptions {
				return LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")}
			},
		},
		{
			name:    "schema violation",
			content: `log_level: "loud"`,
		},
		{
			name:    "unknown field",
			content: `container_engine: "podman"`,
		},
		{
			name:    "bad duration",
			content: `watch: debounce: "soon"`,
		},
		{
			name:    "syntax error",
			content: `module_dirs: [`,
		},
		{
			name: "invalid env value",
			opts: func(*testing.T) LoadOptions {
				return LoadOptions{LookupEnv: env(map[string]string{"MODRT_LOG_LEVEL": "loud"})}
			},
			wantIs: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var opts LoadOptions
			if tt.opts != nil {
				opts = tt.opts(t)
			}
			if tt.content != "" {
				opts.ConfigFilePath = filepath.Join(t.TempDir(), "config.cue")
				writeFile(t, opts.ConfigFilePath, tt.content)
			}

			_, _, err := load(t, opts)
			if err == nil {
				t.Fatal("Load() expected an error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("Load() error = %T, want *issue.ActionableError", err)
			}
			if ae.CatalogIssue() == nil || ae.CatalogIssue().Id() != issue.ConfigLoadFailedId {
				t.Errorf("CatalogIssue() = %v, want ConfigLoadFailedId", ae.CatalogIssue())
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantIs)
			}
		})
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		ModuleDirs:         []string{"/opt/modules"},
		DataDir:            "/srv/modrt",
		LogLevel:           LogLevelError,
		Watch:              WatchConfig{Enabled: true, Debounce: 250 * time.Millisecond},
		DescriptorDefaults: DescriptorDefaults{Authors: []string{"a", "b"}},
	}
	path := filepath.Join(t.TempDir(), "generated.cue")
	writeFile(t, path, GenerateCUE(cfg))

	got, _, err := load(t, LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load(GenerateCUE()) unexpected error: %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level LogLevel
		valid bool
		want  log.Level
	}{
		{LogLevelDebug, true, log.DebugLevel},
		{LogLevelInfo, true, log.InfoLevel},
		{LogLevelWarn, true, log.WarnLevel},
		{LogLevelError, true, log.ErrorLevel},
		{"loud", false, log.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			t.Parallel()

			valid, errs := tt.level.IsValid()
			if valid != tt.valid {
				t.Errorf("IsValid() = %v, want %v", valid, tt.valid)
			}
			if !valid && !errors.Is(errs[0], ErrInvalidLogLevel) {
				t.Errorf("IsValid() error = %v, want ErrInvalidLogLevel", errs[0])
			}
			if got := tt.level.Level(); got != tt.want {
				t.Errorf("Level() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ModuleDirs = []string{"ok", "  "}
	cfg.Watch.Debounce = -time.Second

	valid, errs := cfg.IsValid()
	if valid {
		t.Fatal("IsValid() = true, want false")
	}
	var invalid *InvalidConfigError
	if !errors.As(errs[0], &invalid) || len(invalid.FieldErrors) != 2 {
		t.Errorf("IsValid() errors = %v, want two field errors", errs)
	}
}

func TestDescriptorDefaults_Reader(t *testing.T) {
	t.Parallel()

	if _, ok := (DescriptorDefaults{}).Reader().LookupList(modmeta.KeyAuthors); ok {
		t.Error("empty defaults should not provide authors")
	}

	r := DescriptorDefaults{Authors: []string{"ops"}}.Reader()
	d, err := modmeta.Extract("mem:x", manifest.Layered(manifest.Map{
		modmeta.KeyName:    "x",
		modmeta.KeyVersion: "1",
		modmeta.KeyMain:    "x.New",
	}, r))
	if err != nil {
		t.Fatal(err)
	}
	if authors, ok := d.Authors(); !ok || !cmp.Equal(authors, []string{"ops"}) {
		t.Errorf("Authors() = %v, %v, want [ops]", authors, ok)
	}
}

func TestEnvKey(t *testing.T) {
	t.Parallel()
	if got := EnvKey("watch.debounce"); got != "MODRT_WATCH_DEBOUNCE" {
		t.Errorf("EnvKey() = %q", got)
	}
}

func TestConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only honored on Linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/test-xdg-config")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() unexpected error: %v", err)
	}
	if want := filepath.Join("/tmp/test-xdg-config", "modrt"); dir != want {
		t.Errorf("ConfigDir() = %q, want %q", dir, want)
	}
}
