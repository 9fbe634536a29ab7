// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/modrt/modrt/internal/dag"
	"github.com/modrt/modrt/pkg/manifest"
	"github.com/modrt/modrt/pkg/modmeta"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func quiet() Option { return WithLogger(log.New(io.Discard)) }

func codes(diags []Diagnostic) []DiagnosticCode {
	out := make([]DiagnosticCode, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

func names(mods []*Module) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.Descriptor.Name()
	}
	return out
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app", "module.toml"),
		"name = \"app\"\nversion = \"1.0\"\nmain = \"app.Module\"\ndependencies = [\"db\"]\n")
	writeFile(t, filepath.Join(root, "db-impl", "module.yaml"),
		"name: db-impl\nversion: \"2.1\"\nmain: db.Module\n")
	writeFile(t, filepath.Join(root, "notes", "README.md"), "not a module\n")
	writeFile(t, filepath.Join(root, "broken", "module.toml"), "name = \"broken\"\nmain = \"x.New\"\n")
	writeFile(t, filepath.Join(root, "twice", "module.toml"), "name = \"twice\"\n")
	writeFile(t, filepath.Join(root, "twice", "module.yaml"), "name: twice\n")
	writeFile(t, filepath.Join(root, ".hidden", "module.toml"), "name = \"hidden\"\nversion = \"1\"\nmain = \"h.New\"\n")
	writeFile(t, filepath.Join(root, "loose.go"), "package loose\n")

	d := New([]string{root, filepath.Join(root, "missing")}, quiet(), WithConcurrency(2))
	res, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() unexpected error: %v", err)
	}

	if got, want := names(res.Modules), []string{"app", "db"}; !slices.Equal(got, want) {
		t.Errorf("modules = %v, want %v", got, want)
	}
	wantCodes := []DiagnosticCode{CodeRootMissing, CodeDescriptorMalformed, CodeManifestMissing, CodeManifestAmbiguous}
	if got := codes(res.Diagnostics); !slices.Equal(got, wantCodes) {
		t.Errorf("diagnostic codes = %v, want %v", got, wantCodes)
	}
	if !res.HasErrors() {
		t.Error("HasErrors() = false, want true")
	}

	db, ok := res.Module("db")
	if !ok {
		t.Fatal("Module(db) not found")
	}
	if db.Descriptor.Role() != modmeta.RoleImplementation {
		t.Errorf("db role = %s, want implementation", db.Descriptor.Role())
	}
	if db.Root != root || db.Dir != filepath.Join(root, "db-impl") {
		t.Errorf("db root/dir = %q, %q", db.Root, db.Dir)
	}
	if filepath.Base(db.Manifest) != "module.yaml" {
		t.Errorf("db manifest = %q", db.Manifest)
	}
	if got, ok := res.ByDir(db.Dir); !ok || got != db {
		t.Errorf("ByDir(%q) = %v, %v", db.Dir, got, ok)
	}
	if _, ok := res.Module("hidden"); ok {
		t.Error("hidden directory was discovered")
	}
}

func TestDiscover_DuplicateAcrossRoots(t *testing.T) {
	t.Parallel()

	first, second := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(first, "store", "module.toml"), "name = \"store-api\"\nversion = \"1\"\nmain = \"a.New\"\n")
	writeFile(t, filepath.Join(second, "store", "module.toml"), "name = \"store-impl\"\nversion = \"1\"\nmain = \"b.New\"\n")

	res, err := New([]string{first, second}, quiet()).Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() unexpected error: %v", err)
	}
	if len(res.Modules) != 1 || res.Modules[0].Root != first {
		t.Fatalf("modules = %v, want only the one from the first root", names(res.Modules))
	}
	if got := codes(res.Diagnostics); !slices.Equal(got, []DiagnosticCode{CodeDuplicateModule}) {
		t.Errorf("diagnostic codes = %v, want [duplicate_module]", got)
	}
	if res.Diagnostics[0].Path != filepath.Join(second, "store") {
		t.Errorf("duplicate reported at %q", res.Diagnostics[0].Path)
	}
}

func TestDiscover_Defaults(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "plain", "module.toml"), "name = \"plain\"\nversion = \"1\"\nmain = \"p.New\"\n")
	writeFile(t, filepath.Join(root, "own", "module.toml"),
		"name = \"own\"\nversion = \"1\"\nmain = \"o.New\"\nauthors = [\"Ada\"]\n")

	defaults := manifest.Map{modmeta.KeyAuthors: []string{"Platform Team"}}
	res, err := New([]string{root}, quiet(), WithDefaults(defaults)).Discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		module string
		want   []string
	}{
		{"plain", []string{"Platform Team"}},
		{"own", []string{"Ada"}},
	}
	for _, tt := range tests {
		m, ok := res.Module(tt.module)
		if !ok {
			t.Fatalf("Module(%s) not found", tt.module)
		}
		got, ok := m.Descriptor.Authors()
		if !ok || !slices.Equal(got, tt.want) {
			t.Errorf("%s authors = %v, %v, want %v", tt.module, got, ok, tt.want)
		}
	}
}

func TestDiscover_Errors(t *testing.T) {
	t.Parallel()

	t.Run("no roots", func(t *testing.T) {
		t.Parallel()
		res, err := New([]string{filepath.Join(t.TempDir(), "nope")}, quiet()).Discover(context.Background())
		if !errors.Is(err, ErrNoRoots) {
			t.Fatalf("Discover() error = %v, want ErrNoRoots", err)
		}
		if got := codes(res.Diagnostics); !slices.Equal(got, []DiagnosticCode{CodeRootMissing}) {
			t.Errorf("diagnostic codes = %v", got)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a", "module.toml"), "name = \"a\"\nversion = \"1\"\nmain = \"a.New\"\n")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := New([]string{root}, quiet()).Discover(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Discover() error = %v, want context.Canceled", err)
		}
	})
}

func TestInspect(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ok", "module.cue"),
		"name: \"metrics\"\nversion: \"0.3.1\"\nmain: \"metrics.New\"\n")
	writeFile(t, filepath.Join(root, "bad", "module.toml"), "name = [\n")

	m, err := Inspect(filepath.Join(root, "ok"), nil)
	if err != nil {
		t.Fatalf("Inspect() unexpected error: %v", err)
	}
	if m.Descriptor.Name() != "metrics" || m.Descriptor.Version().String() != "0.3.1" {
		t.Errorf("Inspect() = %s", m.Descriptor)
	}
	if m.Descriptor.Location() != m.Dir {
		t.Errorf("location = %q, want %q", m.Descriptor.Location(), m.Dir)
	}

	tests := []struct {
		dir     string
		wantErr error
	}{
		{filepath.Join(root, "absent"), manifest.ErrNotFound},
		{filepath.Join(root, "bad"), nil},
	}
	for _, tt := range tests {
		_, err := Inspect(tt.dir, nil)
		if err == nil {
			t.Errorf("Inspect(%s) expected error", tt.dir)
			continue
		}
		if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
			t.Errorf("Inspect(%s) error = %v, want %v", tt.dir, err, tt.wantErr)
		}
	}
}

func TestResult_LoadOrder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a-app", "module.toml"),
		"name = \"app\"\nversion = \"1\"\nmain = \"app.New\"\ndependencies = [\"db\"]\n")
	writeFile(t, filepath.Join(root, "b-db", "module.toml"), "name = \"db-impl\"\nversion = \"1\"\nmain = \"db.New\"\n")
	writeFile(t, filepath.Join(root, "c-log", "module.toml"), "name = \"log-api\"\nversion = \"1\"\nmain = \"log.New\"\n")

	res, err := New([]string{root}, quiet()).Discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	order, err := res.LoadOrder()
	if err != nil {
		t.Fatalf("LoadOrder() unexpected error: %v", err)
	}
	if got, want := names(order), []string{"log", "db", "app"}; !slices.Equal(got, want) {
		t.Errorf("LoadOrder() = %v, want %v", got, want)
	}

	writeFile(t, filepath.Join(root, "d-cli", "module.toml"),
		"name = \"cli\"\nversion = \"1\"\nmain = \"cli.New\"\ndependencies = [\"shell\"]\n")
	res, err = New([]string{root}, quiet()).Discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := res.LoadOrder(); !errors.Is(err, dag.ErrMissingDependency) {
		t.Errorf("LoadOrder() error = %v, want ErrMissingDependency", err)
	}
}
