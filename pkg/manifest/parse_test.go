// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// wantStorage is the flattened form of every storageManifest fixture below.
var wantStorage = map[string]string{
	"name":         "storage-impl",
	"version":      "1.10",
	"main":         "example.com/storage.New",
	"display-name": "Storage",
}

var storageManifests = map[string]string{
	"module.cue": `
name:           "storage-impl"
version:        "1.10"
main:           "example.com/storage.New"
"display-name": "Storage"
dependencies:   ["core", "storage-api"]
`,
	"module.toml": `
name = "storage-impl"
version = "1.10"
main = "example.com/storage.New"
display-name = "Storage"
dependencies = ["core", "storage-api"]

[extra]
ignored = true
`,
	"module.yaml": `
name: storage-impl
version: 1.10
main: example.com/storage.New
display-name: Storage
dependencies:
  - core
  - storage-api
`,
	"module.hcl": `
name         = "storage-impl"
version      = "1.10"
main         = "example.com/storage.New"
display_name = "Storage"
dependencies = ["core", "storage-api"]
`,
}

func TestParseFile_AllFormats(t *testing.T) {
	t.Parallel()

	for file, content := range storageManifests {
		t.Run(file, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := filepath.Join(dir, file)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}

			m, err := ParseFile(path)
			if err != nil {
				t.Fatalf("ParseFile(%s) unexpected error: %v", file, err)
			}
			for key, want := range wantStorage {
				if got, ok := m.Lookup(key); !ok || got != want {
					t.Errorf("Lookup(%q) = %q, %v; want %q", key, got, ok, want)
				}
			}
			deps, ok := m.LookupList("dependencies")
			if !ok || !slices.Equal(deps, []string{"core", "storage-api"}) {
				t.Errorf("LookupList(dependencies) = %v, %v", deps, ok)
			}
		})
	}
}

func TestParseCUE_NumericVersion(t *testing.T) {
	t.Parallel()

	m, err := ParseCUE([]byte(`name: "x"
version: 2
main: "x.New"
`), "module.cue")
	if err != nil {
		t.Fatalf("ParseCUE() unexpected error: %v", err)
	}
	if got, _ := m.Lookup("version"); got != "2" {
		t.Errorf("Lookup(version) = %q, want %q", got, "2")
	}
}

func TestParseCUE_SchemaViolation(t *testing.T) {
	t.Parallel()

	_, err := ParseCUE([]byte(`name: 42`), "module.cue")
	if err == nil {
		t.Fatal("ParseCUE() expected error for non-string name")
	}
	if !strings.Contains(err.Error(), "module.cue") {
		t.Errorf("error should name the file, got: %v", err)
	}
}

func TestParseYAML_NullSkipped(t *testing.T) {
	t.Parallel()

	m, err := ParseYAML([]byte("name: core\nauthors: ~\n"), "module.yaml")
	if err != nil {
		t.Fatalf("ParseYAML() unexpected error: %v", err)
	}
	if _, ok := m.LookupList("authors"); ok {
		t.Error("null authors should be absent")
	}
}

func TestParseTOML_RejectsNonStringList(t *testing.T) {
	t.Parallel()

	if _, err := ParseTOML([]byte("dependencies = [1, 2]\n"), "module.toml"); err == nil {
		t.Fatal("ParseTOML() expected error for numeric list")
	}
}

func TestParseHCL_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := ParseHCL([]byte("name = \n"), "module.hcl"); err == nil {
		t.Fatal("ParseHCL() expected error for incomplete attribute")
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	t.Run("none", func(t *testing.T) {
		t.Parallel()
		if _, err := Find(t.TempDir()); !errors.Is(err, ErrNotFound) {
			t.Errorf("Find() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("one", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		want := filepath.Join(dir, "module.toml")
		if err := os.WriteFile(want, []byte(storageManifests["module.toml"]), 0o644); err != nil {
			t.Fatal(err)
		}
		got, err := Find(dir)
		if err != nil || got != want {
			t.Errorf("Find() = %q, %v; want %q", got, err, want)
		}
	})

	t.Run("ambiguous", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		for _, name := range []string{"module.toml", "module.yaml"} {
			if err := os.WriteFile(filepath.Join(dir, name), []byte(storageManifests[name]), 0o644); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := Find(dir); !errors.Is(err, ErrAmbiguous) {
			t.Errorf("Find() error = %v, want ErrAmbiguous", err)
		}
	})
}

func TestOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "module.yaml"), []byte(storageManifests["module.yaml"]), 0o644); err != nil {
		t.Fatal(err)
	}
	m, path, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	if filepath.Base(path) != "module.yaml" {
		t.Errorf("Open() path = %q", path)
	}
	if got := String(m, "name", ""); got != "storage-impl" {
		t.Errorf("name = %q", got)
	}
}

func TestIsManifest(t *testing.T) {
	t.Parallel()

	for _, name := range FileNames() {
		if !IsManifest(filepath.Join("some", "dir", name)) {
			t.Errorf("IsManifest(%q) = false", name)
		}
	}
	for _, name := range []string{"module.json", "main.go", "modules.cue"} {
		if IsManifest(name) {
			t.Errorf("IsManifest(%q) = true", name)
		}
	}
}

func TestParseFile_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	if _, err := ParseFile(filepath.Join(t.TempDir(), "module.json")); err == nil {
		t.Fatal("ParseFile() expected error for unsupported extension")
	}
}
