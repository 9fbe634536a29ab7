// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modrt/modrt/pkg/cueutil"
)

// BaseName is the file name, without extension, of every module manifest.
const BaseName = "module"

var (
	// ErrNotFound is returned when a directory holds no manifest.
	ErrNotFound = errors.New("module manifest not found")

	// ErrAmbiguous is returned when a directory holds more than one manifest.
	ErrAmbiguous = errors.New("more than one module manifest")

	// parsers maps a manifest extension to its parser, in lookup order.
	parsers = []struct {
		ext   string
		parse func([]byte, string) (Map, error)
	}{
		{".cue", ParseCUE},
		{".toml", ParseTOML},
		{".yaml", ParseYAML},
		{".yml", ParseYAML},
		{".hcl", ParseHCL},
	}
)

// FileNames returns every manifest file name recognized in a module directory.
func FileNames() []string {
	names := make([]string, len(parsers))
	for i, p := range parsers {
		names[i] = BaseName + p.ext
	}
	return names
}

// IsManifest reports whether path names a module manifest file.
func IsManifest(path string) bool {
	base := filepath.Base(path)
	for _, name := range FileNames() {
		if base == name {
			return true
		}
	}
	return false
}

// Find returns the manifest path inside dir.
func Find(dir string) (string, error) {
	var found []string
	for _, name := range FileNames() {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			found = append(found, path)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w in %s", ErrNotFound, dir)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w in %s: %s", ErrAmbiguous, dir, strings.Join(found, ", "))
	}
}

// Open finds and parses the manifest in dir. It returns the parsed reader
// and the manifest path.
func Open(dir string) (Map, string, error) {
	path, err := Find(dir)
	if err != nil {
		return nil, "", err
	}
	m, err := ParseFile(path)
	if err != nil {
		return nil, path, err
	}
	return m, path, nil
}

// ParseFile parses a single manifest file, choosing the format from its extension.
func ParseFile(path string) (Map, error) {
	ext := filepath.Ext(path)
	for _, p := range parsers {
		if p.ext != ext {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}
		if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
			return nil, err
		}
		return p.parse(data, path)
	}
	return nil, fmt.Errorf("unsupported manifest format %q: %s", ext, path)
}
