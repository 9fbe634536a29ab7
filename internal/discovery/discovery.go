// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/modrt/modrt/pkg/manifest"
	"github.com/modrt/modrt/pkg/modmeta"
)

// ErrNoRoots is returned by Discover when none of the module roots exists.
var ErrNoRoots = errors.New("no module directory found")

type (
	// Module is a module directory with a valid descriptor.
	Module struct {
		// Dir is the absolute module directory, also the descriptor location.
		Dir string
		// Root is the module root Dir was found in.
		Root string
		// Manifest is the path of the manifest file.
		Manifest   string
		Descriptor *modmeta.Descriptor
	}

	// Result bundles discovered modules with the diagnostics produced along
	// the way. Modules are in root order, then directory name order.
	Result struct {
		Modules     []*Module
		Diagnostics []Diagnostic
	}

	// Discovery scans module roots.
	Discovery struct {
		roots    []string
		defaults manifest.Reader
		logger   *log.Logger
		limit    int
	}

	// Option configures a Discovery.
	Option func(*Discovery)

	// candidate is the outcome of inspecting one subdirectory.
	candidate struct {
		module *Module
		diag   *Diagnostic
	}
)

// WithDefaults layers r under every manifest.
func WithDefaults(r manifest.Reader) Option {
	return func(d *Discovery) { d.defaults = r }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(d *Discovery) { d.logger = logger }
}

// WithConcurrency bounds how many manifests are parsed at once.
func WithConcurrency(n int) Option {
	return func(d *Discovery) { d.limit = n }
}

// New returns a Discovery over roots, searched in order.
func New(roots []string, opts ...Option) *Discovery {
	d := &Discovery{roots: roots, limit: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = log.Default().WithPrefix("discovery")
	}
	if d.limit < 1 {
		d.limit = 1
	}
	return d
}

// Discover inspects every subdirectory of every root. When two directories
// declare the same canonical name, the first one found wins and the other is
// reported. It fails only when ctx is done or no root exists.
func (d *Discovery) Discover(ctx context.Context) (*Result, error) {
	res := &Result{}

	type dir struct{ root, path string }
	var dirs []dir
	found := 0
	for _, root := range d.roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, warning(CodeRootMissing, root, "cannot resolve module root", err))
			continue
		}
		entries, err := os.ReadDir(abs)
		switch {
		case errors.Is(err, os.ErrNotExist):
			res.Diagnostics = append(res.Diagnostics, warning(CodeRootMissing, abs, "module root does not exist", nil))
			continue
		case err != nil:
			res.Diagnostics = append(res.Diagnostics, warning(CodeRootUnreadable, abs, "cannot list module root", err))
			continue
		}
		found++
		for _, e := range entries {
			if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
				dirs = append(dirs, dir{root: abs, path: filepath.Join(abs, e.Name())})
			}
		}
	}
	if found == 0 {
		return res, fmt.Errorf("%w: %s", ErrNoRoots, strings.Join(d.roots, ", "))
	}

	slots := make([]candidate, len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.limit)
	for i, dd := range dirs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = d.inspect(dd.root, dd.path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("discover modules: %w", err)
	}

	seen := make(map[string]string)
	for _, c := range slots {
		if c.diag != nil {
			res.Diagnostics = append(res.Diagnostics, *c.diag)
			continue
		}
		name := c.module.Descriptor.Name()
		if first, dup := seen[name]; dup {
			res.Diagnostics = append(res.Diagnostics, failure(CodeDuplicateModule, c.module.Dir,
				fmt.Sprintf("module %s is already provided by %s", name, first), nil))
			continue
		}
		seen[name] = c.module.Dir
		res.Modules = append(res.Modules, c.module)
	}

	d.logger.Debug("discovery finished", "modules", len(res.Modules), "diagnostics", len(res.Diagnostics))
	return res, nil
}

func (d *Discovery) inspect(root, dir string) candidate {
	m, err := Inspect(dir, d.defaults)
	if err == nil {
		m.Root = root
		return candidate{module: m}
	}

	var diag Diagnostic
	switch {
	case errors.Is(err, manifest.ErrNotFound):
		diag = warning(CodeManifestMissing, dir, "directory has no module manifest", err)
	case errors.Is(err, manifest.ErrAmbiguous):
		diag = failure(CodeManifestAmbiguous, dir, "directory has more than one module manifest", err)
	case errors.Is(err, modmeta.ErrMalformedDescriptor):
		diag = failure(CodeDescriptorMalformed, dir, err.Error(), err)
	default:
		diag = failure(CodeManifestInvalid, dir, "cannot parse module manifest", err)
	}
	d.logger.Debug("skipping directory", "dir", dir, "code", diag.Code)
	return candidate{diag: &diag}
}

// Inspect reads the module in dir, layering defaults under its manifest.
// Errors wrap manifest.ErrNotFound, manifest.ErrAmbiguous,
// modmeta.ErrMalformedDescriptor or a parse failure.
func Inspect(dir string, defaults manifest.Reader) (*Module, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	path, err := manifest.Find(abs)
	if err != nil {
		return nil, err
	}
	meta, err := manifest.ParseFile(path)
	if err != nil {
		return nil, err
	}
	desc, err := modmeta.Extract(abs, manifest.Layered(meta, defaults))
	if err != nil {
		return nil, err
	}
	return &Module{Dir: abs, Root: filepath.Dir(abs), Manifest: path, Descriptor: desc}, nil
}

// HasErrors reports whether any diagnostic has error severity.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Module returns the discovered module with the given canonical name.
func (r *Result) Module(name string) (*Module, bool) {
	for _, m := range r.Modules {
		if m.Descriptor.Name() == name {
			return m, true
		}
	}
	return nil, false
}

// ByDir returns the discovered module in dir.
func (r *Result) ByDir(dir string) (*Module, bool) {
	for _, m := range r.Modules {
		if m.Dir == dir {
			return m, true
		}
	}
	return nil, false
}
