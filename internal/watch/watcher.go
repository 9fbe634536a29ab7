// SPDX-License-Identifier: MPL-2.0

// Package watch reports debounced changes to module directories.
//
// A Watcher monitors one or more module roots. Every immediate subdirectory
// of a root is a module directory; a change to a matching file anywhere
// below it, or the creation or removal of the directory itself, marks that
// module as changed. Events within the debounce window are coalesced so the
// callback fires once with every changed module.
package watch

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the delay before firing the callback after the last
// filesystem event.
const defaultDebounce = 500 * time.Millisecond

var (
	// ErrNoRoots is returned by New when none of the roots exists.
	ErrNoRoots = errors.New("watch: no module root to watch")

	// defaultPatterns select module manifests and Go sources.
	defaultPatterns = []string{
		"**/module.{cue,toml,yaml,yml,hcl}",
		"**/*.go",
	}

	// defaultIgnores are always excluded, relative to the module directory.
	defaultIgnores = []string{
		"**/.git/**",
		"**/testdata/**",
		"**/*_test.go",
		"**/*.swp",
		"**/*.swo",
		"**/*~",
		"**/.DS_Store",
	}
)

type (
	// Change lists what changed in one module directory.
	Change struct {
		// Dir is the absolute module directory.
		Dir string
		// Paths are the changed files relative to Dir, sorted. Empty when
		// the directory itself was created or removed.
		Paths []string
	}

	// Config holds the parameters for a Watcher.
	Config struct {
		// Roots are the directories whose subdirectories are modules.
		Roots []string

		// Patterns are doublestar globs, relative to the module directory,
		// selecting the files that trigger a change. Empty means manifests
		// and Go sources.
		Patterns []string

		// Ignore are extra doublestar globs merged with the built-in ignores.
		Ignore []string

		// Debounce is the quiet period after the last event. Zero or
		// negative values fall back to 500ms.
		Debounce time.Duration

		// OnChange receives the changed modules, sorted by directory. A nil
		// callback is a no-op.
		OnChange func(ctx context.Context, changes []Change) error

		Logger *log.Logger
	}

	// Watcher monitors module roots. Run must be called at most once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		patterns []string
		ignores  []string
		logger   *log.Logger
		debounce time.Duration
		roots    []string
		started  atomic.Bool

		// known holds the module directories seen so far. Only the goroutine
		// running New and then Run touches it.
		known map[string]bool
	}
)

// New creates a Watcher. Roots are resolved to absolute paths; missing roots
// are skipped with a warning, and ErrNoRoots is returned if none is left.
func New(cfg Config) (*Watcher, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("watch")
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = defaultPatterns
	}
	if err := validatePatterns(patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	var roots []string
	for _, root := range cfg.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve root %q: %w", root, err)
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			logger.Warn("skipping missing module root", "root", root)
			continue
		}
		if !slices.Contains(roots, abs) {
			roots = append(roots, abs)
		}
	}
	if len(roots) == 0 {
		return nil, ErrNoRoots
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		patterns: slices.Clone(patterns),
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		logger:   logger,
		debounce: debounce,
		roots:    roots,
		known:    make(map[string]bool),
	}

	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			if closeErr := fsw.Close(); closeErr != nil {
				logger.Warn("close after init failure", "err", closeErr)
			}
			return nil, err
		}
	}
	return w, nil
}

// Roots returns the absolute roots being watched.
func (w *Watcher) Roots() []string { return slices.Clone(w.roots) }

// Close releases the watcher without running it. Run closes it on return.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and an error if the watcher breaks. The
// callback never runs concurrently with itself.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	mark := func(dir, path string) {
		mu.Lock()
		defer mu.Unlock()
		paths := pending[dir]
		if paths == nil {
			paths = make(map[string]struct{})
			pending[dir] = paths
		}
		if path != "" {
			paths[path] = struct{}{}
		}
	}

	schedule := func(fire func()) {
		mu.Lock()
		defer mu.Unlock()
		if timer == nil {
			timer = time.AfterFunc(w.debounce, fire)
		} else {
			timer.Reset(w.debounce)
		}
	}

	var fire func()
	fire = func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("callback still running, deferring changes")
			schedule(fire)
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changes := make([]Change, 0, len(pending))
		for dir, paths := range pending {
			changes = append(changes, Change{Dir: dir, Paths: slices.Sorted(maps.Keys(paths))})
		}
		clear(pending)
		mu.Unlock()

		slices.SortFunc(changes, func(a, b Change) int { return cmp.Compare(a.Dir, b.Dir) })
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changes); err != nil {
				w.logger.Error("change callback failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("close fsnotify", "err", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			dir, rel, ok := w.classify(evt.Name)
			if !ok {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}
			if rel == "" {
				if !w.moduleDirEvent(dir, evt) {
					continue
				}
			} else if !w.matches(rel) {
				continue
			}
			w.logger.Debug("module file changed", "dir", dir, "path", rel, "op", evt.Op.String())
			mark(dir, rel)
			schedule(fire)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were dropped; treat every module as changed.
				w.logger.Warn("event queue overflowed, rescanning all modules")
				for _, dir := range w.moduleDirs() {
					mark(dir, "")
				}
				schedule(fire)
				continue
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// classify maps an event path to its module directory and the path inside
// it. Paths outside a module directory, or ignored ones, report false.
func (w *Watcher) classify(path string) (dir, rel string, ok bool) {
	for _, root := range w.roots {
		r, err := filepath.Rel(root, path)
		if err != nil || r == "." || strings.HasPrefix(r, "..") {
			continue
		}
		name, inner, _ := strings.Cut(filepath.ToSlash(r), "/")
		if strings.HasPrefix(name, ".") {
			return "", "", false
		}
		if inner != "" && w.isIgnored(inner) {
			return "", "", false
		}
		return filepath.Join(root, name), inner, true
	}
	return "", "", false
}

// moduleDirEvent reports whether evt creates or removes a module directory.
// Plain files directly under a root are not modules.
func (w *Watcher) moduleDirEvent(dir string, evt fsnotify.Event) bool {
	switch {
	case evt.Has(fsnotify.Create):
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return false
		}
		w.known[dir] = true
		return true
	case evt.Has(fsnotify.Remove), evt.Has(fsnotify.Rename):
		if !w.known[dir] {
			return false
		}
		delete(w.known, dir)
		return true
	default:
		return false
	}
}

// addTree adds dir and every non-ignored directory below it.
func (w *Watcher) addTree(dir string) error {
	walkErr := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", walkDirErr)
			return nil //nolint:nilerr // intentional skip of inaccessible paths
		}
		if !d.IsDir() {
			return nil
		}
		if !w.isRoot(path) {
			mod, rel, ok := w.classify(path)
			if !ok || (rel != "" && w.isIgnored(rel+"/")) {
				return filepath.SkipDir
			}
			if rel == "" {
				w.known[mod] = true
			}
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk directory tree: %w", walkErr)
	}
	return nil
}

// maybeAddDir watches a directory created after startup, including anything
// already inside it.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.addTree(path); err != nil {
		w.logger.Warn("watch new directory", "path", path, "err", err)
	}
}

// moduleDirs lists the current module directories under every root.
func (w *Watcher) moduleDirs() []string {
	var dirs []string
	for _, root := range w.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	return dirs
}

func (w *Watcher) isRoot(path string) bool {
	return slices.Contains(w.roots, path)
}

// isIgnored reports whether rel, relative to its module directory, matches
// an ignore pattern.
func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
}

// matches reports whether rel matches a watch pattern.
func (w *Watcher) matches(rel string) bool {
	return matchAny(w.patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range patterns {
		if matched, matchErr := doublestar.Match(pat, normalized); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

// DefaultPatterns returns a copy of the built-in watch patterns.
func DefaultPatterns() []string {
	return slices.Clone(defaultPatterns)
}

// validatePatterns checks that every pattern is a valid doublestar glob.
func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q", label, pat)
		}
	}
	return nil
}
