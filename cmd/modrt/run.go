// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/modrt/modrt/internal/config"
	"github.com/modrt/modrt/internal/discovery"
	"github.com/modrt/modrt/internal/issue"
	"github.com/modrt/modrt/internal/logging"
	"github.com/modrt/modrt/internal/telemetry"
	"github.com/modrt/modrt/internal/watch"
	"github.com/modrt/modrt/pkg/events"
	"github.com/modrt/modrt/pkg/gosrc"
	"github.com/modrt/modrt/pkg/host"
	"github.com/modrt/modrt/pkg/isolation"
	"github.com/modrt/modrt/pkg/loader"
	"github.com/modrt/modrt/pkg/manifest"
	"github.com/modrt/modrt/pkg/symbol"
)

const shutdownTimeout = 10 * time.Second

// session drives the modules of one `modrt run`.
type session struct {
	host     *host.Host
	defaults manifest.Reader
	logger   *log.Logger
	out      io.Writer
}

func newRunCommand(app *App, flags *rootFlags) *cobra.Command {
	var watchFlag bool

	cmd := &cobra.Command{
		Use:   "run [dir...]",
		Short: "Load and enable modules until interrupted",
		Long: `Load every module found in the given directories, or in the configured
module_dirs, enable them and keep them running until Ctrl+C. Modules are
unloaded in reverse load order on exit.

With --watch, a change to a module's manifest or Go sources reloads that
module.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.explain(app.runModules(cmd.Context(), flags, args, watchFlag), flags)
		},
	}
	cmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "reload modules when their files change")
	return cmd
}

func (a *App) runModules(ctx context.Context, flags *rootFlags, dirs []string, watchFlag bool) error {
	cfg, _, err := a.loadConfig(ctx, flags)
	if err != nil {
		return err
	}
	logger := a.logger(cfg, flags)

	otelCfg, err := telemetry.LoadConfig(nil)
	if err != nil {
		return err
	}
	shutdownTracing, err := telemetry.Setup(ctx, otelCfg, "modrt", Version)
	if err != nil {
		logger.Warn("tracing disabled", "err", err)
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("flush traces", "err", err)
		}
	}()

	res, err := a.discover(ctx, cfg, logger, flags, dirs)
	if err != nil {
		return err
	}
	order, err := res.LoadOrder()
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("order modules").
			WithSuggestion("Run 'modrt list' to see the discovered modules").
			Wrap(err).
			BuildError()
	}

	bus := events.NewDispatcher()
	bus.Subscribe(logging.LifecycleHandler(logger.WithPrefix("events")))

	s := &session{
		host:     newHost(cfg, logger, bus, symbol.Default, gosrc.NewProvider(gosrc.WithLogger(logger.WithPrefix("gosrc")))),
		defaults: cfg.DescriptorDefaults.Reader(),
		logger:   logger,
		out:      a.stdout,
	}
	if err := s.start(ctx, order); err != nil {
		a.printFailures(err)
	}
	fmt.Fprintf(a.stdout, "%s %d module(s) running (Ctrl+C to stop)\n",
		SuccessStyle.Render("→"), len(s.host.Modules()))

	var runErr error
	if watchFlag || cfg.Watch.Enabled {
		runErr = s.watch(ctx, moduleRoots(cfg, dirs), cfg.Watch.Debounce)
	} else {
		<-ctx.Done()
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return errors.Join(runErr, s.stop(stopCtx))
}

// newHost builds a host resolving modules through providers, in order.
func newHost(cfg *config.Config, logger *log.Logger, bus events.Bus, providers ...symbol.Provider) *host.Host {
	boundary := isolation.New(
		isolation.WithProviders(providers...),
		isolation.WithLogger(logger.WithPrefix("isolation")),
	)
	l := loader.New(boundary,
		loader.WithBus(bus),
		loader.WithLogger(logger.WithPrefix("loader")),
		loader.WithDataRoot(cfg.DataDir),
	)
	return host.New(l, logger.WithPrefix("host"))
}

func moduleRoots(cfg *config.Config, dirs []string) []string {
	if len(dirs) > 0 {
		return dirs
	}
	return cfg.ModuleDirs
}

// start loads mods in order and enables every loaded module. A module whose
// required dependency is not loaded is skipped. The returned error joins
// every failure; the other modules keep running.
func (s *session) start(ctx context.Context, mods []*discovery.Module) error {
	var errs []error
	for _, m := range mods {
		if err := s.requireDependencies(m); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := s.host.Load(ctx, m.Descriptor); err != nil {
			errs = append(errs, issue.WrapWithContext(err, "load module", m.Dir))
		}
	}
	if err := s.host.EnableAll(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *session) requireDependencies(m *discovery.Module) error {
	for _, dep := range m.Descriptor.Dependencies() {
		if _, ok := s.host.Module(dep); !ok {
			return issue.NewErrorContext().
				WithOperation("load module").
				WithResource(m.Dir).
				WithSuggestion(fmt.Sprintf("Fix module %s first", dep)).
				WithIssue(issue.MissingImplementationId).
				Wrap(fmt.Errorf("module %s requires %s, which is not loaded", m.Descriptor.Name(), dep)).
				BuildError()
		}
	}
	return nil
}

// reload unloads the module loaded from each changed directory, then loads
// and enables it again if the directory still holds a module.
func (s *session) reload(ctx context.Context, changes []watch.Change) error {
	var errs []error
	for _, c := range changes {
		if inst := s.byLocation(c.Dir); inst != nil {
			if err := s.host.Unload(ctx, inst.Name()); err != nil {
				errs = append(errs, err)
			}
		}

		m, err := discovery.Inspect(c.Dir, s.defaults)
		if errors.Is(err, manifest.ErrNotFound) {
			s.logger.Info("module directory no longer holds a module", "dir", c.Dir)
			continue
		}
		if err != nil {
			errs = append(errs, issue.WrapWithContext(err, "reload module", c.Dir))
			continue
		}
		if err := s.requireDependencies(m); err != nil {
			errs = append(errs, err)
			continue
		}
		inst, err := s.host.Load(ctx, m.Descriptor)
		if err != nil {
			errs = append(errs, issue.WrapWithContext(err, "reload module", c.Dir))
			continue
		}
		if err := s.host.Enable(ctx, inst.Name()); err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(s.out, "%s reloaded %s\n", SuccessStyle.Render("↻"), NameStyle.Render(inst.Name()))
	}
	return errors.Join(errs...)
}

func (s *session) byLocation(dir string) *loader.Instance {
	for _, inst := range s.host.Modules() {
		if inst.Descriptor().Location() == dir {
			return inst
		}
	}
	return nil
}

// watch reloads changed modules until ctx is done.
func (s *session) watch(ctx context.Context, roots []string, debounce time.Duration) error {
	w, err := watch.New(watch.Config{
		Roots:    roots,
		Debounce: debounce,
		OnChange: s.reload,
		Logger:   s.logger.WithPrefix("watch"),
	})
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("watch modules").
			WithResource(fmt.Sprint(roots)).
			Wrap(err).
			BuildError()
	}
	fmt.Fprintf(s.out, "%s watching %d module root(s)\n", VerboseStyle.Render("→"), len(w.Roots()))
	return w.Run(ctx)
}

// stop unloads every module in reverse load order.
func (s *session) stop(ctx context.Context) error {
	return s.host.UnloadAll(ctx)
}

// printFailures prints each joined error with its suggestions.
func (a *App) printFailures(err error) {
	var joined interface{ Unwrap() []error }
	errs := []error{err}
	if errors.As(err, &joined) {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		fmt.Fprintf(a.stderr, "%s %s\n", ErrorStyle.Render("✗"), issue.Explain(e, false, a.issueStyle))
	}
}
