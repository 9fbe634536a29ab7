// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/modrt/modrt/internal/config"
	"github.com/modrt/modrt/internal/discovery"
	"github.com/modrt/modrt/internal/issue"
)

func newListCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list [dir...]",
		Short: "List discovered modules in load order",
		Long: `List the modules found in the given directories, or in the configured
module_dirs, in the order 'modrt run' would load them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.explain(app.listModules(cmd.Context(), flags, args), flags)
		},
	}
}

func newInspectCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <dir>",
		Short: "Show the descriptor of a module directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.explain(app.inspectModule(cmd.Context(), flags, args[0]), flags)
		},
	}
}

func (a *App) listModules(ctx context.Context, flags *rootFlags, dirs []string) error {
	cfg, _, err := a.loadConfig(ctx, flags)
	if err != nil {
		return err
	}
	logger := a.logger(cfg, flags)

	res, err := a.discover(ctx, cfg, logger, flags, dirs)
	if err != nil {
		return err
	}
	order, err := res.LoadOrder()
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("order modules").
			WithSuggestion("Check the dependencies declared in each module manifest").
			Wrap(err).
			BuildError()
	}

	fmt.Fprintln(a.stdout, TitleStyle.Render(fmt.Sprintf("Modules (%d)", len(order))))
	if len(order) == 0 {
		fmt.Fprintln(a.stdout, SubtitleStyle.Render("  no modules found"))
		return nil
	}

	width := 0
	for _, m := range order {
		width = max(width, len(m.Descriptor.Name()))
	}
	for _, m := range order {
		d := m.Descriptor
		fmt.Fprintf(a.stdout, "  %s  %s  %s  %s\n",
			NameStyle.Render(fmt.Sprintf("%-*s", width, d.Name())),
			roleStyle(d.Role()).Render(fmt.Sprintf("%-14s", d.Role().String())),
			fmt.Sprintf("%-10s", d.Version().String()),
			VerboseStyle.Render(m.Dir))
	}
	return nil
}

func (a *App) inspectModule(ctx context.Context, flags *rootFlags, dir string) error {
	cfg, _, err := a.loadConfig(ctx, flags)
	if err != nil {
		return err
	}

	m, err := discovery.Inspect(dir, cfg.DescriptorDefaults.Reader())
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("inspect module").
			WithResource(dir).
			WithSuggestion("Add a module.cue, module.toml, module.yaml or module.hcl with name, version and main").
			Wrap(err).
			BuildError()
	}
	printDescriptor(a.stdout, m)
	return nil
}

func printDescriptor(w io.Writer, m *discovery.Module) {
	d := m.Descriptor
	row := func(key, value string) {
		fmt.Fprintf(w, "  %s %s\n", KeyStyle.Render(fmt.Sprintf("%-22s", key+":")), value)
	}

	fmt.Fprintln(w, TitleStyle.Render(d.DisplayName()))
	row("name", NameStyle.Render(d.Name()))
	row("role", roleStyle(d.Role()).Render(d.Role().String()))
	row("version", d.Version().String())
	row("main", d.EntryPoint())
	row("location", d.Location())
	row("manifest", m.Manifest)
	row("dependencies", listOrNone(d.Dependencies()))
	row("optional-dependencies", listOrNone(d.OptionalDependencies()))
	if authors, ok := d.Authors(); ok {
		row("authors", listOrNone(authors))
	}
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return SubtitleStyle.Render("(none)")
	}
	return strings.Join(items, ", ")
}

// discover scans dirs, or cfg.ModuleDirs when dirs is empty, and prints the
// diagnostics. Warnings are only printed in verbose mode.
func (a *App) discover(ctx context.Context, cfg *config.Config, logger *log.Logger, flags *rootFlags, dirs []string) (*discovery.Result, error) {
	roots := dirs
	if len(roots) == 0 {
		roots = cfg.ModuleDirs
	}

	res, err := discovery.New(roots,
		discovery.WithDefaults(cfg.DescriptorDefaults.Reader()),
		discovery.WithLogger(logger.WithPrefix("discovery")),
	).Discover(ctx)
	if res != nil {
		a.printDiagnostics(res.Diagnostics, flags.verbose)
	}
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("discover modules").
			WithResource(strings.Join(roots, ", ")).
			WithSuggestion("Create the directory or set module_dirs in the config file").
			Wrap(err).
			BuildError()
	}
	return res, nil
}

func (a *App) printDiagnostics(diags []discovery.Diagnostic, verbose bool) {
	for _, d := range diags {
		if d.Severity == discovery.SeverityWarning && !verbose {
			continue
		}
		line := d.Message
		if d.Path != "" {
			line += " " + VerboseStyle.Render("("+d.Path+")")
		}
		if verbose && d.Cause != nil {
			line += "\n    " + VerboseStyle.Render(d.Cause.Error())
		}
		fmt.Fprintf(a.stderr, "%s %s\n", diagnosticMarker(d.Severity), line)
	}
}
