// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modrt/modrt/internal/config"
)

func newConfigCommand(app *App, flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect modrt configuration",
		Long: `Inspect modrt configuration.

Configuration is read from, in order:
  - the file given with --config
  - $XDG_CONFIG_HOME/modrt/config.cue (Linux), ~/Library/Application Support/modrt/config.cue (macOS)
    or %APPDATA%\modrt\config.cue (Windows)
  - ./config.cue

MODRT_* environment variables override file values, for example
MODRT_LOG_LEVEL=debug or MODRT_WATCH_ENABLED=true.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.explain(app.showConfig(cmd.Context(), flags), flags)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show the default configuration file path",
			RunE: func(cmd *cobra.Command, args []string) error {
				dir, err := config.ConfigDir()
				if err != nil {
					return err
				}
				fmt.Fprintln(app.stdout, filepath.Join(dir, "config.cue"))
				return nil
			},
		},
		&cobra.Command{
			Use:   "dump",
			Short: "Output the effective configuration as CUE",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, _, err := app.loadConfig(cmd.Context(), flags)
				if err != nil {
					return app.explain(err, flags)
				}
				fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
				return nil
			},
		},
	)
	return cfgCmd
}

func (a *App) showConfig(ctx context.Context, flags *rootFlags) error {
	cfg, path, err := a.loadConfig(ctx, flags)
	if err != nil {
		return err
	}

	row := func(key, value string) {
		fmt.Fprintf(a.stdout, "%s: %s\n", KeyStyle.Render(key), SuccessStyle.Render(value))
	}

	fmt.Fprintln(a.stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(a.stdout)
	if path != "" {
		fmt.Fprintf(a.stdout, "%s: %s\n", KeyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(a.stdout, "%s: %s\n", KeyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(a.stdout)

	row("module_dirs", strings.Join(cfg.ModuleDirs, ", "))
	row("data_dir", cfg.DataDir)
	row("log_level", cfg.LogLevel.String())
	row("watch.enabled", fmt.Sprint(cfg.Watch.Enabled))
	row("watch.debounce", cfg.Watch.Debounce.String())
	if len(cfg.DescriptorDefaults.Authors) > 0 {
		row("descriptor_defaults.authors", strings.Join(cfg.DescriptorDefaults.Authors, ", "))
	}
	return nil
}
