// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/modrt/modrt/internal/config"
	"github.com/modrt/modrt/internal/issue"
	"github.com/modrt/modrt/internal/logging"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// App carries the dependencies shared by every command.
	App struct {
		Config config.Provider
		// LookupEnv replaces the process environment for MODRT_* config
		// overrides when set.
		LookupEnv func(string) (string, bool)

		stdout     io.Writer
		stderr     io.Writer
		issueStyle string
	}

	rootFlags struct {
		configPath string
		verbose    bool
	}
)

// NewApp returns an App writing to stdout and stderr. A nil provider means
// the file-backed one.
func NewApp(provider config.Provider, stdout, stderr io.Writer) *App {
	if provider == nil {
		provider = config.NewProvider()
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &App{Config: provider, stdout: stdout, stderr: stderr, issueStyle: "dark"}
}

func newRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "modrt",
		Short: "A runtime for pluggable modules",
		Long: TitleStyle.Render("modrt") + SubtitleStyle.Render(" - A runtime for pluggable modules") + `

modrt scans module directories for manifests (module.cue, module.toml,
module.yaml or module.hcl), loads every module in its own isolated
namespace, shares specification modules with the rest, and drives the
load, enable, disable and unload lifecycle.

` + SubtitleStyle.Render("Examples:") + `
  modrt list                  List the modules found in the module directories
  modrt inspect modules/db    Show the descriptor of one module
  modrt run --watch           Run every module and reload them on change
  modrt config show           Show the current configuration`,
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/modrt/config.cue)")

	root.AddCommand(
		newListCommand(app, flags),
		newInspectCommand(app, flags),
		newRunCommand(app, flags),
		newConfigCommand(app, flags),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command and exits with its status.
func Execute() {
	app := NewApp(nil, nil, nil)
	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// loadConfig loads the configuration selected by the global flags.
func (a *App) loadConfig(ctx context.Context, flags *rootFlags) (*config.Config, string, error) {
	return a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: flags.configPath,
		LookupEnv:      a.LookupEnv,
	})
}

// logger returns the CLI logger for cfg.
func (a *App) logger(cfg *config.Config, flags *rootFlags) *log.Logger {
	return logging.New(a.stderr, logging.Level(cfg.LogLevel.Level(), flags.verbose), "modrt")
}

// explain prints the suggestions attached to err and, in verbose mode, its
// issue page. It returns err so callers can write `return a.explain(err, flags)`.
func (a *App) explain(err error, flags *rootFlags) error {
	if err == nil {
		return nil
	}
	page := issue.ForError(err)
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		page = ae.CatalogIssue()
		for _, s := range ae.Suggestions {
			fmt.Fprintf(a.stderr, "  %s %s\n", VerboseStyle.Render("•"), s)
		}
	}
	if !flags.verbose || page == nil {
		return err
	}
	if rendered, renderErr := page.Render(a.issueStyle); renderErr == nil {
		fmt.Fprint(a.stderr, rendered)
	}
	return err
}
