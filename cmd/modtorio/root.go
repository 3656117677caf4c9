// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the modtorio command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "modtorio",
		Short: "Manage the mods of a Factorio server",
		Long: TitleStyle.Render("modtorio") + SubtitleStyle.Render(" - Manage the mods of a Factorio server") + `

modtorio keeps a Factorio mods directory in step with the mod portal:
it installs and updates mods, verifies their archives, installs missing
dependencies and toggles mods in mod-list.json. What it learns about a
directory is cached in a local SQLite store so later runs start quickly.

` + SubtitleStyle.Render("Examples:") + `
  modtorio mods list                 List installed mods
  modtorio mods add Krastorio2       Install the latest Krastorio2
  modtorio mods ensure-deps          Install missing dependencies
  modtorio mods update               Update every mod
  modtorio mods sync modpack.toml    Apply a modpack`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	flags := root.PersistentFlags()
	flags.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable debug logging and detailed errors")
	flags.StringVar(&app.flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/modtorio/config.cue)")
	flags.StringVar(&app.flags.modsDir, "mods-dir", "", "mods directory (overrides mods_dir)")

	root.AddCommand(newModsCommand(app))
	root.AddCommand(newConfigCommand(app))
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the command's exit code.
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitFailure)
	}

	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			renderError(w, err, app.flags.verbose)
		}),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitFailure)
	}
}
