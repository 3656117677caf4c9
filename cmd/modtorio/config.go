// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Spanfile/Modtorio-sub000/internal/config"
)

// newConfigCommand creates the `modtorio config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage modtorio configuration",
		Long: `Manage modtorio configuration.

Configuration is read from, in order:
  - the file given with --config
  - config.cue in the modtorio config directory ($XDG_CONFIG_HOME/modtorio)
  - config.cue in the current directory

MODTORIO_* environment variables override file values, for example
MODTORIO_PORTAL_TOKEN or MODTORIO_MODS_DIR.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			showConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.configPath()
			if err != nil {
				return err
			}
			created, err := config.CreateDefaultConfig(path)
			if err != nil {
				return explain("create configuration", path, err)
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s Created default configuration at %s\n", successIcon, path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s already exists, left unchanged\n", infoIcon, path)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.configPath()
			if err != nil {
				return err
			}
			dataDir, err := config.DataDir()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config file: %s\n", path)
			fmt.Fprintf(out, "Data directory: %s\n", dataDir)
			fmt.Fprintf(out, "Default store: %s\n", config.DefaultStorePath())
			return nil
		},
	})

	return cfgCmd
}

// configPath is the --config file, or config.cue in the config directory.
func (a *App) configPath() (string, error) {
	if a.flags.configPath != "" {
		return a.flags.configPath, nil
	}
	return config.DefaultConfigPath()
}

func showConfig(w io.Writer, cfg *config.Config) {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	source := cfg.Source
	if source == "" {
		source = SubtitleStyle.Render("(using defaults)")
	}
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), source)
	fmt.Fprintln(w)

	token := SubtitleStyle.Render("(not set)")
	if cfg.Portal.Token != "" {
		token = valueStyle.Render("********")
	}
	username := SubtitleStyle.Render("(not set)")
	if cfg.Portal.Username != "" {
		username = valueStyle.Render(cfg.Portal.Username)
	}

	fmt.Fprintf(w, "%s:\n", keyStyle.Render("portal"))
	fmt.Fprintf(w, "  url: %s\n", valueStyle.Render(cfg.Portal.URL))
	fmt.Fprintf(w, "  username: %s\n", username)
	fmt.Fprintf(w, "  token: %s\n", token)
	fmt.Fprintln(w)

	rows := []struct{ key, value string }{
		{"mods_dir", cfg.ModsDir},
		{"store_path", cfg.StorePath},
		{"cache_expiry", strconv.Itoa(cfg.CacheExpiry) + "s"},
		{"concurrency", strconv.Itoa(cfg.Concurrency)},
		{"log_level", string(cfg.LogLevel)},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render(r.key), valueStyle.Render(r.value))
	}

	textfile := SubtitleStyle.Render("(disabled)")
	if cfg.Metrics.Textfile != "" {
		textfile = valueStyle.Render(cfg.Metrics.Textfile)
	}
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("metrics.textfile"), textfile)
}
