// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/Spanfile/Modtorio-sub000/internal/mods"
	"github.com/Spanfile/Modtorio-sub000/internal/tui"
	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

// newModsCommand creates the `modtorio mods` command tree.
func newModsCommand(app *App) *cobra.Command {
	modsCmd := &cobra.Command{
		Use:   "mods",
		Short: "Install, update and toggle mods",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	modsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List installed mods",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.withSession(cmd.Context(), false, func(s *session) error {
					return listMods(cmd.OutOrStdout(), s)
				})
			},
		},
		newModsInfoCommand(app),
		&cobra.Command{
			Use:   "add <name> [version]",
			Short: "Install a mod, or change the installed version",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.withSession(cmd.Context(), true, func(s *session) error {
					return addMod(cmd.Context(), cmd.OutOrStdout(), s, args)
				})
			},
		},
		&cobra.Command{
			Use:   "remove <name>",
			Short: "Delete an installed mod",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.withSession(cmd.Context(), true, func(s *session) error {
					if err := s.mods.Remove(args[0]); err != nil {
						return explain("remove mod", args[0], err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s Removed %s\n", successIcon, modNameStyle.Render(args[0]))
					return nil
				})
			},
		},
		newToggleCommand(app, "enable", "Enable mods in mod-list.json", true),
		newToggleCommand(app, "disable", "Disable mods in mod-list.json", false),
		&cobra.Command{
			Use:   "check-deps",
			Short: "Report missing and incompatible dependencies",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.withSession(cmd.Context(), false, func(s *session) error {
					return checkDeps(cmd.OutOrStdout(), s)
				})
			},
		},
		&cobra.Command{
			Use:   "ensure-deps",
			Short: "Install the latest release of every missing dependency",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.withSession(cmd.Context(), true, func(s *session) error {
					return ensureDeps(cmd.Context(), cmd.OutOrStdout(), s)
				})
			},
		},
		&cobra.Command{
			Use:   "check-updates",
			Short: "List mods with newer releases",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.withSession(cmd.Context(), false, func(s *session) error {
					updates, err := s.mods.CheckUpdates(cmd.Context())
					if err != nil {
						return explain("check for updates", s.mods.Dir(), err)
					}
					printUpdates(cmd.OutOrStdout(), updates, "available")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "update",
			Short: "Update every mod to its latest release",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.withSession(cmd.Context(), true, func(s *session) error {
					updates, err := s.mods.Update(cmd.Context())
					if err != nil {
						return explain("update mods", s.mods.Dir(), err)
					}
					printUpdates(cmd.OutOrStdout(), updates, "applied")
					return nil
				})
			},
		},
		newSyncCommand(app),
		newCacheCommand(app),
	)

	return modsCmd
}

// withSession opens a session, runs fn and closes the session. When mutate
// is set and fn succeeds the collection is persisted to the store.
func (a *App) withSession(ctx context.Context, mutate bool, fn func(*session) error) error {
	s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			s.logger.Warn("failed to close store", "err", cerr)
		}
	}()

	if err := fn(s); err != nil {
		return err
	}
	if mutate {
		if err := s.persist(ctx); err != nil {
			return explain("save the mod store", s.cfg.StorePath, err)
		}
	}
	return nil
}

func listMods(w io.Writer, s *session) error {
	if s.mods.Count() == 0 {
		fmt.Fprintf(w, "%s No mods installed in %s\n", infoIcon, s.mods.Dir())
		fmt.Fprintf(w, "%s To add one, use: modtorio mods add <name>\n", infoIcon)
		return nil
	}

	status, err := s.mods.EnabledStatus()
	if err != nil {
		return explain("read mod-list.json", s.mods.Dir(), err)
	}

	tbl := tui.NewTable("Name", "Version", "Enabled", "Archive")
	for _, name := range s.mods.Names() {
		m, err := s.mods.Get(name)
		if err != nil {
			continue
		}
		ver := "unknown"
		if v, err := m.OwnVersion(); err == nil {
			ver = v.String()
		}
		archive, _ := m.Archive()

		if status[name] {
			tbl.Row(name, ver, "yes", archive)
		} else {
			tbl.MutedRow(name, ver, "no", archive)
		}
	}

	fmt.Fprintln(w, tbl.String())
	fmt.Fprintf(w, "%s %d mod(s) in %s\n", infoIcon, tbl.Len(), SubtitleStyle.Render(s.mods.Dir()))
	return nil
}

func addMod(ctx context.Context, w io.Writer, s *session, args []string) error {
	name := args[0]
	var want *version.Version
	if len(args) == 2 {
		v, err := version.Parse(args[1])
		if err != nil {
			return explain("add mod", name, err)
		}
		want = &v
	}

	res, err := s.mods.Add(ctx, name, want)
	if err != nil {
		return explain("add mod", name, err)
	}
	printDownload(w, name, res)
	return nil
}

func printDownload(w io.Writer, name string, res mods.DownloadResult) {
	size := units.HumanSize(float64(res.Size))
	switch res.Outcome {
	case mods.DownloadReplaced:
		fmt.Fprintf(w, "%s %s %s → %s (%s)\n", successIcon, modNameStyle.Render(name),
			res.OldVersion, modVersionStyle.Render(res.Version.String()), size)
	case mods.DownloadUnchanged:
		fmt.Fprintf(w, "%s %s %s reinstalled (%s)\n", successIcon, modNameStyle.Render(name),
			modVersionStyle.Render(res.Version.String()), size)
	default:
		fmt.Fprintf(w, "%s Installed %s %s (%s)\n", successIcon, modNameStyle.Render(name),
			modVersionStyle.Render(res.Version.String()), size)
	}
}

func newToggleCommand(app *App, verb, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <name>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd.Context(), false, func(s *session) error {
				for _, name := range args {
					if err := s.mods.SetEnabled(name, enabled); err != nil {
						return explain(verb+" mod", name, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %sd %s\n", successIcon, verb, modNameStyle.Render(name))
				}
				return nil
			})
		},
	}
}

func checkDeps(w io.Writer, s *session) error {
	missing, err := s.mods.CheckDependencies()
	var incompatible *mods.IncompatibleError
	if errors.As(err, &incompatible) {
		fmt.Fprintf(w, "%s %s is incompatible with %s (%s)\n", errorIcon,
			modNameStyle.Render(incompatible.Blocking), modNameStyle.Render(incompatible.Dependent),
			incompatible.Dependency)
		return &ExitError{Code: ExitDependencyProblems, Err: explain("check dependencies", s.mods.Dir(), err)}
	}
	if err != nil {
		return explain("check dependencies", s.mods.Dir(), err)
	}

	if len(missing) == 0 {
		fmt.Fprintf(w, "%s All dependencies are satisfied\n", successIcon)
		return nil
	}

	fmt.Fprintf(w, "%s %d missing dependenc(ies):\n", warnIcon, len(missing))
	for _, name := range missing {
		fmt.Fprintf(w, "   %s\n", modNameStyle.Render(name))
	}
	fmt.Fprintf(w, "%s To install them, use: modtorio mods ensure-deps\n", infoIcon)
	return &ExitError{Code: ExitDependencyProblems, Err: fmt.Errorf("%d dependencies missing", len(missing))}
}

func ensureDeps(ctx context.Context, w io.Writer, s *session) error {
	installed, err := s.mods.EnsureDependencies(ctx)
	for _, name := range installed {
		fmt.Fprintf(w, "%s Installed %s\n", successIcon, modNameStyle.Render(name))
	}
	if err != nil {
		return explain("install dependencies", s.mods.Dir(), err)
	}
	if len(installed) == 0 {
		fmt.Fprintf(w, "%s Nothing to install\n", successIcon)
		return nil
	}

	// One level at a time: the new mods may need more.
	if missing, err := s.mods.CheckDependencies(); err == nil && len(missing) > 0 {
		fmt.Fprintf(w, "%s The installed mods need %d more; run ensure-deps again\n", warnIcon, len(missing))
	}
	return nil
}

func printUpdates(w io.Writer, updates []mods.Update, state string) {
	if len(updates) == 0 {
		fmt.Fprintf(w, "%s Every mod is up to date\n", successIcon)
		return
	}

	tbl := tui.NewTable("Name", "Current", "Latest", "Released")
	for _, u := range updates {
		tbl.Row(u.Name, u.Current.String(), u.Latest.String(), u.ReleasedOn.Format("2006-01-02"))
	}
	fmt.Fprintln(w, tbl.String())
	fmt.Fprintf(w, "%s %d update(s) %s\n", infoIcon, len(updates), state)
}

func newCacheCommand(app *App) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local mod store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Refresh cached registry data and archive records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd.Context(), false, func(s *session) error {
				if err := s.mods.UpdateStore(cmd.Context(), s.host, false); err != nil {
					return explain("refresh the mod store", s.cfg.StorePath, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Cached %d mod(s)\n", successIcon, s.mods.Count())
				return nil
			})
		},
	})
	return cacheCmd
}
