// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Spanfile/Modtorio-sub000/internal/modpack"
	"github.com/Spanfile/Modtorio-sub000/internal/tui"
	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

func newSyncCommand(app *App) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sync <modpack>",
		Short: "Make the mods directory match a modpack file",
		Long: `Make the mods directory match a modpack file.

Every mod the modpack lists is installed, or moved to its pinned version,
and enabled or disabled as the modpack says. Missing dependencies of the
result are installed afterwards. Mods the modpack does not list are left
alone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pack, err := modpack.Load(args[0])
			if err != nil {
				return explain("load modpack", args[0], err)
			}
			return app.withSession(cmd.Context(), !dryRun, func(s *session) error {
				return syncModpack(cmd.Context(), cmd.OutOrStdout(), s, pack, dryRun)
			})
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print the plan without changing anything")
	return cmd
}

func installedVersions(s *session) map[string]version.Version {
	installed := make(map[string]version.Version, s.mods.Count())
	for _, name := range s.mods.Names() {
		m, err := s.mods.Get(name)
		if err != nil {
			continue
		}
		if v, err := m.OwnVersion(); err == nil {
			installed[name] = v
		}
	}
	return installed
}

func syncModpack(ctx context.Context, w io.Writer, s *session, pack *modpack.Modpack, dryRun bool) error {
	actions, err := pack.Plan(installedVersions(s))
	if err != nil {
		return explain("plan modpack", pack.Source, err)
	}

	printPlan(w, actions)
	if dryRun {
		return nil
	}

	var failures []error
	for _, a := range actions {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if a.NeedsDownload() {
			res, err := s.mods.Add(ctx, a.Name, a.Target)
			if err != nil {
				s.logger.Error("failed to apply modpack entry", "mod", a.Name, "action", a.Kind, "err", err)
				fmt.Fprintf(w, "%s %s: %v\n", errorIcon, modNameStyle.Render(a.Name), err)
				failures = append(failures, fmt.Errorf("%s: %w", a.Name, err))
				continue
			}
			printDownload(w, a.Name, res)
		}
		if err := s.mods.SetEnabled(a.Name, a.Enabled); err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", a.Name, err))
		}
	}

	installed, err := s.mods.EnsureDependencies(ctx)
	for _, name := range installed {
		fmt.Fprintf(w, "%s Installed dependency %s\n", successIcon, modNameStyle.Render(name))
	}
	if err != nil {
		failures = append(failures, err)
	}

	if err := errors.Join(failures...); err != nil {
		// Keep what did get installed.
		if perr := s.persist(ctx); perr != nil {
			s.logger.Warn("failed to save the mod store", "err", perr)
		}
		return explain("sync modpack", pack.Source, err)
	}
	fmt.Fprintf(w, "%s %s applied\n", successIcon, pack.Source)
	return nil
}

func printPlan(w io.Writer, actions []modpack.Action) {
	tbl := tui.NewTable("Name", "Action", "Current", "Target", "Enabled")
	for _, a := range actions {
		current, target := "-", "latest"
		if a.Current != nil {
			current = a.Current.String()
		}
		if a.Target != nil {
			target = a.Target.String()
		}
		enabled := "yes"
		if !a.Enabled {
			enabled = "no"
		}

		if a.Kind == modpack.ActionKeep {
			tbl.MutedRow(a.Name, string(a.Kind), current, target, enabled)
		} else {
			tbl.Row(a.Name, string(a.Kind), current, target, enabled)
		}
	}
	fmt.Fprintln(w, tbl.String())
}
