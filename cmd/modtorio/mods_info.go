// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Spanfile/Modtorio-sub000/internal/mods"
	"github.com/Spanfile/Modtorio-sub000/internal/portal"
	"github.com/Spanfile/Modtorio-sub000/internal/tui"
)

const maxListedReleases = 5

type (
	infoFlags struct {
		changelog bool
		width     int
		theme     string
	}

	// modInfo is what `mods info` shows, gathered from an installed mod or
	// straight from the portal.
	modInfo struct {
		Name        string
		Title       string
		Author      string
		Summary     string
		Homepage    string
		Description string
		Changelog   string
		Installed   string
		Releases    []portal.Release
	}
)

func newModsInfoCommand(app *App) *cobra.Command {
	var flags infoFlags
	cmd := &cobra.Command{
		Use:   "info <name>",
		Short: "Show a mod's portal page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd.Context(), false, func(s *session) error {
				info, err := lookupInfo(cmd.Context(), s, args[0])
				if err != nil {
					return explain("show mod", args[0], err)
				}
				return renderInfo(cmd.OutOrStdout(), info, flags)
			})
		},
	}
	cmd.Flags().BoolVar(&flags.changelog, "changelog", false, "include the changelog")
	cmd.Flags().IntVar(&flags.width, "width", 80, "wrap text at this column")
	cmd.Flags().StringVar(&flags.theme, "theme", tui.ThemeAuto, "glamour style (auto, dark, light, notty)")
	return cmd
}

// lookupInfo reads an installed mod through its registry cache, and an
// unknown one from the portal.
func lookupInfo(ctx context.Context, s *session, name string) (*modInfo, error) {
	m, err := s.mods.Get(name)
	if errors.Is(err, mods.ErrNoSuchMod) {
		meta, err := s.registry.FetchMod(ctx, name)
		if err != nil {
			return nil, err
		}
		return &modInfo{
			Name:        meta.Name,
			Title:       meta.Title,
			Author:      meta.Owner,
			Summary:     meta.Summary,
			Homepage:    meta.Homepage,
			Description: meta.Description,
			Changelog:   meta.Changelog,
			Releases:    meta.Releases,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := m.EnsureRegistryInfo(ctx); err != nil {
		return nil, err
	}
	info := &modInfo{
		Name:        m.Name(),
		Title:       m.Title(),
		Author:      m.Author(),
		Summary:     m.Summary(),
		Homepage:    m.Homepage(),
		Description: m.Description(),
		Changelog:   m.Changelog(),
	}
	if v, err := m.OwnVersion(); err == nil {
		info.Installed = v.String()
	}
	if releases, err := m.Releases(); err == nil {
		info.Releases = releases
	}
	return info, nil
}

func renderInfo(w io.Writer, info *modInfo, flags infoFlags) error {
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render(info.Title), SubtitleStyle.Render("("+info.Name+")"))
	if info.Summary != "" {
		fmt.Fprintln(w, info.Summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s Author:    %s\n", infoIcon, info.Author)
	if info.Homepage != "" {
		fmt.Fprintf(w, "%s Homepage:  %s\n", infoIcon, CmdStyle.Render(info.Homepage))
	}
	if info.Installed != "" {
		fmt.Fprintf(w, "%s Installed: %s\n", infoIcon, modVersionStyle.Render(info.Installed))
	} else {
		fmt.Fprintf(w, "%s Installed: %s\n", infoIcon, SubtitleStyle.Render("no"))
	}

	if len(info.Releases) > 0 {
		releases := slices.Clone(info.Releases)
		slices.SortFunc(releases, func(a, b portal.Release) int { return b.Version.Compare(a.Version) })

		tbl := tui.NewTable("Version", "Factorio", "Released", "Dependencies")
		for _, r := range releases[:min(len(releases), maxListedReleases)] {
			deps := make([]string, 0, len(r.Dependencies))
			for _, d := range r.Dependencies {
				deps = append(deps, d.String())
			}
			tbl.Row(r.Version.String(), r.FactorioVersion.String(), r.ReleasedAt.Format("2006-01-02"), strings.Join(deps, ", "))
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, tbl.String())
		if len(releases) > maxListedReleases {
			fmt.Fprintf(w, "%s %d older release(s) not shown\n", infoIcon, len(releases)-maxListedReleases)
		}
	}

	sections := []struct {
		title, body string
		show        bool
	}{
		{"Description", info.Description, true},
		{"Changelog", info.Changelog, flags.changelog},
	}
	for _, sec := range sections {
		if !sec.show || strings.TrimSpace(sec.body) == "" {
			continue
		}
		out, err := tui.Format(tui.FormatOptions{
			Content: sec.body,
			Type:    formatFor(sec.title),
			Theme:   flags.theme,
			Width:   flags.width,
		})
		if err != nil {
			return fmt.Errorf("rendering %s: %w", strings.ToLower(sec.title), err)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, TitleStyle.Render(sec.title))
		fmt.Fprint(w, out)
	}
	return nil
}

// formatFor picks the renderer for a section. Portal changelogs are plain
// text in Factorio's changelog.txt layout.
func formatFor(section string) tui.FormatType {
	if section == "Changelog" {
		return tui.FormatCode
	}
	return tui.FormatMarkdown
}
