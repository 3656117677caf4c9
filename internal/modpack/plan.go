// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

// ActionKind is what applying a modpack does to one mod.
type ActionKind string

const (
	ActionInstall   ActionKind = "install"
	ActionUpgrade   ActionKind = "upgrade"
	ActionDowngrade ActionKind = "downgrade"
	ActionKeep      ActionKind = "keep"
)

// Action is the planned change for one modpack entry.
type Action struct {
	Name string
	Kind ActionKind
	// Current is nil when the mod is not installed.
	Current *version.Version
	// Target is nil when the latest release is wanted.
	Target  *version.Version
	Enabled bool
}

// NeedsDownload reports whether the action fetches a release.
func (a Action) NeedsDownload() bool {
	return a.Kind != ActionKeep
}

// Plan compares the modpack with the installed versions and returns one
// action per entry, in file order. The modpack must be valid.
func (p *Modpack) Plan(installed map[string]version.Version) ([]Action, error) {
	actions := make([]Action, 0, len(p.Mods))
	for _, e := range p.Mods {
		pin, err := e.Pin()
		if err != nil {
			return nil, err
		}

		a := Action{Name: e.Name, Target: pin, Enabled: e.IsEnabled()}
		cur, ok := installed[e.Name]
		if ok {
			a.Current = &cur
		}

		switch {
		case !ok:
			a.Kind = ActionInstall
		case pin == nil:
			// Unpinned entries never move an installed mod; "mods update" does.
			a.Kind = ActionKeep
		default:
			switch cur.Compare(*pin) {
			case -1:
				a.Kind = ActionUpgrade
			case 1:
				a.Kind = ActionDowngrade
			default:
				a.Kind = ActionKeep
			}
		}
		actions = append(actions, a)
	}
	return actions, nil
}
