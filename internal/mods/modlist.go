// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Spanfile/Modtorio-sub000/pkg/dependency"
)

// ModListFile is the file in the mods directory where the game keeps which
// mods are enabled.
const ModListFile = "mod-list.json"

type (
	// ModList is the content of mod-list.json.
	ModList struct {
		Mods []ModListEntry `json:"mods"`
	}

	// ModListEntry is one mod's enabled flag.
	ModListEntry struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
	}
)

// LoadModList reads mod-list.json from dir. A missing file is an empty list.
func LoadModList(dir string) (*ModList, error) {
	data, err := os.ReadFile(filepath.Join(dir, ModListFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ModList{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", ModListFile, err)
	}

	var l ModList
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ModListFile, err)
	}
	return &l, nil
}

// Save writes the list to dir, replacing mod-list.json atomically.
func (l *ModList) Save(dir string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", ModListFile, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".mod-list-*.json")
	if err != nil {
		return fmt.Errorf("writing %s: %w", ModListFile, err)
	}
	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), filepath.Join(dir, ModListFile))
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", ModListFile, err)
	}
	return nil
}

// Enabled reports whether name is enabled and whether the list mentions it
// at all. The base mod is always enabled.
func (l *ModList) Enabled(name string) (enabled, listed bool) {
	for _, e := range l.Mods {
		if e.Name == name {
			return e.Enabled || name == dependency.BaseMod, true
		}
	}
	return name == dependency.BaseMod, false
}

// SetEnabled sets name's flag, appending an entry if the list has none. It
// reports whether the list changed. The base mod cannot be disabled and
// enabling it changes nothing.
func (l *ModList) SetEnabled(name string, enabled bool) (bool, error) {
	if name == dependency.BaseMod {
		if !enabled {
			return false, ErrCannotDisableBase
		}
		return false, nil
	}

	for i := range l.Mods {
		if l.Mods[i].Name == name {
			if l.Mods[i].Enabled == enabled {
				return false, nil
			}
			l.Mods[i].Enabled = enabled
			return true, nil
		}
	}

	l.Mods = append(l.Mods, ModListEntry{Name: name, Enabled: enabled})
	return true, nil
}
