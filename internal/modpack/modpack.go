// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/Spanfile/Modtorio-sub000/pkg/cueutil"
	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

var (
	// ErrUnknownFormat is returned for files that are neither .toml nor .cue.
	ErrUnknownFormat = errors.New("unknown modpack format")
	// ErrInvalid is returned when a modpack fails validation.
	ErrInvalid = errors.New("invalid modpack")

	//go:embed modpack_schema.cue
	schema []byte
)

// Entry is one wanted mod.
type Entry struct {
	Name string `json:"name" toml:"name"`
	// Version pins the mod. Empty means the latest release.
	Version string `json:"version,omitempty" toml:"version,omitempty"`
	// Enabled defaults to true when omitted.
	Enabled *bool `json:"enabled,omitempty" toml:"enabled,omitempty"`
}

// IsEnabled reports whether the entry should be enabled in mod-list.json.
func (e Entry) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// Pin returns the pinned version, or nil for an unpinned entry.
func (e Entry) Pin() (*version.Version, error) {
	if e.Version == "" {
		return nil, nil
	}
	v, err := version.Parse(e.Version)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Modpack is a parsed modpack file.
type Modpack struct {
	Mods []Entry `json:"mod" toml:"mod"`
	// Source is the file the modpack was loaded from.
	Source string `json:"-" toml:"-"`
}

// ValidationError lists every problem found in a modpack.
type ValidationError struct {
	Source   string
	Problems []string
}

func (e *ValidationError) Error() string {
	src := e.Source
	if src == "" {
		src = "modpack"
	}
	return fmt.Sprintf("%s: %s", src, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Load reads the modpack at path. The format follows the file extension.
func Load(path string) (*Modpack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading modpack: %w", err)
	}

	var pack *Modpack
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		pack, err = ParseTOML(data)
	case ".cue":
		pack, err = ParseCUE(data, filepath.Base(path))
	default:
		return nil, fmt.Errorf("%s: %w %q", path, ErrUnknownFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	pack.Source = path
	if err := pack.Validate(); err != nil {
		return nil, err
	}
	return pack, nil
}

// ParseTOML decodes a TOML modpack without validating it.
func ParseTOML(data []byte) (*Modpack, error) {
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, "modpack.toml"); err != nil {
		return nil, err
	}

	var pack Modpack
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pack); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("line %d column %d: %w", row, col, err)
		}
		return nil, err
	}
	return &pack, nil
}

// ParseCUE decodes a CUE modpack, checking it against the #Modpack schema.
func ParseCUE(data []byte, filename string) (*Modpack, error) {
	decoded, err := cueutil.Decode[Modpack](schema, data, "#Modpack", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	return &decoded.Value, nil
}

// Validate rejects empty or duplicate names and unparsable versions.
func (p *Modpack) Validate() error {
	var problems []string
	seen := make(map[string]int, len(p.Mods))

	for i, e := range p.Mods {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			problems = append(problems, fmt.Sprintf("mod[%d]: empty name", i))
			continue
		}
		if first, dup := seen[name]; dup {
			problems = append(problems, fmt.Sprintf("mod[%d]: %q already listed at mod[%d]", i, name, first))
		} else {
			seen[name] = i
		}
		if _, err := e.Pin(); err != nil {
			problems = append(problems, fmt.Sprintf("mod[%d]: %v", i, err))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Source: p.Source, Problems: problems}
	}
	return nil
}
