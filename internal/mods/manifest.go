// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/klauspost/compress/zip"

	"github.com/Spanfile/Modtorio-sub000/pkg/dependency"
	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

const (
	manifestName = "info.json"

	// maxManifestBytes bounds how much of info.json is read (1 MB).
	maxManifestBytes = 1 << 20
)

type (
	// manifest is the decoded info.json of a mod archive.
	manifest struct {
		Name            string
		Version         version.Version
		FactorioVersion version.Version
		Title           string
		Author          string
		Contact         string
		Homepage        string
		Description     string
		Dependencies    []dependency.Dependency
	}

	manifestFile struct {
		Name            *string                 `json:"name"`
		Version         *version.Version        `json:"version"`
		FactorioVersion *version.Version        `json:"factorio_version"`
		Title           *string                 `json:"title"`
		Author          *string                 `json:"author"`
		Contact         string                  `json:"contact"`
		Homepage        string                  `json:"homepage"`
		Description     string                  `json:"description"`
		Dependencies    []dependency.Dependency `json:"dependencies"`
	}
)

// readManifest decodes the first info.json found anywhere in the archive.
func readManifest(archive string) (*manifest, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", archive, err)
	}
	defer func() { _ = zr.Close() }() // read-only archive

	for _, f := range zr.File {
		if path.Base(f.Name) != manifestName || f.FileInfo().IsDir() {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s in %s: %w", f.Name, archive, err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxManifestBytes))
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s in %s: %w", f.Name, archive, err)
		}

		m, err := decodeManifest(data)
		if err != nil {
			return nil, &ManifestError{Archive: archive, Err: err}
		}
		return m, nil
	}

	return nil, fmt.Errorf("%s: %w", archive, ErrNoSuchFile)
}

func decodeManifest(data []byte) (*manifest, error) {
	var mf manifestFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, err
	}

	var missing []error
	for _, f := range []struct {
		name    string
		present bool
	}{
		{"name", mf.Name != nil && *mf.Name != ""},
		{"version", mf.Version != nil},
		{"factorio_version", mf.FactorioVersion != nil},
		{"title", mf.Title != nil},
		{"author", mf.Author != nil},
	} {
		if !f.present {
			missing = append(missing, fmt.Errorf("missing field %q", f.name))
		}
	}
	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}

	deps := mf.Dependencies
	if deps == nil {
		deps = []dependency.Dependency{{Kind: dependency.Mandatory, Name: dependency.BaseMod}}
	}

	return &manifest{
		Name:            *mf.Name,
		Version:         *mf.Version,
		FactorioVersion: *mf.FactorioVersion,
		Title:           *mf.Title,
		Author:          *mf.Author,
		Contact:         mf.Contact,
		Homepage:        mf.Homepage,
		Description:     mf.Description,
		Dependencies:    deps,
	}, nil
}
