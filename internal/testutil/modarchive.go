// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

// ModArchive describes a Factorio mod archive for BuildModArchive.
type ModArchive struct {
	Name            string
	Version         string
	FactorioVersion string // defaults to "1.1"
	Title           string // defaults to Name
	Author          string // defaults to "tester"
	Homepage        string
	Description     string
	// Dependencies is written verbatim. Nil omits the field.
	Dependencies []string
	// Dir is the folder inside the archive holding info.json. Defaults to
	// "<name>_<version>".
	Dir string
	// Omit lists manifest fields to leave out.
	Omit []string
	// NoManifest builds an archive without info.json.
	NoManifest bool
	// Extra holds additional files, keyed by their path inside the archive.
	Extra map[string]string
}

// FileName is the conventional "<name>_<version>.zip".
func (a ModArchive) FileName() string {
	return fmt.Sprintf("%s_%s.zip", a.Name, a.Version)
}

// BuildModArchive returns the bytes of a zip archive described by a.
func BuildModArchive(t testing.TB, a ModArchive) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	dir := a.Dir
	if dir == "" {
		dir = fmt.Sprintf("%s_%s", a.Name, a.Version)
	}

	if !a.NoManifest {
		data, err := json.MarshalIndent(a.manifest(), "", "  ")
		if err != nil {
			t.Fatalf("encoding info.json: %v", err)
		}
		writeZipEntry(t, zw, dir+"/info.json", data)
	}
	writeZipEntry(t, zw, dir+"/data.lua", []byte("-- "+a.Name+"\n"))
	for name, content := range a.Extra {
		writeZipEntry(t, zw, name, []byte(content))
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}
	return buf.Bytes()
}

// WriteModArchive writes the archive described by a into dir under its
// conventional file name and returns the full path.
func WriteModArchive(t testing.TB, dir string, a ModArchive) string {
	t.Helper()

	path := filepath.Join(dir, a.FileName())
	MustWriteFile(t, path, BuildModArchive(t, a))
	return path
}

func (a ModArchive) manifest() map[string]any {
	m := map[string]any{
		"name":             a.Name,
		"version":          a.Version,
		"factorio_version": valueOr(a.FactorioVersion, "1.1"),
		"title":            valueOr(a.Title, a.Name),
		"author":           valueOr(a.Author, "tester"),
	}
	if a.Homepage != "" {
		m["homepage"] = a.Homepage
	}
	if a.Description != "" {
		m["description"] = a.Description
	}
	if a.Dependencies != nil {
		m["dependencies"] = a.Dependencies
	}
	for _, field := range a.Omit {
		delete(m, field)
	}
	return m
}

func writeZipEntry(t testing.TB, zw *zip.Writer, name string, data []byte) {
	t.Helper()

	w, err := zw.Create(name)
	if err != nil {
		t.Fatalf("creating %s in archive: %v", name, err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("writing %s in archive: %v", name, err)
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
