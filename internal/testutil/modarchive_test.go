// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

func readManifest(t *testing.T, data []byte) map[string]any {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != "foo_1.0.0/info.json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		defer rc.Close()

		raw, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatal(err)
		}
		return m
	}
	return nil
}

func TestBuildModArchive(t *testing.T) {
	t.Parallel()

	data := BuildModArchive(t, ModArchive{
		Name:         "foo",
		Version:      "1.0.0",
		Dependencies: []string{"base >= 1.1.0"},
		Omit:         []string{"author"},
	})

	m := readManifest(t, data)
	if m == nil {
		t.Fatal("info.json not found under foo_1.0.0/")
	}
	if m["name"] != "foo" || m["title"] != "foo" || m["factorio_version"] != "1.1" {
		t.Errorf("unexpected manifest: %v", m)
	}
	if _, ok := m["author"]; ok {
		t.Error("omitted field author is present")
	}
	if deps, ok := m["dependencies"].([]any); !ok || len(deps) != 1 {
		t.Errorf("dependencies = %v", m["dependencies"])
	}
}

func TestBuildModArchive_NoManifest(t *testing.T) {
	t.Parallel()

	data := BuildModArchive(t, ModArchive{Name: "foo", Version: "1.0.0", NoManifest: true})
	if m := readManifest(t, data); m != nil {
		t.Errorf("unexpected manifest: %v", m)
	}
}

func TestWriteModArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := WriteModArchive(t, dir, ModArchive{Name: "foo", Version: "1.0.0"})

	if want := filepath.Join(dir, "foo_1.0.0.zip"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
}
