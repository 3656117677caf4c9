// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigShow_MasksToken(t *testing.T) {
	t.Parallel()

	c := newCLI(t)
	out := c.mustRun("config", "show")

	if strings.Contains(out, c.cfg.Portal.Token) {
		t.Error("config show printed the portal token")
	}
	for _, want := range []string{"Current Configuration", c.cfg.Portal.Username, c.cfg.ModsDir, "(disabled)", "(using defaults)"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show lacks %q:\n%s", want, out)
		}
	}
}

func TestConfigDump(t *testing.T) {
	t.Parallel()

	c := newCLI(t)
	out := c.mustRun("config", "dump")
	for _, want := range []string{"mods_dir:", "store_path:", "concurrency: 2", c.cfg.Portal.URL} {
		if !strings.Contains(out, want) {
			t.Errorf("config dump lacks %q:\n%s", want, out)
		}
	}
}

func TestConfigInitAndPath(t *testing.T) {
	t.Parallel()

	c := newCLI(t)
	path := filepath.Join(t.TempDir(), "nested", "config.cue")

	out := c.mustRun("--config", path, "config", "init")
	if !strings.Contains(out, "Created default configuration") {
		t.Errorf("init output = %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading created config: %v", err)
	}
	if !strings.Contains(string(data), "log_level:") {
		t.Errorf("created config:\n%s", data)
	}

	out = c.mustRun("--config", path, "config", "init")
	if !strings.Contains(out, "already exists") {
		t.Errorf("second init output = %q", out)
	}

	out = c.mustRun("--config", path, "config", "path")
	if !strings.Contains(out, path) {
		t.Errorf("path output = %q", out)
	}
}
