// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func homeEnvVar() string {
	if runtime.GOOS == "windows" {
		return "USERPROFILE"
	}
	return "HOME"
}

func TestSetHomeDir(t *testing.T) {
	tmpDir := t.TempDir()
	envVar := homeEnvVar()
	original := os.Getenv(envVar)

	cleanup := SetHomeDir(t, tmpDir)

	if got := os.Getenv(envVar); got != tmpDir {
		t.Errorf("%s = %q, want %q", envVar, got, tmpDir)
	}

	cleanup()

	if got := os.Getenv(envVar); got != original {
		t.Errorf("after cleanup, %s = %q, want %q", envVar, got, original)
	}
}

func TestSetHomeDir_UserConfigDirFollows(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout is Linux-specific")
	}

	tmpDir := t.TempDir()
	t.Cleanup(MustSetenv(t, "XDG_CONFIG_HOME", "/somewhere/else"))
	t.Cleanup(SetHomeDir(t, tmpDir))

	dir, err := os.UserConfigDir()
	if err != nil {
		t.Fatalf("UserConfigDir() error: %v", err)
	}
	if want := filepath.Join(tmpDir, ".config"); dir != want {
		t.Errorf("UserConfigDir() = %q, want %q", dir, want)
	}
}
