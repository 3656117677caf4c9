// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"runtime"
	"testing"
)

// SetHomeDir points the platform's home directory variable (USERPROFILE on
// Windows, HOME elsewhere) at dir, and also clears XDG_CONFIG_HOME so
// os.UserConfigDir follows it. It returns a function that restores both.
//
//	t.Cleanup(testutil.SetHomeDir(t, t.TempDir()))
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()

	restoreXDG := MustSetenv(t, "XDG_CONFIG_HOME", "")

	var restoreHome func()
	switch runtime.GOOS {
	case "windows":
		restoreHome = MustSetenv(t, "USERPROFILE", dir)
	default:
		restoreHome = MustSetenv(t, "HOME", dir)
	}

	return func() {
		restoreHome()
		restoreXDG()
	}
}
