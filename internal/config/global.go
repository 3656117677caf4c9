// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride and dataDirOverride replace the platform directories in
// tests, where os.UserHomeDir does not reliably follow HOME.
var (
	configDirOverride string
	dataDirOverride   string
)

// Reset clears test overrides.
func Reset() {
	configDirOverride = ""
	dataDirOverride = ""
}

// SetConfigDirOverride makes ConfigDir return dir.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// SetDataDirOverride makes DataDir return dir.
func SetDataDirOverride(dir string) {
	dataDirOverride = dir
}
