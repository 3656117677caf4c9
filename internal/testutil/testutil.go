// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"io"
	"os"
	"testing"
)

// MustChdir changes the working directory to dir and returns a function that
// restores the original one.
func MustChdir(t testing.TB, dir string) func() {
	t.Helper()
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get current directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change directory to %s: %v", dir, err)
	}
	return func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Errorf("failed to restore directory to %s: %v", originalWd, err)
		}
	}
}

// MustSetenv sets key to value and returns a function that restores the
// original value, or unsets it if there was none.
func MustSetenv(t testing.TB, key, value string) func() {
	t.Helper()
	originalValue, hadValue := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	return func() {
		if hadValue {
			if err := os.Setenv(key, originalValue); err != nil {
				t.Errorf("failed to restore env %s: %v", key, err)
			}
			return
		}
		if err := os.Unsetenv(key); err != nil {
			t.Errorf("failed to unset env %s: %v", key, err)
		}
	}
}

// MustMkdirAll creates path and any missing parents.
func MustMkdirAll(t testing.TB, path string, perm os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(path, perm); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}

// MustWriteFile writes data to path.
func MustWriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// DeferClose returns a cleanup function that closes c, logging any error.
func DeferClose(t testing.TB, c io.Closer) func() {
	t.Helper()
	return func() {
		t.Helper()
		if err := c.Close(); err != nil {
			t.Logf("warning: close returned error: %v", err)
		}
	}
}
