// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"errors"
	"fmt"

	"github.com/Spanfile/Modtorio-sub000/pkg/dependency"
	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

var (
	// ErrNoSuchFile is returned when an archive has no info.json.
	ErrNoSuchFile = errors.New("archive has no info.json")
	// ErrDeserialize is returned when info.json cannot be decoded.
	ErrDeserialize = errors.New("malformed info.json")
	// ErrChecksumMismatch is wrapped by ChecksumError.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrMissingArchive is wrapped by MissingArchiveError.
	ErrMissingArchive = errors.New("mod archive is missing")
	// ErrMissingArchivePath is returned when a mod has no archive yet.
	ErrMissingArchivePath = errors.New("mod has no archive")
	// ErrNoSuchRelease is wrapped by NoSuchReleaseError.
	ErrNoSuchRelease = errors.New("no such release")
	// ErrNoReleases is returned when the registry has not provided releases.
	ErrNoReleases = errors.New("mod has no known releases")
	// ErrUnknownModName is wrapped by UnknownModError.
	ErrUnknownModName = errors.New("unknown mod name in registry response")
	// ErrIncompatiblePresent is wrapped by IncompatibleError.
	ErrIncompatiblePresent = errors.New("incompatible mod installed")
	// ErrNoSuchMod is returned when a collection has no mod by that name.
	ErrNoSuchMod = errors.New("no such mod")
	// ErrNameMismatch is wrapped by NameMismatchError.
	ErrNameMismatch = errors.New("mod name mismatch")
	// ErrModNotInCache is returned when a cached record has no registry
	// metadata cached alongside it.
	ErrModNotInCache = errors.New("mod not in registry cache")
	// ErrCannotDisableBase is returned when disabling the base mod.
	ErrCannotDisableBase = errors.New("the base mod cannot be disabled")
	// ErrVersionsUnknown is returned before any source populated a mod's
	// versions or dependencies.
	ErrVersionsUnknown = errors.New("mod versions are not known")
	// ErrDuplicateArchive is logged when two cached records claim the same
	// archive.
	ErrDuplicateArchive = errors.New("archive already claimed by another record")
	// ErrBatcherConsumed is returned by an UpdateBatcher after
	// UpgradeCandidates.
	ErrBatcherConsumed = errors.New("update batcher already consumed")
	// ErrNoRegistry is returned by operations that need a registry client
	// when none was configured.
	ErrNoRegistry = errors.New("no mod registry configured")
	// ErrNoStore is returned by operations that need the store when none was
	// configured.
	ErrNoStore = errors.New("no store configured")
)

type (
	// ChecksumError reports an archive whose digest is not the expected one.
	ChecksumError struct {
		Archive  string
		Found    string
		Expected string
	}

	// MissingArchiveError reports an archive that does not exist on disk.
	MissingArchiveError struct {
		Path string
	}

	// NoSuchReleaseError reports a requested version the registry does not
	// have.
	NoSuchReleaseError struct {
		Name    string
		Version version.Version
	}

	// UnknownModError reports a registry response for a mod that was never
	// asked for.
	UnknownModError struct {
		Name string
	}

	// IncompatibleError reports an installed mod that another installed mod
	// declares incompatible.
	IncompatibleError struct {
		Dependent  string
		Blocking   string
		Dependency dependency.Dependency
	}

	// NameMismatchError reports an archive whose manifest names another mod.
	NameMismatchError struct {
		Archive  string
		Existing string
		Found    string
	}

	// ManifestError reports a malformed info.json.
	ManifestError struct {
		Archive string
		Err     error
	}
)

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: found %s, expected %s", e.Archive, e.Found, e.Expected)
}

// Unwrap returns ErrChecksumMismatch.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

func (e *MissingArchiveError) Error() string {
	return fmt.Sprintf("mod archive %s is missing", e.Path)
}

// Unwrap returns ErrMissingArchive.
func (e *MissingArchiveError) Unwrap() error { return ErrMissingArchive }

func (e *NoSuchReleaseError) Error() string {
	return fmt.Sprintf("%s has no release %s", e.Name, e.Version)
}

// Unwrap returns ErrNoSuchRelease.
func (e *NoSuchReleaseError) Unwrap() error { return ErrNoSuchRelease }

func (e *UnknownModError) Error() string {
	return fmt.Sprintf("registry returned unrequested mod %q", e.Name)
}

// Unwrap returns ErrUnknownModName.
func (e *UnknownModError) Unwrap() error { return ErrUnknownModName }

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("%s is incompatible with installed mod %s", e.Dependent, e.Blocking)
}

// Unwrap returns ErrIncompatiblePresent.
func (e *IncompatibleError) Unwrap() error { return ErrIncompatiblePresent }

func (e *NameMismatchError) Error() string {
	return fmt.Sprintf("archive %s contains mod %q, expected %q", e.Archive, e.Found, e.Existing)
}

// Unwrap returns ErrNameMismatch.
func (e *NameMismatchError) Unwrap() error { return ErrNameMismatch }

func (e *ManifestError) Error() string {
	return fmt.Sprintf("malformed info.json in %s: %v", e.Archive, e.Err)
}

// Unwrap returns ErrDeserialize and the decoding error.
func (e *ManifestError) Unwrap() []error { return []error{ErrDeserialize, e.Err} }
