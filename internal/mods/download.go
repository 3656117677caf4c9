// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Spanfile/Modtorio-sub000/internal/portal"
	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

// DownloadOutcome says how a download changed a mod.
type DownloadOutcome int

const (
	// DownloadNew means the mod had no installed version before.
	DownloadNew DownloadOutcome = iota
	// DownloadUnchanged means the same version was downloaded again.
	DownloadUnchanged
	// DownloadReplaced means another version replaced the installed one.
	DownloadReplaced
)

func (o DownloadOutcome) String() string {
	switch o {
	case DownloadNew:
		return "new"
	case DownloadUnchanged:
		return "unchanged"
	case DownloadReplaced:
		return "replaced"
	default:
		return fmt.Sprintf("DownloadOutcome(%d)", int(o))
	}
}

// DownloadResult describes a completed download.
type DownloadResult struct {
	Outcome DownloadOutcome
	// Version and Path describe the downloaded release.
	Version version.Version
	Path    string
	Size    int64
	// OldVersion and OldArchive are set when Outcome is DownloadReplaced.
	OldVersion version.Version
	OldArchive string
}

// Download installs a release of the mod into destDir: the release with
// exactly version ver, or the latest when ver is nil. The archive is fetched
// into a staging directory and verified against the registry's SHA-1 before
// it is moved into place. Only then are the mod's archive, checksum, versions
// and dependencies swapped, all at once. On any failure the mod is left as
// it was.
func (m *Mod) Download(ctx context.Context, ver *version.Version, destDir string) (DownloadResult, error) {
	res, err := m.download(ctx, ver, destDir)
	if err != nil {
		m.opts.metrics.Download("failed", 0)
		return DownloadResult{}, err
	}
	m.opts.metrics.Download(res.Outcome.String(), res.Size)
	return res, nil
}

func (m *Mod) download(ctx context.Context, ver *version.Version, destDir string) (DownloadResult, error) {
	if m.opts.registry == nil {
		return DownloadResult{}, ErrNoRegistry
	}

	rel, err := m.targetRelease(ver)
	if err != nil {
		return DownloadResult{}, err
	}

	staging, err := os.MkdirTemp(destDir, ".modtorio-download-")
	if err != nil {
		return DownloadResult{}, fmt.Errorf("creating staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	m.logger.Info("downloading", "version", rel.Version)
	staged, size, err := m.opts.registry.Download(ctx, m.name, rel.Locator, rel.FileName, staging)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("downloading %s %s: %w", m.name, rel.Version, err)
	}

	sum, err := registryChecksum(staged)
	if err != nil {
		return DownloadResult{}, err
	}
	if !strings.EqualFold(sum, rel.SHA1) {
		_ = os.Remove(staged)
		return DownloadResult{}, &ChecksumError{Archive: filepath.Base(staged), Found: sum, Expected: rel.SHA1}
	}

	man, err := readManifest(staged)
	if err != nil {
		return DownloadResult{}, err
	}
	if man.Name != m.name {
		return DownloadResult{}, &NameMismatchError{Archive: filepath.Base(staged), Existing: m.name, Found: man.Name}
	}

	localSum, err := ArchiveChecksum(staged)
	if err != nil {
		return DownloadResult{}, err
	}

	final := filepath.Join(destDir, filepath.Base(staged))
	if err := os.Rename(staged, final); err != nil {
		return DownloadResult{}, fmt.Errorf("moving %s into place: %w", filepath.Base(staged), err)
	}

	m.mu.Lock()
	prevVersions, prevArchive := m.info.versions, m.archive
	m.info.versions = &versions{own: man.Version, platform: man.FactorioVersion}
	m.info.dependencies = man.Dependencies
	if m.info.author == "" {
		m.info.author = man.Author
		m.info.contact = man.Contact
	}
	m.archive = final
	m.checksum = localSum
	m.mu.Unlock()

	res := DownloadResult{Version: man.Version, Path: final, Size: size}
	switch {
	case prevVersions == nil || prevArchive == "":
		res.Outcome = DownloadNew
	case prevVersions.own == man.Version:
		res.Outcome = DownloadUnchanged
	default:
		res.Outcome = DownloadReplaced
		res.OldVersion = prevVersions.own
		res.OldArchive = prevArchive
	}

	m.logger.Info("installed", "version", man.Version, "outcome", res.Outcome)
	return res, nil
}

func (m *Mod) targetRelease(ver *version.Version) (portal.Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ver != nil {
		return m.info.release(m.name, *ver)
	}
	return m.info.latestRelease()
}
