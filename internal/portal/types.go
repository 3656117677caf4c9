// SPDX-License-Identifier: MPL-2.0

package portal

import (
	"path"
	"time"

	"github.com/Spanfile/Modtorio-sub000/pkg/dependency"
	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

type (
	// Metadata is everything the registry knows about a mod.
	Metadata struct {
		Name        string
		Owner       string
		Title       string
		Summary     string
		Description string
		Changelog   string
		Homepage    string
		Releases    []Release
	}

	// Release is one published version of a mod.
	Release struct {
		Version         version.Version
		FactorioVersion version.Version
		// Locator is the registry-assigned identifier used to download the
		// release archive.
		Locator      string
		FileName     string
		SHA1         string
		ReleasedAt   time.Time
		Dependencies []dependency.Dependency
	}

	wireMod struct {
		Name        string        `json:"name"`
		Owner       string        `json:"owner"`
		Title       string        `json:"title"`
		Summary     string        `json:"summary"`
		Description string        `json:"description"`
		Changelog   string        `json:"changelog"`
		Homepage    string        `json:"homepage"`
		Releases    []wireRelease `json:"releases"`
	}

	wireRelease struct {
		DownloadURL string          `json:"download_url"`
		FileName    string          `json:"file_name"`
		ReleasedAt  time.Time       `json:"released_at"`
		Version     version.Version `json:"version"`
		SHA1        string          `json:"sha1"`
		InfoJSON    wireReleaseInfo `json:"info_json"`
	}

	wireReleaseInfo struct {
		FactorioVersion version.Version         `json:"factorio_version"`
		Dependencies    []dependency.Dependency `json:"dependencies"`
	}

	wirePage struct {
		Pagination *wirePagination `json:"pagination"`
		Results    []wireMod       `json:"results"`
	}

	wirePagination struct {
		Count     int       `json:"count"`
		Page      int       `json:"page"`
		PageCount int       `json:"page_count"`
		PageSize  int       `json:"page_size"`
		Links     wireLinks `json:"links"`
	}

	wireLinks struct {
		First *string `json:"first"`
		Last  *string `json:"last"`
		Prev  *string `json:"prev"`
		Next  *string `json:"next"`
	}
)

// LatestRelease returns the release with the highest version.
func (m *Metadata) LatestRelease() (Release, bool) {
	if len(m.Releases) == 0 {
		return Release{}, false
	}
	latest := m.Releases[0]
	for _, r := range m.Releases[1:] {
		if r.Version.Compare(latest.Version) > 0 {
			latest = r
		}
	}
	return latest, true
}

// Release returns the release with exactly version v.
func (m *Metadata) Release(v version.Version) (Release, bool) {
	for _, r := range m.Releases {
		if r.Version == v {
			return r, true
		}
	}
	return Release{}, false
}

func toMetadata(wm wireMod) Metadata {
	releases := make([]Release, 0, len(wm.Releases))
	for _, wr := range wm.Releases {
		releases = append(releases, toRelease(wr))
	}

	return Metadata{
		Name:        wm.Name,
		Owner:       wm.Owner,
		Title:       wm.Title,
		Summary:     wm.Summary,
		Description: wm.Description,
		Changelog:   wm.Changelog,
		Homepage:    wm.Homepage,
		Releases:    releases,
	}
}

func toRelease(wr wireRelease) Release {
	deps := wr.InfoJSON.Dependencies
	if deps == nil {
		deps = []dependency.Dependency{dependency.MustParse(dependency.BaseMod)}
	}

	return Release{
		Version:         wr.Version,
		FactorioVersion: wr.InfoJSON.FactorioVersion,
		Locator:         path.Base(wr.DownloadURL),
		FileName:        wr.FileName,
		SHA1:            wr.SHA1,
		ReleasedAt:      wr.ReleasedAt,
		Dependencies:    deps,
	}
}
