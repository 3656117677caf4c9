// SPDX-License-Identifier: MPL-2.0

package portaltest

import "time"

type (
	wireMod struct {
		Name        string        `json:"name"`
		Owner       string        `json:"owner"`
		Title       string        `json:"title"`
		Summary     string        `json:"summary"`
		Description string        `json:"description,omitempty"`
		Changelog   string        `json:"changelog,omitempty"`
		Homepage    string        `json:"homepage,omitempty"`
		Releases    []wireRelease `json:"releases"`
	}

	wireRelease struct {
		DownloadURL string          `json:"download_url"`
		FileName    string          `json:"file_name"`
		ReleasedAt  time.Time       `json:"released_at"`
		Version     string          `json:"version"`
		SHA1        string          `json:"sha1"`
		InfoJSON    wireReleaseInfo `json:"info_json"`
	}

	wireReleaseInfo struct {
		FactorioVersion string   `json:"factorio_version"`
		Dependencies    []string `json:"dependencies,omitempty"`
	}

	wirePage struct {
		Pagination wirePagination `json:"pagination"`
		Results    []wireMod      `json:"results"`
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

func toWire(m Mod) wireMod {
	wm := wireMod{
		Name:        m.Name,
		Owner:       m.Owner,
		Title:       m.Title,
		Summary:     m.Summary,
		Description: m.Description,
		Changelog:   m.Changelog,
		Homepage:    m.Homepage,
		Releases:    make([]wireRelease, 0, len(m.Releases)),
	}

	for _, rel := range m.Releases {
		factorio := rel.FactorioVersion
		if factorio == "" {
			factorio = "1.1"
		}
		wm.Releases = append(wm.Releases, wireRelease{
			DownloadURL: "/download/" + m.Name + "/" + Locator(m.Name, rel.Version),
			FileName:    rel.FileName,
			ReleasedAt:  rel.ReleasedAt,
			Version:     rel.Version,
			SHA1:        rel.SHA1,
			InfoJSON: wireReleaseInfo{
				FactorioVersion: factorio,
				Dependencies:    rel.Dependencies,
			},
		})
	}
	return wm
}
