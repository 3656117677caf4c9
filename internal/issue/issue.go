// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

// Id identifies a guide in the catalog.
type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	PortalCredentialsMissingId
	PortalUnavailableId
	ModNotFoundId
	ChecksumMismatchId
	IncompatibleModsId
	StoreUnavailableId
	ModpackInvalidId
)

type (
	// MarkdownMsg is the Markdown body of a guide.
	MarkdownMsg string

	// HttpLink is a documentation URL.
	HttpLink string

	// Issue is a Markdown guide for one kind of failure.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

// render is swapped in tests.
var render = glamour.Render

// Id returns the guide's identifier.
func (i *Issue) Id() Id { return i.id }

// MarkdownMsg returns the raw Markdown.
func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

// DocLinks returns the guide's documentation links.
func (i *Issue) DocLinks() []HttpLink { return slices.Clone(i.docLinks) }

// Markdown returns the body followed by a "See also" list of links.
func (i *Issue) Markdown() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(string(i.mdMsg)))
	if len(i.docLinks) > 0 {
		b.WriteString("\n\n## See also\n")
		for _, l := range i.docLinks {
			b.WriteString("\n- <" + string(l) + ">")
		}
	}
	b.WriteString("\n")
	return b.String()
}

// Render renders the guide for the terminal with a glamour style such as
// "dark", "light" or "notty".
func (i *Issue) Render(style string) (string, error) {
	return render(i.Markdown(), style)
}

var issues = map[Id]*Issue{
	ConfigLoadFailedId: {
		id: ConfigLoadFailedId,
		mdMsg: `
# The configuration could not be loaded

modtorio reads ` + "`config.cue`" + ` from the path given with ` + "`--config`" + `,
then from its configuration directory, then from the working directory.

## Things you can try
- Print where modtorio looks:
~~~
$ modtorio config path
~~~
- Compare your file with the effective defaults:
~~~
$ modtorio config dump
~~~
- Remember that ` + "`MODTORIO_*`" + ` environment variables override the file.`,
		docLinks: []HttpLink{"https://cuelang.org/docs/tour/"},
	},
	PortalCredentialsMissingId: {
		id: PortalCredentialsMissingId,
		mdMsg: `
# Mod portal credentials are missing

Downloads from the mod portal need a Factorio username and token. The
token is listed on your profile page on factorio.com.

## Things you can try
- Add them to ` + "`config.cue`" + `:
~~~cue
portal: {
	username: "you"
	token:    "..."
}
~~~
- Or export ` + "`MODTORIO_PORTAL_USERNAME`" + ` and ` + "`MODTORIO_PORTAL_TOKEN`" + `.`,
		docLinks: []HttpLink{"https://factorio.com/profile"},
	},
	PortalUnavailableId: {
		id: PortalUnavailableId,
		mdMsg: `
# The mod portal did not answer

Requests are retried with backoff before giving up.

## Things you can try
- Check your network connection.
- Check ` + "`portal.url`" + ` in your configuration.
- Try again later; cached registry data keeps ` + "`mods list`" + ` working.`,
		docLinks: []HttpLink{"https://wiki.factorio.com/Mod_portal_API"},
	},
	ModNotFoundId: {
		id: ModNotFoundId,
		mdMsg: `
# No such mod

Mod names are case-sensitive and are the portal's internal names, which
can differ from the titles shown on the site.

## Things you can try
- Copy the name from the mod's portal URL: ` + "`https://mods.factorio.com/mod/<name>`" + `.
- List installed mods with ` + "`modtorio mods list`" + `.`,
	},
	ChecksumMismatchId: {
		id: ChecksumMismatchId,
		mdMsg: `
# An archive failed verification

A downloaded archive did not match the portal's SHA-1, or an installed
archive changed since modtorio recorded it. The mod was left as it was.

## Things you can try
- Retry the download; interrupted transfers are the usual cause.
- Refresh the cache after changing archives by hand:
~~~
$ modtorio mods cache refresh
~~~`,
	},
	IncompatibleModsId: {
		id: IncompatibleModsId,
		mdMsg: `
# Incompatible mods are installed together

One installed mod declares another installed mod incompatible (a
dependency starting with ` + "`!`" + `). The game refuses to load both.

## Things you can try
- Remove or disable one of them:
~~~
$ modtorio mods remove <name>
~~~`,
		docLinks: []HttpLink{"https://wiki.factorio.com/Tutorial:Mod_structure#dependencies"},
	},
	StoreUnavailableId: {
		id: StoreUnavailableId,
		mdMsg: `
# The cache store could not be opened

modtorio keeps installed-mod records and registry metadata in a SQLite
database at ` + "`store_path`" + `.

## Things you can try
- Check that the directory exists and is writable.
- Make sure no other modtorio process holds the database.
- Delete the database to start over; it only holds cached data.`,
	},
	ModpackInvalidId: {
		id: ModpackInvalidId,
		mdMsg: `
# The modpack is invalid

A modpack lists each wanted mod once, with an optional exact version.

## Example
~~~toml
[[mod]]
name = "Krastorio2"
version = "1.3.24"

[[mod]]
name = "even-distribution"
enabled = false
~~~`,
	},
}

// Values returns every guide ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, id := range slices.Sorted(maps.Keys(issues)) {
		out = append(out, issues[id])
	}
	return out
}

// Get returns the guide for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
