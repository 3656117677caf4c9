// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestCatalog(t *testing.T) {
	t.Parallel()

	values := Values()
	if len(values) != int(ModpackInvalidId) {
		t.Fatalf("Values() has %d guides, want %d", len(values), ModpackInvalidId)
	}
	for i, is := range values {
		if want := Id(i + 1); is.Id() != want {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, is.Id(), want)
		}
		if Get(is.Id()) != is {
			t.Errorf("Get(%d) disagrees with Values()", is.Id())
		}
		if !strings.HasPrefix(strings.TrimSpace(string(is.MarkdownMsg())), "# ") {
			t.Errorf("guide %d does not start with a heading", is.Id())
		}
	}

	if Get(0) != nil || Get(ModpackInvalidId+1) != nil {
		t.Error("Get() of unknown ids should be nil")
	}
}

func TestIssue_Markdown(t *testing.T) {
	t.Parallel()

	md := Get(PortalCredentialsMissingId).Markdown()
	if !strings.Contains(md, "## See also\n\n- <https://factorio.com/profile>") {
		t.Errorf("Markdown() lacks the links:\n%s", md)
	}

	noLinks := Get(ModNotFoundId)
	if len(noLinks.DocLinks()) != 0 || strings.Contains(noLinks.Markdown(), "See also") {
		t.Error("guide without links rendered a See also section")
	}
}

func TestIssue_DocLinksIsCopy(t *testing.T) {
	t.Parallel()

	is := Get(ConfigLoadFailedId)
	links := is.DocLinks()
	links[0] = "changed"
	if is.DocLinks()[0] == "changed" {
		t.Error("DocLinks() exposed internal state")
	}
}

func TestIssue_Render(t *testing.T) {
	t.Parallel()

	out, err := Get(IncompatibleModsId).Render("notty")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(out, "Incompatible mods are installed together") {
		t.Errorf("Render() output lacks the title:\n%s", out)
	}
}
