// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"strings"
	"testing"
)

func TestTable(t *testing.T) {
	t.Parallel()

	tbl := NewTable("Name", "Version", "Enabled").
		Row("Krastorio2", "1.3.24", "yes").
		MutedRow("even-distribution", "2.0.2", "no")

	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}

	out := tbl.String()
	for _, want := range []string{"Name", "Version", "Krastorio2", "1.3.24", "even-distribution", "no"} {
		if !strings.Contains(out, want) {
			t.Errorf("table lacks %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n") + 1; lines < 5 {
		t.Errorf("table has %d lines, want header, rows and borders:\n%s", lines, out)
	}
}
