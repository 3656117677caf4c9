// SPDX-License-Identifier: MPL-2.0

package dependency

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

func req(s string) *version.Requirement {
	r, err := version.ParseRequirement(s)
	if err != nil {
		panic(err)
	}
	return &r
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  Dependency
	}{
		{name: "bare base", input: "base", want: Dependency{Kind: Mandatory, Name: "base"}},
		{name: "incompatible", input: "!base", want: Dependency{Kind: Incompatible, Name: "base"}},
		{name: "optional", input: "?base", want: Dependency{Kind: Optional, Name: "base"}},
		{name: "optional hidden", input: "(?)base", want: Dependency{Kind: OptionalHidden, Name: "base"}},
		{name: "mandatory with requirement", input: "base >= 0.18.0", want: Dependency{Kind: Mandatory, Name: "base", Version: req(">= 0.18.0")}},
		{name: "prefix with spaces", input: "? bobplates >= 1.1.0", want: Dependency{Kind: Optional, Name: "bobplates", Version: req(">= 1.1.0")}},
		{name: "hidden with spaces", input: "(?) Krastorio2 > 1.0", want: Dependency{Kind: OptionalHidden, Name: "Krastorio2", Version: req("> 1.0.0")}},
		{name: "incompatible with requirement", input: "! angelsrefining < 0.9", want: Dependency{Kind: Incompatible, Name: "angelsrefining", Version: req("< 0.9.0")}},
		{name: "no space before comparator", input: "flib>=0.6.0", want: Dependency{Kind: Mandatory, Name: "flib", Version: req(">= 0.6.0")}},
		{name: "name with spaces", input: "Some Mod Name = 2.0.1", want: Dependency{Kind: Mandatory, Name: "Some Mod Name", Version: req("= 2.0.1")}},
		{name: "name with dashes and underscores", input: "my-mod_name", want: Dependency{Kind: Mandatory, Name: "my-mod_name"}},
		{name: "unordered prefix", input: "~ stdlib >= 1.0.0", want: Dependency{Kind: Mandatory, Name: "stdlib", Version: req(">= 1.0.0")}},
		{name: "surrounding whitespace", input: "   base   ", want: Dependency{Kind: Mandatory, Name: "base"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Parse(%q) = %v (%s), want %v (%s)", tt.input, got, got.Kind.Name(), tt.want, tt.want.Kind.Name())
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty", input: "", wantErr: ErrNoCaptures},
		{name: "blank", input: " \t ", wantErr: ErrNoCaptures},
		{name: "prefix only", input: "?", wantErr: ErrNameNotCaptured},
		{name: "requirement only", input: ">= 1.0.0", wantErr: ErrNameNotCaptured},
		{name: "prefix and requirement", input: "! >= 1.0.0", wantErr: ErrNameNotCaptured},
		{name: "unknown parenthesized prefix", input: "(x) foo", wantErr: ErrInvalidRequirement},
		{name: "unterminated parenthesis", input: "(foo", wantErr: ErrInvalidRequirement},
		{name: "bad version", input: "foo >= 1.x", wantErr: ErrInvalidRequirement},
		{name: "missing version", input: "foo >=", wantErr: ErrInvalidRequirement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Parse(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Parse(%q) error should be *ParseError, got %T", tt.input, err)
			}
		})
	}
}

func TestParse_RequirementErrorKeepsCause(t *testing.T) {
	t.Parallel()

	_, err := Parse("foo >= 1.x")
	if !errors.Is(err, version.ErrNotANumber) {
		t.Errorf("error should keep the version cause, got %v", err)
	}
	_, err = Parse("foo >=")
	if !errors.Is(err, version.ErrMissingVersion) {
		t.Errorf("error should keep the version cause, got %v", err)
	}
}

func TestDependency_StringRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"base",
		"!base",
		"?base",
		"(?)base",
		"base >= 0.18.0",
		"? bobplates>=1.1",
		"(?) hidden = 1.0.0",
		"! conflicting < 2",
		"Some Mod Name <= 3.0.0",
	}

	for _, input := range inputs {
		first, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q): %v", input, err)
		}
		second, err := Parse(first.String())
		if err != nil {
			t.Fatalf("Parse(%q) (re-serialized from %q): %v", first.String(), input, err)
		}
		if !first.Equal(second) {
			t.Errorf("round trip of %q: %v != %v", input, first, second)
		}
	}
}

func TestDependency_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dep  Dependency
		want string
	}{
		{Dependency{Kind: Mandatory, Name: "base"}, "base"},
		{Dependency{Kind: Optional, Name: "foo", Version: req(">= 1.0")}, "? foo >= 1.0.0"},
		{Dependency{Kind: OptionalHidden, Name: "bar"}, "(?) bar"},
		{Dependency{Kind: Incompatible, Name: "baz", Version: req("< 2")}, "! baz < 2.0.0"},
	}

	for _, tt := range tests {
		if got := tt.dep.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDependency_Predicates(t *testing.T) {
	t.Parallel()

	if !MustParse("base >= 1.0").IsBase() {
		t.Error("base dependency should report IsBase")
	}
	if MustParse("flib").IsBase() {
		t.Error("flib should not report IsBase")
	}
	if !MustParse("? flib").IsOptional() || !MustParse("(?) flib").IsOptional() {
		t.Error("optional kinds should report IsOptional")
	}
	if MustParse("! flib").IsOptional() || MustParse("flib").IsOptional() {
		t.Error("mandatory and incompatible kinds should not report IsOptional")
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	for _, k := range []Kind{Mandatory, Optional, OptionalHidden, Incompatible} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", k.String(), got, err, k)
		}
	}
	if _, err := ParseKind("~>"); !errors.Is(err, ErrInvalidRequirement) {
		t.Errorf("ParseKind(~>) error = %v, want ErrInvalidRequirement", err)
	}
}

func TestDependency_JSONArray(t *testing.T) {
	t.Parallel()

	var deps []Dependency
	if err := json.Unmarshal([]byte(`["base >= 1.1.0", "? flib", "! bad-mod"]`), &deps); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(deps) != 3 {
		t.Fatalf("got %d dependencies, want 3", len(deps))
	}
	if deps[0].Name != "base" || deps[0].Version == nil || deps[0].Version.Comparator != version.GreaterOrEqual {
		t.Errorf("deps[0] = %v", deps[0])
	}
	if deps[1].Kind != Optional || deps[2].Kind != Incompatible {
		t.Errorf("kinds = %v, %v", deps[1].Kind, deps[2].Kind)
	}

	if err := json.Unmarshal([]byte(`[">= 1.0"]`), &deps); !errors.Is(err, ErrNameNotCaptured) {
		t.Errorf("unmarshal bad dependency error = %v, want ErrNameNotCaptured", err)
	}
}

func TestParseAll(t *testing.T) {
	t.Parallel()

	deps, err := ParseAll([]string{"base", "? foo"})
	if err != nil || len(deps) != 2 {
		t.Fatalf("ParseAll = %v, %v", deps, err)
	}
	if _, err := ParseAll([]string{"base", ""}); !errors.Is(err, ErrNoCaptures) {
		t.Errorf("ParseAll error = %v, want ErrNoCaptures", err)
	}
}
