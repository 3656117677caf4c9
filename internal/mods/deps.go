// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"fmt"
	"slices"

	"golang.org/x/exp/maps"

	"github.com/Spanfile/Modtorio-sub000/pkg/dependency"
	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

// CheckDependencies checks the dependencies of every mod in set, which maps
// names to mods, and returns the sorted names of mods that must be installed
// or upgraded.
//
// A mandatory dependency is missing when the named mod is absent or its
// installed version does not meet the requirement; both cases ask for the
// latest release. An incompatible dependency on an installed mod stops the
// check with an *IncompatibleError. Optional dependencies and the base mod
// are ignored. Only one level is checked: the missing mods' own
// dependencies are not.
func CheckDependencies(set map[string]*Mod) ([]string, error) {
	missing := make(map[string]struct{})

	for _, name := range slices.Sorted(maps.Keys(set)) {
		deps, err := set[name].Dependencies()
		if err != nil {
			return nil, fmt.Errorf("checking dependencies of %s: %w", name, err)
		}

		for _, dep := range deps {
			if dep.IsBase() || dep.IsOptional() {
				continue
			}

			target, present := set[dep.Name]
			switch dep.Kind {
			case dependency.Incompatible:
				if present {
					return nil, &IncompatibleError{Dependent: name, Blocking: dep.Name, Dependency: dep}
				}
			case dependency.Mandatory:
				if !present || !satisfies(target, dep) {
					missing[dep.Name] = struct{}{}
				}
			}
		}
	}

	return slices.Sorted(maps.Keys(missing)), nil
}

func satisfies(m *Mod, dep dependency.Dependency) bool {
	if dep.Version == nil {
		return true
	}
	v, err := m.OwnVersion()
	if err != nil {
		return false
	}
	return version.Meets(v, *dep.Version)
}
