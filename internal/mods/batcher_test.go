// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/Spanfile/Modtorio-sub000/internal/portal"
	"github.com/Spanfile/Modtorio-sub000/internal/portal/portaltest"
	"github.com/Spanfile/Modtorio-sub000/internal/testutil"
	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

// staticRegistry answers batch requests with a fixed response.
type staticRegistry struct {
	Registry
	batch []portal.Metadata
}

func (r staticRegistry) FetchBatch(context.Context, []string) ([]portal.Metadata, error) {
	return r.batch, nil
}

func TestUpdateBatcher_Candidates(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.publish("Alpha", testutil.ModArchive{Name: "alpha", Version: "1.0.0"}, testutil.ModArchive{Name: "alpha", Version: "1.1.0"})
	h.publish("Beta", testutil.ModArchive{Name: "beta", Version: "2.0.0"})
	h.publish("Gamma", testutil.ModArchive{Name: "gamma", Version: "0.5.0"})

	b := NewUpdateBatcher(h.client)
	for _, a := range []testutil.ModArchive{
		{Name: "alpha", Version: "1.0.0"},
		{Name: "beta", Version: "2.0.0"},
		{Name: "gamma", Version: "0.4.0"},
	} {
		m, err := FromArchive(ctx, h.install(a), h.opts()...)
		if err != nil {
			t.Fatal(err)
		}
		b.Register(m)
	}

	if err := b.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if n := h.srv.Requests(portaltest.RouteBatch); n != 1 {
		t.Errorf("batch requests = %d, want 1", n)
	}
	if n := h.srv.Requests(portaltest.RouteFetchMod); n != 0 {
		t.Errorf("per-mod requests = %d, want 0", n)
	}

	got, err := b.UpgradeCandidates()
	if err != nil {
		t.Fatalf("UpgradeCandidates() error: %v", err)
	}
	if want := []string{"alpha", "gamma"}; !slices.Equal(got, want) {
		t.Errorf("UpgradeCandidates() = %v, want %v", got, want)
	}

	if _, err := b.UpgradeCandidates(); !errors.Is(err, ErrBatcherConsumed) {
		t.Errorf("second UpgradeCandidates() error = %v, want ErrBatcherConsumed", err)
	}
	if err := b.Refresh(ctx); !errors.Is(err, ErrBatcherConsumed) {
		t.Errorf("Refresh() after consumption error = %v, want ErrBatcherConsumed", err)
	}
}

func TestUpdateBatcher_LastRegistrationWins(t *testing.T) {
	t.Parallel()

	old := localMod(t, "alpha", "1.0.0")
	current := localMod(t, "alpha", "2.0.0")

	meta := portal.Metadata{
		Name:     "alpha",
		Releases: []portal.Release{{Version: version.MustParse("1.5.0")}},
	}
	b := NewUpdateBatcher(staticRegistry{batch: []portal.Metadata{meta}})
	b.Register(old)
	b.Register(current)

	if err := b.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	got, err := b.UpgradeCandidates()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("UpgradeCandidates() = %v, want none", got)
	}
	if _, err := old.Releases(); !errors.Is(err, ErrNoReleases) {
		t.Error("replaced registration was refreshed")
	}
}

func TestUpdateBatcher_UnknownModInResponse(t *testing.T) {
	t.Parallel()

	alpha := localMod(t, "alpha", "1.0.0")
	b := NewUpdateBatcher(staticRegistry{batch: []portal.Metadata{
		{Name: "alpha", Releases: []portal.Release{{Version: version.MustParse("2.0.0")}}},
		{Name: "stranger"},
	}})
	b.Register(alpha)

	err := b.Refresh(context.Background())
	var unknown *UnknownModError
	if !errors.As(err, &unknown) || unknown.Name != "stranger" || !errors.Is(err, ErrUnknownModName) {
		t.Fatalf("Refresh() error = %v, want unknown mod stranger", err)
	}
	if _, err := alpha.Releases(); !errors.Is(err, ErrNoReleases) {
		t.Error("registered mod was refreshed despite the failure")
	}
}

func TestUpdateBatcher_Empty(t *testing.T) {
	t.Parallel()

	b := NewUpdateBatcher(nil)
	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() of an empty batcher error: %v", err)
	}
	got, err := b.UpgradeCandidates()
	if err != nil || len(got) != 0 {
		t.Errorf("UpgradeCandidates() = %v, %v", got, err)
	}
}
