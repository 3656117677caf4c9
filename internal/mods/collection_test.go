// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"context"
	"errors"
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/Spanfile/Modtorio-sub000/internal/portal/portaltest"
	"github.com/Spanfile/Modtorio-sub000/internal/testutil"
	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

func TestMods_AddUpdateRemove(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.publish("Alpha",
		testutil.ModArchive{Name: "alpha", Version: "1.0.0"},
		testutil.ModArchive{Name: "alpha", Version: "1.1.0"},
	)
	c := h.build(ctx)

	res, err := c.Add(ctx, "alpha", ptr(version.MustParse("1.0.0")))
	if err != nil {
		t.Fatalf("Add(alpha 1.0.0) error: %v", err)
	}
	if res.Outcome != DownloadNew || !h.exists("alpha_1.0.0.zip") || c.Count() != 1 {
		t.Fatalf("Add(alpha 1.0.0) = %+v, count %d", res, c.Count())
	}

	res, err = c.Add(ctx, "alpha", nil)
	if err != nil {
		t.Fatalf("Add(alpha) error: %v", err)
	}
	if res.Outcome != DownloadReplaced || res.Version != version.MustParse("1.1.0") {
		t.Errorf("Add(alpha) = %+v, want replaced by 1.1.0", res)
	}
	if h.exists("alpha_1.0.0.zip") {
		t.Error("replaced archive was not removed")
	}
	if !h.exists("alpha_1.1.0.zip") {
		t.Error("new archive is missing")
	}

	res, err = c.Add(ctx, "alpha", nil)
	if err != nil || res.Outcome != DownloadUnchanged {
		t.Errorf("repeat Add(alpha) = %+v, %v, want unchanged", res, err)
	}
	if !h.exists("alpha_1.1.0.zip") {
		t.Error("unchanged archive was removed")
	}

	if err := c.Remove("alpha"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if c.Count() != 0 || h.exists("alpha_1.1.0.zip") {
		t.Errorf("Remove() left count %d", c.Count())
	}
	if err := c.Remove("alpha"); !errors.Is(err, ErrNoSuchMod) {
		t.Errorf("second Remove() error = %v, want ErrNoSuchMod", err)
	}
}

func TestMods_AddUnknownMod(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	c := h.build(context.Background())

	if _, err := c.Add(context.Background(), "ghost", nil); err == nil {
		t.Fatal("Add() of an unknown mod should fail")
	}
	if c.Count() != 0 {
		t.Errorf("failed Add() changed the collection: %v", c.Names())
	}
}

func TestMods_AddInstalledUsesFreshRegistryData(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.publish("Alpha",
		testutil.ModArchive{Name: "alpha", Version: "1.0.0"},
		testutil.ModArchive{Name: "alpha", Version: "2.0.0"},
	)
	h.install(testutil.ModArchive{Name: "alpha", Version: "1.0.0"})
	c := h.build(ctx)

	// Installed mods built from archives have no registry data yet.
	res, err := c.Add(ctx, "alpha", nil)
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if res.Outcome != DownloadReplaced || res.OldVersion != version.MustParse("1.0.0") {
		t.Errorf("Add() = %+v", res)
	}
	if n := h.srv.Requests(portaltest.RouteFetchMod); n != 1 {
		t.Errorf("registry requests = %d, want 1", n)
	}

	// A second add within the expiry reuses what was fetched.
	h.clock.Advance(time.Minute)
	if _, err := c.Add(ctx, "alpha", ptr(version.MustParse("1.0.0"))); err != nil {
		t.Fatal(err)
	}
	if n := h.srv.Requests(portaltest.RouteFetchMod); n != 1 {
		t.Errorf("registry requests = %d, want 1", n)
	}
}

func TestMods_EnsureDependencies(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.publish("Y", testutil.ModArchive{Name: "y", Version: "1.5.0"}, testutil.ModArchive{Name: "y", Version: "2.1.0"})
	h.publish("Z", testutil.ModArchive{Name: "z", Version: "0.3.0"})
	h.install(testutil.ModArchive{Name: "x", Version: "1.0.0", Dependencies: []string{"y >= 2.0.0", "z", "ghost", "? optional"}})
	h.install(testutil.ModArchive{Name: "y", Version: "1.5.0"})
	c := h.build(ctx)

	installed, err := c.EnsureDependencies(ctx)
	if want := []string{"y", "z"}; !slices.Equal(installed, want) {
		t.Errorf("EnsureDependencies() installed %v, want %v", installed, want)
	}
	if err == nil {
		t.Error("EnsureDependencies() should report the unknown dependency")
	}

	y, _ := c.Get("y")
	if v := mustVersion(t, y); v != version.MustParse("2.1.0") {
		t.Errorf("y version = %s, want 2.1.0", v)
	}
	if h.exists("y_1.5.0.zip") {
		t.Error("old y archive was kept")
	}

	missing, err := c.CheckDependencies()
	if err != nil || !slices.Equal(missing, []string{"ghost"}) {
		t.Errorf("CheckDependencies() = %v, %v, want [ghost]", missing, err)
	}
}

func TestMods_EnsureDependencies_NothingMissing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.install(testutil.ModArchive{Name: "x", Version: "1.0.0"})
	c := h.build(context.Background())

	installed, err := c.EnsureDependencies(context.Background())
	if err != nil || installed != nil {
		t.Errorf("EnsureDependencies() = %v, %v", installed, err)
	}
}

func TestMods_CheckUpdates(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.publish("Alpha", testutil.ModArchive{Name: "alpha", Version: "1.0.0"}, testutil.ModArchive{Name: "alpha", Version: "1.2.0"})
	h.publish("Beta", testutil.ModArchive{Name: "beta", Version: "3.0.0"})
	h.install(testutil.ModArchive{Name: "alpha", Version: "1.0.0"})
	h.install(testutil.ModArchive{Name: "beta", Version: "3.0.0"})
	h.install(testutil.ModArchive{Name: "private", Version: "0.1.0"})
	c := h.build(ctx)

	updates, err := c.CheckUpdates(ctx)
	if err != nil {
		t.Fatalf("CheckUpdates() error: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("CheckUpdates() = %+v, want one update", updates)
	}
	u := updates[0]
	if u.Name != "alpha" || u.Title != "Alpha" || u.Current != version.MustParse("1.0.0") || u.Latest != version.MustParse("1.2.0") {
		t.Errorf("update = %+v", u)
	}
	if u.ReleasedOn.IsZero() {
		t.Error("update has no release time")
	}
	if !h.exists("alpha_1.0.0.zip") || h.exists("alpha_1.2.0.zip") {
		t.Error("CheckUpdates() installed something")
	}
	if n := h.srv.Requests(portaltest.RouteFetchMod); n != 3 {
		t.Errorf("per-mod requests = %d, want 3", n)
	}

	// The second check within the expiry is served from the cache.
	if _, err := c.CheckUpdates(ctx); err != nil {
		t.Fatal(err)
	}
	if n := h.srv.Requests(portaltest.RouteFetchMod); n != 4 {
		t.Errorf("per-mod requests = %d, want 4 (only the uncached private mod)", n)
	}
}

func TestMods_Update(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.publish("Alpha", testutil.ModArchive{Name: "alpha", Version: "1.0.0"}, testutil.ModArchive{Name: "alpha", Version: "1.2.0"})
	h.publish("Beta", testutil.ModArchive{Name: "beta", Version: "3.0.0"})
	h.install(testutil.ModArchive{Name: "alpha", Version: "1.0.0"})
	h.install(testutil.ModArchive{Name: "beta", Version: "3.0.0"})
	c := h.build(ctx)

	applied, err := c.Update(ctx)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if len(applied) != 1 || applied[0].Name != "alpha" || applied[0].Latest != version.MustParse("1.2.0") {
		t.Fatalf("Update() = %+v", applied)
	}
	if !h.exists("alpha_1.2.0.zip") || h.exists("alpha_1.0.0.zip") {
		t.Error("alpha archive was not replaced")
	}
	if n := h.srv.Requests(portaltest.RouteBatch); n != 1 {
		t.Errorf("batch requests = %d, want 1", n)
	}
	if n := h.srv.Requests(portaltest.RouteFetchMod); n != 0 {
		t.Errorf("per-mod requests = %d, want 0", n)
	}
}

func TestMods_UpdateStore(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.publish("Alpha", testutil.ModArchive{Name: "alpha", Version: "1.0.0"})
	h.install(testutil.ModArchive{Name: "alpha", Version: "1.0.0"})
	h.install(testutil.ModArchive{Name: "private", Version: "0.1.0"})
	c := h.build(ctx)

	host, _, err := h.store.EnsureHost(ctx, h.dir)
	if err != nil {
		t.Fatal(err)
	}

	cachedNames := func(t *testing.T) []string {
		t.Helper()
		records, err := h.store.GetCachedMods(ctx, host)
		if err != nil {
			t.Fatal(err)
		}
		var names []string
		for _, r := range records {
			names = append(names, r.Name)
		}
		return names
	}

	t.Run("skip info update", func(t *testing.T) {
		if err := c.UpdateStore(ctx, host, true); err != nil {
			t.Fatalf("UpdateStore() error: %v", err)
		}
		if n := h.srv.Requests(portaltest.RouteBatch); n != 0 {
			t.Errorf("batch requests = %d, want 0", n)
		}
		if meta, _ := h.store.GetRegistryCache(ctx, "alpha"); meta == nil || meta.Title != "Alpha" {
			t.Errorf("GetRegistryCache(alpha) = %+v, want the registry data fetched for it", meta)
		}
		// private is unknown to the registry, so its record could never be
		// loaded back.
		if got, want := cachedNames(t), []string{"alpha"}; !slices.Equal(got, want) {
			t.Errorf("cached records = %v, want %v", got, want)
		}
	})

	t.Run("with info update", func(t *testing.T) {
		fetches := h.srv.Requests(portaltest.RouteFetchMod)
		if err := c.UpdateStore(ctx, host, false); err != nil {
			t.Fatalf("UpdateStore() error: %v", err)
		}
		if n := h.srv.Requests(portaltest.RouteBatch); n != 1 {
			t.Errorf("batch requests = %d, want 1", n)
		}
		// Only the mod the batch could not fill is asked for again.
		if n := h.srv.Requests(portaltest.RouteFetchMod) - fetches; n != 1 {
			t.Errorf("per-mod requests = %d, want 1", n)
		}
		if got, want := cachedNames(t), []string{"alpha"}; !slices.Equal(got, want) {
			t.Errorf("cached records = %v, want %v", got, want)
		}
	})
}

func TestMods_UpdateStoreWithoutStore(t *testing.T) {
	t.Parallel()

	c, err := NewBuilder(t.TempDir()).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.UpdateStore(context.Background(), 1, true); !errors.Is(err, ErrNoStore) {
		t.Fatalf("UpdateStore() error = %v, want ErrNoStore", err)
	}
}

func TestMods_Enabled(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.install(testutil.ModArchive{Name: "alpha", Version: "1.0.0"})
	h.install(testutil.ModArchive{Name: "beta", Version: "1.0.0"})
	c := h.build(context.Background())

	if enabled, err := c.Enabled("alpha"); err != nil || !enabled {
		t.Errorf("Enabled(alpha) without mod-list.json = %v, %v", enabled, err)
	}

	if err := c.SetEnabled("alpha", false); err != nil {
		t.Fatalf("SetEnabled(alpha, false) error: %v", err)
	}
	if enabled, _ := c.Enabled("alpha"); enabled {
		t.Error("alpha still enabled")
	}
	if !h.exists(ModListFile) {
		t.Error("mod-list.json was not written")
	}

	if err := c.SetEnabled("base", false); !errors.Is(err, ErrCannotDisableBase) {
		t.Errorf("SetEnabled(base, false) error = %v, want ErrCannotDisableBase", err)
	}
	if err := c.SetEnabled("base", true); err != nil {
		t.Errorf("SetEnabled(base, true) error: %v", err)
	}
	if _, err := c.Enabled("ghost"); !errors.Is(err, ErrNoSuchMod) {
		t.Errorf("Enabled(ghost) error = %v, want ErrNoSuchMod", err)
	}
	if err := c.SetEnabled("ghost", true); !errors.Is(err, ErrNoSuchMod) {
		t.Errorf("SetEnabled(ghost) error = %v, want ErrNoSuchMod", err)
	}

	status, err := c.EnabledStatus()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"base": true, "alpha": false, "beta": true}
	if !maps.Equal(status, want) {
		t.Errorf("EnabledStatus() = %v, want %v", status, want)
	}
}
