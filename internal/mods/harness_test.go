// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Spanfile/Modtorio-sub000/internal/portal"
	"github.com/Spanfile/Modtorio-sub000/internal/portal/portaltest"
	"github.com/Spanfile/Modtorio-sub000/internal/store"
	"github.com/Spanfile/Modtorio-sub000/internal/testutil"
	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

// harness wires a mods directory to a fake portal, a real store and a fake
// clock.
type harness struct {
	t      *testing.T
	dir    string
	srv    *portaltest.Server
	client *portal.Client
	store  *store.Store
	clock  *testutil.FakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	srv := portaltest.New(t)
	client := portal.NewClient(
		portal.WithBaseURL(srv.URL),
		portal.WithHTTPClient(srv.Client()),
		portal.WithCredentials(portaltest.Username, portaltest.Token),
		portal.WithBackOff(func() backoff.BackOff { return &backoff.StopBackOff{} }),
	)

	st, err := store.Open(context.Background(), store.Config{Path: filepath.Join(t.TempDir(), "modtorio.db")})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(testutil.DeferClose(t, st))

	dir := filepath.Join(t.TempDir(), "mods")
	testutil.MustMkdirAll(t, dir, 0o755)

	return &harness{
		t:      t,
		dir:    dir,
		srv:    srv,
		client: client,
		store:  st,
		clock:  testutil.NewFakeClock(time.Time{}),
	}
}

func (h *harness) opts(extra ...Option) []Option {
	return append([]Option{
		WithRegistry(h.client),
		WithStore(h.store),
		WithClock(h.clock),
		WithConcurrency(4),
	}, extra...)
}

// publish makes every archive a release of its mod on the fake portal.
func (h *harness) publish(title string, archives ...testutil.ModArchive) {
	h.t.Helper()

	mod := portaltest.Mod{Name: archives[0].Name, Title: title, Owner: "portal-owner", Summary: "summary of " + title}
	for _, a := range archives {
		mod.Releases = append(mod.Releases, portaltest.Release{
			Version:         a.Version,
			FactorioVersion: a.FactorioVersion,
			Dependencies:    a.Dependencies,
			Archive:         testutil.BuildModArchive(h.t, a),
			FileName:        a.FileName(),
		})
	}
	h.srv.AddMod(mod)
}

// install writes an archive into the mods directory.
func (h *harness) install(a testutil.ModArchive) string {
	h.t.Helper()
	return testutil.WriteModArchive(h.t, h.dir, a)
}

func (h *harness) build(ctx context.Context, extra ...Option) *Mods {
	h.t.Helper()

	c, err := NewBuilder(h.dir, h.opts(extra...)...).Build(ctx)
	if err != nil {
		h.t.Fatalf("Build() error: %v", err)
	}
	return c
}

func (h *harness) exists(name string) bool {
	_, err := os.Stat(filepath.Join(h.dir, name))
	return err == nil
}

func mustVersion(t *testing.T, m *Mod) version.Version {
	t.Helper()

	v, err := m.OwnVersion()
	if err != nil {
		t.Fatalf("OwnVersion() of %s: %v", m.Name(), err)
	}
	return v
}

func ptr[T any](v T) *T { return &v }
