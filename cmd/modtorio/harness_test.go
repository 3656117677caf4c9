// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"github.com/Spanfile/Modtorio-sub000/internal/config"
	"github.com/Spanfile/Modtorio-sub000/internal/metrics"
	"github.com/Spanfile/Modtorio-sub000/internal/mods"
	"github.com/Spanfile/Modtorio-sub000/internal/portal"
	"github.com/Spanfile/Modtorio-sub000/internal/portal/portaltest"
	"github.com/Spanfile/Modtorio-sub000/internal/testutil"
)

// staticConfig serves a fixed configuration.
type staticConfig struct {
	cfg config.Config
}

func (s staticConfig) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	cfg := s.cfg
	return &cfg, nil
}

// cli runs commands against a fake portal, a temporary mods directory and
// a temporary store.
type cli struct {
	t   *testing.T
	srv *portaltest.Server
	cfg config.Config
}

func newCLI(t *testing.T) *cli {
	t.Helper()

	root := t.TempDir()
	srv := portaltest.New(t)

	cfg := *config.DefaultConfig()
	cfg.Portal = config.PortalConfig{URL: srv.URL, Username: portaltest.Username, Token: portaltest.Token}
	cfg.ModsDir = filepath.Join(root, "mods")
	cfg.StorePath = filepath.Join(root, "data", "modtorio.db")
	cfg.Concurrency = 2

	return &cli{t: t, srv: srv, cfg: cfg}
}

func (c *cli) registry(cfg *config.Config, logger *log.Logger, m *metrics.Metrics) mods.Registry {
	return portal.NewClient(
		portal.WithBaseURL(cfg.Portal.URL),
		portal.WithHTTPClient(c.srv.Client()),
		portal.WithCredentials(cfg.Portal.Username, cfg.Portal.Token),
		portal.WithBackOff(func() backoff.BackOff { return &backoff.StopBackOff{} }),
		portal.WithLogger(logger),
		portal.WithMetrics(m),
	)
}

// run executes the command line and returns what it wrote to stdout.
func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()

	var stdout, stderr bytes.Buffer
	app, err := NewApp(Dependencies{
		Config:   staticConfig{cfg: c.cfg},
		Registry: c.registry,
		Stdout:   &stdout,
		Stderr:   &stderr,
	})
	if err != nil {
		c.t.Fatalf("NewApp() error: %v", err)
	}

	root := NewRootCommand(app)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return stdout.String(), err
}

// mustRun fails the test when the command fails.
func (c *cli) mustRun(args ...string) string {
	c.t.Helper()

	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("modtorio %v: %v\noutput:\n%s", args, err, out)
	}
	return out
}

// publish makes every archive a release of its mod on the fake portal.
func (c *cli) publish(title string, archives ...testutil.ModArchive) {
	c.t.Helper()

	mod := portaltest.Mod{
		Name:        archives[0].Name,
		Title:       title,
		Owner:       "portal-owner",
		Summary:     "summary of " + title,
		Description: "# " + title + "\n\nAdds **more** things.",
		Changelog:   "Version: " + archives[len(archives)-1].Version + "\n  Changes:\n    - Fixed a crash",
	}
	for _, a := range archives {
		mod.Releases = append(mod.Releases, portaltest.Release{
			Version:      a.Version,
			Dependencies: a.Dependencies,
			Archive:      testutil.BuildModArchive(c.t, a),
			FileName:     a.FileName(),
		})
	}
	c.srv.AddMod(mod)
}

func (c *cli) exists(file string) bool {
	_, err := os.Stat(filepath.Join(c.cfg.ModsDir, file))
	return err == nil
}
