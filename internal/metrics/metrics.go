// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "modtorio"

// Load sources used as the "source" label.
const (
	SourceCache   = "cache"
	SourceArchive = "archive"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the collectors. Create it with New.
type Metrics struct {
	modsLoaded      *prometheus.CounterVec
	modLoadFailures *prometheus.CounterVec
	duplicates      prometheus.Counter
	downloads       *prometheus.CounterVec
	downloadBytes   prometheus.Counter
	portalRequests  *prometheus.CounterVec
	collectionSize  prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		modsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mods_loaded_total",
			Help:      "Mods successfully loaded into a collection, by source.",
		}, []string{"source"}),
		modLoadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mod_load_failures_total",
			Help:      "Mods that failed to load and were skipped, by source.",
		}, []string{"source"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mod_duplicates_total",
			Help:      "Duplicate mod entries dropped while merging a collection.",
		}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mod_downloads_total",
			Help:      "Mod archive downloads, by result (new, unchanged, replaced, failed).",
		}, []string{"result"}),
		downloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mod_download_bytes_total",
			Help:      "Bytes of mod archives downloaded from the registry.",
		}),
		portalRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "portal_requests_total",
			Help:      "Requests made to the mod registry, by operation and outcome.",
		}, []string{"op", "outcome"}),
		collectionSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mods_installed",
			Help:      "Number of mods in the most recently built collection.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.modsLoaded, m.modLoadFailures, m.duplicates, m.downloads,
		m.downloadBytes, m.portalRequests, m.collectionSize,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// ModLoaded counts a mod loaded from source.
func (m *Metrics) ModLoaded(source string) {
	if m == nil {
		return
	}
	m.modsLoaded.WithLabelValues(source).Inc()
}

// ModLoadFailed counts a mod that failed to load from source.
func (m *Metrics) ModLoadFailed(source string) {
	if m == nil {
		return
	}
	m.modLoadFailures.WithLabelValues(source).Inc()
}

// DuplicateDropped counts a duplicate entry dropped during a merge.
func (m *Metrics) DuplicateDropped() {
	if m == nil {
		return
	}
	m.duplicates.Inc()
}

// Download counts a download with the given result and size.
func (m *Metrics) Download(result string, bytes int64) {
	if m == nil {
		return
	}
	m.downloads.WithLabelValues(result).Inc()
	if bytes > 0 {
		m.downloadBytes.Add(float64(bytes))
	}
}

// PortalRequest counts a registry request.
func (m *Metrics) PortalRequest(op, outcome string) {
	if m == nil {
		return
	}
	m.portalRequests.WithLabelValues(op, outcome).Inc()
}

// CollectionSize records the size of a freshly built collection.
func (m *Metrics) CollectionSize(n int) {
	if m == nil {
		return
	}
	m.collectionSize.Set(float64(n))
}

// WriteTextfile writes every metric gathered by g to path in the text
// exposition format, for node_exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
