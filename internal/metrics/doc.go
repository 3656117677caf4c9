// SPDX-License-Identifier: MPL-2.0

// Package metrics defines the Prometheus collectors modtorio updates while it
// reconciles, downloads and refreshes mods.
//
// All recording methods are safe to call on a nil *Metrics, so components can
// take an optional metrics handle without guarding every call site.
package metrics
