// SPDX-License-Identifier: MPL-2.0

// Package portal is a client for the Factorio mod portal: it fetches mod
// metadata one mod at a time or in batched, paginated requests, and downloads
// release archives with the player's credentials.
//
// Transient failures (transport errors, 5xx and 429 responses) are retried
// with exponential backoff. Every operation runs inside an OpenTelemetry span
// named after it.
package portal
