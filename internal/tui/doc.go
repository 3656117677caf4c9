// SPDX-License-Identifier: MPL-2.0

// Package tui renders terminal output: Markdown from the mod portal through
// glamour and tabular listings through lipgloss.
package tui
