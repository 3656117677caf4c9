// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// FormatType specifies the type of content to format.
type FormatType string

const (
	// FormatMarkdown renders content as Markdown.
	FormatMarkdown FormatType = "markdown"
	// FormatCode renders content as a fenced code block.
	FormatCode FormatType = "code"
	// FormatPlain returns content unchanged.
	FormatPlain FormatType = "plain"

	// ThemeAuto picks dark or light from the terminal background.
	ThemeAuto = "auto"
	// ThemeNoTTY renders without colors, for pipes and tests.
	ThemeNoTTY = "notty"
)

// FormatOptions configures Format.
type FormatOptions struct {
	Content string
	Type    FormatType
	// Language highlights FormatCode content.
	Language string
	// Theme is a glamour style name. Empty means ThemeAuto.
	Theme string
	// Width wraps words at this column; 0 disables wrapping.
	Width int
}

// Format renders opts.Content according to opts.Type.
func Format(opts FormatOptions) (string, error) {
	switch opts.Type {
	case FormatMarkdown:
		return renderMarkdown(opts.Content, opts.Theme, opts.Width)
	case FormatCode:
		fenced := "```" + opts.Language + "\n" + strings.TrimRight(opts.Content, "\n") + "\n```"
		return renderMarkdown(fenced, opts.Theme, opts.Width)
	default:
		return opts.Content, nil
	}
}

// Markdown renders md with theme and no wrapping limit beyond width.
func Markdown(md, theme string, width int) (string, error) {
	return renderMarkdown(md, theme, width)
}

func renderMarkdown(md, theme string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithEmoji()}
	if theme == "" || theme == ThemeAuto {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(theme))
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
