package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/dpshade/pocket-meta/internal/models"
)

// createGlamourRenderer picks a glamour style that contrasts with the
// terminal background
func createGlamourRenderer(wordWrap int) (*glamour.TermRenderer, error) {
	if style := os.Getenv("GLAMOUR_STYLE"); style != "" {
		return glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wordWrap),
		)
	}

	profile := termenv.ColorProfile()
	var styleOption glamour.TermRendererOption
	switch {
	case profile == termenv.Ascii:
		styleOption = glamour.WithStandardStyle("notty")
	case profile != termenv.TrueColor && profile != termenv.ANSI256:
		styleOption = glamour.WithAutoStyle()
	case lipgloss.HasDarkBackground():
		styleOption = glamour.WithStandardStyle("dark")
	default:
		styleOption = glamour.WithStandardStyle("light")
	}

	return glamour.NewTermRenderer(
		styleOption,
		glamour.WithColorProfile(profile),
		glamour.WithWordWrap(wordWrap),
	)
}

// RenderMarkdown renders markdown for the terminal. On renderer failure the
// source text is returned unchanged.
func RenderMarkdown(markdown string, width int) string {
	if width <= 0 {
		width = 80
	}
	r, err := createGlamourRenderer(width)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

// MetadataMarkdown wraps metadata in a fenced yaml block under a heading
func MetadataMarkdown(title, metadata string) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "## %s\n\n", title)
	}
	b.WriteString("```yaml\n")
	b.WriteString(strings.TrimRight(metadata, "\n"))
	b.WriteString("\n```\n")
	return b.String()
}

// RenderMetadata shows generated metadata with syntax highlighting
func RenderMetadata(title, metadata string, width int) string {
	return RenderMarkdown(MetadataMarkdown(title, metadata), width)
}

// RenderTemplate renders a template for `template show`
func RenderTemplate(t models.Template, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Name)
	if t.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", t.Description)
	}
	kind := "custom"
	if t.IsBuiltIn {
		kind = "built-in"
	}
	fmt.Fprintf(&b, "**ID:** `%s` (%s)\n\n", t.ID, kind)
	b.WriteString("## YAML skeleton\n\n```yaml\n")
	b.WriteString(strings.TrimRight(t.YAMLSkeleton, "\n"))
	b.WriteString("\n```\n\n## Instructions\n\n")
	b.WriteString(t.Instructions)
	b.WriteString("\n")
	return RenderMarkdown(b.String(), width)
}
