package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer renders the help panel and recreates the renderer when wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
	source   string
	output   string
}

// render converts markdown into ANSI-styled terminal text, reusing the last result for identical input.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	wrapWidth := max(24, width)
	if r.renderer != nil && r.width == wrapWidth && r.source == markdown {
		return r.output
	}

	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	r.source = markdown
	r.output = strings.TrimRight(rendered, "\n")
	return r.output
}

// helpMarkdown describes the editing model for the help panel.
func helpMarkdown(k keyMap) string {
	var b strings.Builder
	b.WriteString("## Editing filters\n\n")
	fmt.Fprintf(&b, "- `%s` inserts a new filter at the current row; `enter` saves, `esc` discards it.\n", k.insertFilter.Help().Key)
	fmt.Fprintf(&b, "- `%s` edits the current filter; saving an empty rule removes it.\n", k.editFilter.Help().Key)
	fmt.Fprintf(&b, "- `%s` / `%s` move the selection one row, closing gaps between selected rows.\n", k.moveUp.Help().Key, k.moveDown.Help().Key)
	fmt.Fprintf(&b, "- `%s` removes the selection and asks first when more than one filter is selected.\n", k.deleteFilters.Help().Key)
	b.WriteString("- `space` enables or disables the selection while the enabled column is shown.\n\n")
	b.WriteString("Moving is only possible in natural order; press `S` to leave a sorted view. ")
	b.WriteString("Downloaded lists are read-only.\n")
	return b.String()
}
