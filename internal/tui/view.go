package tui

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/filterdeck/internal/domain"
	"github.com/evanschultz/filterdeck/internal/editor"
)

// fixed widths of the non-text columns.
var columnWidths = map[editor.Column]int{
	editor.ColumnSlow:     6,
	editor.ColumnEnabled:  9,
	editor.ColumnHitCount: 7,
	editor.ColumnLastHit:  18,
}

// columnTitles holds the table header labels.
var columnTitles = map[editor.Column]string{
	editor.ColumnFilter:   "Filter",
	editor.ColumnSlow:     "Slow",
	editor.ColumnEnabled:  "Enabled",
	editor.ColumnHitCount: "Hits",
	editor.ColumnLastHit:  "Last hit",
}

// View handles view.
func (m Model) View() tea.View {
	if m.err != nil {
		v := tea.NewView("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
		v.AltScreen = true
		return v
	}
	if !m.ready || m.ed == nil {
		v := tea.NewView("loading...")
		v.AltScreen = true
		return v
	}

	sub := m.ed.View().Subscription()
	accent := subscriptionAccentColor(sub)
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	header := titleStyle.Render("filterdeck") + "  " + sub.Title
	header += statusStyle.Render("  [" + m.modeLabel() + "]")
	if !m.ed.View().Editable() {
		header += statusStyle.Render("  read-only")
	}
	if view := m.ed.View(); view.IsSorted() {
		header += statusStyle.Render(fmt.Sprintf("  sorted: %s %s", view.SortColumn(), view.Direction()))
	}
	if count := m.ed.Selection().Count(); count > 1 {
		header += statusStyle.Render(fmt.Sprintf("  selected: %d", count))
	}

	sections := []string{header}
	if tabs := m.renderSubscriptionTabs(accent, dim); tabs != "" {
		sections = append(sections, tabs)
	}
	sections = append(sections, "", m.renderTable(accent, muted, dim))

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	footer := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(statusStyle.Render(m.status) + "\n" + helpBubble.View(m.keys))

	content := strings.Join(sections, "\n")
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(footer)))
	}
	full := content + "\n" + footer
	if overlay := m.renderModeOverlay(accent, muted, m.width-8); overlay != "" {
		height := lipgloss.Height(full)
		if m.height > 0 {
			height = m.height
		}
		full = overlayOnContent(full, overlay, max(1, m.width), max(1, height))
	}
	v := tea.NewView(full)
	v.AltScreen = true
	return v
}

// renderSubscriptionTabs renders one tab per subscription.
func (m Model) renderSubscriptionTabs(accent, dim color.Color) string {
	if len(m.subscriptions) <= 1 {
		return ""
	}
	active := lipgloss.NewStyle().Bold(true).Foreground(accent)
	inactive := lipgloss.NewStyle().Foreground(dim)

	parts := make([]string, 0, len(m.subscriptions))
	for idx, sub := range m.subscriptions {
		label := sub.Title
		if !sub.Editable() {
			label += " (ro)"
		}
		if idx == m.selectedSub {
			parts = append(parts, active.Render("["+label+"]"))
		} else {
			parts = append(parts, inactive.Render(label))
		}
	}
	return strings.Join(parts, "  ")
}

// subscriptionAccentColor distinguishes user lists from downloaded ones.
func subscriptionAccentColor(sub domain.Subscription) color.Color {
	if sub.Editable() {
		return lipgloss.Color("62")
	}
	return lipgloss.Color("173")
}

// filterColumnWidth returns the width left for the filter text.
func (m Model) filterColumnWidth() int {
	width := m.width
	if width <= 0 {
		width = 80
	}
	width -= 4
	if m.ed != nil {
		for _, col := range m.ed.VisibleColumns() {
			width -= columnWidths[col]
		}
	}
	return max(16, width)
}

// tableHeight returns how many rows fit on screen.
func (m Model) tableHeight() int {
	h := m.height - 8
	if len(m.subscriptions) > 1 {
		h--
	}
	return max(5, h)
}

// renderTable renders the visible window of rows.
func (m Model) renderTable(accent, muted, dim color.Color) string {
	cols := m.ed.VisibleColumns()
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	currentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("237"))
	disabledStyle := lipgloss.NewStyle().Foreground(muted).Strikethrough(true)
	commentStyle := lipgloss.NewStyle().Foreground(dim).Italic(true)

	headerCells := make([]string, 0, len(cols))
	for _, col := range cols {
		headerCells = append(headerCells, pad(columnTitles[col], m.cellWidth(col)))
	}
	lines := []string{"    " + headerStyle.Render(strings.Join(headerCells, ""))}

	if len(m.entries) == 0 {
		hint := "(empty) press " + m.keys.insertFilter.Help().Key + " to add a filter"
		if !m.ed.View().Editable() {
			hint = "(empty)"
		}
		return strings.Join(append(lines, lipgloss.NewStyle().Foreground(muted).Render("    "+hint)), "\n")
	}

	sel := m.ed.Selection()
	start, end := windowBounds(len(m.entries), sel.Current(), m.tableHeight())
	for _, entry := range m.entries[start:end] {
		cells := make([]string, 0, len(cols))
		for _, col := range cols {
			cells = append(cells, pad(m.cellText(entry, col), m.cellWidth(col)))
		}
		row := strings.Join(cells, "")
		marker := "  "
		if sel.Contains(entry.Row) {
			marker = "• "
		}
		cursor := "  "
		if entry.Row == sel.Current() {
			cursor = "› "
		}
		switch {
		case m.mode == modeEditFilter && entry.Row == m.editRow:
			row = m.editInput.View()
		case entry.Row == sel.Current():
			row = currentStyle.Render(row)
		case sel.Contains(entry.Row):
			row = selectedStyle.Render(row)
		case entry.Filter.IsComment():
			row = commentStyle.Render(row)
		case entry.Filter.Disabled:
			row = disabledStyle.Render(row)
		}
		lines = append(lines, cursor+marker+row)
	}
	if end < len(m.entries) || start > 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(dim).Render(fmt.Sprintf("    rows %d-%d of %d", start+1, end, len(m.entries))))
	}
	return strings.Join(lines, "\n")
}

// cellWidth returns the render width of one column.
func (m Model) cellWidth(col editor.Column) int {
	if col == editor.ColumnFilter {
		return m.filterColumnWidth()
	}
	return columnWidths[col]
}

// cellText formats one cell.
func (m Model) cellText(entry editor.Entry, col editor.Column) string {
	f := entry.Filter
	if entry.Placeholder {
		if col == editor.ColumnFilter {
			return "…"
		}
		return ""
	}
	switch col {
	case editor.ColumnSlow:
		if f.Active() && f.Slow() {
			return "!"
		}
		return ""
	case editor.ColumnEnabled:
		if !f.Active() {
			return ""
		}
		if f.Disabled {
			return "[ ]"
		}
		return "[x]"
	case editor.ColumnHitCount:
		if !f.Active() {
			return ""
		}
		return strconv.Itoa(f.HitCount)
	case editor.ColumnLastHit:
		if f.LastHitAt == nil {
			return ""
		}
		return f.LastHitAt.Local().Format(time.DateTime)
	default:
		return truncate(f.Text, m.filterColumnWidth()-1)
	}
}

// renderModeOverlay renders the modal for the current mode.
func (m Model) renderModeOverlay(accent, muted color.Color, maxWidth int) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle := lipgloss.NewStyle().Foreground(muted)

	switch m.mode {
	case modeConfirmAction:
		if maxWidth > 0 {
			style = style.Width(clamp(maxWidth, 36, 88))
		}
		confirmStyle := lipgloss.NewStyle().Foreground(muted)
		cancelStyle := lipgloss.NewStyle().Foreground(muted)
		if m.confirmChoice == 0 {
			confirmStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
		} else {
			cancelStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
		}
		lines := []string{
			titleStyle.Render("Confirm Action"),
			m.pendingConfirm.Message,
			confirmStyle.Render("[confirm]") + "  " + cancelStyle.Render("[cancel]"),
			hintStyle.Render("enter apply • esc cancel • h/l switch • y confirm • n cancel"),
		}
		return style.Render(strings.Join(lines, "\n"))

	case modeColumnMenu:
		if maxWidth > 0 {
			style = style.Width(clamp(maxWidth, 30, 48))
		}
		menu := m.ed.ColumnMenu()
		lines := []string{titleStyle.Render("Columns")}
		for idx, item := range menu.Columns {
			check := "[ ]"
			if item.Visible {
				check = "[x]"
			}
			label := check + " " + columnTitles[item.Column]
			if item.Sorted {
				label += " (sorted)"
			}
			lines = append(lines, m.menuLine(idx, label, accent))
		}
		lines = append(lines, hintStyle.Render("sort"))
		for offset, dir := range sortMenuItems {
			mark := "( )"
			if (dir == editor.SortNatural && menu.Unsorted) || (!menu.Unsorted && dir == menu.Direction) {
				mark = "(•)"
			}
			label := mark + " " + string(dir)
			if dir == editor.SortNatural {
				label = mark + " unsorted"
			}
			lines = append(lines, m.menuLine(len(menu.Columns)+offset, label, accent))
		}
		lines = append(lines, hintStyle.Render("j/k select • enter toggle • esc close"))
		return style.Render(strings.Join(lines, "\n"))

	case modeHelp:
		width := clamp(maxWidth, 40, 96)
		body := m.helpRenderer.render(helpMarkdown(m.keys), width-4)
		helpBubble := m.help
		helpBubble.ShowAll = true
		helpBubble.SetWidth(width - 4)
		lines := []string{titleStyle.Render("Help"), body, helpBubble.View(m.keys), hintStyle.Render("esc close")}
		return style.Width(width).Render(strings.Join(lines, "\n"))

	default:
		return ""
	}
}

// menuLine renders one column menu entry.
func (m Model) menuLine(idx int, label string, accent color.Color) string {
	if idx == m.menuIndex {
		return lipgloss.NewStyle().Bold(true).Foreground(accent).Render("› " + label)
	}
	return "  " + label
}

// modeLabel handles mode label.
func (m Model) modeLabel() string {
	switch m.mode {
	case modeEditFilter:
		return "edit"
	case modeConfirmAction:
		return "confirm"
	case modeColumnMenu:
		return "columns"
	case modeHelp:
		return "help"
	default:
		return "normal"
	}
}

// windowBounds returns an inclusive-exclusive list window that keeps selected visible.
func windowBounds(total, selected, windowSize int) (int, int) {
	if total <= 0 || windowSize <= 0 {
		return 0, 0
	}
	if total <= windowSize {
		return 0, total
	}
	selected = clamp(selected, 0, total-1)
	start := max(0, selected-windowSize/2)
	end := start + windowSize
	if end > total {
		end = total
		start = max(0, end-windowSize)
	}
	return start, end
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	return max(minV, min(v, maxV))
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		lines = append(lines, make([]string, maxLines-len(lines))...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	centered := lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay)
	canvas.Compose(lipgloss.NewLayer(base).X(0).Y(0).Z(0))
	canvas.Compose(lipgloss.NewLayer(centered).X(0).Y(0).Z(10))
	return canvas.Render()
}

// truncate truncates the requested operation.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	if limit <= 1 {
		return string(rs[:limit])
	}
	return string(rs[:limit-1]) + "…"
}

// pad right-pads s to width display cells.
func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
