package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
	"github.com/evanschultz/filterdeck/internal/editor"
)

// KeyConfig holds optional key overrides; blank values keep the defaults.
type KeyConfig struct {
	Insert    string
	Edit      string
	Delete    string
	ToggleRow string
	Copy      string
	Columns   string
}

// keyMap represents key map data used by this package.
type keyMap struct {
	quit           key.Binding
	reload         key.Binding
	toggleHelp     key.Binding
	cursorUp       key.Binding
	cursorDown     key.Binding
	extendUp       key.Binding
	extendDown     key.Binding
	toggleRow      key.Binding
	selectAll      key.Binding
	clearSelection key.Binding
	editFilter     key.Binding
	insertFilter   key.Binding
	deleteFilters  key.Binding
	moveUp         key.Binding
	moveDown       key.Binding
	toggleDisabled key.Binding
	sortColumn     key.Binding
	sortDirection  key.Binding
	clearSort      key.Binding
	columns        key.Binding
	copyFilters    key.Binding
	prevList       key.Binding
	nextList       key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:           key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:         key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		cursorUp:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "row up")),
		cursorDown:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "row down")),
		extendUp:       key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("shift+↑", "extend up")),
		extendDown:     key.NewBinding(key.WithKeys("shift+down", "J"), key.WithHelp("shift+↓", "extend down")),
		toggleRow:      key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "select row")),
		selectAll:      key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "select all")),
		clearSelection: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear selection")),
		editFilter:     key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter/e", "edit filter")),
		insertFilter:   key.NewBinding(key.WithKeys("n", "insert"), key.WithHelp("n", "new filter")),
		deleteFilters:  key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete selected")),
		moveUp:         key.NewBinding(key.WithKeys("ctrl+up"), key.WithHelp("ctrl+↑", "move up")),
		moveDown:       key.NewBinding(key.WithKeys("ctrl+down"), key.WithHelp("ctrl+↓", "move down")),
		toggleDisabled: key.NewBinding(key.WithKeys("space"), key.WithHelp("space", "enable/disable")),
		sortColumn:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort column")),
		sortDirection:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort order")),
		clearSort:      key.NewBinding(key.WithKeys("S", "shift+s"), key.WithHelp("S", "natural order")),
		columns:        key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "columns")),
		copyFilters:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
		prevList:       key.NewBinding(key.WithKeys("["), key.WithHelp("[", "previous list")),
		nextList:       key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next list")),
	}
}

// applyAccelerator relabels the move bindings for the configured accelerator.
func (k *keyMap) applyAccelerator(accel editor.Modifier) {
	prefix := accel.String()
	if prefix == "" {
		prefix = editor.ModCtrl.String()
	}
	k.moveUp = key.NewBinding(key.WithKeys(prefix+"+up"), key.WithHelp(prefix+"+↑", "move up"))
	k.moveDown = key.NewBinding(key.WithKeys(prefix+"+down"), key.WithHelp(prefix+"+↓", "move down"))
}

// applyConfig applies configured key overrides.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.insertFilter, cfg.Insert, "n", "new filter")
	configureBinding(&k.editFilter, cfg.Edit, "e", "edit filter")
	configureBinding(&k.deleteFilters, cfg.Delete, "d", "delete selected")
	configureBinding(&k.toggleRow, cfg.ToggleRow, "v", "select row")
	configureBinding(&k.copyFilters, cfg.Copy, "y", "copy")
	configureBinding(&k.columns, cfg.Columns, "c", "columns")
}

// configureBinding replaces a binding's keys when an override is set.
// Space overrides are ignored; the editor routes space to enable/disable.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	if strings.TrimSpace(raw) == "" || strings.EqualFold(strings.TrimSpace(raw), "space") {
		return
	}
	keys, help := parseBindingKeys(raw, fallback)
	*b = key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// parseBindingKeys turns one configured key into matcher keys and a help label.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	if utf8.RuneCountInString(raw) == 1 {
		r, _ := utf8.DecodeRuneInString(raw)
		if unicode.IsUpper(r) {
			return []string{raw, "shift+" + string(unicode.ToLower(r))}, raw
		}
		return []string{raw}, raw
	}
	return []string{strings.ToLower(raw)}, raw
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.insertFilter, k.editFilter, k.deleteFilters, k.moveUp, k.moveDown, k.toggleDisabled, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.cursorUp, k.cursorDown, k.extendUp, k.extendDown, k.toggleRow, k.selectAll, k.clearSelection},
		{k.insertFilter, k.editFilter, k.deleteFilters, k.moveUp, k.moveDown, k.toggleDisabled, k.copyFilters},
		{k.sortColumn, k.sortDirection, k.clearSort, k.columns, k.prevList, k.nextList, k.reload, k.toggleHelp, k.quit},
	}
}
