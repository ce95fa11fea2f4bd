package tui

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/log"
	"github.com/evanschultz/filterdeck/internal/domain"
	"github.com/evanschultz/filterdeck/internal/editor"
)

// Service represents service data used by this package.
type Service interface {
	editor.Store
	EnsureDefaultSubscription(context.Context) (domain.Subscription, error)
	ListSubscriptions(context.Context) ([]domain.Subscription, error)
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeEditFilter
	modeConfirmAction
	modeColumnMenu
	modeHelp
)

// sortMenuItems lists the sort entries shown below the columns in the column menu.
var sortMenuItems = []editor.SortDirection{editor.SortNatural, editor.SortAscending, editor.SortDescending}

// Model is the bubbletea model of the filter list editor.
type Model struct {
	svc    Service
	ed     *editor.Editor
	bridge *editorBridge
	logger *log.Logger

	ready  bool
	width  int
	height int
	err    error

	status string

	help         help.Model
	keys         keyMap
	keyConfig    KeyConfig
	helpRenderer *markdownRenderer
	copyText     ClipboardFunc

	accelerator   editor.Modifier
	hiddenColumns []editor.Column
	initialSort   SortConfig

	subscriptions []domain.Subscription
	selectedSub   int
	entries       []editor.Entry

	mode           inputMode
	editInput      textinput.Model
	editHandle     editor.EditHandle
	editRow        int
	pendingConfirm confirmAction
	confirmChoice  int
	menuIndex      int
}

// loadedMsg carries message data through update handling.
type loadedMsg struct {
	subscriptions []domain.Subscription
	err           error
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	editInput := textinput.New()
	editInput.Prompt = ""
	editInput.Placeholder = "filter rule, e.g. ||ads.example.com^"
	editInput.CharLimit = 4096
	m := Model{
		svc:          svc,
		bridge:       &editorBridge{confirmBulk: true},
		logger:       log.New(io.Discard),
		status:       "loading...",
		help:         h,
		keys:         newKeyMap(),
		helpRenderer: &markdownRenderer{},
		copyText:     defaultClipboard,
		accelerator:  editor.ModCtrl,
		editInput:    editInput,
		editRow:      -1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	m.keys.applyConfig(m.keyConfig)
	m.keys.applyAccelerator(m.accelerator)

	ed, err := editor.New(editor.Options{
		Store:       svc,
		Surface:     m.bridge,
		Confirmer:   m.bridge,
		Logger:      m.logger,
		Accelerator: m.accelerator,
		Hidden:      m.hiddenColumns,
	})
	if err != nil {
		m.err = err
		return m
	}
	m.ed = ed
	if m.initialSort.Column != "" {
		if err := ed.View().SortBy(m.initialSort.Column, m.initialSort.Direction); err != nil {
			m.logger.Warn("ignoring configured sort", "err", err)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.editInput.SetWidth(max(10, m.filterColumnWidth()-2))
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		current := m.currentSubscriptionID()
		m.subscriptions = msg.subscriptions
		m.selectedSub = 0
		for idx, sub := range m.subscriptions {
			if sub.ID == current {
				m.selectedSub = idx
			}
		}
		if len(m.subscriptions) == 0 {
			m.entries = nil
			m.status = "no filter lists"
			return m, nil
		}
		if err := m.openSubscription(); err != nil {
			m.err = err
			return m, nil
		}
		if m.status == "" || m.status == "loading..." {
			m.status = "ready"
		}
		return m, nil

	case tea.KeyPressMsg:
		if m.ed == nil {
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		}
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	default:
		if m.mode == modeEditFilter {
			var cmd tea.Cmd
			m.editInput, cmd = m.editInput.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

// loadData loads subscriptions, creating the default list on first run.
func (m Model) loadData() tea.Msg {
	ctx := context.Background()
	if _, err := m.svc.EnsureDefaultSubscription(ctx); err != nil {
		return loadedMsg{err: err}
	}
	subs, err := m.svc.ListSubscriptions(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{subscriptions: subs}
}

// currentSubscriptionID returns the id of the shown subscription.
func (m Model) currentSubscriptionID() string {
	if m.ed == nil {
		return ""
	}
	return m.ed.View().Subscription().ID
}

// openSubscription shows the selected subscription, keeping the selection when it is already shown.
func (m *Model) openSubscription() error {
	if len(m.subscriptions) == 0 {
		return nil
	}
	m.selectedSub = clamp(m.selectedSub, 0, len(m.subscriptions)-1)
	sub := m.subscriptions[m.selectedSub]
	if sub.ID != m.currentSubscriptionID() {
		if err := m.ed.Open(context.Background(), sub.ID); err != nil {
			return err
		}
		m.mode = modeNone
	}
	m.refresh()
	return nil
}

// refresh re-reads the displayed rows unless a batch is open.
func (m *Model) refresh() {
	if m.bridge.inBatch() {
		return
	}
	entries, err := m.ed.Entries(context.Background())
	if err != nil {
		m.status = "reload failed: " + err.Error()
		m.logger.Error("read filters failed", "err", err)
		return
	}
	m.entries = entries
}

// runEditor applies one editor command and syncs the model with its callbacks.
func (m Model) runEditor(label string, fn func(context.Context) error) (tea.Model, tea.Cmd) {
	cmd := m.syncEditor(label, fn(context.Background()))
	return m, cmd
}

// syncEditor records a command outcome and opens any edit or confirmation the editor requested.
func (m *Model) syncEditor(label string, err error) tea.Cmd {
	if err != nil {
		m.logger.Error("editor command failed", "command", label, "err", err)
		m.status = label + " failed: " + err.Error()
	} else if label != "" {
		m.status = label
	}
	m.refresh()

	var cmd tea.Cmd
	if edit := m.bridge.takeEdit(); edit != nil {
		cmd = m.openInlineEdit(*edit)
	}
	if confirm := m.bridge.takeConfirm(); confirm != nil {
		m.mode = modeConfirmAction
		m.pendingConfirm = *confirm
		m.confirmChoice = 1
		m.status = "confirm action"
	}
	return cmd
}

// openInlineEdit switches to the edit input for one row.
func (m *Model) openInlineEdit(edit inlineEdit) tea.Cmd {
	m.mode = modeEditFilter
	m.editHandle = edit.handle
	m.editRow = edit.row
	value := ""
	if edit.row >= 0 && edit.row < len(m.entries) && !m.entries[edit.row].Placeholder {
		value = m.entries[edit.row].Filter.Text
	}
	m.editInput.SetValue(value)
	m.editInput.CursorEnd()
	if value == "" {
		m.status = "new filter"
	} else {
		m.status = "editing filter"
	}
	return m.editInput.Focus()
}

// editorKeyEvent converts a key press into a router event.
func editorKeyEvent(msg tea.KeyPressMsg) (editor.KeyEvent, bool) {
	var k editor.Key
	switch msg.Code {
	case tea.KeyUp:
		k = editor.KeyUp
	case tea.KeyDown:
		k = editor.KeyDown
	case tea.KeySpace:
		k = editor.KeySpace
	default:
		return editor.KeyEvent{}, false
	}
	mods := editor.NormalizeModifiers(
		msg.Mod&tea.ModAlt != 0,
		msg.Mod&tea.ModCtrl != 0,
		msg.Mod&(tea.ModMeta|tea.ModSuper) != 0,
	)
	return editor.KeyEvent{Key: k, Mods: mods}, true
}

// commandLabel returns the status text for a routed command.
func commandLabel(cmd editor.Command) string {
	switch cmd {
	case editor.CommandMoveUp:
		return "moved up"
	case editor.CommandMoveDown:
		return "moved down"
	case editor.CommandToggleDisabled:
		return "toggled"
	default:
		return ""
	}
}

// handleNormalModeKey handles keys while no modal is open.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if ev, ok := editorKeyEvent(msg); ok {
		routed, err := m.ed.Route(context.Background(), ev)
		if routed.Command != editor.CommandNone {
			cmd := m.syncEditor(commandLabel(routed.Command), err)
			if routed.Command != editor.CommandToggleDisabled {
				m.explainBlockedMove()
			}
			if routed.Consumed {
				return m, cmd
			}
		}
	}

	sel := m.ed.Selection()
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.mode = modeHelp
		m.help.ShowAll = true
		m.status = "help"
		return m, nil
	case key.Matches(msg, m.keys.clearSelection):
		if sel.Count() > 1 {
			sel.Select(sel.Current())
			m.status = "selection cleared"
		}
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.extendUp):
		sel.Extend(-1, len(m.entries))
		return m, nil
	case key.Matches(msg, m.keys.extendDown):
		sel.Extend(1, len(m.entries))
		return m, nil
	case key.Matches(msg, m.keys.cursorUp):
		sel.Move(-1, len(m.entries))
		return m, nil
	case key.Matches(msg, m.keys.cursorDown):
		sel.Move(1, len(m.entries))
		return m, nil
	case key.Matches(msg, m.keys.toggleRow):
		if cur := sel.Current(); cur >= 0 {
			sel.Toggle(cur)
		}
		return m, nil
	case key.Matches(msg, m.keys.selectAll):
		return m.runEditor(fmt.Sprintf("selected %d filters", len(m.entries)), m.ed.SelectAll)
	case key.Matches(msg, m.keys.insertFilter):
		if !m.ed.View().Editable() {
			m.status = "read-only list"
			return m, nil
		}
		return m.runEditor("", m.ed.StartInsertEditing)
	case key.Matches(msg, m.keys.editFilter):
		if !m.ed.View().Editable() {
			m.status = "read-only list"
			return m, nil
		}
		return m.runEditor("", m.ed.StartEditing)
	case key.Matches(msg, m.keys.deleteFilters):
		if !m.ed.View().Editable() {
			m.status = "read-only list"
			return m, nil
		}
		count := sel.Count()
		return m.runEditor(fmt.Sprintf("removed %d filters", count), m.ed.DeleteSelected)
	case key.Matches(msg, m.keys.sortColumn):
		m.cycleSortColumn()
		return m, nil
	case key.Matches(msg, m.keys.sortDirection):
		m.flipSortDirection()
		return m, nil
	case key.Matches(msg, m.keys.clearSort):
		m.ed.View().ClearSort()
		m.status = "natural order"
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.columns):
		m.mode = modeColumnMenu
		m.menuIndex = 0
		m.status = "columns"
		return m, nil
	case key.Matches(msg, m.keys.copyFilters):
		m.copySelection()
		return m, nil
	case key.Matches(msg, m.keys.prevList):
		return m.switchSubscription(-1)
	case key.Matches(msg, m.keys.nextList):
		return m.switchSubscription(1)
	default:
		return m, nil
	}
}

// explainBlockedMove reports why a move shortcut did nothing.
func (m *Model) explainBlockedMove() {
	switch {
	case !m.ed.View().Editable():
		m.status = "read-only list"
	case m.ed.View().IsSorted():
		m.status = "sorted view: press S for natural order to reorder"
	}
}

// handleInputModeKey handles keys while a modal is open.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeEditFilter:
		return m.handleEditKey(msg)
	case modeConfirmAction:
		return m.handleConfirmKey(msg)
	case modeColumnMenu:
		return m.handleColumnMenuKey(msg)
	case modeHelp:
		if msg.String() == "esc" || key.Matches(msg, m.keys.toggleHelp) || key.Matches(msg, m.keys.quit) {
			m.mode = modeNone
			m.help.ShowAll = false
			m.status = "ready"
		}
		return m, nil
	default:
		m.mode = modeNone
		return m, nil
	}
}

// handleEditKey routes keys to the inline edit input.
func (m Model) handleEditKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Code == tea.KeyEnter || msg.String() == "enter":
		return m.finishEdit(true)
	case msg.Code == tea.KeyEscape || msg.String() == "esc":
		return m.finishEdit(false)
	default:
		var cmd tea.Cmd
		m.editInput, cmd = m.editInput.Update(msg)
		return m, cmd
	}
}

// finishEdit resolves the inline edit and closes the input.
func (m Model) finishEdit(commit bool) (tea.Model, tea.Cmd) {
	handle := m.editHandle
	value := m.editInput.Value()
	m.mode = modeNone
	m.editRow = -1
	m.editInput.Blur()
	m.editInput.SetValue("")
	label := "edit cancelled"
	if commit {
		label = "saved"
	}
	return m.runEditor(label, func(ctx context.Context) error {
		return m.ed.FinishEditing(ctx, handle, value, commit)
	})
}

// handleConfirmKey answers the pending confirmation.
func (m Model) handleConfirmKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "n":
		return m.answerConfirm(false)
	case "h", "left", "l", "right", "tab":
		if m.confirmChoice == 0 {
			m.confirmChoice = 1
		} else {
			m.confirmChoice = 0
		}
		return m, nil
	case "y":
		return m.answerConfirm(true)
	case "enter":
		return m.answerConfirm(m.confirmChoice == 0)
	default:
		return m, nil
	}
}

// answerConfirm resumes the pending action with the user's answer.
func (m Model) answerConfirm(ok bool) (tea.Model, tea.Cmd) {
	action := m.pendingConfirm
	m.pendingConfirm = confirmAction{}
	m.confirmChoice = 0
	m.mode = modeNone
	if action.resume == nil {
		return m, nil
	}
	label := "cancelled"
	if ok {
		label = "filters removed"
	}
	return m.runEditor(label, func(context.Context) error {
		return action.resume(ok)
	})
}

// columnMenuLen returns the number of column menu entries.
func columnMenuLen() int {
	return len(editor.Columns) + len(sortMenuItems)
}

// handleColumnMenuKey navigates and applies the column menu.
func (m Model) handleColumnMenuKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "esc" || key.Matches(msg, m.keys.columns):
		m.mode = modeNone
		m.status = "ready"
		return m, nil
	case key.Matches(msg, m.keys.cursorUp):
		m.menuIndex = wrapIndex(m.menuIndex, -1, columnMenuLen())
		return m, nil
	case key.Matches(msg, m.keys.cursorDown):
		m.menuIndex = wrapIndex(m.menuIndex, 1, columnMenuLen())
		return m, nil
	case msg.Code == tea.KeyEnter || msg.Code == tea.KeySpace || msg.String() == "x":
		m.applyColumnMenuItem(m.menuIndex)
		m.refresh()
		return m, nil
	default:
		return m, nil
	}
}

// applyColumnMenuItem toggles a column or changes the sort order.
func (m *Model) applyColumnMenuItem(idx int) {
	if idx < len(editor.Columns) {
		col := editor.Columns[idx]
		if err := m.ed.ToggleColumn(col); err != nil {
			m.status = err.Error()
			return
		}
		m.status = "toggled column " + string(col)
		m.editInput.SetWidth(max(10, m.filterColumnWidth()-2))
		return
	}
	dir := sortMenuItems[idx-len(editor.Columns)]
	if err := m.ed.View().SetSortOrder(dir); err != nil {
		m.status = err.Error()
		return
	}
	m.status = "sort: " + string(dir)
}

// cycleSortColumn sorts by the next column, starting with the filter column.
func (m *Model) cycleSortColumn() {
	view := m.ed.View()
	next := editor.ColumnFilter
	if view.IsSorted() {
		idx := slices.Index(editor.Columns, view.SortColumn())
		next = editor.Columns[wrapIndex(idx, 1, len(editor.Columns))]
	}
	dir := view.Direction()
	if dir == editor.SortNatural {
		dir = editor.SortAscending
	}
	if err := view.SortBy(next, dir); err != nil {
		m.status = err.Error()
		return
	}
	m.status = fmt.Sprintf("sorted by %s (%s)", next, dir)
	m.refresh()
}

// flipSortDirection toggles ascending and descending, sorting by filter text when unsorted.
func (m *Model) flipSortDirection() {
	view := m.ed.View()
	dir := editor.SortAscending
	if view.Direction() == editor.SortAscending {
		dir = editor.SortDescending
	}
	if err := view.SetSortOrder(dir); err != nil {
		m.status = err.Error()
		return
	}
	m.status = fmt.Sprintf("sorted by %s (%s)", view.SortColumn(), dir)
	m.refresh()
}

// copySelection copies the selected filters' text, one per line.
func (m *Model) copySelection() {
	selected := m.ed.Selection().SelectedEntries(m.entries)
	lines := make([]string, 0, len(selected))
	for _, entry := range selected {
		if !entry.Placeholder {
			lines = append(lines, entry.Filter.Text)
		}
	}
	if len(lines) == 0 {
		m.status = "nothing to copy"
		return
	}
	if err := m.copyText(strings.Join(lines, "\n")); err != nil {
		m.logger.Error("clipboard write failed", "err", err)
		m.status = "copy failed: " + err.Error()
		return
	}
	m.status = fmt.Sprintf("copied %d filters", len(lines))
}

// switchSubscription shows the previous or next subscription.
func (m Model) switchSubscription(delta int) (tea.Model, tea.Cmd) {
	if len(m.subscriptions) <= 1 {
		return m, nil
	}
	m.selectedSub = wrapIndex(m.selectedSub, delta, len(m.subscriptions))
	if err := m.openSubscription(); err != nil {
		m.status = "open list failed: " + err.Error()
		return m, nil
	}
	m.status = m.subscriptions[m.selectedSub].Title
	return m, nil
}

// wrapIndex returns current+delta wrapped into [0,total).
func wrapIndex(current int, delta int, total int) int {
	if total <= 0 {
		return 0
	}
	next := current + delta
	for next < 0 {
		next += total
	}
	for next >= total {
		next -= total
	}
	return next
}
