package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/filterdeck/internal/adapters/storage/sqlite"
	"github.com/evanschultz/filterdeck/internal/app"
	"github.com/evanschultz/filterdeck/internal/domain"
	"github.com/evanschultz/filterdeck/internal/editor"
)

// fakeClipboard records copied text.
type fakeClipboard struct {
	text string
	err  error
}

func (c *fakeClipboard) write(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

// newTestService opens an in-memory store holding the default list with texts.
func newTestService(t *testing.T, texts ...string) (*app.Service, domain.Subscription) {
	t.Helper()
	repo, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	seq := 0
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc := app.NewService(repo, func() string {
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}, func() time.Time { return now })

	ctx := context.Background()
	sub, err := svc.EnsureDefaultSubscription(ctx)
	if err != nil {
		t.Fatalf("EnsureDefaultSubscription() error = %v", err)
	}
	for _, text := range texts {
		if _, err := svc.AddFilter(ctx, app.AddFilterInput{SubscriptionID: sub.ID, Text: text, Position: -1}); err != nil {
			t.Fatalf("AddFilter() error = %v", err)
		}
	}
	return svc, sub
}

// filterTexts lists the stored filter texts of a subscription.
func filterTexts(t *testing.T, svc *app.Service, subID string) []string {
	t.Helper()
	filters, err := svc.ListFilters(context.Background(), subID)
	if err != nil {
		t.Fatalf("ListFilters() error = %v", err)
	}
	out := make([]string, 0, len(filters))
	for _, f := range filters {
		out = append(out, f.Text)
	}
	return out
}

// TestModelLoadsDefaultList verifies behavior for the covered scenario.
func TestModelLoadsDefaultList(t *testing.T) {
	svc, sub := newTestService(t, "||ads.example^", "example.com##.banner")
	m := loadReadyModel(t, NewModel(svc))

	if len(m.subscriptions) != 1 || m.currentSubscriptionID() != sub.ID {
		t.Fatalf("unexpected subscriptions %#v", m.subscriptions)
	}
	if len(m.entries) != 2 || m.ed.Selection().Current() != 0 {
		t.Fatalf("unexpected entries %d current %d", len(m.entries), m.ed.Selection().Current())
	}
	if m.status != "ready" {
		t.Fatalf("unexpected status %q", m.status)
	}
	table := m.renderTable(lipgloss.Color("62"), lipgloss.Color("241"), lipgloss.Color("239"))
	if !strings.Contains(table, "||ads.example^") || !strings.Contains(table, "Filter") {
		t.Fatalf("expected rendered filters, got %q", table)
	}
	if v := m.View(); v.Content == nil {
		t.Fatal("expected view content")
	}
}

// TestModelAcceleratorMovesSelection verifies behavior for the covered scenario.
func TestModelAcceleratorMovesSelection(t *testing.T) {
	svc, sub := newTestService(t, "A", "B", "C")
	m := loadReadyModel(t, NewModel(svc, WithAccelerator(editor.ModCtrl)))

	m = press(t, m, tea.KeyPressMsg{Code: tea.KeyDown, Mod: tea.ModCtrl})
	if got := strings.Join(filterTexts(t, svc, sub.ID), ","); got != "B,A,C" {
		t.Fatalf("unexpected order after move down %q", got)
	}
	if m.ed.Selection().Current() != 1 || m.status != "moved down" {
		t.Fatalf("unexpected selection %d status %q", m.ed.Selection().Current(), m.status)
	}

	m = press(t, m, tea.KeyPressMsg{Code: tea.KeyUp, Mod: tea.ModCtrl})
	if got := strings.Join(filterTexts(t, svc, sub.ID), ","); got != "A,B,C" {
		t.Fatalf("unexpected order after move up %q", got)
	}

	m = press(t, m, tea.KeyPressMsg{Code: tea.KeyDown})
	if m.ed.Selection().Current() != 1 {
		t.Fatalf("plain down must move the cursor, got %d", m.ed.Selection().Current())
	}
	if got := strings.Join(filterTexts(t, svc, sub.ID), ","); got != "A,B,C" {
		t.Fatalf("plain down must not reorder, got %q", got)
	}
}

// TestModelSortedViewBlocksMove verifies behavior for the covered scenario.
func TestModelSortedViewBlocksMove(t *testing.T) {
	svc, sub := newTestService(t, "b", "a")
	m := loadReadyModel(t, NewModel(svc))

	m = press(t, m, keyRune('s'))
	if !m.ed.View().IsSorted() || m.entries[0].Filter.Text != "a" {
		t.Fatalf("expected sorted view, got %#v", m.entries)
	}
	m = press(t, m, tea.KeyPressMsg{Code: tea.KeyDown, Mod: tea.ModCtrl})
	if !strings.Contains(m.status, "sorted view") {
		t.Fatalf("expected sorted explanation, got %q", m.status)
	}
	if got := strings.Join(filterTexts(t, svc, sub.ID), ","); got != "b,a" {
		t.Fatalf("sorted view must not reorder, got %q", got)
	}

	m = press(t, m, keyRune('o'))
	if m.ed.View().Direction() != editor.SortDescending {
		t.Fatalf("expected descending, got %s", m.ed.View().Direction())
	}
	m = press(t, m, keyRune('S'))
	if m.ed.View().IsSorted() || m.entries[0].Filter.Text != "b" {
		t.Fatal("expected natural order")
	}
}

// TestModelInsertCommitAndAbandon verifies behavior for the covered scenario.
func TestModelInsertCommitAndAbandon(t *testing.T) {
	svc, sub := newTestService(t, "A")
	m := loadReadyModel(t, NewModel(svc))

	m = press(t, m, keyRune('n'))
	if m.mode != modeEditFilter || !m.ed.Busy() || len(m.entries) != 2 {
		t.Fatalf("expected inline insert, mode=%d entries=%d", m.mode, len(m.entries))
	}
	for _, r := range "X1" {
		m = press(t, m, keyRune(r))
	}
	m = press(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if got := strings.Join(filterTexts(t, svc, sub.ID), ","); got != "X1,A" {
		t.Fatalf("unexpected order after insert %q", got)
	}
	if m.mode != modeNone || m.ed.Busy() {
		t.Fatal("expected editing to end")
	}

	m = press(t, m, keyRune('n'))
	m = press(t, m, keyRune('Z'))
	m = press(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if got := strings.Join(filterTexts(t, svc, sub.ID), ","); got != "X1,A" {
		t.Fatalf("abandoned insert changed list %q", got)
	}
	if len(m.entries) != 2 || m.ed.Busy() {
		t.Fatalf("expected placeholder removed, entries=%d", len(m.entries))
	}

	m = press(t, m, keyRune('n'))
	if m.mode != modeEditFilter {
		t.Fatal("expected a second insert to start")
	}
}

// TestModelEditExistingFilter verifies behavior for the covered scenario.
func TestModelEditExistingFilter(t *testing.T) {
	svc, sub := newTestService(t, "ads")
	m := loadReadyModel(t, NewModel(svc))

	m = press(t, m, keyRune('e'))
	if m.mode != modeEditFilter || m.editInput.Value() != "ads" {
		t.Fatalf("expected prefilled edit, got mode=%d value=%q", m.mode, m.editInput.Value())
	}
	m = press(t, m, keyRune('!'))
	m = press(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if got := filterTexts(t, svc, sub.ID); len(got) != 1 || got[0] != "ads!" {
		t.Fatalf("unexpected filters %v", got)
	}
}

// TestModelBulkDeleteConfirmation verifies behavior for the covered scenario.
func TestModelBulkDeleteConfirmation(t *testing.T) {
	svc, sub := newTestService(t, "A", "B", "C")
	m := loadReadyModel(t, NewModel(svc))

	m = press(t, m, tea.KeyPressMsg{Code: 'a', Mod: tea.ModCtrl})
	if m.ed.Selection().Count() != 3 {
		t.Fatalf("expected all selected, got %d", m.ed.Selection().Count())
	}
	m = press(t, m, keyRune('d'))
	if m.mode != modeConfirmAction || !strings.Contains(m.pendingConfirm.Message, "3") {
		t.Fatalf("expected confirmation, mode=%d msg=%q", m.mode, m.pendingConfirm.Message)
	}
	m = press(t, m, keyRune('n'))
	if m.mode != modeNone || len(filterTexts(t, svc, sub.ID)) != 3 {
		t.Fatal("declined delete must keep filters")
	}

	m = press(t, m, keyRune('d'))
	m = press(t, m, keyRune('y'))
	if got := filterTexts(t, svc, sub.ID); len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
	if len(m.entries) != 0 || m.status != "filters removed" {
		t.Fatalf("unexpected entries %d status %q", len(m.entries), m.status)
	}
}

// TestModelBulkDeleteWithoutConfirm verifies behavior for the covered scenario.
func TestModelBulkDeleteWithoutConfirm(t *testing.T) {
	svc, sub := newTestService(t, "A", "B", "C")
	m := loadReadyModel(t, NewModel(svc, WithBulkDeleteConfirm(false)))

	m = press(t, m, tea.KeyPressMsg{Code: tea.KeyDown, Mod: tea.ModShift})
	m = press(t, m, keyRune('d'))
	if m.mode != modeNone {
		t.Fatalf("expected no modal, got mode %d", m.mode)
	}
	if got := strings.Join(filterTexts(t, svc, sub.ID), ","); got != "C" {
		t.Fatalf("unexpected remaining filters %q", got)
	}
}

// TestModelSpaceTogglesDisabled verifies behavior for the covered scenario.
func TestModelSpaceTogglesDisabled(t *testing.T) {
	svc, sub := newTestService(t, "A", "B")
	m := loadReadyModel(t, NewModel(svc))

	m = press(t, m, tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	filters, err := svc.ListFilters(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("ListFilters() error = %v", err)
	}
	if !filters[0].Disabled || filters[1].Disabled {
		t.Fatalf("expected only A disabled, got %#v", filters)
	}
	if m.bridge.batches != 1 {
		t.Fatalf("expected one update batch, got %d", m.bridge.batches)
	}

	m = loadReadyModel(t, NewModel(svc, WithHiddenColumns(editor.ColumnEnabled)))
	m = press(t, m, tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	filters, _ = svc.ListFilters(context.Background(), sub.ID)
	if !filters[0].Disabled {
		t.Fatal("hidden enabled column must leave space unhandled")
	}
}

// TestModelSpaceOverrideDoesNotToggleRow verifies a space toggle_row override leaves row membership alone.
func TestModelSpaceOverrideDoesNotToggleRow(t *testing.T) {
	svc, sub := newTestService(t, "A", "B")
	m := loadReadyModel(t, NewModel(svc, WithKeyConfig(KeyConfig{ToggleRow: "space"})))

	m = press(t, m, tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	filters, err := svc.ListFilters(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("ListFilters() error = %v", err)
	}
	if !filters[0].Disabled {
		t.Fatal("expected space to disable A")
	}
	if sel := m.ed.Selection(); sel.Count() != 1 || !sel.Contains(0) {
		t.Fatalf("expected row 0 to stay selected, got %#v", sel.Rows())
	}

	m = press(t, m, keyRune('v'))
	if m.ed.Selection().Contains(0) {
		t.Fatal("expected default toggle_row key to stay bound")
	}
}

// TestModelColumnMenu verifies behavior for the covered scenario.
func TestModelColumnMenu(t *testing.T) {
	svc, _ := newTestService(t, "A")
	m := loadReadyModel(t, NewModel(svc))

	m = press(t, m, keyRune('c'))
	if m.mode != modeColumnMenu {
		t.Fatalf("expected column menu, got %d", m.mode)
	}
	m = press(t, m, keyRune('j'))
	m = press(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.ed.ColumnVisible(editor.ColumnSlow) {
		t.Fatal("expected slow column hidden")
	}
	for range len(editor.Columns) + 1 {
		m = press(t, m, keyRune('j'))
	}
	m = press(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.ed.View().Direction() != editor.SortDescending || m.ed.View().SortColumn() != editor.ColumnFilter {
		t.Fatalf("expected descending filter sort, got %s %s", m.ed.View().SortColumn(), m.ed.View().Direction())
	}
	m = press(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != modeNone {
		t.Fatal("expected menu closed")
	}
}

// TestModelCopySelection verifies behavior for the covered scenario.
func TestModelCopySelection(t *testing.T) {
	svc, _ := newTestService(t, "A", "B", "C")
	clip := &fakeClipboard{}
	m := loadReadyModel(t, NewModel(svc, WithClipboard(clip.write)))

	m = press(t, m, keyRune('J'))
	m = press(t, m, keyRune('y'))
	if clip.text != "A\nB" || m.status != "copied 2 filters" {
		t.Fatalf("unexpected clipboard %q status %q", clip.text, m.status)
	}

	clip.err = errors.New("no clipboard")
	m = press(t, m, keyRune('y'))
	if !strings.Contains(m.status, "copy failed") {
		t.Fatalf("expected copy failure status, got %q", m.status)
	}
}

// TestModelReadOnlyList verifies behavior for the covered scenario.
func TestModelReadOnlyList(t *testing.T) {
	svc, _ := newTestService(t, "A")
	if _, err := svc.CreateSubscription(context.Background(), app.CreateSubscriptionInput{
		Title: "EasyList",
		URL:   "https://easylist.example/easylist.txt",
		Kind:  domain.SubscriptionKindDownload,
	}); err != nil {
		t.Fatalf("CreateSubscription() error = %v", err)
	}
	m := loadReadyModel(t, NewModel(svc))
	if len(m.subscriptions) != 2 {
		t.Fatalf("expected two lists, got %d", len(m.subscriptions))
	}

	m = press(t, m, keyRune(']'))
	if m.ed.View().Editable() || m.status != "EasyList" {
		t.Fatalf("expected read-only list, status %q", m.status)
	}
	m = press(t, m, keyRune('n'))
	if m.mode != modeNone || m.status != "read-only list" {
		t.Fatalf("expected read-only refusal, mode=%d status=%q", m.mode, m.status)
	}
	m = press(t, m, keyRune('['))
	if !m.ed.View().Editable() || len(m.entries) != 1 {
		t.Fatal("expected the editable list again")
	}
}

// TestModelHelpAndQuit verifies behavior for the covered scenario.
func TestModelHelpAndQuit(t *testing.T) {
	svc, _ := newTestService(t)
	m := loadReadyModel(t, NewModel(svc))

	m = press(t, m, keyRune('?'))
	if m.mode != modeHelp || m.modeLabel() != "help" {
		t.Fatalf("expected help mode, got %d", m.mode)
	}
	if overlay := m.renderModeOverlay(lipgloss.Color("62"), lipgloss.Color("241"), 80); !strings.Contains(overlay, "Help") {
		t.Fatal("expected help overlay")
	}
	m = press(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != modeNone {
		t.Fatal("expected help closed")
	}

	_, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Fatal("expected quit cmd")
	}
}

// TestModelLoadFailure verifies behavior for the covered scenario.
func TestModelLoadFailure(t *testing.T) {
	m := NewModel(failingService{})
	m = applyCmd(t, m, m.Init())
	if m.err == nil {
		t.Fatal("expected load error")
	}
	if v := m.View(); v.Content == nil {
		t.Fatal("expected error view content")
	}
}

// failingService fails every load.
type failingService struct {
	editor.Store
}

func (failingService) EnsureDefaultSubscription(context.Context) (domain.Subscription, error) {
	return domain.Subscription{}, errors.New("database locked")
}

func (failingService) ListSubscriptions(context.Context) ([]domain.Subscription, error) {
	return nil, errors.New("database locked")
}

// TestWindowHelpers verifies behavior for the covered scenario.
func TestWindowHelpers(t *testing.T) {
	if start, end := windowBounds(100, 50, 10); start != 45 || end != 55 {
		t.Fatalf("unexpected window %d-%d", start, end)
	}
	if start, end := windowBounds(3, 2, 10); start != 0 || end != 3 {
		t.Fatalf("unexpected short window %d-%d", start, end)
	}
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("unexpected truncate %q", got)
	}
	if got := wrapIndex(0, -1, 3); got != 2 {
		t.Fatalf("unexpected wrap %d", got)
	}
	if got := fitLines("a\nb\nc", 2); got != "a\n…" {
		t.Fatalf("unexpected fit %q", got)
	}
}

func loadReadyModel(t *testing.T, m Model) Model {
	t.Helper()
	return applyMsg(t, applyCmd(t, m, m.Init()), tea.WindowSizeMsg{Width: 120, Height: 40})
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return applyCmd(t, out, cmd)
}

// press applies one key without running follow-up commands such as cursor blinks.
func press(t *testing.T, m Model, msg tea.KeyPressMsg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return out
}

func applyCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	out := m
	currentCmd := cmd
	for i := 0; i < 6 && currentCmd != nil; i++ {
		msg := currentCmd()
		updated, nextCmd := out.Update(msg)
		casted, ok := updated.(Model)
		if !ok {
			t.Fatalf("expected Model, got %T", updated)
		}
		out = casted
		currentCmd = nextCmd
	}
	return out
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}
