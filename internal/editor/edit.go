package editor

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanschultz/filterdeck/internal/app"
	"github.com/evanschultz/filterdeck/internal/domain"
)

// EditState describes the inline edit lifecycle.
type EditState int

// EditState values.
const (
	EditIdle EditState = iota
	EditPlaceholder
	EditExisting
)

// String returns the state name.
func (s EditState) String() string {
	switch s {
	case EditPlaceholder:
		return "placeholder"
	case EditExisting:
		return "existing"
	default:
		return "idle"
	}
}

// EditHandle identifies one inline edit; it resolves at most once.
type EditHandle uint64

// pendingEdit holds the single unresolved inline edit.
type pendingEdit struct {
	handle EditHandle
	state  EditState
	row    int
	filter domain.Filter
}

// EditState returns the current lifecycle state.
func (e *Editor) EditState() EditState {
	if e.edit == nil {
		return EditIdle
	}
	return e.edit.state
}

// EditingRow returns the row being edited, or -1.
func (e *Editor) EditingRow() int {
	if e.edit == nil {
		return -1
	}
	return e.edit.row
}

// StartInsertEditing shows a placeholder at the current row and starts editing it.
func (e *Editor) StartInsertEditing(ctx context.Context) error {
	if !e.view.Editable() || e.edit != nil {
		return nil
	}
	entries, err := e.Entries(ctx)
	if err != nil {
		return fmt.Errorf("insert filter: %w", err)
	}
	row := 0
	if cur := e.selection.Current(); cur >= 0 {
		row = clamp(cur, 0, len(entries))
	}
	index := len(entries)
	if row < len(entries) {
		index = entries[row].Index
	}
	e.view.placeholder = row
	e.selection.Select(row)
	e.begin(EditPlaceholder, row, domain.Filter{SubscriptionID: e.view.sub.ID, Position: index})
	e.logger.Debug("insert editing started", "subscription", e.view.sub.ID, "row", row)
	return nil
}

// StartEditing starts editing the current row.
func (e *Editor) StartEditing(ctx context.Context) error {
	if e.edit != nil || !e.view.Editable() {
		return nil
	}
	entries, err := e.Entries(ctx)
	if err != nil {
		return fmt.Errorf("start editing: %w", err)
	}
	row := e.selection.Current()
	if row < 0 || row >= len(entries) || entries[row].Placeholder {
		return nil
	}
	e.begin(EditExisting, row, entries[row].Filter)
	e.logger.Debug("editing started", "filter", entries[row].Filter.ID, "row", row)
	return nil
}

// begin registers the pending edit and hands its handle to the surface.
func (e *Editor) begin(state EditState, row int, f domain.Filter) {
	e.handles++
	e.edit = &pendingEdit{handle: e.handles, state: state, row: row, filter: f}
	e.surface.StartInlineEdit(e.handles, row, ColumnFilter)
}

// FinishEditing resolves the edit identified by handle.
// Stale or already resolved handles are ignored.
func (e *Editor) FinishEditing(ctx context.Context, handle EditHandle, text string, commit bool) error {
	pending := e.edit
	if pending == nil || pending.handle != handle {
		return nil
	}
	e.edit = nil
	text = strings.TrimSpace(text)

	switch pending.state {
	case EditPlaceholder:
		e.view.placeholder = -1
		if commit && text != "" {
			added, err := e.store.AddFilter(ctx, app.AddFilterInput{
				SubscriptionID: e.view.sub.ID,
				Text:           text,
				Position:       pending.filter.Position,
			})
			if err != nil {
				e.restoreSelection(ctx, pending.row)
				return fmt.Errorf("add filter: %w", err)
			}
			e.logger.Debug("filter added", "subscription", e.view.sub.ID, "filter", added.ID)
			e.selectFilter(ctx, added.ID, pending.row)
			return nil
		}
		e.restoreSelection(ctx, pending.row)
		return nil
	case EditExisting:
		if !commit {
			return nil
		}
		if text == "" {
			idx, err := e.storeIndex(ctx, pending.filter.ID)
			if err != nil {
				return fmt.Errorf("remove filter: %w", err)
			}
			if err := e.store.RemoveFilter(ctx, pending.filter.ID, e.view.sub.ID, idx); err != nil {
				return fmt.Errorf("remove filter: %w", err)
			}
			e.logger.Debug("filter removed by blank edit", "filter", pending.filter.ID)
			e.restoreSelection(ctx, pending.row)
			return nil
		}
		if text == pending.filter.Text {
			return nil
		}
		if _, err := e.store.UpdateFilterText(ctx, pending.filter.ID, text); err != nil {
			return fmt.Errorf("update filter: %w", err)
		}
		e.logger.Debug("filter updated", "filter", pending.filter.ID)
		e.selectFilter(ctx, pending.filter.ID, pending.row)
		return nil
	}
	return nil
}

// restoreSelection selects row clamped to the displayed rows.
func (e *Editor) restoreSelection(ctx context.Context, row int) {
	n, err := e.view.Len(ctx)
	if err != nil || n == 0 {
		e.selection.Clear()
		return
	}
	e.selection.Select(clamp(row, 0, n-1))
}

// selectFilter selects the displayed row of filterID, or fallback when it is not shown.
func (e *Editor) selectFilter(ctx context.Context, filterID string, fallback int) {
	entries, err := e.Entries(ctx)
	if err == nil {
		for _, entry := range entries {
			if !entry.Placeholder && entry.Filter.ID == filterID {
				e.selection.Select(entry.Row)
				return
			}
		}
	}
	e.restoreSelection(ctx, fallback)
}

// storeIndex re-reads the filter's position inside the shown subscription.
func (e *Editor) storeIndex(ctx context.Context, filterID string) (int, error) {
	filters, err := e.store.ListFilters(ctx, e.view.sub.ID)
	if err != nil {
		return 0, err
	}
	for idx, f := range filters {
		if f.ID == filterID {
			return idx, nil
		}
	}
	return 0, app.ErrNotFound
}
