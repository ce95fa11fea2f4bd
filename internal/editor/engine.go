package editor

import (
	"context"
	"fmt"
	"slices"
)

// canReorder reports whether manual reordering is currently allowed.
func (e *Editor) canReorder() bool {
	return e.view.Editable() && e.edit == nil && !e.view.IsSorted()
}

// MoveUp moves the selected filters one step up, closing gaps between them.
func (e *Editor) MoveUp(ctx context.Context) error {
	if !e.canReorder() || e.selection.IsEmpty() {
		return nil
	}
	entries, err := e.Entries(ctx)
	if err != nil {
		return fmt.Errorf("move up: %w", err)
	}
	items := e.selection.SelectedEntries(entries)
	if len(entries) == 0 || len(items) == 0 {
		return nil
	}

	target := items[0].Index - 1
	if target < 0 {
		return nil
	}
	end := e.batch(len(items))
	defer end()
	for _, item := range items {
		if err := e.moveEntry(ctx, item, target); err != nil {
			return fmt.Errorf("move up: %w", err)
		}
		target++
	}
	e.selection.RangedSelect(target-len(items), target-1)
	return nil
}

// MoveDown moves the selected filters one step down, closing gaps between them.
func (e *Editor) MoveDown(ctx context.Context) error {
	if !e.canReorder() || e.selection.IsEmpty() {
		return nil
	}
	entries, err := e.Entries(ctx)
	if err != nil {
		return fmt.Errorf("move down: %w", err)
	}
	items := e.selection.SelectedEntries(entries)
	if len(entries) == 0 || len(items) == 0 {
		return nil
	}

	target := items[len(items)-1].Index + 1
	if target >= len(entries) {
		return nil
	}
	end := e.batch(len(items))
	defer end()
	for _, item := range slices.Backward(items) {
		if err := e.moveEntry(ctx, item, target); err != nil {
			return fmt.Errorf("move down: %w", err)
		}
		target--
	}
	e.selection.RangedSelect(target+1, target+len(items))
	return nil
}

// batch opens a surface update batch for compound operations and returns its closer.
func (e *Editor) batch(n int) func() {
	if n < 2 {
		return func() {}
	}
	e.surface.BeginUpdateBatch()
	return e.surface.EndUpdateBatch
}

// moveEntry moves one filter to target using its current store position.
func (e *Editor) moveEntry(ctx context.Context, item Entry, target int) error {
	from, err := e.storeIndex(ctx, item.Filter.ID)
	if err != nil {
		return err
	}
	if err := e.store.MoveFilter(ctx, item.Filter.ID, e.view.sub.ID, from, target); err != nil {
		return err
	}
	e.logger.Debug("filter moved", "filter", item.Filter.ID, "from", from, "to", target)
	return nil
}

// DeleteSelected removes the selected filters, asking first when more than one is selected.
func (e *Editor) DeleteSelected(ctx context.Context) error {
	if !e.view.Editable() || e.edit != nil {
		return nil
	}
	entries, err := e.Entries(ctx)
	if err != nil {
		return fmt.Errorf("delete filters: %w", err)
	}
	items := e.selection.SelectedEntries(entries)
	if len(items) == 0 {
		return nil
	}
	anchor := e.selection.Current()
	slices.SortFunc(items, func(a, b Entry) int { return b.Index - a.Index })

	if len(items) < 2 {
		return e.removeEntries(ctx, items, anchor)
	}
	message := fmt.Sprintf("Remove %d selected filters?", len(items))
	return e.confirmer.Confirm(message, func(ok bool) error {
		if !ok {
			e.logger.Debug("bulk delete declined", "count", len(items))
			return nil
		}
		return e.removeEntries(ctx, items, anchor)
	})
}

// removeEntries re-reads the store positions of items, removes them from the bottom up, and reselects anchor.
// Items that left the list while a confirmation was pending are skipped.
func (e *Editor) removeEntries(ctx context.Context, items []Entry, anchor int) error {
	defer e.restoreSelection(ctx, anchor)
	filters, err := e.store.ListFilters(ctx, e.view.sub.ID)
	if err != nil {
		return fmt.Errorf("delete filters: %w", err)
	}
	current := make(map[string]int, len(filters))
	for idx, f := range filters {
		current[f.ID] = idx
	}
	fresh := make([]Entry, 0, len(items))
	for _, item := range items {
		idx, ok := current[item.Filter.ID]
		if !ok {
			continue
		}
		item.Index = idx
		fresh = append(fresh, item)
	}
	slices.SortFunc(fresh, func(a, b Entry) int { return b.Index - a.Index })

	end := e.batch(len(fresh))
	defer end()
	for _, item := range fresh {
		if err := e.store.RemoveFilter(ctx, item.Filter.ID, e.view.sub.ID, item.Index); err != nil {
			return fmt.Errorf("delete filters: %w", err)
		}
		e.logger.Debug("filter removed", "filter", item.Filter.ID, "index", item.Index)
	}
	return nil
}

// ToggleDisabled flips the disabled flag of every selected active filter to the inverse of the first one.
func (e *Editor) ToggleDisabled(ctx context.Context) error {
	if e.edit != nil {
		return nil
	}
	entries, err := e.SelectedEntries(ctx)
	if err != nil {
		return fmt.Errorf("toggle filters: %w", err)
	}
	items := slices.DeleteFunc(entries, func(entry Entry) bool {
		return entry.Placeholder || !entry.Filter.Active()
	})
	if len(items) == 0 {
		return nil
	}

	disabled := !items[0].Filter.Disabled
	e.surface.BeginUpdateBatch()
	defer e.surface.EndUpdateBatch()
	for _, item := range items {
		if _, err := e.store.SetFilterDisabled(ctx, item.Filter.ID, disabled); err != nil {
			return fmt.Errorf("toggle filters: %w", err)
		}
	}
	e.logger.Debug("filters toggled", "count", len(items), "disabled", disabled)
	return nil
}

// SelectAll selects every row unless an edit is in progress.
func (e *Editor) SelectAll(ctx context.Context) error {
	if e.edit != nil {
		return nil
	}
	n, err := e.view.Len(ctx)
	if err != nil {
		return fmt.Errorf("select all: %w", err)
	}
	e.selection.SelectAll(n)
	return nil
}
