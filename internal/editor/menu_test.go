package editor

import "testing"

// TestToggleColumnKeepsOneVisible verifies behavior for the covered scenario.
func TestToggleColumnKeepsOneVisible(t *testing.T) {
	store := newFakeStore()
	ed, err := New(Options{Store: store, Hidden: []Column{ColumnSlow, ColumnEnabled, ColumnHitCount}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := ed.ToggleColumn(ColumnLastHit); err != nil {
		t.Fatalf("ToggleColumn() error = %v", err)
	}
	if err := ed.ToggleColumn(ColumnFilter); err == nil {
		t.Fatal("expected last visible column to stay visible")
	}
	if got := ed.VisibleColumns(); len(got) != 1 || got[0] != ColumnFilter {
		t.Fatalf("unexpected visible columns %v", got)
	}
	if err := ed.ToggleColumn(Column("size")); err == nil {
		t.Fatal("expected unknown column error")
	}
}

// TestColumnMenuMirrorsState verifies behavior for the covered scenario.
func TestColumnMenuMirrorsState(t *testing.T) {
	ed, _, _, _ := newTestEditor(t, "A")
	menu := ed.ColumnMenu()
	if !menu.Unsorted || menu.Direction != SortNatural || len(menu.Columns) != len(Columns) {
		t.Fatalf("unexpected default menu %#v", menu)
	}

	if err := ed.View().SortBy(ColumnHitCount, SortDescending); err != nil {
		t.Fatalf("SortBy() error = %v", err)
	}
	if err := ed.ToggleColumn(ColumnSlow); err != nil {
		t.Fatalf("ToggleColumn() error = %v", err)
	}
	menu = ed.ColumnMenu()
	if menu.Unsorted || menu.Direction != SortDescending {
		t.Fatalf("expected sorted descending menu, got %#v", menu)
	}
	for _, item := range menu.Columns {
		if item.Sorted != (item.Column == ColumnHitCount) {
			t.Fatalf("unexpected sort mark on %s", item.Column)
		}
		if item.Visible == (item.Column == ColumnSlow) {
			t.Fatalf("unexpected visibility on %s", item.Column)
		}
	}
}
