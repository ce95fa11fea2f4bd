package editor

import (
	"context"
	"slices"
	"testing"
	"time"
)

// entryIDs returns the filter ids of entries.
func entryIDs(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Filter.ID)
	}
	return out
}

// TestViewSortKeepsStoreIndex verifies behavior for the covered scenario.
func TestViewSortKeepsStoreIndex(t *testing.T) {
	ctx := context.Background()
	ed, _, _, _ := newTestEditor(t, "c", "A", "b")
	view := ed.View()

	if err := view.SortBy(ColumnFilter, SortAscending); err != nil {
		t.Fatalf("SortBy() error = %v", err)
	}
	entries, err := view.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if got := entryIDs(entries); !slices.Equal(got, []string{"A", "b", "c"}) {
		t.Fatalf("unexpected sorted order %v", got)
	}
	if entries[0].Index != 1 || entries[0].Row != 0 {
		t.Fatalf("unexpected row/index %#v", entries[0])
	}

	if err := view.SetSortOrder(SortDescending); err != nil {
		t.Fatalf("SetSortOrder() error = %v", err)
	}
	entries, _ = view.Entries(ctx)
	if got := entryIDs(entries); !slices.Equal(got, []string{"c", "b", "A"}) {
		t.Fatalf("unexpected descending order %v", got)
	}

	view.ClearSort()
	if view.IsSorted() || view.Direction() != SortNatural {
		t.Fatal("expected natural order after ClearSort")
	}
	entries, _ = view.Entries(ctx)
	if got := entryIDs(entries); !slices.Equal(got, []string{"c", "A", "b"}) {
		t.Fatalf("unexpected natural order %v", got)
	}
}

// TestViewSetSortOrderDefaultsToFilterColumn verifies behavior for the covered scenario.
func TestViewSetSortOrderDefaultsToFilterColumn(t *testing.T) {
	ed, _, _, _ := newTestEditor(t, "A")
	if err := ed.View().SetSortOrder(SortAscending); err != nil {
		t.Fatalf("SetSortOrder() error = %v", err)
	}
	if ed.View().SortColumn() != ColumnFilter {
		t.Fatalf("expected filter column, got %q", ed.View().SortColumn())
	}
	if err := ed.View().SetSortOrder(SortNatural); err != nil {
		t.Fatalf("SetSortOrder() error = %v", err)
	}
	if ed.View().IsSorted() {
		t.Fatal("natural order must clear the sort")
	}
	if err := ed.View().SortBy(Column("size"), SortAscending); err == nil {
		t.Fatal("expected unknown column error")
	}
}

// TestViewSortByColumns verifies behavior for the covered scenario.
func TestViewSortByColumns(t *testing.T) {
	ctx := context.Background()
	ed, store, _, _ := newTestEditor(t, "A", "B", "C")
	hit := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.filters["sub-1"][0].HitCount = 5
	store.filters["sub-1"][1].Disabled = true
	store.filters["sub-1"][2].LastHitAt = &hit

	cases := []struct {
		col  Column
		want []string
	}{
		{col: ColumnHitCount, want: []string{"B", "C", "A"}},
		{col: ColumnEnabled, want: []string{"B", "A", "C"}},
		{col: ColumnLastHit, want: []string{"A", "B", "C"}},
	}
	for _, tc := range cases {
		if err := ed.View().SortBy(tc.col, SortAscending); err != nil {
			t.Fatalf("SortBy(%s) error = %v", tc.col, err)
		}
		entries, err := ed.View().Entries(ctx)
		if err != nil {
			t.Fatalf("Entries() error = %v", err)
		}
		if got := entryIDs(entries); !slices.Equal(got, tc.want) {
			t.Fatalf("SortBy(%s) order %v, want %v", tc.col, got, tc.want)
		}
	}
}

// TestParseHelpers verifies behavior for the covered scenario.
func TestParseHelpers(t *testing.T) {
	if col, err := ParseColumn(" HitCount "); err != nil || col != ColumnHitCount {
		t.Fatalf("ParseColumn() = %q, %v", col, err)
	}
	if dir, err := ParseSortDirection(""); err != nil || dir != SortNatural {
		t.Fatalf("ParseSortDirection() = %q, %v", dir, err)
	}
	if _, err := ParseSortDirection("sideways"); err == nil {
		t.Fatal("expected invalid direction error")
	}
}
