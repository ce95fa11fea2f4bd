package editor

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/evanschultz/filterdeck/internal/domain"
)

// Column identifies one displayed filter attribute.
type Column string

// Column values.
const (
	ColumnFilter   Column = "filter"
	ColumnSlow     Column = "slow"
	ColumnEnabled  Column = "enabled"
	ColumnHitCount Column = "hitcount"
	ColumnLastHit  Column = "lasthit"
)

// Columns lists every column in display order.
var Columns = []Column{ColumnFilter, ColumnSlow, ColumnEnabled, ColumnHitCount, ColumnLastHit}

// ParseColumn resolves a column name.
func ParseColumn(raw string) (Column, error) {
	col := Column(strings.TrimSpace(strings.ToLower(raw)))
	if slices.Contains(Columns, col) {
		return col, nil
	}
	return "", fmt.Errorf("unknown column %q", raw)
}

// SortDirection describes how a sorted view orders its rows.
type SortDirection string

// SortDirection values.
const (
	SortNatural    SortDirection = "natural"
	SortAscending  SortDirection = "ascending"
	SortDescending SortDirection = "descending"
)

// ParseSortDirection resolves a direction name; empty means natural.
func ParseSortDirection(raw string) (SortDirection, error) {
	switch dir := SortDirection(strings.TrimSpace(strings.ToLower(raw))); dir {
	case "", SortNatural:
		return SortNatural, nil
	case SortAscending, SortDescending:
		return dir, nil
	default:
		return "", fmt.Errorf("unknown sort direction %q", raw)
	}
}

// Entry is one displayed row.
// Row is the display position; Index is the filter's position inside its subscription.
// Both are equal whenever the view is unsorted and no placeholder is shown.
type Entry struct {
	Filter      domain.Filter
	Row         int
	Index       int
	Placeholder bool
}

// View presents the filters of one subscription in display order.
type View struct {
	store       Store
	sub         domain.Subscription
	sortColumn  Column
	direction   SortDirection
	placeholder int
}

// newView constructs an unsorted view without a placeholder.
func newView(store Store) *View {
	return &View{store: store, direction: SortNatural, placeholder: -1}
}

// Subscription returns the subscription currently shown.
func (v *View) Subscription() domain.Subscription {
	return v.sub
}

// Editable reports whether the shown subscription accepts structural edits.
func (v *View) Editable() bool {
	return v.sub.ID != "" && v.sub.Editable()
}

// IsSorted reports whether a sort key is set.
func (v *View) IsSorted() bool {
	return v.sortColumn != ""
}

// SortColumn returns the sort key, or "" when unsorted.
func (v *View) SortColumn() Column {
	return v.sortColumn
}

// Direction returns the sort direction.
func (v *View) Direction() SortDirection {
	return v.direction
}

// SortBy sorts the view by col; the natural direction clears the sort.
func (v *View) SortBy(col Column, dir SortDirection) error {
	if _, err := ParseColumn(string(col)); err != nil {
		return err
	}
	if _, err := ParseSortDirection(string(dir)); err != nil {
		return err
	}
	if dir == SortNatural {
		v.ClearSort()
		return nil
	}
	v.sortColumn = col
	v.direction = dir
	return nil
}

// SetSortOrder changes the direction, sorting by filter text when the view is unsorted.
func (v *View) SetSortOrder(dir SortDirection) error {
	col := v.sortColumn
	if col == "" {
		col = ColumnFilter
	}
	return v.SortBy(col, dir)
}

// ClearSort restores the stored order.
func (v *View) ClearSort() {
	v.sortColumn = ""
	v.direction = SortNatural
}

// Entries reads the subscription's filters and returns them in display order.
func (v *View) Entries(ctx context.Context) ([]Entry, error) {
	if v.sub.ID == "" {
		return nil, nil
	}
	filters, err := v.store.ListFilters(ctx, v.sub.ID)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(filters)+1)
	for idx, f := range filters {
		entries = append(entries, Entry{Filter: f, Index: idx})
	}
	if v.IsSorted() {
		compare := compareBy(v.sortColumn)
		slices.SortStableFunc(entries, func(a, b Entry) int {
			if v.direction == SortDescending {
				return compare(b.Filter, a.Filter)
			}
			return compare(a.Filter, b.Filter)
		})
	}
	if v.placeholder >= 0 {
		at := min(v.placeholder, len(entries))
		entries = slices.Insert(entries, at, Entry{
			Filter:      domain.Filter{SubscriptionID: v.sub.ID, Position: at},
			Index:       at,
			Placeholder: true,
		})
	}
	for row := range entries {
		entries[row].Row = row
	}
	return entries, nil
}

// Len returns the number of displayed rows.
func (v *View) Len(ctx context.Context) (int, error) {
	entries, err := v.Entries(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// compareBy returns an ascending comparator for one column.
func compareBy(col Column) func(a, b domain.Filter) int {
	switch col {
	case ColumnSlow:
		return func(a, b domain.Filter) int { return compareBool(a.Slow(), b.Slow()) }
	case ColumnEnabled:
		return func(a, b domain.Filter) int { return compareBool(!a.Disabled, !b.Disabled) }
	case ColumnHitCount:
		return func(a, b domain.Filter) int { return cmp.Compare(a.HitCount, b.HitCount) }
	case ColumnLastHit:
		return func(a, b domain.Filter) int { return cmp.Compare(lastHitUnix(a), lastHitUnix(b)) }
	default:
		return func(a, b domain.Filter) int {
			return cmp.Compare(strings.ToLower(a.Text), strings.ToLower(b.Text))
		}
	}
}

// compareBool orders false before true.
func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

// lastHitUnix returns a sortable hit time; never-hit filters sort first.
func lastHitUnix(f domain.Filter) int64 {
	if f.LastHitAt == nil {
		return 0
	}
	return f.LastHitAt.UTC().UnixNano()
}
