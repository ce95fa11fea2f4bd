package editor

import "fmt"

// ColumnItem is one column entry of the column menu.
type ColumnItem struct {
	Column  Column
	Visible bool
	Sorted  bool
}

// ColumnMenu mirrors column visibility and sort state.
type ColumnMenu struct {
	Columns   []ColumnItem
	Unsorted  bool
	Direction SortDirection
}

// ColumnVisible reports whether col is shown.
func (e *Editor) ColumnVisible(col Column) bool {
	return e.visible[col]
}

// VisibleColumns returns the shown columns in display order.
func (e *Editor) VisibleColumns() []Column {
	out := make([]Column, 0, len(Columns))
	for _, col := range Columns {
		if e.visible[col] {
			out = append(out, col)
		}
	}
	return out
}

// ToggleColumn shows or hides col; the last visible column cannot be hidden.
func (e *Editor) ToggleColumn(col Column) error {
	if _, err := ParseColumn(string(col)); err != nil {
		return err
	}
	if e.visible[col] && len(e.VisibleColumns()) == 1 {
		return fmt.Errorf("column %q is the last visible column", col)
	}
	e.visible[col] = !e.visible[col]
	return nil
}

// ColumnMenu returns the current column menu state.
func (e *Editor) ColumnMenu() ColumnMenu {
	menu := ColumnMenu{
		Columns:   make([]ColumnItem, 0, len(Columns)),
		Unsorted:  !e.view.IsSorted(),
		Direction: e.view.Direction(),
	}
	for _, col := range Columns {
		menu.Columns = append(menu.Columns, ColumnItem{
			Column:  col,
			Visible: e.visible[col],
			Sorted:  e.view.SortColumn() == col,
		})
	}
	return menu
}
