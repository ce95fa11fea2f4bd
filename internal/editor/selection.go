package editor

import (
	"maps"
	"slices"
)

// Selection tracks the selected rows and the current row.
type Selection struct {
	rows   map[int]struct{}
	anchor int
	pivot  int
}

// NewSelection constructs an empty selection.
func NewSelection() *Selection {
	return &Selection{rows: map[int]struct{}{}, anchor: -1, pivot: -1}
}

// Current returns the current row, or -1 when none is set.
func (s *Selection) Current() int {
	return s.anchor
}

// Rows returns the selected rows in ascending order.
func (s *Selection) Rows() []int {
	return slices.Sorted(maps.Keys(s.rows))
}

// Contains reports whether row is selected.
func (s *Selection) Contains(row int) bool {
	_, ok := s.rows[row]
	return ok
}

// Count returns the number of selected rows.
func (s *Selection) Count() int {
	return len(s.rows)
}

// IsEmpty reports whether nothing is selected.
func (s *Selection) IsEmpty() bool {
	return len(s.rows) == 0
}

// SelectedEntries returns the selected entries ordered by row.
func (s *Selection) SelectedEntries(entries []Entry) []Entry {
	out := make([]Entry, 0, len(s.rows))
	for _, row := range s.Rows() {
		if row >= 0 && row < len(entries) {
			out = append(out, entries[row])
		}
	}
	return out
}

// Clear drops every selected row and the current row.
func (s *Selection) Clear() {
	clear(s.rows)
	s.anchor = -1
	s.pivot = -1
}

// Select makes row the only selected row.
func (s *Selection) Select(row int) {
	clear(s.rows)
	if row < 0 {
		s.anchor, s.pivot = -1, -1
		return
	}
	s.rows[row] = struct{}{}
	s.anchor, s.pivot = row, row
}

// SelectAll selects rows 0..n-1.
func (s *Selection) SelectAll(n int) {
	clear(s.rows)
	for row := range n {
		s.rows[row] = struct{}{}
	}
	if n == 0 {
		s.anchor, s.pivot = -1, -1
		return
	}
	if s.anchor < 0 || s.anchor >= n {
		s.anchor = 0
	}
	s.pivot = 0
}

// RangedSelect selects the inclusive range lo..hi and moves the current row to hi.
func (s *Selection) RangedSelect(lo, hi int) {
	clear(s.rows)
	for row := min(lo, hi); row <= max(lo, hi); row++ {
		if row >= 0 {
			s.rows[row] = struct{}{}
		}
	}
	s.pivot, s.anchor = lo, hi
}

// Toggle flips row's membership and makes it current.
func (s *Selection) Toggle(row int) {
	if row < 0 {
		return
	}
	if _, ok := s.rows[row]; ok {
		delete(s.rows, row)
	} else {
		s.rows[row] = struct{}{}
	}
	s.anchor, s.pivot = row, row
}

// Move shifts the current row by delta within n rows and selects only it.
func (s *Selection) Move(delta, n int) {
	if n <= 0 {
		s.Clear()
		return
	}
	row := s.anchor
	if row < 0 {
		row = 0
	} else {
		row = clamp(row+delta, 0, n-1)
	}
	s.Select(row)
}

// Extend shifts the current row by delta within n rows and selects the range from the pivot.
func (s *Selection) Extend(delta, n int) {
	if n <= 0 {
		s.Clear()
		return
	}
	if s.anchor < 0 {
		s.Select(0)
		return
	}
	pivot := s.pivot
	if pivot < 0 || pivot >= n {
		pivot = s.anchor
	}
	s.RangedSelect(pivot, clamp(s.anchor+delta, 0, n-1))
}

// Retain drops rows at or beyond n and clamps the current row.
func (s *Selection) Retain(n int) {
	for row := range s.rows {
		if row >= n {
			delete(s.rows, row)
		}
	}
	if n <= 0 {
		s.anchor, s.pivot = -1, -1
		return
	}
	if s.anchor >= n {
		s.anchor = n - 1
	}
	if s.pivot >= n {
		s.pivot = n - 1
	}
}

// clamp bounds v to lo..hi.
func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
