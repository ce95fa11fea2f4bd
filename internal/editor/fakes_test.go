package editor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/evanschultz/filterdeck/internal/app"
	"github.com/evanschultz/filterdeck/internal/domain"
)

// storeCall records one mutating store call.
type storeCall struct {
	op       string
	filterID string
	from     int
	to       int
}

// String renders the call compactly for failure messages.
func (c storeCall) String() string {
	return fmt.Sprintf("%s(%s,%d,%d)", c.op, c.filterID, c.from, c.to)
}

// fakeStore keeps one ordered slice per subscription.
type fakeStore struct {
	subs    map[string]domain.Subscription
	filters map[string][]domain.Filter
	calls   []storeCall
	failOp  string
}

// newFakeStore constructs a store holding one user subscription with the given filter texts as ids.
func newFakeStore(texts ...string) *fakeStore {
	s := &fakeStore{
		subs:    map[string]domain.Subscription{},
		filters: map[string][]domain.Filter{},
	}
	s.subs["sub-1"] = domain.Subscription{ID: "sub-1", Title: "My filters", Kind: domain.SubscriptionKindUser}
	for _, text := range texts {
		s.filters["sub-1"] = append(s.filters["sub-1"], domain.Filter{ID: text, SubscriptionID: "sub-1", Text: text})
	}
	return s
}

// order returns the filter ids of a subscription in stored order.
func (s *fakeStore) order(subID string) string {
	ids := make([]string, 0, len(s.filters[subID]))
	for _, f := range s.filters[subID] {
		ids = append(ids, f.ID)
	}
	return strings.Join(ids, ",")
}

// mutations returns the recorded calls of one kind.
func (s *fakeStore) mutations(op string) []storeCall {
	out := []storeCall{}
	for _, c := range s.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

// GetSubscription returns a subscription.
func (s *fakeStore) GetSubscription(_ context.Context, id string) (domain.Subscription, error) {
	sub, ok := s.subs[id]
	if !ok {
		return domain.Subscription{}, app.ErrNotFound
	}
	return sub, nil
}

// ListFilters returns a copy of the stored filters.
func (s *fakeStore) ListFilters(_ context.Context, subID string) ([]domain.Filter, error) {
	if s.failOp == "list" {
		return nil, errors.New("list failed")
	}
	return slices.Clone(s.filters[subID]), nil
}

// AddFilter inserts a filter at its position.
func (s *fakeStore) AddFilter(_ context.Context, in app.AddFilterInput) (domain.Filter, error) {
	s.calls = append(s.calls, storeCall{op: "add", filterID: in.Text, to: in.Position})
	if s.failOp == "add" {
		return domain.Filter{}, errors.New("add failed")
	}
	list := s.filters[in.SubscriptionID]
	pos := in.Position
	if pos < 0 || pos > len(list) {
		pos = len(list)
	}
	f := domain.Filter{ID: in.Text, SubscriptionID: in.SubscriptionID, Text: in.Text, Disabled: in.Disabled, Position: pos}
	s.filters[in.SubscriptionID] = slices.Insert(list, pos, f)
	return f, nil
}

// UpdateFilterText replaces a filter's text.
func (s *fakeStore) UpdateFilterText(_ context.Context, id, text string) (domain.Filter, error) {
	s.calls = append(s.calls, storeCall{op: "update", filterID: id})
	for subID, list := range s.filters {
		for idx := range list {
			if list[idx].ID == id {
				s.filters[subID][idx].Text = text
				return s.filters[subID][idx], nil
			}
		}
	}
	return domain.Filter{}, app.ErrNotFound
}

// SetFilterDisabled sets a filter's disabled flag.
func (s *fakeStore) SetFilterDisabled(_ context.Context, id string, disabled bool) (domain.Filter, error) {
	s.calls = append(s.calls, storeCall{op: "toggle", filterID: id})
	if s.failOp == "toggle" {
		return domain.Filter{}, errors.New("toggle failed")
	}
	for subID, list := range s.filters {
		for idx := range list {
			if list[idx].ID == id {
				s.filters[subID][idx].Disabled = disabled
				return s.filters[subID][idx], nil
			}
		}
	}
	return domain.Filter{}, app.ErrNotFound
}

// MoveFilter moves a filter after checking its claimed index.
func (s *fakeStore) MoveFilter(_ context.Context, id, subID string, from, to int) error {
	s.calls = append(s.calls, storeCall{op: "move", filterID: id, from: from, to: to})
	if s.failOp == "move" {
		return errors.New("move failed")
	}
	list := s.filters[subID]
	if from < 0 || from >= len(list) || list[from].ID != id {
		return app.ErrIndexMismatch
	}
	f := list[from]
	list = slices.Delete(list, from, from+1)
	s.filters[subID] = slices.Insert(list, to, f)
	return nil
}

// RemoveFilter removes a filter after checking its claimed index.
func (s *fakeStore) RemoveFilter(_ context.Context, id, subID string, index int) error {
	s.calls = append(s.calls, storeCall{op: "remove", filterID: id, from: index})
	list := s.filters[subID]
	if index < 0 || index >= len(list) || list[index].ID != id {
		return app.ErrIndexMismatch
	}
	s.filters[subID] = slices.Delete(list, index, index+1)
	return nil
}

// fakeSurface records surface calls.
type fakeSurface struct {
	batches int
	open    int
	edits   []EditHandle
	rows    []int
}

// BeginUpdateBatch opens a batch.
func (s *fakeSurface) BeginUpdateBatch() {
	s.open++
}

// EndUpdateBatch closes a batch.
func (s *fakeSurface) EndUpdateBatch() {
	s.open--
	s.batches++
}

// StartInlineEdit records an inline edit.
func (s *fakeSurface) StartInlineEdit(handle EditHandle, row int, _ Column) {
	s.edits = append(s.edits, handle)
	s.rows = append(s.rows, row)
}

// lastHandle returns the most recent edit handle.
func (s *fakeSurface) lastHandle() EditHandle {
	if len(s.edits) == 0 {
		return 0
	}
	return s.edits[len(s.edits)-1]
}

// fakeConfirmer answers with a fixed value, optionally deferring the answer.
type fakeConfirmer struct {
	answer   bool
	deferred bool
	asked    []string
	pending  func(bool) error
}

// Confirm records the question and resumes.
func (c *fakeConfirmer) Confirm(message string, resume func(bool) error) error {
	c.asked = append(c.asked, message)
	if c.deferred {
		c.pending = resume
		return nil
	}
	return resume(c.answer)
}

// newTestEditor opens sub-1 of a fake store holding texts.
func newTestEditor(t *testing.T, texts ...string) (*Editor, *fakeStore, *fakeSurface, *fakeConfirmer) {
	t.Helper()
	store := newFakeStore(texts...)
	surface := &fakeSurface{}
	confirmer := &fakeConfirmer{answer: true}
	ed, err := New(Options{Store: store, Surface: surface, Confirmer: confirmer})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := ed.Open(context.Background(), "sub-1"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return ed, store, surface, confirmer
}
