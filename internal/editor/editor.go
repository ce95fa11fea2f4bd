// Package editor implements the selection-aware editing commands of the filter list view.
package editor

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/filterdeck/internal/app"
	"github.com/evanschultz/filterdeck/internal/domain"
)

// Store persists filters; positions are dense per subscription.
type Store interface {
	GetSubscription(context.Context, string) (domain.Subscription, error)
	ListFilters(context.Context, string) ([]domain.Filter, error)
	AddFilter(context.Context, app.AddFilterInput) (domain.Filter, error)
	UpdateFilterText(context.Context, string, string) (domain.Filter, error)
	SetFilterDisabled(context.Context, string, bool) (domain.Filter, error)
	MoveFilter(ctx context.Context, filterID, subscriptionID string, from, to int) error
	RemoveFilter(ctx context.Context, filterID, subscriptionID string, index int) error
}

// Surface is the rendering side of the editor.
type Surface interface {
	BeginUpdateBatch()
	EndUpdateBatch()
	StartInlineEdit(handle EditHandle, row int, col Column)
}

// Confirmer asks the user a yes/no question and resumes with the answer.
// Resume may run before Confirm returns or later, once the user answers.
type Confirmer interface {
	Confirm(message string, resume func(bool) error) error
}

// Options configures an Editor.
type Options struct {
	Store       Store
	Surface     Surface
	Confirmer   Confirmer
	Logger      *log.Logger
	Accelerator Modifier
	Hidden      []Column
}

// Editor coordinates the view, selection, edit lifecycle and mutation commands.
type Editor struct {
	store       Store
	surface     Surface
	confirmer   Confirmer
	logger      *log.Logger
	accelerator Modifier

	view      *View
	selection *Selection
	visible   map[Column]bool
	edit      *pendingEdit
	handles   EditHandle
}

// New constructs an editor.
func New(opts Options) (*Editor, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("editor store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	surface := opts.Surface
	if surface == nil {
		surface = noopSurface{}
	}
	confirmer := opts.Confirmer
	if confirmer == nil {
		confirmer = AlwaysConfirm{}
	}
	accel := opts.Accelerator
	if accel == 0 {
		accel = ModCtrl
	}
	visible := make(map[Column]bool, len(Columns))
	for _, col := range Columns {
		visible[col] = true
	}
	for _, col := range opts.Hidden {
		visible[col] = false
	}
	return &Editor{
		store:       opts.Store,
		surface:     surface,
		confirmer:   confirmer,
		logger:      logger,
		accelerator: accel,
		view:        newView(opts.Store),
		selection:   NewSelection(),
		visible:     visible,
	}, nil
}

// View returns the ordered view.
func (e *Editor) View() *View {
	return e.view
}

// Selection returns the current selection.
func (e *Editor) Selection() *Selection {
	return e.selection
}

// Accelerator returns the modifier used for move shortcuts.
func (e *Editor) Accelerator() Modifier {
	return e.accelerator
}

// Busy reports whether an inline edit is in progress.
func (e *Editor) Busy() bool {
	return e.edit != nil
}

// Open shows a subscription and resets the selection.
// A pending edit is abandoned first.
func (e *Editor) Open(ctx context.Context, subscriptionID string) error {
	if e.edit != nil {
		if err := e.FinishEditing(ctx, e.edit.handle, "", false); err != nil {
			return err
		}
	}
	sub, err := e.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("open subscription: %w", err)
	}
	e.view.sub = sub
	e.selection.Clear()
	n, err := e.view.Len(ctx)
	if err != nil {
		return fmt.Errorf("open subscription: %w", err)
	}
	if n > 0 {
		e.selection.Select(0)
	}
	return nil
}

// Entries returns the displayed rows and trims the selection to them.
func (e *Editor) Entries(ctx context.Context) ([]Entry, error) {
	entries, err := e.view.Entries(ctx)
	if err != nil {
		return nil, err
	}
	e.selection.Retain(len(entries))
	return entries, nil
}

// SelectedEntries returns the selected rows.
func (e *Editor) SelectedEntries(ctx context.Context) ([]Entry, error) {
	entries, err := e.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return e.selection.SelectedEntries(entries), nil
}

// AlwaysConfirm answers yes without asking.
type AlwaysConfirm struct{}

// Confirm resumes with true.
func (AlwaysConfirm) Confirm(_ string, resume func(bool) error) error {
	return resume(true)
}

// noopSurface ignores every surface call.
type noopSurface struct{}

func (noopSurface) BeginUpdateBatch() {}
func (noopSurface) EndUpdateBatch()   {}
func (noopSurface) StartInlineEdit(EditHandle, int, Column) {}
