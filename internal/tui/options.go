package tui

import (
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/evanschultz/filterdeck/internal/editor"
)

// ClipboardFunc writes text to the system clipboard.
type ClipboardFunc func(string) error

// SortConfig holds the initial sort state.
type SortConfig struct {
	Column    editor.Column
	Direction editor.SortDirection
}

type Option func(*Model)

// WithAccelerator sets the modifier used for move shortcuts.
func WithAccelerator(accel editor.Modifier) Option {
	return func(m *Model) {
		if accel != 0 {
			m.accelerator = accel
		}
	}
}

// WithHiddenColumns hides columns at startup.
func WithHiddenColumns(cols ...editor.Column) Option {
	return func(m *Model) {
		m.hiddenColumns = append(m.hiddenColumns[:0], cols...)
	}
}

func WithSort(cfg SortConfig) Option {
	return func(m *Model) {
		m.initialSort = cfg
	}
}

func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keyConfig = cfg
	}
}

// WithBulkDeleteConfirm toggles the confirmation modal for multi-row deletes.
func WithBulkDeleteConfirm(enabled bool) Option {
	return func(m *Model) {
		m.bridge.confirmBulk = enabled
	}
}

func WithClipboard(fn ClipboardFunc) Option {
	return func(m *Model) {
		if fn != nil {
			m.copyText = fn
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// defaultClipboard writes through the system clipboard.
func defaultClipboard(text string) error {
	return clipboard.WriteAll(text)
}
