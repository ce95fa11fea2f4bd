package tui

import "github.com/evanschultz/filterdeck/internal/editor"

// inlineEdit is an edit the editor asked the surface to start.
type inlineEdit struct {
	handle editor.EditHandle
	row    int
}

// confirmAction is a pending yes/no question.
type confirmAction struct {
	Message string
	resume  func(bool) error
}

// editorBridge receives editor callbacks for the value-typed Model.
type editorBridge struct {
	depth       int
	batches     int
	edit        *inlineEdit
	confirm     *confirmAction
	confirmBulk bool
}

// BeginUpdateBatch defers row refreshes until the matching end.
func (b *editorBridge) BeginUpdateBatch() {
	b.depth++
}

// EndUpdateBatch closes one batch.
func (b *editorBridge) EndUpdateBatch() {
	if b.depth > 0 {
		b.depth--
	}
	b.batches++
}

// inBatch reports whether a batch is open.
func (b *editorBridge) inBatch() bool {
	return b.depth > 0
}

// StartInlineEdit queues an inline edit for the model to open.
func (b *editorBridge) StartInlineEdit(handle editor.EditHandle, row int, _ editor.Column) {
	b.edit = &inlineEdit{handle: handle, row: row}
}

// Confirm queues a confirmation modal, or answers yes when bulk confirmation is off.
func (b *editorBridge) Confirm(message string, resume func(bool) error) error {
	if !b.confirmBulk {
		return resume(true)
	}
	b.confirm = &confirmAction{Message: message, resume: resume}
	return nil
}

// takeEdit returns and clears the queued inline edit.
func (b *editorBridge) takeEdit() *inlineEdit {
	edit := b.edit
	b.edit = nil
	return edit
}

// takeConfirm returns and clears the queued confirmation.
func (b *editorBridge) takeConfirm() *confirmAction {
	confirm := b.confirm
	b.confirm = nil
	return confirm
}
