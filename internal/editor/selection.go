package editor

import "github.com/debemdeboas/fundacion-cms/internal/document"

// SetCaret records where the user is about to type or insert.
func (e *Editor) SetCaret(c document.Caret) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.caret = c.Clone()
}

// SaveSelection returns a copy of the current insertion point. Callers keep
// it across asynchronous steps and hand it back to RestoreSelection or
// InsertImage.
func (e *Editor) SaveSelection() document.Caret {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.caret.Clone()
}

// RestoreSelection makes c the current insertion point when it still
// resolves inside the content, and collapses to the end otherwise.
func (e *Editor) RestoreSelection(c document.Caret) document.Caret {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.restore(c)
}

func (e *Editor) restore(c document.Caret) document.Caret {
	if e.doc.Valid(c) {
		e.caret = c.Clone()
	} else {
		e.caret = e.doc.End()
	}
	return e.caret.Clone()
}
