package editor

import "github.com/debemdeboas/fundacion-cms/internal/document"

// DragStart marks figure id as the one being dragged.
func (e *Editor) DragStart(id FigureID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	fig, err := e.figure(id)
	if err != nil {
		return err
	}
	if prev, ok := e.nodes[e.dragging]; ok {
		document.RemoveClass(prev, document.ClassDragging)
	}
	document.AddClass(fig, document.ClassDragging)
	e.dragging = id
	return nil
}

// DragOver moves the dragged figure before target when pointerY is in the
// upper half of rect, and after it otherwise.
func (e *Editor) DragOver(target FigureID, pointerY float64, rect Rect) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dragging == "" {
		return false, ErrNotDragging
	}
	if target == e.dragging {
		return false, nil
	}

	src, err := e.figure(e.dragging)
	if err != nil {
		e.dragging = ""
		return false, err
	}
	dst, err := e.figure(target)
	if err != nil {
		return false, err
	}

	document.Detach(src)
	if pointerY < rect.Top+rect.Height/2 {
		dst.Parent.InsertBefore(src, dst)
	} else {
		dst.Parent.InsertBefore(src, dst.NextSibling)
	}
	return true, nil
}

// DragEnd clears the drag marker and emits the new order.
func (e *Editor) DragEnd() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dragging == "" {
		return ErrNotDragging
	}
	if fig, ok := e.nodes[e.dragging]; ok {
		document.RemoveClass(fig, document.ClassDragging)
	}
	e.dragging = ""
	e.emit()
	return nil
}
