package session

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/debemdeboas/fundacion-cms/internal/document"
	"github.com/debemdeboas/fundacion-cms/internal/editor"
)

// Operations accepted by Execute.
const (
	OpCaret       = "caret"
	OpSelect      = "select"
	OpDeselect    = "deselect"
	OpAlt         = "alt"
	OpWidth       = "width"
	OpWidthPct    = "width-percent"
	OpAlign       = "align"
	OpToggleAlign = "toggle-align"
	OpFeatured    = "featured"
	OpKey         = "key"
	OpResizeBegin = "resize-begin"
	OpResizeMove  = "resize-move"
	OpResizeEnd   = "resize-end"
	OpDragStart   = "drag-start"
	OpDragOver    = "drag-over"
	OpDragEnd     = "drag-end"
)

// Command is one editing gesture sent by a client.
type Command struct {
	Op string `json:"op" validate:"required,oneof=caret select deselect alt width width-percent align toggle-align featured key resize-begin resize-move resize-end drag-start drag-over drag-end"`

	Figure editor.FigureID `json:"figure,omitempty" validate:"required_if=Op select,required_if=Op resize-begin,required_if=Op drag-start,required_if=Op drag-over"`
	Caret  *document.Caret `json:"caret,omitempty" validate:"required_if=Op caret,required_if=Op key"`

	Alt     *string       `json:"alt,omitempty" validate:"required_if=Op alt"`
	Width   int           `json:"width,omitempty" validate:"required_if=Op width,gte=0"`
	Percent int           `json:"percent,omitempty" validate:"omitempty,oneof=25 50 75 100"`
	Align   string        `json:"align,omitempty" validate:"omitempty,oneof=none left right center"`
	Key     editor.Key    `json:"key,omitempty" validate:"required_if=Op key"`
	Point   *editor.Point `json:"point,omitempty" validate:"required_if=Op resize-begin"`
	Rect    *editor.Rect  `json:"rect,omitempty" validate:"required_if=Op resize-begin,required_if=Op drag-over"`
	X       float64       `json:"x,omitempty"`
	Y       float64       `json:"y,omitempty"`
}

// Result reports the outcome of a command together with the live content.
type Result struct {
	Handled  bool                  `json:"handled"`
	Controls *editor.ImageControls `json:"controls,omitempty"`
	Width    int                   `json:"width,omitempty"`
	Align    *editor.Align         `json:"align,omitempty"`
	Featured *editor.FeaturedImage `json:"featured,omitempty"`
	Caret    *document.Caret       `json:"caret,omitempty"`
	HTML     string                `json:"html"`
	Figures  []editor.FigureInfo   `json:"figures"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrInvalidCommand wraps validation failures of a Command.
var ErrInvalidCommand = errors.New("invalid command")

func (c *Command) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	return nil
}

// Execute validates cmd and applies it to the session's editor.
func (s *Session) Execute(cmd Command) (*Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	s.touch()

	ed := s.Editor
	res := &Result{Handled: true}

	switch cmd.Op {
	case OpCaret:
		c := ed.RestoreSelection(*cmd.Caret)
		res.Caret = &c
	case OpSelect:
		controls, err := ed.Select(cmd.Figure)
		if err != nil {
			return nil, err
		}
		res.Controls = &controls
	case OpDeselect:
		ed.Deselect()
	case OpAlt:
		if err := ed.SetAlt(*cmd.Alt); err != nil {
			return nil, err
		}
	case OpWidth:
		w, err := ed.SetWidth(cmd.Width)
		if err != nil {
			return nil, err
		}
		res.Width = w
	case OpWidthPct:
		w, err := ed.SetWidthPercent(cmd.Percent)
		if err != nil {
			return nil, err
		}
		res.Width = w
	case OpAlign:
		a := editor.Align(cmd.Align)
		if cmd.Align == "none" {
			a = editor.AlignNone
		}
		if err := ed.SetAlign(a); err != nil {
			return nil, err
		}
		res.Align = &a
	case OpToggleAlign:
		a, err := ed.ToggleAlign()
		if err != nil {
			return nil, err
		}
		res.Align = &a
	case OpFeatured:
		f, err := ed.MarkFeatured()
		if err != nil {
			return nil, err
		}
		res.Featured = &f
	case OpKey:
		handled, err := ed.HandleKey(*cmd.Caret, cmd.Key)
		if err != nil {
			return nil, err
		}
		res.Handled = handled
		c := ed.SaveSelection()
		res.Caret = &c
	case OpResizeBegin:
		res.Handled = ed.BeginResize(cmd.Figure, *cmd.Point, *cmd.Rect)
	case OpResizeMove:
		w, err := ed.MoveResize(cmd.X)
		if err != nil {
			return nil, err
		}
		res.Width = w
	case OpResizeEnd:
		res.Handled = ed.EndResize()
	case OpDragStart:
		if err := ed.DragStart(cmd.Figure); err != nil {
			return nil, err
		}
	case OpDragOver:
		moved, err := ed.DragOver(cmd.Figure, cmd.Y, *cmd.Rect)
		if err != nil {
			return nil, err
		}
		res.Handled = moved
	case OpDragEnd:
		if err := ed.DragEnd(); err != nil {
			return nil, err
		}
	}

	if controls, ok := ed.Selected(); ok && res.Controls == nil {
		res.Controls = &controls
	}
	res.HTML = ed.HTML()
	res.Figures = ed.Figures()
	return res, nil
}
