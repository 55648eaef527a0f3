package editor

import (
	"fmt"
	"sync"
)

// ImageState is the upload lifecycle of an image.
type ImageState int

const (
	StateNone ImageState = iota
	StatePending
	StateUploaded
	StateFailed
	StateBroken
)

func (s ImageState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StatePending:
		return "pending"
	case StateUploaded:
		return "uploaded"
	case StateFailed:
		return "failed"
	case StateBroken:
		return "broken"
	}
	return fmt.Sprintf("ImageState(%d)", int(s))
}

func (s ImageState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ImageState) UnmarshalText(text []byte) error {
	for st := StateNone; st <= StateBroken; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown image state %q", text)
}

var transitions = map[ImageState][]ImageState{
	StateNone:     {StatePending},
	StatePending:  {StateUploaded, StateFailed},
	StateUploaded: {StateBroken},
}

// CanTransition reports whether the lifecycle allows moving from s to to.
func (s ImageState) CanTransition(to ImageState) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

type UploadID string

// Upload tracks one image going through the upload pipeline.
type Upload struct {
	ID UploadID

	mu     sync.Mutex
	figure FigureID
	state  ImageState
	result *UploadResult
	err    error
	done   chan struct{}
}

func newUpload(id UploadID) *Upload {
	return &Upload{ID: id, done: make(chan struct{})}
}

func (u *Upload) transition(to ImageState) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.state.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, u.state, to)
	}
	u.state = to
	return nil
}

func (u *Upload) State() ImageState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Figure returns the figure the upload targets.
func (u *Upload) Figure() FigureID {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.figure
}

func (u *Upload) setFigure(id FigureID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.figure = id
}

// Err returns the upload failure, if any.
func (u *Upload) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

func (u *Upload) Result() *UploadResult {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.result
}

func (u *Upload) finished() bool {
	select {
	case <-u.done:
		return true
	default:
		return false
	}
}

// Done is closed once the pipeline finished with the upload, load check
// included.
func (u *Upload) Done() <-chan struct{} {
	return u.done
}
