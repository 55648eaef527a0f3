package draft

import (
	"fmt"
	"sync"
	"time"
)

type MemoryRepository struct {
	drafts sync.Map
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// CreateDraft returns the draft of id, creating an empty one if needed.
func (m *MemoryRepository) CreateDraft(id DraftID) (*Draft, error) {
	draft, _ := m.drafts.LoadOrStore(id, &Draft{
		ID:        id,
		Content:   []byte{},
		UpdatedAt: time.Now().UTC(),
	})
	return copyDraft(draft.(*Draft)), nil
}

// SaveDraft replaces the stored draft.
func (m *MemoryRepository) SaveDraft(id DraftID, content []byte) error {
	if _, ok := m.drafts.Load(id); !ok && len(content) == 0 {
		return nil
	}

	m.drafts.Store(id, &Draft{
		ID:          id,
		Content:     append([]byte(nil), content...),
		Initialized: len(content) > 0,
		UpdatedAt:   time.Now().UTC(),
	})
	return nil
}

func (m *MemoryRepository) GetDraft(id DraftID) (*Draft, error) {
	if draft, ok := m.drafts.Load(id); ok {
		return copyDraft(draft.(*Draft)), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
}

func (m *MemoryRepository) DeleteDraft(id DraftID) error {
	m.drafts.Delete(id)
	return nil
}

func copyDraft(d *Draft) *Draft {
	c := *d
	c.Content = append([]byte(nil), d.Content...)
	return &c
}
