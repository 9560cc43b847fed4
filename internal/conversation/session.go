package conversation

import (
	"sync"
	"time"

	"github.com/user/kernel6/internal/deletion"
	"github.com/user/kernel6/internal/types"
	"github.com/user/kernel6/internal/wizard"
)

// Mode is the flow a session is running.
type Mode int

const (
	ModeNone Mode = iota
	ModeCreating
	ModeDeleting
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeCreating:
		return "creating"
	case ModeDeleting:
		return "deleting"
	}
	return "unknown"
}

// Session is the active flow of one conversation. Draft is set only while
// Creating and Deletion only while Deleting.
type Session struct {
	Key       types.SessionKey
	Mode      Mode
	Draft     *wizard.Draft
	Deletion  *deletion.Flow
	UpdatedAt time.Time

	mu sync.Mutex
}

func (s *Session) startCreating(d *wizard.Draft) {
	s.Mode = ModeCreating
	s.Draft = d
	s.Deletion = nil
}

func (s *Session) startDeleting(f *deletion.Flow) {
	s.Mode = ModeDeleting
	s.Draft = nil
	s.Deletion = f
}

func (s *Session) reset() {
	s.Mode = ModeNone
	s.Draft = nil
	s.Deletion = nil
}
