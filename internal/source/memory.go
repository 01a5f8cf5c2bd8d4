package source

import (
	"context"

	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/storage/eventlog"
)

// MemorySource serves events held in memory.
type MemorySource struct {
	Base
	events []eventlog.Event
	open   bool
}

// NewMemorySource returns a source over events.
func NewMemorySource(name string, events ...eventlog.Event) *MemorySource {
	return &MemorySource{Base: NewBase(name), events: events}
}

// Append adds events after the ones already held.
func (s *MemorySource) Append(events ...eventlog.Event) {
	s.events = append(s.events, events...)
}

func (s *MemorySource) Open(context.Context) error {
	s.open = true
	s.current = 0
	return nil
}

func (s *MemorySource) Close() error {
	s.open = false
	return nil
}

func (s *MemorySource) SetCurrentEvent(i uint64) error {
	if !s.open {
		return errors.ErrSourceNotOpen
	}
	s.current = i
	return nil
}

func (s *MemorySource) ReadCurrentEvent(ctx context.Context) (bool, error) {
	if !s.open {
		return false, errors.ErrSourceNotOpen
	}
	if s.current >= uint64(len(s.events)) {
		return false, nil
	}
	e := &s.events[s.current]
	s.current++
	return true, s.Dispatch(ctx, e)
}

func (s *MemorySource) EventCount() (uint64, bool) { return uint64(len(s.events)), true }
