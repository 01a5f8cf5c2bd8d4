package source

import (
	"context"
	"fmt"
	"io"

	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/logging"
	"github.com/xtxerr/spark/internal/storage/eventlog"
)

// EventLogSource reads events from an event log directory.
type EventLogSource struct {
	Base
	dir    string
	reader *eventlog.Reader
	pos    uint64
	count  uint64
	known  bool
}

// NewEventLogSource returns a source over the segments in dir.
func NewEventLogSource(dir string) *EventLogSource {
	return &EventLogSource{
		Base: NewBase("eventlog:" + dir),
		dir:  dir,
	}
}

func (s *EventLogSource) Open(ctx context.Context) error {
	count, err := eventlog.Count(s.dir)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", s.dir, errors.ErrSourceOpen, err)
	}
	s.count, s.known = count, true

	if err := s.reopen(); err != nil {
		return err
	}
	logging.WithContext(ctx).Info("event source opened", "component", "source", "dir", s.dir, "events", count)
	return nil
}

func (s *EventLogSource) reopen() error {
	if s.reader != nil {
		s.reader.Close()
	}
	r, err := eventlog.NewReader(s.dir)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", s.dir, errors.ErrSourceOpen, err)
	}
	s.reader = r
	s.pos = 0
	return nil
}

func (s *EventLogSource) Close() error {
	if s.reader == nil {
		return nil
	}
	err := s.reader.Close()
	s.reader = nil
	return err
}

// SetCurrentEvent positions the cursor at event index i. Moving backwards
// rereads the log from the start.
func (s *EventLogSource) SetCurrentEvent(i uint64) error {
	if s.reader == nil {
		return errors.ErrSourceNotOpen
	}
	if i < s.pos {
		if err := s.reopen(); err != nil {
			return err
		}
	}
	for s.pos < i {
		if _, err := s.reader.Next(); err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		s.pos++
	}
	s.current = i
	return nil
}

func (s *EventLogSource) ReadCurrentEvent(ctx context.Context) (bool, error) {
	if s.reader == nil {
		return false, errors.ErrSourceNotOpen
	}
	if s.pos != s.current {
		if err := s.SetCurrentEvent(s.current); err != nil {
			return false, err
		}
	}

	e, err := s.reader.Next()
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.pos++
	s.current++

	if err := s.Dispatch(logging.ContextWithEvent(ctx, e.Number), &e); err != nil {
		return false, err
	}
	return true, nil
}

func (s *EventLogSource) EventCount() (uint64, bool) { return s.count, s.known }
