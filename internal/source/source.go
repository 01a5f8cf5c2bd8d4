// Package source defines event data sources and dispatches their subevents
// to unpackers.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/xtxerr/spark/internal/assert"
	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/logging"
	"github.com/xtxerr/spark/internal/storage/eventlog"
	"github.com/xtxerr/spark/internal/tasks"
)

// DataSource delivers events one at a time.
type DataSource interface {
	Name() string

	Open(ctx context.Context) error
	Close() error

	// ReadCurrentEvent reads the event at the cursor, dispatches it and
	// advances. It returns false once the source is exhausted.
	ReadCurrentEvent(ctx context.Context) (bool, error)

	// SetCurrentEvent moves the cursor to the event with index i.
	SetCurrentEvent(i uint64) error

	// EventCount returns the number of events if the source knows it.
	EventCount() (uint64, bool)
}

// Base carries the unpacker table and hardware address map every source
// has. Sources embed it.
type Base struct {
	name      string
	current   uint64
	unpackers map[uint16]tasks.Unpacker
	hwMap     map[uint32]uint32
	logger    *slog.Logger
}

// NewBase returns a Base for the source name.
func NewBase(name string) Base {
	return Base{
		name:      name,
		unpackers: make(map[uint16]tasks.Unpacker),
		hwMap:     make(map[uint32]uint32),
		logger:    logging.Component("source").With("source", name),
	}
}

func (b *Base) Name() string { return b.name }

// CurrentEvent returns the index of the next event to read.
func (b *Base) CurrentEvent() uint64 { return b.current }

// AddUnpacker attaches u to subevent address addr. A second unpacker for the
// same address is a configuration error handled by the assertion policy.
func (b *Base) AddUnpacker(addr uint16, u tasks.Unpacker) error {
	if _, ok := b.unpackers[addr]; ok {
		return assert.Fail(
			fmt.Errorf("unpacker for address %#04x: %w", addr, errors.ErrDuplicateUnpacker),
			"component", "source", "source", b.name)
	}
	b.unpackers[addr] = u
	return nil
}

// Unpacker returns the unpacker attached to addr.
func (b *Base) Unpacker(addr uint16) (tasks.Unpacker, bool) {
	u, ok := b.unpackers[addr]
	return u, ok
}

// Addresses returns the subevent addresses with an unpacker, ascending.
func (b *Base) Addresses() []uint16 {
	addrs := make([]uint16, 0, len(b.unpackers))
	for a := range b.unpackers {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// RegisterHWAddress maps hardware address hw to the virtual address vaddr.
func (b *Base) RegisterHWAddress(hw, vaddr uint32) {
	b.hwMap[hw] = vaddr
}

// VAddr returns the virtual address registered for hw.
func (b *Base) VAddr(hw uint32) (uint32, error) {
	v, ok := b.hwMap[hw]
	if !ok {
		return 0, errors.NewNotFound("hardware address", fmt.Sprintf("%#x", hw))
	}
	return v, nil
}

// Dispatch hands every subevent of e to the unpacker of its address.
// Subevents without an unpacker are skipped.
func (b *Base) Dispatch(ctx context.Context, e *eventlog.Event) error {
	for _, s := range e.Subevents {
		u, ok := b.unpackers[s.Address]
		if !ok {
			b.logger.Debug("no unpacker for subevent", "address", fmt.Sprintf("%#04x", s.Address), "event", e.Number)
			continue
		}
		if err := u.Execute(ctx, e.Number, s.Data); err != nil {
			return fmt.Errorf("unpack subevent %#04x of event %d: %w", s.Address, e.Number, err)
		}
	}
	return nil
}
