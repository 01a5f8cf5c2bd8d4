package params

import (
	"fmt"
	"io"

	"github.com/xtxerr/spark/internal/errors"
)

// Address is the physical front-end address of a lookup entry.
type Address struct {
	Board   uint32
	Channel uint32
}

func (a *Address) Fields() []any { return []any{&a.Board, &a.Channel} }

func (a Address) String() string { return fmt.Sprintf("{%#x, %d}", a.Board, a.Channel) }

// LookupTable maps board address and channel inside [amin, amax] x
// [0, channels) to a row of type R.
type LookupTable[R any, PR Tuple[R]] struct {
	Base
	amin     uint32
	amax     uint32
	channels uint32
	fmtAddr  string
	fmtRow   string

	records map[Address]R
	order   []Address
}

// NewLookupTable returns an empty table. fmtAddr scans the board and the
// channel, fmtRow scans the fields of R.
func NewLookupTable[R any, PR Tuple[R]](name string, amin, amax, channels uint32, fmtAddr, fmtRow string) *LookupTable[R, PR] {
	return &LookupTable[R, PR]{
		Base:     NewBase(name),
		amin:     amin,
		amax:     amax,
		channels: channels,
		fmtAddr:  fmtAddr,
		fmtRow:   fmtRow,
		records:  make(map[Address]R),
	}
}

// LookupBuilder returns a Builder for lookup tables with the given bounds
// and formats.
func LookupBuilder[R any, PR Tuple[R]](amin, amax, channels uint32, fmtAddr, fmtRow string) Builder[*LookupTable[R, PR]] {
	return func(name string) *LookupTable[R, PR] {
		return NewLookupTable[R, PR](name, amin, amax, channels, fmtAddr, fmtRow)
	}
}

// Get returns the row at addr after checking the address and channel ranges.
func (t *LookupTable[R, PR]) Get(addr Address) (R, error) {
	var zero R
	if addr.Board > t.amax || addr.Board < t.amin {
		return zero, fmt.Errorf("address %#x exceeds range of %#x-%#x for lookup table %s: %w",
			addr.Board, t.amin, t.amax, t.Name(), errors.ErrLookupAddressOutOfRange)
	}
	if addr.Channel >= t.channels {
		return zero, fmt.Errorf("channel %d exceeds channel range of 0-%d for lookup table %s: %w",
			addr.Channel, t.channels, t.Name(), errors.ErrLookupChannelOutOfRange)
	}
	return t.At(addr)
}

// At returns the row at addr without range checks.
func (t *LookupTable[R, PR]) At(addr Address) (R, error) {
	row, ok := t.records[addr]
	if !ok {
		var zero R
		return zero, errors.NewNotFound("lookup entry", addr.String())
	}
	return row, nil
}

// Insert adds row at addr. An existing entry is kept.
func (t *LookupTable[R, PR]) Insert(addr Address, row R) {
	if _, ok := t.records[addr]; ok {
		return
	}
	t.records[addr] = row
	t.order = append(t.order, addr)
}

// Len returns the number of entries.
func (t *LookupTable[R, PR]) Len() int { return len(t.records) }

func (t *LookupTable[R, PR]) FromView(view View) error {
	for _, line := range view {
		addr, row, err := ScanPair[Address, R, *Address, PR](t.Name(), line, t.fmtAddr, t.fmtRow)
		if err != nil {
			return err
		}
		t.Insert(addr, row)
	}
	return nil
}

func (t *LookupTable[R, PR]) ToView() View {
	view := make(View, 0, len(t.order))
	for _, addr := range t.order {
		row := t.records[addr]
		view = append(view, formatTuple(t.fmtAddr, addr.Fields())+" "+formatTuple(t.fmtRow, PR(&row).Fields()))
	}
	return view
}

func (t *LookupTable[R, PR]) Print(w io.Writer) {
	for _, addr := range t.order {
		fmt.Fprintf(w, "%s : %+v\n", addr, t.records[addr])
	}
}
