package params

import (
	"fmt"
	"io"

	"github.com/xtxerr/spark/internal/errors"
)

// Tabular maps addresses of type A to rows of type R without range checks.
type Tabular[A comparable, R any, PA Tuple[A], PR Tuple[R]] struct {
	Base
	fmtAddr string
	fmtRow  string

	records map[A]R
	order   []A
}

// NewTabular returns an empty table.
func NewTabular[A comparable, R any, PA Tuple[A], PR Tuple[R]](name, fmtAddr, fmtRow string) *Tabular[A, R, PA, PR] {
	return &Tabular[A, R, PA, PR]{
		Base:    NewBase(name),
		fmtAddr: fmtAddr,
		fmtRow:  fmtRow,
		records: make(map[A]R),
	}
}

// TabularBuilder returns a Builder for tabular containers with the given formats.
func TabularBuilder[A comparable, R any, PA Tuple[A], PR Tuple[R]](fmtAddr, fmtRow string) Builder[*Tabular[A, R, PA, PR]] {
	return func(name string) *Tabular[A, R, PA, PR] {
		return NewTabular[A, R, PA, PR](name, fmtAddr, fmtRow)
	}
}

// Get returns the row at addr.
func (t *Tabular[A, R, PA, PR]) Get(addr A) (R, error) {
	return t.At(addr)
}

// At returns the row at addr.
func (t *Tabular[A, R, PA, PR]) At(addr A) (R, error) {
	row, ok := t.records[addr]
	if !ok {
		var zero R
		return zero, errors.NewNotFound("tabular entry", fmt.Sprintf("%+v", addr))
	}
	return row, nil
}

// Insert adds row at addr. An existing entry is kept.
func (t *Tabular[A, R, PA, PR]) Insert(addr A, row R) {
	if _, ok := t.records[addr]; ok {
		return
	}
	t.records[addr] = row
	t.order = append(t.order, addr)
}

// Len returns the number of entries.
func (t *Tabular[A, R, PA, PR]) Len() int { return len(t.records) }

func (t *Tabular[A, R, PA, PR]) FromView(view View) error {
	for _, line := range view {
		addr, row, err := ScanPair[A, R, PA, PR](t.Name(), line, t.fmtAddr, t.fmtRow)
		if err != nil {
			return err
		}
		t.Insert(addr, row)
	}
	return nil
}

func (t *Tabular[A, R, PA, PR]) ToView() View {
	view := make(View, 0, len(t.order))
	for _, addr := range t.order {
		row := t.records[addr]
		view = append(view, formatTuple(t.fmtAddr, PA(&addr).Fields())+" "+formatTuple(t.fmtRow, PR(&row).Fields()))
	}
	return view
}

func (t *Tabular[A, R, PA, PR]) Print(w io.Writer) {
	for _, addr := range t.order {
		fmt.Fprintf(w, "%+v : %+v\n", addr, t.records[addr])
	}
}
