package example

import (
	"fmt"
	"io"
	"strings"

	"github.com/xtxerr/spark/internal/params"
)

// Line formats of the example containers.
const (
	lookupAddrFormat = "%v %v"
	lookupRowFormat  = "%d %d"
	calAddrFormat    = "%d %d"
	calRowFormat     = "%v %v"
)

// LookupBuilder builds the front-end lookup table.
func LookupBuilder() params.Builder[*Lookup] {
	return params.LookupBuilder[Cell, *Cell](0, Boards-1, Channels, lookupAddrFormat, lookupRowFormat)
}

// CalParBuilder builds the calibration parameter table.
func CalParBuilder() params.Builder[*CalPars] {
	return params.TabularBuilder[Cell, CalPar, *Cell, *CalPar](calAddrFormat, calRowFormat)
}

// moduleOf returns the module a board is wired to. Boards are mounted in
// reverse order.
func moduleOf(board uint32) uint32 { return Boards - 1 - board }

// DefaultViews returns the parameter views of a nominal detector: every
// channel wired, unit slope per module and a small pedestal offset.
func DefaultViews() map[string]params.View {
	lookup := make(params.View, 0, Cells)
	calpar := make(params.View, 0, Cells)
	for b := uint32(0); b < Boards; b++ {
		for ch := uint32(0); ch < Channels; ch++ {
			lookup = append(lookup, fmt.Sprintf("%#x %d    %d %d", b, ch, moduleOf(b), ch))
		}
	}
	for m := uint32(0); m < Boards; m++ {
		for c := uint32(0); c < Channels; c++ {
			slope := 1 + 0.25*float32(m)
			offset := -float32(1 + c%4)
			calpar = append(calpar, fmt.Sprintf("%d %d    %g %g", m, c, slope, offset))
		}
	}
	return map[string]params.View{
		LookupName: lookup,
		CalParName: calpar,
	}
}

// ParameterSource returns a memory source holding DefaultViews.
func ParameterSource() *params.MemorySource {
	src := params.NewMemorySource()
	for name, view := range DefaultViews() {
		src.AddView(name, view)
	}
	return src
}

// WriteParameters writes DefaultViews in ascii parameter file format.
func WriteParameters(w io.Writer) error {
	src, err := params.ParseAscii(strings.NewReader(""))
	if err != nil {
		return err
	}
	for name, view := range DefaultViews() {
		if err := src.WriteView(name, view); err != nil {
			return err
		}
	}
	return src.Save(w)
}
