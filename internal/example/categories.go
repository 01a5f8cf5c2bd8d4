// Package example is a small detector wired through the whole system: an
// unpacker fills raw hits, a calibration task maps them to detector cells
// with parameter containers, and a statistics task summarizes the
// calibrated energies.
package example

import (
	"github.com/xtxerr/spark/internal/model"
	"github.com/xtxerr/spark/internal/params"
)

// Category identifiers.
const (
	RawID model.ID = 20
	CalID model.ID = 21
)

// Category names.
const (
	RawName = "ExampleRaw"
	CalName = "ExampleCal"
)

// Front-end geometry. Board addresses are 0..Boards-1; each board has
// Channels channels. The calibrated category holds one record per cell.
// The raw category holds up to MaxHits hits per event; the unpacker drops
// hits beyond that.
const (
	Boards         = 4
	Channels       = 16
	Cells          = Boards * Channels
	MaxChannelHits = 4
	MaxHits        = Cells * MaxChannelHits
)

// Container names.
const (
	LookupName = "ExampleLookup"
	CalParName = "ExampleCalPar"
)

// Raw is an unpacked hit.
type Raw struct {
	Board   int32
	Channel int32
	Toa     int32
	Tot     int32
}

// Cal is a calibrated hit in detector coordinates.
type Cal struct {
	Module int32
	Cell   int32
	Toa    float32
	Energy float32
}

// Cell is the detector coordinate a front-end channel is wired to.
type Cell struct {
	Module uint32
	Cell   uint32
}

func (c *Cell) Fields() []any { return []any{&c.Module, &c.Cell} }

// CalPar holds the energy calibration of one cell.
type CalPar struct {
	Slope  float32
	Offset float32
}

func (p *CalPar) Fields() []any { return []any{&p.Slope, &p.Offset} }

type (
	// Lookup maps front-end addresses to cells.
	Lookup = params.LookupTable[Cell, *Cell]

	// CalPars maps cells to calibration parameters.
	CalPars = params.Tabular[Cell, CalPar, *Cell, *CalPar]
)
