package example

import (
	"math/rand/v2"

	"github.com/xtxerr/spark/internal/storage/eventlog"
)

// Generator produces synthetic board data for the example detector.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator. The same seed yields the same events.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Event returns event number n with up to eight hits on random boards.
// Boards without hits have no subevent.
func (g *Generator) Event(n uint64) eventlog.Event {
	byBoard := make([][]Raw, Boards)
	used := make(map[[2]int32]bool)

	hits := g.rng.IntN(9)
	for i := 0; i < hits; i++ {
		board := int32(g.rng.IntN(Boards))
		channel := int32(g.rng.IntN(Channels))
		if used[[2]int32{board, channel}] {
			continue
		}
		used[[2]int32{board, channel}] = true

		byBoard[board] = append(byBoard[board], Raw{
			Board:   board,
			Channel: channel,
			Toa:     int32(100 + g.rng.IntN(900)),
			Tot:     int32(max(0, 200+g.rng.NormFloat64()*40)),
		})
	}

	e := eventlog.Event{Number: n}
	for b, rs := range byBoard {
		if len(rs) == 0 {
			continue
		}
		e.Subevents = append(e.Subevents, eventlog.Subevent{Address: uint16(b), Data: EncodeHits(rs)})
	}
	return e
}

// Events returns count events numbered from first.
func (g *Generator) Events(first, count uint64) []eventlog.Event {
	events := make([]eventlog.Event, 0, count)
	for i := uint64(0); i < count; i++ {
		events = append(events, g.Event(first+i))
	}
	return events
}
