// Package aggregate computes streaming statistics over category values.
//
// A StreamingAggregate keeps count, sum, min, max and mean of one series and,
// optionally, a DDSketch for quantiles. The Manager keys aggregates by series
// and closes them at event window boundaries.
package aggregate

import (
	"math"
	"sync"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/xtxerr/spark/config"
)

// StreamingAggregate maintains running statistics for a single series.
// It supports optional percentile calculation using DDSketch.
type StreamingAggregate struct {
	mu sync.Mutex

	key string

	// Event window
	eventStart uint64
	eventEnd   uint64

	// Running statistics
	count      int64
	sum        float64
	min        float64
	max        float64
	firstEvent uint64
	lastEvent  uint64

	// DDSketch for percentiles (nil if disabled)
	sketch   *ddsketch.DDSketch
	accuracy float64
}

// New creates a new StreamingAggregate for key over [eventStart, eventEnd).
func New(key string, eventStart, eventEnd uint64, enablePercentile bool) *StreamingAggregate {
	if !enablePercentile {
		return newAggregate(key, eventStart, eventEnd, 0)
	}
	return newAggregate(key, eventStart, eventEnd, config.DefaultSketchAccuracy)
}

// NewWithAccuracy creates a new StreamingAggregate with custom percentile accuracy.
func NewWithAccuracy(key string, eventStart, eventEnd uint64, accuracy float64) *StreamingAggregate {
	return newAggregate(key, eventStart, eventEnd, accuracy)
}

func newAggregate(key string, eventStart, eventEnd uint64, accuracy float64) *StreamingAggregate {
	agg := &StreamingAggregate{
		key:        key,
		eventStart: eventStart,
		eventEnd:   eventEnd,
		min:        math.MaxFloat64,
		max:        -math.MaxFloat64,
		accuracy:   accuracy,
	}
	agg.sketch = newSketch(accuracy)
	return agg
}

func newSketch(accuracy float64) *ddsketch.DDSketch {
	if accuracy <= 0 {
		return nil
	}
	sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
	if err != nil {
		return nil
	}
	return sketch
}

// Add adds a value observed in event.
func (a *StreamingAggregate) Add(value float64, event uint64) {
	if math.IsNaN(value) {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.count == 0 || event < a.firstEvent {
		a.firstEvent = event
	}
	if event > a.lastEvent {
		a.lastEvent = event
	}

	a.count++
	a.sum += value

	if value < a.min {
		a.min = value
	}
	if value > a.max {
		a.max = value
	}

	if a.sketch != nil {
		a.sketch.Add(value)
	}
}

// Count returns the number of values added.
func (a *StreamingAggregate) Count() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// IsEmpty returns true if no values have been added.
func (a *StreamingAggregate) IsEmpty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count == 0
}

// Result returns the aggregation result.
func (a *StreamingAggregate) Result() Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := Result{
		Key:        a.key,
		EventStart: a.eventStart,
		EventEnd:   a.eventEnd,
		Count:      a.count,
		Sum:        a.sum,
		FirstEvent: a.firstEvent,
		LastEvent:  a.lastEvent,
	}

	if a.count > 0 {
		result.Mean = a.sum / float64(a.count)
		result.Min = a.min
		result.Max = a.max
	}

	// Calculate percentiles if enabled and we have data
	if a.sketch != nil && a.count > 0 {
		qs, err := a.sketch.GetValuesAtQuantiles([]float64{0.50, 0.90, 0.95, 0.99})
		if err == nil {
			result.SetPercentiles(qs[0], qs[1], qs[2], qs[3])
		}
	}

	return result
}

// Reset resets the aggregate for a new event window.
func (a *StreamingAggregate) Reset(eventStart, eventEnd uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.eventStart = eventStart
	a.eventEnd = eventEnd
	a.count = 0
	a.sum = 0
	a.min = math.MaxFloat64
	a.max = -math.MaxFloat64
	a.firstEvent = 0
	a.lastEvent = 0

	if a.sketch != nil {
		a.sketch = newSketch(a.accuracy)
	}
}

// Merge combines another aggregate of the same series into this one.
func (a *StreamingAggregate) Merge(other *StreamingAggregate) error {
	if other == nil || other == a {
		return nil
	}

	a.mu.Lock()
	other.mu.Lock()
	defer a.mu.Unlock()
	defer other.mu.Unlock()

	if other.count == 0 {
		return nil
	}

	if a.count == 0 || other.firstEvent < a.firstEvent {
		a.firstEvent = other.firstEvent
	}
	if other.lastEvent > a.lastEvent {
		a.lastEvent = other.lastEvent
	}

	a.count += other.count
	a.sum += other.sum

	if other.min < a.min {
		a.min = other.min
	}
	if other.max > a.max {
		a.max = other.max
	}

	// Merge sketches
	if a.sketch != nil && other.sketch != nil {
		return a.sketch.MergeWith(other.sketch)
	}
	return nil
}

// Key returns the series key.
func (a *StreamingAggregate) Key() string {
	return a.key
}

// EventStart returns the first event of the window.
func (a *StreamingAggregate) EventStart() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eventStart
}
