package example

import (
	"context"
	"fmt"
	"io"

	"github.com/xtxerr/spark/internal/category"
	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/logging"
	"github.com/xtxerr/spark/internal/params"
	"github.com/xtxerr/spark/internal/storage/aggregate"
)

// Task identifiers.
const (
	CalibrationTask = "example.calibration"
	StatisticsTask  = "example.statistics"
)

// ToaScale converts toa counts to nanoseconds.
const ToaScale = 0.515

// Calibration maps every raw hit to its cell and calibrates it.
type Calibration struct {
	raw    *category.Category[Raw]
	cal    *category.Category[Cal]
	lookup params.Wrapper[*Lookup]
	calpar params.Wrapper[*CalPars]
}

// NewCalibration returns the calibration task.
func NewCalibration(raw *category.Category[Raw], cal *category.Category[Cal],
	lookup params.Wrapper[*Lookup], calpar params.Wrapper[*CalPars]) *Calibration {
	return &Calibration{raw: raw, cal: cal, lookup: lookup, calpar: calpar}
}

func (t *Calibration) Init(context.Context) error {
	if _, ok := t.lookup.Value(); !ok {
		return fmt.Errorf("%s: %w", LookupName, errors.ErrContainerMissingInSource)
	}
	if _, ok := t.calpar.Value(); !ok {
		return fmt.Errorf("%s: %w", CalParName, errors.ErrContainerMissingInSource)
	}
	return nil
}

func (t *Calibration) Execute(context.Context) error {
	lookup := t.lookup.Get()
	calpar := t.calpar.Get()

	n := t.raw.EntryCount()
	for i := 0; i < n; i++ {
		r := t.raw.At(i)

		cell, err := lookup.Get(params.Address{Board: uint32(r.Board), Channel: uint32(r.Channel)})
		if err != nil {
			return err
		}
		par, err := calpar.Get(cell)
		if err != nil {
			return err
		}

		c, err := t.cal.Make([]int{int(cell.Module*Channels + cell.Cell)})
		if err != nil {
			return err
		}
		*c = Cal{
			Module: int32(cell.Module),
			Cell:   int32(cell.Cell),
			Toa:    float32(r.Toa) * ToaScale,
			Energy: float32(r.Tot)*par.Slope + par.Offset,
		}
	}
	return nil
}

func (t *Calibration) Deinit(context.Context) error { return nil }

// Statistics aggregates the calibrated energy per module.
type Statistics struct {
	cal     *category.Category[Cal]
	manager *aggregate.Manager
	out     io.Writer
	results []aggregate.Result
}

// NewStatistics returns the statistics task. With window zero the whole run
// is one window; accuracy zero disables quantiles. Results are printed to
// out on Deinit when out is not nil.
func NewStatistics(cal *category.Category[Cal], window uint64, accuracy float64, out io.Writer) *Statistics {
	var m *aggregate.Manager
	if accuracy > 0 {
		m = aggregate.NewManagerWithAccuracy(window, accuracy)
	} else {
		m = aggregate.NewManager(window, false)
	}
	return &Statistics{cal: cal, manager: m, out: out}
}

// SeriesKey names the energy series of module.
func SeriesKey(module int32) string {
	return fmt.Sprintf("%s/energy/%d", CalName, module)
}

func (t *Statistics) Init(context.Context) error {
	t.results = nil
	return nil
}

func (t *Statistics) Execute(ctx context.Context) error {
	event, _ := logging.EventFromContext(ctx)
	return t.cal.Each(func(_ int, _ []int, rec any) error {
		c := rec.(*Cal)
		t.manager.Process(SeriesKey(c.Module), float64(c.Energy), event)
		return nil
	})
}

func (t *Statistics) Deinit(ctx context.Context) error {
	t.results = t.manager.FlushAll()
	logging.WithContext(ctx).Info("statistics complete",
		"series", len(t.results), "values", t.manager.Stats().ValuesProcessed)
	if t.out != nil {
		aggregate.PrintResults(t.out, t.results)
	}
	return nil
}

// Results returns the results collected on Deinit.
func (t *Statistics) Results() []aggregate.Result { return t.results }
