package example

import (
	"fmt"
	"io"

	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/model"
	"github.com/xtxerr/spark/internal/params"
	"github.com/xtxerr/spark/internal/spark"
	"github.com/xtxerr/spark/internal/tasks"
)

// Options configures the example detector.
type Options struct {
	// Source is the name of the data source carrying the board subevents.
	Source string

	// Statistics enables the statistics task.
	Statistics bool

	// Window and Accuracy configure the statistics task.
	Window   uint64
	Accuracy float64

	// StatsOutput receives the statistics table on Deinit.
	StatsOutput io.Writer
}

// Detector is the example detector.
type Detector struct {
	opts  Options
	stats *Statistics
}

// NewDetector returns the example detector.
func NewDetector(opts Options) *Detector {
	return &Detector{opts: opts}
}

func (d *Detector) Name() string { return "ExampleDetector" }

func (d *Detector) SetupCategories(m *model.Manager) error {
	m.Register(RawID, RawName, []int{MaxHits}, false)
	m.Register(CalID, CalName, []int{Cells}, false)
	return nil
}

func (d *Detector) SetupContainers(db *params.Database) error {
	if _, err := params.Register(db, LookupName, LookupBuilder()); err != nil {
		return err
	}
	_, err := params.Register(db, CalParName, CalParBuilder())
	return err
}

func (d *Detector) SetupTasks(s *spark.System) error {
	raw, err := model.Build[Raw](s.Model(), RawID, true)
	if err != nil {
		return err
	}
	cal, err := model.Build[Cal](s.Model(), CalID, true)
	if err != nil {
		return err
	}

	src, ok := s.Source(d.opts.Source)
	if !ok {
		return errors.NewNotFound("data source", d.opts.Source)
	}
	host, ok := src.(tasks.UnpackerHost)
	if !ok {
		return fmt.Errorf("data source %s cannot host unpackers: %w", d.opts.Source, errors.ErrInvalidConfig)
	}
	for b := uint16(0); b < Boards; b++ {
		if err := s.Tasks().MakeUnpacker(host, b, NewUnpacker(b, raw)); err != nil {
			return err
		}
	}

	lookup, err := params.Get[*Lookup](s.Parameters(), LookupName)
	if err != nil {
		return err
	}
	calpar, err := params.Get[*CalPars](s.Parameters(), CalParName)
	if err != nil {
		return err
	}
	if err := s.Tasks().AddTask(CalibrationTask, NewCalibration(raw, cal, lookup, calpar)); err != nil {
		return err
	}

	if !d.opts.Statistics {
		return nil
	}
	d.stats = NewStatistics(cal, d.opts.Window, d.opts.Accuracy, d.opts.StatsOutput)
	return s.Tasks().AddTask(StatisticsTask, d.stats, CalibrationTask)
}

// Statistics returns the statistics task, or nil if it is disabled.
func (d *Detector) Statistics() *Statistics { return d.stats }
