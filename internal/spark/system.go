// Package spark ties the category model, the parameter database, the task
// scheduler and the data sources into one processing system.
//
// A System is set up once from its detectors and then driven through the
// events of its sources:
//
//	sys := spark.New(spark.Config{RunID: 42})
//	sys.AddDetector(det)
//	sys.AddSource(src)
//	sys.Setup()
//	sys.OpenOutput(dir, parquet.DefaultOptions())
//	n, err := sys.ProcessData(ctx, 0)
//
// Everything runs on the calling goroutine; one event completes before the
// next begins.
package spark

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xtxerr/spark/config"
	"github.com/xtxerr/spark/internal/assert"
	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/logging"
	"github.com/xtxerr/spark/internal/model"
	"github.com/xtxerr/spark/internal/params"
	"github.com/xtxerr/spark/internal/source"
	"github.com/xtxerr/spark/internal/storage/header"
	"github.com/xtxerr/spark/internal/storage/parquet"
	"github.com/xtxerr/spark/internal/tasks"
)

var log = logging.Component("spark")

// Detector declares the categories, containers and tasks of one detector.
// The callbacks run once each, in that order, from Setup.
type Detector interface {
	Name() string
	SetupCategories(m *model.Manager) error
	SetupContainers(db *params.Database) error
	SetupTasks(s *System) error
}

// Output receives the compressed model after every event.
type Output interface {
	Fill(event uint64) error
	Close() error
}

// Progress is reported periodically while events are processed.
type Progress struct {
	Events  uint64
	Total   uint64 // zero if unknown
	Elapsed time.Duration
}

// Rate returns processed events per second.
func (p Progress) Rate() float64 {
	if p.Elapsed <= 0 {
		return 0
	}
	return float64(p.Events) / p.Elapsed.Seconds()
}

// Config holds system configuration.
type Config struct {
	RunID   uint64
	Release string

	// ProgressInterval is the minimum time between two OnProgress calls.
	ProgressInterval time.Duration
	OnProgress       func(Progress)
}

// System is the processing system. It owns the category manager, the task
// manager and the parameter database.
type System struct {
	cfg Config

	detectors []Detector
	model     *model.Manager
	tasks     *tasks.Manager
	db        *params.Database
	sources   []source.DataSource
	output    Output

	setupDone bool
	current   uint64
}

// New creates an empty system.
func New(cfg Config) *System {
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = config.DefaultProgressInterval
	}
	db := params.NewDatabase()
	if cfg.Release != "" {
		db.SetRelease(cfg.Release)
	}
	return &System{
		cfg:   cfg,
		model: model.NewManager(),
		tasks: tasks.NewManager(),
		db:    db,
	}
}

func (s *System) Model() *model.Manager        { return s.model }
func (s *System) Tasks() *tasks.Manager        { return s.tasks }
func (s *System) Parameters() *params.Database { return s.db }
func (s *System) RunID() uint64                { return s.cfg.RunID }
func (s *System) Detectors() []Detector        { return s.detectors }
func (s *System) Sources() []source.DataSource { return s.sources }

// CurrentEvent returns the index of the next event to process.
func (s *System) CurrentEvent() uint64 { return s.current }

// SetCurrentEvent makes processing start at event index i.
func (s *System) SetCurrentEvent(i uint64) { s.current = i }

// DisableAssertions makes fatal setup failures return errors instead of
// terminating the process.
func (s *System) DisableAssertions() { assert.Disable() }

// EnableAssertions restores the terminate-on-failure policy.
func (s *System) EnableAssertions() { assert.Enable() }

// AddDetector adds d. Detectors must be added before Setup.
func (s *System) AddDetector(d Detector) {
	s.detectors = append(s.detectors, d)
}

// Detector returns the detector with the given name.
func (s *System) Detector(name string) (Detector, bool) {
	for _, d := range s.detectors {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

// AddSource adds an event data source.
func (s *System) AddSource(src source.DataSource) {
	s.sources = append(s.sources, src)
}

// Source returns the data source with the given name.
func (s *System) Source(name string) (source.DataSource, bool) {
	for _, src := range s.sources {
		if src.Name() == name {
			return src, true
		}
	}
	return nil, false
}

// AddParameterSource puts src in front of the parameter sources added before.
func (s *System) AddParameterSource(src params.Source) {
	s.db.AddSource(src)
}

// SetOutput sets the collaborator that receives every processed event.
func (s *System) SetOutput(o Output) { s.output = o }

// Setup runs the category, container and task callbacks of every detector,
// materializes the containers for the run and builds the task queue.
func (s *System) Setup() error {
	if s.setupDone {
		return nil
	}

	for _, d := range s.detectors {
		if err := d.SetupCategories(s.model); err != nil {
			return fmt.Errorf("setup categories of %s: %w", d.Name(), err)
		}
	}
	for _, d := range s.detectors {
		if err := d.SetupContainers(s.db); err != nil {
			return fmt.Errorf("setup containers of %s: %w", d.Name(), err)
		}
	}
	if err := s.db.InitContainers(s.cfg.RunID); err != nil {
		return err
	}
	for _, d := range s.detectors {
		if err := d.SetupTasks(s); err != nil {
			return fmt.Errorf("setup tasks of %s: %w", d.Name(), err)
		}
	}
	if err := s.tasks.BuildQueue(); err != nil {
		return err
	}

	s.setupDone = true
	log.Info("system set up",
		"detectors", len(s.detectors),
		"categories", len(s.model.IDs()),
		"containers", len(s.db.Names()),
		"tasks", s.tasks.Len(),
		"unpackers", s.tasks.Unpackers())
	return nil
}

// OpenOutput creates a Parquet writer in dir for the persistent categories
// of the model and makes it the output. Setup must have run.
func (s *System) OpenOutput(dir string, opts parquet.Options) (*parquet.Writer, error) {
	if !s.setupDone {
		return nil, errors.NewValidation("output", "system is not set up")
	}
	h := header.FromModel(s.model, s.cfg.RunID, s.db.Release())
	w, err := parquet.NewWriter(dir, s.model, h, opts)
	if err != nil {
		return nil, err
	}
	s.output = w
	return w, nil
}

// ProcessData processes events until a source is exhausted or maxEvents
// events are done (zero means no limit) and returns the number processed.
// Tasks and unpackers whose Init succeeded are deinitialized and sources and
// output closed on return.
func (s *System) ProcessData(ctx context.Context, maxEvents uint64) (n uint64, err error) {
	if err := s.Setup(); err != nil {
		return 0, err
	}
	if len(s.sources) == 0 && maxEvents == 0 {
		return 0, fmt.Errorf("no data source and no event limit: %w", errors.ErrInvalidConfig)
	}

	ctx = logging.ContextWithRunID(ctx, s.cfg.RunID)

	opened := 0
	defer func() {
		if terr := s.teardown(ctx, opened); terr != nil {
			err = errors.Join(err, terr)
		}
	}()

	for _, src := range s.sources {
		if err := src.Open(ctx); err != nil {
			return 0, fmt.Errorf("open source %s: %w", src.Name(), err)
		}
		opened++
	}

	if err := s.tasks.InitUnpackers(ctx); err != nil {
		return 0, err
	}
	if err := s.tasks.ReinitUnpackers(ctx, s.cfg.RunID); err != nil {
		return 0, err
	}
	if err := s.tasks.InitTasks(ctx); err != nil {
		return 0, err
	}

	total := s.eventTotal(maxEvents)
	start := time.Now()
	last := start

	for maxEvents == 0 || n < maxEvents {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		more, err := s.processEvent(ctx)
		if err != nil {
			return n, err
		}
		if !more {
			break
		}
		n++

		if s.cfg.OnProgress != nil && time.Since(last) >= s.cfg.ProgressInterval {
			last = time.Now()
			s.cfg.OnProgress(Progress{Events: n, Total: total, Elapsed: last.Sub(start)})
		}
	}

	if s.cfg.OnProgress != nil {
		s.cfg.OnProgress(Progress{Events: n, Total: total, Elapsed: time.Since(start)})
	}
	log.Info("events processed", "events", n, "elapsed", time.Since(start).Round(time.Millisecond))
	return n, nil
}

// processEvent runs one event cycle. It returns false if a source has no
// more data.
func (s *System) processEvent(ctx context.Context) (bool, error) {
	event := s.current
	ctx = logging.ContextWithEvent(ctx, event)

	s.model.Clear()

	for _, src := range s.sources {
		if err := src.SetCurrentEvent(event); err != nil {
			return false, fmt.Errorf("source %s: %w", src.Name(), err)
		}
		ok, err := src.ReadCurrentEvent(ctx)
		if err != nil {
			return false, fmt.Errorf("source %s event %d: %w", src.Name(), event, err)
		}
		if !ok {
			log.Debug("source exhausted", "source", src.Name(), "event", event)
			return false, nil
		}
	}

	if err := s.tasks.ExecuteTasks(ctx); err != nil {
		return false, fmt.Errorf("event %d: %w", event, err)
	}

	s.model.Compress()

	if s.output != nil {
		if err := s.output.Fill(event); err != nil {
			return false, fmt.Errorf("fill event %d: %w", event, err)
		}
	}

	s.current++
	return true, nil
}

// eventTotal is the number of events expected, or zero if unknown.
func (s *System) eventTotal(maxEvents uint64) uint64 {
	var total uint64
	for _, src := range s.sources {
		c, ok := src.EventCount()
		if !ok {
			return maxEvents
		}
		if c <= s.current {
			return 0
		}
		c -= s.current
		if total == 0 || c < total {
			total = c
		}
	}
	if maxEvents > 0 && (total == 0 || maxEvents < total) {
		total = maxEvents
	}
	return total
}

func (s *System) teardown(ctx context.Context, opened int) error {
	var errs []error
	if err := s.tasks.DeinitTasks(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.tasks.DeinitUnpackers(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, src := range s.sources[:opened] {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source %s: %w", src.Name(), err))
		}
	}
	if s.output != nil {
		if err := s.output.Close(); err != nil {
			errs = append(errs, err)
		}
		s.output = nil
	}
	return errors.Join(errs...)
}

// Print writes the registered categories, the parameter database and the
// task queue.
func (s *System) Print(w io.Writer) {
	fmt.Fprintf(w, "=== System (run %d) ===\n", s.cfg.RunID)
	for _, d := range s.detectors {
		fmt.Fprintf(w, "detector %s\n", d.Name())
	}
	for _, src := range s.sources {
		if c, ok := src.EventCount(); ok {
			fmt.Fprintf(w, "source %s (%d events)\n", src.Name(), c)
		} else {
			fmt.Fprintf(w, "source %s\n", src.Name())
		}
	}
	s.model.PrintRegistered(w)
	s.db.Print(w)
	s.tasks.PrintQueue(w)
}
