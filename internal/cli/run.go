package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/xtxerr/spark/internal/example"
	"github.com/xtxerr/spark/internal/logging"
	"github.com/xtxerr/spark/internal/params"
	"github.com/xtxerr/spark/internal/source"
	"github.com/xtxerr/spark/internal/spark"
	storecfg "github.com/xtxerr/spark/internal/storage/config"
	"github.com/xtxerr/spark/internal/storage/parquet"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	Params      []string
	Output      string
	Compression string
	MaxEvents   uint64
	RunID       uint64
	Stats       bool
	NoProgress  bool
	PrintSetup  bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [event-log-dir]",
		Short: "Process an event log with the example detector",
		Long: `Process the events of an event log directory.

Every event is unpacked into the raw category, calibrated with the
parameter containers and written to one Parquet file per persistent
category in the output directory.

Example:
  spark record ./events --events 1000
  spark run ./events --output ./out --stats`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.Config
			if len(args) == 1 {
				cfg.Input.EventLog = args[0]
			}
			opts.apply(cmd, cfg)
			if cfg.Input.EventLog == "" {
				return WrapExitError(ExitCommandError, "no event log", fmt.Errorf("pass a directory or set input.event_log"))
			}
			return runEvents(cmd, opts, cfg)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Params, "params", "p", nil, "ascii parameter files (later files take priority)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output directory (overrides config)")
	cmd.Flags().StringVar(&opts.Compression, "compression", "", "output compression (none|snappy|zstd|lz4|gzip)")
	cmd.Flags().Uint64VarP(&opts.MaxEvents, "max-events", "n", 0, "stop after this many events")
	cmd.Flags().Uint64Var(&opts.RunID, "run-id", 0, "run identifier used for parameters")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "print energy statistics after the run")
	cmd.Flags().BoolVar(&opts.NoProgress, "no-progress", false, "disable the progress line")
	cmd.Flags().BoolVar(&opts.PrintSetup, "print-setup", false, "print categories, containers and task queue before processing")

	return cmd
}

// apply copies the flags that were set over cfg.
func (o *RunOptions) apply(cmd *cobra.Command, cfg *storecfg.Config) {
	flags := cmd.Flags()
	if len(o.Params) > 0 {
		cfg.Parameters.Files = o.Params
	}
	if flags.Changed("output") {
		cfg.Output.Dir = o.Output
	}
	if flags.Changed("compression") {
		cfg.Output.Compression = o.Compression
	}
	if flags.Changed("max-events") {
		cfg.Run.MaxEvents = o.MaxEvents
	}
	if flags.Changed("run-id") {
		cfg.Run.ID = o.RunID
	}
	if flags.Changed("stats") {
		cfg.Statistics.Enabled = o.Stats
	}
}

func runEvents(cmd *cobra.Command, opts *RunOptions, cfg *storecfg.Config) error {
	log := logging.Component("cli")
	out := cmd.OutOrStdout()

	sysCfg := spark.Config{
		RunID:            cfg.Run.ID,
		Release:          cfg.Parameters.Release,
		ProgressInterval: cfg.Run.ProgressInterval,
	}
	if !opts.NoProgress && isTerminal(out) {
		sysCfg.OnProgress = progressPrinter(out)
	}
	sys := spark.New(sysCfg)

	src := source.NewEventLogSource(cfg.Input.EventLog)
	sys.AddSource(src)

	// Built-in parameters go in first so files take priority.
	sys.AddParameterSource(example.ParameterSource())
	for _, path := range cfg.Parameters.Files {
		ps, err := params.NewAsciiSource(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "load parameters", err)
		}
		sys.AddParameterSource(ps)
	}

	var statsOut io.Writer
	if cfg.Statistics.Enabled && opts.Stats {
		statsOut = out
	}
	sys.AddDetector(example.NewDetector(example.Options{
		Source:      src.Name(),
		Statistics:  cfg.Statistics.Enabled,
		Window:      cfg.Statistics.Window,
		Accuracy:    cfg.Statistics.Accuracy,
		StatsOutput: statsOut,
	}))

	if err := sys.Setup(); err != nil {
		return WrapExitError(ExitFailure, "setup", err)
	}
	if opts.PrintSetup {
		sys.Print(out)
	}

	if err := writeParameterTarget(sys.Parameters(), cfg.Parameters.Target); err != nil {
		return err
	}

	if cfg.Output.Dir != "" {
		if err := cfg.EnsureDirectories(); err != nil {
			return WrapExitError(ExitCommandError, "output", err)
		}
		popts := parquet.DefaultOptions()
		popts.Compression = parquet.ParseCompressionType(cfg.Output.Compression)
		if cfg.Output.RowGroupSize > 0 {
			popts.RowGroupSize = cfg.Output.RowGroupSize
		}
		if _, err := sys.OpenOutput(cfg.Output.Dir, popts); err != nil {
			return WrapExitError(ExitFailure, "open output", err)
		}
	}

	start := time.Now()
	n, err := sys.ProcessData(cmd.Context(), cfg.Run.MaxEvents)
	if sysCfg.OnProgress != nil {
		fmt.Fprintln(out)
	}
	if err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("processing stopped after %d events", n), err)
	}

	log.Info("run complete", "events", n, "output", cfg.Output.Dir, "elapsed", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "processed %d events\n", n)
	return nil
}

// writeParameterTarget saves the materialized containers to path.
func writeParameterTarget(db *params.Database, path string) error {
	if path == "" {
		return nil
	}
	target, err := params.ParseAscii(strings.NewReader(""))
	if err != nil {
		return err
	}
	db.SetTarget(target)
	if err := db.WriteContainers(); err != nil {
		return WrapExitError(ExitFailure, "write parameters", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "write parameters", err)
	}
	if err := target.Save(f); err != nil {
		f.Close()
		return WrapExitError(ExitFailure, "write parameters", err)
	}
	return f.Close()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func progressPrinter(w io.Writer) func(spark.Progress) {
	return func(p spark.Progress) {
		if p.Total > 0 {
			fmt.Fprintf(w, "\r%d/%d events (%.1f%%, %.0f ev/s)", p.Events, p.Total,
				100*float64(p.Events)/float64(p.Total), p.Rate())
			return
		}
		fmt.Fprintf(w, "\r%d events (%.0f ev/s)", p.Events, p.Rate())
	}
}
