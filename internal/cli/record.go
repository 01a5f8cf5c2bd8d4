package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xtxerr/spark/internal/example"
	"github.com/xtxerr/spark/internal/storage/eventlog"
)

// RecordOptions holds flags for the record command.
type RecordOptions struct {
	*RootOptions

	Events     uint64
	First      uint64
	Seed       uint64
	ParamsFile string
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record <event-log-dir>",
		Short: "Write synthetic example detector events to an event log",
		Long: `Generate events of the example detector and append them to the
event log in the given directory. The same seed yields the same events.

Example:
  spark record ./events --events 1000 --seed 7 --params-file params.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return record(cmd, opts, args[0])
		},
	}

	cmd.Flags().Uint64VarP(&opts.Events, "events", "n", 100, "number of events")
	cmd.Flags().Uint64Var(&opts.First, "first", 0, "number of the first event")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 1, "random seed")
	cmd.Flags().StringVar(&opts.ParamsFile, "params-file", "", "also write the nominal parameter file here")

	return cmd
}

func record(cmd *cobra.Command, opts *RecordOptions, dir string) error {
	cfg := opts.Config
	w, err := eventlog.NewWriter(dir, eventlog.Options{
		MaxSegmentSize: cfg.Input.SegmentSize,
		SyncMode:       cfg.Input.SyncMode,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "open event log", err)
	}

	gen := example.NewGenerator(opts.Seed)
	for i := uint64(0); i < opts.Events; i++ {
		if err := cmd.Context().Err(); err != nil {
			w.Close()
			return err
		}
		e := gen.Event(opts.First + i)
		if err := w.Write(&e); err != nil {
			w.Close()
			return WrapExitError(ExitFailure, "write event", err)
		}
	}
	if err := w.Close(); err != nil {
		return WrapExitError(ExitFailure, "close event log", err)
	}

	stats := w.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "recorded %d events (%d bytes) in %s\n", stats.EventsWritten, stats.BytesWritten, dir)

	if opts.ParamsFile != "" {
		f, err := os.Create(opts.ParamsFile)
		if err != nil {
			return WrapExitError(ExitCommandError, "write parameters", err)
		}
		if err := example.WriteParameters(f); err != nil {
			f.Close()
			return WrapExitError(ExitFailure, "write parameters", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote parameters to %s\n", opts.ParamsFile)
	}
	return nil
}
