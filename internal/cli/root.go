// Package cli implements the spark command line.
package cli

import (
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/logging"
	storecfg "github.com/xtxerr/spark/internal/storage/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	JSON       bool

	// Config is loaded before any subcommand runs.
	Config *storecfg.Config
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "spark",
		Short:   "Event processing with categories, parameters and tasks",
		Long:    "spark unpacks recorded events into categories, runs the detector tasks on every event and writes the results as Parquet files.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error|critical)")
	cmd.PersistentFlags().BoolVar(&opts.JSON, "log-json", false, "log in JSON")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewRecordCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewHeaderCommand(opts))

	return cmd
}

// load reads the config file, falling back to defaults when none is given
// or the file does not exist, and initializes logging to stderr.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg := storecfg.DefaultConfig()
	if o.ConfigPath != "" {
		loaded, err := storecfg.Load(o.ConfigPath)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, fs.ErrNotExist):
			// defaults
		default:
			return WrapExitError(ExitCommandError, "load config", err)
		}
	}

	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.JSON {
		cfg.Logging.JSON = true
	}
	if err := cfg.Logging.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	logging.InitTo(cmd.ErrOrStderr(), logging.ParseLevel(cfg.Logging.Level), cfg.Logging.JSON)

	o.Config = cfg
	return nil
}

// ExitCode values returned by the spark binary.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitCommandError = 2
)

// ExitError carries the exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode extracts the exit code from err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
