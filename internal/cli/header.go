package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xtxerr/spark/config"
	"github.com/xtxerr/spark/internal/example"
	"github.com/xtxerr/spark/internal/model"
	"github.com/xtxerr/spark/internal/storage/header"
	"github.com/xtxerr/spark/internal/storage/parquet"
)

// HeaderOptions holds flags for the header command.
type HeaderOptions struct {
	*RootOptions

	JSON   bool
	Verify bool
}

// NewHeaderCommand creates the header command.
func NewHeaderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HeaderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "header <output-dir|category-file>",
		Short: "Print the file header of a run",
		Long: `Print the run header of an output directory, or the header embedded
in the metadata of one category file.

With --verify the header is checked against the categories the example
detector registers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printHeader(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print as JSON")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "verify against the example detector categories")

	return cmd
}

func printHeader(cmd *cobra.Command, opts *HeaderOptions, path string) error {
	h, err := readHeader(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read header", err)
	}

	out := cmd.OutOrStdout()
	if opts.JSON {
		data, err := h.MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		writeHeader(out, h)
	}

	if opts.Verify {
		m := model.NewManager()
		if err := example.NewDetector(example.Options{}).SetupCategories(m); err != nil {
			return err
		}
		if err := h.Verify(m); err != nil {
			return WrapExitError(ExitFailure, "header does not match", err)
		}
		fmt.Fprintln(out, "header matches registered categories")
	}
	return nil
}

// readHeader reads the header file of a directory or the metadata of a
// category file.
func readHeader(path string) (*header.Header, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return header.ReadFile(filepath.Join(path, config.HeaderFileName))
	}
	return parquet.FileHeader(path)
}

func writeHeader(w io.Writer, h *header.Header) {
	fmt.Fprintf(w, "Run:     %d (%s)\n", h.RunID, h.RunUUID)
	if h.Release != "" {
		fmt.Fprintf(w, "Release: %s\n", h.Release)
	}
	fmt.Fprintf(w, "Created: %s\n", h.Created.Format(time.RFC3339))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZES\tSIM\tPERSISTENT\tRECORD")
	for _, c := range h.Categories {
		fmt.Fprintf(tw, "%d\t%s\t%v\t%t\t%t\t%s\n", c.ID, c.Name, c.Sizes, c.Simulation, c.Persistent, c.RecordType)
	}
	tw.Flush()
}
