package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	prompt "github.com/c-bata/go-prompt"
	"github.com/spf13/cobra"

	"github.com/xtxerr/spark/internal/storage/query"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions

	Dir         string
	Interactive bool
	Summary     bool
	Table       string
	Event       int64
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Run SQL over the category files of a run",
		Long: `Run SQL over the Parquet output of a run. Every category file is a
view named after the category; the events index is the view "events".

Example:
  spark query --dir ./out 'SELECT event, count(*) FROM "ExampleCal" GROUP BY event'
  spark query --dir ./out --summary
  spark query --dir ./out --table ExampleRaw --event 3
  spark query --dir ./out -i`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("dir") {
				opts.Config.Output.Dir = opts.Dir
			}
			return runQuery(cmd, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&opts.Dir, "dir", "d", "", "output directory (overrides config)")
	cmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false, "interactive prompt")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "print a summary of every category")
	cmd.Flags().StringVar(&opts.Table, "table", "", "category to print the records of (with --event)")
	cmd.Flags().Int64Var(&opts.Event, "event", -1, "event whose records are printed (with --table)")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *QueryOptions, sql string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	svc, err := query.New(opts.Config)
	if err != nil {
		return WrapExitError(ExitFailure, "open query service", err)
	}
	defer svc.Close()

	if _, err := svc.Refresh(ctx); err != nil {
		return WrapExitError(ExitCommandError, "load output", err)
	}

	switch {
	case opts.Interactive:
		runPrompt(ctx, svc, out)
		return nil
	case opts.Summary:
		return printSummaries(ctx, svc, out)
	case opts.Table != "":
		if opts.Event < 0 {
			return WrapExitError(ExitCommandError, "--table needs --event", nil)
		}
		rows, err := svc.EventRecords(ctx, opts.Table, uint64(opts.Event))
		if err != nil {
			return WrapExitError(ExitFailure, "query", err)
		}
		printRows(out, rows)
		return nil
	case sql != "":
		rows, err := svc.ExecuteSQL(ctx, sql)
		if err != nil {
			return WrapExitError(ExitFailure, "query", err)
		}
		printRows(out, rows)
		return nil
	}
	return cmd.Help()
}

func printSummaries(ctx context.Context, svc *query.Service, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tROWS\tEVENTS\tFIRST\tLAST")
	for _, name := range svc.Tables() {
		if name == "events" {
			continue
		}
		s, err := svc.Summary(ctx, name)
		if err != nil {
			return WrapExitError(ExitFailure, "summary", err)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", s.Name, s.Rows, s.Events, s.FirstEvent, s.LastEvent)
	}
	return tw.Flush()
}

// printRows writes rows as a table with the columns in lexical order.
func printRows(w io.Writer, rows []map[string]interface{}) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}

	cols := make([]string, 0, len(rows[0]))
	for c := range rows[0] {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for _, row := range rows {
		vals := make([]string, len(cols))
		for i, c := range cols {
			vals[i] = fmt.Sprint(row[c])
		}
		fmt.Fprintln(tw, strings.Join(vals, "\t"))
	}
	tw.Flush()
	fmt.Fprintf(w, "(%d rows)\n", len(rows))
}

var sqlKeywords = []string{
	"SELECT", "FROM", "WHERE", "GROUP BY", "ORDER BY", "LIMIT", "COUNT(*)",
	"AVG", "MIN", "MAX", "SUM", "DISTINCT", "JOIN", "USING", "DESCRIBE",
}

// completer suggests table names and SQL keywords for the word before the
// cursor.
func completer(tables []string) prompt.Completer {
	suggestions := make([]prompt.Suggest, 0, len(tables)+len(sqlKeywords))
	for _, t := range tables {
		suggestions = append(suggestions, prompt.Suggest{Text: fmt.Sprintf("%q", t), Description: "category"})
	}
	for _, k := range sqlKeywords {
		suggestions = append(suggestions, prompt.Suggest{Text: k})
	}
	return func(d prompt.Document) []prompt.Suggest {
		word := d.GetWordBeforeCursor()
		if word == "" {
			return nil
		}
		return prompt.FilterHasPrefix(suggestions, word, true)
	}
}

func runPrompt(ctx context.Context, svc *query.Service, w io.Writer) {
	fmt.Fprintf(w, "%d views: %s\n", len(svc.Tables()), strings.Join(svc.Tables(), ", "))
	fmt.Fprintln(w, "Type SQL, .tables, .summary or exit.")

	executor := func(in string) {
		in = strings.TrimSpace(in)
		switch in {
		case "", "exit", "quit":
			return
		case ".tables":
			fmt.Fprintln(w, strings.Join(svc.Tables(), "\n"))
			return
		case ".summary":
			if err := printSummaries(ctx, svc, w); err != nil {
				fmt.Fprintln(w, "error:", err)
			}
			return
		}
		rows, err := svc.ExecuteSQL(ctx, strings.TrimSuffix(in, ";"))
		if err != nil {
			fmt.Fprintln(w, "error:", err)
			return
		}
		printRows(w, rows)
	}

	p := prompt.New(executor, completer(svc.Tables()),
		prompt.OptionPrefix("spark> "),
		prompt.OptionTitle("spark query"),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			in = strings.TrimSpace(in)
			return breakline && (in == "exit" || in == "quit")
		}),
	)
	p.Run()
}
