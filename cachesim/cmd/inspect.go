package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/trace"
)

var recordedTables = map[string]any{
	datarecording.ExecInfoTable: datarecording.ExecInfo{},
	trace.AccessTable:           trace.AccessEntry{},
	trace.EventTable:            trace.EventEntry{},
}

func newInspectCommand() *cobra.Command {
	var (
		table string
		where string
		limit int
	)

	inspectCmd := &cobra.Command{
		Use:   "inspect <database>",
		Short: "Print what a recorded run stored.",
		Long: "inspect lists the tables of a database written with --record. " +
			"With --table, it prints the rows of one table.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return errors.Wrap(err, "opening database")
			}

			reader, err := datarecording.NewReader(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			for name, sample := range recordedTables {
				reader.MapTable(name, sample)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if table == "" {
				return listTables(ctx, cmd.OutOrStdout(), reader)
			}

			return printTable(ctx, cmd.OutOrStdout(), reader, table,
				datarecording.QueryParams{Where: where, Limit: limit})
		},
	}

	inspectCmd.Flags().StringVar(&table, "table", "", "Table to print.")
	inspectCmd.Flags().StringVar(&where, "where", "",
		"Filter rows with an SQL condition, such as \"DCHit = 0\".")
	inspectCmd.Flags().IntVar(&limit, "limit", 20,
		"Maximum number of rows to print. 0 prints all rows.")

	return inspectCmd
}

func listTables(
	ctx context.Context,
	out io.Writer,
	reader datarecording.DataReader,
) error {
	tables, err := reader.ListTables(ctx)
	if err != nil {
		return errors.Wrap(err, "listing tables")
	}

	for _, t := range tables {
		_, count, err := reader.Query(ctx, t,
			datarecording.QueryParams{Limit: 1})
		if err != nil {
			fmt.Fprintln(out, t)
			continue
		}

		fmt.Fprintf(out, "%s\t%d rows\n", t, count)
	}

	return nil
}

func printTable(
	ctx context.Context,
	out io.Writer,
	reader datarecording.DataReader,
	table string,
	params datarecording.QueryParams,
) error {
	if _, ok := recordedTables[table]; !ok {
		return errors.Errorf("unknown table %q", table)
	}

	switch table {
	case trace.AccessTable:
		params.OrderBy = "Seq"
	case trace.EventTable:
		params.OrderBy = "Seq, Step"
	}

	rows, total, err := reader.Query(ctx, table, params)
	if err != nil {
		return errors.Wrapf(err, "querying %s", table)
	}

	for _, row := range rows {
		fmt.Fprintf(out, "%+v\n", row)
	}

	if len(rows) < total {
		fmt.Fprintf(out, "... %d of %d rows shown\n", len(rows), total)
	}

	return nil
}
