package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lychee-technology/smaq"
	"github.com/lychee-technology/smaq/executor"
)

func newExecuteCmd(log *zap.Logger) *cobra.Command {
	var queryText string
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Run a single predicate query and print its result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if queryText == "" {
				return fmt.Errorf("--query is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			expanded, err := expandGlobs(ctx, queryText, cfg.DuckDB.S3Region)
			if err != nil {
				return err
			}

			eng, err := executor.Open(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("open engine: %w", err)
			}
			defer eng.Close()

			result, err := eng.Execute(ctx, expanded)
			if err != nil {
				return fmt.Errorf("execute query: %w", err)
			}

			return printResult(result, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&queryText, "query", "q", "", "predicate query, e.g. SELECT * FROM 'orders.parquet' WHERE price > 100")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "print the result table as JSON instead of a text table")
	return cmd
}

func printResult(table *smaq.Table, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	}
	if table != nil {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, strings.Join(table.Columns, "\t"))
		for _, row := range table.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = fmt.Sprint(v)
			}
			fmt.Fprintln(w, strings.Join(cells, "\t"))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	fmt.Printf("%d row(s)\n", table.NumRows())
	return nil
}
