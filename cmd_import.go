package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"gridquery/app/fileloader"
	"gridquery/app/sqlsource"

	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var dbPath, table string
	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Load a data file or directory into a SQLite table",
		Long: `Load a data file or directory into a SQLite table so it can be queried
page by page with --table.

  gridquery import sales.csv --db sales.db
  gridquery run sales.db --table sales 'region=East | sort price desc'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]
			if table == "" {
				table = defaultTableName(path)
			}

			options := fileOptions()
			if fileloader.IsDirectory(path) && options.MaxFiles == 0 {
				options.MaxFiles = cfg.MaxDirectoryFiles
			}
			ds, err := fileloader.Load(ctx, path, options, cfg.LoadWorkers, logger())
			if err != nil {
				return err
			}

			db, err := sqlsource.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := sqlsource.ImportRows(ctx, db, table, ds.Header, ds.Rows, logger())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows into %s:%s\n", n, dbPath, table)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "gridquery.db", "SQLite database file")
	cmd.Flags().StringVar(&table, "table", "", "table name (default derived from the file name)")
	return cmd
}

// defaultTableName strips directories and every extension: logs/app.json.gz -> app
func defaultTableName(path string) string {
	name := filepath.Base(filepath.Clean(path))
	if i := strings.Index(name, "."); i > 0 {
		name = name[:i]
	}
	return name
}
