package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gridquery/app/interfaces"
	"gridquery/app/metrics"
	"gridquery/app/query"
)

// ImportRows creates table with one untyped column per header entry and
// inserts rows in a single transaction. Untyped columns keep each value's
// storage class, so numbers and text stay apart as they do in memory.
// An existing table is replaced.
func ImportRows(ctx context.Context, db *sql.DB, table string, header []string, rows []query.Row, logger interfaces.Logger) (int, error) {
	if len(header) == 0 {
		return 0, fmt.Errorf("import %q: no columns", table)
	}

	cols := make([]string, len(header))
	marks := make([]string, len(header))
	for i, h := range header {
		cols[i] = QuoteIdent(h)
		marks[i] = "?"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("import %q: %w", table, err)
	}
	defer tx.Rollback()

	stmts := []string{
		"DROP TABLE IF EXISTS " + QuoteIdent(table),
		"CREATE TABLE " + QuoteIdent(table) + " (" + strings.Join(cols, ", ") + ")",
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return 0, fmt.Errorf("import %q: %w", table, err)
		}
	}

	insert, err := tx.PrepareContext(ctx, "INSERT INTO "+QuoteIdent(table)+" ("+strings.Join(cols, ", ")+") VALUES ("+strings.Join(marks, ", ")+")")
	if err != nil {
		return 0, fmt.Errorf("import %q: %w", table, err)
	}
	defer insert.Close()

	args := make([]any, len(header))
	for n, row := range rows {
		if n%interfaces.ProgressUpdateInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		for i, h := range header {
			args[i] = sqlValue(row[h])
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("import %q row %d: %w", table, n+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("import %q: %w", table, err)
	}
	metrics.RowsLoaded.WithLabelValues("sqlite").Add(float64(len(rows)))
	logf(logger, "info", "[IMPORT] %d rows into %s", len(rows), table)
	return len(rows), nil
}
