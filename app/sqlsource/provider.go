package sqlsource

import (
	"context"
	"database/sql"
	"fmt"

	"gridquery/app/interfaces"
	"gridquery/app/query"

	_ "modernc.org/sqlite"
)

// Open opens (or creates) a SQLite database file
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}

// Provider serves filtered, sorted pages of one table. It implements
// query.DataProvider.
type Provider struct {
	db      *sql.DB
	table   string
	columns []string
	logger  interfaces.Logger
}

// NewProvider reads the table's columns and returns a provider over it
func NewProvider(ctx context.Context, db *sql.DB, table string, logger interfaces.Logger) (*Provider, error) {
	columns, err := TableColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q not found or has no columns", table)
	}
	return &Provider{db: db, table: table, columns: columns, logger: logger}, nil
}

// Columns returns the table's columns in declaration order
func (p *Provider) Columns() []string {
	return append([]string(nil), p.columns...)
}

// TableColumns lists a table's columns in declaration order
func TableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, fmt.Errorf("read columns of %q: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("read columns of %q: %w", table, err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// Fetch runs the count and page queries for req
func (p *Provider) Fetch(ctx context.Context, req query.ProviderRequest) (query.ProviderResponse, error) {
	countSQL, countArgs, pageSQL, pageArgs, err := Translate(p.table, p.columns, req)
	if err != nil {
		return query.ProviderResponse{}, err
	}
	logf(p.logger, "debug", "[SQL] %s %v", pageSQL, pageArgs)

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return query.ProviderResponse{}, fmt.Errorf("count %q: %w", p.table, err)
	}

	rows, err := p.db.QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return query.ProviderResponse{}, fmt.Errorf("query %q: %w", p.table, err)
	}
	defer rows.Close()

	out := make([]query.Row, 0, max(req.PageSize, 0))
	values := make([]any, len(p.columns))
	ptrs := make([]any, len(p.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return query.ProviderResponse{}, fmt.Errorf("scan %q: %w", p.table, err)
		}
		row := make(query.Row, len(p.columns))
		for i, col := range p.columns {
			if values[i] != nil {
				row[col] = cellValue(values[i])
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return query.ProviderResponse{}, fmt.Errorf("query %q: %w", p.table, err)
	}
	return query.ProviderResponse{Rows: out, Total: total}, nil
}

func logf(logger interfaces.Logger, level, format string, args ...any) {
	if logger != nil {
		logger.Log(level, fmt.Sprintf(format, args...))
	}
}
