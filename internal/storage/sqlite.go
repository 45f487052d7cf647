// sqlite.go - Catalog rows from a SQLite table

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"

	_ "modernc.org/sqlite"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSource reads every column of one table. Column names become headers.
type SQLiteSource struct {
	path  string
	table string
}

// NewSQLiteSource validates the table name and creates the source.
func NewSQLiteSource(path, table string) (*SQLiteSource, error) {
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid sqlite table name %q", table)
	}
	return &SQLiteSource{path: path, table: table}, nil
}

// Describe returns path#table.
func (s *SQLiteSource) Describe() string {
	return s.path + "#" + s.table
}

// Rows selects all rows in rowid order. NULL cells become empty strings.
func (s *SQLiteSource) Rows(ctx context.Context) (*Table, error) {
	// sql.Open would create a missing file
	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM "%s"`, s.table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	headers, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	table := &Table{Headers: headers}
	for rows.Next() {
		cells := make([]sql.NullString, len(headers))
		dest := make([]any, len(headers))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make([]string, len(headers))
		for i, c := range cells {
			if c.Valid {
				row[i] = c.String
			}
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return table, nil
}
