package tracking

import (
	"database/sql"
	"fmt"
)

// rowScanner is implemented by row types that know their column order
type rowScanner interface {
	scan(rows *sql.Rows) error
}

// collect scans every row into a new T
func collect[T any, PT interface {
	*T
	rowScanner
}](rows *sql.Rows) ([]*T, error) {
	defer rows.Close()

	var out []*T
	for rows.Next() {
		item := PT(new(T))
		if err := item.scan(rows); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, (*T)(item))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
