package postgres

import (
	"context"
	"fmt"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/dispatch"
	"github.com/jackc/pgx/v5"
)

// ExecResult is returned by catalog statements marked exec.
type ExecResult struct {
	RowsAffected int64 `json:"rows_affected"`
}

// QueryOperations turns every catalog entry into an operation whose handler
// runs the entry's SQL with the request params bound positionally. Query
// statements return []map[string]any, one map per row.
func QueryOperations(db DB, catalog *dispatch.Catalog) []goGate.Operation {
	if catalog == nil {
		return nil
	}
	ops := make([]goGate.Operation, 0, len(catalog.Operations))
	for _, entry := range catalog.Operations {
		params := entry.Params
		if params == nil {
			params = []string{}
		}
		ops = append(ops, goGate.Operation{
			Area:    entry.Area,
			Object:  entry.Object,
			Method:  entry.Method,
			Params:  params,
			Handler: sqlHandler(db, entry),
		})
	}
	return ops
}

func sqlHandler(db DB, entry dispatch.CatalogEntry) dispatch.Handler {
	if entry.Exec {
		return func(ctx context.Context, params []any) (any, error) {
			tag, err := db.Exec(ctx, entry.SQL, params...)
			if err != nil {
				return nil, fmt.Errorf("exec %s: %w", entry.Key(), err)
			}
			return ExecResult{RowsAffected: tag.RowsAffected()}, nil
		}
	}
	return func(ctx context.Context, params []any) (any, error) {
		rows, err := db.Query(ctx, entry.SQL, params...)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", entry.Key(), err)
		}
		out, err := pgx.CollectRows(rows, pgx.RowToMap)
		if err != nil {
			return nil, fmt.Errorf("collect %s: %w", entry.Key(), err)
		}
		return out, nil
	}
}
