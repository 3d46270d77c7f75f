package postgres

import (
	"context"
	"fmt"

	goGate "github.com/MrEthical07/goGate"
)

// LoadGrants reads every row of profile_grants in a stable order.
func LoadGrants(ctx context.Context, db DB) ([]goGate.Grant, error) {
	stmt, args, err := statementBuilder().
		Select("profile", "area", "object", "method").
		From("profile_grants").
		OrderBy("profile", "area", "object", "method").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select grants sql: %w", err)
	}

	rows, err := db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select grants: %w", err)
	}
	defer rows.Close()

	var out []goGate.Grant
	for rows.Next() {
		var g goGate.Grant
		if err := rows.Scan(&g.Profile, &g.Key.Area, &g.Key.Object, &g.Key.Method); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}
	return out, nil
}
