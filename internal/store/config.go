package store

import (
	"context"
	"fmt"
	"strconv"

	entsql "entgo.io/ent/dialect/sql"
)

const configsTable = "configs"

// configRepo implements ConfigRepo over the configs table.
type configRepo struct {
	drv *entsql.Driver
}

func (r *configRepo) Get(ctx context.Context, key string) (string, error) {
	sel := entsql.Dialect(r.drv.Dialect()).
		Select("value").
		From(entsql.Table(configsTable)).
		Where(entsql.EQ("key", key))

	var values []string
	err := queryBuilder(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		return entsql.ScanSlice(rows, &values)
	})
	if err != nil {
		return "", fmt.Errorf("get config %q: %w", key, err)
	}
	if len(values) == 0 {
		return "", ErrNotFound
	}
	return values[0], nil
}

func (r *configRepo) Set(ctx context.Context, key, value string) error {
	ins := entsql.Dialect(r.drv.Dialect()).
		Insert(configsTable).
		Columns("key", "value").
		Values(key, value).
		OnConflict(
			entsql.ConflictColumns("key"),
			entsql.ResolveWithNewValues(),
		)
	if _, err := execBuilder(ctx, r.drv, ins); err != nil {
		return fmt.Errorf("set config %q: %w", key, err)
	}
	return nil
}

// Increment relies on a single INSERT ... ON CONFLICT DO UPDATE ... RETURNING
// statement, which the database executes atomically per row.
func (r *configRepo) Increment(ctx context.Context, key string) (int64, error) {
	ins := entsql.Dialect(r.drv.Dialect()).
		Insert(configsTable).
		Columns("key", "value").
		Values(key, "1").
		OnConflict(
			entsql.ConflictColumns("key"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				cur := u.Table().C("value")
				u.Set("value", entsql.Expr(fmt.Sprintf("CAST(CAST(%s AS INTEGER) + 1 AS TEXT)", cur)))
			}),
		).
		Returning("value")

	var values []string
	err := queryBuilder(ctx, r.drv, ins, func(rows *entsql.Rows) error {
		return entsql.ScanSlice(rows, &values)
	})
	if err != nil {
		return 0, fmt.Errorf("increment %q: %w", key, err)
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("increment %q: expected one row, got %d", key, len(values))
	}
	n, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("increment %q: stored value %q is not an integer: %w", key, values[0], err)
	}
	return n, nil
}
