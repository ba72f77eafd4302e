package store

import (
	"context"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqlgraph"
)

// querier is satisfied by both the driver and an open transaction.
type querier interface {
	Exec(ctx context.Context, query string, args, v any) error
	Query(ctx context.Context, query string, args, v any) error
}

// querierOf is the part of entsql builders the helpers below need.
type querierOf interface {
	Query() (string, []any)
}

func execBuilder(ctx context.Context, q querier, b querierOf) (int64, error) {
	query, args := b.Query()
	var res entsql.Result
	if err := q.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func queryBuilder(ctx context.Context, q querier, b querierOf, scan func(*entsql.Rows) error) error {
	query, args := b.Query()
	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return err
	}
	defer rows.Close()
	if err := scan(&rows); err != nil {
		return err
	}
	return rows.Err()
}

// withTx runs fn in a transaction, committing on nil and rolling back otherwise.
func withTx(ctx context.Context, drv *entsql.Driver, fn func(tx dialect.Tx) error) error {
	tx, err := drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rerr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isUnique(err error) bool {
	return sqlgraph.IsUniqueConstraintError(err)
}

func isForeignKey(err error) bool {
	return sqlgraph.IsForeignKeyConstraintError(err)
}
