package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const worksheetsTable = "worksheets"

// ContentHash returns the dedup key of a worksheet: the lowercase hex
// SHA-256 of its content bytes.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// worksheetRepo implements WorksheetRepo over the worksheets table.
type worksheetRepo struct {
	drv *entsql.Driver
}

func (r *worksheetRepo) Commit(ctx context.Context, w NewWorksheet) (*Worksheet, error) {
	hash := ContentHash(w.Content)
	now := time.Now().UTC()

	var themes any
	if w.Themes != nil {
		b, err := json.Marshal(w.Themes)
		if err != nil {
			return nil, fmt.Errorf("encode themes: %w", err)
		}
		themes = string(b)
	}

	b := entsql.Dialect(r.drv.Dialect())
	var id int
	err := withTx(ctx, r.drv, func(tx dialect.Tx) error {
		if lock := lockUser(b, r.drv.Dialect(), w.UserID); lock != nil {
			if err := queryBuilder(ctx, tx, lock, func(*entsql.Rows) error { return nil }); err != nil {
				return fmt.Errorf("lock user %d: %w", w.UserID, err)
			}
		}
		n, err := countWhere(ctx, tx, b, entsql.EQ("content_hash", hash))
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicate
		}

		del := b.Delete(worksheetsTable).Where(entsql.EQ("user_id", w.UserID))
		if _, err := execBuilder(ctx, tx, del); err != nil {
			return fmt.Errorf("delete previous worksheets: %w", err)
		}

		ins := b.Insert(worksheetsTable).
			Columns("user_id", "created_at", "content_hash", "content", "themes", "schema_version").
			Values(w.UserID, now, hash, w.Content, themes, w.SchemaVersion).
			Returning("id")
		var ids []int
		err = queryBuilder(ctx, tx, ins, func(rows *entsql.Rows) error {
			return entsql.ScanSlice(rows, &ids)
		})
		switch {
		case isUnique(err):
			// Another writer committed the same content first.
			return ErrDuplicate
		case isForeignKey(err):
			return fmt.Errorf("user %d: %w", w.UserID, ErrNotFound)
		case err != nil:
			return fmt.Errorf("insert worksheet: %w", err)
		case len(ids) != 1:
			return fmt.Errorf("insert worksheet: no id returned")
		}
		id = ids[0]
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("commit worksheet: %w", err)
	}

	return &Worksheet{
		ID:            id,
		UserID:        w.UserID,
		CreatedAt:     now,
		ContentHash:   hash,
		Content:       w.Content,
		Themes:        w.Themes,
		SchemaVersion: w.SchemaVersion,
	}, nil
}

// lockUser returns the row lock that serializes commits for one user, or
// nil when the dialect needs none. Under Postgres READ COMMITTED two
// overlapping commits would otherwise both delete nothing and both insert.
// SQLite allows a single writer at a time.
func lockUser(b *entsql.DialectBuilder, name string, userID int) querierOf {
	if name != dialect.Postgres {
		return nil
	}
	return b.Select("id").
		From(entsql.Table(usersTable)).
		Where(entsql.EQ("id", userID)).
		ForUpdate()
}

func (r *worksheetRepo) Latest(ctx context.Context, userID int) (*Worksheet, error) {
	sel := entsql.Dialect(r.drv.Dialect()).
		Select("id", "user_id", "created_at", "content_hash", "content", "themes", "schema_version").
		From(entsql.Table(worksheetsTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Limit(1)

	var out *Worksheet
	err := queryBuilder(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		if !rows.Next() {
			return nil
		}
		var (
			w      Worksheet
			themes sql.NullString
		)
		if err := rows.Scan(&w.ID, &w.UserID, &w.CreatedAt, &w.ContentHash, &w.Content, &themes, &w.SchemaVersion); err != nil {
			return err
		}
		if themes.Valid && themes.String != "" {
			if err := json.Unmarshal([]byte(themes.String), &w.Themes); err != nil {
				return fmt.Errorf("decode themes: %w", err)
			}
		}
		out = &w
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("latest worksheet for user %d: %w", userID, err)
	}
	return out, nil
}

func (r *worksheetRepo) CountByHash(ctx context.Context, hash string) (int, error) {
	return countWhere(ctx, r.drv, entsql.Dialect(r.drv.Dialect()), entsql.EQ("content_hash", hash))
}

func (r *worksheetRepo) CountByUser(ctx context.Context, userID int) (int, error) {
	return countWhere(ctx, r.drv, entsql.Dialect(r.drv.Dialect()), entsql.EQ("user_id", userID))
}

func countWhere(ctx context.Context, q querier, b *entsql.DialectBuilder, where *entsql.Predicate) (int, error) {
	sel := b.Select().
		Count().
		From(entsql.Table(worksheetsTable)).
		Where(where)
	var counts []int
	err := queryBuilder(ctx, q, sel, func(rows *entsql.Rows) error {
		return entsql.ScanSlice(rows, &counts)
	})
	if err != nil {
		return 0, fmt.Errorf("count worksheets: %w", err)
	}
	if len(counts) == 0 {
		return 0, nil
	}
	return counts[0], nil
}
