package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const recipientsTable = "recipients"

// recipientRepo implements RecipientRepo over the recipients table.
type recipientRepo struct {
	drv *entsql.Driver
}

func (r *recipientRepo) Add(ctx context.Context, userID int, email, name string) (*Recipient, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("add recipient: email is required")
	}
	now := time.Now().UTC()

	ins := entsql.Dialect(r.drv.Dialect()).
		Insert(recipientsTable).
		Columns("user_id", "email", "name", "created_at").
		Values(userID, email, name, now).
		Returning("id")

	var ids []int
	err := queryBuilder(ctx, r.drv, ins, func(rows *entsql.Rows) error {
		return entsql.ScanSlice(rows, &ids)
	})
	if err != nil {
		if isUnique(err) {
			return nil, fmt.Errorf("recipient %s: %w", email, ErrConflict)
		}
		if isForeignKey(err) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("add recipient: %w", err)
	}
	if len(ids) != 1 {
		return nil, fmt.Errorf("add recipient: no id returned")
	}
	return &Recipient{ID: ids[0], UserID: userID, Email: email, Name: name, CreatedAt: now}, nil
}

func (r *recipientRepo) Remove(ctx context.Context, userID int, email string) error {
	del := entsql.Dialect(r.drv.Dialect()).
		Delete(recipientsTable).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("email", normalizeEmail(email)),
		))
	n, err := execBuilder(ctx, r.drv, del)
	if err != nil {
		return fmt.Errorf("remove recipient: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("recipient %s: %w", email, ErrNotFound)
	}
	return nil
}

func (r *recipientRepo) List(ctx context.Context, userID int) ([]Recipient, error) {
	sel := entsql.Dialect(r.drv.Dialect()).
		Select("id", "user_id", "email", "name", "created_at").
		From(entsql.Table(recipientsTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy("id")

	var out []Recipient
	err := queryBuilder(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		for rows.Next() {
			var rc Recipient
			if err := rows.Scan(&rc.ID, &rc.UserID, &rc.Email, &rc.Name, &rc.CreatedAt); err != nil {
				return err
			}
			out = append(out, rc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	return out, nil
}
