package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const usersTable = "users"

var userColumns = []string{"id", "email", "active", "next_delivery", "created_at"}

// userRepo implements UserRepo over the users table.
type userRepo struct {
	drv *entsql.Driver
}

func (r *userRepo) Create(ctx context.Context, email string, nextDelivery *time.Time) (*User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("create user: email is required")
	}
	now := time.Now().UTC()

	var next any
	if nextDelivery != nil {
		next = nextDelivery.Format(DateLayout)
	}

	ins := entsql.Dialect(r.drv.Dialect()).
		Insert(usersTable).
		Columns("email", "active", "next_delivery", "created_at").
		Values(email, true, next, now).
		Returning("id")

	var ids []int
	err := queryBuilder(ctx, r.drv, ins, func(rows *entsql.Rows) error {
		return entsql.ScanSlice(rows, &ids)
	})
	if err != nil {
		if isUnique(err) {
			return nil, fmt.Errorf("create user %s: %w", email, ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	if len(ids) != 1 {
		return nil, fmt.Errorf("create user: no id returned")
	}

	u := &User{ID: ids[0], Email: email, Active: true, CreatedAt: now}
	if nextDelivery != nil {
		d := truncateDay(*nextDelivery)
		u.NextDelivery = &d
	}
	return u, nil
}

func (r *userRepo) Get(ctx context.Context, id int) (*User, error) {
	return r.one(ctx, entsql.EQ("id", id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.one(ctx, entsql.EQ("email", normalizeEmail(email)))
}

func (r *userRepo) List(ctx context.Context) ([]User, error) {
	return r.query(ctx, nil)
}

func (r *userRepo) Due(ctx context.Context, day time.Time) ([]User, error) {
	return r.query(ctx, entsql.And(
		entsql.EQ("active", true),
		entsql.EQ("next_delivery", day.Format(DateLayout)),
	))
}

func (r *userRepo) SetActive(ctx context.Context, id int, active bool) error {
	return r.update(ctx, id, "active", active)
}

func (r *userRepo) SetNextDelivery(ctx context.Context, id int, day time.Time) error {
	return r.update(ctx, id, "next_delivery", day.Format(DateLayout))
}

func (r *userRepo) update(ctx context.Context, id int, column string, value any) error {
	upd := entsql.Dialect(r.drv.Dialect()).
		Update(usersTable).
		Set(column, value).
		Where(entsql.EQ("id", id))
	n, err := execBuilder(ctx, r.drv, upd)
	if err != nil {
		return fmt.Errorf("update user %d %s: %w", id, column, err)
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *userRepo) one(ctx context.Context, where *entsql.Predicate) (*User, error) {
	users, err := r.query(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return &users[0], nil
}

func (r *userRepo) query(ctx context.Context, where *entsql.Predicate) ([]User, error) {
	sel := entsql.Dialect(r.drv.Dialect()).
		Select(userColumns...).
		From(entsql.Table(usersTable)).
		OrderBy("id")
	if where != nil {
		sel.Where(where)
	}

	var users []User
	err := queryBuilder(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		for rows.Next() {
			var (
				u    User
				next sql.NullString
			)
			if err := rows.Scan(&u.ID, &u.Email, &u.Active, &next, &u.CreatedAt); err != nil {
				return err
			}
			if next.Valid && next.String != "" {
				d, err := time.Parse(DateLayout, next.String)
				if err != nil {
					return fmt.Errorf("user %d: bad next_delivery %q: %w", u.ID, next.String, err)
				}
				u.NextDelivery = &d
			}
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	return users, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
