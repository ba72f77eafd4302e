package worksheet

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CursorKey is the configs row holding the theme rotation cursor.
const CursorKey = "topic_index"

// DefaultPools is the built-in theme rotation.
var DefaultPools = [][]string{
	{"familia", "comida", "rutinas diarias"},
	{"viajes", "hoteles", "transporte público"},
	{"compras", "dinero", "tiendas"},
	{"clima", "estaciones", "naturaleza"},
	{"salud", "actividad física", "deportes"},
	{"tecnología", "oficina", "estudio"},
}

// CursorStore is the persisted counter behind the Rotator. Increment must
// be atomic across processes: it creates the counter at 1 when absent,
// otherwise adds one, and returns the new value.
type CursorStore interface {
	Increment(ctx context.Context, key string) (int64, error)
}

// Rotator hands out theme pools round-robin. The position is kept in the
// database, never in process memory.
type Rotator struct {
	cursor CursorStore
	pools  [][]string
}

// NewRotator validates pools and returns a Rotator over them.
func NewRotator(cursor CursorStore, pools [][]string) (*Rotator, error) {
	if cursor == nil {
		return nil, errors.New("theme rotator: cursor store is required")
	}
	if err := ValidatePools(pools); err != nil {
		return nil, err
	}
	cp := make([][]string, len(pools))
	for i, p := range pools {
		cp[i] = append([]string(nil), p...)
	}
	return &Rotator{cursor: cursor, pools: cp}, nil
}

// ValidatePools rejects an empty rotation, empty pools and blank labels.
func ValidatePools(pools [][]string) error {
	if len(pools) == 0 {
		return errors.New("theme rotator: at least one theme pool is required")
	}
	for i, p := range pools {
		if len(p) == 0 {
			return fmt.Errorf("theme pool %d is empty", i)
		}
		for _, label := range p {
			if strings.TrimSpace(label) == "" {
				return fmt.Errorf("theme pool %d has a blank label", i)
			}
		}
	}
	return nil
}

// Next advances the cursor by one and returns the pool it pointed at
// before the advance. The first call on an empty store serves pool 0.
func (r *Rotator) Next(ctx context.Context) ([]string, error) {
	n, err := r.cursor.Increment(ctx, CursorKey)
	if err != nil {
		return nil, fmt.Errorf("advance theme cursor: %w", err)
	}
	return append([]string(nil), r.pools[poolIndex(n-1, len(r.pools))]...), nil
}

// Upcoming returns the index and pool the next call to Next will serve,
// given the stored cursor value (0 when unset). It never moves the cursor.
func Upcoming(pools [][]string, cursor int64) (int, []string) {
	if len(pools) == 0 {
		return 0, nil
	}
	idx := poolIndex(cursor, len(pools))
	return idx, append([]string(nil), pools[idx]...)
}

func poolIndex(n int64, size int) int {
	idx := n % int64(size)
	if idx < 0 {
		idx += int64(size)
	}
	return int(idx)
}

// Len returns the number of pools in the rotation.
func (r *Rotator) Len() int {
	return len(r.pools)
}
