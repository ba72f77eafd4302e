package worksheet

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
)

// memCursor is an in-memory CursorStore.
type memCursor struct {
	mu     sync.Mutex
	values map[string]int64
	err    error
}

func newMemCursor() *memCursor {
	return &memCursor{values: make(map[string]int64)}
}

func (m *memCursor) Increment(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.values[key]++
	return m.values[key], nil
}

func TestRotatorRoundRobin(t *testing.T) {
	pools := [][]string{{"a"}, {"b", "c"}, {"d"}}
	cursor := newMemCursor()
	r, err := NewRotator(cursor, pools)
	if err != nil {
		t.Fatal(err)
	}

	const calls = 7
	for i := 0; i < calls; i++ {
		got, err := r.Next(context.Background())
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if want := pools[i%len(pools)]; !reflect.DeepEqual(got, want) {
			t.Errorf("call %d: got %v, want %v", i, got, want)
		}
	}
	if cursor.values[CursorKey] != calls {
		t.Errorf("stored cursor = %d, want %d", cursor.values[CursorKey], calls)
	}
}

func TestRotatorReturnsCopies(t *testing.T) {
	pools := [][]string{{"a", "b"}}
	r, err := NewRotator(newMemCursor(), pools)
	if err != nil {
		t.Fatal(err)
	}
	pools[0][0] = "mutated"

	got, _ := r.Next(context.Background())
	got[1] = "changed"
	again, _ := r.Next(context.Background())
	if !reflect.DeepEqual(again, []string{"a", "b"}) {
		t.Errorf("rotation state leaked: %v", again)
	}
}

func TestRotatorCursorError(t *testing.T) {
	cursor := newMemCursor()
	cursor.err = errors.New("database is locked")
	r, err := NewRotator(cursor, DefaultPools)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Next(context.Background()); err == nil {
		t.Fatal("expected cursor error")
	}
}

func TestValidatePools(t *testing.T) {
	tests := []struct {
		name  string
		pools [][]string
		ok    bool
	}{
		{"default", DefaultPools, true},
		{"none", nil, false},
		{"empty pool", [][]string{{"a"}, {}}, false},
		{"blank label", [][]string{{"a", "  "}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePools(tt.pools)
			if (err == nil) != tt.ok {
				t.Errorf("ValidatePools err = %v, want ok=%v", err, tt.ok)
			}
		})
	}
	if _, err := NewRotator(nil, DefaultPools); err == nil {
		t.Error("expected error for nil cursor")
	}
}

func TestUpcomingMatchesNext(t *testing.T) {
	pools := [][]string{{"a"}, {"b"}, {"c"}}
	cur := newMemCursor()
	r, err := NewRotator(cur, pools)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		idx, want := Upcoming(pools, cur.values[CursorKey])
		got, err := r.Next(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if got[0] != want[0] || idx != i%3 {
			t.Fatalf("step %d: Upcoming = %d %v, Next served %v", i, idx, want, got)
		}
	}
	if idx, pool := Upcoming(nil, 4); idx != 0 || pool != nil {
		t.Errorf("Upcoming(nil) = %d %v", idx, pool)
	}
}
