package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/michaelssavage/spanish-worksheets/internal/delivery"
	"github.com/michaelssavage/spanish-worksheets/internal/store"
	"github.com/michaelssavage/spanish-worksheets/internal/worksheet"
)

func TestMain(m *testing.M) {
	// genai loads go.opencensus.io, whose stats worker starts at init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// scriptedDeliverer returns a canned outcome per email.
type scriptedDeliverer struct {
	mu       sync.Mutex
	outcomes map[string]func() (*delivery.Result, error)
	seen     []string

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

func (d *scriptedDeliverer) Generate(_ context.Context, u store.User) (*delivery.Result, error) {
	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		cur := d.maxInFlight.Load()
		if n <= cur || d.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}

	d.mu.Lock()
	d.seen = append(d.seen, u.Email)
	fn := d.outcomes[u.Email]
	d.mu.Unlock()
	if fn == nil {
		return created(true)
	}
	return fn()
}

func created(emailed bool) (*delivery.Result, error) {
	return &delivery.Result{
		Result:  &worksheet.Result{Outcome: worksheet.OutcomeCreated, Worksheet: &store.Worksheet{ID: 1}},
		Emailed: emailed,
	}, nil
}

func outcome(o worksheet.Outcome) func() (*delivery.Result, error) {
	return func() (*delivery.Result, error) {
		return &delivery.Result{Result: &worksheet.Result{Outcome: o}}, nil
	}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.Open(context.Background(), store.Config{
		Driver: store.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func addUser(t *testing.T, s *store.Store, email string, next *time.Time, active bool) store.User {
	t.Helper()
	u, err := s.Users().Create(context.Background(), email, next)
	require.NoError(t, err)
	if !active {
		require.NoError(t, s.Users().SetActive(context.Background(), u.ID, false))
	}
	return *u
}

func date(s string) time.Time {
	d, err := time.Parse(store.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func ptr(t time.Time) *time.Time { return &t }

func nextDelivery(t *testing.T, s *store.Store, id int) string {
	t.Helper()
	u, err := s.Users().Get(context.Background(), id)
	require.NoError(t, err)
	if u.NextDelivery == nil {
		return ""
	}
	return u.NextDelivery.Format(store.DateLayout)
}

func TestSweep(t *testing.T) {
	s := openStore(t)
	today := date("2026-03-10")

	ana := addUser(t, s, "ana@example.com", ptr(today), true)
	ben := addUser(t, s, "ben@example.com", ptr(today), true)
	cris := addUser(t, s, "cris@example.com", ptr(today), true)
	dani := addUser(t, s, "dani@example.com", ptr(today), true)
	eva := addUser(t, s, "eva@example.com", ptr(today), true)
	later := addUser(t, s, "later@example.com", ptr(date("2026-03-11")), true)
	paused := addUser(t, s, "paused@example.com", ptr(today), false)

	d := &scriptedDeliverer{outcomes: map[string]func() (*delivery.Result, error){
		"ben@example.com":  outcome(worksheet.OutcomeDuplicate),
		"cris@example.com": outcome(worksheet.OutcomeMalformed),
		"dani@example.com": func() (*delivery.Result, error) { return nil, errors.New("provider unavailable") },
		"eva@example.com":  func() (*delivery.Result, error) { return created(false) },
	}}

	sum, err := NewSweeper(d, s.Users(), DefaultConfig(), nil).Run(context.Background(), today)
	require.NoError(t, err)

	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, "2026-03-10", sum.Date)
	assert.Equal(t, 5, sum.Due)
	assert.Equal(t, 2, sum.Created)
	assert.Equal(t, 1, sum.Emailed)
	assert.Equal(t, 1, sum.EmailFailed)
	assert.Equal(t, 1, sum.Duplicate)
	assert.Equal(t, 1, sum.Malformed)
	assert.Equal(t, 1, sum.Failed)
	assert.Zero(t, sum.Unscheduled)

	for _, u := range []store.User{ana, ben, cris, dani, eva} {
		assert.Equal(t, "2026-03-12", nextDelivery(t, s, u.ID), "user %s", u.Email)
	}
	assert.Equal(t, "2026-03-11", nextDelivery(t, s, later.ID))
	assert.Equal(t, "2026-03-10", nextDelivery(t, s, paused.ID))
	assert.NotContains(t, d.seen, "later@example.com")
	assert.NotContains(t, d.seen, "paused@example.com")
}

func TestSweepSequentialOrder(t *testing.T) {
	s := openStore(t)
	today := date("2026-03-10")
	for _, e := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		addUser(t, s, e, ptr(today), true)
	}
	d := &scriptedDeliverer{}

	_, err := NewSweeper(d, s.Users(), Config{Concurrency: 0}, nil).Run(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, d.seen)
	assert.EqualValues(t, 1, d.maxInFlight.Load())
}

func TestSweepConcurrencyLimit(t *testing.T) {
	s := openStore(t)
	today := date("2026-03-10")
	for i := 0; i < 8; i++ {
		addUser(t, s, fmt.Sprintf("u%d@example.com", i), ptr(today), true)
	}
	d := &scriptedDeliverer{delay: 20 * time.Millisecond}

	sum, err := NewSweeper(d, s.Users(), Config{Concurrency: 3}, nil).Run(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 8, sum.Created)
	assert.LessOrEqual(t, d.maxInFlight.Load(), int32(3))
	assert.Len(t, d.seen, 8)
}

func TestSweepNothingDue(t *testing.T) {
	s := openStore(t)
	addUser(t, s, "ana@example.com", nil, true)
	d := &scriptedDeliverer{}

	sum, err := NewSweeper(d, s.Users(), DefaultConfig(), nil).Run(context.Background(), date("2026-03-10"))
	require.NoError(t, err)
	assert.Zero(t, sum.Due)
	assert.Empty(t, d.seen)
}

func TestSweepCancelled(t *testing.T) {
	s := openStore(t)
	today := date("2026-03-10")
	addUser(t, s, "ana@example.com", ptr(today), true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSweeper(&scriptedDeliverer{}, s.Users(), DefaultConfig(), nil).Run(ctx, today)
	assert.Error(t, err)
}
