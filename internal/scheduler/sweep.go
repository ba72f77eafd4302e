// Package scheduler runs the delivery sweep: every active user whose next
// delivery date is today gets a worksheet, and their next delivery moves
// two days ahead whatever happened.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/michaelssavage/spanish-worksheets/internal/delivery"
	"github.com/michaelssavage/spanish-worksheets/internal/logger"
	"github.com/michaelssavage/spanish-worksheets/internal/store"
	"github.com/michaelssavage/spanish-worksheets/internal/worksheet"
)

// Interval is the gap between deliveries.
const Interval = 2 * 24 * time.Hour

// Config controls the sweep.
type Config struct {
	// Concurrency is the number of users processed at once. Values below 2
	// run the sweep sequentially.
	Concurrency int `yaml:"concurrency"`
	// CronSecret authenticates the HTTP trigger.
	CronSecret string `yaml:"cron_secret"`
}

// DefaultConfig runs sequentially.
func DefaultConfig() Config {
	return Config{Concurrency: 1}
}

// Deliverer generates and emails a worksheet for one user.
// *delivery.Service implements it.
type Deliverer interface {
	Generate(ctx context.Context, user store.User) (*delivery.Result, error)
}

// Summary counts what a sweep did.
type Summary struct {
	RunID       string `json:"run_id"`
	Date        string `json:"date"`
	Due         int    `json:"due"`
	Created     int    `json:"created"`
	Duplicate   int    `json:"duplicate"`
	Malformed   int    `json:"malformed"`
	Failed      int    `json:"failed"`
	Emailed     int    `json:"emailed"`
	EmailFailed int    `json:"email_failed"`
	// Unscheduled counts users whose next delivery could not be moved.
	Unscheduled int `json:"unscheduled"`
}

// Sweeper processes due users.
type Sweeper struct {
	deliverer   Deliverer
	users       store.UserRepo
	concurrency int
	log         *logger.Logger
}

// NewSweeper returns a Sweeper.
func NewSweeper(d Deliverer, users store.UserRepo, cfg Config, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.Nop()
	}
	n := cfg.Concurrency
	if n < 1 {
		n = 1
	}
	return &Sweeper{deliverer: d, users: users, concurrency: n, log: log.With("component", "sweep")}
}

// Run processes every active user due on day. A failure for one user is
// logged and counted; it never stops the others. The returned error is
// reserved for failing to list users or a cancelled context.
func (s *Sweeper) Run(ctx context.Context, day time.Time) (Summary, error) {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	sum := Summary{RunID: ulid.Make().String(), Date: day.Format(store.DateLayout)}
	log := s.log.With("run_id", sum.RunID, "date", sum.Date)

	users, err := s.users.Due(ctx, day)
	if err != nil {
		return sum, fmt.Errorf("list due users: %w", err)
	}
	sum.Due = len(users)
	log.Info("sweep started", "due", sum.Due, "concurrency", s.concurrency)

	next := day.Add(Interval)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, u := range users {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, rescheduled, err := s.deliver(gctx, u, next, log)
			mu.Lock()
			defer mu.Unlock()
			sum.record(res, err)
			if !rescheduled {
				sum.Unscheduled++
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info("sweep finished",
		"created", sum.Created,
		"duplicate", sum.Duplicate,
		"malformed", sum.Malformed,
		"failed", sum.Failed,
		"emailed", sum.Emailed,
		"email_failed", sum.EmailFailed,
	)
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	return sum, nil
}

// deliver handles one user and then reschedules them, also when the
// generation failed.
func (s *Sweeper) deliver(ctx context.Context, u store.User, next time.Time, log *logger.Logger) (*delivery.Result, bool, error) {
	log = log.With("user_id", u.ID)
	res, err := s.deliverer.Generate(ctx, u)
	if err != nil {
		log.Error("worksheet generation failed", "error", err)
	}

	if serr := s.users.SetNextDelivery(context.WithoutCancel(ctx), u.ID, next); serr != nil {
		log.Error("reschedule failed", "next_delivery", next.Format(store.DateLayout), "error", serr)
		return res, false, err
	}
	return res, true, err
}

func (sum *Summary) record(res *delivery.Result, err error) {
	if err != nil || res == nil || res.Result == nil {
		sum.Failed++
		return
	}
	switch res.Outcome {
	case worksheet.OutcomeCreated:
		sum.Created++
		if res.Emailed {
			sum.Emailed++
		} else {
			sum.EmailFailed++
		}
	case worksheet.OutcomeDuplicate:
		sum.Duplicate++
	case worksheet.OutcomeMalformed:
		sum.Malformed++
	}
}
