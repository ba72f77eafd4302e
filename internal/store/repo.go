package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup by key matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned by WorksheetRepo.Commit when a worksheet with
	// the same content hash already exists for any user.
	ErrDuplicate = errors.New("duplicate worksheet content")

	// ErrConflict is returned when a unique constraint other than the
	// worksheet content hash rejects a write.
	ErrConflict = errors.New("already exists")
)

// DateLayout is the storage format of User.NextDelivery.
const DateLayout = "2006-01-02"

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int    // max results (0 = unlimited)
	Purpose string // exact purpose match when set
}

// User is a worksheet subscriber.
type User struct {
	ID           int
	Email        string
	Active       bool
	NextDelivery *time.Time // date only, UTC midnight
	CreatedAt    time.Time
}

// Recipient is an additional address for a user's worksheets.
type Recipient struct {
	ID        int
	UserID    int
	Email     string
	Name      string
	CreatedAt time.Time
}

// Worksheet is a persisted, validated worksheet.
type Worksheet struct {
	ID            int
	UserID        int
	CreatedAt     time.Time
	ContentHash   string
	Content       string
	Themes        []string
	SchemaVersion string
}

// NewWorksheet is the input to WorksheetRepo.Commit.
type NewWorksheet struct {
	UserID        int
	Content       string
	Themes        []string
	SchemaVersion string
}

// UserRepo manages subscribers.
type UserRepo interface {
	// Create inserts a user. Returns ErrConflict if the email is taken.
	Create(ctx context.Context, email string, nextDelivery *time.Time) (*User, error)

	// Get returns the user with id, or ErrNotFound.
	Get(ctx context.Context, id int) (*User, error)

	// GetByEmail returns the user with email, or ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// List returns all users ordered by id.
	List(ctx context.Context) ([]User, error)

	// Due returns active users whose next delivery date equals day.
	Due(ctx context.Context, day time.Time) ([]User, error)

	// SetActive toggles whether the sweep considers the user.
	SetActive(ctx context.Context, id int, active bool) error

	// SetNextDelivery schedules the user's next delivery date.
	SetNextDelivery(ctx context.Context, id int, day time.Time) error
}

// RecipientRepo manages additional addresses per user.
type RecipientRepo interface {
	// Add registers email for the user. Returns ErrConflict if present.
	Add(ctx context.Context, userID int, email, name string) (*Recipient, error)

	// Remove deletes the address. Returns ErrNotFound if absent.
	Remove(ctx context.Context, userID int, email string) error

	// List returns the user's recipients ordered by id.
	List(ctx context.Context, userID int) ([]Recipient, error)
}

// WorksheetRepo is the dedup and persistence gate for worksheets.
type WorksheetRepo interface {
	// Commit stores w as the user's only worksheet. It returns ErrDuplicate
	// without writing when the content hash already exists for any user.
	// Deleting the user's previous worksheets and inserting the new one
	// happen in a single transaction.
	Commit(ctx context.Context, w NewWorksheet) (*Worksheet, error)

	// Latest returns the user's most recent worksheet, or nil if none exist.
	Latest(ctx context.Context, userID int) (*Worksheet, error)

	// CountByHash returns how many worksheets carry hash.
	CountByHash(ctx context.Context, hash string) (int, error)

	// CountByUser returns how many worksheets the user owns.
	CountByUser(ctx context.Context, userID int) (int, error)
}

// ConfigRepo is a process-wide key/value store.
type ConfigRepo interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set upserts key.
	Set(ctx context.Context, key, value string) error

	// Increment atomically adds one to the integer stored at key, creating
	// it with value 1 when absent, and returns the new value. Concurrent
	// callers in any process observe distinct values.
	Increment(ctx context.Context, key string) (int64, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a persisted LLM call.
type LLMRequestEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates token usage for one purpose or model.
type LLMUsage struct {
	Key          string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns a single event, or nil if absent.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)

	// LLMUsageByPurpose aggregates usage grouped by purpose.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)

	// LLMUsageByModel aggregates usage grouped by model.
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}
