package store

import (
	"context"
	"fmt"
)

const eventSequenceKey = "event_sequence"

// sequenceCounter hands out the monotonic sequence number stamped on every
// event. Table ids are per table and can be reused after deletes, so the
// sequence lives in the configs table and is bumped with the same atomic
// upsert the theme cursor uses. Values are unique across processes.
type sequenceCounter struct {
	configs ConfigRepo
}

func newSequenceCounter(configs ConfigRepo) *sequenceCounter {
	return &sequenceCounter{configs: configs}
}

// Next returns the next sequence number, starting at 1.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	n, err := sc.configs.Increment(ctx, eventSequenceKey)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return n, nil
}
