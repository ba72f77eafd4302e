package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const llmEventsTable = "llm_request_events"

var llmEventColumns = []string{
	"id", "sequence", "timestamp", "provider", "model", "purpose",
	"input_tokens", "output_tokens", "latency_ms", "success",
	"error_message", "request_body", "response_body",
}

// eventRepo implements EventRepo over the llm_request_events table.
type eventRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}

	ins := entsql.Dialect(r.drv.Dialect()).
		Insert(llmEventsTable).
		Columns(llmEventColumns[1:]...).
		Values(
			seqNum, time.Now().UTC(), data.Provider, data.Model, data.Purpose,
			data.InputTokens, data.OutputTokens, data.LatencyMs, data.Success,
			data.ErrorMessage, data.RequestBody, data.ResponseBody,
		)
	if _, err := execBuilder(ctx, r.drv, ins); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	sel := entsql.Dialect(r.drv.Dialect()).
		Select(llmEventColumns...).
		From(entsql.Table(llmEventsTable)).
		OrderBy(entsql.Desc("sequence"))
	if opts.Purpose != "" {
		sel.Where(entsql.EQ("purpose", opts.Purpose))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	events, err := r.scan(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	return events, nil
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error) {
	sel := entsql.Dialect(r.drv.Dialect()).
		Select(llmEventColumns...).
		From(entsql.Table(llmEventsTable)).
		Where(entsql.EQ("id", id))
	events, err := r.scan(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("get LLM event %d: %w", id, err)
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	return r.usage(ctx, "purpose")
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]LLMUsage, error) {
	return r.usage(ctx, "model")
}

func (r *eventRepo) usage(ctx context.Context, column string) ([]LLMUsage, error) {
	sel := entsql.Dialect(r.drv.Dialect()).
		Select(
			column,
			entsql.As(entsql.Count("*"), "calls"),
			entsql.As(entsql.Sum("input_tokens"), "input_tokens"),
			entsql.As(entsql.Sum("output_tokens"), "output_tokens"),
			entsql.As(entsql.Sum("latency_ms"), "latency_ms"),
		).
		From(entsql.Table(llmEventsTable)).
		GroupBy(column).
		OrderBy(column)

	var out []LLMUsage
	err := queryBuilder(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		for rows.Next() {
			var (
				u                   LLMUsage
				in, outTok, latency sql.NullInt64
			)
			if err := rows.Scan(&u.Key, &u.Calls, &in, &outTok, &latency); err != nil {
				return err
			}
			u.InputTokens = int(in.Int64)
			u.OutputTokens = int(outTok.Int64)
			if u.Calls > 0 {
				u.AvgLatencyMs = latency.Int64 / int64(u.Calls)
			}
			out = append(out, u)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("LLM usage by %s: %w", column, err)
	}
	return out, nil
}

func (r *eventRepo) scan(ctx context.Context, sel *entsql.Selector) ([]LLMRequestEvent, error) {
	var events []LLMRequestEvent
	err := queryBuilder(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		for rows.Next() {
			var e LLMRequestEvent
			if err := rows.Scan(
				&e.ID, &e.Sequence, &e.Timestamp, &e.Provider, &e.Model, &e.Purpose,
				&e.InputTokens, &e.OutputTokens, &e.LatencyMs, &e.Success,
				&e.ErrorMessage, &e.RequestBody, &e.ResponseBody,
			); err != nil {
				return err
			}
			events = append(events, e)
		}
		return nil
	})
	return events, err
}
