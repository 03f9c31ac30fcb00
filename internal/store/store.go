package store

import (
	"context"
	"fmt"

	"TradeSentry/internal/model"
)

// Store is the durable table of per-instrument daily bars and per-minute
// intraday snapshots.
//
// Writes are keyed upserts, so concurrent writers converge to
// last-write-wins per key. Transient failures are reported per call and not
// retried here; retry policy belongs to the caller.
type Store interface {
	// UpsertDaily replaces any existing row for (code, trade date).
	UpsertDaily(ctx context.Context, bar model.Bar) error
	// UpsertMinuteSnapshot inserts a row for (code, minute-truncated bar
	// time). Only an exact same-minute re-delivery overwrites; earlier
	// minutes are never touched, preserving the intraday trajectory.
	UpsertMinuteSnapshot(ctx context.Context, bar model.Bar) error
	// QueryHistory returns up to lookbackDays daily bars, oldest first.
	// Fewer rows than requested is not an error.
	QueryHistory(ctx context.Context, code string, lookbackDays int) ([]model.Bar, error)
	// QueryMinuteTrajectory returns the minute snapshots for one trade
	// date, oldest first. An empty slice is valid (pre-market, or nothing
	// collected yet).
	QueryMinuteTrajectory(ctx context.Context, code, tradeDate string) ([]model.Bar, error)
	Close() error
}

// PersistError marks a store write failure. The pipeline logs it and keeps
// going with the just-fetched bar, since the cycle still needs a value for
// "today".
type PersistError struct {
	Op   string
	Code string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Code, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
