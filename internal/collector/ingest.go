package collector

import (
	"context"
	"fmt"
	"time"

	"TradeSentry/internal/model"
	"TradeSentry/internal/store"

	"golang.org/x/time/rate"
)

// Ingestor pulls the latest bars from the provider and performs idempotent
// upserts into the snapshot store. A shared rate limiter spaces provider
// requests so a multi-instrument cycle doesn't hammer the endpoint.
type Ingestor struct {
	Fetcher Fetcher
	Store   store.Store
	Limiter *rate.Limiter

	now func() time.Time // overridable in tests
}

// NewIngestor creates an ingestor. perRequestDelay throttles provider calls;
// zero disables throttling.
func NewIngestor(f Fetcher, s store.Store, perRequestDelay time.Duration) *Ingestor {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if perRequestDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(perRequestDelay), 1)
	}
	return &Ingestor{Fetcher: f, Store: s, Limiter: limiter, now: time.Now}
}

// IngestMinuteSnapshot fetches the latest bar, stamps it with the current
// minute, and appends it to the minute trajectory. The fetched bar is
// returned even when the write fails (*store.PersistError), so the caller
// can keep the cycle going with the live value.
func (g *Ingestor) IngestMinuteSnapshot(ctx context.Context, code string) (model.Bar, error) {
	if err := g.Limiter.Wait(ctx); err != nil {
		return model.Bar{}, &FetchError{Code: code, Err: err}
	}
	bar, err := g.Fetcher.FetchLatest(ctx, code)
	if err != nil {
		return model.Bar{}, err
	}
	bar.BarTime = g.now().In(model.Beijing).Truncate(time.Minute)
	if err := g.Store.UpsertMinuteSnapshot(ctx, bar); err != nil {
		return bar, err
	}
	return bar, nil
}

// IngestDaily fetches the latest bar and upserts today's daily row.
// Intraday this overwrites the same (code, trade date) key each cycle, which
// is the idempotence the store contract promises.
func (g *Ingestor) IngestDaily(ctx context.Context, code string) (model.Bar, error) {
	if err := g.Limiter.Wait(ctx); err != nil {
		return model.Bar{}, &FetchError{Code: code, Err: err}
	}
	bar, err := g.Fetcher.FetchLatest(ctx, code)
	if err != nil {
		return model.Bar{}, err
	}
	if err := g.Store.UpsertDaily(ctx, bar); err != nil {
		return bar, err
	}
	return bar, nil
}

// IngestCycle fetches the latest bar once and persists both views of it:
// today's daily row and the current minute snapshot. The bar is returned
// even when a write fails so the cycle can continue on the fetched value.
func (g *Ingestor) IngestCycle(ctx context.Context, code string) (model.Bar, error) {
	if err := g.Limiter.Wait(ctx); err != nil {
		return model.Bar{}, &FetchError{Code: code, Err: err}
	}
	bar, err := g.Fetcher.FetchLatest(ctx, code)
	if err != nil {
		return model.Bar{}, err
	}
	bar.BarTime = g.now().In(model.Beijing).Truncate(time.Minute)

	var persistErr error
	if err := g.Store.UpsertDaily(ctx, bar); err != nil {
		persistErr = err
	}
	if err := g.Store.UpsertMinuteSnapshot(ctx, bar); err != nil && persistErr == nil {
		persistErr = err
	}
	return bar, persistErr
}

// Backfill pulls up to limit daily bars and upserts them all, filling
// prev_close/change from consecutive rows when the provider omits them.
// Returns the number of rows written.
func (g *Ingestor) Backfill(ctx context.Context, code string, limit int) (int, error) {
	if err := g.Limiter.Wait(ctx); err != nil {
		return 0, &FetchError{Code: code, Err: err}
	}
	bars, err := g.Fetcher.FetchDailyBars(ctx, code, limit)
	if err != nil {
		return 0, err
	}
	for i, bar := range bars {
		if bar.PrevClose > 0 && bar.Change == 0 {
			bar.Change = bar.Close - bar.PrevClose
		}
		if err := g.Store.UpsertDaily(ctx, bar); err != nil {
			return i, fmt.Errorf("backfill %s at %s: %w", code, bar.TradeDate, err)
		}
	}
	return len(bars), nil
}
