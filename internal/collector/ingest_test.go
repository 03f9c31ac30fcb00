package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"TradeSentry/internal/model"
	"TradeSentry/internal/store"

	"github.com/stretchr/testify/require"
)

func fixedBars(code string, closes ...float64) []model.Bar {
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			Code:      code,
			TradeDate: time.Date(2025, 8, 20+i, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			Open:      c - 0.01, High: c + 0.01, Low: c - 0.02, Close: c,
		}
	}
	return bars
}

func TestIngestMinuteSnapshotSameMinuteIdempotent(t *testing.T) {
	mem := store.NewMemoryStore()
	fetcher := &MockFetcher{Bars: map[string][]model.Bar{"159218": fixedBars("159218", 1.20, 1.22)}}
	ing := NewIngestor(fetcher, mem, 0)
	fixed := time.Date(2025, 8, 29, 10, 15, 42, 0, model.Beijing)
	ing.now = func() time.Time { return fixed }

	ctx := context.Background()
	bar1, err := ing.IngestMinuteSnapshot(ctx, "159218")
	require.NoError(t, err)
	bar2, err := ing.IngestMinuteSnapshot(ctx, "159218")
	require.NoError(t, err)
	require.Equal(t, bar1.BarTime, bar2.BarTime, "same wall-clock minute must map to the same key")

	traj, err := mem.QueryMinuteTrajectory(ctx, "159218", bar1.TradeDate)
	require.NoError(t, err)
	require.Len(t, traj, 1, "double ingest within one minute must leave one row")
	require.Equal(t, 1.22, traj[0].Close)

	// Next minute appends instead of overwriting.
	ing.now = func() time.Time { return fixed.Add(time.Minute) }
	_, err = ing.IngestMinuteSnapshot(ctx, "159218")
	require.NoError(t, err)
	traj, err = mem.QueryMinuteTrajectory(ctx, "159218", bar1.TradeDate)
	require.NoError(t, err)
	require.Len(t, traj, 2)
}

func TestIngestDailyIdempotent(t *testing.T) {
	mem := store.NewMemoryStore()
	fetcher := &MockFetcher{Bars: map[string][]model.Bar{"159218": fixedBars("159218", 1.22)}}
	ing := NewIngestor(fetcher, mem, 0)

	ctx := context.Background()
	_, err := ing.IngestDaily(ctx, "159218")
	require.NoError(t, err)
	_, err = ing.IngestDaily(ctx, "159218")
	require.NoError(t, err)

	hist, err := mem.QueryHistory(ctx, "159218", 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
}

func TestIngestSurfacesTypedFetchError(t *testing.T) {
	mem := store.NewMemoryStore()
	fetcher := &MockFetcher{Err: errors.New("provider down")}
	ing := NewIngestor(fetcher, mem, 0)

	_, err := ing.IngestMinuteSnapshot(context.Background(), "159218")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "159218", fe.Code)
}

func TestBackfillFillsChange(t *testing.T) {
	mem := store.NewMemoryStore()
	bars := fixedBars("159840", 0.85, 0.86, 0.87)
	for i := 1; i < len(bars); i++ {
		bars[i].PrevClose = bars[i-1].Close
	}
	fetcher := &MockFetcher{Bars: map[string][]model.Bar{"159840": bars}}
	ing := NewIngestor(fetcher, mem, 0)

	n, err := ing.Backfill(context.Background(), "159840", 120)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	hist, err := mem.QueryHistory(context.Background(), "159840", 120)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	require.InDelta(t, 0.01, hist[1].Change, 1e-9)
}
