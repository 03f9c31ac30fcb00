package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"TradeSentry/internal/advisor"
	"TradeSentry/internal/collector"
	"TradeSentry/internal/config"
	"TradeSentry/internal/indicator"
	"TradeSentry/internal/model"
	"TradeSentry/internal/notifier"
	"TradeSentry/internal/store"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []string
	attempts int
	fail     bool
}

func (f *fakeSender) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.fail {
		return &notifier.SendError{Err: fmt.Errorf("webhook down")}
	}
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeSender) SendWithRetry(ctx context.Context, text string, _ int) error {
	return f.Send(ctx, text)
}

func dailyBar(code, date string, open, close float64) model.Bar {
	return model.Bar{
		Code:      code,
		TradeDate: date,
		Open:      open,
		High:      close,
		Low:       open,
		Close:     close,
		Volume:    1000,
	}
}

// newTestScheduler wires the full pipeline with a mock provider and an
// in-memory store. seeded bars go into the store; live is what the
// provider serves this cycle.
func newTestScheduler(code string, seeded []model.Bar, live model.Bar, emitAll bool, sender notifier.Sender) (*Scheduler, store.Store) {
	st := store.NewMemoryStore()
	for _, b := range seeded {
		_ = st.UpsertDaily(context.Background(), b)
	}
	fetcher := &collector.MockFetcher{Bars: map[string][]model.Bar{code: {live}}}
	ing := collector.NewIngestor(fetcher, st, 0)

	cfg := &config.Config{Instruments: []config.Instrument{{Code: code}}}
	cfg.Poll.AllDay = true
	cfg.Backfill.Limit = 120

	s := NewScheduler(context.Background(), cfg, ing,
		indicator.NewEngine(st), advisor.NewFusion(nil),
		notifier.NewGate(emitAll), sender, st)
	return s, st
}

func TestShortHistoryYieldsHoldAndNoAlert(t *testing.T) {
	code := "159218"
	seeded := []model.Bar{
		dailyBar(code, "2025-08-25", 1.10, 1.10),
		dailyBar(code, "2025-08-26", 1.10, 1.15),
		dailyBar(code, "2025-08-27", 1.15, 1.20),
		dailyBar(code, "2025-08-28", 1.20, 1.18),
	}
	live := dailyBar(code, "2025-08-29", 1.18, 1.22)

	sender := &fakeSender{}
	s, _ := newTestScheduler(code, seeded, live, false, sender)

	require.NoError(t, s.ProcessInstrument(context.Background(), code))
	require.Empty(t, sender.messages, "holds must not emit")
}

func TestEmitAllReportsHoldWithRationale(t *testing.T) {
	code := "159218"
	seeded := []model.Bar{
		dailyBar(code, "2025-08-25", 1.10, 1.10),
		dailyBar(code, "2025-08-26", 1.10, 1.15),
		dailyBar(code, "2025-08-27", 1.15, 1.20),
		dailyBar(code, "2025-08-28", 1.20, 1.18),
	}
	live := dailyBar(code, "2025-08-29", 1.18, 1.22)

	sender := &fakeSender{}
	s, _ := newTestScheduler(code, seeded, live, true, sender)

	require.NoError(t, s.ProcessInstrument(context.Background(), code))
	require.Len(t, sender.messages, 1)
	require.Contains(t, sender.messages[0], "HOLD")
	require.Contains(t, sender.messages[0], "insufficient history")
}

func bullishFixture(code string) ([]model.Bar, model.Bar) {
	var seeded []model.Bar
	for i := 0; i < 20; i++ {
		close := 1.01 + 0.01*float64(i)
		seeded = append(seeded, dailyBar(code, fmt.Sprintf("2025-08-%02d", i+1), close, close))
	}
	// Live close well above both averages, trading above the open.
	return seeded, dailyBar(code, "2025-08-29", 1.25, 1.30)
}

func TestBullishSetupEmitsBuyOnce(t *testing.T) {
	code := "159218"
	seeded, live := bullishFixture(code)

	sender := &fakeSender{}
	s, _ := newTestScheduler(code, seeded, live, false, sender)

	ctx := context.Background()
	require.NoError(t, s.ProcessInstrument(ctx, code))
	require.Len(t, sender.messages, 1)
	require.Contains(t, sender.messages[0], "BUY")
	require.Contains(t, sender.messages[0], code)

	// Same decision next cycle: suppressed.
	require.NoError(t, s.ProcessInstrument(ctx, code))
	require.Len(t, sender.messages, 1)
}

func TestDeliveryFailureDoesNotReopenGate(t *testing.T) {
	code := "159218"
	seeded, live := bullishFixture(code)

	sender := &fakeSender{fail: true}
	s, _ := newTestScheduler(code, seeded, live, false, sender)

	ctx := context.Background()
	// Delivery fails but the cycle itself succeeds.
	require.NoError(t, s.ProcessInstrument(ctx, code))
	require.Equal(t, 1, sender.attempts)

	// The gate recorded the emission; the failed delivery is not retried
	// on the next cycle.
	require.NoError(t, s.ProcessInstrument(ctx, code))
	require.Equal(t, 1, sender.attempts)
}

func TestFetchFailureIsIsolated(t *testing.T) {
	code := "159218"
	st := store.NewMemoryStore()
	fetcher := &collector.MockFetcher{Err: fmt.Errorf("provider unreachable")}
	ing := collector.NewIngestor(fetcher, st, 0)

	cfg := &config.Config{Instruments: []config.Instrument{{Code: code}}}
	cfg.Poll.AllDay = true

	sender := &fakeSender{}
	s := NewScheduler(context.Background(), cfg, ing,
		indicator.NewEngine(st), advisor.NewFusion(nil),
		notifier.NewGate(false), sender, st)

	err := s.ProcessInstrument(context.Background(), code)
	var fe *collector.FetchError
	require.ErrorAs(t, err, &fe)
	require.Empty(t, sender.messages)
}

func TestCycleUpsertsBothViews(t *testing.T) {
	code := "159218"
	seeded, live := bullishFixture(code)

	s, st := newTestScheduler(code, seeded, live, false, &fakeSender{})
	require.NoError(t, s.ProcessInstrument(context.Background(), code))

	history, err := st.QueryHistory(context.Background(), code, 30)
	require.NoError(t, err)
	require.Len(t, history, 21, "live bar persisted as today's daily row")
	require.Equal(t, live.TradeDate, history[len(history)-1].TradeDate)

	traj, err := st.QueryMinuteTrajectory(context.Background(), code, live.TradeDate)
	require.NoError(t, err)
	require.Len(t, traj, 1, "live bar persisted as a minute snapshot")
}

// blockingFetcher parks FetchLatest until released, to hold a cycle
// mid-instrument.
type blockingFetcher struct {
	started sync.Once
	ready   chan struct{}
	release chan struct{}
}

func (f *blockingFetcher) Name() string { return "blocking" }

func (f *blockingFetcher) FetchLatest(_ context.Context, code string) (model.Bar, error) {
	f.started.Do(func() { close(f.ready) })
	<-f.release
	return dailyBar(code, "2025-08-29", 1.18, 1.22), nil
}

func (f *blockingFetcher) FetchDailyBars(ctx context.Context, code string, _ int) ([]model.Bar, error) {
	b, err := f.FetchLatest(ctx, code)
	return []model.Bar{b}, err
}

func TestStopWaitsForInFlightInstrument(t *testing.T) {
	code := "159218"
	fetcher := &blockingFetcher{ready: make(chan struct{}), release: make(chan struct{})}
	st := store.NewMemoryStore()
	ing := collector.NewIngestor(fetcher, st, 0)

	cfg := &config.Config{Instruments: []config.Instrument{{Code: code}}}
	cfg.Poll.AllDay = true

	s := NewScheduler(context.Background(), cfg, ing,
		indicator.NewEngine(st), advisor.NewFusion(nil),
		notifier.NewGate(false), &fakeSender{}, st)
	require.NoError(t, s.Register(time.Second, "0 10 15 * * 1-5"))
	s.Start()

	<-fetcher.ready // a cycle is now mid-fetch

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while an instrument was still mid-fetch")
	case <-time.After(100 * time.Millisecond):
	}

	close(fetcher.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the cycle drained")
	}
}

// failingStore rejects every write while still serving reads from the
// embedded memory store.
type failingStore struct {
	*store.MemoryStore
}

func (f *failingStore) UpsertDaily(_ context.Context, bar model.Bar) error {
	return &store.PersistError{Op: "upsert daily", Code: bar.Code, Err: errors.New("disk full")}
}

func (f *failingStore) UpsertMinuteSnapshot(_ context.Context, bar model.Bar) error {
	return &store.PersistError{Op: "upsert minute snapshot", Code: bar.Code, Err: errors.New("disk full")}
}

func TestPersistFailureContinuesWithFetchedBar(t *testing.T) {
	code := "159218"
	seeded, live := bullishFixture(code)

	mem := store.NewMemoryStore()
	for _, b := range seeded {
		require.NoError(t, mem.UpsertDaily(context.Background(), b))
	}
	st := &failingStore{MemoryStore: mem}
	fetcher := &collector.MockFetcher{Bars: map[string][]model.Bar{code: {live}}}
	ing := collector.NewIngestor(fetcher, st, 0)

	cfg := &config.Config{Instruments: []config.Instrument{{Code: code}}}
	cfg.Poll.AllDay = true

	sender := &fakeSender{}
	s := NewScheduler(context.Background(), cfg, ing,
		indicator.NewEngine(st), advisor.NewFusion(nil),
		notifier.NewGate(false), sender, st)

	// Store writes fail, but the decision is still computed from the
	// fetched bar and reaches the operator.
	require.NoError(t, s.ProcessInstrument(context.Background(), code))
	require.Len(t, sender.messages, 1)
	require.Contains(t, sender.messages[0], "BUY")
}

func TestBackfillPushesAftermarketReview(t *testing.T) {
	code := "159218"
	seeded, live := bullishFixture(code)
	bars := append(append([]model.Bar{}, seeded...), live)

	st := store.NewMemoryStore()
	fetcher := &collector.MockFetcher{Bars: map[string][]model.Bar{code: bars}}
	ing := collector.NewIngestor(fetcher, st, 0)

	cfg := &config.Config{Instruments: []config.Instrument{{Code: code}}}
	cfg.Backfill.Limit = 120
	cfg.Backfill.Review = true

	sender := &fakeSender{}
	s := NewScheduler(context.Background(), cfg, ing,
		indicator.NewEngine(st), advisor.NewFusion(nil),
		notifier.NewGate(false), sender, st)

	s.RunBackfillNow()
	require.Len(t, sender.messages, 1)
	require.Contains(t, sender.messages[0], "aftermarket review")
	require.Contains(t, sender.messages[0], "BUY")
}

func TestShutdownStopsAtInstrumentBoundary(t *testing.T) {
	code := "159218"
	seeded, live := bullishFixture(code)

	sender := &fakeSender{}
	s, _ := newTestScheduler(code, seeded, live, false, sender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Ctx = ctx

	s.pollCycle()
	require.Empty(t, sender.messages, "cancelled context must skip the cycle")
}
