package collector

import (
	"context"
	"fmt"

	"TradeSentry/internal/model"
)

// Fetcher defines the interface to the upstream market-data provider.
//
// The last bar of FetchDailyBars is today's bar while the session is open;
// its close mutates continuously and means "current price".
type Fetcher interface {
	FetchDailyBars(ctx context.Context, code string, limit int) ([]model.Bar, error)
	FetchLatest(ctx context.Context, code string) (model.Bar, error)
	Name() string
}

// FetchError marks a provider failure (unreachable, or malformed response).
// The instrument's cycle is skipped; the process keeps running.
type FetchError struct {
	Code string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Code, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Bars map[string][]model.Bar // code -> daily bars, oldest first
	Err  error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, code string, limit int) ([]model.Bar, error) {
	if m.Err != nil {
		return nil, &FetchError{Code: code, Err: m.Err}
	}
	bars := m.Bars[code]
	if len(bars) == 0 {
		return nil, &FetchError{Code: code, Err: fmt.Errorf("no mock data")}
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

func (m *MockFetcher) FetchLatest(ctx context.Context, code string) (model.Bar, error) {
	bars, err := m.FetchDailyBars(ctx, code, 1)
	if err != nil {
		return model.Bar{}, err
	}
	return bars[len(bars)-1], nil
}
