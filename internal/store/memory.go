package store

import (
	"context"
	"sort"
	"sync"

	"TradeSentry/internal/model"
)

// MemoryStore keeps bars in maps. It backs tests and dry runs where no
// database file is wanted; the upsert semantics match SQLiteStore.
type MemoryStore struct {
	mu      sync.Mutex
	daily   map[string]map[string]model.Bar // code -> trade date -> bar
	minutes map[string]map[int64]model.Bar  // code -> unix minute -> bar
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		daily:   make(map[string]map[string]model.Bar),
		minutes: make(map[string]map[int64]model.Bar),
	}
}

func (m *MemoryStore) UpsertDaily(_ context.Context, bar model.Bar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.daily[bar.Code] == nil {
		m.daily[bar.Code] = make(map[string]model.Bar)
	}
	m.daily[bar.Code][bar.TradeDate] = bar
	return nil
}

func (m *MemoryStore) UpsertMinuteSnapshot(_ context.Context, bar model.Bar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.minutes[bar.Code] == nil {
		m.minutes[bar.Code] = make(map[int64]model.Bar)
	}
	m.minutes[bar.Code][bar.BarTime.Unix()] = bar
	return nil
}

func (m *MemoryStore) QueryHistory(_ context.Context, code string, lookbackDays int) ([]model.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bars := make([]model.Bar, 0, len(m.daily[code]))
	for _, b := range m.daily[code] {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].TradeDate < bars[j].TradeDate })
	if len(bars) > lookbackDays {
		bars = bars[len(bars)-lookbackDays:]
	}
	return bars, nil
}

func (m *MemoryStore) QueryMinuteTrajectory(_ context.Context, code, tradeDate string) ([]model.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var bars []model.Bar
	for _, b := range m.minutes[code] {
		if b.TradeDate == tradeDate {
			bars = append(bars, b)
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].BarTime.Before(bars[j].BarTime) })
	return bars, nil
}

func (m *MemoryStore) Close() error { return nil }
