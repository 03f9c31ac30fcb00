package indicator

import (
	"context"

	"TradeSentry/internal/model"
	"TradeSentry/internal/store"
)

// lookbackDays is how much daily history the moving averages need. MA20 is
// the widest window; today may or may not be persisted yet, so one spare row
// is pulled.
const lookbackDays = 21

// Engine recomputes the indicator set fresh every cycle from the snapshot
// store. Nothing is cached across cycles; the live bar changes under us.
type Engine struct {
	Store store.Store
}

func NewEngine(s store.Store) *Engine {
	return &Engine{Store: s}
}

// Compute returns the indicator set for the live bar plus the daily history
// it was derived from (the advisory layer reuses the same window).
func (e *Engine) Compute(ctx context.Context, code string, live model.Bar) (model.IndicatorSet, []model.Bar, error) {
	history, err := e.Store.QueryHistory(ctx, code, lookbackDays)
	if err != nil {
		return model.IndicatorSet{}, nil, err
	}
	return Compute(history, live), history, nil
}
