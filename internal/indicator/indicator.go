package indicator

import (
	"github.com/shopspring/decimal"

	"TradeSentry/internal/model"
)

// sma computes the simple moving average over the trailing period closes.
// Sums are carried in decimal so long windows of 4-decimal ETF prices don't
// accumulate float drift.
func sma(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	sum := decimal.Zero
	for _, c := range closes[len(closes)-period:] {
		sum = sum.Add(decimal.NewFromFloat(c))
	}
	avg, _ := sum.Div(decimal.NewFromInt(int64(period))).Float64()
	return avg, true
}

// Compute derives MA5/MA20 from the daily history with the live bar standing
// in for today. If today's daily row is already persisted its close is
// replaced by the live close, so the live price is never counted twice;
// otherwise the live bar is appended as today's observation.
func Compute(history []model.Bar, live model.Bar) model.IndicatorSet {
	closes := make([]float64, 0, len(history)+1)
	replaced := false
	for _, b := range history {
		c := b.Close
		if b.TradeDate == live.TradeDate {
			c = live.Close
			replaced = true
		}
		closes = append(closes, c)
	}
	if !replaced {
		closes = append(closes, live.Close)
	}

	var set model.IndicatorSet
	set.MA5, set.MA5Valid = sma(closes, 5)
	set.MA20, set.MA20Valid = sma(closes, 20)
	return set
}
