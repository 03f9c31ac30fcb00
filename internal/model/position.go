package model

import "github.com/shopspring/decimal"

// Position is the externally supplied position context for one instrument.
// It is immutable for the process lifetime and only annotates generated
// context; it never feeds back into the snapshot store.
type Position struct {
	Cost  float64 // cost basis per unit, 0 means unknown
	Ratio float64 // current position as a fraction of capital, 0.0-1.0
}

// HasCost reports whether a cost basis was supplied.
func (p Position) HasCost() bool { return p.Cost > 0 }

// UnrealizedReturn returns the percent return of price against the cost
// basis. The caller must check HasCost first.
func (p Position) UnrealizedReturn(price float64) float64 {
	cost := decimal.NewFromFloat(p.Cost)
	ret, _ := decimal.NewFromFloat(price).Sub(cost).Div(cost).Mul(decimal.NewFromInt(100)).Float64()
	return ret
}
