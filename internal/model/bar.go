package model

import "time"

// Beijing is the exchange timezone. Snapshot bar times and session checks
// are all evaluated in it.
var Beijing = time.FixedZone("CST", 8*3600)

// Bar is a single OHLCV observation for an instrument.
//
// For daily bars BarTime is the zero value and TradeDate identifies the row.
// For minute snapshots BarTime is the snapshot time truncated to the minute;
// Close then means "latest price", not a settled close.
type Bar struct {
	Code      string
	TradeDate string // YYYY-MM-DD
	BarTime   time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	PrevClose float64
	Change    float64
	PctChange float64 // percent
	Volume    float64
	Amount    float64
}
