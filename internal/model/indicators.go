package model

// IndicatorSet holds the moving averages derived from the daily history plus
// the live bar. An average computed over fewer bars than its period is not an
// average at all, so each one carries an availability flag instead of a zero.
type IndicatorSet struct {
	MA5       float64
	MA5Valid  bool
	MA20      float64
	MA20Valid bool
}
