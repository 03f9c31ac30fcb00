package scheduler

import (
	"time"

	"TradeSentry/internal/model"
)

// Session bounds, minutes from midnight Beijing time.
const (
	amOpen  = 9*60 + 30
	amClose = 11*60 + 30
	pmOpen  = 13 * 60
	pmClose = 15 * 60
)

// InSession reports whether t falls inside the exchange trading session
// (09:30-11:30, 13:00-15:00 Beijing, Monday-Friday).
func InSession(t time.Time) bool {
	bj := t.In(model.Beijing)
	switch bj.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	hm := bj.Hour()*60 + bj.Minute()
	return (hm >= amOpen && hm <= amClose) || (hm >= pmOpen && hm <= pmClose)
}
