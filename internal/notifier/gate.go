package notifier

import (
	"sync"

	"TradeSentry/internal/model"
)

// Gate decides, per cycle, whether a fused decision warrants an alert. It
// owns the last-emitted cache: an unbroken run of identical actionable
// decisions emits once, on the transition, not once per cycle.
//
// The cache lives in memory only. After a restart the first actionable
// decision always emits; that is documented behavior, not a bug.
type Gate struct {
	mu      sync.Mutex
	last    map[string]model.Action
	emitAll bool
}

// NewGate creates a gate. With emitAll set every decision passes, including
// repeated holds, which is the full-verbosity debugging mode.
func NewGate(emitAll bool) *Gate {
	return &Gate{last: make(map[string]model.Action), emitAll: emitAll}
}

// ShouldEmit reports whether the decision must reach the operator, and on
// true records it as the last-emitted action before returning. A later
// delivery failure must not roll that back: the cache exists to prevent
// re-emission, not to guarantee delivery.
func (g *Gate) ShouldEmit(code string, d model.Decision) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.emitAll {
		g.last[code] = d.Action
		return true
	}
	if !d.Action.Actionable() {
		// Holds are remembered so the next actionable decision counts as
		// a transition, but they never emit themselves.
		g.last[code] = d.Action
		return false
	}
	if g.last[code] == d.Action {
		return false
	}
	g.last[code] = d.Action
	return true
}
