package ebay

import (
	"sync"
	"time"
)

// Governor is the process-wide daily call budget. It is advisory: a
// denied call is skipped and treated as an empty result, never an error.
type Governor struct {
	mu      sync.Mutex
	limit   int
	count   int
	resetAt time.Time
	now     func() time.Time
}

// NewGovernor caps total daily upstream calls at limit.
func NewGovernor(limit int) *Governor {
	g := &Governor{limit: limit, now: time.Now}
	g.resetAt = nextMidnight(g.now())
	return g
}

func nextMidnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

func (g *Governor) rollover() {
	if now := g.now(); !now.Before(g.resetAt) {
		g.count = 0
		g.resetAt = nextMidnight(now)
	}
}

// CanMakeCall reports whether the budget allows one more call. It does
// not consume a slot; Record does, once a request actually goes out. A
// pool or token failure therefore burns no budget.
func (g *Governor) CanMakeCall() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollover()
	return g.count < g.limit
}

// Record consumes one slot of today's budget.
func (g *Governor) Record() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollover()
	g.count++
}

// CallsToday returns the consumed portion of today's budget.
func (g *Governor) CallsToday() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollover()
	return g.count
}

// Remaining returns the unconsumed portion of today's budget.
func (g *Governor) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollover()
	if r := g.limit - g.count; r > 0 {
		return r
	}
	return 0
}
