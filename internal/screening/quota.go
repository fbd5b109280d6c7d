package screening

import (
	"sync"
	"time"
)

// QuotaWindow is the length of one auto-action quota window.
const QuotaWindow = 24 * time.Hour

// QuotaLimiter caps AUTO_ORDER decisions per run-day. The window starts when
// the limiter is created; each full QuotaWindow of elapsed time starts a new
// window with an empty counter. TryAcquire is a single critical section, so
// concurrent callers can never admit more than the quota in one window.
type QuotaLimiter struct {
	windowStart time.Time
	now         func() time.Time
	quota       int
	used        int
	mu          sync.Mutex
}

// NewQuotaLimiter creates a limiter for a run with the given daily quota.
// A negative quota is treated as zero.
func NewQuotaLimiter(quota int) *QuotaLimiter {
	return NewQuotaLimiterWithClock(quota, time.Now)
}

// NewQuotaLimiterWithClock is NewQuotaLimiter with an injected clock.
func NewQuotaLimiterWithClock(quota int, now func() time.Time) *QuotaLimiter {
	if quota < 0 {
		quota = 0
	}
	if now == nil {
		now = time.Now
	}
	return &QuotaLimiter{
		quota:       quota,
		now:         now,
		windowStart: now(),
	}
}

// TryAcquire atomically checks the remaining quota and, if any is left,
// consumes one slot. It never blocks.
func (q *QuotaLimiter) TryAcquire() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.rollWindow()
	if q.used >= q.quota {
		return false
	}
	q.used++
	return true
}

// Used returns the slots consumed in the current window.
func (q *QuotaLimiter) Used() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollWindow()
	return q.used
}

// Quota returns the per-window limit.
func (q *QuotaLimiter) Quota() int {
	return q.quota
}

// Reset empties the counter and restarts the window.
func (q *QuotaLimiter) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.used = 0
	q.windowStart = q.now()
}

// rollWindow must be called with mu held.
func (q *QuotaLimiter) rollWindow() {
	elapsed := q.now().Sub(q.windowStart)
	if elapsed < QuotaWindow {
		return
	}
	windows := elapsed / QuotaWindow
	q.windowStart = q.windowStart.Add(windows * QuotaWindow)
	q.used = 0
}

// NewReplayLimiter returns a limiter whose window never rolls over. Replays
// of stored decisions use it so results do not depend on wall-clock time.
func NewReplayLimiter(quota int) *QuotaLimiter {
	frozen := time.Unix(0, 0).UTC()
	return NewQuotaLimiterWithClock(quota, func() time.Time { return frozen })
}
