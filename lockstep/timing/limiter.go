package timing

import "time"

// Limiter paces the host loop to the display refresh, producing one host
// tick per call.
type Limiter interface {
	// WaitForNextFrame blocks until the next host tick is due.
	// Returns immediately if timing is behind schedule.
	WaitForNextFrame()

	// Reset resets the timing state, useful after pauses.
	Reset()
}

// NewNoOpLimiter returns a limiter that doesn't limit (for headless mode).
func NewNoOpLimiter() Limiter {
	return &noOpLimiter{}
}

type noOpLimiter struct{}

func (n *noOpLimiter) WaitForNextFrame() {}
func (n *noOpLimiter) Reset()            {}

// TickDuration returns the length of one host tick at refreshHz, using the
// fallback rate for implausible values.
func TickDuration(refreshHz float64) time.Duration {
	if refreshHz <= 0 || refreshHz > MaxRefreshRate {
		refreshHz = FallbackRefreshRate
	}
	return time.Duration(float64(time.Second) / refreshHz)
}
