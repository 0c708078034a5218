package timing

import "time"

// TickerLimiter paces host ticks off a time.Ticker. It drifts less than a
// sleep loop but can't make up for a late tick the way AdaptiveLimiter does.
type TickerLimiter struct {
	ticker *time.Ticker
	period time.Duration
}

func NewTickerLimiter(refreshHz float64) *TickerLimiter {
	period := TickDuration(refreshHz)
	return &TickerLimiter{
		ticker: time.NewTicker(period),
		period: period,
	}
}

// Period is the tick length after fallback.
func (t *TickerLimiter) Period() time.Duration { return t.period }

func (t *TickerLimiter) WaitForNextFrame() {
	<-t.ticker.C
}

// Reset restarts the period from now and discards a tick that fired while
// the loop wasn't waiting, so resuming from a pause doesn't run two ticks
// back to back.
func (t *TickerLimiter) Reset() {
	t.ticker.Reset(t.period)
	select {
	case <-t.ticker.C:
	default:
	}
}

func (t *TickerLimiter) Stop() {
	t.ticker.Stop()
}

var _ Limiter = (*TickerLimiter)(nil)
