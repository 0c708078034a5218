package timing

import (
	"log/slog"
	"time"
)

// AdaptiveLimiter uses precise timing with drift compensation.
// Combines sleep for efficiency with busy-waiting for accuracy.
type AdaptiveLimiter struct {
	targetTickTime time.Duration
	nextTickTime   time.Time
	tickCounter    int64
	logEvery       int64
}

func NewAdaptiveLimiter(refreshHz float64) *AdaptiveLimiter {
	period := TickDuration(refreshHz)
	return &AdaptiveLimiter{
		targetTickTime: period,
		nextTickTime:   time.Now(),
		logEvery:       int64(time.Second / period),
	}
}

func (a *AdaptiveLimiter) WaitForNextFrame() {
	now := time.Now()
	sleepTime := a.nextTickTime.Sub(now)

	if sleepTime > 0 {
		if sleepTime < 2*time.Millisecond {
			for time.Now().Before(a.nextTickTime) {
				// busy-wait for times under 2ms, higher accuracy.
			}
		} else {
			time.Sleep(sleepTime - time.Millisecond)
			for time.Now().Before(a.nextTickTime) {
			}
		}
	} else if sleepTime < -5*time.Millisecond {
		a.nextTickTime = now
	}

	a.nextTickTime = a.nextTickTime.Add(a.targetTickTime)
	a.tickCounter++

	if a.logEvery > 0 && a.tickCounter%a.logEvery == 0 {
		drift := time.Since(a.nextTickTime)
		if drift.Abs() > 10*time.Millisecond {
			a.nextTickTime = a.nextTickTime.Add(drift / 10)
			slog.Debug("Host tick drift correction", "drift_ms", drift.Milliseconds(), "ticks", a.tickCounter)
		}
	}
}

func (a *AdaptiveLimiter) Reset() {
	a.nextTickTime = time.Now()
	a.tickCounter = 0
}
