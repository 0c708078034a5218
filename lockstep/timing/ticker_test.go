package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickerLimiter(t *testing.T) {
	l := NewTickerLimiter(0)
	defer l.Stop()
	assert.Equal(t, TickDuration(FallbackRefreshRate), l.Period(), "invalid rate falls back")

	l = NewTickerLimiter(500)
	defer l.Stop()
	assert.Equal(t, 2*time.Millisecond, l.Period())

	start := time.Now()
	for i := 0; i < 5; i++ {
		l.WaitForNextFrame()
	}
	assert.GreaterOrEqual(t, time.Since(start), 8*time.Millisecond)

	// a tick missed while paused is discarded on reset
	time.Sleep(5 * time.Millisecond)
	l.Reset()
	start = time.Now()
	l.WaitForNextFrame()
	assert.GreaterOrEqual(t, time.Since(start), time.Millisecond)
}
