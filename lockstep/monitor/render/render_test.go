package render

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogBuffer_Circular(t *testing.T) {
	lb := NewLogBuffer(3)
	assert.Nil(t, lb.GetRecent(0))

	for i := 0; i < 5; i++ {
		lb.Add(LogEntry{Message: fmt.Sprint(i)})
	}

	recent := lb.GetRecent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "4", recent[0].Message, "newest first")
	assert.Equal(t, "2", recent[2].Message)
	assert.Len(t, lb.GetRecent(2), 2)
	assert.Equal(t, uint64(5), lb.Total())

	lb.Clear()
	assert.Nil(t, lb.GetRecent(0))
}

func TestLogBufferHandler(t *testing.T) {
	lb := NewLogBuffer(10)
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	logger := slog.New(NewLogBufferHandler(lb, level))

	logger.Debug("hidden")
	logger.Info("Ring overflow", "dropped", 12)
	logger.With("device", "oto").WithGroup("ring").Warn("Underrun", "count", 3)

	recent := lb.GetRecent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "device=oto ring.count=3", recent[0].Message[len("Underrun "):])
	assert.Equal(t, slog.LevelWarn, recent[0].Level)
	assert.Equal(t, "Ring overflow dropped=12", recent[1].Message)

	level.Set(slog.LevelDebug)
	logger.Debug("now visible")
	assert.Equal(t, "now visible", lb.GetRecent(1)[0].Message)
}

func TestFormatLogEntry(t *testing.T) {
	ts := time.Date(2024, 1, 1, 13, 4, 5, 0, time.UTC)
	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, "13:04:05 [DBG] msg"},
		{slog.LevelInfo, "13:04:05 [INF] msg"},
		{slog.LevelWarn, "13:04:05 [WRN] msg"},
		{slog.LevelError, "13:04:05 [ERR] msg"},
		{slog.Level(2), "13:04:05 [???] msg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatLogEntry(LogEntry{Time: ts, Level: tt.level, Message: "msg"}))
	}
}

func TestMeter(t *testing.T) {
	tests := []struct {
		name  string
		value int
		max   int
		width int
		mark  float64
		want  string
	}{
		{"empty", 0, 100, 10, 0, "[..........]"},
		{"half", 50, 100, 10, 0, "[#####.....]"},
		{"full", 100, 100, 4, 0, "[####]"},
		{"over", 300, 100, 4, 0, "[####]"},
		{"marker", 10, 100, 10, 0.5, "[#....|....]"},
		{"marker hidden by fill", 80, 100, 10, 0.5, "[########..]"},
		{"zero max", 10, 0, 3, 0, "[...]"},
		{"no width", 10, 100, 0, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Meter(tt.value, tt.max, tt.width, tt.mark))
		})
	}
}

func TestRatioAndTruncate(t *testing.T) {
	assert.Equal(t, "+0.000%", Ratio(1))
	assert.Equal(t, "+2.000%", Ratio(1.02))
	assert.Equal(t, "-1.500%", Ratio(0.985))

	assert.Equal(t, "hello", Truncate("hello", 5))
	assert.Equal(t, "he...", Truncate("hello world", 5))
	assert.Equal(t, "hel", Truncate("hello", 3))
	assert.Equal(t, "", Truncate("hello", 0))
}
