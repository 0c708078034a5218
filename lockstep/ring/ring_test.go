package ring

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(start, n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(start + i)
	}
	return out
}

func TestBuffer_EnqueueDequeueOrder(t *testing.T) {
	b := New(8, WithWait(time.Millisecond, 0))

	assert.Equal(t, 5, b.Enqueue(seq(1, 5)))
	out := make([]int16, 3)
	assert.Equal(t, 3, b.Dequeue(out))
	assert.Equal(t, []int16{1, 2, 3}, out)

	// wraps around the end of the backing array
	assert.Equal(t, 5, b.Enqueue(seq(6, 5)))
	assert.Equal(t, 7, b.Len())

	out = make([]int16, 7)
	assert.Equal(t, 7, b.Dequeue(out))
	assert.Equal(t, []int16{4, 5, 6, 7, 8, 9, 10}, out)
	assert.Equal(t, 0, b.Len())
}

func TestBuffer_ExactFill(t *testing.T) {
	tests := []struct {
		name   string
		stored int
		read   int
	}{
		{"zero read", 4, 0},
		{"empty buffer", 0, 16},
		{"partial", 3, 10},
		{"exact", 10, 10},
		{"surplus", 12, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(16, WithWait(time.Millisecond, 0))
			b.Enqueue(seq(1, tt.stored))

			dst := make([]int16, tt.read)
			for i := range dst {
				dst[i] = -1
			}
			got := b.Dequeue(dst)

			assert.Len(t, dst, tt.read)
			assert.Equal(t, min(tt.stored, tt.read), got)
			for i := got; i < tt.read; i++ {
				assert.Zero(t, dst[i], "sample %d should be silence", i)
			}
		})
	}
}

func TestBuffer_UnderrunScenario(t *testing.T) {
	b := New(16384, WithWait(time.Millisecond, 0))
	block := make([]int16, 5000)
	for i := range block {
		block[i] = 1
	}
	require.Equal(t, 5000, b.Enqueue(block))

	dst := make([]int16, 512)
	reads := 0
	for b.Len() >= 512 {
		b.Dequeue(dst)
		reads++
		for i, s := range dst {
			require.Equal(t, int16(1), s, "silence before shortfall at read %d sample %d", reads, i)
		}
	}

	remaining := b.Len()
	assert.Equal(t, 5000%512, remaining)
	assert.Equal(t, uint64(0), b.Stats().Underruns)

	b.Dequeue(dst)
	for i := 0; i < remaining; i++ {
		assert.Equal(t, int16(1), dst[i])
	}
	for i := remaining; i < len(dst); i++ {
		assert.Zero(t, dst[i])
	}
	assert.Equal(t, uint64(1), b.Stats().Underruns)
	assert.Equal(t, uint64(512-remaining), b.Stats().SilencePadded)
}

func TestBuffer_OverflowDropsExcess(t *testing.T) {
	b := New(10, WithWait(time.Millisecond, 0))

	assert.Equal(t, 8, b.Enqueue(seq(1, 8)))
	assert.Equal(t, 2, b.Enqueue(seq(9, 5)))
	assert.Equal(t, 10, b.Len())

	stats := b.Stats()
	assert.Equal(t, uint64(13), stats.Enqueued)
	assert.Equal(t, uint64(3), stats.Dropped)

	// unread data was not overwritten
	out := make([]int16, 10)
	b.Dequeue(out)
	assert.Equal(t, seq(1, 10), out)
}

func TestBuffer_OversizedBlockKeepsTail(t *testing.T) {
	b := New(4, WithWait(time.Millisecond, 0))

	assert.Equal(t, 4, b.Enqueue(seq(1, 6)))
	out := make([]int16, 4)
	b.Dequeue(out)
	assert.Equal(t, []int16{3, 4, 5, 6}, out)
	assert.Equal(t, uint64(2), b.Stats().Dropped)
}

func TestBuffer_BackpressureWaitsForConsumer(t *testing.T) {
	b := New(64, WithHighWater(16), WithWait(time.Millisecond, time.Second))
	require.Equal(t, 16, b.Enqueue(seq(0, 16)))

	done := make(chan int)
	go func() {
		done <- b.Enqueue(seq(100, 8))
	}()

	select {
	case <-done:
		t.Fatal("producer should wait while above the high-water mark")
	case <-time.After(20 * time.Millisecond):
	}

	b.Dequeue(make([]int16, 8))

	select {
	case n := <-done:
		assert.Equal(t, 8, n)
	case <-time.After(time.Second):
		t.Fatal("producer did not resume after the consumer drained")
	}
	assert.Equal(t, 16, b.Len())
}

func TestBuffer_BackpressureIsBounded(t *testing.T) {
	b := New(32, WithHighWater(8), WithWait(time.Millisecond, 5*time.Millisecond))
	b.Enqueue(seq(0, 8))

	start := time.Now()
	n := b.Enqueue(seq(0, 8))
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	// the wait expired; capacity is free but the high-water mark is not
	assert.Equal(t, 0, n)
	assert.Equal(t, 8, b.Len())
	assert.Equal(t, uint64(8), b.Stats().Dropped)
}

func TestBuffer_HighWaterCapsOccupancy(t *testing.T) {
	tests := []struct {
		name      string
		capacity  int
		highWater int
		block     int
		blocks    int
		want      int
	}{
		{"stalled consumer", 16384, 6144, 1470, 10, 6144},
		{"partial block at the mark", 100, 50, 20, 3, 50},
		{"block larger than the mark", 64, 16, 40, 2, 16},
		{"default mark is capacity", 32, 0, 12, 4, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.capacity, WithHighWater(tt.highWater), WithWait(time.Millisecond, 5*time.Millisecond))

			written := 0
			for i := 0; i < tt.blocks; i++ {
				written += b.Enqueue(seq(i*tt.block, tt.block))
				assert.LessOrEqual(t, b.Len(), b.HighWater())
			}

			assert.Equal(t, tt.want, b.Len())
			assert.Equal(t, tt.want, written)
			stats := b.Stats()
			assert.Equal(t, uint64(tt.block*tt.blocks), stats.Enqueued)
			assert.Equal(t, stats.Enqueued-stats.Dropped, uint64(b.Len()))
		})
	}
}

func TestBuffer_ResetCountsDiscarded(t *testing.T) {
	b := New(16, WithWait(time.Millisecond, 0))
	b.Enqueue(seq(0, 10))
	b.Dequeue(make([]int16, 4))
	b.Reset()

	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 16, b.Free())
	stats := b.Stats()
	assert.Equal(t, stats.Enqueued-stats.Dropped, stats.Dequeued)
}

func TestBuffer_ConservationUnderConcurrency(t *testing.T) {
	b := New(2048, WithHighWater(1024), WithWait(100*time.Microsecond, 2*time.Millisecond))

	const blocks = 400
	var wg sync.WaitGroup
	stop := make(chan struct{})

	var delivered uint64
	wg.Add(1)
	go func() {
		defer wg.Done()
		dst := make([]int16, 256)
		for {
			select {
			case <-stop:
				return
			default:
			}
			delivered += uint64(b.Dequeue(dst))
			time.Sleep(50 * time.Microsecond)
		}
	}()

	for i := 0; i < blocks; i++ {
		b.Enqueue(seq(i, 1+i%700))
	}
	close(stop)
	wg.Wait()

	// drain what is left
	delivered += uint64(b.Dequeue(make([]int16, b.Len())))

	stats := b.Stats()
	assert.Equal(t, stats.Enqueued-stats.Dropped, delivered)
	assert.Equal(t, delivered, stats.Dequeued)
}

func TestBuffer_Defaults(t *testing.T) {
	b := New(0)
	assert.Equal(t, 1, b.Cap())
	assert.Equal(t, 1, b.HighWater())

	b = New(100, WithHighWater(500))
	assert.Equal(t, 100, b.HighWater(), "high water is clamped to capacity")
}
