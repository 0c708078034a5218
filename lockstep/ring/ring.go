// Package ring implements the fixed-capacity sample store shared between the
// emulation loop (producer) and the audio hardware callback (consumer).
package ring

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultWaitStep = time.Millisecond
	defaultMaxWait  = 50 * time.Millisecond
)

// Stats holds lifetime counters, all in samples except Underruns.
type Stats struct {
	Enqueued      uint64 // samples offered to Enqueue
	Dequeued      uint64 // stored samples handed to the consumer
	Dropped       uint64 // samples rejected because they did not fit
	SilencePadded uint64 // zero samples emitted to cover shortfalls
	Underruns     uint64 // Dequeue calls that had to pad
}

// Buffer is a thread-safe circular store of interleaved int16 samples.
//
// The producer side (Enqueue) may wait for space; the consumer side (Dequeue)
// never waits, never allocates and always fills the destination completely.
type Buffer struct {
	mu sync.Mutex

	data     []int16
	capacity uint
	start    uint
	end      uint
	count    uint

	highWater uint
	waitStep  time.Duration
	maxWait   time.Duration

	enqueued      atomic.Uint64
	dequeued      atomic.Uint64
	dropped       atomic.Uint64
	silencePadded atomic.Uint64
	underruns     atomic.Uint64
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithHighWater caps occupancy at n. Enqueue sleeps while storing the block
// would push the count past n and drops what still does not fit afterwards.
func WithHighWater(n int) Option {
	return func(b *Buffer) {
		if n > 0 {
			b.highWater = uint(n)
		}
	}
}

// WithWait sets the sleep granularity and the upper bound of a single
// Enqueue's backpressure wait. A zero max disables waiting.
func WithWait(step, limit time.Duration) Option {
	return func(b *Buffer) {
		if step > 0 {
			b.waitStep = step
		}
		if limit >= 0 {
			b.maxWait = limit
		}
	}
}

// New creates a buffer holding up to capacity samples.
func New(capacity int, opts ...Option) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	b := &Buffer{
		data:     make([]int16, capacity),
		capacity: uint(capacity),
		waitStep: defaultWaitStep,
		maxWait:  defaultMaxWait,
	}
	b.highWater = b.capacity
	for _, opt := range opts {
		opt(b)
	}
	if b.highWater > b.capacity {
		b.highWater = b.capacity
	}
	return b
}

// Enqueue stores samples, returning how many were written. Samples that do
// not fit under the high-water mark once the backpressure wait expires are
// dropped, never written over unread data.
func (b *Buffer) Enqueue(samples []int16) int {
	if len(samples) == 0 {
		return 0
	}

	b.enqueued.Add(uint64(len(samples)))

	n := uint(len(samples))
	if n > b.capacity {
		b.dropped.Add(uint64(n - b.capacity))
		samples = samples[n-b.capacity:]
		n = b.capacity
	}

	b.waitForRoom(n)

	b.mu.Lock()
	var room uint
	if b.count < b.highWater {
		room = b.highWater - b.count
	}
	written := min(n, room)
	b.write(samples[:written])
	b.mu.Unlock()

	if written < n {
		b.dropped.Add(uint64(n - written))
	}
	return int(written)
}

// waitForRoom sleeps in short steps, outside the lock, until n more samples
// fit under the high-water mark or the wait budget runs out.
func (b *Buffer) waitForRoom(n uint) {
	limit := b.highWater
	if n > limit {
		limit = n
	}

	var waited time.Duration
	for waited < b.maxWait {
		b.mu.Lock()
		fits := b.count+n <= limit
		b.mu.Unlock()
		if fits {
			return
		}
		time.Sleep(b.waitStep)
		waited += b.waitStep
	}
}

// write copies p at the end index. Caller holds the lock and guarantees room.
func (b *Buffer) write(p []int16) {
	n := uint(len(p))
	if n == 0 {
		return
	}
	first := b.capacity - b.end
	if first >= n {
		copy(b.data[b.end:], p)
	} else {
		copy(b.data[b.end:], p[:first])
		copy(b.data, p[first:])
	}
	b.end = (b.end + n) % b.capacity
	b.count += n
}

// Dequeue fills dst entirely, zero-padding whatever the buffer cannot supply.
// It returns the number of stored samples consumed.
func (b *Buffer) Dequeue(dst []int16) int {
	want := uint(len(dst))
	if want == 0 {
		return 0
	}

	b.mu.Lock()
	n := want
	if n > b.count {
		n = b.count
	}
	first := b.capacity - b.start
	if first >= n {
		copy(dst, b.data[b.start:b.start+n])
	} else {
		copy(dst, b.data[b.start:])
		copy(dst[first:n], b.data[:n-first])
	}
	b.start = (b.start + n) % b.capacity
	b.count -= n
	b.mu.Unlock()

	if n < want {
		clear(dst[n:])
		b.silencePadded.Add(uint64(want - n))
		b.underruns.Add(1)
	}
	b.dequeued.Add(uint64(n))
	return int(n)
}

// Len returns the number of samples currently stored.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(b.count)
}

// Cap returns the buffer capacity in samples.
func (b *Buffer) Cap() int {
	return int(b.capacity)
}

// Free returns the space left before the buffer is full.
func (b *Buffer) Free() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(b.capacity - b.count)
}

// HighWater returns the occupancy the producer waits below.
func (b *Buffer) HighWater() int {
	return int(b.highWater)
}

// Reset discards stored samples. Samples thrown away are counted as dropped
// so the lifetime counters keep balancing.
func (b *Buffer) Reset() {
	b.mu.Lock()
	discarded := b.count
	b.start, b.end, b.count = 0, 0, 0
	b.mu.Unlock()

	b.dropped.Add(uint64(discarded))
}

// Stats returns a snapshot of the lifetime counters.
func (b *Buffer) Stats() Stats {
	return Stats{
		Enqueued:      b.enqueued.Load(),
		Dequeued:      b.dequeued.Load(),
		Dropped:       b.dropped.Load(),
		SilencePadded: b.silencePadded.Load(),
		Underruns:     b.underruns.Load(),
	}
}
