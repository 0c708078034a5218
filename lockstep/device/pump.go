package device

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Pump stands in for a hardware callback thread: once per period it asks
// the sink for a buffer and hands it to deliver.
type Pump struct {
	sink    Sink
	buf     []int16
	period  time.Duration
	deliver func([]int16) error
	ready   func() bool

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool

	calls  atomic.Uint64
	errors atomic.Uint64
}

// NewPump builds a pump for spec. deliver may be nil when the buffer is
// only inspected. ready, if set, is checked before each callback so outputs
// with their own queue can skip a period when they are full.
func NewPump(sink Sink, spec Spec, deliver func([]int16) error, ready func() bool) *Pump {
	return &Pump{
		sink:    sink,
		buf:     make([]int16, spec.SamplesPerCallback),
		period:  max(spec.Period(), time.Millisecond),
		deliver: deliver,
		ready:   ready,
	}
}

// Start runs callbacks on a new goroutine until Stop.
func (p *Pump) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.running = true
	go p.loop(p.stop, p.done)
}

func (p *Pump) loop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if p.ready != nil && !p.ready() {
				continue
			}
			if err := p.Step(); err != nil {
				if n := p.errors.Load(); n == 1 || n%100 == 0 {
					slog.Warn("Audio delivery failed", "error", err, "failures", n)
				}
			}
		}
	}
}

// Step runs a single callback synchronously.
func (p *Pump) Step() error {
	p.sink.Fill(p.buf)
	p.calls.Add(1)
	if p.deliver == nil {
		return nil
	}
	if err := p.deliver(p.buf); err != nil {
		p.errors.Add(1)
		return err
	}
	return nil
}

// Stop halts the goroutine and waits for the in-flight callback to finish.
func (p *Pump) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	close(p.stop)
	<-p.done
	p.running = false
}

// Buffer returns the buffer most recently filled. Only valid while the pump
// is stopped or from within deliver.
func (p *Pump) Buffer() []int16 { return p.buf }

// Calls returns how many callbacks ran.
func (p *Pump) Calls() uint64 { return p.calls.Load() }
