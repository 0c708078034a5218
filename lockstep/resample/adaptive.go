// Package resample turns each emulated frame's raw sample block into an
// output block whose length is nudged by ring buffer occupancy, keeping the
// buffer's fill level hovering just above a small target window.
package resample

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
)

// ErrInvalidParameters rejects rehash requests that would leave the
// resampler unusable, such as a zero sample rate or a non-positive ratio.
var ErrInvalidParameters = errors.New("resample: invalid parameters")

const (
	DefaultTargetLow     = 3
	DefaultScaleFactor   = 1
	DefaultHostTickMs    = 16
	DefaultMaxCorrection = 0.02
)

// Params configures an Adaptive resampler. Sample counts are in int16
// samples (interleaved), rates in Hz.
type Params struct {
	NativeRate int // core output rate
	DeviceRate int // device rate; zero means same as NativeRate
	Channels   int

	SamplesPerCallback int // device period in samples
	TargetLow          int // occupancy floor in device periods
	ScaleFactor        int // extra output frames requested per missing period

	HostTickMs    float64 // host display tick length
	MaxCorrection float64 // max relative deviation of the corrected ratio

	Quality Quality

	// MaxBlockFrames sizes the scratch buffers for the worst-case block.
	MaxBlockFrames int
}

// Validate checks the parameters, filling defaults for optional fields.
func (p *Params) Validate() error {
	if p.NativeRate <= 0 {
		return fmt.Errorf("%w: native rate %d", ErrInvalidParameters, p.NativeRate)
	}
	if p.DeviceRate == 0 {
		p.DeviceRate = p.NativeRate
	}
	if p.DeviceRate < 0 {
		return fmt.Errorf("%w: device rate %d", ErrInvalidParameters, p.DeviceRate)
	}
	if p.Channels < 1 {
		return fmt.Errorf("%w: %d channels", ErrInvalidParameters, p.Channels)
	}
	if p.SamplesPerCallback < p.Channels {
		return fmt.Errorf("%w: callback period of %d samples", ErrInvalidParameters, p.SamplesPerCallback)
	}
	if p.TargetLow < 0 {
		return fmt.Errorf("%w: target window %d", ErrInvalidParameters, p.TargetLow)
	}
	if p.ScaleFactor < 0 {
		return fmt.Errorf("%w: scale factor %d", ErrInvalidParameters, p.ScaleFactor)
	}
	if p.HostTickMs < 0 || math.IsNaN(p.HostTickMs) {
		return fmt.Errorf("%w: host tick %vms", ErrInvalidParameters, p.HostTickMs)
	}
	if p.MaxCorrection <= 0 || p.MaxCorrection >= 1 {
		return fmt.Errorf("%w: max correction %v", ErrInvalidParameters, p.MaxCorrection)
	}
	if !p.Quality.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownQuality, int(p.Quality))
	}
	if p.MaxBlockFrames <= 0 {
		p.MaxBlockFrames = p.NativeRate / 50
	}
	return nil
}

func (p Params) baseRatio() float64 {
	return float64(p.DeviceRate) / float64(p.NativeRate)
}

// Adaptive converts frame blocks with a proportional occupancy correction.
//
// Process and Rehash share a mutex that is never held together with the
// ring buffer's lock.
type Adaptive struct {
	mu sync.Mutex

	params Params
	conv   *Converter
	ratio  float64

	in  []float32
	out []float32
	pcm []int16

	lastRequested int
	lastGenerated int
}

// NewAdaptive validates p and builds the converter and scratch buffers.
func NewAdaptive(p Params) (*Adaptive, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	conv, err := NewConverter(p.Quality, p.Channels)
	if err != nil {
		return nil, err
	}
	a := &Adaptive{
		params: p,
		conv:   conv,
		ratio:  p.baseRatio(),
	}
	a.allocate(p.MaxBlockFrames)
	return a, nil
}

func (a *Adaptive) allocate(frames int) {
	p := a.params
	ch := p.Channels
	outFrames := int(math.Ceil(float64(frames)*p.baseRatio()*(1+p.MaxCorrection))) +
		(p.TargetLow+1)*p.ScaleFactor + 2

	a.in = make([]float32, frames*ch)
	a.out = make([]float32, outFrames*ch)
	a.pcm = make([]int16, outFrames*ch)
}

// Correction returns the conversion ratio and the requested output frame
// count for a block of inFrames given queued samples in the ring buffer.
func (a *Adaptive) Correction(queued, inFrames int) (float64, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.correction(queued, inFrames)
}

func (a *Adaptive) correction(queued, inFrames int) (float64, int) {
	p := a.params
	base := p.baseRatio()
	request := int(math.Round(float64(inFrames) * base))

	framesQueued := queued / p.SamplesPerCallback
	if framesQueued >= p.TargetLow {
		return base, request
	}

	step := p.TargetLow - framesQueued
	nudge := (float64(p.NativeRate) + p.HostTickMs*float64(step)) / float64(p.NativeRate)
	nudge = math.Min(nudge, 1+p.MaxCorrection)
	nudge = math.Max(nudge, 1-p.MaxCorrection)

	return base * nudge, request + step*p.ScaleFactor
}

// Process converts one frame's interleaved block. queued is the ring
// buffer's current occupancy in samples. The returned slice is owned by the
// resampler and valid until the next call.
func (a *Adaptive) Process(block []int16, queued int) []int16 {
	a.mu.Lock()
	defer a.mu.Unlock()

	ch := a.params.Channels
	inFrames := len(block) / ch
	if inFrames == 0 {
		return a.pcm[:0]
	}
	if inFrames > len(a.in)/ch {
		slog.Debug("Growing resampler scratch buffers", "frames", inFrames)
		a.allocate(inFrames)
	}

	ratio, request := a.correction(queued, inFrames)
	a.ratio = ratio

	in := a.in[:inFrames*ch]
	for i, s := range block[:inFrames*ch] {
		in[i] = float32(s)
	}

	// one frame of slack so phase carry never truncates a block
	window := request + 1
	if window*ch > len(a.out) {
		window = len(a.out) / ch
	}
	generated := a.conv.Process(in, inFrames, ratio, a.out, window)
	a.lastRequested = request
	a.lastGenerated = generated

	pcm := a.pcm[:generated*ch]
	for i := range pcm {
		pcm[i] = Saturate(a.out[i])
	}
	return pcm
}

// Rehash replaces the resampler configuration, typically for a quality
// change. The converter is rebuilt so filter history is lost, which can be
// briefly audible. Invalid parameters leave the current state untouched.
func (a *Adaptive) Rehash(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	conv, err := NewConverter(p.Quality, p.Channels)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.params = p
	a.conv = conv
	a.ratio = p.baseRatio()
	a.allocate(p.MaxBlockFrames)
	return nil
}

// SetHostTickMs updates the host tick length used by the correction term.
// Non-positive values are ignored.
func (a *Adaptive) SetHostTickMs(ms float64) {
	if ms <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.params.HostTickMs = ms
}

// Params returns the active configuration.
func (a *Adaptive) Params() Params {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.params
}

// Ratio returns the ratio used for the most recent block.
func (a *Adaptive) Ratio() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ratio
}

// Last returns the requested and generated frame counts of the most recent
// block.
func (a *Adaptive) Last() (requested, generated int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastRequested, a.lastGenerated
}

// Saturate rounds v to the nearest int16, clamping at the format limits.
func Saturate(v float32) int16 {
	r := math.Round(float64(v))
	switch {
	case r >= math.MaxInt16:
		return math.MaxInt16
	case r <= math.MinInt16:
		return math.MinInt16
	case math.IsNaN(r):
		return 0
	}
	return int16(r)
}
