package resample

import (
	"errors"
	"fmt"
	"math"
)

// Quality selects the interpolation kernel used by a Converter.
type Quality int

const (
	QualityFastest Quality = iota // zero-order hold
	QualityLinear
	QualityCubic // 4-point Hermite
	QualitySinc  // Lanczos, a=3
)

// ErrUnknownQuality is returned for quality levels outside the known range.
var ErrUnknownQuality = errors.New("resample: unknown quality level")

func (q Quality) String() string {
	switch q {
	case QualityFastest:
		return "fastest"
	case QualityLinear:
		return "linear"
	case QualityCubic:
		return "cubic"
	case QualitySinc:
		return "sinc"
	default:
		return fmt.Sprintf("quality(%d)", int(q))
	}
}

// ParseQuality maps a name or level number to a Quality.
func ParseQuality(s string) (Quality, error) {
	for q := QualityFastest; q <= QualitySinc; q++ {
		if s == q.String() || s == fmt.Sprint(int(q)) {
			return q, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownQuality, s)
}

// Valid reports whether q names a known kernel.
func (q Quality) Valid() bool {
	return q >= QualityFastest && q <= QualitySinc
}

// halfWidth is the number of input frames the kernel needs on each side.
func (q Quality) halfWidth() int {
	switch q {
	case QualityCubic:
		return 2
	case QualitySinc:
		return 3
	default:
		return 1
	}
}

// Converter is a streaming sample-rate converter over interleaved float
// frames. Filter history and the fractional read position carry over between
// Process calls so consecutive blocks join without discontinuity.
type Converter struct {
	quality  Quality
	channels int
	a        int // kernel half width
	history  int // frames of history kept ahead of each block

	pos  float64   // read position in work-buffer frames
	work []float32 // history + current block, interleaved
}

// NewConverter creates a converter for the given kernel and channel count.
func NewConverter(q Quality, channels int) (*Converter, error) {
	if !q.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownQuality, int(q))
	}
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidParameters, channels)
	}

	a := q.halfWidth()
	c := &Converter{
		quality:  q,
		channels: channels,
		a:        a,
		history:  2 * a,
	}
	c.Reset()
	return c, nil
}

// Quality returns the converter's kernel.
func (c *Converter) Quality() Quality {
	return c.quality
}

// Reset discards filter history and phase.
func (c *Converter) Reset() {
	c.work = c.work[:0]
	c.work = append(c.work, make([]float32, c.history*c.channels)...)
	c.pos = float64(c.a)
}

// Process converts inFrames interleaved frames from in at the given ratio
// (output rate / input rate), writing at most outFrames frames to out. It
// returns the number of frames generated, which tracks inFrames*ratio but
// can differ from a caller's request by a frame either way.
func (c *Converter) Process(in []float32, inFrames int, ratio float64, out []float32, outFrames int) int {
	if inFrames <= 0 || ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0
	}
	ch := c.channels
	if n := len(in) / ch; inFrames > n {
		inFrames = n
	}
	if n := len(out) / ch; outFrames > n {
		outFrames = n
	}

	keep := c.history * ch
	c.work = append(c.work[:keep], in[:inFrames*ch]...)

	step := 1 / ratio
	limit := float64(inFrames + c.a)

	generated := 0
	for c.pos < limit && generated < outFrames {
		c.interpolate(out[generated*ch:(generated+1)*ch], c.pos)
		c.pos += step
		generated++
	}
	// the output window was smaller than the ratio asks for; skip the rest of
	// this block rather than letting the read position fall behind
	for c.pos < limit {
		c.pos += step
	}

	c.pos -= float64(inFrames)
	total := len(c.work) / ch
	copy(c.work, c.work[(total-c.history)*ch:])
	c.work = c.work[:keep]

	return generated
}

func (c *Converter) interpolate(dst []float32, x float64) {
	ch := c.channels
	i := int(x)
	f := x - float64(i)
	w := c.work

	switch c.quality {
	case QualityFastest:
		for k := 0; k < ch; k++ {
			dst[k] = w[i*ch+k]
		}

	case QualityLinear:
		for k := 0; k < ch; k++ {
			s0 := float64(w[i*ch+k])
			s1 := float64(w[(i+1)*ch+k])
			dst[k] = float32(s0 + (s1-s0)*f)
		}

	case QualityCubic:
		for k := 0; k < ch; k++ {
			xm1 := float64(w[(i-1)*ch+k])
			x0 := float64(w[i*ch+k])
			x1 := float64(w[(i+1)*ch+k])
			x2 := float64(w[(i+2)*ch+k])
			c1 := 0.5 * (x1 - xm1)
			c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
			c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
			dst[k] = float32(((c3*f+c2)*f+c1)*f + x0)
		}

	case QualitySinc:
		var weights [6]float64
		var sum float64
		for j := 0; j < 2*c.a; j++ {
			weights[j] = lanczos(f-float64(j-c.a+1), c.a)
			sum += weights[j]
		}
		if sum == 0 {
			sum = 1
		}
		base := i - c.a + 1
		for k := 0; k < ch; k++ {
			var acc float64
			for j := 0; j < 2*c.a; j++ {
				acc += float64(w[(base+j)*ch+k]) * weights[j]
			}
			dst[k] = float32(acc / sum)
		}
	}
}

func lanczos(x float64, a int) float64 {
	if x == 0 {
		return 1
	}
	fa := float64(a)
	if x <= -fa || x >= fa {
		return 0
	}
	px := math.Pi * x
	return fa * math.Sin(px) * math.Sin(px/fa) / (px * px)
}
