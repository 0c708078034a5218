// Package wavcore replays a WAV or MP3 recording as if it were an emulation
// core, handing out one frame's worth of samples per RunFrame and looping at
// the end of the file.
package wavcore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"

	"github.com/valerio/go-lockstep/lockstep/core"
)

var ErrInvalidFile = errors.New("wavcore: not a valid wav file")

// Core streams a decoded recording frame by frame.
type Core struct {
	info     core.AudioInfo
	splitter *core.FrameSplitter

	pcm   []int16 // whole recording, interleaved
	pos   int     // next sample
	loops int

	block []int16
}

var _ core.Core = (*Core)(nil)

// Open decodes the recording at path, choosing the decoder by extension.
func Open(path string, fps float64) (*Core, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wavcore: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return NewMP3(f, fps)
	default:
		return New(f, fps)
	}
}

// New decodes a WAV stream fully into memory and prepares it to be played
// back at fps frames per second.
func New(r io.ReadSeeker, fps float64) (*Core, error) {
	dec := wav.NewDecoder(r)
	if dec == nil || !dec.IsValidFile() {
		return nil, ErrInvalidFile
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wavcore: %w", err)
	}

	channels := max(int(dec.NumChans), 1)
	pcm := make([]int16, len(buf.Data)-len(buf.Data)%channels)
	for i := range pcm {
		pcm[i] = toInt16(buf.Data[i], int(dec.BitDepth))
	}

	slog.Info("Loaded wav recording",
		"rate", dec.SampleRate, "channels", dec.NumChans,
		"bit_depth", dec.BitDepth, "frames", len(pcm)/channels)
	return newCore(pcm, int(dec.SampleRate), int(dec.NumChans), fps)
}

func newCore(pcm []int16, rate, channels int, fps float64) (*Core, error) {
	info := core.AudioInfo{
		SampleRate: rate,
		Channels:   channels,
		FPS:        fps,
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	info.SamplesPerFrame = int(float64(info.SampleRate)/fps + 0.5)

	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidFile)
	}

	return &Core{
		info:     info,
		splitter: core.NewFrameSplitter(info.SampleRate, fps),
		pcm:      pcm,
	}, nil
}

// toInt16 rescales a decoded sample of the given bit depth to 16 bits.
func toInt16(v, depth int) int16 {
	switch {
	case depth == 8:
		return int16((v - 128) << 8)
	case depth > 16:
		return int16(v >> (depth - 16))
	default:
		return int16(v)
	}
}

func (c *Core) AudioInfo() core.AudioInfo { return c.info }

// RunFrame copies the next frame of samples, wrapping to the start of the
// recording at the end.
func (c *Core) RunFrame() error {
	n := c.splitter.Next() * c.info.Channels
	if cap(c.block) < n {
		c.block = make([]int16, n)
	}
	c.block = c.block[:n]

	for filled := 0; filled < n; {
		copied := copy(c.block[filled:], c.pcm[c.pos:])
		filled += copied
		c.pos += copied
		if c.pos == len(c.pcm) {
			c.pos = 0
			c.loops++
		}
	}
	return nil
}

func (c *Core) Samples() []int16 { return c.block }

// Loops returns how many times playback wrapped around.
func (c *Core) Loops() int { return c.loops }
