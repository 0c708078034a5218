package wavcore

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/hajimehoshi/go-mp3"
)

// mp3Channels is fixed: the decoder always produces 16-bit little endian
// stereo, even for mono sources.
const mp3Channels = 2

// NewMP3 decodes an MP3 stream fully into memory.
func NewMP3(r io.Reader, fps float64) (*Core, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %w", ErrInvalidFile, err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("wavcore: mp3: %w", err)
	}

	pcm := make([]int16, len(raw)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	pcm = pcm[:len(pcm)-len(pcm)%mp3Channels]

	slog.Info("Loaded mp3 recording",
		"rate", dec.SampleRate(), "channels", mp3Channels, "frames", len(pcm)/mp3Channels)
	return newCore(pcm, dec.SampleRate(), mp3Channels, fps)
}
