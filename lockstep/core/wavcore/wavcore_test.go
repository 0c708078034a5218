package wavcore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, rate, channels, depth int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, depth, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: depth,
	}))
	require.NoError(t, enc.Close())
	return path
}

func TestOpen_RoundTrip(t *testing.T) {
	data := make([]int, 1000*2)
	for i := range data {
		data[i] = i - 1000
	}
	path := writeWAV(t, 8000, 2, 16, data)

	c, err := Open(path, 50)
	require.NoError(t, err)

	info := c.AudioInfo()
	assert.Equal(t, 8000, info.SampleRate)
	assert.Equal(t, 2, info.Channels)
	assert.Equal(t, 160, info.SamplesPerFrame)

	require.NoError(t, c.RunFrame())
	s := c.Samples()
	require.Len(t, s, 320)
	for i, v := range s {
		assert.Equal(t, int16(i-1000), v)
	}
}

func TestCore_Loops(t *testing.T) {
	data := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	path := writeWAV(t, 1000, 1, 16, data)

	c, err := Open(path, 250) // four samples per frame
	require.NoError(t, err)

	var got []int16
	for i := 0; i < 5; i++ {
		require.NoError(t, c.RunFrame())
		got = append(got, c.Samples()...)
	}
	assert.Equal(t, []int16{
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10,
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10,
	}, got)
	assert.Equal(t, 2, c.Loops())
}

func TestCore_EightBit(t *testing.T) {
	path := writeWAV(t, 1000, 1, 8, []int{128, 255, 0, 128})
	c, err := Open(path, 250)
	require.NoError(t, err)
	require.NoError(t, c.RunFrame())
	assert.Equal(t, []int16{0, 127 << 8, -128 << 8, 0}, c.Samples())
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(bytes.NewReader([]byte("definitely not a riff file")), 60)
	assert.ErrorIs(t, err, ErrInvalidFile)

	_, err = Open(filepath.Join(t.TempDir(), "missing.wav"), 60)
	assert.Error(t, err)

	path := writeWAV(t, 1000, 1, 16, []int{1, 2})
	_, err = Open(path, 0)
	assert.Error(t, err)
}

func TestToInt16(t *testing.T) {
	tests := []struct {
		v     int
		depth int
		want  int16
	}{
		{128, 8, 0},
		{-5, 16, -5},
		{0x7fff00, 24, 0x7fff},
		{-0x800000, 24, -0x8000},
		{0x10000, 32, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, toInt16(tt.v, tt.depth))
	}
}

func TestNewMP3_Invalid(t *testing.T) {
	_, err := NewMP3(bytes.NewReader([]byte("not an mp3 stream at all")), 60)
	assert.ErrorIs(t, err, ErrInvalidFile)

	path := filepath.Join(t.TempDir(), "song.MP3")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	_, err = Open(path, 60)
	require.ErrorIs(t, err, ErrInvalidFile)
	assert.Contains(t, err.Error(), "mp3", "extension picks the mp3 decoder")
}

func TestNewCore_Empty(t *testing.T) {
	_, err := newCore(nil, 44100, 2, 60)
	assert.ErrorIs(t, err, ErrInvalidFile)

	c, err := newCore([]int16{1, -1, 2, -2}, 44100, mp3Channels, 60)
	require.NoError(t, err)
	assert.Equal(t, 735, c.AudioInfo().SamplesPerFrame)
}
