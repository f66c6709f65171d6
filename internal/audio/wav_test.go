package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, rate, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	err = enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	})
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	return path
}

func TestInspect(t *testing.T) {
	t.Run("canonical", func(t *testing.T) {
		path := writeWAV(t, SampleRate, 1, make([]int, SampleRate))
		info, err := Inspect(path)
		require.NoError(t, err)
		require.Equal(t, SampleRate, info.SampleRate)
		require.Equal(t, 1, info.Channels)
		require.Equal(t, 16, info.BitDepth)
		require.InDelta(t, float64(time.Second), float64(info.Duration), float64(10*time.Millisecond))
		require.True(t, info.IsCanonical())
	})

	t.Run("stereo", func(t *testing.T) {
		path := writeWAV(t, 44100, 2, make([]int, 200))
		info, err := Inspect(path)
		require.NoError(t, err)
		require.False(t, info.IsCanonical())
	})

	t.Run("not a wav", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bogus.wav")
		require.NoError(t, os.WriteFile(path, []byte("definitely not riff"), 0o600))
		_, err := Inspect(path)
		require.EqualError(t, err, "invalid wav file")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Inspect(filepath.Join(t.TempDir(), "missing.wav"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestReadWAVFile(t *testing.T) {
	t.Run("mono", func(t *testing.T) {
		path := writeWAV(t, SampleRate, 1, []int{0, 16384, -16384, 32767})
		samples, err := ReadWAVFile(path)
		require.NoError(t, err)
		require.Len(t, samples, 4)
		require.InDelta(t, 0.5, samples[1], 1e-4)
		require.InDelta(t, -0.5, samples[2], 1e-4)
	})

	t.Run("stereo is downmixed", func(t *testing.T) {
		path := writeWAV(t, SampleRate, 2, []int{16384, 0, 16384, 16384})
		samples, err := ReadWAVFile(path)
		require.NoError(t, err)
		require.Len(t, samples, 2)
		require.InDelta(t, 0.25, samples[0], 1e-4)
		require.InDelta(t, 0.5, samples[1], 1e-4)
	})

	t.Run("resampled", func(t *testing.T) {
		path := writeWAV(t, 8000, 1, make([]int, 800))
		samples, err := ReadWAVFile(path)
		require.NoError(t, err)
		require.Len(t, samples, 1600)
	})
}

func TestResampleLinear(t *testing.T) {
	require.Empty(t, ResampleLinear(nil, 8000, 16000))
	require.Equal(t, []float32{1, 2}, ResampleLinear([]float32{1, 2}, 16000, 16000))

	out := ResampleLinear([]float32{0, 1}, 8000, 16000)
	require.Equal(t, []float32{0, 0.5, 1, 1}, out)
}
