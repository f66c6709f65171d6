package vad

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	tcs := []struct {
		name string
		cfg  Config
		err  string
	}{
		{
			name: "empty config",
			err:  "invalid ModelFile: should not be empty",
		},
		{
			name: "bad sample rate",
			cfg:  Config{ModelFile: "silero_vad.onnx", SampleRate: 44100, Threshold: 0.5},
			err:  "invalid SampleRate: should be 8000 or 16000",
		},
		{
			name: "bad threshold",
			cfg:  Config{ModelFile: "silero_vad.onnx", SampleRate: 16000, Threshold: 1},
			err:  "invalid Threshold: should be in the range (0, 1)",
		},
		{
			name: "valid",
			cfg:  Config{ModelFile: "silero_vad.onnx", SampleRate: 16000, Threshold: 0.5},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.IsValid()
			if tc.err != "" {
				require.EqualError(t, err, tc.err)
			} else {
				require.NoError(t, err)
			}
		})
	}

	t.Run("defaults", func(t *testing.T) {
		cfg := Config{ModelFile: "silero_vad.onnx"}
		cfg.SetDefaults()
		require.Equal(t, Config{
			ModelFile:            "silero_vad.onnx",
			SampleRate:           16000,
			Threshold:            0.5,
			MinSilenceDurationMs: 480,
			SilencePadMs:         30,
		}, cfg)
		require.NoError(t, cfg.IsValid())
	})
}

func TestClamp(t *testing.T) {
	tcs := []struct {
		name     string
		regions  []Region
		n        int
		expected []Window
	}{
		{
			name:     "empty",
			n:        16000,
			expected: []Window{},
		},
		{
			name:     "in bounds",
			regions:  []Region{{Start: 0.5, End: 1}, {Start: 2, End: 2.5}},
			n:        48000,
			expected: []Window{{Start: 8000, End: 16000}, {Start: 32000, End: 40000}},
		},
		{
			name:     "open ended",
			regions:  []Region{{Start: 1}},
			n:        24000,
			expected: []Window{{Start: 16000, End: 24000}},
		},
		{
			name:     "clipped to buffer",
			regions:  []Region{{Start: 0.5, End: 10}},
			n:        16000,
			expected: []Window{{Start: 8000, End: 16000}},
		},
		{
			name:     "past the end dropped",
			regions:  []Region{{Start: 3, End: 4}},
			n:        16000,
			expected: []Window{},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, Clamp(tc.regions, tc.n, 16000))
		})
	}
}
