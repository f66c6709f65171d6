// Package vad finds the speech regions of a waveform so silence can be
// skipped before transcription.
package vad

import "fmt"

// Region is a stretch of speech in seconds. An End of zero means the speech
// runs to the end of the buffer.
type Region struct {
	Start float64
	End   float64
}

// Window is a Region resolved to sample offsets, End exclusive.
type Window struct {
	Start int
	End   int
}

type Config struct {
	// The path to the silero ONNX model file.
	ModelFile            string
	SampleRate           int
	Threshold            float32
	MinSilenceDurationMs int
	SilencePadMs         int
}

const (
	defaultThreshold            = 0.5
	defaultMinSilenceDurationMs = 480
	defaultSilencePadMs         = 30
)

func (c *Config) SetDefaults() {
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
	if c.Threshold == 0 {
		c.Threshold = defaultThreshold
	}
	if c.MinSilenceDurationMs == 0 {
		c.MinSilenceDurationMs = defaultMinSilenceDurationMs
	}
	if c.SilencePadMs == 0 {
		c.SilencePadMs = defaultSilencePadMs
	}
}

func (c Config) IsValid() error {
	if c.ModelFile == "" {
		return fmt.Errorf("invalid ModelFile: should not be empty")
	}
	if c.SampleRate != 8000 && c.SampleRate != 16000 {
		return fmt.Errorf("invalid SampleRate: should be 8000 or 16000")
	}
	if c.Threshold <= 0 || c.Threshold >= 1 {
		return fmt.Errorf("invalid Threshold: should be in the range (0, 1)")
	}
	return nil
}

// Detector finds speech regions. Implementations are not safe for concurrent use.
type Detector interface {
	Detect(samples []float32) ([]Region, error)
	Close() error
}

// Clamp converts regions into sample windows bounded by a buffer of n
// samples at rate. Empty windows are dropped.
func Clamp(regions []Region, n, rate int) []Window {
	out := make([]Window, 0, len(regions))
	for _, r := range regions {
		start := int(r.Start * float64(rate))
		end := n
		if r.End > 0 {
			end = int(r.End * float64(rate))
		}
		start = max(0, min(start, n))
		end = max(0, min(end, n))
		if end <= start {
			continue
		}
		out = append(out, Window{Start: start, End: end})
	}
	return out
}
