//go:build silero_vad

package vad

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/streamer45/silero-vad-go/speech"
)

// set WindowSize to 512 to get as fine-grained detection as possible
const windowSizeInSamples = 512

type sileroDetector struct {
	sd *speech.Detector
}

func NewDetector(cfg Config) (Detector, error) {
	cfg.SetDefaults()
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	sd, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            cfg.ModelFile,
		SampleRate:           cfg.SampleRate,
		WindowSize:           windowSizeInSamples,
		Threshold:            cfg.Threshold,
		MinSilenceDurationMs: cfg.MinSilenceDurationMs,
		SilencePadMs:         cfg.SilencePadMs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create speech detector: %w", err)
	}

	log.Info().Str("model", cfg.ModelFile).Msg("vad: silero detector loaded")
	return &sileroDetector{sd: sd}, nil
}

func (d *sileroDetector) Detect(samples []float32) ([]Region, error) {
	if err := d.sd.Reset(); err != nil {
		return nil, fmt.Errorf("failed to reset detector: %w", err)
	}
	segments, err := d.sd.Detect(samples)
	if err != nil {
		return nil, fmt.Errorf("failed to detect speech: %w", err)
	}
	regions := make([]Region, 0, len(segments))
	for _, s := range segments {
		regions = append(regions, Region{Start: s.SpeechStartAt, End: s.SpeechEndAt})
	}
	return regions, nil
}

func (d *sileroDetector) Close() error {
	return d.sd.Destroy()
}
