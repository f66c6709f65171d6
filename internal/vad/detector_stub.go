//go:build !silero_vad

package vad

import "errors"

// NewDetector fails when the binary is built without the silero_vad tag.
func NewDetector(cfg Config) (Detector, error) {
	return nil, errors.New("silero vad support not compiled in (build with -tags silero_vad)")
}
