package transcript

import (
	"fmt"
	"html"
	"io"
	"math"
)

// vttTS converts ts seconds in the 00:00:00.000 format.
func vttTS(ts float64) string {
	total := int64(math.Round(ts * 1000))
	sMs := int64(1000)
	mMs := 60 * sMs
	hMs := 60 * mMs

	h := total / hMs
	m := (total - h*hMs) / mMs
	s := (total - h*hMs - m*mMs) / sMs
	ms := total - h*hMs - m*mMs - s*sMs

	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// WebVTT writes segments as a WebVTT document with voice spans per speaker.
func WebVTT(w io.Writer, segments []Merged) error {
	if _, err := fmt.Fprintf(w, "WEBVTT\n"); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	for _, s := range segments {
		if _, err := fmt.Fprintf(w, "\n%s --> %s\n", vttTS(s.Start), vttTS(s.End)); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
		if _, err := fmt.Fprintf(w, "<v %s>%s\n", html.EscapeString(s.Speaker), html.EscapeString(s.Text)); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}
	return nil
}

// Text writes segments in a plain readable layout, one block per segment.
func Text(w io.Writer, segments []Merged) error {
	for i, s := range segments {
		nl := "\n"
		if i == 0 {
			nl = ""
		}
		if _, err := fmt.Fprintf(w, "%s%s -> %s\n", nl, vttTS(s.Start), vttTS(s.End)); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n%s\n", s.Speaker, s.Text); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}
	return nil
}
