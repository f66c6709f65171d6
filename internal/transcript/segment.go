package transcript

import (
	"fmt"
	"math"
)

// DefaultSpeaker is assigned when no speaker information covers a segment.
const DefaultSpeaker = "SPEAKER_00"

// Segment is a piece of recognized text as emitted by the transcription engine.
// Times are seconds from the start of the waveform.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Turn is a speaker-labeled interval produced by the diarization engine.
type Turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Merged is the externally visible output unit.
type Merged struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
}

// InvalidError reports collaborator output that violates the interval
// preconditions. It is never produced by Reconcile itself.
type InvalidError struct {
	What  string
	Index int
	Msg   string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid %s %d: %s", e.What, e.Index, e.Msg)
}

// Round rounds x to millisecond precision. Halves are rounded away from zero.
func Round(x float64) float64 {
	return math.Round(x*1000) / 1000
}

func checkInterval(start, end float64) string {
	switch {
	case math.IsNaN(start) || math.IsInf(start, 0):
		return "start is not a finite number"
	case math.IsNaN(end) || math.IsInf(end, 0):
		return "end is not a finite number"
	case start < 0:
		return fmt.Sprintf("start %v is negative", start)
	case end < start:
		return fmt.Sprintf("end %v is before start %v", end, start)
	}
	return ""
}

// ValidateSegments checks the interval invariants of transcript segments.
func ValidateSegments(segments []Segment) error {
	for i, s := range segments {
		if msg := checkInterval(s.Start, s.End); msg != "" {
			return &InvalidError{What: "transcript segment", Index: i, Msg: msg}
		}
	}
	return nil
}

// ValidateTurns checks the interval invariants of diarization turns.
func ValidateTurns(turns []Turn) error {
	for i, t := range turns {
		if msg := checkInterval(t.Start, t.End); msg != "" {
			return &InvalidError{What: "diarization segment", Index: i, Msg: msg}
		}
		if t.Speaker == "" {
			return &InvalidError{What: "diarization segment", Index: i, Msg: "speaker is empty"}
		}
	}
	return nil
}
