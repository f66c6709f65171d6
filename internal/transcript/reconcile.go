package transcript

import "strings"

// Reconcile assigns one speaker to every transcript segment based on how much
// of the segment each speaker's turns cover. Output order and count match the
// input segments.
//
// When speakers tie for coverage, the one whose first overlapping turn comes
// earliest in turns wins. Segments not covered by any turn get DefaultSpeaker.
//
// Inputs must satisfy ValidateSegments and ValidateTurns.
func Reconcile(segments []Segment, turns []Turn) []Merged {
	out := make([]Merged, 0, len(segments))

	// Reused across segments; sized for the worst case of one speaker per turn.
	coverage := make(map[string]float64, len(turns))
	order := make([]string, 0, len(turns))

	for _, s := range segments {
		clear(coverage)
		order = order[:0]

		for _, t := range turns {
			ov := overlap(s.Start, s.End, t.Start, t.End)
			if ov <= 0 {
				continue
			}
			if _, seen := coverage[t.Speaker]; !seen {
				order = append(order, t.Speaker)
			}
			coverage[t.Speaker] += ov
		}

		out = append(out, merge(s, dominant(coverage, order)))
	}

	return out
}

// Label is used when diarization is disabled: every segment is attributed to
// DefaultSpeaker.
func Label(segments []Segment) []Merged {
	out := make([]Merged, 0, len(segments))
	for _, s := range segments {
		out = append(out, merge(s, DefaultSpeaker))
	}
	return out
}

func overlap(aStart, aEnd, bStart, bEnd float64) float64 {
	ov := min(aEnd, bEnd) - max(aStart, bStart)
	if ov < 0 {
		return 0
	}
	return ov
}

func dominant(coverage map[string]float64, order []string) string {
	speaker := DefaultSpeaker
	best := 0.0
	for _, spk := range order {
		// strict comparison keeps the first seen speaker on ties
		if c := coverage[spk]; c > best {
			best = c
			speaker = spk
		}
	}
	return speaker
}

func merge(s Segment, speaker string) Merged {
	return Merged{
		Start:   Round(s.Start),
		End:     Round(s.End),
		Speaker: speaker,
		Text:    strings.TrimSpace(s.Text),
	}
}
