package diarize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/obiente/translate/scribe/internal/transcript"
)

// Decode normalizes the output of a diarization backend into turns. Accepted
// shapes are a bare array of turns or an object holding them under
// "segments". The speaker may be named "speaker" or "label"; turns without
// either are attributed to transcript.DefaultSpeaker. Start and end may be
// numbers or numeric strings and are required.
func Decode(raw []byte) ([]transcript.Turn, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty diarization output")
	}

	var items []map[string]any
	switch raw[0] {
	case '[':
		if err := unmarshal(raw, &items); err != nil {
			return nil, err
		}
	case '{':
		var wrapper struct {
			Segments json.RawMessage `json:"segments"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, fmt.Errorf("failed to parse diarization output: %w", err)
		}
		if len(wrapper.Segments) == 0 || string(wrapper.Segments) == "null" {
			return nil, fmt.Errorf("diarization output has no segments")
		}
		if err := unmarshal(wrapper.Segments, &items); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unexpected diarization output")
	}

	turns := make([]transcript.Turn, 0, len(items))
	for i, item := range items {
		start, ok := number(item["start"])
		if !ok {
			return nil, &transcript.InvalidError{What: "diarization segment", Index: i, Msg: "missing start"}
		}
		end, ok := number(item["end"])
		if !ok {
			return nil, &transcript.InvalidError{What: "diarization segment", Index: i, Msg: "missing end"}
		}
		speaker := label(item["speaker"])
		if speaker == "" {
			speaker = label(item["label"])
		}
		if speaker == "" {
			speaker = transcript.DefaultSpeaker
		}
		turns = append(turns, transcript.Turn{Start: start, End: end, Speaker: speaker})
	}

	if err := transcript.ValidateTurns(turns); err != nil {
		return nil, err
	}
	return turns, nil
}

func unmarshal(raw []byte, items *[]map[string]any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(items); err != nil {
		return fmt.Errorf("failed to parse diarization output: %w", err)
	}
	return nil
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func label(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	default:
		return ""
	}
}
