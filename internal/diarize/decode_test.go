package diarize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obiente/translate/scribe/internal/transcript"
)

func TestDecode(t *testing.T) {
	tcs := []struct {
		name          string
		input         string
		expectedTurns []transcript.Turn
		expectedError string
	}{
		{
			name:  "bare array",
			input: `[{"start": 0, "end": 1.5, "speaker": "SPEAKER_01"}, {"start": 1.5, "end": 3, "speaker": "SPEAKER_00"}]`,
			expectedTurns: []transcript.Turn{
				{Start: 0, End: 1.5, Speaker: "SPEAKER_01"},
				{Start: 1.5, End: 3, Speaker: "SPEAKER_00"},
			},
		},
		{
			name:          "wrapped in segments",
			input:         `{"segments": [{"start": 2, "end": 4, "speaker": "A"}]}`,
			expectedTurns: []transcript.Turn{{Start: 2, End: 4, Speaker: "A"}},
		},
		{
			name:          "label key and string numbers",
			input:         ` [{"start": "0.25", "end": "1", "label": "B"}] `,
			expectedTurns: []transcript.Turn{{Start: 0.25, End: 1, Speaker: "B"}},
		},
		{
			name:          "missing speaker",
			input:         `[{"start": 0, "end": 1}]`,
			expectedTurns: []transcript.Turn{{Start: 0, End: 1, Speaker: transcript.DefaultSpeaker}},
		},
		{
			name:          "numeric speaker",
			input:         `[{"start": 0, "end": 1, "speaker": 3}]`,
			expectedTurns: []transcript.Turn{{Start: 0, End: 1, Speaker: "3"}},
		},
		{
			name:          "empty array",
			input:         `[]`,
			expectedTurns: []transcript.Turn{},
		},
		{
			name:          "empty output",
			input:         "  \n",
			expectedError: "empty diarization output",
		},
		{
			name:          "object without segments",
			input:         `{"turns": []}`,
			expectedError: "diarization output has no segments",
		},
		{
			name:          "null segments",
			input:         `{"segments": null}`,
			expectedError: "diarization output has no segments",
		},
		{
			name:          "not json",
			input:         `Loading pipeline...`,
			expectedError: "unexpected diarization output",
		},
		{
			name:          "broken json",
			input:         `[{"start": 0,`,
			expectedError: "failed to parse diarization output: unexpected EOF",
		},
		{
			name:          "missing start",
			input:         `[{"start": 0, "end": 1}, {"end": 2, "speaker": "A"}]`,
			expectedError: "invalid diarization segment 1: missing start",
		},
		{
			name:          "missing end",
			input:         `[{"start": 0, "speaker": "A"}]`,
			expectedError: "invalid diarization segment 0: missing end",
		},
		{
			name:          "end before start",
			input:         `[{"start": 3, "end": 1, "speaker": "A"}]`,
			expectedError: "invalid diarization segment 0: end 1 is before start 3",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			turns, err := Decode([]byte(tc.input))
			if tc.expectedError != "" {
				require.EqualError(t, err, tc.expectedError)
				require.Nil(t, turns)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expectedTurns, turns)
		})
	}
}
