package pipeline

import (
	"encoding/json"

	"github.com/obiente/translate/scribe/internal/transcript"
)

// Result is the output envelope of a job: either the merged segments or an
// error, never both.
type Result struct {
	Segments []transcript.Merged
	Err      *Error
}

func (r Result) Failed() bool {
	return r.Err != nil
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Err.Error()})
	}
	segments := r.Segments
	if segments == nil {
		segments = []transcript.Merged{}
	}
	return json.Marshal(struct {
		Segments []transcript.Merged `json:"segments"`
	}{segments})
}
