package pipeline

import (
	"errors"

	"github.com/obiente/translate/scribe/internal/transcript"
)

// Kind classifies where a job failed.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAcquisition   Kind = "acquisition"
	KindTranscription Kind = "transcription"
	KindDiarization   Kind = "diarization"
	// KindMalformed is used when engine output breaks the interval
	// preconditions of the reconciler.
	KindMalformed Kind = "malformed"
)

// Error is a failed job. Its message is the message of the cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) *Error {
	var invalid *transcript.InvalidError
	if errors.As(err, &invalid) {
		kind = KindMalformed
	}
	return &Error{Kind: kind, Err: err}
}
