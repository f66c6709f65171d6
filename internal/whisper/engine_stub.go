//go:build !whisper_cpp

package whisper

import (
	"context"
	"errors"

	"github.com/obiente/translate/scribe/internal/transcript"
)

var errNotCompiled = errors.New("whisper.cpp support not compiled in (build with -tags whisper_cpp)")

// Default stub (no cgo) so the project builds without whisper_cpp tag.
type stubEngine struct{}

func NewEngine(cfg Config) (Engine, error) { return &stubEngine{}, nil }
func (e *stubEngine) Close() error        { return nil }
func (e *stubEngine) Transcribe(ctx context.Context, wavPath string, opts Options) ([]transcript.Segment, error) {
	return nil, errNotCompiled
}
