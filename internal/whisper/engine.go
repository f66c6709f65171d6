package whisper

import (
	"context"
	"fmt"

	"github.com/obiente/translate/scribe/internal/transcript"
)

// Options are the per-request knobs passed to an Engine.
type Options struct {
	// Language hint, "auto" or empty for auto-detection.
	Language string
	// VAD skips non-speech audio before decoding when the engine supports it.
	VAD bool
}

// Engine turns a canonical mono 16kHz WAV file into ordered, timestamped
// text segments. Implementations are safe for concurrent use.
type Engine interface {
	Transcribe(ctx context.Context, wavPath string, opts Options) ([]transcript.Segment, error)
	Close() error
}

type API string

const (
	APIWhisperCPP API = "whisper.cpp"
	APIOpenAI     API = "openai"
)

func (a API) IsValid() bool {
	switch a {
	case APIWhisperCPP, APIOpenAI:
		return true
	default:
		return false
	}
}

type Config struct {
	API API

	// whisper.cpp
	ModelFile    string
	NumThreads   int
	BeamSize     int
	VADModelFile string
	VADThreshold float32

	// openai
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
}

// New returns the Engine selected by cfg.API. Model loading is deferred to
// the first transcription.
func New(cfg Config) (Engine, error) {
	switch cfg.API {
	case APIWhisperCPP:
		return NewEngine(cfg)
	case APIOpenAI:
		e, err := NewOpenAIEngine(cfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unsupported transcribe api %q", cfg.API)
	}
}
