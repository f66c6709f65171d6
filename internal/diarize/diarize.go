package diarize

import (
	"context"
	"fmt"
	"time"

	"github.com/obiente/translate/scribe/internal/command"
	"github.com/obiente/translate/scribe/internal/transcript"
)

// Engine produces speaker turns for a canonical mono 16kHz WAV file.
type Engine interface {
	Diarize(ctx context.Context, wavPath string) ([]transcript.Turn, error)
	Close() error
}

type API string

const (
	APIScript API = "script"
	APIHTTP   API = "http"
)

func (a API) IsValid() bool {
	switch a {
	case APIScript, APIHTTP:
		return true
	default:
		return false
	}
}

const DefaultModel = "ivrit-ai/pyannote-speaker-diarization-3.1"

type Config struct {
	API API

	// script
	Python  string
	Model   string
	Device  string
	HFToken string

	// http
	URL     string
	Token   string
	Timeout time.Duration
}

// New returns the Engine selected by cfg.API. The script engine is started,
// so its model is loaded when New returns.
func New(cfg Config, spawner command.Spawner) (Engine, error) {
	switch cfg.API {
	case APIScript:
		e := NewScriptEngine(cfg, spawner)
		if err := e.Start(); err != nil {
			_ = e.Close()
			return nil, err
		}
		return e, nil
	case APIHTTP:
		e, err := NewHTTPEngine(cfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unsupported diarize api %q", cfg.API)
	}
}
