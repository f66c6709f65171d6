package whisper

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/obiente/translate/scribe/internal/transcript"
)

// OpenAIEngine transcribes through the OpenAI audio API using verbose JSON
// output, which carries segment timestamps.
type OpenAIEngine struct {
	client *openai.Client
	model  string
}

func NewOpenAIEngine(cfg Config) (*OpenAIEngine, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, errors.New("invalid OpenAIAPIKey: should not be empty")
	}
	model := cfg.OpenAIModel
	if model == "" {
		model = openai.Whisper1
	}

	ocfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		ocfg.BaseURL = cfg.OpenAIBaseURL
	}

	return &OpenAIEngine{
		client: openai.NewClientWithConfig(ocfg),
		model:  model,
	}, nil
}

func (e *OpenAIEngine) Transcribe(ctx context.Context, wavPath string, opts Options) ([]transcript.Segment, error) {
	req := openai.AudioRequest{
		Model:    e.model,
		FilePath: wavPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}
	if opts.Language != "" && opts.Language != "auto" {
		req.Language = opts.Language
	}
	if opts.VAD {
		log.Debug().Msg("openai: vad filtering is not supported remotely, ignoring")
	}

	resp, err := e.client.CreateTranscription(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	segments := make([]transcript.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, transcript.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  s.Text,
		})
	}

	log.Debug().
		Str("language", resp.Language).
		Float64("duration", resp.Duration).
		Int("segments", len(segments)).
		Msg("openai: transcription complete")

	return segments, nil
}

func (e *OpenAIEngine) Close() error { return nil }
