// Package pipeline runs a transcription job end to end: it acquires the
// media, transcribes it, optionally diarizes it and reconciles the two.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/obiente/translate/scribe/internal/audio"
	"github.com/obiente/translate/scribe/internal/diarize"
	"github.com/obiente/translate/scribe/internal/lazy"
	"github.com/obiente/translate/scribe/internal/media"
	"github.com/obiente/translate/scribe/internal/transcript"
	"github.com/obiente/translate/scribe/internal/whisper"
)

type Normalizer interface {
	Normalize(ctx context.Context, src media.Source, dir string) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string, opts whisper.Options) ([]transcript.Segment, error)
}

type Stage string

const (
	StageValidating   Stage = "validating"
	StageNormalizing  Stage = "normalizing"
	StageTranscribing Stage = "transcribing"
	StageDiarizing    Stage = "diarizing"
	StageReconciling  Stage = "reconciling"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// Event reports the progress of a job.
type Event struct {
	JobID string
	Stage Stage
}

// Observer is called synchronously on the job goroutine for every stage.
type Observer func(Event)

type Config struct {
	// TempDir is the parent of the per-job directories. Empty means
	// os.TempDir().
	TempDir string
}

type Pipeline struct {
	cfg         Config
	normalizer  Normalizer
	transcriber Transcriber
	diarizer    *lazy.Value[diarize.Engine]
}

// New creates a Pipeline. The diarization engine is created by newDiarizer
// on the first job that asks for diarization and then shared.
func New(cfg Config, normalizer Normalizer, transcriber Transcriber, newDiarizer func() (diarize.Engine, error)) *Pipeline {
	if newDiarizer == nil {
		newDiarizer = func() (diarize.Engine, error) {
			return nil, errors.New("diarization is not configured")
		}
	}
	return &Pipeline{
		cfg:         cfg,
		normalizer:  normalizer,
		transcriber: transcriber,
		diarizer:    lazy.New(newDiarizer),
	}
}

// Close releases the diarization engine if it was created.
func (p *Pipeline) Close() error {
	if e, ok := p.diarizer.Reset(); ok {
		return e.Close()
	}
	return nil
}

// Process runs req under a fresh job id.
func (p *Pipeline) Process(ctx context.Context, req Request) Result {
	return p.Run(ctx, uuid.NewString(), req, nil)
}

// Run processes req as job jobID, reporting progress to obs when not nil.
// Failures are reported in the Result; the per-job directory is removed
// before Run returns.
func (p *Pipeline) Run(ctx context.Context, jobID string, req Request, obs Observer) Result {
	logger := log.With().Str("job_id", jobID).Logger()
	notify := func(stage Stage) {
		logger.Debug().Str("stage", string(stage)).Msg("pipeline: stage")
		if obs != nil {
			obs(Event{JobID: jobID, Stage: stage})
		}
	}

	segments, err := p.run(ctx, req, notify, logger)
	if err != nil {
		logger.Error().Err(err).Str("kind", string(err.Kind)).Msg("pipeline: job failed")
		notify(StageFailed)
		return Result{Err: err}
	}

	logger.Info().Int("segments", len(segments)).Bool("diarize", req.Diarize).Msg("pipeline: job done")
	notify(StageDone)
	return Result{Segments: segments}
}

func (p *Pipeline) run(ctx context.Context, req Request, notify func(Stage), logger zerolog.Logger) ([]transcript.Merged, *Error) {
	notify(StageValidating)
	if err := req.Validate(); err != nil {
		return nil, newError(KindValidation, err)
	}

	dir, err := os.MkdirTemp(p.cfg.TempDir, "scribe-")
	if err != nil {
		return nil, newError(KindAcquisition, fmt.Errorf("failed to create temp dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn().Err(err).Str("dir", dir).Msg("pipeline: failed to remove temp dir")
		}
	}()

	notify(StageNormalizing)
	wavPath, err := p.normalizer.Normalize(ctx, req.Source(), dir)
	if err != nil {
		return nil, newError(KindAcquisition, err)
	}
	if err := checkWAV(wavPath); err != nil {
		return nil, newError(KindAcquisition, err)
	}

	notify(StageTranscribing)
	segments, err := p.transcriber.Transcribe(ctx, wavPath, whisper.Options{
		Language: req.Language,
		VAD:      req.VAD,
	})
	if err != nil {
		return nil, newError(KindTranscription, err)
	}
	if err := transcript.ValidateSegments(segments); err != nil {
		return nil, newError(KindMalformed, err)
	}
	logger.Debug().Int("segments", len(segments)).Msg("pipeline: transcribed")

	if !req.Diarize {
		return transcript.Label(segments), nil
	}

	notify(StageDiarizing)
	engine, err := p.diarizer.Get()
	if err != nil {
		return nil, newError(KindDiarization, fmt.Errorf("failed to load diarization engine: %w", err))
	}
	turns, err := engine.Diarize(ctx, wavPath)
	if err != nil {
		return nil, newError(KindDiarization, err)
	}
	if err := transcript.ValidateTurns(turns); err != nil {
		return nil, newError(KindMalformed, err)
	}
	logger.Debug().Int("turns", len(turns)).Msg("pipeline: diarized")

	notify(StageReconciling)
	return transcript.Reconcile(segments, turns), nil
}

func checkWAV(path string) error {
	info, err := audio.Inspect(path)
	if err != nil {
		return fmt.Errorf("failed to inspect normalized audio: %w", err)
	}
	if !info.IsCanonical() {
		return fmt.Errorf("normalized audio is not mono %d Hz (got %d channels at %d Hz)",
			audio.SampleRate, info.Channels, info.SampleRate)
	}
	if info.Duration <= 0 {
		return errors.New("normalized audio is empty")
	}
	return nil
}
