//go:build whisper_cpp

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	whisperpkg "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog/log"

	"github.com/obiente/translate/scribe/internal/audio"
	"github.com/obiente/translate/scribe/internal/lazy"
	"github.com/obiente/translate/scribe/internal/transcript"
	"github.com/obiente/translate/scribe/internal/vad"
)

const defaultBeamSize = 5

// EngineCPP is the whisper.cpp-backed implementation of Engine. The model is
// loaded on first use and shared by every request.
type EngineCPP struct {
	modelFile string
	threads   uint
	beamSize  int
	vadFile   string
	vadThresh float32

	model    *lazy.Value[whisperpkg.Model]
	detector *lazy.Value[vad.Detector]
	mu       sync.Mutex // Protect concurrent access to the model and detector
}

func NewEngine(cfg Config) (Engine, error) {
	if cfg.ModelFile == "" {
		return nil, errors.New("invalid ModelFile: should not be empty")
	}

	threads := uint(runtime.NumCPU())
	if cfg.NumThreads > 0 {
		threads = uint(cfg.NumThreads)
		log.Info().Int("threads", cfg.NumThreads).Msg("whisper: using configured thread count")
	} else {
		log.Info().Uint("threads", threads).Msg("whisper: using default thread count (CPU cores)")
	}

	beamSize := cfg.BeamSize
	if beamSize <= 0 {
		beamSize = defaultBeamSize
	}

	e := &EngineCPP{
		modelFile: cfg.ModelFile,
		threads:   threads,
		beamSize:  beamSize,
		vadFile:   cfg.VADModelFile,
		vadThresh: cfg.VADThreshold,
	}
	e.model = lazy.New(func() (whisperpkg.Model, error) {
		m, err := whisperpkg.New(e.modelFile)
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
		log.Info().Str("model", e.modelFile).Msg("whisper: model loaded successfully")
		return m, nil
	})
	e.detector = lazy.New(func() (vad.Detector, error) {
		return vad.NewDetector(vad.Config{
			ModelFile:  e.vadFile,
			SampleRate: audio.SampleRate,
			Threshold:  e.vadThresh,
		})
	})
	return e, nil
}

func (e *EngineCPP) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.model.Reset(); ok {
		m.Close()
	}
	if d, ok := e.detector.Reset(); ok {
		return d.Close()
	}
	return nil
}

// Transcribe implements Engine. Calls are processed serially to avoid
// whisper.cpp crashes.
func (e *EngineCPP) Transcribe(ctx context.Context, wavPath string, opts Options) ([]transcript.Segment, error) {
	samples, err := audio.ReadWAVFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(samples) == 0 {
		return nil, nil
	}

	model, err := e.model.Get()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	windows := []vad.Window{{Start: 0, End: len(samples)}}
	if opts.VAD {
		windows = e.speechWindows(samples)
	}

	var out []transcript.Segment
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		segments, err := e.process(model, samples[w.Start:w.End], opts.Language)
		if err != nil {
			return nil, err
		}
		offset := float64(w.Start) / audio.SampleRate
		for _, s := range segments {
			s.Start += offset
			s.End += offset
			out = append(out, s)
		}
	}

	log.Debug().
		Int("segments", len(out)).
		Int("windows", len(windows)).
		Int("samples", len(samples)).
		Msg("whisper: transcription complete")

	return out, nil
}

// speechWindows falls back to the whole buffer when no detector is available.
func (e *EngineCPP) speechWindows(samples []float32) []vad.Window {
	full := []vad.Window{{Start: 0, End: len(samples)}}
	if e.vadFile == "" {
		log.Debug().Msg("whisper: vad requested but no vad model configured")
		return full
	}
	det, err := e.detector.Get()
	if err != nil {
		log.Warn().Err(err).Msg("whisper: vad unavailable, transcribing full audio")
		return full
	}
	regions, err := det.Detect(samples)
	if err != nil {
		log.Warn().Err(err).Msg("whisper: vad failed, transcribing full audio")
		return full
	}
	return vad.Clamp(regions, len(samples), audio.SampleRate)
}

func (e *EngineCPP) process(model whisperpkg.Model, samples []float32, language string) ([]transcript.Segment, error) {
	// Create a new context for each processing call
	wctx, err := model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}

	if language == "" {
		language = "auto"
	}
	wctx.SetThreads(e.threads)
	if err := wctx.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("set language %q: %w", language, err)
	}
	wctx.SetBeamSize(e.beamSize)
	wctx.SetSplitOnWord(true)

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		log.Error().Err(err).Int("samples", len(samples)).Msg("whisper: process failed")
		return nil, fmt.Errorf("process audio: %w", err)
	}

	var segments []transcript.Segment
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read segment: %w", err)
		}
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		segments = append(segments, transcript.Segment{
			Start: seg.Start.Seconds(),
			End:   seg.End.Seconds(),
			Text:  seg.Text,
		})
	}
	return segments, nil
}
