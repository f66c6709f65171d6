package diarize

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/obiente/translate/scribe/internal/command"
	"github.com/obiente/translate/scribe/internal/transcript"
)

//go:embed assets/diarize.py
var helperScript []byte

// ScriptEngine keeps a Python worker running the embedded pyannote helper.
// The worker loads the model once and then serves one job per line; jobs
// are processed one at a time.
type ScriptEngine struct {
	spawner command.Spawner
	python  string
	model   string
	device  string
	hfToken string

	mu         sync.Mutex
	worker     command.Conn
	scriptPath string
}

func NewScriptEngine(cfg Config, spawner command.Spawner) *ScriptEngine {
	e := &ScriptEngine{
		spawner: spawner,
		python:  cfg.Python,
		model:   cfg.Model,
		device:  cfg.Device,
		hfToken: cfg.HFToken,
	}
	if e.spawner == nil {
		e.spawner = command.Exec{}
	}
	if e.python == "" {
		e.python = "python3"
	}
	if e.model == "" {
		e.model = DefaultModel
	}
	if e.device == "" {
		e.device = "auto"
	}
	return e
}

// Start launches the worker and waits until the model is loaded.
func (e *ScriptEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.ensureWorker()
	return err
}

func (e *ScriptEngine) Diarize(ctx context.Context, wavPath string) ([]transcript.Turn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	msg, err := json.Marshal(map[string]string{"audio": wavPath})
	if err != nil {
		return nil, err
	}

	// A worker that died while idle fails on Send; it is restarted once.
	for attempt := 0; ; attempt++ {
		w, err := e.ensureWorker()
		if err != nil {
			return nil, err
		}
		line, sent, err := e.exchange(ctx, w, msg)
		if err != nil {
			e.stopWorker()
			if !sent && attempt == 0 && ctx.Err() == nil {
				log.Warn().Err(err).Msg("diarize: worker gone, restarting")
				continue
			}
			return nil, err
		}
		if err := helperError(line); err != nil {
			return nil, err
		}
		return Decode(line)
	}
}

func (e *ScriptEngine) exchange(ctx context.Context, w command.Conn, msg []byte) ([]byte, bool, error) {
	type reply struct {
		line []byte
		sent bool
		err  error
	}
	replies := make(chan reply, 1)
	go func() {
		if err := w.Send(msg); err != nil {
			replies <- reply{err: err}
			return
		}
		line, err := w.Receive()
		replies <- reply{line: line, sent: true, err: err}
	}()

	select {
	case <-ctx.Done():
		// The job cannot be interrupted inside the worker.
		return nil, true, ctx.Err()
	case r := <-replies:
		return r.line, r.sent, r.err
	}
}

// Close stops the worker and removes the helper script.
func (e *ScriptEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopWorker()
	if e.scriptPath != "" {
		if err := os.Remove(e.scriptPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		e.scriptPath = ""
	}
	return nil
}

func (e *ScriptEngine) ensureWorker() (command.Conn, error) {
	if e.worker != nil {
		return e.worker, nil
	}

	if e.scriptPath == "" {
		f, err := os.CreateTemp("", "scribe_diarize_*.py")
		if err != nil {
			return nil, fmt.Errorf("write helper script: %w", err)
		}
		_, err = f.Write(helperScript)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(f.Name())
			return nil, fmt.Errorf("write helper script: %w", err)
		}
		e.scriptPath = f.Name()
	}

	var env []string
	if e.hfToken != "" {
		env = append(env, "HF_TOKEN="+e.hfToken)
	}

	log.Info().Str("model", e.model).Str("device", e.device).Msg("diarize: starting worker")
	w, err := e.spawner.Spawn(e.python, []string{e.scriptPath, "--model", e.model, "--device", e.device}, env)
	if err != nil {
		return nil, err
	}

	line, err := w.Receive()
	if err == nil {
		err = helperError(line)
	}
	if err == nil {
		var ready struct {
			Ready bool `json:"ready"`
		}
		if jerr := json.Unmarshal(line, &ready); jerr != nil || !ready.Ready {
			err = fmt.Errorf("unexpected diarization worker greeting: %q", line)
		}
	}
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to start diarization worker: %w", err)
	}

	log.Info().Str("model", e.model).Msg("diarize: model loaded")
	e.worker = w
	return w, nil
}

func (e *ScriptEngine) stopWorker() {
	if e.worker == nil {
		return
	}
	if err := e.worker.Close(); err != nil {
		log.Warn().Err(err).Msg("diarize: failed to stop worker")
	}
	e.worker = nil
}

// helperError returns the error reported by the helper, if the line is one.
func helperError(line []byte) error {
	var msg struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(line, &msg); err != nil || msg.Error == "" {
		return nil
	}
	return fmt.Errorf("diarization helper: %s", msg.Error)
}
