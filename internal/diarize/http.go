package diarize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/obiente/translate/scribe/internal/transcript"
)

const defaultHTTPTimeout = 30 * time.Minute

// HTTPEngine sends the waveform to a remote diarization service and decodes
// its JSON reply.
type HTTPEngine struct {
	url   string
	token string
	http  *http.Client
}

func NewHTTPEngine(cfg Config) (*HTTPEngine, error) {
	if cfg.URL == "" {
		return nil, errors.New("invalid URL: should not be empty")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("URL parsing failed: %w", err)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("URL parsing failed: invalid scheme %q", u.Scheme)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPEngine{
		url:   cfg.URL,
		token: cfg.Token,
		http:  &http.Client{Timeout: timeout},
	}, nil
}

func (e *HTTPEngine) Diarize(ctx context.Context, wavPath string) ([]transcript.Turn, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, f)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set("Accept", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("diarization http %d: %s", resp.StatusCode, string(body))
	}
	return Decode(body)
}

func (e *HTTPEngine) Close() error {
	e.http.CloseIdleConnections()
	return nil
}
