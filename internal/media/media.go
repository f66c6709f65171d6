// Package media turns a remote source into the canonical waveform the
// engines consume: a mono, 16 kHz, 16-bit PCM WAV file.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/obiente/translate/scribe/internal/audio"
	"github.com/obiente/translate/scribe/internal/command"
)

const (
	DefaultDownloadTimeout = 60 * time.Second
	defaultExt             = ".bin"
	outputName             = "audio.wav"
)

// Source names the media to normalize. When both are set the YouTube URL wins.
type Source struct {
	FileURL    string
	YouTubeURL string
}

type Config struct {
	FFmpegPath      string
	YTDLPPath       string
	DownloadTimeout time.Duration
}

func (c *Config) SetDefaults() {
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.YTDLPPath == "" {
		c.YTDLPPath = "yt-dlp"
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = DefaultDownloadTimeout
	}
}

type Normalizer struct {
	cfg    Config
	runner command.Runner
	http   *http.Client
}

func NewNormalizer(cfg Config, runner command.Runner) *Normalizer {
	cfg.SetDefaults()
	if runner == nil {
		runner = command.Exec{}
	}
	return &Normalizer{
		cfg:    cfg,
		runner: runner,
		http:   newHTTPClient(cfg.DownloadTimeout),
	}
}

// newHTTPClient bounds connecting and waiting for response headers by
// timeout. The body has no overall deadline; download bounds idle reads.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// Normalize acquires src into dir and converts it, returning the path of the
// canonical WAV file. Intermediate files are left in dir except for the
// yt-dlp download, which is removed once converted.
func (n *Normalizer) Normalize(ctx context.Context, src Source, dir string) (string, error) {
	out := filepath.Join(dir, outputName)

	switch {
	case src.YouTubeURL != "":
		tmp, err := n.fetchYouTube(ctx, src.YouTubeURL, dir)
		if err != nil {
			return "", err
		}
		defer os.Remove(tmp)
		if err := n.convert(ctx, tmp, out); err != nil {
			return "", err
		}
	case src.FileURL != "":
		tmp, err := n.download(ctx, src.FileURL, dir)
		if err != nil {
			return "", err
		}
		if err := n.convert(ctx, tmp, out); err != nil {
			return "", err
		}
	default:
		return "", errors.New("no media source")
	}

	return out, nil
}

func (n *Normalizer) download(ctx context.Context, rawURL, dir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to download: %w", err)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("failed to download: unsupported scheme %q", u.Scheme)
	}

	// The download is aborted once no data arrives for DownloadTimeout.
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	idle := time.AfterFunc(n.cfg.DownloadTimeout, func() { cancel(errIdle) })
	defer idle.Stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to download: %w", err)
	}
	resp, err := n.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download: %w", idleCause(ctx, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to download: status %d", resp.StatusCode)
	}

	dst := filepath.Join(dir, "input"+Ext(u))
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, &idleReader{r: resp.Body, timer: idle, timeout: n.cfg.DownloadTimeout})
	if err != nil {
		return "", fmt.Errorf("failed to download: %w", idleCause(ctx, err))
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	log.Debug().Str("path", dst).Int64("bytes", written).Msg("media: downloaded")
	return dst, nil
}

var errIdle = errors.New("no data received within the download timeout")

// idleReader pushes the idle deadline back after every read that returns data.
type idleReader struct {
	r       io.Reader
	timer   *time.Timer
	timeout time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.timer.Reset(r.timeout)
	}
	return n, err
}

func idleCause(ctx context.Context, err error) error {
	if errors.Is(context.Cause(ctx), errIdle) {
		return errIdle
	}
	return err
}

func (n *Normalizer) fetchYouTube(ctx context.Context, rawURL, dir string) (string, error) {
	tmp := filepath.Join(dir, "input.m4a")
	_, err := n.runner.Run(ctx, n.cfg.YTDLPPath, []string{
		"-f", "bestaudio/best",
		"-x", "--audio-format", "m4a",
		"-o", tmp,
		rawURL,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch youtube audio: %w", err)
	}
	return tmp, nil
}

func (n *Normalizer) convert(ctx context.Context, src, dst string) error {
	_, err := n.runner.Run(ctx, n.cfg.FFmpegPath, []string{
		"-y",
		"-i", src,
		"-ac", "1",
		"-ar", strconv.Itoa(audio.SampleRate),
		"-vn",
		dst,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to convert audio: %w", err)
	}
	return nil
}

// Ext returns the extension of the URL path, ignoring the query string, or
// ".bin" when there is none.
func Ext(u *url.URL) string {
	if ext := path.Ext(u.Path); ext != "" && ext != "." {
		return ext
	}
	return defaultExt
}
