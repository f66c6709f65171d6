package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/obiente/translate/scribe/internal/command"
	"github.com/obiente/translate/scribe/internal/config"
	"github.com/obiente/translate/scribe/internal/diarize"
	serverhttp "github.com/obiente/translate/scribe/internal/http"
	"github.com/obiente/translate/scribe/internal/media"
	"github.com/obiente/translate/scribe/internal/pipeline"
	"github.com/obiente/translate/scribe/internal/transcript"
	"github.com/obiente/translate/scribe/internal/whisper"
	"github.com/obiente/translate/scribe/internal/ws"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		// A failed job has already been printed as its result envelope.
		var jobErr *pipeline.Error
		if !errors.As(err, &jobErr) {
			log.Error().Err(err).Msg("scribe failed")
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "scribe",
	Short:         "Speaker-labeled transcription service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("SCRIBE_CONFIG"), "path to a TOML config file")
	rootCmd.AddCommand(
		serveCmd(),
		runCmd(),
	)
}

func setupLogging(cfg config.ServerConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	lvl := zerolog.InfoLevel
	if cfg.LogLevel != "" {
		if l, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			lvl = l
		}
	}
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Logger = log.Level(lvl)
}

type app struct {
	cfg      config.Config
	engine   whisper.Engine
	pipeline *pipeline.Pipeline
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Server)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	engine, err := whisper.New(cfg.WhisperConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create transcription engine: %w", err)
	}

	runner := command.Exec{}
	p := pipeline.New(
		cfg.PipelineConfig(),
		media.NewNormalizer(cfg.MediaConfig(), runner),
		engine,
		func() (diarize.Engine, error) {
			log.Info().Str("api", cfg.Diarize.API).Msg("loading diarization engine")
			return diarize.New(cfg.DiarizeConfig(), runner)
		},
	)
	return &app{cfg: cfg, engine: engine, pipeline: p}, nil
}

func (a *app) Close() {
	if err := a.pipeline.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close diarization engine")
	}
	if err := a.engine.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close transcription engine")
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			wss := ws.NewServer(a.pipeline)
			defer wss.Close()

			srv := &http.Server{
				Addr:        a.cfg.Server.Addr,
				Handler:     serverhttp.NewRouter(a.pipeline, wss.Handle),
				ReadTimeout: 30 * time.Second,
				// Synchronous transcriptions of long recordings take a while.
				WriteTimeout: 30 * time.Minute,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			log.Info().Str("addr", a.cfg.Server.Addr).Str("transcribe_api", a.cfg.Transcribe.API).Msg("scribe server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("server failed")
				return err
			}
			log.Info().Msg("scribe server stopped")
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	var (
		input  string
		format string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process a single job envelope and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "vtt" && format != "text" {
				return fmt.Errorf("unsupported format %q", format)
			}
			raw, err := readInput(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}
			req, err := pipeline.ParseRequest(raw)
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res := a.pipeline.Process(ctx, req)
			return writeResult(cmd.OutOrStdout(), format, res)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "job envelope file, - for stdin")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, vtt or text")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" || path == "" {
		return io.ReadAll(stdin)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return b, nil
}

// writeResult prints res in format. A failed result is printed as its JSON
// envelope whatever the format and returned as an error.
func writeResult(w io.Writer, format string, res pipeline.Result) error {
	if res.Failed() || format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
		if res.Failed() {
			return res.Err
		}
		return nil
	}
	if format == "vtt" {
		return transcript.WebVTT(w, res.Segments)
	}
	return transcript.Text(w, res.Segments)
}
