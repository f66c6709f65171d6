package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/obiente/translate/scribe/internal/diarize"
	"github.com/obiente/translate/scribe/internal/media"
	"github.com/obiente/translate/scribe/internal/pipeline"
	"github.com/obiente/translate/scribe/internal/whisper"
)

// Config is read from an optional TOML file and then from the environment.
// Environment variables win over the file.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Transcribe TranscribeConfig `toml:"transcribe"`
	Diarize    DiarizeConfig    `toml:"diarize"`
	Media      MediaConfig      `toml:"media"`
}

type ServerConfig struct {
	Addr      string `toml:"addr"`
	LogLevel  string `toml:"log_level"`
	LogPretty bool   `toml:"log_pretty"`
	TempDir   string `toml:"tmp_dir"`
}

type TranscribeConfig struct {
	API           string  `toml:"api"`
	ModelPath     string  `toml:"model_path"`
	Threads       int     `toml:"threads"`
	BeamSize      int     `toml:"beam_size"`
	VADModelPath  string  `toml:"vad_model_path"`
	VADThreshold  float64 `toml:"vad_threshold"`
	OpenAIAPIKey  string  `toml:"openai_api_key"`
	OpenAIModel   string  `toml:"openai_model"`
	OpenAIBaseURL string  `toml:"openai_base_url"`
}

type DiarizeConfig struct {
	API        string `toml:"api"`
	Python     string `toml:"python"`
	Model      string `toml:"model"`
	Device     string `toml:"device"`
	HFToken    string `toml:"hf_token"`
	URL        string `toml:"url"`
	Token      string `toml:"token"`
	TimeoutSec int    `toml:"timeout_sec"`
}

type MediaConfig struct {
	FFmpegPath         string `toml:"ffmpeg_path"`
	YTDLPPath          string `toml:"ytdlp_path"`
	DownloadTimeoutSec int    `toml:"download_timeout_sec"`
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "0", "false", "no", "off", "False", "FALSE":
			return false
		default:
			return true
		}
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:     ":8080",
			LogLevel: "info",
		},
		Transcribe: TranscribeConfig{
			API:       string(whisper.APIWhisperCPP),
			ModelPath: "./models/ggml-large-v3-turbo.bin",
			BeamSize:  5,
		},
		Diarize: DiarizeConfig{
			API:        string(diarize.APIScript),
			Python:     "python3",
			Model:      diarize.DefaultModel,
			Device:     "auto",
			TimeoutSec: 1800,
		},
		Media: MediaConfig{
			FFmpegPath:         "ffmpeg",
			YTDLPPath:          "yt-dlp",
			DownloadTimeoutSec: int(media.DefaultDownloadTimeout / time.Second),
		},
	}
}

// Load builds the configuration from the defaults, the TOML file at path
// (skipped when path is empty) and the environment, in that order.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getenv("SCRIBE_ADDR", c.Server.Addr)
	c.Server.LogLevel = getenv("LOG_LEVEL", c.Server.LogLevel)
	c.Server.LogPretty = getenvBool("LOG_PRETTY", c.Server.LogPretty)
	c.Server.TempDir = getenv("TMP_DIR", c.Server.TempDir)

	c.Transcribe.API = getenv("TRANSCRIBE_API", c.Transcribe.API)
	c.Transcribe.ModelPath = getenv("WHISPER_MODEL_PATH", c.Transcribe.ModelPath)
	c.Transcribe.Threads = getenvInt("WHISPER_THREADS", c.Transcribe.Threads)
	c.Transcribe.BeamSize = getenvInt("WHISPER_BEAM_SIZE", c.Transcribe.BeamSize)
	c.Transcribe.VADModelPath = getenv("VAD_MODEL_PATH", c.Transcribe.VADModelPath)
	c.Transcribe.VADThreshold = getenvFloat("VAD_THRESHOLD", c.Transcribe.VADThreshold)
	c.Transcribe.OpenAIAPIKey = getenv("OPENAI_API_KEY", c.Transcribe.OpenAIAPIKey)
	c.Transcribe.OpenAIModel = getenv("OPENAI_MODEL", c.Transcribe.OpenAIModel)
	c.Transcribe.OpenAIBaseURL = getenv("OPENAI_BASE_URL", c.Transcribe.OpenAIBaseURL)

	c.Diarize.API = getenv("DIARIZE_API", c.Diarize.API)
	c.Diarize.Python = getenv("PYTHON", c.Diarize.Python)
	c.Diarize.Model = getenv("DIARIZATION_MODEL", c.Diarize.Model)
	c.Diarize.Device = getenv("DEVICE", c.Diarize.Device)
	c.Diarize.HFToken = getenv("HF_TOKEN", c.Diarize.HFToken)
	c.Diarize.URL = getenv("DIARIZE_URL", c.Diarize.URL)
	c.Diarize.Token = getenv("DIARIZE_TOKEN", c.Diarize.Token)
	c.Diarize.TimeoutSec = getenvInt("DIARIZE_TIMEOUT", c.Diarize.TimeoutSec)

	c.Media.FFmpegPath = getenv("FFMPEG_PATH", c.Media.FFmpegPath)
	c.Media.YTDLPPath = getenv("YTDLP_PATH", c.Media.YTDLPPath)
	c.Media.DownloadTimeoutSec = getenvInt("DOWNLOAD_TIMEOUT", c.Media.DownloadTimeoutSec)
}

func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("invalid Server.Addr: should not be empty")
	}

	switch api := whisper.API(c.Transcribe.API); api {
	case whisper.APIWhisperCPP:
		if c.Transcribe.ModelPath == "" {
			return fmt.Errorf("invalid Transcribe.ModelPath: should not be empty")
		}
	case whisper.APIOpenAI:
		if c.Transcribe.OpenAIAPIKey == "" {
			return fmt.Errorf("invalid Transcribe.OpenAIAPIKey: should not be empty")
		}
	default:
		return fmt.Errorf("invalid Transcribe.API: %q", c.Transcribe.API)
	}
	if c.Transcribe.Threads < 0 {
		return fmt.Errorf("invalid Transcribe.Threads: should not be negative")
	}
	if c.Transcribe.BeamSize < 0 {
		return fmt.Errorf("invalid Transcribe.BeamSize: should not be negative")
	}
	if c.Transcribe.VADThreshold < 0 || c.Transcribe.VADThreshold >= 1 {
		return fmt.Errorf("invalid Transcribe.VADThreshold: should be in the range [0, 1)")
	}

	switch api := diarize.API(c.Diarize.API); api {
	case diarize.APIScript:
		if c.Diarize.Python == "" {
			return fmt.Errorf("invalid Diarize.Python: should not be empty")
		}
	case diarize.APIHTTP:
		if c.Diarize.URL == "" {
			return fmt.Errorf("invalid Diarize.URL: should not be empty")
		}
	default:
		return fmt.Errorf("invalid Diarize.API: %q", c.Diarize.API)
	}
	if c.Diarize.TimeoutSec < 0 {
		return fmt.Errorf("invalid Diarize.TimeoutSec: should not be negative")
	}

	if c.Media.DownloadTimeoutSec <= 0 {
		return fmt.Errorf("invalid Media.DownloadTimeoutSec: should be greater than 0")
	}
	return nil
}

func (c Config) WhisperConfig() whisper.Config {
	return whisper.Config{
		API:           whisper.API(c.Transcribe.API),
		ModelFile:     c.Transcribe.ModelPath,
		NumThreads:    c.Transcribe.Threads,
		BeamSize:      c.Transcribe.BeamSize,
		VADModelFile:  c.Transcribe.VADModelPath,
		VADThreshold:  float32(c.Transcribe.VADThreshold),
		OpenAIAPIKey:  c.Transcribe.OpenAIAPIKey,
		OpenAIModel:   c.Transcribe.OpenAIModel,
		OpenAIBaseURL: c.Transcribe.OpenAIBaseURL,
	}
}

func (c Config) DiarizeConfig() diarize.Config {
	return diarize.Config{
		API:     diarize.API(c.Diarize.API),
		Python:  c.Diarize.Python,
		Model:   c.Diarize.Model,
		Device:  c.Diarize.Device,
		HFToken: c.Diarize.HFToken,
		URL:     c.Diarize.URL,
		Token:   c.Diarize.Token,
		Timeout: time.Duration(c.Diarize.TimeoutSec) * time.Second,
	}
}

func (c Config) MediaConfig() media.Config {
	return media.Config{
		FFmpegPath:      c.Media.FFmpegPath,
		YTDLPPath:       c.Media.YTDLPPath,
		DownloadTimeout: time.Duration(c.Media.DownloadTimeoutSec) * time.Second,
	}
}

func (c Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{TempDir: c.Server.TempDir}
}
