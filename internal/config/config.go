package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Hotkey     HotkeyConfig     `yaml:"hotkey"`
	Audio      AudioConfig      `yaml:"audio"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Inject     InjectConfig     `yaml:"inject"`
	Cues       CuesConfig       `yaml:"cues"`
	LogLevel   string           `yaml:"log_level"`
}

// HotkeyConfig holds the two chords. Both share a single modifier key.
type HotkeyConfig struct {
	Modifier   string `yaml:"modifier"`     // "alt", "ctrl", "shift" or "cmd"
	PushToTalk string `yaml:"push_to_talk"` // held: record while down
	Toggle     string `yaml:"toggle"`       // pressed: start, pressed again: stop
	QueueSize  int    `yaml:"queue_size"`
}

// AudioConfig holds audio capture settings.
type AudioConfig struct {
	SampleRate  uint32        `yaml:"sample_rate"`
	Channels    uint32        `yaml:"channels"`
	MinDuration time.Duration `yaml:"min_duration"`
}

// TranscribeConfig selects and configures the speech-to-text backend.
type TranscribeConfig struct {
	Backend      string       `yaml:"backend"` // "whisper-cli" or "openai"
	ModelPath    string       `yaml:"model_path"`
	WhisperBin   string       `yaml:"whisper_bin"`
	AutoDownload bool         `yaml:"auto_download"`
	Language     string       `yaml:"language"`
	Workers      int          `yaml:"workers"`
	QueueSize    int          `yaml:"queue_size"`
	Warmup       bool         `yaml:"warmup"`
	OpenAI       OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig holds settings for the OpenAI-compatible transcription API.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	// UploadFormat is the audio container sent to the API: "flac" or "wav".
	UploadFormat string `yaml:"upload_format"`
}

// InjectConfig holds text injection settings.
type InjectConfig struct {
	Method string        `yaml:"method"` // "type" or "paste"
	Delay  time.Duration `yaml:"delay"`
}

// CuesConfig controls the start/stop/done feedback tones.
type CuesConfig struct {
	Enabled bool    `yaml:"enabled"`
	Volume  float64 `yaml:"volume"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "speakd")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultModelsDir returns the directory downloaded models are stored in.
func DefaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "models")
	}
	return filepath.Join(home, ".local", "share", "speakd", "models")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Hotkey: HotkeyConfig{
			Modifier:   "alt",
			PushToTalk: "r",
			Toggle:     "t",
			QueueSize:  16,
		},
		Audio: AudioConfig{
			SampleRate:  16000,
			Channels:    1,
			MinDuration: 300 * time.Millisecond,
		},
		Transcribe: TranscribeConfig{
			Backend:   "whisper-cli",
			ModelPath: filepath.Join(DefaultModelsDir(), "ggml-large-v3-turbo.bin"),
			Language:  "en",
			Workers:   1,
			QueueSize: 8,
			Warmup:    true,
			OpenAI: OpenAIConfig{
				Model:        "whisper-1",
				UploadFormat: "flac",
			},
		},
		Inject: InjectConfig{
			Method: "type",
			Delay:  50 * time.Millisecond,
		},
		Cues: CuesConfig{
			Enabled: true,
			Volume:  0.3,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in paths is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Transcribe.ModelPath = expandTilde(cfg.Transcribe.ModelPath)
	cfg.Transcribe.WhisperBin = expandTilde(cfg.Transcribe.WhisperBin)

	return cfg, nil
}

// ApplyEnv fills secrets that are conventionally provided by the environment.
func (c *Config) ApplyEnv() {
	if c.Transcribe.OpenAI.APIKey == "" {
		c.Transcribe.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if _, ok := modifierNames[c.Hotkey.Modifier]; !ok {
		return fmt.Errorf("hotkey.modifier must be alt, ctrl, shift or cmd, got %q", c.Hotkey.Modifier)
	}
	if c.Hotkey.PushToTalk == "" {
		return errors.New("hotkey.push_to_talk must not be empty")
	}
	if c.Hotkey.Toggle == "" {
		return errors.New("hotkey.toggle must not be empty")
	}
	if strings.EqualFold(c.Hotkey.PushToTalk, c.Hotkey.Toggle) {
		return fmt.Errorf("hotkey.push_to_talk and hotkey.toggle must differ, both are %q", c.Hotkey.Toggle)
	}
	if c.Hotkey.QueueSize <= 0 {
		return errors.New("hotkey.queue_size must be > 0")
	}

	if c.Audio.SampleRate == 0 {
		return errors.New("audio.sample_rate must be > 0")
	}
	if c.Audio.Channels == 0 {
		return errors.New("audio.channels must be > 0")
	}
	if c.Audio.MinDuration < 0 {
		return errors.New("audio.min_duration must not be negative")
	}

	switch c.Transcribe.Backend {
	case "whisper-cli":
		if c.Transcribe.ModelPath == "" {
			return errors.New("transcribe.model_path must not be empty for the whisper-cli backend")
		}
	case "openai":
		if c.Transcribe.OpenAI.APIKey == "" {
			return errors.New("transcribe.openai.api_key (or OPENAI_API_KEY) is required for the openai backend")
		}
		if c.Transcribe.OpenAI.Model == "" {
			return errors.New("transcribe.openai.model must not be empty")
		}
		switch c.Transcribe.OpenAI.UploadFormat {
		case "flac", "wav":
		default:
			return fmt.Errorf("transcribe.openai.upload_format must be \"flac\" or \"wav\", got %q", c.Transcribe.OpenAI.UploadFormat)
		}
	default:
		return fmt.Errorf("transcribe.backend must be \"whisper-cli\" or \"openai\", got %q", c.Transcribe.Backend)
	}
	if c.Transcribe.Language == "" {
		return errors.New("transcribe.language must not be empty")
	}
	if c.Transcribe.Workers <= 0 {
		return errors.New("transcribe.workers must be > 0")
	}
	if c.Transcribe.QueueSize <= 0 {
		return errors.New("transcribe.queue_size must be > 0")
	}

	switch c.Inject.Method {
	case "type", "paste":
	default:
		return fmt.Errorf("inject.method must be \"type\" or \"paste\", got %q", c.Inject.Method)
	}
	if c.Inject.Delay < 0 {
		return errors.New("inject.delay must not be negative")
	}

	if c.Cues.Volume < 0 || c.Cues.Volume > 1 {
		return fmt.Errorf("cues.volume must be within [0, 1], got %v", c.Cues.Volume)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

var modifierNames = map[string]struct{}{
	"alt": {}, "ctrl": {}, "shift": {}, "cmd": {},
}

// ParseLogLevel maps a log_level value to a slog.Level. Unknown values
// map to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultHeader = `# speakd configuration
#
# hotkey.modifier + hotkey.push_to_talk: hold to record, release to transcribe
# hotkey.modifier + hotkey.toggle:       press to start, press again to stop
# transcribe.backend: whisper-cli (local whisper.cpp) or openai
`

// WriteDefault writes the default config to DefaultConfigPath. It returns
// ("", nil) when a config file already exists there.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
