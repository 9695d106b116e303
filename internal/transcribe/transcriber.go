// Package transcribe turns finished clips into text.
//
// Supported backends:
//   - whisper-cli: whisper.cpp command-line binary with a local ggml model (default)
//   - openai: OpenAI-compatible /audio/transcriptions API
//
// A Gate marks the model as loaded; the Pipeline queues clips behind it so
// hotkey handling never waits on model loading or inference.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chaz8081/speakd/internal/audio"
	"github.com/chaz8081/speakd/internal/config"
	"github.com/chaz8081/speakd/internal/models"
)

// Model converts audio clips to text.
type Model interface {
	// Name identifies the backend in logs.
	Name() string
	// Load prepares the backend. It may block for a long time.
	Load(ctx context.Context) error
	// Transcribe returns the text spoken in clip.
	Transcribe(ctx context.Context, clip audio.Clip, language string) (string, error)
	// Close releases backend resources.
	Close() error
}

// New creates a Model based on the config backend setting.
func New(cfg *config.TranscribeConfig) (Model, error) {
	switch cfg.Backend {
	case "whisper-cli", "whisper", "":
		wc := WhisperCLIConfig{
			ModelPath: cfg.ModelPath,
			Bin:       cfg.WhisperBin,
		}
		if cfg.AutoDownload {
			wc.Download = models.EnsureWhisper
		}
		return NewWhisperCLI(wc), nil
	case "openai":
		return NewOpenAI(OpenAIConfig{
			APIKey:       cfg.OpenAI.APIKey,
			BaseURL:      cfg.OpenAI.BaseURL,
			Model:        cfg.OpenAI.Model,
			UploadFormat: cfg.OpenAI.UploadFormat,
		})
	default:
		return nil, fmt.Errorf("transcribe: unknown backend %q (supported: whisper-cli, openai)", cfg.Backend)
	}
}

const warmupRate = 16000

// LoadModel loads m, optionally runs one inference over a second of
// silence, then opens gate. The gate stays closed if loading fails.
// A nil logger means slog.Default.
func LoadModel(ctx context.Context, m Model, gate *Gate, warmup bool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	logger.Info("[model] loading", "backend", m.Name())
	if err := m.Load(ctx); err != nil {
		return fmt.Errorf("transcribe: loading %s: %w", m.Name(), err)
	}

	if warmup {
		silence := audio.Clip{
			ID:         "warmup",
			Samples:    make([]float32, warmupRate),
			SampleRate: warmupRate,
		}
		if _, err := m.Transcribe(ctx, silence, ""); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("[model] warmup failed", "backend", m.Name(), "error", err)
		}
	}

	gate.Open()
	logger.Info("[model] ready", "backend", m.Name(), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
