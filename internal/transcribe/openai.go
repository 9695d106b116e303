package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/chaz8081/speakd/internal/audio"
)

// OpenAIConfig configures the OpenAI transcription backend.
type OpenAIConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint for OpenAI-compatible servers.
	BaseURL string
	Model   string
	// UploadFormat is "flac" (default) or "wav".
	UploadFormat string
	Timeout      time.Duration
}

// OpenAIModel sends clips to an OpenAI-compatible transcription endpoint.
type OpenAIModel struct {
	client openai.Client
	model  string
	format string
}

// NewOpenAI creates the backend. It does not contact the server.
func NewOpenAI(cfg OpenAIConfig) (*OpenAIModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("transcribe: openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.AudioModelWhisper1)
	}
	switch cfg.UploadFormat {
	case "":
		cfg.UploadFormat = "flac"
	case "flac", "wav":
	default:
		return nil, fmt.Errorf("transcribe: unknown upload format %q", cfg.UploadFormat)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIModel{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		format: cfg.UploadFormat,
	}, nil
}

// Name returns the backend name.
func (m *OpenAIModel) Name() string { return "openai" }

// Load is a no-op; the remote model is always loaded.
func (m *OpenAIModel) Load(context.Context) error { return nil }

// Transcribe uploads clip and returns the transcript.
func (m *OpenAIModel) Transcribe(ctx context.Context, clip audio.Clip, language string) (string, error) {
	body, name, contentType, err := m.encode(clip)
	if err != nil {
		return "", err
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(body, name, contentType),
		Model: openai.AudioModel(m.model),
	}
	if language != "" {
		params.Language = openai.String(language)
	}

	resp, err := m.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcribe: openai request: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// encode renders clip in the upload format. WAV goes through a temp
// file because the encoder needs to seek.
func (m *OpenAIModel) encode(clip audio.Clip) (io.Reader, string, string, error) {
	if m.format == "flac" {
		var buf bytes.Buffer
		if err := EncodeFLAC(&buf, clip.Samples, clip.SampleRate); err != nil {
			return nil, "", "", err
		}
		return &buf, "clip.flac", "audio/flac", nil
	}

	dir, err := os.MkdirTemp("", "speakd-*")
	if err != nil {
		return nil, "", "", fmt.Errorf("transcribe: creating temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "clip.wav")
	if err := writeWAVFile(path, clip.Samples, clip.SampleRate); err != nil {
		return nil, "", "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", "", fmt.Errorf("transcribe: reading clip: %w", err)
	}
	return bytes.NewReader(data), "clip.wav", "audio/wav", nil
}

// Close is a no-op.
func (m *OpenAIModel) Close() error { return nil }
