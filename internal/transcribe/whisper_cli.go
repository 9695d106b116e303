package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/chaz8081/speakd/internal/audio"
)

// WhisperCLIConfig configures the whisper.cpp CLI backend.
type WhisperCLIConfig struct {
	// ModelPath is the ggml model file.
	ModelPath string
	// Bin is the whisper.cpp binary. Empty searches PATH and common
	// install locations.
	Bin string
	// Download, if set, fetches a missing model during Load.
	Download func(ctx context.Context, path string) error
}

// WhisperCLI runs the whisper.cpp command-line tool once per clip. Each
// call is a separate process, so concurrent calls are safe.
type WhisperCLI struct {
	cfg WhisperCLIConfig
	bin string
}

// NewWhisperCLI creates an unloaded backend.
func NewWhisperCLI(cfg WhisperCLIConfig) *WhisperCLI {
	return &WhisperCLI{cfg: cfg}
}

// Name returns the backend name.
func (w *WhisperCLI) Name() string { return "whisper-cli" }

// Load resolves the binary and makes sure the model file exists,
// downloading it if configured to.
func (w *WhisperCLI) Load(ctx context.Context) error {
	bin, err := findWhisperBinary(w.cfg.Bin)
	if err != nil {
		return err
	}
	w.bin = bin

	if _, err := os.Stat(w.cfg.ModelPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) || w.cfg.Download == nil {
			return fmt.Errorf("transcribe: whisper model %q: %w", w.cfg.ModelPath, err)
		}
		if err := w.cfg.Download(ctx, w.cfg.ModelPath); err != nil {
			return fmt.Errorf("transcribe: fetching whisper model: %w", err)
		}
	}
	return nil
}

// Transcribe writes clip to a temporary WAV file, runs whisper.cpp over it
// and joins the returned segments.
func (w *WhisperCLI) Transcribe(ctx context.Context, clip audio.Clip, language string) (string, error) {
	if w.bin == "" {
		return "", errors.New("transcribe: whisper-cli not loaded")
	}

	dir, err := os.MkdirTemp("", "speakd-*")
	if err != nil {
		return "", fmt.Errorf("transcribe: creating temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	wavPath := filepath.Join(dir, "clip.wav")
	if err := writeWAVFile(wavPath, clip.Samples, clip.SampleRate); err != nil {
		return "", err
	}

	outBase := filepath.Join(dir, "out")
	args := []string{
		"-m", w.cfg.ModelPath,
		"-f", wavPath,
		"-oj",
		"-of", outBase,
		"-nt",
		"--no-prints",
	}
	if language != "" {
		args = append(args, "-l", language)
	}

	cmd := exec.CommandContext(ctx, w.bin, args...) //nolint:gosec // binary comes from config or a fixed search list
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("transcribe: whisper-cli failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	raw, err := os.ReadFile(outBase + ".json")
	if err != nil {
		return "", fmt.Errorf("transcribe: reading whisper output: %w", err)
	}
	return parseWhisperJSON(raw)
}

// Close is a no-op; no process outlives a call.
func (w *WhisperCLI) Close() error { return nil }

// whisperOutput is the subset of whisper.cpp's -oj output that we read.
type whisperOutput struct {
	Transcription []struct {
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseWhisperJSON(raw []byte) (string, error) {
	var out whisperOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("transcribe: parsing whisper output: %w", err)
	}
	var sb strings.Builder
	for _, seg := range out.Transcription {
		sb.WriteString(seg.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

// whisperBinaryNames are tried in order; whisper-cli is the Homebrew name.
var whisperBinaryNames = []string{"whisper-cli", "whisper-cpp", "whisper"}

func findWhisperBinary(configured string) (string, error) {
	if configured != "" {
		path, err := exec.LookPath(configured)
		if err != nil {
			return "", fmt.Errorf("transcribe: whisper binary %q: %w", configured, err)
		}
		return path, nil
	}

	for _, name := range whisperBinaryNames {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	home, _ := os.UserHomeDir()
	for _, dir := range []string{"/opt/homebrew/bin", "/usr/local/bin", filepath.Join(home, ".local", "bin")} {
		for _, name := range whisperBinaryNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}
	return "", errors.New("transcribe: whisper.cpp binary not found (brew install whisper-cpp, or set transcribe.whisper_bin)")
}
