// Package models fetches whisper ggml model files.
package models

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// BaseURL is where ggml whisper models are published, one file per model.
const BaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// URLFor returns the download URL for a model file such as
// ggml-large-v3-turbo.bin.
func URLFor(name string) string {
	return BaseURL + name
}

// EnsureWhisper downloads the model at path if it is missing. The file
// name selects which model is fetched.
func EnsureWhisper(ctx context.Context, path string) error {
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return nil
	}
	return Download(ctx, URLFor(filepath.Base(path)), path)
}

// Download fetches url into dest. The body is written to dest.tmp and
// renamed when complete, so an interrupted download never leaves a
// truncated model behind.
func Download(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("models: creating models dir: %w", err)
	}

	slog.Info("[models] downloading model", "url", url, "dest", dest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("models: building request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("models: downloading %s: %w", filepath.Base(dest), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("models: download failed: HTTP %d", resp.StatusCode)
	}

	tmpPath := dest + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("models: creating temp file: %w", err)
	}

	pw := &progressWriter{
		writer: f,
		total:  resp.ContentLength,
		label:  filepath.Base(dest),
	}

	written, err := io.Copy(pw, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("models: writing model file: %w", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("models: moving model file: %w", err)
	}

	slog.Info("[models] download complete", "file", pw.label, "mb", fmt.Sprintf("%.1f", float64(written)/(1024*1024)))
	return nil
}

// progressWriter logs download progress in 10% steps.
type progressWriter struct {
	writer  io.Writer
	total   int64
	written int64
	label   string
	logged  int
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := int(pw.written * 100 / pw.total)
		if step := pct / 10 * 10; step > pw.logged {
			pw.logged = step
			slog.Info("[models] downloading",
				"file", pw.label,
				"progress", fmt.Sprintf("%d%%", step),
				"mb", fmt.Sprintf("%.1f / %.1f", float64(pw.written)/(1024*1024), float64(pw.total)/(1024*1024)))
		}
	}
	return n, err
}
