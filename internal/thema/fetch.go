package thema

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/iscc/iscc-metagen/internal/config"
)

// Loader resolves the Thema vocabulary from a local file, falling back to
// downloading it from EDItEUR through a file-caching HTTP client. The
// vocabulary changes about once a year, so a cached copy never expires on
// its own.
type Loader struct {
	cfg      config.ThemaConfig
	cacheDir string
	client   *http.Client
}

func NewLoader(cfg config.ThemaConfig, cacheDir string) *Loader {
	return &Loader{
		cfg:      cfg,
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Load returns the parsed vocabulary.
func (l *Loader) Load(ctx context.Context) (*Thema, error) {
	if data, err := os.ReadFile(l.cfg.Path); err == nil {
		t, err := Parse(data)
		if err == nil {
			return t, nil
		}
		slog.Warn("Ignoring unparseable local thema json", "path", l.cfg.Path, "err", err)
	}

	data, err := l.fetch(ctx, l.cfg.URL)
	if err != nil {
		return nil, err
	}

	t, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Keep a local copy for the next run; failing to write is not fatal.
	if l.cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(l.cfg.Path), 0o755); err == nil {
			if err := os.WriteFile(l.cfg.Path, data, 0o644); err != nil {
				slog.Warn("Failed to save thema json", "path", l.cfg.Path, "err", err)
			}
		}
	}
	return t, nil
}

// fetch downloads a URL through the file cache in cacheDir.
func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	var cachePath string
	if l.cacheDir != "" {
		sum := sha256.Sum256([]byte(url))
		cachePath = filepath.Join(l.cacheDir, hex.EncodeToString(sum[:])+".json")
		if data, err := os.ReadFile(cachePath); err == nil {
			slog.Debug("Using cached download", "url", url, "path", cachePath)
			return data, nil
		}
	}

	slog.Info("Downloading thema vocabulary", "url", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s returned status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if cachePath != "" {
		if err := os.MkdirAll(l.cacheDir, 0o755); err == nil {
			if err := os.WriteFile(cachePath, data, 0o644); err != nil {
				slog.Warn("Failed to write download cache", "path", cachePath, "err", err)
			}
		}
	}
	return data, nil
}
