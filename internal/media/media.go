// Package media downloads article images and videos next to the markdown.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/corpix/uarand"
	"github.com/mfenderov/clipmd/internal/config"
	"github.com/mfenderov/clipmd/pkg/models"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// Dir is the bundle subdirectory media files are written to.
const Dir = "media"

const defaultExtension = "jpg"

var knownExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true,
	"mp4": true, "webm": true, "mov": true,
}

// Extension returns the file extension to store rawURL under.
// X image URLs often carry the format as a query parameter instead.
func Extension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultExtension
	}

	if ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), ".")); ext != "" {
		if knownExtensions[ext] {
			return ext
		}
		return defaultExtension
	}

	if format := strings.ToLower(u.Query().Get("format")); knownExtensions[format] {
		return format
	}
	return defaultExtension
}

// Filename names the index-th media item. Images are 1.jpg, 2.png, ...;
// videos are video-1.mp4, ...
func Filename(index int, typ models.MediaType, ext string) string {
	n := strconv.Itoa(index + 1)
	if typ == models.MediaVideo {
		return "video-" + n + "." + ext
	}
	return n + "." + ext
}

// Downloader fetches media items one at a time.
type Downloader struct {
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	userAgent  string
}

// NewDownloader creates a Downloader from configuration.
func NewDownloader(cfg config.Media) *Downloader {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	return &Downloader{
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: max(cfg.MaxRetries, 0),
		backoff:    backoff,
		userAgent:  cfg.UserAgent,
	}
}

// Download saves every item under outDir/media and returns the items with
// LocalPath set. Items that fail keep their original URL as LocalPath so the
// markdown still links to the remote copy.
func (d *Downloader) Download(ctx context.Context, items []models.MediaItem, outDir string) ([]models.MediaItem, error) {
	mediaDir := filepath.Join(outDir, Dir)
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	results := make([]models.MediaItem, 0, len(items))
	for i, item := range items {
		if ctx.Err() != nil {
			item.LocalPath = item.URL
			results = append(results, item)
			continue
		}

		filename := Filename(i, item.Type, Extension(item.URL))
		slog.Debug("downloading media", "url", item.URL, "file", filename)

		if err := d.fetch(ctx, item.URL, filepath.Join(mediaDir, filename)); err != nil {
			slog.Warn("failed to download media", "url", item.URL, "error", err)
			item.LocalPath = item.URL
		} else {
			item.LocalPath = "./" + Dir + "/" + filename
		}
		results = append(results, item)
	}

	return results, nil
}

// Downloaded reports whether item was saved locally.
func Downloaded(item models.MediaItem) bool {
	return item.LocalPath != "" && item.LocalPath != item.URL
}

func (d *Downloader) fetch(ctx context.Context, rawURL, dest string) error {
	backoff := retry.WithMaxRetries(uint64(d.maxRetries), retry.NewExponential(d.backoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := d.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if !req.URL.IsAbs() {
			return fmt.Errorf("not an absolute URL: %s", rawURL)
		}
		req.Header.Set("User-Agent", d.agent())

		resp, err := d.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(fmt.Errorf("request failed: %w", err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("HTTP %d", resp.StatusCode))
		default:
			return fmt.Errorf("HTTP %d", resp.StatusCode)
		}

		if err := writeFile(dest, resp.Body); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (d *Downloader) agent() string {
	if d.userAgent != "" {
		return d.userAgent
	}
	return uarand.GetRandom()
}

func writeFile(dest string, r io.Reader) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, copyErr := io.Copy(out, r)
	closeErr := out.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
