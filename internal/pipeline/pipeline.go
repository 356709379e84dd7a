package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mfenderov/clipmd/internal/archive"
	"github.com/mfenderov/clipmd/internal/auth"
	"github.com/mfenderov/clipmd/internal/media"
	"github.com/mfenderov/clipmd/internal/page"
	"github.com/mfenderov/clipmd/internal/processor"
	"github.com/mfenderov/clipmd/internal/storage"
	"github.com/mfenderov/clipmd/pkg/models"
)

// Format selects the bundle document type.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatMarkdown, FormatJSON:
		return f, nil
	case "":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown format %q (want md or json)", s)
	}
}

// PageSource renders an article URL to full page HTML.
type PageSource interface {
	Render(ctx context.Context, url string, cookies []auth.Cookie) (string, error)
}

// MediaDownloader saves media items into a bundle directory.
type MediaDownloader interface {
	Download(ctx context.Context, items []models.MediaItem, outDir string) ([]models.MediaItem, error)
}

// Uploader copies finished bundles to object storage.
type Uploader interface {
	EnsureBucket(ctx context.Context) error
	UploadBundle(ctx context.Context, prefix, dir string) ([]string, error)
	PutManifest(ctx context.Context, prefix string, m storage.Manifest) error
}

// Indexer makes archived articles searchable.
type Indexer interface {
	CreateIndex(ctx context.Context) error
	IndexArticle(ctx context.Context, article models.IndexedArticle) error
	Refresh(ctx context.Context) error
}

// Options control a single Run.
type Options struct {
	Cookies []auth.Cookie
	NoMedia bool
	Format  Format
	Upload  bool
	Index   bool
}

// Result holds the outcome of archiving one article.
type Result struct {
	Dir             string // bundle directory
	File            string // index.md or article.json
	Article         models.Article
	MediaDownloaded int
	MediaFailed     int
	Uploaded        bool
	Indexed         bool
	Duration        time.Duration
}

// Archiver orchestrates the fetch, convert, download and write flow.
type Archiver struct {
	source    PageSource
	writer    *archive.Writer
	processor *processor.Processor
	media     MediaDownloader // nil disables downloads
	uploader  Uploader        // nil disables uploads
	indexer   Indexer         // nil disables indexing
	now       func() time.Time
}

// Option configures optional Archiver collaborators.
type Option func(*Archiver)

// WithMedia enables media downloads.
func WithMedia(d MediaDownloader) Option {
	return func(a *Archiver) { a.media = d }
}

// WithUploader enables bundle uploads.
func WithUploader(u Uploader) Option {
	return func(a *Archiver) { a.uploader = u }
}

// WithIndexer enables search indexing.
func WithIndexer(i Indexer) Option {
	return func(a *Archiver) { a.indexer = i }
}

// New creates an Archiver that renders pages with source and writes bundles with writer.
func New(source PageSource, writer *archive.Writer, opts ...Option) *Archiver {
	a := &Archiver{
		source:    source,
		writer:    writer,
		processor: processor.New(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run archives the article at url.
func (a *Archiver) Run(ctx context.Context, url string, opts Options) (*Result, error) {
	start := a.now()
	result := &Result{}

	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}

	slog.Debug("rendering article", "url", url)
	html, err := a.source.Render(ctx, url, opts.Cookies)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch article: %w", err)
	}

	body, meta, err := page.Extract(html)
	if err != nil {
		return nil, err
	}
	if body == "" {
		slog.Warn("no article content found on page", "url", url)
	}

	article := a.processor.ParseArticlePage(body, url, meta)
	slog.Debug("parsed article", "title", article.Metadata.Title, "author", article.Metadata.Author, "media", len(article.Media))

	dir, err := a.writer.Prepare(article.Metadata.Title)
	if err != nil {
		return nil, err
	}
	result.Dir = dir

	if !opts.NoMedia && a.media != nil && len(article.Media) > 0 {
		items, err := a.media.Download(ctx, article.Media, dir)
		if err != nil {
			discard(dir)
			return nil, err
		}
		article.Media = items
		for _, item := range items {
			if media.Downloaded(item) {
				result.MediaDownloaded++
			} else {
				result.MediaFailed++
			}
		}
	}

	switch format {
	case FormatJSON:
		result.File, err = a.writer.WriteJSON(dir, article)
	default:
		result.File, err = a.writer.WriteMarkdown(dir, article)
	}
	if err != nil {
		discard(dir)
		return nil, err
	}
	result.Article = article

	bundle := dir
	if opts.Upload {
		prefix, err := a.upload(ctx, article, dir)
		if err != nil {
			slog.Warn("failed to upload bundle", "dir", dir, "error", err)
		} else {
			result.Uploaded = true
			bundle = prefix
		}
	}

	if opts.Index {
		if err := a.index(ctx, models.NewIndexedArticle(article, bundle, a.now())); err != nil {
			slog.Warn("failed to index article", "url", url, "error", err)
		} else {
			result.Indexed = true
		}
	}

	result.Duration = a.now().Sub(start)
	return result, nil
}

// IndexBundle indexes an existing markdown bundle from disk.
func (a *Archiver) IndexBundle(ctx context.Context, dir string) (models.IndexedArticle, error) {
	article, fm, err := archive.ReadMarkdown(dir)
	if err != nil {
		return models.IndexedArticle{}, err
	}
	if article.Metadata.URL == "" {
		return models.IndexedArticle{}, fmt.Errorf("bundle %s has no source url", dir)
	}

	archivedAt, err := time.Parse(time.RFC3339, fm.DownloadedAt)
	if err != nil {
		archivedAt = a.now()
	}

	indexed := models.NewIndexedArticle(article, dir, archivedAt)
	if err := a.index(ctx, indexed); err != nil {
		return models.IndexedArticle{}, err
	}
	return indexed, nil
}

// discard removes a bundle directory that never received its document.
func discard(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("failed to remove incomplete bundle", "dir", dir, "error", err)
	}
}

func (a *Archiver) upload(ctx context.Context, article models.Article, dir string) (string, error) {
	if a.uploader == nil {
		return "", fmt.Errorf("storage is not configured")
	}
	if err := a.uploader.EnsureBucket(ctx); err != nil {
		return "", err
	}

	prefix := storage.BundlePrefix(models.GenerateArticleID(article.Metadata.URL))
	files, err := a.uploader.UploadBundle(ctx, prefix, dir)
	if err != nil {
		return "", err
	}

	manifest := storage.Manifest{
		SourceURL:  article.Metadata.URL,
		ArchivedAt: a.now().UTC().Format(time.RFC3339),
		FileCount:  len(files),
		Files:      files,
	}
	if err := a.uploader.PutManifest(ctx, prefix, manifest); err != nil {
		return "", err
	}

	slog.Debug("uploaded bundle", "prefix", prefix, "files", len(files))
	return prefix, nil
}

func (a *Archiver) index(ctx context.Context, article models.IndexedArticle) error {
	if a.indexer == nil {
		return fmt.Errorf("search index is not configured")
	}
	if err := a.indexer.CreateIndex(ctx); err != nil {
		return err
	}
	if err := a.indexer.IndexArticle(ctx, article); err != nil {
		return err
	}
	// Make the article searchable immediately
	return a.indexer.Refresh(ctx)
}
