// Package archive lays out article bundles on disk.
// A bundle is a directory named after the article slug holding index.md
// (or article.json) and a media/ subdirectory.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/mfenderov/clipmd/internal/markdown"
	"github.com/mfenderov/clipmd/pkg/models"
)

const (
	// MarkdownFile is the bundle's markdown document.
	MarkdownFile = "index.md"
	// JSONFile is the bundle's JSON document.
	JSONFile = "article.json"

	fallbackSlug = "article"
)

var (
	slugInvalid    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSeparators = regexp.MustCompile(`[\s_]+`)
	slugDashes     = regexp.MustCompile(`-+`)
)

// Slugify turns a title into a lowercase ASCII directory name.
// Titles with no usable characters yield "".
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugSeparators.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// UniquePath returns base if nothing exists there, otherwise the first free
// base-1, base-2, ...
func UniquePath(base string) string {
	if !exists(base) {
		return base
	}
	for n := 1; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if !exists(candidate) {
			return candidate
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// Writer writes bundles below a root directory.
type Writer struct {
	Root string
}

// NewWriter creates a Writer targeting root.
func NewWriter(root string) *Writer {
	return &Writer{Root: root}
}

// Prepare creates a fresh bundle directory for title and returns its path.
// Existing bundles are never overwritten.
func (w *Writer) Prepare(title string) (string, error) {
	slug := Slugify(title)
	if slug == "" {
		slug = fallbackSlug
	}

	if err := os.MkdirAll(w.Root, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	dir := UniquePath(filepath.Join(w.Root, slug))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create bundle directory %s: %w", dir, err)
	}
	return dir, nil
}

// WriteMarkdown renders article with frontmatter into dir/index.md.
func (w *Writer) WriteMarkdown(dir string, article models.Article) (string, error) {
	path := filepath.Join(dir, MarkdownFile)
	if err := os.WriteFile(path, []byte(markdown.Generate(article)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// WriteJSON writes article as indented JSON into dir/article.json.
func (w *Writer) WriteJSON(dir string, article models.Article) (string, error) {
	data, err := json.MarshalIndent(article, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal article: %w", err)
	}

	path := filepath.Join(dir, JSONFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// ReadMarkdown loads a bundle's index.md back into an article.
// Media items are not recoverable from markdown and are left empty.
func ReadMarkdown(dir string) (models.Article, markdown.Frontmatter, error) {
	f, err := os.Open(filepath.Join(dir, MarkdownFile))
	if err != nil {
		return models.Article{}, markdown.Frontmatter{}, fmt.Errorf("failed to open bundle: %w", err)
	}
	defer f.Close()

	fm, body, err := markdown.ParseFrontmatter(f)
	if err != nil {
		return models.Article{}, markdown.Frontmatter{}, err
	}

	return models.Article{Metadata: fm.Metadata(), Content: body}, fm, nil
}
