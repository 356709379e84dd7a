package markdown

import (
	"strings"
	"time"

	"github.com/mfenderov/clipmd/pkg/models"
)

// ReplaceMediaURLs rewrites every literal occurrence of a downloaded item's
// remote URL with its local path. Items without a LocalPath keep their
// absolute URL.
func ReplaceMediaURLs(content string, media []models.MediaItem) string {
	for _, item := range media {
		if item.LocalPath == "" || item.URL == "" {
			continue
		}
		content = strings.ReplaceAll(content, item.URL, item.LocalPath)
	}
	return content
}

// Generate renders the final index.md: frontmatter, a blank line, then the
// content with media URLs swapped for local paths.
func Generate(article models.Article) string {
	return GenerateAt(article, time.Now())
}

// GenerateAt is Generate with an explicit download timestamp.
func GenerateAt(article models.Article, downloadedAt time.Time) string {
	content := ReplaceMediaURLs(article.Content, article.Media)
	return GenerateFrontmatter(article.Metadata, downloadedAt) + "\n\n" + content
}
