package markdown

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/mfenderov/clipmd/pkg/models"
	"gopkg.in/yaml.v3"
)

// Delimiter bounds the frontmatter block.
const Delimiter = "---"

// downloadedAtLayout matches the millisecond ISO 8601 form used in existing archives.
const downloadedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// Frontmatter is the YAML header written at the top of index.md.
// Field order here is the key order in the output.
type Frontmatter struct {
	Title        string `yaml:"title"`
	Author       string `yaml:"author"`
	AuthorURL    string `yaml:"author_url"`
	Date         string `yaml:"date"`
	URL          string `yaml:"url"`
	DownloadedAt string `yaml:"downloaded_at"`
	Likes        *int   `yaml:"likes,omitempty"`
	Reposts      *int   `yaml:"reposts,omitempty"`
}

// Metadata converts the header back into article metadata.
func (f Frontmatter) Metadata() models.ArticleMetadata {
	return models.ArticleMetadata{
		Title:     f.Title,
		Author:    f.Author,
		AuthorURL: f.AuthorURL,
		Date:      f.Date,
		URL:       f.URL,
		Likes:     f.Likes,
		Reposts:   f.Reposts,
	}
}

// GenerateFrontmatter renders the delimited YAML block for meta.
// downloadedAt is the render time, not the article time.
func GenerateFrontmatter(meta models.ArticleMetadata, downloadedAt time.Time) string {
	fm := Frontmatter{
		Title:        meta.Title,
		Author:       meta.Author,
		AuthorURL:    meta.AuthorURL,
		Date:         meta.Date,
		URL:          meta.URL,
		DownloadedAt: downloadedAt.UTC().Format(downloadedAtLayout),
		Likes:        meta.Likes,
		Reposts:      meta.Reposts,
	}

	data, err := yaml.Marshal(&fm)
	if err != nil {
		// Frontmatter holds only strings and ints, which always marshal.
		panic(fmt.Sprintf("marshal frontmatter: %v", err))
	}

	var buf strings.Builder
	buf.WriteString(Delimiter + "\n")
	buf.Write(data)
	buf.WriteString(Delimiter)
	return buf.String()
}

// ParseFrontmatter reads an index.md produced by Generate and returns the
// header and the markdown body that follows it.
func ParseFrontmatter(r io.Reader) (Frontmatter, string, error) {
	var fm Frontmatter
	rest, err := frontmatter.MustParse(r, &fm)
	if err != nil {
		return Frontmatter{}, "", fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	return fm, string(bytes.TrimLeft(rest, "\r\n")), nil
}
