package processor

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/strikethrough"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/mfenderov/clipmd/pkg/models"
	"golang.org/x/net/html"
)

// Processor converts article HTML into markdown and collects its media.
type Processor struct {
	conv *converter.Converter
	now  func() time.Time
}

// New creates a new HTML to Markdown processor.
func New() *Processor {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle(commonmark.HeadingStyleATX),
				commonmark.WithCodeBlockFence("```"),
			),
			strikethrough.NewStrikethroughPlugin(),
			table.NewTablePlugin(),
		),
	)
	return &Processor{conv: conv, now: time.Now}
}

var defaultProcessor = New()

// HTMLToMarkdown converts HTML with the default processor.
func HTMLToMarkdown(html string) string {
	return defaultProcessor.Convert(html)
}

// Convert transforms HTML content into Markdown and strips the rendering
// artifacts left behind by X's DOM. It never fails: a conversion error
// yields an empty string.
func (p *Processor) Convert(htmlContent string) string {
	if strings.TrimSpace(htmlContent) == "" {
		return ""
	}

	markdown, err := p.conv.ConvertString(htmlContent)
	if err != nil {
		slog.Debug("html to markdown conversion failed", "error", err)
		return ""
	}

	return cleanupMarkdown(markdown)
}

type cleanupRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Order matters: later rules assume the earlier artifacts are gone.
var cleanupRules = []cleanupRule{
	// [](/path), [ ](/path), [\n\n](/path)
	{regexp.MustCompile(`\[\s*\]\([^)]+\)`), ""},
	// stray brackets on their own line
	{regexp.MustCompile(`(?m)^\[\s*$`), ""},
	{regexp.MustCompile(`(?m)^\]\s*$`), ""},
	// ](/akoratana)
	{regexp.MustCompile(`(?m)^\]\([^)]+\)\s*$`), ""},
	// broken image syntax
	{regexp.MustCompile(`(?m)^!\s*$`), ""},
	// "##\n\nTitle" -> "## Title"
	{regexp.MustCompile(`(?m)^(#{1,6})\s*\n\n([A-Z])`), "${1} ${2}"},
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
	// engagement counters such as 146, 1.2K, 3M
	{regexp.MustCompile(`(?m)^\d+(\.\d+)?[KMB]?\s*$`), ""},
}

// cleanupMarkdown applies the cleanup rules in order and trims the result.
func cleanupMarkdown(content string) string {
	for _, rule := range cleanupRules {
		content = rule.pattern.ReplaceAllString(content, rule.replacement)
	}
	return strings.TrimSpace(content)
}

// restoreMediaURLs rewrites percent-encoded media destinations back to the
// extracted URLs so local paths can be substituted literally later.
func (p *Processor) restoreMediaURLs(content string, media []models.MediaItem) string {
	for _, item := range media {
		dest := p.destination(item.URL)
		if dest == "" || dest == item.URL {
			continue
		}
		content = strings.NewReplacer(
			"]("+dest+")", "]("+item.URL+")",
			"]("+dest+" ", "]("+item.URL+" ",
		).Replace(content)
	}
	return content
}

// destination returns src as the converter writes it inside an image link.
func (p *Processor) destination(src string) string {
	out, err := p.conv.ConvertString(`<img src="` + html.EscapeString(src) + `">`)
	if err != nil {
		return ""
	}
	out = strings.TrimSpace(out)
	if !strings.HasPrefix(out, "![](") || !strings.HasSuffix(out, ")") {
		return ""
	}
	return out[len("![]("):len(out)-1]
}

// ParseArticlePage builds an Article from the article body HTML and whatever
// metadata the page exposed. Missing fields get placeholder values.
func (p *Processor) ParseArticlePage(html, url string, meta models.ArticleMetadata) models.Article {
	media := ExtractMediaURLs(html)
	content := p.restoreMediaURLs(p.Convert(html), media)

	if meta.Title == "" {
		meta.Title = "Untitled"
	}
	if meta.Author == "" {
		meta.Author = "unknown"
	}
	if meta.Date == "" {
		meta.Date = p.now().UTC().Format(time.RFC3339)
	}
	meta.URL = url

	return models.Article{
		Metadata: meta,
		Content:  content,
		Media:    media,
	}
}
