// Package page pulls the article body and metadata out of a rendered X page.
package page

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mfenderov/clipmd/pkg/models"
)

// uiSelectors are stripped from the article element when no dedicated body
// container exists.
var uiSelectors = []string{
	`[data-testid="User-Name"]`,
	`[data-testid="UserAvatar-Container"]`,
	`[role="group"]`,
	"time",
	`[data-testid="app-text-transition-container"]`,
}

var (
	likesPattern   = regexp.MustCompile(`(\d+(?:,\d+)*)\s*[Ll]ikes?`)
	repostsPattern = regexp.MustCompile(`(\d+(?:,\d+)*)\s*[Rr]eposts?`)
)

// Extract parses a fully rendered page and returns the article body HTML and
// whatever metadata the page exposes. Missing fields are left empty.
func Extract(doc string) (string, models.ArticleMetadata, error) {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return "", models.ArticleMetadata{}, fmt.Errorf("failed to parse page: %w", err)
	}

	body, err := articleBody(d)
	if err != nil {
		return "", models.ArticleMetadata{}, err
	}

	return body, metadata(d), nil
}

func metadata(d *goquery.Document) models.ArticleMetadata {
	var meta models.ArticleMetadata

	meta.Title = strings.TrimSpace(d.Find("article h1").First().Text())
	if meta.Title == "" {
		if og, ok := d.Find(`meta[property="og:title"]`).Attr("content"); ok {
			meta.Title = strings.TrimSpace(og)
		}
	}

	if href, ok := d.Find(`article a[href*="/"]`).Attr("href"); ok && href != "" {
		parts := strings.Split(strings.TrimRight(href, "/"), "/")
		meta.Author = parts[len(parts)-1]
		if strings.HasPrefix(href, "http") {
			meta.AuthorURL = href
		} else {
			meta.AuthorURL = "https://x.com" + href
		}
	}

	if dt, ok := d.Find("article time[datetime]").Attr("datetime"); ok {
		meta.Date = strings.TrimSpace(dt)
	}

	text := d.Find("body").Text()
	meta.Likes = count(likesPattern, text)
	meta.Reposts = count(repostsPattern, text)

	return meta
}

func count(pattern *regexp.Regexp, text string) *int {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

func articleBody(d *goquery.Document) (string, error) {
	if sel := d.Find(`[data-testid="article-body"]`).First(); sel.Length() > 0 {
		html, err := sel.Html()
		if err != nil {
			return "", fmt.Errorf("failed to serialize article body: %w", err)
		}
		return html, nil
	}

	if texts := d.Find(`[data-testid="tweetText"]`); texts.Length() > 0 {
		parts := make([]string, 0, texts.Length())
		var serr error
		texts.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			html, err := s.Html()
			if err != nil {
				serr = err
				return false
			}
			parts = append(parts, html)
			return true
		})
		if serr != nil {
			return "", fmt.Errorf("failed to serialize tweet text: %w", serr)
		}
		return strings.Join(parts, "\n\n"), nil
	}

	article := d.Find("article").First()
	if article.Length() == 0 {
		return "", nil
	}

	// Work on a copy so the metadata lookups still see the original tree.
	clone := article.Clone()
	for _, sel := range uiSelectors {
		clone.Find(sel).Remove()
	}
	html, err := clone.Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize article: %w", err)
	}
	return html, nil
}
