package processor

import (
	"strings"

	"github.com/mfenderov/clipmd/pkg/models"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExtractMediaURLs scans HTML for image and video references.
//
// Results are ordered images first, then <video src>, then <source> tags
// typed video/*. A URL is kept only the first time it is seen, so a
// <source> repeating its parent <video src> does not produce a second item.
// Attribute values come back entity-decoded from the tokenizer, which makes
// them match the URLs the markdown converter emits.
func ExtractMediaURLs(htmlContent string) []models.MediaItem {
	var images, videos, sources []models.MediaItem

	z := html.NewTokenizer(strings.NewReader(htmlContent))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		tok := z.Token()
		switch tok.DataAtom {
		case atom.Img:
			src := attr(tok, "src")
			if src == "" {
				continue
			}
			images = append(images, models.MediaItem{
				URL:  src,
				Type: models.MediaImage,
				Alt:  attr(tok, "alt"),
			})
		case atom.Video:
			if src := attr(tok, "src"); src != "" {
				videos = append(videos, models.MediaItem{URL: src, Type: models.MediaVideo})
			}
		case atom.Source:
			src := attr(tok, "src")
			if src == "" || !strings.HasPrefix(strings.ToLower(attr(tok, "type")), "video/") {
				continue
			}
			sources = append(sources, models.MediaItem{URL: src, Type: models.MediaVideo})
		}
	}

	media := make([]models.MediaItem, 0, len(images)+len(videos)+len(sources))
	seen := make(map[string]bool)
	for _, group := range [][]models.MediaItem{images, videos, sources} {
		for _, item := range group {
			if seen[item.URL] {
				continue
			}
			seen[item.URL] = true
			media = append(media, item)
		}
	}
	return media
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}
