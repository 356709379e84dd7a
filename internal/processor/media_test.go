package processor

import (
	"testing"

	"github.com/mfenderov/clipmd/pkg/models"
)

func TestExtractMediaURLs(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []models.MediaItem
	}{
		{
			name: "images in order",
			html: `<img src="a.jpg"><img src="b.png">`,
			want: []models.MediaItem{
				{URL: "a.jpg", Type: models.MediaImage},
				{URL: "b.png", Type: models.MediaImage},
			},
		},
		{
			name: "image alt text",
			html: `<img alt="a cat" src="https://pbs.twimg.com/media/cat.jpg">`,
			want: []models.MediaItem{
				{URL: "https://pbs.twimg.com/media/cat.jpg", Type: models.MediaImage, Alt: "a cat"},
			},
		},
		{
			name: "video src",
			html: `<video src="https://video.twimg.com/ext/123.mp4"></video>`,
			want: []models.MediaItem{
				{URL: "https://video.twimg.com/ext/123.mp4", Type: models.MediaVideo},
			},
		},
		{
			name: "source duplicate of video suppressed",
			html: `<video src="v.mp4"><source src="v.mp4" type="video/mp4"></video>`,
			want: []models.MediaItem{
				{URL: "v.mp4", Type: models.MediaVideo},
			},
		},
		{
			name: "source fallback without video src",
			html: `<video poster="p.jpg"><source src="v.webm" type="video/webm"><source src="v.mp4" type="video/mp4"></video>`,
			want: []models.MediaItem{
				{URL: "v.webm", Type: models.MediaVideo},
				{URL: "v.mp4", Type: models.MediaVideo},
			},
		},
		{
			name: "non-video sources ignored",
			html: `<picture><source srcset="a.webp" type="image/webp"><source src="b.mp3" type="audio/mpeg"></picture>`,
			want: []models.MediaItem{},
		},
		{
			name: "ordering images then videos then sources",
			html: `<video><source src="s.mp4" type="video/mp4"></video><video src="v.mp4"></video><img src="i.jpg">`,
			want: []models.MediaItem{
				{URL: "i.jpg", Type: models.MediaImage},
				{URL: "v.mp4", Type: models.MediaVideo},
				{URL: "s.mp4", Type: models.MediaVideo},
			},
		},
		{
			name: "decodes entities in URLs",
			html: `<img src="https://pbs.twimg.com/media/x?format=jpg&amp;name=small">`,
			want: []models.MediaItem{
				{URL: "https://pbs.twimg.com/media/x?format=jpg&name=small", Type: models.MediaImage},
			},
		},
		{
			name: "duplicate images collapse to first",
			html: `<img src="a.jpg" alt="first"><img src="a.jpg" alt="second">`,
			want: []models.MediaItem{
				{URL: "a.jpg", Type: models.MediaImage, Alt: "first"},
			},
		},
		{
			name: "missing src ignored",
			html: `<img alt="nothing"><video></video><source type="video/mp4">`,
			want: []models.MediaItem{},
		},
		{
			name: "malformed markup is best effort",
			html: `<div><img src="ok.jpg"><p>unclosed <img src=`,
			want: []models.MediaItem{
				{URL: "ok.jpg", Type: models.MediaImage},
			},
		},
		{
			name: "empty input",
			html: ``,
			want: []models.MediaItem{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractMediaURLs(tt.html)

			if len(got) != len(tt.want) {
				t.Fatalf("ExtractMediaURLs() returned %d items, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("item[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractMediaURLs_LocalPathUnset(t *testing.T) {
	for _, item := range ExtractMediaURLs(`<img src="a.jpg"><video src="b.mp4"></video>`) {
		if item.LocalPath != "" {
			t.Errorf("LocalPath should be empty after extraction, got %q", item.LocalPath)
		}
	}
}
