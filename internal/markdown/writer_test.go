package markdown

import (
	"strings"
	"testing"
	"time"

	"github.com/mfenderov/clipmd/pkg/models"
)

var fixedTime = time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC)

func testMetadata() models.ArticleMetadata {
	return models.ArticleMetadata{
		Title:     "Test Article",
		Author:    "testuser",
		AuthorURL: "https://x.com/testuser",
		Date:      "2025-01-15T10:30:00Z",
		URL:       "https://x.com/testuser/article/123",
	}
}

func TestGenerateFrontmatter(t *testing.T) {
	meta := testMetadata()
	meta.Likes = models.IntPtr(100)
	meta.Reposts = models.IntPtr(50)

	fm := GenerateFrontmatter(meta, fixedTime)

	for _, want := range []string{
		"title: Test Article",
		"author: testuser",
		"author_url: https://x.com/testuser",
		"url: https://x.com/testuser/article/123",
		"downloaded_at:",
		"2025-01-15T11:00:00.000Z",
		"likes: 100",
		"reposts: 50",
	} {
		if !strings.Contains(fm, want) {
			t.Errorf("frontmatter should contain %q, got:\n%s", want, fm)
		}
	}

	if !strings.HasPrefix(fm, "---\n") {
		t.Errorf("frontmatter should start with delimiter line, got:\n%s", fm)
	}
	if !strings.HasSuffix(fm, "\n---") {
		t.Errorf("frontmatter should end with delimiter line, got:\n%s", fm)
	}
}

func TestGenerateFrontmatter_KeyOrder(t *testing.T) {
	meta := testMetadata()
	meta.Likes = models.IntPtr(1)
	fm := GenerateFrontmatter(meta, fixedTime)

	keys := []string{"title:", "author:", "author_url:", "date:", "url:", "downloaded_at:", "likes:"}
	last := -1
	for _, key := range keys {
		idx := strings.Index(fm, "\n"+key)
		if idx < 0 {
			t.Fatalf("missing key %q in:\n%s", key, fm)
		}
		if idx < last {
			t.Errorf("key %q out of order in:\n%s", key, fm)
		}
		last = idx
	}
}

func TestGenerateFrontmatter_OmitsMissingCounts(t *testing.T) {
	fm := GenerateFrontmatter(testMetadata(), fixedTime)

	for _, key := range []string{"likes", "reposts"} {
		if strings.Contains(fm, key) {
			t.Errorf("frontmatter should not contain %q, got:\n%s", key, fm)
		}
	}
}

func TestGenerateFrontmatter_ZeroCountIsKept(t *testing.T) {
	meta := testMetadata()
	meta.Likes = models.IntPtr(0)

	fm := GenerateFrontmatter(meta, fixedTime)
	if !strings.Contains(fm, "likes: 0") {
		t.Errorf("supplied zero count should be written, got:\n%s", fm)
	}
}

func TestGenerateFrontmatter_EscapesAwkwardTitles(t *testing.T) {
	meta := testMetadata()
	meta.Title = "Part 2: the \"sequel\" # not a comment"

	fm := GenerateFrontmatter(meta, fixedTime)

	parsed, _, err := ParseFrontmatter(strings.NewReader(fm + "\n\nbody"))
	if err != nil {
		t.Fatalf("ParseFrontmatter() error = %v", err)
	}
	if parsed.Title != meta.Title {
		t.Errorf("Title = %q, want %q", parsed.Title, meta.Title)
	}
}

func TestGenerate(t *testing.T) {
	article := models.Article{
		Metadata: testMetadata(),
		Content:  "# Test Article\n\nThis is the content.",
	}

	md := GenerateAt(article, fixedTime)

	if !strings.HasPrefix(md, Delimiter) {
		t.Errorf("markdown should begin with the frontmatter delimiter, got:\n%s", md)
	}
	if !strings.Contains(md, "title: Test Article") {
		t.Errorf("markdown should contain title, got:\n%s", md)
	}
	if !strings.HasSuffix(md, "---\n\n# Test Article\n\nThis is the content.") {
		t.Errorf("content should follow frontmatter verbatim after a blank line, got:\n%s", md)
	}
}

func TestGenerate_ReplacesMediaURLs(t *testing.T) {
	article := models.Article{
		Metadata: testMetadata(),
		Content:  "![alt](https://pbs.twimg.com/media/abc.jpg)",
		Media: []models.MediaItem{
			{
				URL:       "https://pbs.twimg.com/media/abc.jpg",
				Type:      models.MediaImage,
				Alt:       "alt",
				LocalPath: "./media/1.jpg",
			},
		},
	}

	md := Generate(article)

	if !strings.Contains(md, "![alt](./media/1.jpg)") {
		t.Errorf("expected local image path, got:\n%s", md)
	}
	if strings.Contains(md, "pbs.twimg.com") {
		t.Errorf("remote URL should be replaced, got:\n%s", md)
	}
}

func TestReplaceMediaURLs(t *testing.T) {
	const remote = "https://pbs.twimg.com/media/x.jpg?format=jpg&name=small"

	tests := []struct {
		name    string
		content string
		media   []models.MediaItem
		want    string
	}{
		{
			name:    "replaces every occurrence",
			content: "![a](" + remote + ")\n\n[full](" + remote + ")",
			media:   []models.MediaItem{{URL: remote, LocalPath: "./media/1.jpg"}},
			want:    "![a](./media/1.jpg)\n\n[full](./media/1.jpg)",
		},
		{
			name:    "leaves items without local path",
			content: "![a](" + remote + ")",
			media:   []models.MediaItem{{URL: remote}},
			want:    "![a](" + remote + ")",
		},
		{
			name:    "treats regex metacharacters literally",
			content: "![a](https://example.com/a.jpg) ![b](https://exampleXcom/aXjpg)",
			media:   []models.MediaItem{{URL: "https://example.com/a.jpg", LocalPath: "./media/1.jpg"}},
			want:    "![a](./media/1.jpg) ![b](https://exampleXcom/aXjpg)",
		},
		{
			name:    "handles parentheses and plus signs",
			content: "see https://example.com/img(1)+2.png",
			media:   []models.MediaItem{{URL: "https://example.com/img(1)+2.png", LocalPath: "./media/2.png"}},
			want:    "see ./media/2.png",
		},
		{
			name:    "multiple items",
			content: "![](https://a.example/1.png) <https://v.example/1.mp4>",
			media: []models.MediaItem{
				{URL: "https://a.example/1.png", LocalPath: "./media/1.png"},
				{URL: "https://v.example/1.mp4", LocalPath: "./media/video-2.mp4"},
			},
			want: "![](./media/1.png) <./media/video-2.mp4>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReplaceMediaURLs(tt.content, tt.media); got != tt.want {
				t.Errorf("ReplaceMediaURLs() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReplaceMediaURLs_CountsOccurrences(t *testing.T) {
	const u = "https://pbs.twimg.com/media/abc.jpg"
	const l = "./media/1.jpg"
	content := "![one](" + u + ")\n\ntext\n\n![two](" + u + ")"

	got := ReplaceMediaURLs(content, []models.MediaItem{{URL: u, LocalPath: l}})

	if n := strings.Count(got, u); n != 0 {
		t.Errorf("remote URL occurrences = %d, want 0", n)
	}
	if n := strings.Count(got, l); n != 2 {
		t.Errorf("local path occurrences = %d, want 2", n)
	}
}

func TestParseFrontmatter_RoundTrip(t *testing.T) {
	meta := testMetadata()
	meta.Reposts = models.IntPtr(9)
	article := models.Article{Metadata: meta, Content: "# Heading\n\nBody text."}

	fm, body, err := ParseFrontmatter(strings.NewReader(GenerateAt(article, fixedTime)))
	if err != nil {
		t.Fatalf("ParseFrontmatter() error = %v", err)
	}

	got := fm.Metadata()
	if got.Title != meta.Title || got.Author != meta.Author || got.AuthorURL != meta.AuthorURL ||
		got.Date != meta.Date || got.URL != meta.URL {
		t.Errorf("Metadata() = %+v, want %+v", got, meta)
	}
	if got.Reposts == nil || *got.Reposts != 9 {
		t.Errorf("Reposts = %v, want 9", got.Reposts)
	}
	if got.Likes != nil {
		t.Errorf("Likes = %v, want nil", *got.Likes)
	}
	if fm.DownloadedAt != "2025-01-15T11:00:00.000Z" {
		t.Errorf("DownloadedAt = %q", fm.DownloadedAt)
	}
	if strings.TrimSpace(body) != article.Content {
		t.Errorf("body = %q, want %q", body, article.Content)
	}
}

func TestParseFrontmatter_Missing(t *testing.T) {
	if _, _, err := ParseFrontmatter(strings.NewReader("# Just markdown\n")); err == nil {
		t.Error("ParseFrontmatter() should fail without a frontmatter block")
	}
}
