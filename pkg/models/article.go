package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// MediaType distinguishes images from videos.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// MediaItem is a single image or video referenced by an article.
// LocalPath is empty until the downloader has processed the item.
type MediaItem struct {
	URL       string    `json:"url"`
	Type      MediaType `json:"type"`
	Alt       string    `json:"alt,omitempty"`
	LocalPath string    `json:"local_path,omitempty"`
}

// ArticleMetadata describes where an article came from.
// Likes and Reposts are nil when the page did not expose them.
type ArticleMetadata struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	AuthorURL string `json:"author_url"`
	Date      string `json:"date"`
	URL       string `json:"url"`
	Likes     *int   `json:"likes,omitempty"`
	Reposts   *int   `json:"reposts,omitempty"`
}

// Article is the archived form of a single page.
type Article struct {
	Metadata ArticleMetadata `json:"metadata"`
	Content  string          `json:"content"`
	Media    []MediaItem     `json:"media"`
}

// IndexedArticle is the search document stored for an archived article.
type IndexedArticle struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	AuthorURL  string    `json:"author_url"`
	Date       string    `json:"date"`
	Content    string    `json:"content"`
	Likes      *int      `json:"likes,omitempty"`
	Reposts    *int      `json:"reposts,omitempty"`
	ArchivedAt time.Time `json:"archived_at"`
	Bundle     string    `json:"bundle,omitempty"` // local directory or S3 prefix
}

// NewIndexedArticle flattens an article into its search document.
func NewIndexedArticle(a Article, bundle string, archivedAt time.Time) IndexedArticle {
	return IndexedArticle{
		ID:         GenerateArticleID(a.Metadata.URL),
		URL:        a.Metadata.URL,
		Title:      a.Metadata.Title,
		Author:     a.Metadata.Author,
		AuthorURL:  a.Metadata.AuthorURL,
		Date:       a.Metadata.Date,
		Content:    a.Content,
		Likes:      a.Metadata.Likes,
		Reposts:    a.Metadata.Reposts,
		ArchivedAt: archivedAt,
		Bundle:     bundle,
	}
}

// GenerateArticleID creates a deterministic ID from the article URL.
// The ID is a SHA-256 hash (first 16 chars) of the URL.
func GenerateArticleID(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:])[:16]
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}
