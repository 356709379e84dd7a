package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mfenderov/clipmd/internal/elasticsearch"
	"github.com/mfenderov/clipmd/pkg/models"
)

type fakeIndex struct {
	articles  map[string]models.IndexedArticle
	err       error
	lastQuery  string
	lastAuthor string
	lastLimit  int
}

func (f *fakeIndex) SearchByAuthor(_ context.Context, query, author string, limit int) ([]models.IndexedArticle, error) {
	f.lastQuery, f.lastAuthor, f.lastLimit = query, author, limit
	if f.err != nil {
		return nil, f.err
	}
	var out []models.IndexedArticle
	for _, a := range f.articles {
		if author != "" && a.Author != author {
			continue
		}
		if strings.Contains(strings.ToLower(a.Content), strings.ToLower(query)) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeIndex) GetArticle(_ context.Context, id string) (*models.IndexedArticle, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.articles[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func testIndex() *fakeIndex {
	return &fakeIndex{articles: map[string]models.IndexedArticle{
		"a1": {ID: "a1", Title: "Getting Started", Author: "alice", Content: "Installation steps for the tool."},
		"a2": {ID: "a2", Title: "API", Author: "bob", Content: "Endpoints for users."},
	}}
}

func TestServer_Creation(t *testing.T) {
	s, err := NewServer(Config{
		Name:        "clipmd",
		Version:     "1.0.0",
		ESAddresses: []string{"http://localhost:9200"},
		ESIndex:     "clipmd-test",
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	if s == nil {
		t.Fatal("NewServer() returned nil")
	}

	if s.mcpServer == nil {
		t.Error("mcpServer should not be nil")
	}
}

func TestSearchHandler(t *testing.T) {
	idx := testIndex()
	s := newServer("clipmd", "test", idx)

	res, err := s.searchHandler(t.Context(), callTool("search_articles", map[string]any{"query": "installation", "limit": 3}))
	if err != nil {
		t.Fatalf("searchHandler() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("searchHandler() returned tool error: %s", resultText(t, res))
	}

	var articles []models.IndexedArticle
	if err := json.Unmarshal([]byte(resultText(t, res)), &articles); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if len(articles) != 1 || articles[0].ID != "a1" {
		t.Errorf("articles = %+v, want a1", articles)
	}
	if idx.lastQuery != "installation" || idx.lastLimit != 3 {
		t.Errorf("Search called with %q/%d", idx.lastQuery, idx.lastLimit)
	}
}

func TestSearchHandler_AuthorOnly(t *testing.T) {
	idx := testIndex()
	s := newServer("clipmd", "test", idx)

	res, err := s.searchHandler(t.Context(), callTool("search_articles", map[string]any{"author": "bob"}))
	if err != nil {
		t.Fatalf("searchHandler() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("searchHandler() returned tool error: %s", resultText(t, res))
	}

	var articles []models.IndexedArticle
	if err := json.Unmarshal([]byte(resultText(t, res)), &articles); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if len(articles) != 1 || articles[0].ID != "a2" {
		t.Errorf("articles = %+v, want a2", articles)
	}
	if idx.lastAuthor != "bob" || idx.lastQuery != "" {
		t.Errorf("SearchByAuthor called with %q/%q", idx.lastQuery, idx.lastAuthor)
	}
}

func TestSearchHandler_DefaultLimit(t *testing.T) {
	idx := testIndex()
	s := newServer("clipmd", "test", idx)

	if _, err := s.searchHandler(t.Context(), callTool("search_articles", map[string]any{"query": "x"})); err != nil {
		t.Fatalf("searchHandler() error = %v", err)
	}
	if idx.lastLimit != defaultLimit {
		t.Errorf("limit = %d, want %d", idx.lastLimit, defaultLimit)
	}
}

func TestSearchHandler_Errors(t *testing.T) {
	tests := []struct {
		name string
		idx  *fakeIndex
		args map[string]any
		want string
	}{
		{"missing query", testIndex(), map[string]any{}, "query parameter is required"},
		{"backend failure", &fakeIndex{err: errors.New("boom")}, map[string]any{"query": "q"}, "search failed: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer("clipmd", "test", tt.idx)
			res, err := s.searchHandler(t.Context(), callTool("search_articles", tt.args))
			if err != nil {
				t.Fatalf("searchHandler() error = %v", err)
			}
			if !res.IsError {
				t.Error("expected a tool error result")
			}
			if got := resultText(t, res); got != tt.want {
				t.Errorf("error text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetArticleHandler(t *testing.T) {
	s := newServer("clipmd", "test", testIndex())

	res, err := s.getArticleHandler(t.Context(), callTool("get_article", map[string]any{"id": "a2"}))
	if err != nil {
		t.Fatalf("getArticleHandler() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	var article models.IndexedArticle
	if err := json.Unmarshal([]byte(resultText(t, res)), &article); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if article.ID != "a2" || article.Title != "API" {
		t.Errorf("article = %+v", article)
	}
}

func TestGetArticleHandler_NotFound(t *testing.T) {
	s := newServer("clipmd", "test", testIndex())

	res, err := s.getArticleHandler(t.Context(), callTool("get_article", map[string]any{"id": "missing"}))
	if err != nil {
		t.Fatalf("getArticleHandler() error = %v", err)
	}
	if !res.IsError || resultText(t, res) != "article not found: missing" {
		t.Errorf("result = %+v", res)
	}
}

func skipIfNoES(t *testing.T) {
	if os.Getenv("SKIP_ES_TESTS") == "1" {
		t.Skip("Skipping ES tests")
	}
	client, err := elasticsearch.New(elasticsearch.Config{
		Addresses: []string{"http://localhost:9200"},
		Index:     "test-skip",
	})
	if err != nil {
		t.Skipf("Skipping: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !client.Ping(ctx) {
		t.Skip("Skipping: ES not available")
	}
}

func TestServer_SearchIntegration(t *testing.T) {
	skipIfNoES(t)

	ctx := context.Background()

	esClient, err := elasticsearch.New(elasticsearch.Config{
		Addresses: []string{"http://localhost:9200"},
		Index:     "clipmd-mcp-test",
	})
	if err != nil {
		t.Fatalf("Failed to create ES client: %v", err)
	}

	esClient.DeleteIndex(ctx)
	esClient.CreateIndex(ctx)
	defer esClient.DeleteIndex(ctx)

	esClient.IndexArticle(ctx, models.IndexedArticle{
		ID:      "mcp-test-1",
		URL:     "https://x.com/u/article/1",
		Title:   "Getting Started",
		Content: "# Getting Started\n\nWelcome to the guide for installation.",
	})
	esClient.Refresh(ctx)

	s, err := NewServer(Config{
		Name:        "clipmd",
		Version:     "1.0.0",
		ESAddresses: []string{"http://localhost:9200"},
		ESIndex:     "clipmd-mcp-test",
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	res, err := s.searchHandler(ctx, callTool("search_articles", map[string]any{"query": "installation"}))
	if err != nil {
		t.Fatalf("searchHandler() error = %v", err)
	}
	if res.IsError || !strings.Contains(resultText(t, res), "mcp-test-1") {
		t.Errorf("search result = %+v", res)
	}
}
