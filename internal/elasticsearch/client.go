package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/mfenderov/clipmd/pkg/models"
)

// Config holds Elasticsearch client configuration.
type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
}

// Client wraps the Elasticsearch client with article search operations.
type Client struct {
	es    *elasticsearch.Client
	index string
}

// New creates a new Elasticsearch client.
func New(config Config) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	return &Client{
		es:    es,
		index: config.Index,
	}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) bool {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

// indexMapping defines the ES index mapping for archived articles.
var indexMapping = `{
	"mappings": {
		"properties": {
			"id": { "type": "keyword" },
			"url": { "type": "keyword" },
			"title": { "type": "text", "analyzer": "english" },
			"author": { "type": "keyword", "fields": { "text": { "type": "text" } } },
			"author_url": { "type": "keyword" },
			"date": { "type": "date", "ignore_malformed": true },
			"content": { "type": "text", "analyzer": "english" },
			"likes": { "type": "integer" },
			"reposts": { "type": "integer" },
			"archived_at": { "type": "date" },
			"bundle": { "type": "keyword" }
		}
	}
}`

// CreateIndex creates the index with proper mapping.
func (c *Client) CreateIndex(ctx context.Context) error {
	// Check if index exists
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		// Index already exists
		return nil
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index: %s", res.String())
	}

	return nil
}

// DeleteIndex removes the index (for testing/cleanup).
func (c *Client) DeleteIndex(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{c.index}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// IndexArticle indexes a single article, replacing any earlier copy with the same ID.
func (c *Client) IndexArticle(ctx context.Context, article models.IndexedArticle) error {
	data, err := json.Marshal(article)
	if err != nil {
		return fmt.Errorf("failed to marshal article: %w", err)
	}

	res, err := c.es.Index(
		c.index,
		bytes.NewReader(data),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(article.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to index article: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing article (status %d): %s", res.StatusCode, res.String())
	}

	return nil
}

// Refresh forces an index refresh (useful for testing).
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(c.index),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// searchResponse represents ES search response structure.
type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.IndexedArticle `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// searchFields are matched by Search; titles weigh double.
var searchFields = []string{"content", "title^2", "author.text"}

// Search performs a BM25 text search on article content, title, and author.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.IndexedArticle, error) {
	return c.SearchByAuthor(ctx, query, "", limit)
}

// SearchByAuthor is Search restricted to one author's handle. An empty
// author searches everyone; an empty query lists the author's articles,
// newest archive first.
func (c *Client) SearchByAuthor(ctx context.Context, query, author string, limit int) ([]models.IndexedArticle, error) {
	searchQuery := map[string]interface{}{
		"query": buildQuery(query, author),
		"size":  limit,
	}
	if query == "" {
		searchQuery["sort"] = []interface{}{
			map[string]interface{}{"archived_at": map[string]interface{}{"order": "desc", "unmapped_type": "date"}},
		}
	}

	data, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	articles := make([]models.IndexedArticle, len(sr.Hits.Hits))
	for i, hit := range sr.Hits.Hits {
		articles[i] = hit.Source
	}

	return articles, nil
}

func buildQuery(query, author string) map[string]interface{} {
	var match map[string]interface{}
	if query == "" {
		match = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		match = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": searchFields,
			},
		}
	}
	if author == "" {
		return match
	}

	return map[string]interface{}{
		"bool": map[string]interface{}{
			"must": match,
			"filter": map[string]interface{}{
				"term": map[string]interface{}{"author": strings.TrimPrefix(author, "@")},
			},
		},
	}
}

// getResponse represents ES get response structure.
type getResponse struct {
	Found  bool                  `json:"found"`
	Source models.IndexedArticle `json:"_source"`
}

// GetArticle retrieves an article by ID. It returns nil when the article is not indexed.
func (c *Client) GetArticle(ctx context.Context, id string) (*models.IndexedArticle, error) {
	res, err := c.es.Get(
		c.index,
		id,
		c.es.Get.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, nil
	}

	if res.IsError() {
		return nil, fmt.Errorf("get error: %s", res.String())
	}

	var gr getResponse
	if err := json.NewDecoder(res.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !gr.Found {
		return nil, nil
	}

	return &gr.Source, nil
}
