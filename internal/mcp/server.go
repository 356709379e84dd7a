package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mfenderov/clipmd/internal/elasticsearch"
	"github.com/mfenderov/clipmd/pkg/models"
)

const defaultLimit = 10

// Config holds MCP server configuration.
type Config struct {
	Name        string
	Version     string
	ESAddresses []string
	ESIndex     string
	ESUsername  string
	ESPassword  string
}

// ArticleIndex is the search backend the tools query.
type ArticleIndex interface {
	SearchByAuthor(ctx context.Context, query, author string, limit int) ([]models.IndexedArticle, error)
	GetArticle(ctx context.Context, id string) (*models.IndexedArticle, error)
}

// Server wraps the MCP server with archive search tools.
type Server struct {
	mcpServer *server.MCPServer
	index     ArticleIndex
}

// NewServer creates a new MCP server backed by Elasticsearch.
func NewServer(config Config) (*Server, error) {
	esClient, err := elasticsearch.New(elasticsearch.Config{
		Addresses: config.ESAddresses,
		Index:     config.ESIndex,
		Username:  config.ESUsername,
		Password:  config.ESPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return newServer(config.Name, config.Version, esClient), nil
}

func newServer(name, version string, index ArticleIndex) *Server {
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		index:     index,
	}

	searchTool := mcp.NewTool("search_articles",
		mcp.WithDescription("Search archived X articles by query and/or author. Returns matching articles with their full markdown content."),
		mcp.WithString("query",
			mcp.Description("Search query string"),
		),
		mcp.WithString("author",
			mcp.Description("Only return articles by this X handle"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (default: 10)"),
		),
	)
	mcpServer.AddTool(searchTool, s.searchHandler)

	getTool := mcp.NewTool("get_article",
		mcp.WithDescription("Get a specific archived article by ID"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Article ID to retrieve"),
		),
	)
	mcpServer.AddTool(getTool, s.getArticleHandler)

	return s
}

// searchHandler handles the search_articles tool call.
func (s *Server) searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	author := req.GetString("author", "")
	if query == "" && author == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	limit := req.GetInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}

	articles, err := s.index.SearchByAuthor(ctx, query, author, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	result, err := json.Marshal(articles)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

// getArticleHandler handles the get_article tool call.
func (s *Server) getArticleHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	article, err := s.index.GetArticle(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get article failed: %v", err)), nil
	}

	if article == nil {
		return mcp.NewToolResultError(fmt.Sprintf("article not found: %s", id)), nil
	}

	result, err := json.Marshal(article)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal article: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
