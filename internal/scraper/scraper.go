package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/mfenderov/clipmd/internal/auth"
)

// Config holds scraper configuration.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Page is a fetched document.
type Page struct {
	URL         string
	HTML        string
	ContentType string
	StatusCode  int
	FetchedAt   time.Time
}

// Scraper fetches pages without running JavaScript.
// It works for public pages that ship their content in the initial HTML.
type Scraper struct {
	config Config
}

// New creates a new Scraper with the given configuration.
func New(config Config) *Scraper {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "clipmd/1.0"
	}
	return &Scraper{config: config}
}

// Fetch downloads a single page, sending the cookies that apply to its host.
// HTTP error statuses are returned as errors.
func (s *Scraper) Fetch(ctx context.Context, pageURL string, cookies []auth.Cookie) (*Page, error) {
	var page *Page
	var cancelled bool

	slog.Debug("fetching page", "url", pageURL)

	c := colly.NewCollector(
		colly.UserAgent(s.config.UserAgent),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(s.config.Timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			slog.Debug("fetch cancelled", "url", r.URL.String())
			r.Abort()
			cancelled = true
			return
		}
		if header := cookieHeader(r.URL.Hostname(), cookies); header != "" {
			r.Headers.Set("Cookie", header)
		}
	})

	c.OnResponse(func(r *colly.Response) {
		page = &Page{
			URL:         r.Request.URL.String(),
			HTML:        string(r.Body),
			ContentType: r.Headers.Get("Content-Type"),
			StatusCode:  r.StatusCode,
			FetchedAt:   time.Now(),
		}
		slog.Debug("fetched page", "url", page.URL, "status", r.StatusCode, "size", len(r.Body))
	})

	err := c.Visit(pageURL)
	if cancelled {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	if page == nil {
		return nil, fmt.Errorf("no response from %s", pageURL)
	}
	if page.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("failed to fetch %s: HTTP %d", pageURL, page.StatusCode)
	}
	return page, nil
}

// cookieHeader builds a Cookie header from the cookies whose domain covers host.
func cookieHeader(host string, cookies []auth.Cookie) string {
	var parts []string
	for _, ck := range cookies {
		if !domainMatch(host, ck.Domain) {
			continue
		}
		if v := (&http.Cookie{Name: ck.Name, Value: ck.Value}).String(); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "; ")
}

func domainMatch(host, domain string) bool {
	domain = strings.TrimPrefix(strings.ToLower(domain), ".")
	host = strings.ToLower(host)
	if domain == "" {
		return true
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Render fetches url and returns its HTML, so a Scraper can stand in for
// the browser when JavaScript is not needed.
func (s *Scraper) Render(ctx context.Context, url string, cookies []auth.Cookie) (string, error) {
	page, err := s.Fetch(ctx, url, cookies)
	if err != nil {
		return "", err
	}
	return page.HTML, nil
}
