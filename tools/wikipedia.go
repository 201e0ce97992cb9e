package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/veritaslab/tribunal/llm"
)

// WikipediaName is the research agents' lookup tool.
const WikipediaName = "wikipedia"

// WikipediaConfig configures the Wikipedia lookup client.
type WikipediaConfig struct {
	BaseURL    string        `json:"base_url" yaml:"base_url"`       // MediaWiki api.php endpoint
	MaxResults int           `json:"max_results" yaml:"max_results"` // Search hits per query
	MaxChars   int           `json:"max_chars" yaml:"max_chars"`     // Truncation limit per extract
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	UserAgent  string        `json:"user_agent" yaml:"user_agent"`
}

// DefaultWikipediaConfig returns sensible defaults for English Wikipedia.
func DefaultWikipediaConfig() WikipediaConfig {
	return WikipediaConfig{
		BaseURL:    "https://en.wikipedia.org/w/api.php",
		MaxResults: 3,
		MaxChars:   4000,
		Timeout:    15 * time.Second,
		UserAgent:  "tribunal/1.0 (research pipeline)",
	}
}

// WikipediaArticle is one lookup result.
type WikipediaArticle struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// WikipediaClient queries the MediaWiki action API.
type WikipediaClient struct {
	config WikipediaConfig
	client *http.Client
	logger *zap.Logger
}

// NewWikipediaClient creates a Wikipedia lookup client.
func NewWikipediaClient(config WikipediaConfig, logger *zap.Logger) *WikipediaClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultWikipediaConfig().BaseURL
	}
	if config.MaxResults <= 0 {
		config.MaxResults = DefaultWikipediaConfig().MaxResults
	}
	if config.MaxChars <= 0 {
		config.MaxChars = DefaultWikipediaConfig().MaxChars
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultWikipediaConfig().Timeout
	}
	return &WikipediaClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type wikiExtractResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

// Search finds matching articles and returns their plain-text introductions.
func (c *WikipediaClient) Search(ctx context.Context, query string) ([]WikipediaArticle, error) {
	titles, err := c.searchTitles(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		return nil, nil
	}

	articles := make([]WikipediaArticle, 0, len(titles))
	for _, title := range titles {
		extract, err := c.fetchExtract(ctx, title)
		if err != nil {
			c.logger.Warn("wikipedia extract failed",
				zap.String("title", title), zap.Error(err))
			continue
		}
		if len(extract) > c.config.MaxChars {
			extract = extract[:c.config.MaxChars]
		}
		articles = append(articles, WikipediaArticle{Title: title, Summary: extract})
	}

	c.logger.Info("wikipedia search completed",
		zap.String("query", query), zap.Int("results", len(articles)))
	return articles, nil
}

func (c *WikipediaClient) searchTitles(ctx context.Context, query string) ([]string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {fmt.Sprintf("%d", c.config.MaxResults)},
		"format":   {"json"},
	}

	body, err := c.doRequest(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("wikipedia search failed: %w", err)
	}

	var resp wikiSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse wikipedia search response: %w", err)
	}

	titles := make([]string, 0, len(resp.Query.Search))
	for _, hit := range resp.Query.Search {
		titles = append(titles, hit.Title)
	}
	return titles, nil
}

func (c *WikipediaClient) fetchExtract(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"titles":      {title},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"format":      {"json"},
	}

	body, err := c.doRequest(ctx, params)
	if err != nil {
		return "", err
	}

	var resp wikiExtractResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse wikipedia extract response: %w", err)
	}

	for _, page := range resp.Query.Pages {
		if page.Extract != "" {
			return strings.TrimSpace(page.Extract), nil
		}
	}
	return "", fmt.Errorf("no extract for %q", title)
}

func (c *WikipediaClient) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	requestURL := fmt.Sprintf("%s?%s", c.config.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

type wikipediaArgs struct {
	Query string `json:"query"`
}

type wikipediaResponse struct {
	Query   string             `json:"query"`
	Results []WikipediaArticle `json:"results"`
}

// NewWikipediaTool wraps a WikipediaClient as a registered tool.
func NewWikipediaTool(client *WikipediaClient, logger *zap.Logger) (Func, Metadata) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fn := func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var params wikipediaArgs
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("invalid wikipedia arguments: %w", err)
		}
		if params.Query == "" {
			return nil, fmt.Errorf("query is required")
		}

		articles, err := client.Search(ctx, params.Query)
		if err != nil {
			return nil, err
		}

		out, err := json.Marshal(wikipediaResponse{Query: params.Query, Results: articles})
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	meta := Metadata{
		Schema: llm.ToolSchema{
			Name:        WikipediaName,
			Description: "Look up facts on Wikipedia. Returns article titles and plain-text introductions.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Search query"}
				},
				"required": ["query"]
			}`),
		},
		Timeout: 20 * time.Second,
		RateLimit: &RateLimit{
			MaxCalls: 30,
			Window:   time.Minute,
		},
	}
	return fn, meta
}
