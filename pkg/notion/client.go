// Package notion is a small client for the Notion REST API. It serves block
// children to the flattener and page/database metadata to the collectors.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dtnitsch/notion-corpus/models"
)

// MaxPageSize is the largest page size the API accepts.
const MaxPageSize = 100

// Config configures the client.
type Config struct {
	APIKey     string
	BaseURL    string        // Default: https://api.notion.com
	Version    string        // Notion-Version header. Default: 2022-06-28
	Timeout    time.Duration // HTTP timeout. Default: 10s
	MaxRetries int           // retries on 429. Default: 3
	HTTPClient *http.Client
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.notion.com"
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if c.Version == "" {
		c.Version = "2022-06-28"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
}

// Client talks to the Notion API with a bearer token.
type Client struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Client. The API key is required.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("notion API key is not set; set NOTION_SECRET_KEY or --notion-key")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.defaults()
	return &Client{cfg: cfg, logger: logger}, nil
}

// GetChildren returns one page of the children of blockID. An empty cursor
// requests the first page.
func (c *Client) GetChildren(ctx context.Context, blockID string, pageSize int, cursor string) (models.BlockPage, error) {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	query := url.Values{}
	query.Set("page_size", strconv.Itoa(pageSize))
	if cursor != "" {
		query.Set("start_cursor", cursor)
	}

	data, err := c.do(ctx, http.MethodGet, "/v1/blocks/"+url.PathEscape(blockID)+"/children", query, nil)
	if err != nil {
		return models.BlockPage{}, fmt.Errorf("children of %s: %w", blockID, err)
	}
	page, err := decodeBlockPage(data, c.logger.With("block_id", blockID))
	if err != nil {
		return models.BlockPage{}, fmt.Errorf("children of %s: %w", blockID, err)
	}
	return page, nil
}

// GetPage returns the metadata of a single page.
func (c *Client) GetPage(ctx context.Context, pageID string) (models.DocumentMetadata, error) {
	data, err := c.do(ctx, http.MethodGet, "/v1/pages/"+url.PathEscape(pageID), nil, nil)
	if err != nil {
		return models.DocumentMetadata{}, fmt.Errorf("page %s: %w", pageID, err)
	}
	return decodePage(data)
}

// GetDatabase returns the metadata of a database itself.
func (c *Client) GetDatabase(ctx context.Context, databaseID string) (models.DocumentMetadata, error) {
	data, err := c.do(ctx, http.MethodGet, "/v1/databases/"+url.PathEscape(databaseID), nil, nil)
	if err != nil {
		return models.DocumentMetadata{}, fmt.Errorf("database %s: %w", databaseID, err)
	}
	return decodeDatabase(data)
}

// QueryDatabase returns the metadata of every page in a database, following
// pagination. filter is an optional raw JSON filter object. Each record
// carries the database metadata as its parent.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, filter json.RawMessage) ([]models.DocumentMetadata, error) {
	parent, err := c.GetDatabase(ctx, databaseID)
	if err != nil {
		return nil, err
	}

	var out []models.DocumentMetadata
	cursor := ""
	for {
		body := map[string]any{"page_size": MaxPageSize}
		if cursor != "" {
			body["start_cursor"] = cursor
		}
		if len(filter) > 0 {
			body["filter"] = filter
		}

		data, err := c.do(ctx, http.MethodPost, "/v1/databases/"+url.PathEscape(databaseID)+"/query", nil, body)
		if err != nil {
			return nil, fmt.Errorf("query database %s: %w", databaseID, err)
		}
		var list listResponse
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("query database %s: %w: %v", databaseID, models.ErrMalformedResponse, err)
		}
		for _, raw := range list.Results {
			meta, err := decodePage(raw)
			if err != nil {
				return nil, fmt.Errorf("query database %s: %w", databaseID, err)
			}
			p := parent.Clone()
			meta.Parent = &p
			out = append(out, meta)
		}

		cursor = list.cursor()
		if cursor == "" {
			break
		}
	}

	c.logger.Info("Queried Notion database", "database_id", databaseID, "pages", len(out))
	return out, nil
}

// do performs one API call and returns the response body. Rate-limited calls
// are retried; every other failure is returned as ErrSourceUnavailable.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		req.Header.Set("Notion-Version", c.cfg.Version)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.cfg.HTTPClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", models.ErrSourceUnavailable, ctx.Err())
			}
			return nil, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.cfg.MaxRetries {
			wait := retryAfter(resp.Header.Get("Retry-After"))
			c.logger.Warn("Notion rate limit hit, retrying", "path", path, "attempt", attempt+1, "wait", wait)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", models.ErrSourceUnavailable, ctx.Err())
			case <-time.After(wait):
			}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: status code %d, response: %s", models.ErrSourceUnavailable, resp.StatusCode, excerpt(data))
		}
		if readErr != nil {
			return nil, fmt.Errorf("%w: read body: %v", models.ErrSourceUnavailable, readErr)
		}
		return data, nil
	}
}

func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs <= 0 {
		return time.Second
	}
	if secs > 30 {
		secs = 30
	}
	return time.Duration(secs) * time.Second
}

func excerpt(data []byte) string {
	const max = 512
	s := strings.TrimSpace(string(data))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
