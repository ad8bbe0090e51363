// Package backend is the HTTP client for the chapter generation and record
// store backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/azyu/chapterstudio/pkg/types"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is where the reference backend listens.
	DefaultBaseURL = "http://localhost:8000"

	// Generation waits on an LLM, so the default timeout is generous.
	defaultTimeout = 180 * time.Second

	// maxErrorBody bounds how much of an error body is kept as detail.
	maxErrorBody = 512
)

// Collection names shared by the client and the reference server.
const (
	CollectionCharacters = "characters"
	CollectionTimeline   = "timeline"
	CollectionGlossary   = "glossary"
)

// Client talks to the backend over JSON/HTTP. It is safe for concurrent use.
type Client struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets a custom timeout for requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		client:  &http.Client{Timeout: defaultTimeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Generate asks the backend for new chapter variants.
func (c *Client) Generate(ctx context.Context, req types.GenerationRequest) (*types.ChapterResponse, error) {
	var resp types.ChapterResponse
	if err := c.do(ctx, "generate", http.MethodPost, "/generate", req, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, &TransportError{Op: "generate", URL: c.baseURL + "/generate", Err: errors.New("response has no chapter id")}
	}
	return &resp, nil
}

// SelectVariant records which variant the writer picked.
func (c *Client) SelectVariant(ctx context.Context, chapterID, text string) error {
	body := types.SelectVariantRequest{ChapterID: chapterID, VariantText: text}
	return c.do(ctx, "select", http.MethodPost, "/select", body, nil)
}

// SaveDraft persists the edited text of a chapter.
func (c *Client) SaveDraft(ctx context.Context, chapterID, text string) error {
	body := types.EditVariantRequest{ChapterID: chapterID, EditedText: text}
	return c.do(ctx, "save draft", http.MethodPost, "/edit", body, nil)
}

// Chapter fetches a previously generated chapter by id.
func (c *Client) Chapter(ctx context.Context, id string) (*types.ChapterResponse, error) {
	var resp types.ChapterResponse
	if err := c.do(ctx, "load chapter", http.MethodGet, "/chapter/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		resp.ID = id
	}
	return &resp, nil
}

// Chapters lists chapter metadata, newest first.
func (c *Client) Chapters(ctx context.Context) ([]types.ChapterMeta, error) {
	var metas []types.ChapterMeta
	if err := c.do(ctx, "list chapters", http.MethodGet, "/all", nil, &metas); err != nil {
		return nil, err
	}
	return metas, nil
}

// Search runs a full-text query over chapters and story records.
// sourceType and limit may be left zero.
func (c *Client) Search(ctx context.Context, query, sourceType string, limit int) ([]types.SearchHit, error) {
	params := url.Values{"q": {query}}
	if sourceType != "" {
		params.Set("type", sourceType)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var hits []types.SearchHit
	if err := c.do(ctx, "search", http.MethodGet, "/search?"+params.Encode(), nil, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// Reindex rebuilds the backend's search index and returns its size.
func (c *Client) Reindex(ctx context.Context) (int, error) {
	var resp struct {
		Entries int `json:"entries"`
	}
	if err := c.do(ctx, "reindex", http.MethodPost, "/search/reindex", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Entries, nil
}

// Characters returns the character collection.
func (c *Client) Characters() *Collection[types.Character] {
	return NewCollection[types.Character](c, CollectionCharacters)
}

// Timeline returns the timeline event collection.
func (c *Client) Timeline() *Collection[types.TimelineEvent] {
	return NewCollection[types.TimelineEvent](c, CollectionTimeline)
}

// Glossary returns the glossary collection.
func (c *Client) Glossary() *Collection[types.GlossaryTerm] {
	return NewCollection[types.GlossaryTerm](c, CollectionGlossary)
}

// do performs one JSON round trip. A nil out discards the response body.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	endpoint := c.baseURL + path

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed",
			zap.String("op", op), zap.String("url", endpoint), zap.Error(err))
		return &TransportError{Op: op, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{
			Op:         op,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(resp.Body),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, URL: endpoint, StatusCode: 0, Err: fmt.Errorf("malformed response: %w", err)}
	}
	return nil
}

// errorDetail extracts the backend's error message from a failed response.
func errorDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}

	var msg types.MessageResponse
	if err := json.Unmarshal(data, &msg); err == nil {
		if msg.Detail != "" {
			return msg.Detail
		}
		if msg.Message != "" {
			return msg.Message
		}
	}
	return strings.TrimSpace(string(data))
}
