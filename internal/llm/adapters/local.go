package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/azyu/chapterstudio/internal/llm"
)

const (
	localTimeout     = 120 * time.Second
	localMaxTokens   = 2048
	localTemperature = 0.7

	// maxErrorBody bounds how much of an error reply is read.
	maxErrorBody = 4096
)

// Local models vary; these limits fit the common 8k builds.
var localLimits = llm.Limits{Context: 8192, Output: localMaxTokens}

// LocalAdapter completes prompts against a self-hosted server speaking the
// OpenAI chat completions protocol, such as Ollama, LM Studio or vLLM.
type LocalAdapter struct {
	client  *http.Client
	baseURL string
	model   string
}

// LocalAdapterOption configures a LocalAdapter.
type LocalAdapterOption func(*LocalAdapter)

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) LocalAdapterOption {
	return func(a *LocalAdapter) {
		a.client.Timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) LocalAdapterOption {
	return func(a *LocalAdapter) {
		a.client = client
	}
}

// NewLocalAdapter returns an adapter for the server at baseURL, for example
// "http://localhost:11434" for Ollama.
func NewLocalAdapter(baseURL, model string, opts ...LocalAdapterOption) *LocalAdapter {
	a := &LocalAdapter{
		client:  &http.Client{Timeout: localTimeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type localMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type localRequest struct {
	Model       string         `json:"model"`
	Messages    []localMessage `json:"messages"`
	MaxTokens   int            `json:"max_tokens"`
	Temperature float64        `json:"temperature"`
	Stream      bool           `json:"stream"`
	Stop        []string       `json:"stop,omitempty"`
}

type localReply struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      localMessage `json:"message"`
		FinishReason string       `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete implements llm.Provider.
func (a *LocalAdapter) Complete(ctx context.Context, p llm.Prompt) (*llm.Completion, error) {
	body, err := json.Marshal(a.request(p))
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s unreachable: %w", a.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, llm.FromStatus(resp.StatusCode, errorDetail(resp.Body))
	}

	var reply localReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", llm.ErrAPIError, err)
	}
	if len(reply.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", llm.ErrAPIError)
	}

	choice := reply.Choices[0]
	return &llm.Completion{
		Text:         choice.Message.Content,
		Model:        reply.Model,
		Finish:       llm.Finish(choice.FinishReason),
		PromptTokens: reply.Usage.PromptTokens,
		OutputTokens: reply.Usage.CompletionTokens,
	}, nil
}

// Limits implements llm.Provider.
func (a *LocalAdapter) Limits() llm.Limits { return localLimits }

// Close implements llm.Provider.
func (a *LocalAdapter) Close() error { return nil }

// ModelName returns the configured model.
func (a *LocalAdapter) ModelName() string { return a.model }

// BaseURL returns the server address without a trailing slash.
func (a *LocalAdapter) BaseURL() string { return a.baseURL }

// request fills in the defaults local servers are inconsistent about.
func (a *LocalAdapter) request(p llm.Prompt) localRequest {
	var msgs []localMessage
	if p.System != "" {
		msgs = append(msgs, localMessage{Role: "system", Content: p.System})
	}
	msgs = append(msgs, localMessage{Role: "user", Content: p.User})

	r := localRequest{
		Model:       a.model,
		Messages:    msgs,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Stop:        p.Stop,
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = localMaxTokens
	}
	if r.Temperature == 0 {
		r.Temperature = localTemperature
	}
	return r
}

// errorDetail extracts the message of an OpenAI-style error body, falling
// back to the raw text.
func errorDetail(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	var structured struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &structured) == nil && structured.Error.Message != "" {
		return structured.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

var _ llm.Provider = (*LocalAdapter)(nil)
