// Package adapters connects the llm layer to concrete model APIs.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/azyu/chapterstudio/internal/llm"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel matches the model the chapter prompt was tuned on.
const DefaultOpenAIModel = openai.GPT3Dot5Turbo

// openAILimits is searched in order, so longer prefixes come first.
var openAILimits = []struct {
	prefix string
	limits llm.Limits
}{
	{"gpt-4o-mini", llm.Limits{Context: 128000, Output: 16384, Encoding: "o200k_base"}},
	{"gpt-4o", llm.Limits{Context: 128000, Output: 16384, Encoding: "o200k_base"}},
	{"gpt-4-turbo", llm.Limits{Context: 128000, Output: 4096, Encoding: "cl100k_base"}},
	{"gpt-4", llm.Limits{Context: 8192, Output: 4096, Encoding: "cl100k_base"}},
	{"gpt-3.5-turbo", llm.Limits{Context: 16385, Output: 4096, Encoding: "cl100k_base"}},
}

// OpenAI-compatible models outside the table.
var fallbackOpenAILimits = llm.Limits{Context: 128000, Output: 4096, Encoding: "cl100k_base"}

// OpenAIAdapter completes prompts with the OpenAI chat API, or any API that
// speaks it when given a base URL.
type OpenAIAdapter struct {
	client  *openai.Client
	model   string
	retries int
	backoff time.Duration
}

// OpenAIOption configures an OpenAIAdapter.
type OpenAIOption func(*openAISettings)

type openAISettings struct {
	baseURL string
	retries int
	backoff time.Duration
}

// WithOpenAIBaseURL points the adapter at a compatible API.
func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(s *openAISettings) {
		s.baseURL = baseURL
	}
}

// WithOpenAIRetry sets how often rate limits and server errors are retried
// and the delay before the first retry. Later retries wait proportionally
// longer.
func WithOpenAIRetry(retries int, backoff time.Duration) OpenAIOption {
	return func(s *openAISettings) {
		s.retries = retries
		s.backoff = backoff
	}
}

// NewOpenAIAdapter returns an adapter for model, or DefaultOpenAIModel when
// model is empty.
func NewOpenAIAdapter(apiKey, model string, opts ...OpenAIOption) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", llm.ErrInvalidAPIKey)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	s := openAISettings{retries: 3, backoff: time.Second}
	for _, opt := range opts {
		opt(&s)
	}

	cfg := openai.DefaultConfig(apiKey)
	if s.baseURL != "" {
		cfg.BaseURL = s.baseURL
	}
	return &OpenAIAdapter{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		retries: s.retries,
		backoff: s.backoff,
	}, nil
}

// Complete implements llm.Provider.
func (a *OpenAIAdapter) Complete(ctx context.Context, p llm.Prompt) (*llm.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    openAIMessages(p),
		MaxTokens:   p.MaxTokens,
		Temperature: float32(p.Temperature),
		Stop:        p.Stop,
	}

	var err error
	for attempt := 0; attempt <= a.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(a.backoff * time.Duration(attempt)):
			}
		}

		var resp openai.ChatCompletionResponse
		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return openAICompletion(resp)
		}
		if !llm.Retryable(openAIStatus(err)) {
			return nil, openAIError(err)
		}
	}
	return nil, fmt.Errorf("gave up after %d attempts: %w", a.retries+1, openAIError(err))
}

// Limits implements llm.Provider.
func (a *OpenAIAdapter) Limits() llm.Limits {
	for _, entry := range openAILimits {
		if strings.HasPrefix(a.model, entry.prefix) {
			return entry.limits
		}
	}
	return fallbackOpenAILimits
}

// Close implements llm.Provider.
func (a *OpenAIAdapter) Close() error { return nil }

// ModelName returns the configured model.
func (a *OpenAIAdapter) ModelName() string { return a.model }

func openAIMessages(p llm.Prompt) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	if p.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.User})
}

func openAICompletion(resp openai.ChatCompletionResponse) (*llm.Completion, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", llm.ErrAPIError)
	}
	choice := resp.Choices[0]
	return &llm.Completion{
		Text:         choice.Message.Content,
		Model:        resp.Model,
		Finish:       llm.Finish(choice.FinishReason),
		PromptTokens: resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// openAIStatus digs the HTTP status out of a client error, or 0.
func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func openAIError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if code, ok := apiErr.Code.(string); ok && code == "context_length_exceeded" {
			return fmt.Errorf("%w: %s", llm.ErrContextTooLong, apiErr.Message)
		}
		return llm.FromStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}
	if status := openAIStatus(err); status != 0 {
		return llm.FromStatus(status, err.Error())
	}
	return fmt.Errorf("%w: %s", llm.ErrAPIError, err)
}

var _ llm.Provider = (*OpenAIAdapter)(nil)
