package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/azyu/chapterstudio/internal/llm"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// geminiLimits is searched in order, so longer prefixes come first.
var geminiLimits = []struct {
	prefix string
	limits llm.Limits
}{
	{"gemini-2.0-flash-lite", llm.Limits{Context: 1048576, Output: 8192}},
	{"gemini-2.0-flash", llm.Limits{Context: 1048576, Output: 8192}},
	{"gemini-2.5-pro", llm.Limits{Context: 1048576, Output: 65536}},
	{"gemini-2.5-flash", llm.Limits{Context: 1048576, Output: 65536}},
}

var fallbackGeminiLimits = llm.Limits{Context: 128000, Output: 8192}

// Chapters are fiction with violence in them; the default filters block
// too much of it.
var proseSafety = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
}

// GeminiAdapter completes prompts with Google's Gemini API.
type GeminiAdapter struct {
	client *genai.Client
	model  string
}

// NewGeminiAdapter returns an adapter for model, or DefaultGeminiModel when
// model is empty.
func NewGeminiAdapter(ctx context.Context, apiKey, model string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", llm.ErrInvalidAPIKey)
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &GeminiAdapter{client: client, model: model}, nil
}

// Complete implements llm.Provider.
func (a *GeminiAdapter) Complete(ctx context.Context, p llm.Prompt) (*llm.Completion, error) {
	contents := []*genai.Content{genai.NewContentFromText(p.User, genai.RoleUser)}
	result, err := a.client.Models.GenerateContent(ctx, a.model, contents, geminiConfig(p))
	if err != nil {
		return nil, geminiError(err)
	}

	c, err := geminiCompletion(result)
	if err != nil {
		return nil, err
	}
	c.Model = a.model
	return c, nil
}

// Limits implements llm.Provider.
func (a *GeminiAdapter) Limits() llm.Limits {
	for _, entry := range geminiLimits {
		if strings.HasPrefix(a.model, entry.prefix) {
			return entry.limits
		}
	}
	return fallbackGeminiLimits
}

// Close implements llm.Provider. The genai client holds nothing to release.
func (a *GeminiAdapter) Close() error { return nil }

// ModelName returns the configured model.
func (a *GeminiAdapter) ModelName() string { return a.model }

func geminiConfig(p llm.Prompt) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SafetySettings: proseSafety,
		StopSequences:  p.Stop,
	}
	if p.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}
	if p.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(p.MaxTokens)
	}
	if p.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(p.Temperature))
	}
	return cfg
}

func geminiCompletion(result *genai.GenerateContentResponse) (*llm.Completion, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates in response", llm.ErrAPIError)
	}

	candidate := result.Candidates[0]
	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			text.WriteString(part.Text)
		}
	}

	c := &llm.Completion{Text: text.String(), Finish: geminiFinish(candidate.FinishReason)}
	if u := result.UsageMetadata; u != nil {
		c.PromptTokens = int(u.PromptTokenCount)
		c.OutputTokens = int(u.CandidatesTokenCount)
	}
	return c, nil
}

func geminiFinish(reason genai.FinishReason) llm.Finish {
	switch reason {
	case genai.FinishReasonStop:
		return llm.FinishStop
	case genai.FinishReasonMaxTokens:
		return llm.FinishLength
	case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonBlocklist:
		return llm.FinishFiltered
	default:
		return llm.Finish(reason)
	}
}

// geminiError classifies genai errors, which carry no typed status, by
// their text.
func geminiError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "API key"):
		return fmt.Errorf("%w: %s", llm.ErrInvalidAPIKey, msg)
	case strings.Contains(msg, "not found") || strings.Contains(msg, "404"):
		return fmt.Errorf("%w: %s", llm.ErrModelNotFound, msg)
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return fmt.Errorf("%w: %s", llm.ErrRateLimited, msg)
	case strings.Contains(msg, "context") && strings.Contains(msg, "token"):
		return fmt.Errorf("%w: %s", llm.ErrContextTooLong, msg)
	default:
		return fmt.Errorf("%w: %s", llm.ErrAPIError, msg)
	}
}

var _ llm.Provider = (*GeminiAdapter)(nil)
