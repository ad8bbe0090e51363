// Package types provides shared data models for chapterstudio.
package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a required field that is missing or malformed
// before a record is submitted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func requireField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "must not be blank"}
	}
	return nil
}

// GenerationRequest is what the writer asks the backend to continue.
type GenerationRequest struct {
	Summary     string `json:"summary" yaml:"summary"`
	Tone        string `json:"tone" yaml:"tone"`
	POV         string `json:"pov" yaml:"pov"`
	WordCount   string `json:"word_count" yaml:"word_count"`
	MustInclude string `json:"must_include" yaml:"must_include"`
}

// Validate checks the fields the backend cannot generate without.
func (r GenerationRequest) Validate() error {
	return requireField("summary", r.Summary)
}

// ChapterResponse is returned by generation and by chapter retrieval.
// SelectedVariant and EditedText are only filled by retrieval.
type ChapterResponse struct {
	ID              string   `json:"id"`
	Variants        []string `json:"variants"`
	SelectedVariant string   `json:"selected_variant,omitempty"`
	EditedText      string   `json:"edited_text,omitempty"`
}

// FinalText returns the edited text when one was saved, falling back to the
// selected variant.
func (c ChapterResponse) FinalText() string {
	if c.EditedText != "" {
		return c.EditedText
	}
	return c.SelectedVariant
}

// ChapterMeta is the catalog view of a chapter; variant bodies are omitted.
type ChapterMeta struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Tone    string `json:"tone"`
	POV     string `json:"pov"`
}

// SearchHit is one full-text search match. SourceType is "chapter",
// "character", "event" or "term".
type SearchHit struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet"`
	Matches    int    `json:"matches"`
}

// SelectVariantRequest records the writer's choice against a chapter.
type SelectVariantRequest struct {
	ChapterID   string `json:"chapter_id"`
	VariantText string `json:"variant_text"`
}

// EditVariantRequest persists the edited text of a chapter.
type EditVariantRequest struct {
	ChapterID  string `json:"chapter_id"`
	EditedText string `json:"edited_text"`
}

// MessageResponse is the acknowledgement body of mutating endpoints.
type MessageResponse struct {
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Character is a member of the story's cast.
type Character struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Notes string `json:"notes"`
}

func (c Character) RecordID() string { return c.ID }

func (c Character) Validate() error { return requireField("name", c.Name) }

// TimelineEvent is a point on the story's timeline. Timestamp is free-form
// and never parsed.
type TimelineEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
}

func (e TimelineEvent) RecordID() string { return e.ID }

func (e TimelineEvent) Validate() error { return requireField("title", e.Title) }

// GlossaryTerm is a lore term that is detected inside generated text.
type GlossaryTerm struct {
	ID      string `json:"id"`
	Term    string `json:"term"`
	Meaning string `json:"meaning"`
}

func (g GlossaryTerm) RecordID() string { return g.ID }

func (g GlossaryTerm) Validate() error { return requireField("term", g.Term) }

// GlobalConfig is the user-wide configuration at ~/.config/chapterstudio/config.yaml.
type GlobalConfig struct {
	Version   int                        `yaml:"version"`
	Backend   BackendConfig              `yaml:"backend"`
	Server    ServerConfig               `yaml:"server"`
	Providers map[string]*ProviderConfig `yaml:"providers"`
	Defaults  DefaultsConfig             `yaml:"defaults"`
	Logging   LoggingConfig              `yaml:"logging"`
}

// BackendConfig locates the backend the client talks to.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig controls the reference backend started by `serve`.
type ServerConfig struct {
	Addr   string `yaml:"addr"`
	DBPath string `yaml:"db_path"`
}

// ProviderConfig holds API configuration for an LLM provider.
type ProviderConfig struct {
	APIKey       string `yaml:"api_key"`
	DefaultModel string `yaml:"default_model"`
	BaseURL      string `yaml:"base_url,omitempty"`
}

// DefaultsConfig specifies default settings.
type DefaultsConfig struct {
	Provider string `yaml:"provider"`
}

// LoggingConfig specifies logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// DefaultGlobalConfig returns a new GlobalConfig with sensible defaults.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Version: 1,
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 180 * time.Second,
		},
		Server: ServerConfig{
			Addr:   ":8000",
			DBPath: "book_writer.db",
		},
		Providers: make(map[string]*ProviderConfig),
		Defaults: DefaultsConfig{
			Provider: "openai",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
