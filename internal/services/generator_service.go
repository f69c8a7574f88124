// Package services – GeneratorService
//
// This file implements GeneratorService, which turns a subject into a
// three-line 5-7-5 haiku by calling an OpenAI-compatible chat-completions
// endpoint. The storage side of the system never depends on it; the POST
// handler composes the two.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// DefaultSubject is used when a generation request names no subject.
	DefaultSubject = "quiet mornings"

	defaultModel   = "gpt-4.1-mini"
	defaultBaseURL = "https://api.openai.com/v1"

	promptTemplate = "Write an English haiku (three lines, 5-7-5 syllable pattern) " +
		"about the following subject: %s. " +
		"Return the haiku as three lines, each line on its own line."
)

// GeneratorService requests haikus from a chat-completions API.
type GeneratorService struct {
	// APIKey authenticates against the API. Empty means generation is not
	// configured; Generate fails fast with ErrMissingAPIKey.
	APIKey string
	// Model overrides the default model name.
	Model string
	// BaseURL overrides the API base URL (no trailing slash). Useful for
	// tests and self-hosted compatible endpoints.
	BaseURL string
	// HTTPClient overrides the default client (30s timeout).
	HTTPClient *http.Client

	// PromptLocale controls the casing applied to the subject inside the
	// prompt. Defaults to English title casing.
	PromptLocale language.Tag
}

// chat-completions wire types; only the fields this service reads or writes.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// BuildPrompt returns the haiku prompt for the given subject. The subject is
// title-cased for the model; storage keeps the caller's original casing.
func (g *GeneratorService) BuildPrompt(subject string) string {
	caser := cases.Title(g.promptLocale())
	return fmt.Sprintf(promptTemplate, caser.String(strings.TrimSpace(subject)))
}

// Generate requests a haiku about subject and returns the poem text.
// An empty subject falls back to DefaultSubject. Upstream failures are
// wrapped in ErrGenerationFailed so callers can branch on one sentinel.
func (g *GeneratorService) Generate(ctx context.Context, subject string) (string, error) {
	if strings.TrimSpace(g.APIKey) == "" {
		return "", ErrMissingAPIKey
	}
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}

	body, err := json.Marshal(chatRequest{
		Model:    g.model(),
		Messages: []chatMessage{{Role: "user", Content: g.BuildPrompt(subject)}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL()+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+g.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	// Cap the response read; a haiku is three short lines.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: status %d: %v", ErrGenerationFailed, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrGenerationFailed, resp.StatusCode, msg)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrGenerationFailed)
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}
	return text, nil
}

func (g *GeneratorService) model() string {
	if g.Model != "" {
		return g.Model
	}
	return defaultModel
}

func (g *GeneratorService) baseURL() string {
	if g.BaseURL != "" {
		return strings.TrimRight(g.BaseURL, "/")
	}
	return defaultBaseURL
}

func (g *GeneratorService) client() *http.Client {
	if g.HTTPClient != nil {
		return g.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (g *GeneratorService) promptLocale() language.Tag {
	if g.PromptLocale == language.Und {
		return language.English
	}
	return g.PromptLocale
}
