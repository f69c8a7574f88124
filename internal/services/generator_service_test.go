package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// completionsServer serves a canned chat-completions response and captures
// the request for assertions.
func completionsServer(t *testing.T, status int, payload any) (*httptest.Server, *http.Request, *[]byte) {
	t.Helper()
	var captured http.Request
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = *r
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured, &body
}

func completion(text string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": text}},
		},
	}
}

func TestGenerate_MissingAPIKeyFailsFast(t *testing.T) {
	g := &GeneratorService{}
	_, err := g.Generate(context.Background(), "rain")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestGenerate_Success(t *testing.T) {
	srv, req, body := completionsServer(t, http.StatusOK, completion("  line one\nline two\nline three  "))

	g := &GeneratorService{APIKey: "sk-test", BaseURL: srv.URL}
	got, err := g.Generate(context.Background(), "ocean waves")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "line one\nline two\nline three" {
		t.Fatalf("completion not trimmed: %q", got)
	}

	if req.URL.Path != "/chat/completions" {
		t.Fatalf("wrong path: %s", req.URL.Path)
	}
	if auth := req.Header.Get("Authorization"); auth != "Bearer sk-test" {
		t.Fatalf("wrong auth header: %q", auth)
	}
	var sent chatRequest
	if err := json.Unmarshal(*body, &sent); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if sent.Model != defaultModel {
		t.Fatalf("model = %q, want %q", sent.Model, defaultModel)
	}
	if len(sent.Messages) != 1 || !strings.Contains(sent.Messages[0].Content, "Ocean Waves") {
		t.Fatalf("prompt missing title-cased subject: %+v", sent.Messages)
	}
}

func TestGenerate_EmptySubjectUsesDefault(t *testing.T) {
	srv, _, body := completionsServer(t, http.StatusOK, completion("a\nb\nc"))

	g := &GeneratorService{APIKey: "sk-test", BaseURL: srv.URL}
	if _, err := g.Generate(context.Background(), "   "); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var sent chatRequest
	if err := json.Unmarshal(*body, &sent); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if !strings.Contains(sent.Messages[0].Content, "Quiet Mornings") {
		t.Fatalf("default subject not applied: %q", sent.Messages[0].Content)
	}
}

func TestGenerate_UpstreamErrorWrapped(t *testing.T) {
	srv, _, _ := completionsServer(t, http.StatusTooManyRequests, map[string]any{
		"error": map[string]any{"message": "rate limit exceeded"},
	})

	g := &GeneratorService{APIKey: "sk-test", BaseURL: srv.URL}
	_, err := g.Generate(context.Background(), "rain")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "rate limit exceeded") {
		t.Fatalf("upstream message lost: %v", err)
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	srv, _, _ := completionsServer(t, http.StatusOK, map[string]any{"choices": []any{}})

	g := &GeneratorService{APIKey: "sk-test", BaseURL: srv.URL}
	_, err := g.Generate(context.Background(), "rain")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerate_EmptyCompletion(t *testing.T) {
	srv, _, _ := completionsServer(t, http.StatusOK, completion("   "))

	g := &GeneratorService{APIKey: "sk-test", BaseURL: srv.URL}
	_, err := g.Generate(context.Background(), "rain")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestBuildPrompt_TitleCasesSubject(t *testing.T) {
	g := &GeneratorService{}
	p := g.BuildPrompt("  cherry blossoms  ")
	if !strings.Contains(p, "Cherry Blossoms") {
		t.Fatalf("subject not title-cased: %q", p)
	}
	if !strings.Contains(p, "5-7-5") {
		t.Fatalf("prompt lost the form constraint: %q", p)
	}
}
