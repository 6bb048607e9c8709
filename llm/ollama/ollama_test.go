package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ocobra/meeting-minutes-sub000/llm"
)

func TestDialect_Registered(t *testing.T) {
	d, err := llm.GetDialect(DialectName)
	if err != nil {
		t.Fatalf("GetDialect() error: %v", err)
	}
	if d.Name() != DialectName {
		t.Errorf("Name() = %q", d.Name())
	}
}

func TestAdapter_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Model != "qwen2.5:1.5b" || req.Format != "json" || req.Stream {
			t.Errorf("unexpected request %+v", req)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("system prompt not sent first: %+v", req.Messages)
		}
		if req.Options.Temperature != 0.3 || req.Options.NumPredict != 2000 {
			t.Errorf("options = %+v", req.Options)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Model:           req.Model,
			Message:         chatMessage{Role: "assistant", Content: `{"ok":true}`},
			Done:            true,
			PromptEvalCount: 12,
			EvalCount:       3,
		})
	}))
	defer srv.Close()

	a, err := New(llm.Config{BaseURL: srv.URL, Model: "qwen2.5:1.5b"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	resp, err := a.Execute(context.Background(), llm.CompletionRequest{
		SystemPrompt: "sys",
		Messages:     []llm.Message{{Role: "user", Content: "hi"}},
		Temperature:  0.3,
		MaxTokens:    2000,
		JSON:         true,
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if resp.Content != `{"ok":true}` || resp.Usage.TotalTokens != 15 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestAdapter_IsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.Write([]byte(`{"models":[]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a, _ := New(llm.Config{BaseURL: srv.URL})
	if !a.IsAvailable(context.Background()) {
		t.Error("IsAvailable() = false")
	}
	if a.Name() != "ollama-llm" {
		t.Errorf("Name() = %q", a.Name())
	}
}
