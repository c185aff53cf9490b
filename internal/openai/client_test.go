package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brolyroly007/contentforge/internal/llm"
)

func TestGenerate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"# Hello"},"finish_reason":"length"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1/", "sk-test", "gpt-4o", 5*time.Second, nil)
	res, err := c.Generate(context.Background(), llm.Request{
		Prompt:       "Write it",
		SystemPrompt: "You are a writer.",
		Temperature:  0.3,
		MaxTokens:    256,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if res.Content != "# Hello" || res.TokensUsed != 15 || res.FinishReason != "length" {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Provider != "openai" || res.Model != "gpt-4o" {
		t.Errorf("unexpected metadata: %+v", res)
	}

	if got.Model != "gpt-4o" || got.Temperature != 0.3 || got.MaxTokens != 256 || got.Stream {
		t.Errorf("unexpected request: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "Write it" {
		t.Errorf("unexpected messages: %+v", got.Messages)
	}
}

func TestGenerateWithoutSystemPromptOrUsage(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, "k", "gpt-4", time.Second, nil).Generate(context.Background(), llm.Request{Prompt: "p"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("system message should be omitted: %+v", got.Messages)
	}
	if res.TokensUsed != 0 || res.FinishReason != "stop" {
		t.Errorf("defaults not applied: %+v", res)
	}
}

func TestGenerateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided: sk-bad"}}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "sk-bad", "gpt-4o", time.Second, nil).Generate(context.Background(), llm.Request{Prompt: "p"})
	pe, ok := llm.IsProviderError(err)
	if !ok {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Type != llm.ErrorTypeAuth || pe.Code != "401" || !strings.Contains(pe.Message, "Incorrect API key") {
		t.Errorf("unexpected error: %+v", pe)
	}
}

func TestStream(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"role":"assistant"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"Hel"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"lo"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"ignored"}}]}`+"\n\n")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "gpt-4o-mini", time.Second, nil)
	var chunks []string
	for chunk, err := range c.Stream(context.Background(), llm.Request{Prompt: "p"}) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		chunks = append(chunks, chunk)
	}

	if strings.Join(chunks, "|") != "Hel|lo" {
		t.Errorf("chunks = %q", chunks)
	}
	if !got.Stream {
		t.Error("stream flag not sent")
	}
}

func TestStreamTruncated(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no finish or done", `data: {"choices":[{"delta":{"content":"Hello"}}]}` + "\n\n"},
		{"empty body", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			var errs []error
			for _, err := range NewClient(srv.URL, "k", "m", time.Second, nil).Stream(context.Background(), llm.Request{}) {
				if err != nil {
					errs = append(errs, err)
				}
			}
			if len(errs) != 1 {
				t.Fatalf("expected one error, got %v", errs)
			}
			if pe, ok := llm.IsProviderError(errs[0]); !ok || pe.Type != llm.ErrorTypeMalformed {
				t.Errorf("unexpected error: %v", errs[0])
			}
		})
	}
}

func TestStreamFinishReasonWithoutDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"Hi"},"finish_reason":"length"}]}`+"\n\n")
	}))
	defer srv.Close()

	for _, err := range NewClient(srv.URL, "k", "m", time.Second, nil).Stream(context.Background(), llm.Request{}) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
	}
}

func TestStreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"Rate limit reached"}}`)
	}))
	defer srv.Close()

	var errs []error
	for _, err := range NewClient(srv.URL, "k", "gpt-4o", time.Second, nil).Stream(context.Background(), llm.Request{}) {
		errs = append(errs, err)
	}
	if len(errs) != 1 {
		t.Fatalf("expected exactly one element, got %d", len(errs))
	}
	if pe, ok := llm.IsProviderError(errs[0]); !ok || pe.Type != llm.ErrorTypeRateLimit {
		t.Errorf("unexpected error: %v", errs[0])
	}
}

func TestStreamEarlyBreak(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 5; i++ {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"%d\"}}]}\n\n", i)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	n := 0
	for range NewClient(srv.URL, "k", "m", time.Second, nil).Stream(context.Background(), llm.Request{}) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("consumed %d chunks", n)
	}
}

func TestAvailable(t *testing.T) {
	if NewClient("", "", "gpt-4o", time.Second, nil).Available(context.Background()) {
		t.Error("no key should be unavailable")
	}
	if !NewClient("", "sk-x", "gpt-4o", time.Second, nil).Available(context.Background()) {
		t.Error("key configured should be available")
	}
}
