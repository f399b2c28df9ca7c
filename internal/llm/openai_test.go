package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// completionsHandler returns a handler serving /v1/chat/completions with a
// canned reply.
func completionsHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var body struct {
			Model    string        `json:"model"`
			Messages []ChatMessage `json:"messages"`
			Stream   bool          `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Stream {
			t.Error("stream must be false")
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "chatcmpl-test",
			"model": body.Model,
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19},
		})
	}
}

func errorHandler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "boom", "type": "server_error"},
		})
	}
}

func newClient(t *testing.T, baseURL string, timeout time.Duration) *OpenAIClient {
	t.Helper()
	c, err := NewOpenAIClient(baseURL, "", "local-model", timeout)
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}
	return c
}

func TestOpenAIClient_Complete(t *testing.T) {
	srv := httptest.NewServer(completionsHandler(t, "  Hello there.  "))
	defer srv.Close()

	c := newClient(t, srv.URL, 5*time.Second)
	resp, err := c.Complete(context.Background(), &CompletionRequest{
		Messages:    []ChatMessage{{Role: RoleUser, Content: "hi"}},
		MaxTokens:   200,
		Temperature: 0.7,
		TopP:        0.9,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "Hello there." {
		t.Errorf("Content = %q; want trimmed %q", resp.Content, "Hello there.")
	}
	if resp.TokensIn != 12 || resp.TokensOut != 7 {
		t.Errorf("usage = %d/%d; want 12/7", resp.TokensIn, resp.TokensOut)
	}
	if resp.StopReason != "stop" {
		t.Errorf("StopReason = %q; want stop", resp.StopReason)
	}
	if resp.Model != "local-model" {
		t.Errorf("Model = %q; want local-model (default applied)", resp.Model)
	}
}

func TestOpenAIClient_EmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(completionsHandler(t, "   "))
	defer srv.Close()

	c := newClient(t, srv.URL, 5*time.Second)
	_, err := c.Complete(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("err = %v; want ErrEmptyCompletion", err)
	}
	if KindOf(err) != KindEmptyResponse {
		t.Errorf("KindOf = %v; want KindEmptyResponse", KindOf(err))
	}
}

func TestOpenAIClient_ErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   ErrorKind
	}{
		{"bad request", http.StatusBadRequest, KindBadRequest},
		{"internal error", http.StatusInternalServerError, KindServerError},
		{"bad gateway", http.StatusBadGateway, KindServerError},
		{"rate limited is other", http.StatusTooManyRequests, KindOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(errorHandler(tc.status))
			defer srv.Close()

			c := newClient(t, srv.URL, 5*time.Second)
			_, err := c.Complete(context.Background(), &CompletionRequest{
				Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := KindOf(err); got != tc.want {
				t.Errorf("KindOf = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestOpenAIClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newClient(t, url, 2*time.Second)
	_, err := c.Complete(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := KindOf(err); got != KindConnRefused {
		t.Errorf("KindOf = %v; want KindConnRefused", got)
	}
}

func TestOpenAIClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Complete(ctx, &CompletionRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := KindOf(err); got != KindTimeout {
		t.Errorf("KindOf = %v; want KindTimeout", got)
	}
}

func TestOpenAIClient_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float64{0.1, 0.2, 0.3}},
			},
			"model": "text-embedding-3-small",
			"usage": map[string]int{"prompt_tokens": 3, "total_tokens": 3},
		})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, 5*time.Second)
	vec, err := c.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("len(vec) = %d; want 3", len(vec))
	}
	if vec[0] < 0.09 || vec[0] > 0.11 {
		t.Errorf("vec[0] = %v; want ~0.1", vec[0])
	}
}

func TestNewOpenAIClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewOpenAIClient("", "", "m", time.Second); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}
