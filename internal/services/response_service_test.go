package services

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nkaralis/go-chat-portal/internal/domain"
	"github.com/nkaralis/go-chat-portal/internal/llm"
)

func newTestOrchestrator(client llm.Client) *ResponseOrchestrator {
	return &ResponseOrchestrator{
		Client:        client,
		BaseURL:       "http://localhost:1234",
		Model:         "local-model",
		Temperature:   0.7,
		MaxTokens:     200,
		TopP:          0.9,
		Timeout:       120 * time.Second,
		ContextWindow: 3,
	}
}

func TestGenerateReply_Success(t *testing.T) {
	fake := &fakeLLM{responses: []*llm.CompletionResponse{{
		Content:   "Here you go.",
		Model:     "remote-model",
		TokensOut: 7,
		LatencyMs: 42,
	}}}
	o := newTestOrchestrator(fake)

	reply := o.GenerateReply(context.Background(), nil, "hello")

	if reply.Failed() {
		t.Fatalf("unexpected failure: %+v", reply)
	}
	if reply.Content != "Here you go." || reply.Status != domain.StatusDelivered {
		t.Fatalf("reply = %+v", reply)
	}
	if reply.ModelUsed == nil || *reply.ModelUsed != "remote-model" {
		t.Fatalf("ModelUsed = %v", reply.ModelUsed)
	}
	if reply.TokenCount == nil || *reply.TokenCount != 7 {
		t.Fatalf("TokenCount = %v", reply.TokenCount)
	}
	if reply.ResponseTimeMs == nil || *reply.ResponseTimeMs != 42 {
		t.Fatalf("ResponseTimeMs = %v", reply.ResponseTimeMs)
	}
	if reply.ErrorMessage != nil {
		t.Fatalf("ErrorMessage = %v", reply.ErrorMessage)
	}

	// Request parameters are passed through.
	req := fake.requests[0]
	if req.Model != "local-model" || req.MaxTokens != 200 || req.Temperature != 0.7 || req.TopP != 0.9 {
		t.Fatalf("request = %+v", req)
	}
}

func TestGenerateReply_FallbackModelName(t *testing.T) {
	fake := &fakeLLM{responses: []*llm.CompletionResponse{{Content: "hi"}}}
	o := newTestOrchestrator(fake)

	reply := o.GenerateReply(context.Background(), nil, "hello")
	if reply.ModelUsed == nil || *reply.ModelUsed != "local-model" {
		t.Fatalf("ModelUsed = %v, want configured model", reply.ModelUsed)
	}
}

func TestGenerateReply_FallbackTexts(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			"bad request",
			&openai.APIError{HTTPStatusCode: 400, Message: "bad"},
			"Error: Invalid request to AI service. Please try again.",
		},
		{
			"server error",
			&openai.APIError{HTTPStatusCode: 503, Message: "down"},
			"Error: AI service is experiencing issues. Please try again.",
		},
		{
			"connection refused",
			fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED),
			"Cannot connect to AI service. Is the inference server running at http://localhost:1234?",
		},
		{
			"timeout",
			fmt.Errorf("completion: %w", context.DeadlineExceeded),
			"AI service is slow. Please wait and try again (timeout after 120s)",
		},
		{
			"unclassified",
			errors.New("boom"),
			"Error: Request failed - boom",
		},
		{
			"rate limited maps to generic",
			&openai.APIError{HTTPStatusCode: 429, Message: "slow down"},
			"",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := newTestOrchestrator(&fakeLLM{errs: []error{tc.err}})
			reply := o.GenerateReply(context.Background(), nil, "hello")

			if !reply.Failed() {
				t.Fatalf("expected failed reply, got %+v", reply)
			}
			if tc.want != "" && reply.Content != tc.want {
				t.Fatalf("content = %q, want %q", reply.Content, tc.want)
			}
			if tc.want == "" && reply.Content == "" {
				t.Fatal("expected a non-empty fallback text")
			}
			if reply.ErrorMessage == nil || *reply.ErrorMessage == "" {
				t.Fatal("failed reply must keep the raw error")
			}
			if reply.ModelUsed == nil || *reply.ModelUsed != "local-model" {
				t.Fatalf("ModelUsed = %v", reply.ModelUsed)
			}
			if reply.ResponseTimeMs == nil {
				t.Fatal("failed reply must record elapsed time")
			}
		})
	}
}

func TestGenerateReply_EmptyCompletionDegrades(t *testing.T) {
	err := fmt.Errorf("chat completion: %w", llm.ErrEmptyCompletion)
	o := newTestOrchestrator(&fakeLLM{errs: []error{err}})

	reply := o.GenerateReply(context.Background(), nil, "hello")

	// A 2xx response with no usable text is a degraded success, not a failure.
	if reply.Status != domain.StatusDelivered {
		t.Fatalf("status = %q, want %q", reply.Status, domain.StatusDelivered)
	}
	if reply.Content != "Sorry, I couldn't generate a response. Please try again." {
		t.Fatalf("content = %q", reply.Content)
	}
	if reply.ErrorMessage != nil {
		t.Fatalf("ErrorMessage = %q, want none", *reply.ErrorMessage)
	}
	if reply.ModelUsed == nil || *reply.ModelUsed != "local-model" {
		t.Fatalf("ModelUsed = %v", reply.ModelUsed)
	}
	if reply.ResponseTimeMs == nil {
		t.Fatal("degraded reply must record elapsed time")
	}
}

func TestBuildMessages_ContextWindow(t *testing.T) {
	o := newTestOrchestrator(&fakeLLM{})

	history := []domain.Message{
		{Sender: domain.SenderUser, Content: "one"},
		{Sender: domain.SenderAI, Content: "two"},
		{Sender: domain.SenderUser, Content: "three"},
		{Sender: domain.SenderAI, Content: "four"},
		{Sender: domain.SenderSystem, Content: "five"},
	}

	msgs := o.buildMessages(history, "latest")

	// Window of 3 keeps only the tail of the history plus the new text.
	if len(msgs) != 4 {
		t.Fatalf("len = %d, want 4", len(msgs))
	}
	wantContent := []string{"three", "four", "five", "latest"}
	wantRole := []string{llm.RoleUser, llm.RoleAssistant, llm.RoleAssistant, llm.RoleUser}
	for i, m := range msgs {
		if m.Content != wantContent[i] || m.Role != wantRole[i] {
			t.Fatalf("msg[%d] = %+v, want role %s content %q", i, m, wantRole[i], wantContent[i])
		}
	}
}

func TestBuildMessages_ZeroWindow(t *testing.T) {
	o := newTestOrchestrator(&fakeLLM{})
	o.ContextWindow = 0

	history := []domain.Message{{Sender: domain.SenderUser, Content: "old"}}
	msgs := o.buildMessages(history, "fresh")

	if len(msgs) != 1 || msgs[0].Content != "fresh" || msgs[0].Role != llm.RoleUser {
		t.Fatalf("msgs = %+v, want only the new user text", msgs)
	}
}
