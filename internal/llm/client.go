// Package llm provides the client used to talk to the OpenAI-compatible
// inference server that generates assistant responses, plus the error
// classification the response orchestrator builds its fallback texts from.
package llm

import (
	"context"
	"errors"
)

// Chat roles on the completion wire format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of conversation context sent to the model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest represents a chat completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// CompletionResponse represents a chat completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// ErrEmptyCompletion is returned when the server answered 2xx but the body
// carried no usable assistant text.
var ErrEmptyCompletion = errors.New("completion response contained no content")

// Client is the interface the response orchestrator depends on.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// ErrorKind buckets a Complete error into the categories the orchestrator
// turns into user-facing fallback responses.
type ErrorKind int

const (
	// KindOther covers anything not matched below.
	KindOther ErrorKind = iota

	// KindBadRequest is an HTTP 400 from the inference server.
	KindBadRequest

	// KindServerError is an HTTP 5xx from the inference server.
	KindServerError

	// KindConnRefused means the server could not be reached at all.
	KindConnRefused

	// KindTimeout means the request exceeded its deadline.
	KindTimeout

	// KindEmptyResponse is a 2xx reply with no assistant text.
	KindEmptyResponse
)
