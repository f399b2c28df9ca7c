// Package services – ResponseOrchestrator
//
// This file implements the orchestration of a single AI reply: assembling
// the rolling context window from prior messages, calling the inference
// client, and mapping every outcome (success, degraded, or failed) onto a
// reply that the pipeline always persists. The orchestrator never returns an
// error to its caller: an unreachable or misbehaving inference server
// produces a failed reply carrying a user-facing fallback text, so a turn
// that reached this stage always ends with an AI message in the database.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nkaralis/go-chat-portal/internal/domain"
	"github.com/nkaralis/go-chat-portal/internal/llm"
)

// Reply is the fully mapped outcome of one orchestration: the text to store,
// the delivery status, and the AI metadata recorded on the message.
type Reply struct {
	Content        string
	Status         string // delivered|failed
	ErrorMessage   *string
	ModelUsed      *string
	ResponseTimeMs *int64
	TokenCount     *int
}

// Failed reports whether the reply carries a fallback instead of model output.
func (r *Reply) Failed() bool { return r.Status == domain.StatusFailed }

// ResponseOrchestrator builds completion requests against the configured
// inference client and maps results and errors onto persistable replies.
type ResponseOrchestrator struct {
	Client llm.Client

	// BaseURL appears in the connection-failure fallback text so users can
	// tell which server was unreachable.
	BaseURL string

	Model         string
	Temperature   float64
	MaxTokens     int
	TopP          float64
	Timeout       time.Duration
	ContextWindow int
}

// GenerateReply sends the user's text plus the rolling context window to the
// model and returns the mapped reply. history must be the prior messages of
// the conversation in chronological order; only the last ContextWindow of
// them are sent. The request is bounded by the configured timeout regardless
// of the caller's context.
func (o *ResponseOrchestrator) GenerateReply(ctx context.Context, history []domain.Message, userText string) Reply {
	tr := otel.Tracer("services/ResponseOrchestrator")
	ctx, span := tr.Start(ctx, "GenerateReply",
		trace.WithAttributes(
			attribute.Int("context.messages", len(history)),
		),
	)
	defer span.End()

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := o.Client.Complete(ctx, &llm.CompletionRequest{
		Model:       o.Model,
		Messages:    o.buildMessages(history, userText),
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
		TopP:        o.TopP,
	})
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		if llm.KindOf(err) == llm.KindEmptyResponse {
			return o.degradedReply(elapsed)
		}
		return o.failedReply(err, elapsed)
	}

	ms := resp.LatencyMs
	if ms == 0 {
		ms = elapsed
	}
	model := resp.Model
	if model == "" {
		model = o.Model
	}
	tokens := resp.TokensOut

	return Reply{
		Content:        resp.Content,
		Status:         domain.StatusDelivered,
		ModelUsed:      &model,
		ResponseTimeMs: &ms,
		TokenCount:     &tokens,
	}
}

// buildMessages assembles the wire payload: the last ContextWindow prior
// messages oldest-first, followed by the new user text. User-authored
// messages map to role "user"; everything else (AI, system) maps to
// "assistant" so the model sees a strict alternation-friendly transcript.
func (o *ResponseOrchestrator) buildMessages(history []domain.Message, userText string) []llm.ChatMessage {
	window := history
	if o.ContextWindow >= 0 && len(window) > o.ContextWindow {
		window = window[len(window)-o.ContextWindow:]
	}

	out := make([]llm.ChatMessage, 0, len(window)+1)
	for _, m := range window {
		role := llm.RoleAssistant
		if m.IsUserMessage() {
			role = llm.RoleUser
		}
		out = append(out, llm.ChatMessage{Role: role, Content: m.Content})
	}
	return append(out, llm.ChatMessage{Role: llm.RoleUser, Content: userText})
}

// degradedReply handles a well-formed completion that carried no usable
// text. The turn still succeeds: the fallback text is stored as a delivered
// reply with no error recorded.
func (o *ResponseOrchestrator) degradedReply(elapsedMs int64) Reply {
	model := o.Model
	return Reply{
		Content:        "Sorry, I couldn't generate a response. Please try again.",
		Status:         domain.StatusDelivered,
		ModelUsed:      &model,
		ResponseTimeMs: &elapsedMs,
	}
}

// failedReply maps a completion error onto the user-facing fallback text for
// its category. Every branch yields status "failed" with the raw error
// preserved in ErrorMessage for diagnostics.
func (o *ResponseOrchestrator) failedReply(err error, elapsedMs int64) Reply {
	var content string
	switch llm.KindOf(err) {
	case llm.KindBadRequest:
		content = "Error: Invalid request to AI service. Please try again."
	case llm.KindServerError:
		content = "Error: AI service is experiencing issues. Please try again."
	case llm.KindConnRefused:
		content = fmt.Sprintf("Cannot connect to AI service. Is the inference server running at %s?", o.BaseURL)
	case llm.KindTimeout:
		content = fmt.Sprintf("AI service is slow. Please wait and try again (timeout after %ds)", int(o.Timeout.Seconds()))
	default:
		content = fmt.Sprintf("Error: Request failed - %v", err)
	}

	msg := strings.TrimSpace(err.Error())
	model := o.Model
	return Reply{
		Content:        content,
		Status:         domain.StatusFailed,
		ErrorMessage:   &msg,
		ModelUsed:      &model,
		ResponseTimeMs: &elapsedMs,
	}
}
