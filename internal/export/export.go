// Package export renders a conversation transcript into portable formats.
//
// Every renderer is a pure function over ExportData: no database access, no
// clock other than the export timestamp the caller bakes in via Build. The
// supported formats are indented JSON, Markdown, and CSV.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nkaralis/go-chat-portal/internal/domain"
)

// Format identifies an export output format.
type Format string

// Supported export formats.
const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
)

// timeLayout is the timestamp format used in rendered output.
const timeLayout = "2006-01-02T15:04:05Z07:00"

// Valid reports whether f names a supported format.
func (f Format) Valid() bool {
	switch f {
	case FormatJSON, FormatMarkdown, FormatCSV:
		return true
	}
	return false
}

// ContentType returns the MIME type to serve this format with.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	}
	return "application/octet-stream"
}

// ext returns the file extension for the format, without the dot.
func (f Format) ext() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// ConversationData is the conversation header section of an export.
type ConversationData struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Summary          string  `json:"summary"`
	Topic            string  `json:"topic"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
	MessageCount     int     `json:"message_count"`
	AverageSentiment float64 `json:"average_sentiment"`
}

// MessageData is one transcript entry of an export.
type MessageData struct {
	Sender         string `json:"sender"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
	SentimentLabel string `json:"sentiment_label"`
}

// ExportData is the format-independent export payload. Build assembles it;
// the renderers consume it.
type ExportData struct {
	Conversation ConversationData `json:"conversation"`
	Messages     []MessageData    `json:"messages"`
	ExportDate   string           `json:"export_date"`
	ExportFormat Format           `json:"export_format"`
}

// Build assembles ExportData from a conversation and its (non-deleted,
// chronologically ordered) messages. now becomes the export timestamp.
func Build(conv *domain.Conversation, msgs []domain.Message, format Format, now time.Time) ExportData {
	summary := ""
	if conv.Summary != nil {
		summary = *conv.Summary
	}
	data := ExportData{
		Conversation: ConversationData{
			ID:               conv.ID,
			Title:            conv.Title,
			Summary:          summary,
			Topic:            conv.Topic,
			CreatedAt:        conv.CreatedAt.UTC().Format(timeLayout),
			UpdatedAt:        conv.UpdatedAt.UTC().Format(timeLayout),
			MessageCount:     conv.MessageCount,
			AverageSentiment: conv.AverageSentiment,
		},
		Messages:     make([]MessageData, 0, len(msgs)),
		ExportDate:   now.UTC().Format(timeLayout),
		ExportFormat: format,
	}
	for i := range msgs {
		m := &msgs[i]
		label := "neutral"
		if m.SentimentLabel != nil && *m.SentimentLabel != "" {
			label = *m.SentimentLabel
		}
		data.Messages = append(data.Messages, MessageData{
			Sender:         m.Sender,
			Content:        m.Content,
			CreatedAt:      m.CreatedAt.UTC().Format(timeLayout),
			SentimentLabel: label,
		})
	}
	return data
}

// Render produces the serialized export in the format recorded in data.
func Render(data ExportData) (string, error) {
	switch data.ExportFormat {
	case FormatJSON:
		return RenderJSON(data)
	case FormatMarkdown:
		return RenderMarkdown(data), nil
	case FormatCSV:
		return RenderCSV(data), nil
	}
	return "", fmt.Errorf("export: unsupported format %q", data.ExportFormat)
}

// RenderJSON serializes the full payload as indented JSON.
func RenderJSON(data ExportData) (string, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: marshal json: %w", err)
	}
	return string(b), nil
}

// RenderMarkdown renders a human-readable transcript with a details header,
// the summary, and one section per message.
func RenderMarkdown(data ExportData) string {
	var b strings.Builder

	title := data.Conversation.Title
	if title == "" {
		title = "Conversation"
	}
	topic := data.Conversation.Topic
	if topic == "" {
		topic = "General"
	}
	summary := data.Conversation.Summary
	if summary == "" {
		summary = "No summary available"
	}

	fmt.Fprintf(&b, "# %s\n\n", title)
	b.WriteString("## Conversation Details\n")
	fmt.Fprintf(&b, "- **ID:** %s\n", data.Conversation.ID)
	fmt.Fprintf(&b, "- **Created:** %s\n", data.Conversation.CreatedAt)
	fmt.Fprintf(&b, "- **Updated:** %s\n", data.Conversation.UpdatedAt)
	fmt.Fprintf(&b, "- **Topic:** %s\n", topic)
	fmt.Fprintf(&b, "- **Average Sentiment:** %.2f\n\n", data.Conversation.AverageSentiment)
	fmt.Fprintf(&b, "## Summary\n%s\n\n---\n\n## Messages\n\n", summary)

	for _, m := range data.Messages {
		fmt.Fprintf(&b, "### %s\n", strings.ToUpper(m.Sender))
		fmt.Fprintf(&b, "- **Time:** %s\n", m.CreatedAt)
		fmt.Fprintf(&b, "- **Sentiment:** %s\n\n", m.SentimentLabel)
		fmt.Fprintf(&b, "%s\n\n---\n\n", m.Content)
	}

	fmt.Fprintf(&b, "\n*Exported on %s*", data.ExportDate)
	return b.String()
}

// RenderCSV renders one row per message with the columns
// Timestamp, Sender, Sentiment, Content. Commas inside fields become
// semicolons and newlines become spaces so each record stays on one line.
func RenderCSV(data ExportData) string {
	var b strings.Builder
	b.WriteString("Timestamp,Sender,Sentiment,Content\n")
	for _, m := range data.Messages {
		fmt.Fprintf(&b, "%q,%q,%q,%q\n",
			csvField(m.CreatedAt),
			csvField(m.Sender),
			csvField(m.SentimentLabel),
			csvField(m.Content),
		)
	}
	return b.String()
}

// csvField flattens a value onto a single comma-free line.
func csvField(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.NewReplacer("\n", " ", "\r", " ", ",", ";").Replace(s)
	return s
}

// Filename derives a download filename from the conversation title, the
// export timestamp, and the format extension. Anything outside [a-zA-Z0-9-_]
// in the title collapses to underscores.
func Filename(title string, format Format, now time.Time) string {
	safe := make([]rune, 0, len(title))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			safe = append(safe, r)
		default:
			safe = append(safe, '_')
		}
	}
	base := strings.Trim(string(safe), "_")
	if base == "" {
		base = "conversation"
	}
	if len(base) > 60 {
		base = base[:60]
	}
	return fmt.Sprintf("%s_%s.%s", base, now.UTC().Format("20060102_150405"), format.ext())
}
