// Package services – ExportService
//
// This file implements ExportService, which loads a conversation plus its
// transcript and hands them to the internal/export renderers. Format
// validation and ownership checks happen here; rendering stays pure.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nkaralis/go-chat-portal/internal/export"
	"github.com/nkaralis/go-chat-portal/internal/repo"
)

// ExportResult carries a rendered export plus the metadata a handler needs
// to serve it as a download.
type ExportResult struct {
	Body        string
	ContentType string
	Filename    string
	Format      export.Format
}

// ExportService renders conversation exports for their owner.
type ExportService struct {
	DB *gorm.DB

	// Now injects the export timestamp; nil means time.Now.
	Now func() time.Time
}

// NewExportService wires an ExportService over db.
func NewExportService(db *gorm.DB) *ExportService {
	return &ExportService{DB: db}
}

// Export renders the conversation in the requested format. Unknown formats
// yield ErrInvalidExportFormat; a missing or foreign conversation yields
// ErrConversationNotFound.
func (s *ExportService) Export(ctx context.Context, userID, conversationID string, format export.Format) (*ExportResult, error) {
	tr := otel.Tracer("services/ExportService")
	ctx, span := tr.Start(ctx, "Export",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("export.format", string(format)),
		),
	)
	defer span.End()

	if !format.Valid() {
		return nil, ErrInvalidExportFormat
	}

	conv, err := repo.GetConversation(ctx, s.DB, conversationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	msgs, err := repo.ListMessages(ctx, s.DB, conversationID, 0)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	data := export.Build(conv, msgs, format, now)
	body, err := export.Render(data)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("export.messages", len(msgs)))
	return &ExportResult{
		Body:        body,
		ContentType: format.ContentType(),
		Filename:    export.Filename(conv.Title, format, now),
		Format:      format,
	}, nil
}
