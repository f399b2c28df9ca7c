// Package services – SearchService
//
// This file implements full-text search over a user's message history. The
// candidate set is loaded from the database and ranked in memory with the
// Jaccard index from internal/search, so results are deterministic and the
// database never needs a text extension.
package services

import (
	"context"
	"sort"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nkaralis/go-chat-portal/internal/analysis"
	"github.com/nkaralis/go-chat-portal/internal/domain"
	"github.com/nkaralis/go-chat-portal/internal/repo"
	"github.com/nkaralis/go-chat-portal/internal/search"
)

// searchCandidateLimit bounds how many recent messages are ranked per query.
const searchCandidateLimit = 2000

// SearchHit is one ranked search result.
type SearchHit struct {
	MessageID      string  `json:"message_id"`
	ConversationID string  `json:"conversation_id"`
	Sender         string  `json:"sender"`
	Snippet        string  `json:"snippet"`
	Score          float64 `json:"score"`
	CreatedAt      string  `json:"created_at"`
}

// SearchService ranks a user's messages against a free-text query.
type SearchService struct {
	DB *gorm.DB

	// MaxResults caps how many hits a query returns; zero means 10.
	MaxResults int

	// Embeddings optionally re-ranks lexical hits by cosine similarity to
	// the query. Nil (or an unavailable backend) keeps the pure lexical
	// ordering.
	Embeddings *analysis.EmbeddingService
}

// NewSearchService wires a SearchService over db.
func NewSearchService(db *gorm.DB) *SearchService {
	return &SearchService{DB: db, MaxResults: 10}
}

// Search ranks the user's messages against query. conversationID narrows the
// scope to one conversation when non-empty. A blank query returns no hits.
func (s *SearchService) Search(ctx context.Context, userID, conversationID, query string) ([]SearchHit, error) {
	tr := otel.Tracer("services/SearchService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("conversation.id", conversationID),
		),
	)
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return []SearchHit{}, nil
	}

	msgs, err := repo.ListUserMessages(ctx, s.DB, userID, conversationID, searchCandidateLimit)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return []SearchHit{}, nil
	}

	byID := make(map[string]*domain.Message, len(msgs))
	docs := make([]search.Document, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		byID[m.ID] = m
		docs = append(docs, search.Document{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			Text:           m.Content,
		})
	}

	k := s.MaxResults
	if k <= 0 {
		k = 10
	}
	results := search.NewIndex(docs).TopK(query, k)

	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hit := SearchHit{
			MessageID:      r.Document.ID,
			ConversationID: r.Document.ConversationID,
			Snippet:        r.Document.Text,
			Score:          r.Score,
		}
		if m, ok := byID[r.Document.ID]; ok {
			hit.Sender = m.Sender
			hit.CreatedAt = m.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		hits = append(hits, hit)
	}

	hits = s.rerank(ctx, query, hits)

	span.SetAttributes(attribute.Int("search.hits", len(hits)))
	return hits, nil
}

// rerank reorders hits by semantic similarity to the query when an embedding
// backend is available. Scores become the cosine similarity; any embedding
// failure leaves the lexical ordering untouched.
func (s *SearchService) rerank(ctx context.Context, query string, hits []SearchHit) []SearchHit {
	if s.Embeddings == nil || !s.Embeddings.Available() || len(hits) < 2 {
		return hits
	}

	scores := make([]float64, len(hits))
	for i := range hits {
		sim, err := s.Embeddings.Similarity(ctx, query, hits[i].Snippet)
		if err != nil {
			return hits
		}
		scores[i] = sim
	}

	reranked := make([]SearchHit, len(hits))
	copy(reranked, hits)
	for i := range reranked {
		reranked[i].Score = scores[i]
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})
	return reranked
}
