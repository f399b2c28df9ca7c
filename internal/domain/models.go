// Package domain defines the persistence models for conversations, messages,
// and their derived analytics (sentiment and topic records). These types are
// mapped with GORM and form the core data layer of the chat portal.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Conversation status values. "deleted" is terminal; active and archived are
// freely reversible.
const (
	ConversationActive   = "active"
	ConversationArchived = "archived"
	ConversationDeleted  = "deleted"
)

// Message sender values.
const (
	SenderUser   = "user"
	SenderAI     = "ai"
	SenderSystem = "system"
)

// Message delivery status values. Failed AI turns are persisted as normal
// messages with StatusFailed and an ErrorMessage, never as an aborted turn.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// DefaultConversationTitle is the placeholder title given to conversations
// created without one. Placeholder titles are eligible for auto-titling from
// the first user prompt.
const DefaultConversationTitle = "Untitled Conversation"

// Conversation represents a multi-turn exchange between a user and the AI
// responder. Besides user-editable metadata (title, summary, tags, pinning)
// it carries three derived aggregate fields (MessageCount, AverageSentiment,
// LastMessageAt) which are recomputed from the message set after every
// turn and form the durable contract read by dashboards and filters.
//
// Invariants:
//   - MessageCount equals the number of non-deleted messages.
//   - AverageSentiment equals the mean of SentimentScore over user-authored
//     messages with a non-zero (analyzed) score; 0.0 when none exist.
//   - Status == "archived" implies IsArchived == true.
//   - IsPublic == true implies ShareToken is a unique 32-character token,
//     generated exactly once on the first transition to public.
type Conversation struct {
	ID     string `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID string `json:"user_id" gorm:"type:varchar(64);index:idx_user_convs"`

	Title   string  `json:"title"             gorm:"type:varchar(255);not null;default:'Untitled Conversation'"`
	Summary *string `json:"summary,omitempty" gorm:"type:varchar(1000)"`

	Status     string `json:"status"      gorm:"type:varchar(20);not null;default:'active';index;check:status IN ('active','archived','deleted')"`
	IsPinned   bool   `json:"is_pinned"   gorm:"not null;default:false;index"`
	IsArchived bool   `json:"is_archived" gorm:"not null;default:false"`

	Topic string `json:"topic,omitempty" gorm:"type:varchar(100)"`
	Tags  string `json:"tags,omitempty"  gorm:"type:varchar(500)"` // comma-separated

	// Derived aggregates (see services.AggregationService).
	MessageCount     int     `json:"message_count"     gorm:"not null;default:0"`
	AverageSentiment float64 `json:"average_sentiment" gorm:"not null;default:0"`

	IsPublic   bool    `json:"is_public"             gorm:"not null;default:false"`
	ShareToken *string `json:"share_token,omitempty" gorm:"type:char(32);uniqueIndex"`

	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"index:idx_user_convs,priority:2,sort:desc"`
	LastMessageAt *time.Time     `json:"last_message_at,omitempty"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// SentimentLabel maps the conversation's average sentiment to a
// human-readable label: > 0.3 positive, < -0.3 negative, otherwise neutral.
func (c *Conversation) SentimentLabel() string {
	switch {
	case c.AverageSentiment > 0.3:
		return SentimentPositive
	case c.AverageSentiment < -0.3:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// IsRecent reports whether the conversation was updated within the last 24h.
func (c *Conversation) IsRecent(now time.Time) bool {
	return c.UpdatedAt.After(now.Add(-24 * time.Hour))
}

// Sentiment label values shared by messages and analysis records.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
	SentimentMixed    = "mixed"
)

// Message represents a single utterance within a conversation, authored by
// the user, the AI responder, or the system. Content is immutable after
// creation; only status, sentiment fields, and interaction flags may change.
//
// SentimentScore defaults to 0.0, which doubles as the "not yet analyzed"
// sentinel: aggregate computations exclude user messages with a zero score.
// SentimentLabel being nil is the explicit signal that no analysis ran.
//
// Ordering within a conversation is (CreatedAt ASC, ID ASC) and is stable.
type Message struct {
	ID             string `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conv_msgs,priority:1"`

	Sender  string `json:"sender"  gorm:"type:varchar(20);not null;default:'user';index;check:sender IN ('user','ai','system')"`
	Content string `json:"content" gorm:"type:text;not null"`

	Status       string  `json:"status"                  gorm:"type:varchar(20);not null;default:'sent';check:status IN ('pending','sent','delivered','failed')"`
	ErrorMessage *string `json:"error_message,omitempty" gorm:"type:text"`

	// AI metadata, present only on AI-authored messages.
	ModelUsed      *string `json:"model_used,omitempty"       gorm:"type:varchar(100)"`
	ResponseTimeMs *int64  `json:"response_time_ms,omitempty"`
	TokenCount     *int    `json:"token_count,omitempty"`

	SentimentScore float64 `json:"sentiment_score"           gorm:"not null;default:0"`
	SentimentLabel *string `json:"sentiment_label,omitempty" gorm:"type:varchar(20);index"`

	// User interaction. IsLiked and IsDisliked are mutually exclusive;
	// setting one clears the other (enforced in the service layer).
	IsLiked    bool    `json:"is_liked"           gorm:"not null;default:false"`
	IsDisliked bool    `json:"is_disliked"        gorm:"not null;default:false"`
	IsPinned   bool    `json:"is_pinned"          gorm:"not null;default:false"`
	Reaction   *string `json:"reaction,omitempty" gorm:"type:varchar(50)"`

	// Citations is an ordered JSON list of source references.
	Citations string `json:"citations,omitempty" gorm:"type:text"`

	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_conv_msgs,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Conversation is the parent. Messages are cascade-deleted if their
	// conversation is removed.
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// IsUserMessage reports whether the message was authored by the user.
func (m *Message) IsUserMessage() bool { return m.Sender == SenderUser }

// IsAIMessage reports whether the message was authored by the AI responder.
func (m *Message) IsAIMessage() bool { return m.Sender == SenderAI }

// Analyzed reports whether sentiment analysis ran for this message.
func (m *Message) Analyzed() bool { return m.SentimentLabel != nil }

// SentimentRecord stores the full output of one sentiment analysis run for a
// message: raw class probabilities, confidence, detected emotions, and the
// model identity. Records are append-only: re-analysis creates a new row so
// trend queries never lose history.
type SentimentRecord struct {
	ID             string `json:"id"              gorm:"type:char(36);primaryKey"`
	MessageID      string `json:"message_id"      gorm:"type:char(36);not null;index"`
	ConversationID string `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conv_sentiments,priority:1"`

	PositiveScore float64 `json:"positive_score" gorm:"not null;default:0"`
	NeutralScore  float64 `json:"neutral_score"  gorm:"not null;default:0"`
	NegativeScore float64 `json:"negative_score" gorm:"not null;default:0"`

	Label      string  `json:"label"      gorm:"type:varchar(20);not null;index;check:label IN ('positive','neutral','negative','mixed')"`
	Confidence float64 `json:"confidence" gorm:"not null;default:0"`

	ModelUsed       string `json:"model_used"       gorm:"type:varchar(100)"`
	AnalysisVersion string `json:"analysis_version" gorm:"type:varchar(20);default:'1.0'"`

	// Emotions and KeyPhrases hold JSON-encoded detail payloads.
	Emotions   string `json:"emotions,omitempty"    gorm:"type:text"`
	KeyPhrases string `json:"key_phrases,omitempty" gorm:"type:text"`

	AnalyzedAt time.Time `json:"analyzed_at" gorm:"index:idx_conv_sentiments,priority:2"`

	Message Message `json:"-" gorm:"foreignKey:MessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for SentimentRecord.
func (SentimentRecord) TableName() string { return "sentiment_records" }

// IsConfident reports whether the analysis confidence exceeds 0.8.
func (s *SentimentRecord) IsConfident() bool { return s.Confidence > 0.8 }

// TopicRecord stores the result of one topic extraction run over a
// conversation. Like SentimentRecord it is append-only: each analysis run
// inserts a new row ordered by AnalyzedAt, preserving topic history.
type TopicRecord struct {
	ID             string `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conv_topics,priority:1"`

	PrimaryTopic    string `json:"primary_topic"              gorm:"type:varchar(100);not null;index"`
	SecondaryTopics string `json:"secondary_topics,omitempty" gorm:"type:text"` // JSON list
	Category        string `json:"category"                   gorm:"type:varchar(100);index"`
	Keywords        string `json:"keywords,omitempty"         gorm:"type:text"` // JSON list

	Confidence float64 `json:"confidence" gorm:"not null;default:0"`
	ModelUsed  string  `json:"model_used" gorm:"type:varchar(100);default:'keyword-frequency'"`

	AnalyzedAt time.Time `json:"analyzed_at" gorm:"index:idx_conv_topics,priority:2"`

	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for TopicRecord.
func (TopicRecord) TableName() string { return "topic_records" }
