package services

import (
	"context"
	"errors"
	"testing"

	"github.com/nkaralis/go-chat-portal/internal/domain"
)

func TestInteractionService_LikeDislikeExclusive(t *testing.T) {
	db := newServiceDB(t)
	svc := &InteractionService{DB: db}
	ctx := context.Background()

	c := seedConversation(t, db, "u1", "chat")
	ai := seedMessage(t, db, c.ID, domain.SenderAI, "a reply")

	m, err := svc.SetLiked(ctx, "u1", ai.ID, true)
	if err != nil {
		t.Fatalf("SetLiked: %v", err)
	}
	if !m.IsLiked || m.IsDisliked {
		t.Fatalf("after like: liked=%v disliked=%v", m.IsLiked, m.IsDisliked)
	}

	// Disliking clears the like.
	m, err = svc.SetDisliked(ctx, "u1", ai.ID, true)
	if err != nil {
		t.Fatalf("SetDisliked: %v", err)
	}
	if m.IsLiked || !m.IsDisliked {
		t.Fatalf("after dislike: liked=%v disliked=%v", m.IsLiked, m.IsDisliked)
	}

	// And liking again clears the dislike.
	m, err = svc.SetLiked(ctx, "u1", ai.ID, true)
	if err != nil {
		t.Fatalf("SetLiked again: %v", err)
	}
	if !m.IsLiked || m.IsDisliked {
		t.Fatalf("after re-like: liked=%v disliked=%v", m.IsLiked, m.IsDisliked)
	}

	// Unliking leaves both clear.
	m, err = svc.SetLiked(ctx, "u1", ai.ID, false)
	if err != nil {
		t.Fatalf("SetLiked(false): %v", err)
	}
	if m.IsLiked || m.IsDisliked {
		t.Fatalf("after unlike: liked=%v disliked=%v", m.IsLiked, m.IsDisliked)
	}
}

func TestInteractionService_LikeRequiresAIMessage(t *testing.T) {
	db := newServiceDB(t)
	svc := &InteractionService{DB: db}
	ctx := context.Background()

	c := seedConversation(t, db, "u1", "chat")
	user := seedMessage(t, db, c.ID, domain.SenderUser, "my own words")

	if _, err := svc.SetLiked(ctx, "u1", user.ID, true); !errors.Is(err, ErrForbiddenInteraction) {
		t.Fatalf("like on user message err = %v, want ErrForbiddenInteraction", err)
	}
	if _, err := svc.SetDisliked(ctx, "u1", user.ID, true); !errors.Is(err, ErrForbiddenInteraction) {
		t.Fatalf("dislike on user message err = %v, want ErrForbiddenInteraction", err)
	}
}

func TestInteractionService_Ownership(t *testing.T) {
	db := newServiceDB(t)
	svc := &InteractionService{DB: db}
	ctx := context.Background()

	c := seedConversation(t, db, "owner", "chat")
	ai := seedMessage(t, db, c.ID, domain.SenderAI, "a reply")

	if _, err := svc.SetLiked(ctx, "intruder", ai.ID, true); !errors.Is(err, ErrForbiddenInteraction) {
		t.Fatalf("foreign like err = %v, want ErrForbiddenInteraction", err)
	}
	if _, err := svc.SetReaction(ctx, "intruder", ai.ID, "+1"); !errors.Is(err, ErrForbiddenInteraction) {
		t.Fatalf("foreign reaction err = %v, want ErrForbiddenInteraction", err)
	}
	if _, err := svc.SetLiked(ctx, "owner", "missing", true); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("missing message err = %v, want ErrMessageNotFound", err)
	}
}

func TestInteractionService_ReactionAndPin(t *testing.T) {
	db := newServiceDB(t)
	svc := &InteractionService{DB: db}
	ctx := context.Background()

	c := seedConversation(t, db, "u1", "chat")
	user := seedMessage(t, db, c.ID, domain.SenderUser, "pin me")

	// Reactions and pins work on any owned message, not just AI ones.
	m, err := svc.SetReaction(ctx, "u1", user.ID, "  🎉 ")
	if err != nil {
		t.Fatalf("SetReaction: %v", err)
	}
	if m.Reaction == nil || *m.Reaction != "🎉" {
		t.Fatalf("reaction = %v", m.Reaction)
	}

	// A blank reaction clears it.
	m, err = svc.SetReaction(ctx, "u1", user.ID, "   ")
	if err != nil {
		t.Fatalf("SetReaction clear: %v", err)
	}
	if m.Reaction != nil {
		t.Fatalf("reaction = %v, want cleared", m.Reaction)
	}

	m, err = svc.SetPinned(ctx, "u1", user.ID, true)
	if err != nil {
		t.Fatalf("SetPinned: %v", err)
	}
	if !m.IsPinned {
		t.Fatal("message not pinned")
	}
}
