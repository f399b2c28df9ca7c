package search

import (
	"strings"
	"testing"
)

func docs(texts ...string) []Document {
	out := make([]Document, 0, len(texts))
	for i, t := range texts {
		out = append(out, Document{
			ID:             string(rune('a' + i)),
			ConversationID: "c1",
			Text:           t,
		})
	}
	return out
}

func TestNewIndex_SkipsEmptyAndShort(t *testing.T) {
	idx := NewIndex(docs("", "   ", "ok fine here", "x"), WithMinTextRunes(3))

	got := idx.TopK("ok", 5)
	if len(got) != 1 || got[0].Document.Text != "ok fine here" {
		t.Fatalf("results = %+v", got)
	}
}

func TestTopK_RanksByJaccard(t *testing.T) {
	idx := NewIndex(docs(
		"the deployment pipeline failed again",
		"lunch plans for friday",
		"deployment finished without errors",
	))

	got := idx.TopK("deployment failed", 3)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Both query tokens hit the first document; only one hits the third.
	if got[0].Document.Text != "the deployment pipeline failed again" {
		t.Fatalf("top result = %+v", got[0])
	}
	if got[0].Score <= got[1].Score {
		t.Fatalf("scores not descending: %v vs %v", got[0].Score, got[1].Score)
	}
}

func TestTopK_DeterministicTieBreak(t *testing.T) {
	// Same score and same length: ties break on document ID.
	idx := NewIndex([]Document{
		{ID: "m2", Text: "alpha beta"},
		{ID: "m1", Text: "alpha gama"},
	})

	got := idx.TopK("alpha", 2)
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Document.ID != "m1" || got[1].Document.ID != "m2" {
		t.Fatalf("order = %s, %s", got[0].Document.ID, got[1].Document.ID)
	}
}

func TestTopK_EmptyInputs(t *testing.T) {
	idx := NewIndex(docs("some text to find"))

	if got := idx.TopK("", 3); got != nil {
		t.Fatalf("empty query = %+v", got)
	}
	if got := idx.TopK("   ", 3); got != nil {
		t.Fatalf("blank query = %+v", got)
	}
	if got := idx.TopK("!!!", 3); got != nil {
		t.Fatalf("symbol query = %+v", got)
	}

	empty := NewIndex(nil)
	if got := empty.TopK("anything", 3); got != nil {
		t.Fatalf("empty index = %+v", got)
	}
}

func TestTopK_DefaultK(t *testing.T) {
	texts := make([]string, 15)
	for i := range texts {
		texts[i] = "needle document number " + strings.Repeat("x", i+1)
	}
	idx := NewIndex(docs(texts...))

	if got := idx.TopK("needle", 0); len(got) != 10 {
		t.Fatalf("default k = %d results, want 10", len(got))
	}
	if got := idx.TopK("needle", 100); len(got) != 15 {
		t.Fatalf("k beyond corpus = %d results, want 15", len(got))
	}
}

func TestWithStopwords(t *testing.T) {
	idx := NewIndex(
		docs("the cat sat", "a dog ran"),
		WithStopwords([]string{"the", "a"}),
	)

	// A stopword-only query matches nothing.
	if got := idx.TopK("the a", 3); got != nil {
		t.Fatalf("stopword query = %+v", got)
	}
	got := idx.TopK("the cat", 3)
	if len(got) != 1 || got[0].Document.Text != "the cat sat" {
		t.Fatalf("results = %+v", got)
	}
}

func TestWithMaxDocs(t *testing.T) {
	idx := NewIndex(docs("match one", "match two", "match three"), WithMaxDocs(2))

	if got := idx.TopK("match", 10); len(got) != 2 {
		t.Fatalf("results = %d, want 2", len(got))
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	idx := NewIndex(docs("hello\n\tworld   again"))

	got := idx.TopK("hello world", 1)
	if len(got) != 1 || got[0].Document.Text != "hello world again" {
		t.Fatalf("results = %+v", got)
	}
}
