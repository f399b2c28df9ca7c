package textutil

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"trims", "  hello  ", 0, "hello"},
		{"strips nul", "he\x00llo", 0, "hello"},
		{"strips control", "a\x01\x02b", 0, "ab"},
		{"keeps newline and tab", "a\nb\tc", 0, "a\nb\tc"},
		{"empty after trim", "   \t  ", 0, ""},
		{"caps length", "abcdef", 3, "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sanitize(tc.in, tc.max); got != tc.want {
				t.Fatalf("Sanitize(%q, %d) = %q; want %q", tc.in, tc.max, got, tc.want)
			}
		})
	}
}

func TestSanitize_DefaultCap(t *testing.T) {
	long := strings.Repeat("x", DefaultMaxLength+500)
	got := Sanitize(long, 0)
	if utf8.RuneCountInString(got) != DefaultMaxLength {
		t.Fatalf("expected default cap %d, got %d", DefaultMaxLength, utf8.RuneCountInString(got))
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 100, "..."); got != "short" {
		t.Fatalf("Truncate should not touch short text, got %q", got)
	}
	got := Truncate("abcdefghij", 8, "...")
	if got != "abcde..." {
		t.Fatalf("Truncate = %q; want %q", got, "abcde...")
	}
	if utf8.RuneCountInString(got) != 8 {
		t.Fatalf("truncated length = %d; want 8", utf8.RuneCountInString(got))
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 1 {
		t.Fatalf("empty text should estimate 1 token, got %d", got)
	}
	if got := EstimateTokens("abcd"); got != 1 {
		t.Fatalf("4 chars should estimate 1 token, got %d", got)
	}
	if got := EstimateTokens(strings.Repeat("a", 40)); got != 10 {
		t.Fatalf("40 chars should estimate 10 tokens, got %d", got)
	}
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("The quick, brown fox jumps over the lazy dog!", 3)
	want := []string{"brown", "dog", "fox", "jumps", "lazy", "over", "quick"}
	if len(got) != len(want) {
		t.Fatalf("keywords = %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keywords = %v; want %v", got, want)
		}
	}
}

func TestExtractKeywords_Empty(t *testing.T) {
	if got := ExtractKeywords("the a an", 3); len(got) != 0 {
		t.Fatalf("only stopwords should yield no keywords, got %v", got)
	}
}

func TestMean(t *testing.T) {
	if got := Mean(nil); got != 0.0 {
		t.Fatalf("Mean(nil) = %v; want 0", got)
	}
	if got := Mean([]float64{0.8, -0.2}); math.Abs(got-0.3) > 1e-9 {
		t.Fatalf("Mean = %v; want 0.3", got)
	}
}

func TestMedian(t *testing.T) {
	if got := Median(nil); got != 0.0 {
		t.Fatalf("Median(nil) = %v; want 0", got)
	}
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Fatalf("Median odd = %v; want 2", got)
	}
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Fatalf("Median even = %v; want 2.5", got)
	}
}

func TestStdDev(t *testing.T) {
	if got := StdDev([]float64{1}); got != 0.0 {
		t.Fatalf("StdDev of one value = %v; want 0", got)
	}
	got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(got-2.0) > 1e-9 {
		t.Fatalf("StdDev = %v; want 2.0", got)
	}
}

func TestPercentile(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := Percentile(vals, 50); got != 6 {
		t.Fatalf("P50 = %v; want 6", got)
	}
	if got := Percentile(vals, 100); got != 10 {
		t.Fatalf("P100 = %v; want 10", got)
	}
	if got := Percentile(vals, -1); got != 0.0 {
		t.Fatalf("invalid percentile should yield 0, got %v", got)
	}
	if got := Percentile(nil, 50); got != 0.0 {
		t.Fatalf("empty values should yield 0, got %v", got)
	}
}

func TestNewShareToken(t *testing.T) {
	a, b := NewShareToken(), NewShareToken()
	if len(a) != 32 || len(b) != 32 {
		t.Fatalf("token length = %d/%d; want 32", len(a), len(b))
	}
	if a == b {
		t.Fatalf("tokens must be unique")
	}
	for _, r := range a {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Fatalf("token %q contains non-hex rune %q", a, r)
		}
	}
}
