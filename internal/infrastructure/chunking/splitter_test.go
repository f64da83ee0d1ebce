package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitKeepsShortTextWhole(t *testing.T) {
	got := NewSplitter(100, 10).Split("  short paragraph  ")
	if len(got) != 1 || got[0] != "short paragraph" {
		t.Fatalf("unexpected chunks: %#v", got)
	}
}

func TestSplitEmptyText(t *testing.T) {
	if got := NewSplitter(100, 10).Split(" \n\n "); got != nil {
		t.Fatalf("expected nil, got %#v", got)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	text := "alpha beta gamma\n\ndelta epsilon zeta\n\neta theta iota"
	got := NewSplitter(20, 0).Split(text)
	want := []string{"alpha beta gamma", "delta epsilon zeta", "eta theta iota"}
	if len(got) != len(want) {
		t.Fatalf("expected %d chunks, got %#v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitRespectsChunkSizeAndOverlap(t *testing.T) {
	words := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		words = append(words, "слово")
	}
	text := strings.Join(words, " ")

	got := NewSplitter(50, 12).Split(text)
	if len(got) < 2 {
		t.Fatalf("expected several chunks, got %d", len(got))
	}
	for i, chunk := range got {
		if n := utf8.RuneCountInString(chunk); n > 50 {
			t.Fatalf("chunk %d has %d runes", i, n)
		}
	}
	first := strings.Fields(got[0])
	second := strings.Fields(got[1])
	if first[len(first)-1] != second[0] {
		t.Fatalf("expected overlap between consecutive chunks: %q / %q", got[0], got[1])
	}
}

func TestSplitFallsBackToCharactersForLongTokens(t *testing.T) {
	got := NewSplitter(10, 0).Split(strings.Repeat("x", 25))
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %#v", got)
	}
	if got[0] != strings.Repeat("x", 10) || got[2] != strings.Repeat("x", 5) {
		t.Fatalf("unexpected chunks: %#v", got)
	}
}

func TestNewSplitterDefaults(t *testing.T) {
	s := NewSplitter(0, -1)
	if s.ChunkSize != 1000 || s.Overlap != 0 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s := NewSplitter(100, 100); s.Overlap != 25 {
		t.Fatalf("expected overlap clamp to 25, got %d", s.Overlap)
	}
}
