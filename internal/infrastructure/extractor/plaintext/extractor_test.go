package plaintext

import (
	"context"
	"testing"
)

func TestExtractTrimsTextAndBOM(t *testing.T) {
	got, err := NewExtractor().Extract(context.Background(), "a.md", []byte("\xEF\xBB\xBF  # Title\nbody \n"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "# Title\nbody" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestExtractRejectsBinary(t *testing.T) {
	if _, err := NewExtractor().Extract(context.Background(), "a.bin", []byte{0xff, 0xfe, 0x00}); err == nil {
		t.Fatalf("expected error for binary input")
	}
}
