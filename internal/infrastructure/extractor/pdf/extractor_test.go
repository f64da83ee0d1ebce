package pdf

import (
	"context"
	"strings"
	"testing"
)

func TestExtractRejectsNonPDF(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), "notes.pdf", []byte("plain text, not a pdf"))
	if err == nil {
		t.Fatalf("expected error for invalid pdf")
	}
	if !strings.Contains(err.Error(), "notes.pdf") {
		t.Fatalf("expected file name in error, got %v", err)
	}
}
