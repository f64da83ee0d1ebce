package localfs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
)

func TestSaveThenOpen(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Save(context.Background(), "docs/a.txt", strings.NewReader("hello")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rc, err := s.Open(context.Background(), "file://docs/a.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	raw, _ := io.ReadAll(rc)
	if string(raw) != "hello" {
		t.Fatalf("unexpected content %q", raw)
	}
}

func TestOpenRejectsPathOutsideRoot(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = s.Open(context.Background(), "../../etc/passwd")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestOpenMissingFileIsNotFound(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = s.Open(context.Background(), "missing.txt")
	if !domain.IsKind(err, domain.ErrSourceNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
