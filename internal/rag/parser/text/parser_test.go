package text

import (
	"context"
	"strings"
	"testing"
)

func TestParse_WholeFileSingleUnit(t *testing.T) {
	input := "Getting Started\n\nThis guide explains the basics.\n"

	docs, err := New().Parse(context.Background(), strings.NewReader(input), "guide.txt")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d units, want 1", len(docs))
	}

	doc := docs[0]
	if doc.Content != strings.TrimSpace(input) {
		t.Errorf("content = %q", doc.Content)
	}
	if doc.Metadata.Title != "Getting Started" {
		t.Errorf("Title = %q, want Getting Started", doc.Metadata.Title)
	}
	if doc.ContentType != "text/plain" {
		t.Errorf("ContentType = %q", doc.ContentType)
	}
}

func TestParse_EmptyFile(t *testing.T) {
	docs, err := New().Parse(context.Background(), strings.NewReader("  \n\t "), "empty.txt")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("got %d units, want 0", len(docs))
	}
}
