package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
)

func TestExtractText_Errors(t *testing.T) {
	dir := t.TempDir()
	notPDF := filepath.Join(dir, "fake.pdf")
	if err := os.WriteFile(notPDF, []byte("plain text, not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.pdf")},
		{"not a pdf", notPDF},
	}

	e := NewPDFExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ExtractText(context.Background(), tt.path)
			var extractErr *commonModels.ExtractionError
			if !errors.As(err, &extractErr) {
				t.Fatalf("expected ExtractionError, got %v", err)
			}
			if extractErr.Path != tt.path {
				t.Errorf("error path got %s, want %s", extractErr.Path, tt.path)
			}
		})
	}
}

func TestExtractText_PagesInOrder(t *testing.T) {
	path := filepath.Join("testdata", "tenancy.pdf")

	doc, err := NewPDFExtractor().ExtractText(context.Background(), path)
	if err != nil {
		t.Fatalf("extracting %s: %v", path, err)
	}
	if doc.Name != "tenancy.pdf" || doc.Path != path {
		t.Errorf("got name %q path %q", doc.Name, doc.Path)
	}
	// the second page holds only whitespace and leaves no trace
	want := "Section 1. Notice\nmust be written\nSection 2. Rent is due monthly.\n"
	if doc.Text != want {
		t.Errorf("text got %q, want %q", doc.Text, want)
	}
}

func TestExtractText_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPDFExtractor().ExtractText(ctx, filepath.Join("testdata", "tenancy.pdf"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
