package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
	"github.com/lu4p/cat"
)

var documentExtensions = map[string]bool{
	".docx": true,
	".odt":  true,
	".rtf":  true,
	".txt":  true,
}

// Supported reports whether a single uploaded file with this name can be extracted.
// Directory ingestion only picks up PDFs.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".pdf" || documentExtensions[ext]
}

// DocumentExtractor routes PDFs to the page extractor and office or plain text
// files to lu4p/cat.
type DocumentExtractor struct {
	pdf    *PDFExtractor
	logger *logger_i.Logger
}

func NewDocumentExtractor() *DocumentExtractor {
	return &DocumentExtractor{
		pdf:    NewPDFExtractor(),
		logger: logger_i.NewLogger("documentExtractor"),
	}
}

func (e *DocumentExtractor) ExtractText(ctx context.Context, path string) (commonModels.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		return e.pdf.ExtractText(ctx, path)
	}
	if !documentExtensions[ext] {
		return commonModels.Document{}, &commonModels.ExtractionError{Path: path, Err: fmt.Errorf("unsupported file type %q", ext)}
	}
	if err := ctx.Err(); err != nil {
		return commonModels.Document{}, err
	}

	// cat has no page boundaries, the whole file is one page
	text, err := cat.File(path)
	if err != nil {
		e.logger.WithTrace(ctx).Error("Error extracting content from doc", "path", path, "error", err)
		return commonModels.Document{}, &commonModels.ExtractionError{Path: path, Err: err}
	}
	text = strings.TrimSpace(strings.ToValidUTF8(text, string(utf8.RuneError)))
	if text != "" {
		text += "\n"
	}
	return commonModels.Document{
		Name: filepath.Base(path),
		Path: path,
		Text: text,
	}, nil
}
