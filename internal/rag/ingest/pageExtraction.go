package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
	"github.com/dslipak/pdf"
)

var errPageTimeout = errors.New("page extraction timed out")

// Extractor turns a file on disk into a Document.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (commonModels.Document, error)
}

type PDFExtractor struct {
	PageTimeout time.Duration
	logger      *logger_i.Logger
}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{
		PageTimeout: config.PageExtractTimeout,
		logger:      logger_i.NewLogger("pdfExtractor"),
	}
}

// ExtractText reads the pages in order and joins the trimmed, non-empty ones,
// each followed by a newline. Pages that time out or break the parser are skipped.
// Invalid UTF-8 from the font decoders is replaced with U+FFFD.
func (e *PDFExtractor) ExtractText(ctx context.Context, path string) (doc commonModels.Document, err error) {
	log := e.logger.WithTrace(ctx)
	log.Debug("extracting pdf", "path", path)

	defer func() {
		// dslipak/pdf panics on some malformed xref tables
		if r := recover(); r != nil {
			err = &commonModels.ExtractionError{Path: path, Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	f, err := pdf.Open(path)
	if err != nil {
		log.Error("failed opening of pdf file", "path", path, "error", err)
		return commonModels.Document{}, &commonModels.ExtractionError{Path: path, Err: err}
	}

	var sb strings.Builder
	numPages := f.NumPage()
	log.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return commonModels.Document{}, err
		}
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := e.protectExtract(page)
		if err != nil {
			log.Warn("skipping page", "path", path, "page", i, "error", err)
			continue
		}
		content = strings.TrimSpace(strings.ToValidUTF8(content, string(utf8.RuneError)))
		if content == "" {
			continue
		}
		sb.WriteString(content)
		sb.WriteByte('\n')
	}

	return commonModels.Document{
		Name: filepath.Base(path),
		Path: path,
		Text: sb.String(),
	}, nil
}

func (e *PDFExtractor) protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("parser panic: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	timeout := e.PageTimeout
	if timeout <= 0 {
		timeout = config.PageExtractTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-resChan:
		return r.content, r.err
	case <-timer.C:
		return "", errPageTimeout
	}
}
