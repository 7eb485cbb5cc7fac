package commonModels

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCollectionName = errors.New("empty collection name")
	ErrDimensionMismatch   = errors.New("vector dimension mismatch")
	ErrUnknownCollection   = errors.New("collection does not exist")
)

// ExtractionError means the file could not be opened or parsed as a PDF.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

type EmbeddingServiceError struct {
	Provider    string
	RateLimited bool
	Err         error
}

func (e *EmbeddingServiceError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("%s embedding service rate limited: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s embedding service: %v", e.Provider, e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// SchemaMismatchError is fatal for a collection and is never retried.
type SchemaMismatchError struct {
	Collection        string
	WantDimension     uint64
	GotDimension      uint64
	WantMetric        DistanceMetric
	GotMetric         DistanceMetric
	UnsupportedMetric bool
}

func (e *SchemaMismatchError) Error() string {
	if e.UnsupportedMetric {
		return fmt.Sprintf("collection %q: distance metric %q is not supported by this index", e.Collection, e.WantMetric)
	}
	return fmt.Sprintf("collection %q exists with size=%d distance=%s, wanted size=%d distance=%s",
		e.Collection, e.GotDimension, e.GotMetric, e.WantDimension, e.WantMetric)
}

type UpsertError struct {
	Collection string
	Records    int
	Retryable  bool
	Err        error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("upserting %d records into %q: %v", e.Records, e.Collection, e.Err)
}

func (e *UpsertError) Unwrap() error { return e.Err }

// IsRetryable reports whether an upsert failure is worth another attempt.
// Errors that are not UpsertErrors are treated as transient.
func IsRetryable(err error) bool {
	var schemaErr *SchemaMismatchError
	if errors.As(err, &schemaErr) {
		return false
	}
	var upsertErr *UpsertError
	if errors.As(err, &upsertErr) {
		return upsertErr.Retryable
	}
	return err != nil
}
