// Package chromemDB is the in-process vector index, optionally persisted to a directory.
package chromemDB

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
	"github.com/akolanti/LegalRAG/internal/rag/vectorDB"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
	"github.com/philippgille/chromem-go"
)

var errNoEmbeddingFunc = errors.New("chromem index only stores precomputed vectors")

// vectors always arrive precomputed, so chromem must never embed by itself
func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// chromem only loads subdirectories of the db path, so a top-level file is left alone
const schemaFileName = "collections.json"

type schema struct {
	Dimension int                         `json:"dimension"`
	Metric    commonModels.DistanceMetric `json:"distance"`
}

type Index struct {
	db         *chromem.DB
	logger     *logger_i.Logger
	schemaPath string

	mu      sync.RWMutex
	schemas map[string]schema
}

// New opens an in-memory index, or a persistent one when path is set.
// A persistent index reloads the declared schema of every collection.
func New(path string) (*Index, error) {
	i := &Index{
		db:      chromem.NewDB(),
		logger:  logger_i.NewLogger("chromem"),
		schemas: make(map[string]schema),
	}
	if path == "" {
		return i, nil
	}

	var err error
	i.db, err = chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening chromem db at %s: %w", path, err)
	}
	i.schemaPath = filepath.Join(path, schemaFileName)
	data, err := os.ReadFile(i.schemaPath)
	if errors.Is(err, os.ErrNotExist) {
		return i, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading collection schemas: %w", err)
	}
	if err := json.Unmarshal(data, &i.schemas); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", i.schemaPath, err)
	}
	return i, nil
}

// saveSchemas writes the schema file through a rename so a crash never leaves half of it.
// Callers hold mu.
func (i *Index) saveSchemas() error {
	if i.schemaPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(i.schemas, "", "  ")
	if err != nil {
		return err
	}
	tmp := i.schemaPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, i.schemaPath)
}

func (i *Index) Close() error { return nil }

func (i *Index) EnsureCollection(ctx context.Context, collectionName string, dimension int, metric commonModels.DistanceMetric) error {
	if collectionName == "" {
		return commonModels.ErrEmptyCollectionName
	}
	if metric == "" {
		metric = commonModels.Cosine
	}
	if metric != commonModels.Cosine {
		return &commonModels.SchemaMismatchError{
			Collection:        collectionName,
			WantDimension:     uint64(dimension),
			WantMetric:        metric,
			GotMetric:         commonModels.Cosine,
			UnsupportedMetric: true,
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	existing, declared := i.schemas[collectionName]
	if declared {
		if existing.Dimension != dimension || existing.Metric != metric {
			return &commonModels.SchemaMismatchError{
				Collection:    collectionName,
				WantDimension: uint64(dimension),
				GotDimension:  uint64(existing.Dimension),
				WantMetric:    metric,
				GotMetric:     existing.Metric,
			}
		}
		if i.db.GetCollection(collectionName, noEmbedding) != nil {
			return nil
		}
	}

	if _, err := i.db.GetOrCreateCollection(collectionName, map[string]string{
		"dimension": strconv.Itoa(dimension),
		"distance":  string(metric),
	}, noEmbedding); err != nil {
		return fmt.Errorf("creating collection %q: %w", collectionName, err)
	}
	i.schemas[collectionName] = schema{Dimension: dimension, Metric: metric}
	if err := i.saveSchemas(); err != nil {
		if !declared {
			delete(i.schemas, collectionName)
		}
		return fmt.Errorf("saving schema of %q: %w", collectionName, err)
	}
	i.logger.WithTrace(ctx).Info("Collection ready", "collectionName", collectionName, "size", dimension)
	return nil
}

func (i *Index) collection(collectionName string) (*chromem.Collection, schema, bool) {
	i.mu.RLock()
	s, ok := i.schemas[collectionName]
	i.mu.RUnlock()
	if !ok {
		return nil, schema{}, false
	}
	c := i.db.GetCollection(collectionName, noEmbedding)
	return c, s, c != nil
}

func (i *Index) Upsert(ctx context.Context, collectionName string, records []commonModels.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	c, s, ok := i.collection(collectionName)
	if !ok {
		return &commonModels.UpsertError{
			Collection: collectionName,
			Records:    len(records),
			Err:        commonModels.ErrUnknownCollection,
		}
	}
	if err := vectorDB.CheckVectors(collectionName, s.Dimension, records); err != nil {
		return err
	}

	docs := make([]chromem.Document, len(records))
	for n, r := range records {
		docs[n] = chromem.Document{
			ID:        r.Id,
			Content:   r.Payload.Text,
			Embedding: r.Vector,
			Metadata: map[string]string{
				commonModels.PayloadSourceFile: r.Payload.SourceFile,
				commonModels.PayloadSourcePath: r.Payload.SourcePath,
				commonModels.PayloadChunkIndex: strconv.Itoa(r.Payload.ChunkIndex),
			},
		}
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return &commonModels.UpsertError{
			Collection: collectionName,
			Records:    len(records),
			Retryable:  ctx.Err() == nil,
			Err:        err,
		}
	}
	return nil
}

func (i *Index) Search(ctx context.Context, collectionName string, vector []float32, topK int, threshold float32) ([]commonModels.SearchResult, error) {
	if topK <= 0 {
		return []commonModels.SearchResult{}, nil
	}
	c, s, ok := i.collection(collectionName)
	if !ok {
		return nil, fmt.Errorf("searching %q: %w", collectionName, commonModels.ErrUnknownCollection)
	}
	if len(vector) != s.Dimension {
		return nil, fmt.Errorf("searching %q: %w", collectionName, commonModels.ErrDimensionMismatch)
	}

	// chromem refuses nResults above the document count
	n := min(topK, c.Count())
	if n == 0 {
		return []commonModels.SearchResult{}, nil
	}
	hits, err := c.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", collectionName, err)
	}

	results := make([]commonModels.SearchResult, 0, len(hits))
	for _, h := range hits {
		if h.Similarity < threshold {
			continue
		}
		chunkIndex, _ := strconv.Atoi(h.Metadata[commonModels.PayloadChunkIndex])
		results = append(results, commonModels.SearchResult{
			Record: commonModels.IndexRecord{
				Id: h.ID,
				Payload: commonModels.Payload{
					Text:       h.Content,
					SourceFile: h.Metadata[commonModels.PayloadSourceFile],
					SourcePath: h.Metadata[commonModels.PayloadSourcePath],
					ChunkIndex: chunkIndex,
				},
			},
			Score: h.Similarity,
		})
	}
	return vectorDB.Rank(results), nil
}

// Count reports the stored records, zero for unknown collections.
func (i *Index) Count(collectionName string) int {
	c, _, ok := i.collection(collectionName)
	if !ok {
		return 0
	}
	return c.Count()
}
