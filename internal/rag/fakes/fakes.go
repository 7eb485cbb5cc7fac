// Package fakes holds in-memory stand-ins for the external services, shared by package tests.
package fakes

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
	"github.com/akolanti/LegalRAG/internal/rag/llm"
	"github.com/akolanti/LegalRAG/internal/rag/vectorDB"
)

// Embedder returns Vectors[text] when set, otherwise a hash derived vector.
type Embedder struct {
	Dim     int
	Vectors map[string][]float32
	OnEmbed func(ctx context.Context, texts []string) ([][]float32, error)

	mu    sync.Mutex
	Calls [][]string
}

func (e *Embedder) Dimension() int {
	if e.Dim == 0 {
		return 4
	}
	return e.Dim
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.Calls = append(e.Calls, append([]string(nil), texts...))
	e.mu.Unlock()

	if e.OnEmbed != nil {
		return e.OnEmbed(ctx, texts)
	}
	if len(texts) == 0 {
		return nil, &commonModels.EmbeddingServiceError{Provider: "fake", Err: errors.New("no texts to embed")}
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := e.Vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = HashVector(t, e.Dimension())
	}
	return out, nil
}

func (e *Embedder) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Calls)
}

// HashVector is a deterministic non-zero vector for text.
func HashVector(text string, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		h := fnv.New32a()
		_, _ = h.Write([]byte{byte(i)})
		_, _ = h.Write([]byte(text))
		v[i] = float32(h.Sum32()%1000)/1000 + 0.001
	}
	return v
}

type collection struct {
	dimension int
	metric    commonModels.DistanceMetric
	records   map[string]commonModels.IndexRecord
	order     []string
}

// Index is a brute force cosine index. OnUpsert runs before a batch is stored
// and can fail it; call counts from 1.
type Index struct {
	OnUpsert func(call int, records []commonModels.IndexRecord) error
	OnSearch func(vector []float32) error

	mu          sync.Mutex
	collections map[string]*collection
	UpsertCalls int
	SearchCalls int
	EnsureCalls int
}

var _ vectorDB.VectorIndex = (*Index)(nil)

func NewIndex() *Index {
	return &Index{collections: make(map[string]*collection)}
}

func (x *Index) Close() error { return nil }

func (x *Index) EnsureCollection(ctx context.Context, name string, dimension int, metric commonModels.DistanceMetric) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.EnsureCalls++
	if name == "" {
		return commonModels.ErrEmptyCollectionName
	}
	if c, ok := x.collections[name]; ok {
		if c.dimension != dimension || c.metric != metric {
			return &commonModels.SchemaMismatchError{
				Collection:    name,
				WantDimension: uint64(dimension),
				GotDimension:  uint64(c.dimension),
				WantMetric:    metric,
				GotMetric:     c.metric,
			}
		}
		return nil
	}
	x.collections[name] = &collection{dimension: dimension, metric: metric, records: make(map[string]commonModels.IndexRecord)}
	return nil
}

func (x *Index) Upsert(ctx context.Context, name string, records []commonModels.IndexRecord) error {
	x.mu.Lock()
	x.UpsertCalls++
	call := x.UpsertCalls
	hook := x.OnUpsert
	x.mu.Unlock()

	if hook != nil {
		if err := hook(call, records); err != nil {
			return err
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	c, ok := x.collections[name]
	if !ok {
		return &commonModels.UpsertError{Collection: name, Records: len(records), Err: commonModels.ErrUnknownCollection}
	}
	if err := vectorDB.CheckVectors(name, c.dimension, records); err != nil {
		return err
	}
	for _, r := range records {
		if _, seen := c.records[r.Id]; !seen {
			c.order = append(c.order, r.Id)
		}
		c.records[r.Id] = r
	}
	return nil
}

func (x *Index) Search(ctx context.Context, name string, vector []float32, topK int, threshold float32) ([]commonModels.SearchResult, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.SearchCalls++
	if x.OnSearch != nil {
		if err := x.OnSearch(vector); err != nil {
			return nil, err
		}
	}
	results := []commonModels.SearchResult{}
	if topK <= 0 {
		return results, nil
	}
	c, ok := x.collections[name]
	if !ok {
		return nil, commonModels.ErrUnknownCollection
	}
	for _, id := range c.order {
		r := c.records[id]
		score := Cosine(vector, r.Vector)
		if score >= threshold {
			results = append(results, commonModels.SearchResult{Record: r, Score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return vectorDB.Rank(results), nil
}

// Stored lists the records of a collection in first insertion order.
func (x *Index) Stored(name string) []commonModels.IndexRecord {
	x.mu.Lock()
	defer x.mu.Unlock()
	c, ok := x.collections[name]
	if !ok {
		return nil
	}
	out := make([]commonModels.IndexRecord, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.records[id])
	}
	return out
}

func Cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return -1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// LLM records every request and answers through OnComplete.
type LLM struct {
	OnComplete func(ctx context.Context, req llm.Request) (string, error)

	mu       sync.Mutex
	Requests []llm.Request
}

func (l *LLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	l.mu.Lock()
	l.Requests = append(l.Requests, req)
	l.mu.Unlock()
	if l.OnComplete != nil {
		return l.OnComplete(ctx, req)
	}
	return "mocked llm response", nil
}

// Clock records sleeps without waiting.
type Clock struct {
	mu    sync.Mutex
	Slept []time.Duration
}

func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.Slept = append(c.Slept, d)
	c.mu.Unlock()
	return ctx.Err()
}

// Extractor serves documents by file base name.
type Extractor struct {
	Texts  map[string]string
	Errors map[string]error
}

func (e *Extractor) ExtractText(ctx context.Context, path string) (commonModels.Document, error) {
	name := filepath.Base(path)
	if err, ok := e.Errors[name]; ok {
		return commonModels.Document{}, &commonModels.ExtractionError{Path: path, Err: err}
	}
	return commonModels.Document{Name: name, Path: path, Text: e.Texts[name]}, nil
}
