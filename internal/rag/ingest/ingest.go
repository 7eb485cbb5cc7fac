package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
	"github.com/akolanti/LegalRAG/internal/metrics"
	"github.com/akolanti/LegalRAG/internal/rag/embedding"
	"github.com/akolanti/LegalRAG/internal/rag/retry"
	"github.com/akolanti/LegalRAG/internal/rag/vectorDB"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// namespace for content keyed record ids
var recordNamespace = uuid.MustParse("6f1d3c1e-8a52-4d0e-9a57-4c2b8e1f0a11")

type Deps struct {
	Extractor Extractor
	Splitter  *Splitter
	Embedder  embedding.Embedder
	Index     vectorDB.VectorIndex
}

type Option func(*Pipeline)

func WithCollection(name string) Option {
	return func(p *Pipeline) { p.collection = name }
}

func WithMetric(m commonModels.DistanceMetric) Option {
	return func(p *Pipeline) { p.metric = m }
}

func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Pipeline) { p.retry = policy }
}

// WithDeterministicIDs keys records by source path, chunk index and text so
// re-ingesting a file overwrites instead of duplicating.
func WithDeterministicIDs(on bool) Option {
	return func(p *Pipeline) { p.deterministicIDs = on }
}

type Pipeline struct {
	extractor        Extractor
	splitter         *Splitter
	embedder         embedding.Embedder
	index            vectorDB.VectorIndex
	collection       string
	metric           commonModels.DistanceMetric
	batchSize        int
	workers          int
	retry            retry.Policy
	deterministicIDs bool
	logger           *logger_i.Logger

	ensureMu sync.Mutex
	ensured  bool
}

func NewPipeline(deps Deps, opts ...Option) (*Pipeline, error) {
	if deps.Extractor == nil || deps.Embedder == nil || deps.Index == nil {
		return nil, errors.New("ingest: extractor, embedder and index are required")
	}
	if deps.Splitter == nil {
		s, err := NewSplitter(config.DefaultChunkSize, config.DefaultChunkOverlap)
		if err != nil {
			return nil, err
		}
		deps.Splitter = s
	}
	p := &Pipeline{
		extractor:  deps.Extractor,
		splitter:   deps.Splitter,
		embedder:   deps.Embedder,
		index:      deps.Index,
		collection: config.EmbeddingDBName,
		metric:     commonModels.Cosine,
		batchSize:  config.DefaultUpsertBatchSize,
		workers:    config.DefaultIngestWorkers,
		retry: retry.Policy{
			MaxAttempts: config.DefaultMaxRetries,
			BaseDelay:   config.DefaultRetryBaseDelay,
			MaxDelay:    config.DefaultRetryMaxDelay,
		},
		logger: logger_i.NewLogger("ingest"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.retry.Retryable == nil {
		p.retry.Retryable = commonModels.IsRetryable
	}
	return p, nil
}

func (p *Pipeline) Collection() string { return p.collection }

// ensureCollection runs once per pipeline; a failed attempt is tried again next time.
func (p *Pipeline) ensureCollection(ctx context.Context) error {
	p.ensureMu.Lock()
	defer p.ensureMu.Unlock()
	if p.ensured {
		return nil
	}
	if err := p.index.EnsureCollection(ctx, p.collection, p.embedder.Dimension(), p.metric); err != nil {
		return fmt.Errorf("ensuring collection %q: %w", p.collection, err)
	}
	p.ensured = true
	return nil
}

// Run ingests every PDF directly under dir. Per file failures are logged and
// recorded in the report; only collection setup, listing and cancellation
// return an error.
func (p *Pipeline) Run(ctx context.Context, dir string) (Report, error) {
	log := p.logger.WithTrace(ctx)
	if err := p.ensureCollection(ctx); err != nil {
		log.Error("collection setup failed", "collection", p.collection, "error", err)
		return Report{}, err
	}

	paths, err := listPDFs(dir)
	if err != nil {
		return Report{}, err
	}
	log.Info("ingesting directory", "dir", dir, "files", len(paths), "workers", p.workers)

	files := make([]FileReport, len(paths))
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fr, _ := p.ingestFile(ctx, path)
			files[i] = fr
			return nil
		})
	}
	_ = g.Wait()

	report := Report{}
	for _, fr := range files {
		if fr.Path == "" {
			continue
		}
		report.add(fr)
	}
	log.Info("ingestion finished",
		"files", report.FilesProcessed,
		"filesFailed", report.FilesFailed,
		"chunksStored", report.ChunksProcessed,
		"chunksDropped", report.ChunksDropped)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// IngestFile ingests one file. The error is the extraction or embedding
// failure that stopped it, dropped batches only show in the report.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (FileReport, error) {
	if err := p.ensureCollection(ctx); err != nil {
		return FileReport{Path: path, Name: filepath.Base(path), Error: err.Error()}, err
	}
	return p.ingestFile(ctx, path)
}

func (p *Pipeline) ingestFile(ctx context.Context, path string) (FileReport, error) {
	log := p.logger.WithTrace(ctx).With("file", path)
	fr := FileReport{Path: path, Name: filepath.Base(path)}

	fail := func(stage string, err error) (FileReport, error) {
		log.Error("file ingestion failed", "stage", stage, "error", err)
		metrics.IncrementFilesFailed()
		fr.Failed = true
		fr.Error = err.Error()
		return fr, err
	}

	doc, err := p.extractor.ExtractText(ctx, path)
	if err != nil {
		return fail("extract", err)
	}

	chunks := p.splitter.Chunks(doc.Text)
	fr.Chunks = len(chunks)
	if len(chunks) == 0 {
		log.Warn("no extractable text")
		return fr, nil
	}
	log.Debug("document chunked", "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fail("embed", err)
	}
	if len(vectors) != len(chunks) {
		return fail("embed", &commonModels.EmbeddingServiceError{
			Provider: "embedder",
			Err:      fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)),
		})
	}

	records := make([]commonModels.IndexRecord, len(chunks))
	for i, c := range chunks {
		records[i] = commonModels.IndexRecord{
			Id:     p.recordID(doc, c),
			Vector: vectors[i],
			Payload: commonModels.Payload{
				Text:       c.Text,
				SourceFile: doc.Name,
				SourcePath: doc.Path,
				ChunkIndex: c.Index,
			},
		}
	}

	for start := 0; start < len(records); start += p.batchSize {
		batch := records[start:min(start+p.batchSize, len(records))]
		if err := p.flush(ctx, log, start/p.batchSize, batch); err != nil {
			if ctx.Err() != nil {
				fr.Error = ctx.Err().Error()
				return fr, ctx.Err()
			}
			fr.ChunksDropped += len(batch)
			fr.BatchesDropped++
			metrics.AddChunksDropped(len(batch))
			continue
		}
		fr.ChunksStored += len(batch)
		metrics.AddChunksStored(len(batch))
	}

	if fr.ChunksDropped > 0 {
		log.Error("file partially ingested", "stored", fr.ChunksStored, "dropped", fr.ChunksDropped, "chunks", fr.Chunks)
	}
	return fr, nil
}

// flush writes one batch through the retry policy. A batch that still fails
// is dropped by the caller; it is never carried into the next batch.
func (p *Pipeline) flush(ctx context.Context, log *logger_i.Logger, batchNo int, batch []commonModels.IndexRecord) error {
	maxAttempts := max(p.retry.MaxAttempts, 1)
	attempts, err := p.retry.Do(ctx, func(ctx context.Context) error {
		return p.index.Upsert(ctx, p.collection, batch)
	}, func(attempt int, err error) {
		log.Warn("upsert attempt failed", "batch", batchNo, "attempt", attempt, "of", maxAttempts, "error", err)
		if attempt < maxAttempts && commonModels.IsRetryable(err) {
			metrics.IncrementUpsertRetries()
		}
	})
	if err != nil {
		log.Error("dropping batch after failed upserts", "batch", batchNo, "records", len(batch), "attempts", attempts, "error", err)
		return err
	}
	return nil
}

func (p *Pipeline) recordID(doc commonModels.Document, c commonModels.Chunk) string {
	if !p.deterministicIDs {
		return uuid.NewString()
	}
	key := doc.Path + "\x00" + strconv.Itoa(c.Index) + "\x00" + c.Text
	return uuid.NewSHA1(recordNamespace, []byte(key)).String()
}

// listPDFs returns the .pdf files directly under dir, ignoring case and subdirectories.
func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}
