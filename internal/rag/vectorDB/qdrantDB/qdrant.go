package qdrantDB

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
	"github.com/akolanti/LegalRAG/internal/rag/vectorDB"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

type Config struct {
	// URL like http://localhost:6334, https switches on TLS
	URL     string
	APIKey  string
	Timeout time.Duration
}

type ClientHolder struct {
	QObj    *qdrant.Client
	timeout time.Duration
	logger  *logger_i.Logger

	mu      sync.RWMutex
	schemas map[string]schema
}

type schema struct {
	dimension int
	distance  qdrant.Distance
}

func New(cfg Config) (*ClientHolder, error) {
	host, port, useTLS, err := parseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.QdrantConnectionTimeout
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		APIKey:   cfg.APIKey,
		UseTLS:   useTLS,
		PoolSize: uint(config.QdrantPoolSize),
		GrpcOptions: []grpc.DialOption{
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:    config.QdrantKeepAliveTime,
				Timeout: config.QdrantKeepAliveTimeout,
			}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not instantiate qdrant client: %w", err)
	}

	logger := logger_i.NewLogger("Qdrant")
	logger.Info("Qdrant client created", "host", host, "port", port, "tls", useTLS)
	return &ClientHolder{
		QObj:    client,
		timeout: cfg.Timeout,
		logger:  logger,
		schemas: make(map[string]schema),
	}, nil
}

func parseURL(raw string) (host string, port int, useTLS bool, err error) {
	if raw == "" {
		return config.QdrantHost, config.QdrantGrpcPort, config.QdrantUseTLS, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid QDRANT_URL %q: %w", raw, err)
	}
	if u.Hostname() == "" {
		return "", 0, false, fmt.Errorf("invalid QDRANT_URL %q: missing host", raw)
	}
	port = config.QdrantGrpcPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, false, fmt.Errorf("invalid QDRANT_URL port %q: %w", p, err)
		}
	}
	return u.Hostname(), port, u.Scheme == "https", nil
}

func (db *ClientHolder) Close() error {
	db.logger.Info("Shutting down Qdrant")
	return db.QObj.Close()
}

func (db *ClientHolder) EnsureCollection(ctx context.Context, collectionName string, dimension int, metric commonModels.DistanceMetric) error {
	if collectionName == "" {
		return commonModels.ErrEmptyCollectionName
	}
	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()
	loggr := db.logger.WithTrace(ctx)

	want := toDistance(metric)
	exists, err := db.QObj.CollectionExists(ctx, collectionName)
	if err != nil {
		return fmt.Errorf("checking collection %q: %w", collectionName, err)
	}

	if exists {
		info, err := db.QObj.GetCollectionInfo(ctx, collectionName)
		if err != nil {
			return fmt.Errorf("reading collection %q: %w", collectionName, err)
		}
		params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
		if params.GetSize() != uint64(dimension) || params.GetDistance() != want {
			return &commonModels.SchemaMismatchError{
				Collection:    collectionName,
				WantDimension: uint64(dimension),
				GotDimension:  params.GetSize(),
				WantMetric:    metric,
				GotMetric:     fromDistance(params.GetDistance()),
			}
		}
		db.remember(collectionName, schema{dimension, want})
		return nil
	}

	loggr.Info("Creating collection", "collectionName", collectionName, "size", dimension, "distance", metric)
	err = db.QObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: want,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", collectionName, err)
	}
	db.remember(collectionName, schema{dimension, want})
	return nil
}

func (db *ClientHolder) remember(collectionName string, s schema) {
	db.mu.Lock()
	db.schemas[collectionName] = s
	db.mu.Unlock()
}

func (db *ClientHolder) schema(collectionName string) (schema, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	s, ok := db.schemas[collectionName]
	return s, ok
}

// distance reads the collection config once when a search runs before EnsureCollection.
func (db *ClientHolder) distance(ctx context.Context, collectionName string) (qdrant.Distance, error) {
	if s, ok := db.schema(collectionName); ok {
		return s.distance, nil
	}
	info, err := db.QObj.GetCollectionInfo(ctx, collectionName)
	if err != nil {
		return 0, fmt.Errorf("reading collection %q: %w", collectionName, err)
	}
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	db.remember(collectionName, schema{int(params.GetSize()), params.GetDistance()})
	return params.GetDistance(), nil
}

func (db *ClientHolder) Upsert(ctx context.Context, collectionName string, records []commonModels.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	if s, ok := db.schema(collectionName); ok {
		if err := vectorDB.CheckVectors(collectionName, s.dimension, records); err != nil {
			return err
		}
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(r.Id),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: qdrant.NewValueMap(r.Payload.AsMap()),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()
	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return classifyUpsertError(collectionName, len(records), err)
	}
	return nil
}

func (db *ClientHolder) Search(ctx context.Context, collectionName string, vector []float32, topK int, threshold float32) ([]commonModels.SearchResult, error) {
	if topK <= 0 {
		return []commonModels.SearchResult{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()
	loggr := db.logger.WithTrace(ctx)

	distance, err := db.distance(ctx, collectionName)
	if err != nil {
		loggr.Error("Error reading collection distance", "error", err)
		return nil, err
	}

	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		ScoreThreshold: scoreThreshold(distance, threshold),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Error querying Qdrant", "error", err)
		return nil, fmt.Errorf("qdrant query on %q: %w", collectionName, err)
	}

	matches := make([]commonModels.SearchResult, 0, len(result))
	for _, hit := range result {
		score := similarity(distance, hit.GetScore())
		if score < threshold {
			continue
		}
		matches = append(matches, commonModels.SearchResult{
			Record: commonModels.IndexRecord{
				Id:      pointID(hit.GetId()),
				Payload: payloadFrom(hit.GetPayload()),
			},
			Score: score,
		})
	}
	loggr.Debug("Found matches", "count", len(matches))
	return vectorDB.Rank(matches), nil
}

func pointID(id *qdrant.PointId) string {
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

func payloadFrom(p map[string]*qdrant.Value) commonModels.Payload {
	return commonModels.Payload{
		Text:       p[commonModels.PayloadText].GetStringValue(),
		SourceFile: p[commonModels.PayloadSourceFile].GetStringValue(),
		SourcePath: p[commonModels.PayloadSourcePath].GetStringValue(),
		ChunkIndex: int(p[commonModels.PayloadChunkIndex].GetIntegerValue()),
	}
}
