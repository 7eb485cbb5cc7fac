package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD                         = false
	LOG_LEVEL_PROD                  = slog.LevelInfo
	FALLBACK_REDIS_TO_INTERNALSTORE = true //if redis init fails, it falls back to an internals in-memory store
	TRACE_ID_KEY                    = "traceId"
	RATE_LIMIT_PER_SECOND           = 2
	BURST_RATE_LIMIT_PER_SECOND     = 5

	//embeddings - text-embedding-3-small is 1536 wide
	EmbeddingOutputDimensionality int32 = 1536
	EmbeddingDBName                     = "legal_documents_collection"
	OpenAIEmbeddingModel                = "text-embedding-3-small"
	GoogleEmbeddingModel                = "gemini-embedding-001"
	OpenAIMaxEmbeddingInputs            = 2048 //per request cap on the embeddings endpoint

	//chunking
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
	PageExtractTimeout  = 10 * time.Second

	//ingestion
	DefaultUpsertBatchSize = 20
	DefaultMaxRetries      = 3
	DefaultRetryBaseDelay  = 1 * time.Second
	DefaultRetryMaxDelay   = 30 * time.Second
	DefaultIngestWorkers   = 1

	//retrieval
	DefaultTopK           = 3
	DefaultScoreThreshold = 0.50

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	QueryJobTimeout                 = 2 * time.Minute
	IngestJobTimeout                = 30 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//upload
	MaxUploadSize   = 32 << 20 //32mb
	UploadDirectory = "temporary_data"

	//vectorDB
	QdrantConnectionTimeout = 60 * time.Second
	QdrantHost              = "localhost"
	QdrantGrpcPort          = 6334
	QdrantUseTLS            = false            //set for https
	QdrantPoolSize          = 1                //2-5 is preferred for prod according to documentation
	QdrantKeepAliveTime     = 30 * time.Second //5 * time.Minute for prod maybe- fine tune for performance
	QdrantKeepAliveTimeout  = 10 * time.Second

	//llm
	OpenAIChatModel  = "gpt-4o-mini"
	GeminiModelName  = "gemini-2.5-flash-lite"
	MaxToolRounds    = 4
	ModelTemperature = 0.2

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisJobStore = 0

	//redis timeouts
	RedisJobStoreTTL = 24 * time.Hour
)
