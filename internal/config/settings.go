package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Settings is the process level configuration. Zero values are filled from the
// constants in this package before the environment is applied.
type Settings struct {
	LogLevel string `env:"LOG_LEVEL"`
	LogJSON  bool   `env:"LOG_JSON"`

	ListenAddr   string  `env:"LISTEN_ADDR"`
	AuthToken    string  `env:"AUTH_TOKEN"`
	NoAuthBypass bool    `env:"NO_AUTH_BYPASS"`
	UploadDir    string  `env:"UPLOAD_DIR"`
	RateLimit    float64 `env:"RATE_LIMIT_PER_SECOND"`
	RateBurst    int     `env:"RATE_LIMIT_BURST"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// qdrant | chromem
	VectorBackend  string        `env:"VECTOR_BACKEND"`
	QdrantURL      string        `env:"QDRANT_URL"`
	QdrantAPIKey   string        `env:"QDRANT_API_KEY"`
	QdrantTimeout  time.Duration `env:"QDRANT_TIMEOUT"`
	ChromemPath    string        `env:"CHROMEM_PATH"`
	CollectionName string        `env:"COLLECTION_NAME"`
	Dimension      int           `env:"EMBEDDING_DIMENSION"`
	Distance       string        `env:"DISTANCE_METRIC"`

	// openai | google
	EmbeddingProvider string `env:"EMBEDDING_PROVIDER"`
	EmbeddingModel    string `env:"EMBEDDING_MODEL"`
	LLMProvider       string `env:"LLM_PROVIDER"`
	LLMModel          string `env:"LLM_MODEL"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string `env:"OPENAI_BASE_URL"`
	GoogleAPIKey      string `env:"GOOGLE_API_KEY"`

	DataDir          string        `env:"DATA_DIR"`
	ChunkSize        int           `env:"CHUNK_SIZE"`
	ChunkOverlap     int           `env:"CHUNK_OVERLAP"`
	BatchSize        int           `env:"BATCH_SIZE"`
	MaxRetries       int           `env:"MAX_RETRIES"`
	RetryBaseDelay   time.Duration `env:"RETRY_BASE_DELAY"`
	IngestWorkers    int           `env:"INGEST_WORKERS"`
	DeterministicIDs bool          `env:"DETERMINISTIC_IDS"`

	TopK           int     `env:"TOP_K"`
	ScoreThreshold float64 `env:"SCORE_THRESHOLD"`
}

// Defaults returns the settings built only from package constants.
func Defaults() Settings {
	return Settings{
		LogLevel:          "debug",
		LogJSON:           IS_PROD,
		ListenAddr:        ServerListenAddr,
		UploadDir:         UploadDirectory,
		RateLimit:         RATE_LIMIT_PER_SECOND,
		RateBurst:         BURST_RATE_LIMIT_PER_SECOND,
		RedisAddr:         RedisAddr,
		VectorBackend:     "qdrant",
		QdrantURL:         fmt.Sprintf("http://%s:%d", QdrantHost, QdrantGrpcPort),
		QdrantTimeout:     QdrantConnectionTimeout,
		CollectionName:    EmbeddingDBName,
		Dimension:         int(EmbeddingOutputDimensionality),
		Distance:          "cosine",
		EmbeddingProvider: "openai",
		EmbeddingModel:    OpenAIEmbeddingModel,
		LLMProvider:       "openai",
		LLMModel:          OpenAIChatModel,
		DataDir:           "./data",
		ChunkSize:         DefaultChunkSize,
		ChunkOverlap:      DefaultChunkOverlap,
		BatchSize:         DefaultUpsertBatchSize,
		MaxRetries:        DefaultMaxRetries,
		RetryBaseDelay:    DefaultRetryBaseDelay,
		IngestWorkers:     DefaultIngestWorkers,
		TopK:              DefaultTopK,
		ScoreThreshold:    DefaultScoreThreshold,
	}
}

// Load reads an optional .env file and then the process environment on top of
// the defaults.
func Load(dotenvFiles ...string) (Settings, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("loading dotenv: %w", err)
	}
	return FromEnvironment()
}

// FromEnvironment applies environment variables on top of the defaults.
func FromEnvironment() (Settings, error) {
	s := Defaults()
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parsing environment: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	var errs []error
	if s.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", s.ChunkSize))
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", s.ChunkOverlap))
	}
	if s.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("BATCH_SIZE must be positive, got %d", s.BatchSize))
	}
	if s.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("MAX_RETRIES must be positive, got %d", s.MaxRetries))
	}
	if s.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", s.Dimension))
	}
	if s.TopK <= 0 {
		errs = append(errs, fmt.Errorf("TOP_K must be positive, got %d", s.TopK))
	}
	if s.IngestWorkers <= 0 {
		errs = append(errs, fmt.Errorf("INGEST_WORKERS must be positive, got %d", s.IngestWorkers))
	}
	switch strings.ToLower(s.VectorBackend) {
	case "qdrant", "chromem":
	default:
		errs = append(errs, fmt.Errorf("unknown VECTOR_BACKEND %q", s.VectorBackend))
	}
	switch strings.ToLower(s.EmbeddingProvider) {
	case "openai", "google":
	default:
		errs = append(errs, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", s.EmbeddingProvider))
	}
	switch strings.ToLower(s.LLMProvider) {
	case "openai", "google":
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", s.LLMProvider))
	}
	return errors.Join(errs...)
}
