package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_AreValid(t *testing.T) {
	s := Defaults()
	require.NoError(t, s.Validate())
	assert.Equal(t, 500, s.ChunkSize)
	assert.Equal(t, 50, s.ChunkOverlap)
	assert.Equal(t, 20, s.BatchSize)
	assert.Equal(t, 3, s.MaxRetries)
	assert.Equal(t, 3, s.TopK)
	assert.InDelta(t, 0.50, s.ScoreThreshold, 1e-9)
	assert.Equal(t, "legal_documents_collection", s.CollectionName)
	assert.Equal(t, 1536, s.Dimension)
}

func TestFromEnvironment_Overrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "800")
	t.Setenv("CHUNK_OVERLAP", "100")
	t.Setenv("RETRY_BASE_DELAY", "250ms")
	t.Setenv("SCORE_THRESHOLD", "0.7")
	t.Setenv("VECTOR_BACKEND", "chromem")
	t.Setenv("DETERMINISTIC_IDS", "true")

	s, err := FromEnvironment()
	require.NoError(t, err)
	assert.Equal(t, 800, s.ChunkSize)
	assert.Equal(t, 100, s.ChunkOverlap)
	assert.Equal(t, 250*time.Millisecond, s.RetryBaseDelay)
	assert.InDelta(t, 0.7, s.ScoreThreshold, 1e-9)
	assert.Equal(t, "chromem", s.VectorBackend)
	assert.True(t, s.DeterministicIDs)
	// untouched values keep their defaults
	assert.Equal(t, 20, s.BatchSize)
}

func TestFromEnvironment_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"overlap not smaller than size", "CHUNK_OVERLAP", "500"},
		{"zero batch", "BATCH_SIZE", "0"},
		{"unknown backend", "VECTOR_BACKEND", "pinecone"},
		{"unknown llm", "LLM_PROVIDER", "cohere"},
		{"not a number", "TOP_K", "three"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := FromEnvironment()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ReadsDotenvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("COLLECTION_NAME=dotenv_collection\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("COLLECTION_NAME") })

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dotenv_collection", s.CollectionName)
}

func TestLoad_MissingDotenvIsNotAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}
