package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	out [][]float32
	err error
}

func (s stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return s.out, s.err
}
func (s stubEmbedder) Dimension() int { return 2 }

func TestCheckResult(t *testing.T) {
	tests := []struct {
		name    string
		inputs  int
		vectors [][]float32
		wantErr bool
	}{
		{"matching", 2, [][]float32{{1, 2}, {3, 4}}, false},
		{"count mismatch", 3, [][]float32{{1, 2}, {3, 4}}, true},
		{"wrong dimension", 2, [][]float32{{1, 2}, {3}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckResult("test", tt.inputs, tt.vectors, 2)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var svcErr *commonModels.EmbeddingServiceError
			assert.True(t, errors.As(err, &svcErr))
		})
	}
}

func TestCheckResult_DimensionMatchesSentinel(t *testing.T) {
	err := CheckResult("test", 1, [][]float32{{1}}, 2)
	assert.ErrorIs(t, err, commonModels.ErrDimensionMismatch)
}

func TestEmbedOne(t *testing.T) {
	v, err := EmbedOne(context.Background(), stubEmbedder{out: [][]float32{{0.5, 0.5}}}, "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, v)

	_, err = EmbedOne(context.Background(), stubEmbedder{err: errors.New("down")}, "q")
	assert.Error(t, err)
}

type queryStub struct {
	stubEmbedder
	queries []string
}

func (q *queryStub) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	q.queries = append(q.queries, text)
	return []float32{1, 0}, nil
}

func TestEmbedOne_PrefersQueryEmbedding(t *testing.T) {
	e := &queryStub{stubEmbedder: stubEmbedder{err: errors.New("batch path must not be used")}}

	v, err := EmbedOne(context.Background(), e, "notice period")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, v)
	assert.Equal(t, []string{"notice period"}, e.queries)
}
