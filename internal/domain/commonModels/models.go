package commonModels

import (
	"fmt"
	"strings"
)

// Document only lives for the duration of an ingestion; its chunks are what gets stored.
type Document struct {
	Name string `json:"source_file"`
	Path string `json:"document_path"`
	Text string `json:"-"`
}

type Chunk struct {
	Index int    `json:"chunk_index"`
	Text  string `json:"text"`
}

// payload keys as stored in the vector index
const (
	PayloadText       = "text"
	PayloadSourceFile = "source_file"
	PayloadSourcePath = "document_path"
	PayloadChunkIndex = "chunk_index"
)

type Payload struct {
	Text       string `json:"text"`
	SourceFile string `json:"source_file"`
	SourcePath string `json:"document_path"`
	ChunkIndex int    `json:"chunk_index"`
}

func (p Payload) AsMap() map[string]any {
	return map[string]any{
		PayloadText:       p.Text,
		PayloadSourceFile: p.SourceFile,
		PayloadSourcePath: p.SourcePath,
		PayloadChunkIndex: int64(p.ChunkIndex),
	}
}

type IndexRecord struct {
	Id      string    `json:"id"`
	Vector  []float32 `json:"-"`
	Payload Payload   `json:"payload"`
}

type SearchResult struct {
	Record IndexRecord `json:"record"`
	Score  float32     `json:"score"`
	Rank   int         `json:"rank"`
}

// Source renders the citation used in job responses.
func (r SearchResult) Source() string {
	return fmt.Sprintf("%s (chunk %d, score %.2f)", r.Record.Payload.SourceFile, r.Record.Payload.ChunkIndex, r.Score)
}

type DistanceMetric string

const (
	Cosine DistanceMetric = "cosine"
	Dot    DistanceMetric = "dot"
	Euclid DistanceMetric = "euclid"
)

func ParseDistanceMetric(s string) (DistanceMetric, error) {
	switch m := DistanceMetric(strings.ToLower(strings.TrimSpace(s))); m {
	case Cosine, Dot, Euclid:
		return m, nil
	case "":
		return Cosine, nil
	default:
		return "", fmt.Errorf("unknown distance metric %q", s)
	}
}
