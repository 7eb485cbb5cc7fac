package qdrantDB

import (
	"fmt"

	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// classifyUpsertError splits validation failures, which will fail the same way
// again, from transport failures.
func classifyUpsertError(collectionName string, records int, err error) error {
	upsertErr := &commonModels.UpsertError{
		Collection: collectionName,
		Records:    records,
		Retryable:  true,
		Err:        err,
	}
	s, ok := status.FromError(err)
	if !ok {
		return upsertErr
	}
	switch s.Code() {
	case codes.NotFound:
		upsertErr.Retryable = false
		upsertErr.Err = fmt.Errorf("%w: %v", commonModels.ErrUnknownCollection, err)
	case codes.InvalidArgument, codes.FailedPrecondition, codes.PermissionDenied, codes.Unauthenticated:
		upsertErr.Retryable = false
	}
	return upsertErr
}

func toDistance(m commonModels.DistanceMetric) qdrant.Distance {
	switch m {
	case commonModels.Dot:
		return qdrant.Distance_Dot
	case commonModels.Euclid:
		return qdrant.Distance_Euclid
	default:
		return qdrant.Distance_Cosine
	}
}

func fromDistance(d qdrant.Distance) commonModels.DistanceMetric {
	switch d {
	case qdrant.Distance_Dot:
		return commonModels.Dot
	case qdrant.Distance_Euclid:
		return commonModels.Euclid
	case qdrant.Distance_Cosine:
		return commonModels.Cosine
	default:
		return commonModels.DistanceMetric(d.String())
	}
}

// similarity keeps higher-is-better scores for every metric. Euclid hits
// come back as distances and are reported as 1/(1+distance).
func similarity(d qdrant.Distance, score float32) float32 {
	if d == qdrant.Distance_Euclid {
		return 1 / (1 + score)
	}
	return score
}

// scoreThreshold turns a similarity threshold into what Qdrant expects for the
// metric. For euclid that is an upper bound on the distance, and a threshold
// at or below zero filters nothing.
func scoreThreshold(d qdrant.Distance, threshold float32) *float32 {
	if d != qdrant.Distance_Euclid {
		return qdrant.PtrOf(threshold)
	}
	if threshold <= 0 {
		return nil
	}
	return qdrant.PtrOf(1/threshold - 1)
}
