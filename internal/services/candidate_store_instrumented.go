package services

import (
	"context"
	"time"

	"github.com/virachai/vision-iq/internal/domain"
	"github.com/virachai/vision-iq/internal/observability"
	"github.com/virachai/vision-iq/internal/platform/qdrant"
)

type instrumentedCandidateStore struct {
	inner   qdrant.CandidateStore
	metrics *observability.Metrics
}

// InstrumentCandidateStore wraps the vector store with op counters and
// latency histograms. With metrics disabled it is a pass-through.
func InstrumentCandidateStore(inner qdrant.CandidateStore) qdrant.CandidateStore {
	if inner == nil {
		return nil
	}
	return &instrumentedCandidateStore{
		inner:   inner,
		metrics: observability.Current(),
	}
}

func (s *instrumentedCandidateStore) SearchCandidates(ctx context.Context, vector []float32, minImpact, poolSize int) ([]domain.Candidate, error) {
	start := time.Now()
	out, err := s.inner.SearchCandidates(ctx, vector, minImpact, poolSize)
	s.observe("search", err, time.Since(start))
	return out, err
}

func (s *instrumentedCandidateStore) UpsertCandidates(ctx context.Context, points []qdrant.CandidatePoint) error {
	start := time.Now()
	err := s.inner.UpsertCandidates(ctx, points)
	s.observe("upsert", err, time.Since(start))
	return err
}

func (s *instrumentedCandidateStore) observe(op string, err error, dur time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveVectorOp(op, status, dur.Seconds())
}
