package services

import (
	"context"
	"testing"

	"github.com/virachai/vision-iq/internal/domain"
	"github.com/virachai/vision-iq/internal/modules/alignment"
	"github.com/virachai/vision-iq/internal/platform/logger"
)

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.5, 0.5}, nil
}

type fixedStore struct {
	pool []domain.Candidate
}

func (s *fixedStore) SearchCandidates(ctx context.Context, vector []float32, minImpact, poolSize int) ([]domain.Candidate, error) {
	return s.pool, nil
}

func testAlignmentService(t *testing.T, pool []domain.Candidate) AlignmentService {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	engine, err := alignment.NewEngine(alignment.Deps{
		Log:      log,
		Embedder: fixedEmbedder{},
		Store:    &fixedStore{pool: pool},
	}, alignment.DefaultScoreWeights())
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return NewAlignmentService(log, engine)
}

func TestAlignStoryboardRejectsEmptyScenes(t *testing.T) {
	svc := testAlignmentService(t, nil)
	if _, err := svc.AlignStoryboard(context.Background(), nil, alignment.Options{}); err == nil {
		t.Fatalf("expected error for empty scene list")
	}
}

func TestAlignStoryboardRejectsBlankIntent(t *testing.T) {
	svc := testAlignmentService(t, nil)
	scenes := []domain.Scene{
		{Intent: "opening shot", RequiredImpact: 5},
		{Intent: "   ", RequiredImpact: 5},
	}
	if _, err := svc.AlignStoryboard(context.Background(), scenes, alignment.Options{}); err == nil {
		t.Fatalf("expected error for blank intent")
	}
}

func TestAlignStoryboardRejectsOversizedRequest(t *testing.T) {
	svc := testAlignmentService(t, nil)
	scenes := make([]domain.Scene, maxScenesPerRequest+1)
	for i := range scenes {
		scenes[i] = domain.Scene{Intent: "scene", RequiredImpact: 5}
	}
	if _, err := svc.AlignStoryboard(context.Background(), scenes, alignment.Options{}); err == nil {
		t.Fatalf("expected error for oversized request")
	}
}

func TestAlignStoryboardReturnsPerSceneMatches(t *testing.T) {
	pool := []domain.Candidate{
		{
			ID:         "c1",
			URL:        "https://img.example/c1",
			Similarity: 0.9,
			Metadata:   domain.CandidateMetadata{ImpactScore: 6, VisualWeight: 5},
		},
		{
			ID:         "c2",
			URL:        "https://img.example/c2",
			Similarity: 0.7,
			Metadata:   domain.CandidateMetadata{ImpactScore: 5, VisualWeight: 5},
		},
	}
	svc := testAlignmentService(t, pool)

	scenes := []domain.Scene{
		{Intent: "opening shot", RequiredImpact: 5},
		{Intent: "closing shot", RequiredImpact: 5},
	}
	out, err := svc.AlignStoryboard(context.Background(), scenes, alignment.Options{TopK: 1})
	if err != nil {
		t.Fatalf("AlignStoryboard: %v", err)
	}
	if len(out) != len(scenes) {
		t.Fatalf("got %d scene results, want %d", len(out), len(scenes))
	}
	for i, matches := range out {
		if len(matches) != 1 {
			t.Fatalf("scene %d: got %d matches, want 1", i, len(matches))
		}
		if matches[0].ID != "c1" {
			t.Fatalf("scene %d: best match %q, want c1", i, matches[0].ID)
		}
	}
}
