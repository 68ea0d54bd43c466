package alignment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/virachai/vision-iq/internal/domain"
	"github.com/virachai/vision-iq/internal/platform/logger"
)

type stubEmbedder struct {
	calls int
	err   error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type stubStore struct {
	pools [][]domain.Candidate
	errs  []error
	calls int
}

func (s *stubStore) SearchCandidates(ctx context.Context, vector []float32, minImpact, poolSize int) ([]domain.Candidate, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.pools) {
		return s.pools[i], nil
	}
	return nil, nil
}

type stubFallback struct {
	mu      sync.Mutex
	intents []string
	fired   chan string
}

func newStubFallback() *stubFallback {
	return &stubFallback{fired: make(chan string, 8)}
}

func (s *stubFallback) TriggerAutoResync(ctx context.Context, intentText string) {
	s.mu.Lock()
	s.intents = append(s.intents, intentText)
	s.mu.Unlock()
	s.fired <- intentText
}

func (s *stubFallback) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.intents)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func testEngine(t *testing.T, store CandidateStore, fallback FallbackTrigger) *Engine {
	t.Helper()
	eng, err := NewEngine(Deps{
		Log:      testLogger(t),
		Embedder: &stubEmbedder{},
		Store:    store,
		Fallback: fallback,
	}, DefaultScoreWeights())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng
}

func candidateWithMood(id string, similarity float64, impact int, temp float64, color string) domain.Candidate {
	return domain.Candidate{
		ID:         id,
		URL:        "https://img.example/" + id + ".jpg",
		Similarity: similarity,
		Metadata: domain.CandidateMetadata{
			ImpactScore: impact,
			Composition: domain.Composition{ShotType: domain.ShotMediumShot, Angle: domain.AngleEye},
			MoodDNA:     domain.MoodDNA{Temperature: temp, PrimaryColor: color},
		},
	}
}

func simpleScene(intent string, impact int) domain.Scene {
	return domain.Scene{
		Intent:         intent,
		RequiredImpact: impact,
		PreferredComposition: domain.Composition{
			ShotType: domain.ShotMediumShot,
			Angle:    domain.AngleEye,
		},
	}
}

func TestFindAlignedImagesRejectsEmptyInput(t *testing.T) {
	eng := testEngine(t, &stubStore{}, nil)
	if _, err := eng.FindAlignedImages(context.Background(), nil, Options{}); err == nil {
		t.Fatalf("empty scene list should be rejected")
	}
}

func TestOutputLengthAlwaysMatchesSceneCount(t *testing.T) {
	store := &stubStore{
		pools: [][]domain.Candidate{
			{candidateWithMood("a", 0.9, 5, 6000, "#FF6B6B")},
			nil, // search error for scene 1
			{candidateWithMood("b", 0.8, 5, 6100, "#FF8C6B")},
		},
		errs: []error{nil, errors.New("qdrant unavailable"), nil},
	}
	eng := testEngine(t, store, newStubFallback())

	scenes := []domain.Scene{
		simpleScene("opening", 5),
		simpleScene("broken middle", 5),
		simpleScene("closing", 5),
	}
	out, err := eng.FindAlignedImages(context.Background(), scenes, Options{})
	if err != nil {
		t.Fatalf("FindAlignedImages: %v", err)
	}
	if len(out) != len(scenes) {
		t.Fatalf("output length: want=%d got=%d", len(scenes), len(out))
	}
	if len(out[1]) != 0 {
		t.Fatalf("failed scene should yield empty list, got %d matches", len(out[1]))
	}
	if len(out[0]) == 0 || len(out[2]) == 0 {
		t.Fatalf("healthy scenes should yield matches: %d, %d", len(out[0]), len(out[2]))
	}
}

func TestFirstSceneMoodConsistencyIsAlwaysOne(t *testing.T) {
	store := &stubStore{
		pools: [][]domain.Candidate{{
			candidateWithMood("a", 0.9, 5, 6000, "#FF6B6B"),
			candidateWithMood("b", 0.7, 5, 3000, "#4A90E2"),
		}},
	}
	eng := testEngine(t, store, nil)

	out, err := eng.FindAlignedImages(context.Background(), []domain.Scene{simpleScene("opening", 5)}, Options{})
	if err != nil {
		t.Fatalf("FindAlignedImages: %v", err)
	}
	for _, m := range out[0] {
		if m.Scores.MoodConsistency != 1.0 {
			t.Fatalf("first scene mood consistency: want=1.0 got=%v (id=%s)", m.Scores.MoodConsistency, m.ID)
		}
	}
}

func TestMatchesSortedByScoreDescending(t *testing.T) {
	store := &stubStore{
		pools: [][]domain.Candidate{{
			candidateWithMood("low", 0.4, 5, 6000, "#FF6B6B"),
			candidateWithMood("high", 0.95, 5, 6050, "#FF6B6B"),
			candidateWithMood("mid", 0.7, 5, 6100, "#FF6B6B"),
		}},
	}
	eng := testEngine(t, store, nil)

	out, err := eng.FindAlignedImages(context.Background(), []domain.Scene{simpleScene("opening", 5)}, Options{})
	if err != nil {
		t.Fatalf("FindAlignedImages: %v", err)
	}
	matches := out[0]
	for i := 1; i < len(matches); i++ {
		if matches[i].MatchScore > matches[i-1].MatchScore {
			t.Fatalf("matches not sorted descending at %d: %v > %v", i, matches[i].MatchScore, matches[i-1].MatchScore)
		}
	}
	if matches[0].ID != "high" {
		t.Fatalf("top match: want=high got=%s", matches[0].ID)
	}
}

func TestTopKTruncatesSelection(t *testing.T) {
	pool := []domain.Candidate{
		candidateWithMood("a", 0.95, 5, 6000, "#FF6B6B"),
		candidateWithMood("b", 0.90, 5, 6010, "#FF6B6B"),
		candidateWithMood("c", 0.85, 5, 6020, "#FF6B6B"),
		candidateWithMood("d", 0.80, 5, 6030, "#FF6B6B"),
	}
	store := &stubStore{pools: [][]domain.Candidate{pool}}
	eng := testEngine(t, store, nil)

	out, err := eng.FindAlignedImages(context.Background(), []domain.Scene{simpleScene("opening", 5)}, Options{TopK: 2})
	if err != nil {
		t.Fatalf("FindAlignedImages: %v", err)
	}
	if len(out[0]) != 2 {
		t.Fatalf("topK=2 truncation: want=2 got=%d", len(out[0]))
	}
}

func TestAnchorPenalizesLaterSceneDrift(t *testing.T) {
	// Scene 0 locks a warm anchor; scene 1's only candidate is cold, so its
	// mood consistency must dip below 1.0 but stay above the floor.
	store := &stubStore{
		pools: [][]domain.Candidate{
			{candidateWithMood("warm", 0.9, 5, 6000, "#FF6B6B")},
			{candidateWithMood("cold", 0.9, 5, 3000, "#4A90E2")},
		},
	}
	eng := testEngine(t, store, nil)

	out, err := eng.FindAlignedImages(context.Background(), []domain.Scene{
		simpleScene("warm opening", 5),
		simpleScene("cold turn", 5),
	}, Options{})
	if err != nil {
		t.Fatalf("FindAlignedImages: %v", err)
	}
	if len(out[1]) != 1 {
		t.Fatalf("scene 1 matches: want=1 got=%d", len(out[1]))
	}
	mc := out[1][0].Scores.MoodConsistency
	if mc >= 1.0 || mc < 0.7 {
		t.Fatalf("scene 1 mood consistency: want in [0.7,1.0) got=%v", mc)
	}
}

func TestPreviousSceneMoodSteersClusterChoice(t *testing.T) {
	// Scene 0 establishes a cold mood. Scene 1 offers two equal-similarity
	// mood bands; the cold band must win via the continuity bonus even
	// though the warm band scores marginally higher on similarity.
	store := &stubStore{
		pools: [][]domain.Candidate{
			{candidateWithMood("seed-cold", 0.9, 5, 3000, "#4A90E2")},
			{
				candidateWithMood("warm-1", 0.84, 5, 6000, "#4A90E2"),
				candidateWithMood("cold-1", 0.80, 5, 3100, "#4A90E2"),
			},
		},
	}
	eng := testEngine(t, store, nil)

	out, err := eng.FindAlignedImages(context.Background(), []domain.Scene{
		simpleScene("cold opening", 5),
		simpleScene("continuation", 5),
	}, Options{})
	if err != nil {
		t.Fatalf("FindAlignedImages: %v", err)
	}
	if len(out[1]) == 0 {
		t.Fatalf("scene 1 produced no matches")
	}
	if out[1][0].ID != "cold-1" {
		t.Fatalf("continuity bonus should favor the cold band, got %s", out[1][0].ID)
	}
}

func TestZeroMatchTriggersFallbackOnce(t *testing.T) {
	fallback := newStubFallback()
	store := &stubStore{pools: [][]domain.Candidate{{}}}
	eng := testEngine(t, store, fallback)

	start := time.Now()
	out, err := eng.FindAlignedImages(context.Background(), []domain.Scene{simpleScene("nothing in the library", 5)}, Options{})
	if err != nil {
		t.Fatalf("FindAlignedImages: %v", err)
	}
	if len(out) != 1 || len(out[0]) != 0 {
		t.Fatalf("zero-match scene should yield one empty list, got %+v", out)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("alignment blocked on fallback: %v", elapsed)
	}

	select {
	case intent := <-fallback.fired:
		if intent != "nothing in the library" {
			t.Fatalf("fallback intent: want original scene text, got %q", intent)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("fallback never fired")
	}
	if n := fallback.count(); n != 1 {
		t.Fatalf("fallback calls: want=1 got=%d", n)
	}
}

func TestEmbeddingTextEnrichedByIntentLayers(t *testing.T) {
	scene := domain.Scene{
		Intent: "a harbor at dusk",
		VisualIntent: &domain.VisualIntent{
			Emotional: &domain.EmotionalLayer{IntentWords: []string{"longing"}, Vibe: "melancholy"},
			Spatial:   &domain.SpatialLayer{StrategyWords: []string{"open water"}},
		},
	}
	got := EmbeddingText(scene)
	want := "a harbor at dusk longing melancholy open water"
	if got != want {
		t.Fatalf("EmbeddingText=%q, want %q", got, want)
	}
}
