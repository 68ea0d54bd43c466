package alignment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/virachai/vision-iq/internal/domain"
	"github.com/virachai/vision-iq/internal/platform/logger"
)

const (
	// DefaultTopK is the per-scene result size when the caller passes none.
	DefaultTopK = 5

	// defaultPoolSize is the candidate pool requested from the store.
	defaultPoolSize = 50

	// preClusterCap bounds the ranked list handed to the clusterer.
	preClusterCap = 5

	// impactSlack relaxes the server-side impact filter below the target.
	impactSlack = 2
)

// Embedder turns scene text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CandidateStore returns nearest-neighbor library candidates for a scene
// vector, already filtered server-side by minimum impact and similarity.
type CandidateStore interface {
	SearchCandidates(ctx context.Context, vector []float32, minImpact, poolSize int) ([]domain.Candidate, error)
}

// FallbackTrigger is the zero-match remediation hook. Implementations own
// their error handling; the engine never waits on it.
type FallbackTrigger interface {
	TriggerAutoResync(ctx context.Context, intentText string)
}

type Deps struct {
	Log      *logger.Logger
	Embedder Embedder
	Store    CandidateStore
	Fallback FallbackTrigger

	// PoolSize overrides the candidate pool size when > 0.
	PoolSize int
}

// Options are per-request knobs for FindAlignedImages.
type Options struct {
	TopK                      int
	MoodConsistencyMultiplier float64
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.MoodConsistencyMultiplier <= 0 {
		o.MoodConsistencyMultiplier = 1.0
	}
	return o
}

// Engine drives the per-scene alignment pipeline: embed, fetch candidates,
// score, cluster, select, propagate continuity state. Scenes are processed
// strictly in order; scene i's cluster selection depends on the mood of
// scene i-1's winner and, for i > 0, on the immutable anchor from scene 0.
// All continuity state is request-scoped, so concurrent calls need no
// coordination.
type Engine struct {
	log      *logger.Logger
	embedder Embedder
	store    CandidateStore
	fallback FallbackTrigger
	scorer   *Scorer
	poolSize int
}

func NewEngine(deps Deps, weights ScoreWeights) (*Engine, error) {
	if deps.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("candidate store required")
	}
	poolSize := deps.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	return &Engine{
		log:      deps.Log.With("component", "AlignmentEngine"),
		embedder: deps.Embedder,
		store:    deps.Store,
		fallback: deps.Fallback,
		scorer:   NewScorer(weights),
		poolSize: poolSize,
	}, nil
}

// FindAlignedImages maps an ordered scene sequence onto per-scene ranked
// image lists. The output always has one inner list per input scene; a
// scene whose retrieval fails, or whose pool filters down to nothing,
// yields an empty inner list and the sequence continues.
func (e *Engine) FindAlignedImages(ctx context.Context, scenes []domain.Scene, opts Options) ([][]domain.ImageMatch, error) {
	if len(scenes) == 0 {
		return nil, fmt.Errorf("at least one scene is required")
	}
	opts = opts.withDefaults()

	var anchor *domain.MoodDNA
	var prevMood *domain.MoodDNA

	out := make([][]domain.ImageMatch, 0, len(scenes))
	for i, raw := range scenes {
		scene := NormalizeScene(raw)

		selection, err := e.alignScene(ctx, scene, i, anchor, prevMood, opts)
		if err != nil {
			e.log.Warn("Scene alignment failed; continuing with empty result",
				"scene_index", i,
				"error", err,
			)
			out = append(out, []domain.ImageMatch{})
			continue
		}

		if len(selection) == 0 {
			e.log.Info("No candidates matched scene; triggering auto-resync",
				"scene_index", i,
			)
			e.spawnFallback(raw.Intent)
			out = append(out, selection)
			continue
		}

		topMood := selection[0].Metadata.MoodDNA
		if i == 0 {
			a := topMood
			anchor = &a
		}
		m := topMood
		prevMood = &m

		out = append(out, selection)
	}

	return out, nil
}

func (e *Engine) alignScene(ctx context.Context, scene domain.Scene, index int, anchor, prevMood *domain.MoodDNA, opts Options) ([]domain.ImageMatch, error) {
	vector, err := e.embedder.Embed(ctx, EmbeddingText(scene))
	if err != nil {
		return nil, fmt.Errorf("embed scene: %w", err)
	}

	minImpact := scene.RequiredImpact - impactSlack
	pool, err := e.store.SearchCandidates(ctx, vector, minImpact, e.poolSize)
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}
	if len(pool) == 0 {
		return []domain.ImageMatch{}, nil
	}

	ranked := e.rankPool(scene, pool, anchor, opts.MoodConsistencyMultiplier)
	if len(ranked) > preClusterCap {
		ranked = ranked[:preClusterCap]
	}

	clusters := GroupByMood(ranked)
	var contextMood *domain.MoodDNA
	if index > 0 {
		contextMood = prevMood
	}
	best := SelectBest(clusters, contextMood)

	final := make([]domain.ImageMatch, len(best.Matches))
	copy(final, best.Matches)
	sort.SliceStable(final, func(i, j int) bool {
		return final[i].MatchScore > final[j].MatchScore
	})
	if len(final) > opts.TopK {
		final = final[:opts.TopK]
	}
	return final, nil
}

// rankPool scores the whole pool against one scene and returns it sorted
// by descending match score; ties keep the original pool order.
func (e *Engine) rankPool(scene domain.Scene, pool []domain.Candidate, anchor *domain.MoodDNA, multiplier float64) []domain.ImageMatch {
	ranked := make([]domain.ImageMatch, 0, len(pool))
	for _, c := range pool {
		ranked = append(ranked, e.scorer.Score(ScoreInput{
			Scene:          scene,
			Candidate:      NormalizeCandidate(c),
			Anchor:         anchor,
			MoodMultiplier: multiplier,
		}))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MatchScore > ranked[j].MatchScore
	})
	return ranked
}

// spawnFallback launches the zero-match remediation without awaiting it.
// The goroutine gets a fresh background context: the fallback must outlive
// the request and must never delay or fail the alignment response.
func (e *Engine) spawnFallback(intentText string) {
	if e.fallback == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("Auto-resync fallback panicked", "panic", r)
			}
		}()
		e.fallback.TriggerAutoResync(context.Background(), intentText)
	}()
}

// EmbeddingText builds the retrieval text for a scene: the raw intent,
// enriched with emotional and spatial layer words when a visual intent is
// present.
func EmbeddingText(scene domain.Scene) string {
	parts := []string{strings.TrimSpace(scene.Intent)}
	if vi := scene.VisualIntent; vi != nil {
		if vi.Emotional != nil {
			parts = append(parts, vi.Emotional.IntentWords...)
			if vi.Emotional.Vibe != "" {
				parts = append(parts, vi.Emotional.Vibe)
			}
		}
		if vi.Spatial != nil {
			parts = append(parts, vi.Spatial.StrategyWords...)
		}
	}
	clean := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, " ")
}
