package alignment

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/virachai/vision-iq/internal/domain"
)

// ScoreWeights is the immutable ranking configuration. Downstream ordering
// depends on the exact default values; alternative sets exist for tests.
type ScoreWeights struct {
	VectorSimilarity float64
	ImpactRelevance  float64
	CompositionMatch float64
	MoodConsistency  float64

	// Composite = min(1, base * (DepthBase + DepthSpan*intentDepth)).
	DepthBase float64
	DepthSpan float64
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		VectorSimilarity: 0.5,
		ImpactRelevance:  0.3,
		CompositionMatch: 0.15,
		MoodConsistency:  0.05,
		DepthBase:        0.8,
		DepthSpan:        0.2,
	}
}

type Scorer struct {
	weights ScoreWeights
}

func NewScorer(weights ScoreWeights) *Scorer {
	return &Scorer{weights: weights}
}

// ScoreInput pairs one scene with one candidate. Anchor is nil for the
// first scene of a sequence; MoodMultiplier is the caller-supplied
// mood-consistency multiplier (1.0 when unset).
type ScoreInput struct {
	Scene          domain.Scene
	Candidate      domain.Candidate
	Anchor         *domain.MoodDNA
	MoodMultiplier float64
}

// Score computes the four sub-scores and the composite match score for a
// normalized (scene, candidate) pair. Pure and deterministic.
func (s *Scorer) Score(in ScoreInput) domain.ImageMatch {
	w := s.weights

	vectorSim := in.Candidate.Similarity
	impactRel := impactRelevance(in.Scene.RequiredImpact, in.Candidate.Metadata.ImpactScore)
	compMatch := compositionMatch(in.Scene.PreferredComposition, in.Candidate.Metadata.Composition)
	moodScore := moodConsistency(in.Anchor, in.Candidate.Metadata.MoodDNA)
	depth := intentDepth(in.Scene.VisualIntent, in.Candidate)

	base := w.VectorSimilarity*vectorSim +
		w.ImpactRelevance*impactRel +
		w.CompositionMatch*compMatch +
		w.MoodConsistency*moodScore*in.MoodMultiplier

	match := math.Min(1, base*(w.DepthBase+w.DepthSpan*depth))

	return domain.ImageMatch{
		Candidate:  in.Candidate,
		MatchScore: match,
		Scores: domain.SubScores{
			VectorSimilarity: vectorSim,
			ImpactRelevance:  impactRel,
			CompositionMatch: compMatch,
			MoodConsistency:  moodScore,
			IntentDepth:      depth,
		},
	}
}

func impactRelevance(required, actual int) float64 {
	diff := math.Abs(float64(required - actual))
	return math.Max(0, 1-diff/10)
}

var shotOrder = map[domain.ShotType]int{
	domain.ShotCloseUp:    0,
	domain.ShotMediumShot: 1,
	domain.ShotWideShot:   2,
}

// compositionMatch scores shot type and camera angle. Shot types one step
// apart on the CU/MS/WS ladder still earn partial credit; any angle earns
// a small consolation so angle never zeroes a frame out entirely.
func compositionMatch(want, got domain.Composition) float64 {
	score := 0.0

	if want.ShotType == got.ShotType {
		score += 0.5
	} else {
		wi, wok := shotOrder[want.ShotType]
		gi, gok := shotOrder[got.ShotType]
		if wok && gok && abs(wi-gi) == 1 {
			score += 0.25
		}
	}

	if want.Angle == got.Angle {
		score += 0.5
	} else {
		score += 0.1
	}

	return math.Min(1, score)
}

// moodConsistency penalizes drift from the sequence anchor. The first scene
// has no anchor and always scores 1.0; a missing mood on either side is
// neutral (0.5), not penalized further.
func moodConsistency(anchor *domain.MoodDNA, mood domain.MoodDNA) float64 {
	if anchor == nil {
		return 1.0
	}
	if anchor.IsZero() || mood.IsZero() {
		return 0.5
	}

	score := 1.0
	if anchor.TemperatureClass != mood.TemperatureClass {
		score -= 0.2
	}
	if dist, ok := rgbDistance(anchor.PrimaryColor, mood.PrimaryColor); ok {
		score -= 0.1 * math.Min(1, dist/300)
	}
	return math.Max(0, score)
}

// intentDepth averages layer affinity across the present visual-intent
// layers; no layers (or no intent at all) is neutral 1.0.
func intentDepth(vi *domain.VisualIntent, c domain.Candidate) float64 {
	if vi == nil {
		return 1.0
	}

	var scores []float64

	if vi.Emotional != nil && len(vi.Emotional.IntentWords) > 0 {
		scores = append(scores, wordHitFraction(vi.Emotional.IntentWords, strings.Join(c.Metadata.MetaphoricalTags, " ")))
	}

	if vi.Color != nil && vi.Color.Temperature != "" {
		if vi.Color.Temperature == c.Metadata.MoodDNA.TemperatureClass {
			scores = append(scores, 1.0)
		} else {
			scores = append(scores, 0.0)
		}
	}

	if vi.Subject != nil && len(vi.Subject.TreatmentWords) > 0 {
		blob, err := json.Marshal(c.Metadata)
		if err != nil {
			scores = append(scores, 0.0)
		} else {
			scores = append(scores, wordHitFraction(vi.Subject.TreatmentWords, string(blob)))
		}
	}

	if len(scores) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, v := range scores {
		sum += v
	}
	return sum / float64(len(scores))
}

func wordHitFraction(words []string, haystack string) float64 {
	if len(words) == 0 {
		return 0
	}
	hay := strings.ToLower(haystack)
	found := 0
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if strings.Contains(hay, w) {
			found++
		}
	}
	return float64(found) / float64(len(words))
}

// rgbDistance is the Euclidean distance between two hex colors. Reports
// false when either color fails to parse, so callers skip the penalty
// instead of guessing.
func rgbDistance(a, b string) (float64, bool) {
	ar, ag, ab, ok := parseHexColor(a)
	if !ok {
		return 0, false
	}
	br, bg, bb, ok := parseHexColor(b)
	if !ok {
		return 0, false
	}
	dr := ar - br
	dg := ag - bg
	db := ab - bb
	return math.Sqrt(dr*dr + dg*dg + db*db), true
}

func parseHexColor(s string) (r, g, b float64, ok bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	val, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return float64(val >> 16 & 0xFF), float64(val >> 8 & 0xFF), float64(val & 0xFF), true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
