package domain

type TemperatureClass string

const (
	TemperatureWarm TemperatureClass = "warm"
	TemperatureCold TemperatureClass = "cold"
)

// MoodDNA is an image's color-temperature/vibe/rhythm fingerprint.
// Temperature is the canonical Kelvin-like value used for distance math;
// TemperatureClass is the categorical form used for the warm/cold penalty
// and is derived from Temperature when the source payload omits it.
type MoodDNA struct {
	Temperature        float64          `json:"temp,omitempty"`
	TemperatureClass   TemperatureClass `json:"temperature_class,omitempty"`
	PrimaryColor       string           `json:"primary_color,omitempty"`
	Vibe               string           `json:"vibe,omitempty"`
	EmotionalIntensity float64          `json:"emotional_intensity,omitempty"`
	Rhythm             string           `json:"rhythm,omitempty"`
}

func (m MoodDNA) IsZero() bool {
	return m.Temperature == 0 &&
		m.TemperatureClass == "" &&
		m.PrimaryColor == "" &&
		m.Vibe == "" &&
		m.EmotionalIntensity == 0 &&
		m.Rhythm == ""
}

type CandidateMetadata struct {
	ImpactScore      int         `json:"impact_score"`
	VisualWeight     int         `json:"visual_weight,omitempty"`
	Composition      Composition `json:"composition"`
	MoodDNA          MoodDNA     `json:"mood_dna"`
	MetaphoricalTags []string    `json:"metaphorical_tags,omitempty"`
}

// Candidate is a read-only library image snapshot returned by the
// candidate store for one scene, with its vector similarity attached.
type Candidate struct {
	ID         string            `json:"id"`
	ExternalID string            `json:"external_id,omitempty"`
	URL        string            `json:"url"`
	Similarity float64           `json:"similarity"`
	Metadata   CandidateMetadata `json:"metadata"`
}

type SubScores struct {
	VectorSimilarity float64 `json:"vector_similarity"`
	ImpactRelevance  float64 `json:"impact_relevance"`
	CompositionMatch float64 `json:"composition_match"`
	MoodConsistency  float64 `json:"mood_consistency_score"`
	IntentDepth      float64 `json:"intent_depth_score,omitempty"`
}

// ImageMatch is the per-scene output record: the candidate plus its
// composite match score and sub-scores. Produced fresh per request.
type ImageMatch struct {
	Candidate
	MatchScore float64   `json:"match_score"`
	Scores     SubScores `json:"scores"`
}

// Cluster is a mood-coherent, non-empty slice of a scene's ranked matches.
type Cluster struct {
	Matches []ImageMatch `json:"matches"`
}

func (c Cluster) Empty() bool { return len(c.Matches) == 0 }
