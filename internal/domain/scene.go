package domain

// ShotType is the ordered shot scale used for composition matching.
// Adjacency on the CU -> MS -> WS ladder matters to the scorer.
type ShotType string

const (
	ShotCloseUp    ShotType = "CU"
	ShotMediumShot ShotType = "MS"
	ShotWideShot   ShotType = "WS"
)

type CameraAngle string

const (
	AngleLow  CameraAngle = "low"
	AngleEye  CameraAngle = "eye"
	AngleHigh CameraAngle = "high"
)

type NegativeSpace string

const (
	NegativeSpaceLeft   NegativeSpace = "left"
	NegativeSpaceRight  NegativeSpace = "right"
	NegativeSpaceCenter NegativeSpace = "center"
)

type Composition struct {
	NegativeSpace    NegativeSpace `json:"negative_space,omitempty"`
	ShotType         ShotType      `json:"shot_type,omitempty"`
	Angle            CameraAngle   `json:"angle,omitempty"`
	Balance          string        `json:"balance,omitempty"`
	SubjectDominance string        `json:"subject_dominance,omitempty"`
}

// EmotionalLayer carries the feeling the frame should land.
type EmotionalLayer struct {
	IntentWords []string `json:"intent_words,omitempty"`
	Vibe        string   `json:"vibe,omitempty"`
}

type SpatialLayer struct {
	StrategyWords []string `json:"strategy_words,omitempty"`
	ShotType      ShotType `json:"shot_type,omitempty"`
	Balance       string   `json:"balance,omitempty"`
}

type SubjectLayer struct {
	TreatmentWords []string `json:"treatment_words,omitempty"`
	Identity       string   `json:"identity,omitempty"`
	Dominance      string   `json:"dominance,omitempty"`
}

type ColorLayer struct {
	TemperatureWords []string         `json:"temperature_words,omitempty"`
	Temperature      TemperatureClass `json:"temperature,omitempty"`
	Contrast         string           `json:"contrast,omitempty"`
}

// VisualIntent is the optional four-layer elaboration of a scene.
// Any subset of layers may be present.
type VisualIntent struct {
	Emotional *EmotionalLayer `json:"emotional,omitempty"`
	Spatial   *SpatialLayer   `json:"spatial,omitempty"`
	Subject   *SubjectLayer   `json:"subject,omitempty"`
	Color     *ColorLayer     `json:"color,omitempty"`
}

// Scene is one narrative beat requiring a matching image. Scenes are
// immutable inputs; the engine never mutates them.
type Scene struct {
	Intent               string        `json:"intent"`
	RequiredImpact       int           `json:"required_impact"`
	PreferredComposition Composition   `json:"preferred_composition"`
	VisualIntent         *VisualIntent `json:"visual_intent,omitempty"`
}
