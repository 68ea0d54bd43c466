package qdrant

import (
	"encoding/json"
	"testing"

	"github.com/virachai/vision-iq/internal/domain"
)

func TestDecodeCandidate(t *testing.T) {
	item := searchResultItem{
		ID:    json.RawMessage(`"img-42"`),
		Score: 0.87,
		Payload: map[string]any{
			"url":         "https://img.example/img-42.jpg",
			"external_id": "unsplash-42",
			"metadata": map[string]any{
				"impact_score":  8,
				"visual_weight": 6,
				"composition": map[string]any{
					"shot_type": "WS",
					"angle":     "eye",
				},
				"mood_dna": map[string]any{
					"temp":          6100.0,
					"primary_color": "#FF6B6B",
					"vibe":          "hopeful",
				},
				"metaphorical_tags": []any{"dawn", "open road"},
			},
		},
	}

	cand, ok := decodeCandidate(item)
	if !ok {
		t.Fatalf("decodeCandidate failed")
	}
	if cand.ID != "img-42" {
		t.Fatalf("ID: want=img-42 got=%s", cand.ID)
	}
	if cand.Similarity != 0.87 {
		t.Fatalf("Similarity: want=0.87 got=%v", cand.Similarity)
	}
	if cand.Metadata.ImpactScore != 8 {
		t.Fatalf("ImpactScore: want=8 got=%d", cand.Metadata.ImpactScore)
	}
	if cand.Metadata.Composition.ShotType != domain.ShotWideShot {
		t.Fatalf("ShotType: want=WS got=%s", cand.Metadata.Composition.ShotType)
	}
	if cand.Metadata.MoodDNA.Temperature != 6100 {
		t.Fatalf("Temperature: want=6100 got=%v", cand.Metadata.MoodDNA.Temperature)
	}
	if len(cand.Metadata.MetaphoricalTags) != 2 {
		t.Fatalf("MetaphoricalTags: want=2 got=%d", len(cand.Metadata.MetaphoricalTags))
	}
}

func TestDecodeCandidateNumericPointID(t *testing.T) {
	item := searchResultItem{
		ID:    json.RawMessage(`17`),
		Score: 0.5,
		Payload: map[string]any{
			"url": "https://img.example/17.jpg",
		},
	}
	cand, ok := decodeCandidate(item)
	if !ok {
		t.Fatalf("decodeCandidate failed")
	}
	if cand.ID != "17" {
		t.Fatalf("ID: want=17 got=%s", cand.ID)
	}
}

func TestDecodeCandidateRejectsMissingURL(t *testing.T) {
	item := searchResultItem{
		ID:      json.RawMessage(`"img-1"`),
		Score:   0.9,
		Payload: map[string]any{"external_id": "x"},
	}
	if _, ok := decodeCandidate(item); ok {
		t.Fatalf("hit without url should be rejected")
	}
}
