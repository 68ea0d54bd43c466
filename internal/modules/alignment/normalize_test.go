package alignment

import (
	"testing"

	"github.com/virachai/vision-iq/internal/domain"
)

func TestNormalizeSceneFillsDefaults(t *testing.T) {
	got := NormalizeScene(domain.Scene{Intent: "x", RequiredImpact: 14})
	if got.RequiredImpact != 10 {
		t.Fatalf("impact clamp: want=10 got=%d", got.RequiredImpact)
	}
	if got.PreferredComposition.ShotType != domain.ShotMediumShot {
		t.Fatalf("shot default: want=MS got=%s", got.PreferredComposition.ShotType)
	}
	if got.PreferredComposition.Angle != domain.AngleEye {
		t.Fatalf("angle default: want=eye got=%s", got.PreferredComposition.Angle)
	}

	if got := NormalizeScene(domain.Scene{Intent: "y"}); got.RequiredImpact != 1 {
		t.Fatalf("impact floor: want=1 got=%d", got.RequiredImpact)
	}
}

func TestNormalizeCandidateMood(t *testing.T) {
	cases := []struct {
		name      string
		mood      domain.MoodDNA
		wantTemp  float64
		wantClass domain.TemperatureClass
	}{
		{
			name:      "absent_mood_stays_absent",
			mood:      domain.MoodDNA{},
			wantTemp:  0,
			wantClass: "",
		},
		{
			name:      "partial_mood_gets_neutral_temp",
			mood:      domain.MoodDNA{Vibe: "serene"},
			wantTemp:  5500,
			wantClass: domain.TemperatureWarm,
		},
		{
			name:      "kelvin_only_derives_warm_class",
			mood:      domain.MoodDNA{Temperature: 6200},
			wantTemp:  6200,
			wantClass: domain.TemperatureWarm,
		},
		{
			name:      "kelvin_only_derives_cold_class",
			mood:      domain.MoodDNA{Temperature: 3100},
			wantTemp:  3100,
			wantClass: domain.TemperatureCold,
		},
		{
			name:      "explicit_class_is_kept",
			mood:      domain.MoodDNA{Temperature: 6200, TemperatureClass: domain.TemperatureCold},
			wantTemp:  6200,
			wantClass: domain.TemperatureCold,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeCandidate(domain.Candidate{
				Metadata: domain.CandidateMetadata{ImpactScore: 5, MoodDNA: tc.mood},
			}).Metadata.MoodDNA
			if got.Temperature != tc.wantTemp {
				t.Fatalf("temperature: want=%v got=%v", tc.wantTemp, got.Temperature)
			}
			if got.TemperatureClass != tc.wantClass {
				t.Fatalf("class: want=%q got=%q", tc.wantClass, got.TemperatureClass)
			}
		})
	}
}

func TestMoodTempDefault(t *testing.T) {
	if got := moodTemp(domain.MoodDNA{}); got != 5500 {
		t.Fatalf("moodTemp default: want=5500 got=%v", got)
	}
	if got := moodTemp(domain.MoodDNA{Temperature: 4200}); got != 4200 {
		t.Fatalf("moodTemp passthrough: want=4200 got=%v", got)
	}
}
