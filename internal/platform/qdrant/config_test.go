package qdrant

import (
	"errors"
	"testing"
)

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name     string
		cfg      Config
		wantCode ConfigErrorCode
	}{
		{
			name: "valid",
			cfg:  Config{URL: "http://qdrant:6333", Collection: "images", VectorDim: 1536},
		},
		{
			name:     "missing_url",
			cfg:      Config{Collection: "images", VectorDim: 1536},
			wantCode: ConfigErrorMissingURL,
		},
		{
			name:     "relative_url",
			cfg:      Config{URL: "qdrant:6333", Collection: "images", VectorDim: 1536},
			wantCode: ConfigErrorInvalidURL,
		},
		{
			name:     "missing_collection",
			cfg:      Config{URL: "http://qdrant:6333", VectorDim: 1536},
			wantCode: ConfigErrorMissingCollection,
		},
		{
			name:     "missing_vector_dim",
			cfg:      Config{URL: "http://qdrant:6333", Collection: "images"},
			wantCode: ConfigErrorMissingVectorDim,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateConfig(tc.cfg)
			if tc.wantCode == "" {
				if err != nil {
					t.Fatalf("ValidateConfig: unexpected error %v", err)
				}
				return
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("ValidateConfig: want ConfigError, got %T (%v)", err, err)
			}
			if cfgErr.Code != tc.wantCode {
				t.Fatalf("ConfigError.Code: want=%s got=%s", tc.wantCode, cfgErr.Code)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "images")
	t.Setenv("QDRANT_VECTOR_DIM", "1536")
	t.Setenv("QDRANT_SIMILARITY_FLOOR", "0.25")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.VectorDim != 1536 {
		t.Fatalf("VectorDim: want=1536 got=%d", cfg.VectorDim)
	}
	if cfg.SimilarityFloor != 0.25 {
		t.Fatalf("SimilarityFloor: want=0.25 got=%v", cfg.SimilarityFloor)
	}
}

func TestConfigFromEnvDefaultsSimilarityFloor(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "images")
	t.Setenv("QDRANT_VECTOR_DIM", "1536")
	t.Setenv("QDRANT_SIMILARITY_FLOOR", "")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.SimilarityFloor != defaultSimilarityFloor {
		t.Fatalf("SimilarityFloor default: want=%v got=%v", defaultSimilarityFloor, cfg.SimilarityFloor)
	}
}
