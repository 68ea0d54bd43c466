package services

import (
	"context"
	"strings"

	"github.com/virachai/vision-iq/internal/jobs/resync"
	"github.com/virachai/vision-iq/internal/observability"
	"github.com/virachai/vision-iq/internal/platform/dbctx"
	"github.com/virachai/vision-iq/internal/platform/logger"
	"github.com/virachai/vision-iq/internal/platform/openai"
)

// KeywordExtractor narrows the AI client to what the resync path needs.
type KeywordExtractor interface {
	ExtractSearchKeywords(ctx context.Context, intentText string) (string, error)
}

// ResyncService turns a zero-match scene into a queued library_resync job.
// It runs on the engine's fire-and-forget path, so every failure is logged
// and swallowed rather than surfaced to the caller.
type ResyncService struct {
	log      *logger.Logger
	keywords KeywordExtractor
	jobs     JobService
	metrics  *observability.Metrics
}

func NewResyncService(baseLog *logger.Logger, keywords KeywordExtractor, jobs JobService) *ResyncService {
	return &ResyncService{
		log:      baseLog.With("service", "ResyncService"),
		keywords: keywords,
		jobs:     jobs,
		metrics:  observability.Current(),
	}
}

var _ KeywordExtractor = (openai.Client)(nil)

func (s *ResyncService) TriggerAutoResync(ctx context.Context, intentText string) {
	intentText = strings.TrimSpace(intentText)
	if intentText == "" {
		return
	}

	raw, err := s.keywords.ExtractSearchKeywords(ctx, intentText)
	if err != nil {
		s.log.Warn("Keyword extraction failed, skipping resync", "error", err)
		return
	}
	keywords := splitKeywords(raw)
	if len(keywords) == 0 {
		s.log.Warn("Keyword extraction returned nothing usable", "intent", intentText)
		return
	}

	job, err := s.jobs.Enqueue(dbctx.Context{Ctx: ctx}, resync.JobType, map[string]any{
		"intent":   intentText,
		"keywords": keywords,
	})
	if err != nil {
		s.log.Warn("Resync enqueue failed", "error", err)
		return
	}
	s.metrics.FallbackEnqueued()
	s.log.Info("Auto-resync enqueued", "job_id", job.ID, "keywords", keywords)
}

func splitKeywords(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == ' ' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
