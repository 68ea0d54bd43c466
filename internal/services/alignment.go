package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/virachai/vision-iq/internal/domain"
	"github.com/virachai/vision-iq/internal/modules/alignment"
	"github.com/virachai/vision-iq/internal/observability"
	"github.com/virachai/vision-iq/internal/platform/logger"
)

// maxScenesPerRequest bounds one storyboard request; anything larger should
// be split by the caller.
const maxScenesPerRequest = 100

type AlignmentService interface {
	AlignStoryboard(ctx context.Context, scenes []domain.Scene, opts alignment.Options) ([][]domain.ImageMatch, error)
}

type alignmentService struct {
	log     *logger.Logger
	engine  *alignment.Engine
	metrics *observability.Metrics
}

func NewAlignmentService(baseLog *logger.Logger, engine *alignment.Engine) AlignmentService {
	return &alignmentService{
		log:     baseLog.With("service", "AlignmentService"),
		engine:  engine,
		metrics: observability.Current(),
	}
}

func (s *alignmentService) AlignStoryboard(ctx context.Context, scenes []domain.Scene, opts alignment.Options) ([][]domain.ImageMatch, error) {
	if err := validateScenes(scenes); err != nil {
		return nil, err
	}

	start := time.Now()
	matches, err := s.engine.FindAlignedImages(ctx, scenes, opts)
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveAlignment(status, len(scenes), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	for i, sceneMatches := range matches {
		if len(sceneMatches) == 0 {
			s.metrics.AlignmentEmptySelection()
			s.log.Warn("Scene produced no matches", "scene_index", i)
		}
	}
	return matches, nil
}

func validateScenes(scenes []domain.Scene) error {
	if len(scenes) == 0 {
		return fmt.Errorf("at least one scene is required")
	}
	if len(scenes) > maxScenesPerRequest {
		return fmt.Errorf("too many scenes: %d (max %d)", len(scenes), maxScenesPerRequest)
	}
	for i, sc := range scenes {
		if strings.TrimSpace(sc.Intent) == "" {
			return fmt.Errorf("scene %d has no intent text", i)
		}
	}
	return nil
}
