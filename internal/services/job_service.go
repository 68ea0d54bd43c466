package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/virachai/vision-iq/internal/data/repos"
	"github.com/virachai/vision-iq/internal/domain"
	"github.com/virachai/vision-iq/internal/observability"
	"github.com/virachai/vision-iq/internal/platform/dbctx"
	"github.com/virachai/vision-iq/internal/platform/logger"
)

type JobService interface {
	Enqueue(dbc dbctx.Context, jobType string, payload map[string]any) (*domain.JobRun, error)
	GetByID(dbc dbctx.Context, jobID uuid.UUID) (*domain.JobRun, error)
}

type jobService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.JobRunRepo
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo) JobService {
	return &jobService{
		db:   db,
		log:  baseLog.With("service", "JobService"),
		repo: repo,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, jobType string, payload map[string]any) (*domain.JobRun, error) {
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	var raw datatypes.JSON
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		raw = datatypes.JSON(b)
	}

	job := &domain.JobRun{
		ID:      uuid.New(),
		JobType: jobType,
		Status:  domain.JobStatusQueued,
		Payload: raw,
	}
	created, err := s.repo.Create(dbc, []*domain.JobRun{job})
	if err != nil {
		return nil, err
	}
	observability.Current().JobRun(jobType, domain.JobStatusQueued)
	s.log.Info("Job enqueued", "job_id", job.ID, "job_type", jobType)
	return created[0], nil
}

func (s *jobService) GetByID(dbc dbctx.Context, jobID uuid.UUID) (*domain.JobRun, error) {
	if jobID == uuid.Nil {
		return nil, fmt.Errorf("missing job_id")
	}
	return s.repo.GetByID(dbc, jobID)
}
