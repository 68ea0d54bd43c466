package repos

import (
	"gorm.io/gorm"

	"github.com/virachai/vision-iq/internal/data/repos/images"
	"github.com/virachai/vision-iq/internal/data/repos/jobs"
	"github.com/virachai/vision-iq/internal/platform/logger"
)

type ImageAssetRepo = images.ImageAssetRepo
type JobRunRepo = jobs.JobRunRepo

func NewImageAssetRepo(db *gorm.DB, baseLog *logger.Logger) ImageAssetRepo {
	return images.NewImageAssetRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
