package images

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/virachai/vision-iq/internal/domain"
	"github.com/virachai/vision-iq/internal/platform/dbctx"
	"github.com/virachai/vision-iq/internal/platform/logger"
)

type ImageAssetRepo interface {
	Create(dbc dbctx.Context, assets []*domain.ImageAsset) ([]*domain.ImageAsset, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.ImageAsset, error)
	// SearchUnembeddedByKeywords finds un-indexed assets whose caption
	// matches any of the space-separated keywords.
	SearchUnembeddedByKeywords(dbc dbctx.Context, keywords string, limit int) ([]*domain.ImageAsset, error)
	MarkEmbedded(dbc dbctx.Context, ids []uuid.UUID, at time.Time) error
}

type imageAssetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImageAssetRepo(db *gorm.DB, baseLog *logger.Logger) ImageAssetRepo {
	return &imageAssetRepo{
		db:  db,
		log: baseLog.With("repo", "ImageAssetRepo"),
	}
}

func (r *imageAssetRepo) Create(dbc dbctx.Context, assets []*domain.ImageAsset) ([]*domain.ImageAsset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(assets) == 0 {
		return []*domain.ImageAsset{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *imageAssetRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.ImageAsset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.ImageAsset
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *imageAssetRepo) SearchUnembeddedByKeywords(dbc dbctx.Context, keywords string, limit int) ([]*domain.ImageAsset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}

	query := transaction.WithContext(dbc.Ctx).
		Where("embedded_at IS NULL")

	words := strings.Fields(strings.TrimSpace(keywords))
	if len(words) > 0 {
		matcher := r.db.Session(&gorm.Session{NewDB: true})
		for _, w := range words {
			matcher = matcher.Or("caption ILIKE ?", "%"+w+"%")
		}
		query = query.Where(matcher)
	}

	var out []*domain.ImageAsset
	if err := query.
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *imageAssetRepo) MarkEmbedded(dbc dbctx.Context, ids []uuid.UUID, at time.Time) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&domain.ImageAsset{}).
		Where("id IN ?", ids).
		Update("embedded_at", at).Error
}
