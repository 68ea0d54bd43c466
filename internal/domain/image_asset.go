package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ImageAsset is a library image row. The resync pipeline embeds its caption
// and mirrors it into the vector store; EmbeddedAt marks that it is indexed.
type ImageAsset struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExternalID string         `gorm:"column:external_id;index" json:"external_id,omitempty"`
	URL        string         `gorm:"column:url;not null" json:"url"`
	Caption    string         `gorm:"column:caption" json:"caption,omitempty"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	EmbeddedAt *time.Time     `gorm:"column:embedded_at;index" json:"embedded_at,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ImageAsset) TableName() string { return "image_asset" }
