package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/landmarklens/landmark-api/pkg/enums"
)

// Photo is an uploaded image and the state of its landmark analysis.
type Photo struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	GCSKey           string                 `gorm:"column:gcs_key;not null;unique"`
	OriginalFilename string                 `gorm:"column:original_filename;not null"`
	ContentType      string                 `gorm:"column:content_type;not null"`
	SizeBytes        int64                  `gorm:"column:size_bytes;not null"`
	ProcessingStatus enums.ProcessingStatus `gorm:"column:processing_status;type:processing_status;not null;default:pending"`
	UploadedAt       time.Time              `gorm:"column:uploaded_at;autoCreateTime;<-:create"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`

	Landmark *Landmark `gorm:"foreignKey:PhotoID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Photo) TableName() string { return "photos" }
