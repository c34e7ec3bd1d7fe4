package photos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/landmarklens/landmark-api/pkg/db/models"
	"github.com/landmarklens/landmark-api/pkg/enums"
)

// Repository exposes photo and landmark persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a photo repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a photo record.
func (r *Repository) Create(ctx context.Context, photo *models.Photo) (*models.Photo, error) {
	if err := r.db.WithContext(ctx).Create(photo).Error; err != nil {
		return nil, err
	}
	return photo, nil
}

// FindByID retrieves a photo and its landmark, if any.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	var p models.Photo
	if err := r.db.WithContext(ctx).Preload("Landmark").First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns photos for one user ordered newest first.
func (r *Repository) List(ctx context.Context, q listQuery) ([]models.Photo, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Photo{}).
		Preload("Landmark").
		Where("user_id = ?", q.userID)

	if q.status != nil {
		tx = tx.Where("processing_status = ?", *q.status)
	}
	if q.cursor != nil {
		tx = tx.Where("(uploaded_at < ?) OR (uploaded_at = ? AND id < ?)", q.cursor.At, q.cursor.At, q.cursor.ID)
	}

	var rows []models.Photo
	err := tx.Order("uploaded_at DESC").Order("id DESC").Limit(q.limit).Find(&rows).Error
	return rows, err
}

// Delete removes a photo and its landmark in one transaction. The FK cascade
// covers the landmark in Postgres; the explicit delete keeps other drivers
// consistent.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("photo_id = ?", id).Delete(&models.Landmark{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Photo{}).Error
	})
}

// BeginProcessing moves a photo into processing unless it is already there.
// It reports false when no row changed, which callers treat as a conflict.
func (r *Repository) BeginProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Photo{}).
		Where("id = ? AND processing_status <> ?", id, enums.ProcessingStatusProcessing).
		Updates(map[string]any{
			"processing_status": enums.ProcessingStatusProcessing,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Complete upserts the landmark by photo id and marks the photo completed.
func (r *Repository) Complete(ctx context.Context, landmark *models.Landmark) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if landmark.ID == uuid.Nil {
			landmark.ID = uuid.New()
		}
		landmark.AnalysisTimestamp = time.Now().UTC()
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "photo_id"}},
			DoUpdates: clause.AssignmentColumns(landmarkUpsertColumns),
		}).Create(landmark).Error
		if err != nil {
			return err
		}
		return setStatus(tx, landmark.PhotoID, enums.ProcessingStatusCompleted)
	})
}

// Fail marks the photo failed and drops any landmark left by an earlier run.
func (r *Repository) Fail(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("photo_id = ?", id).Delete(&models.Landmark{}).Error; err != nil {
			return err
		}
		return setStatus(tx, id, enums.ProcessingStatusFailed)
	})
}

var landmarkUpsertColumns = []string{
	"detected_landmark_name",
	"latitude",
	"longitude",
	"formatted_address",
	"street_number",
	"route",
	"neighborhood",
	"sublocality",
	"locality",
	"state",
	"district",
	"country",
	"postal_code",
	"analysis_timestamp",
}

func setStatus(tx *gorm.DB, id uuid.UUID, status enums.ProcessingStatus) error {
	return tx.Model(&models.Photo{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"processing_status": status,
			"updated_at":        time.Now().UTC(),
		}).Error
}
