package photos

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/landmarklens/landmark-api/pkg/db"
	"github.com/landmarklens/landmark-api/pkg/db/models"
	"github.com/landmarklens/landmark-api/pkg/enums"
	pkgerrors "github.com/landmarklens/landmark-api/pkg/errors"
	"github.com/landmarklens/landmark-api/pkg/logger"
)

type photoRepository interface {
	Create(ctx context.Context, photo *models.Photo) (*models.Photo, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	List(ctx context.Context, q listQuery) ([]models.Photo, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ObjectStore is the storage contract: store bytes under a key, hand out a
// time-limited read URL, delete by key.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	SignedURL(key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Service exposes the photo lifecycle outside of analysis.
type Service interface {
	Upload(ctx context.Context, userID uuid.UUID, input UploadInput) (*models.Photo, error)
	Get(ctx context.Context, userID, photoID uuid.UUID) (*models.Photo, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	SignedURL(ctx context.Context, userID, photoID uuid.UUID) (*SignedURLPayload, error)
	Delete(ctx context.Context, userID, photoID uuid.UUID) error
}

// ServiceParams wires the photo service collaborators.
type ServiceParams struct {
	Repo         photoRepository
	Storage      ObjectStore
	Logger       *logger.Logger
	SignedURLTTL time.Duration
	MaxBytes     int64
	PublicURL    func(key string) string
	Now          func() time.Time
}

type service struct {
	repo         photoRepository
	storage      ObjectStore
	logg         *logger.Logger
	signedURLTTL time.Duration
	maxBytes     int64
	publicURL    func(key string) string
	now          func() time.Time
}

// NewService constructs a photo service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("photo repository required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.SignedURLTTL <= 0 {
		return nil, fmt.Errorf("signed url ttl must be positive")
	}
	if params.MaxBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be positive")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:         params.Repo,
		storage:      params.Storage,
		logg:         logg,
		signedURLTTL: params.SignedURLTTL,
		maxBytes:     params.MaxBytes,
		publicURL:    params.PublicURL,
		now:          now,
	}, nil
}

// UploadInput carries one uploaded file.
type UploadInput struct {
	FileName  string
	SizeBytes int64
	Body      io.Reader
}

func (s *service) Upload(ctx context.Context, userID uuid.UUID, input UploadInput) (*models.Photo, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
	}
	if input.Body == nil || input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image file is empty")
	}
	if input.SizeBytes > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image file too large").
			WithDetails(map[string]any{"max_bytes": s.maxBytes})
	}

	contentType, body, err := sniffContentType(input.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable image file")
	}
	if !isAllowedImage(contentType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported image type").
			WithDetails(map[string]any{"content_type": contentType})
	}

	photoID := uuid.New()
	key := buildStorageKey(userID, photoID, fileName)
	ctx = s.logg.WithPhotoID(ctx, photoID.String())

	if err := s.storage.Put(ctx, key, body, contentType); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "upload photo to storage")
	}

	photo := &models.Photo{
		ID:               photoID,
		UserID:           userID,
		GCSKey:           key,
		OriginalFilename: fileName,
		ContentType:      contentType,
		SizeBytes:        input.SizeBytes,
		ProcessingStatus: enums.ProcessingStatusPending,
		UploadedAt:       s.now().UTC(),
	}
	created, err := s.repo.Create(ctx, photo)
	if err != nil {
		// the key already backs another record; its bytes are not ours to delete
		if db.IsUniqueViolation(err, "photos_gcs_key_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "storage key already in use")
		}
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logg.Error(s.logg.WithField(ctx, "gcs_key", key), "orphaned upload cleanup failed", delErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist photo")
	}

	s.logg.Info(s.logg.WithField(ctx, "content_type", contentType), "photo uploaded")
	return created, nil
}

func (s *service) Get(ctx context.Context, userID, photoID uuid.UUID) (*models.Photo, error) {
	if photoID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "photo id is required")
	}
	photo, err := s.repo.FindByID(ctx, photoID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "photo not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load photo")
	}
	// Another user's photo is reported as missing.
	if photo.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "photo not found")
	}
	return photo, nil
}

func (s *service) SignedURL(ctx context.Context, userID, photoID uuid.UUID) (*SignedURLPayload, error) {
	photo, err := s.Get(ctx, userID, photoID)
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().UTC().Add(s.signedURLTTL)
	url, err := s.storage.SignedURL(photo.GCSKey, s.signedURLTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "generate signed read url")
	}
	return &SignedURLPayload{SignedURL: url, ExpiresAt: expiresAt}, nil
}

// Delete removes the stored object before the record. A storage failure
// leaves the photo and its landmark untouched.
func (s *service) Delete(ctx context.Context, userID, photoID uuid.UUID) error {
	photo, err := s.Get(ctx, userID, photoID)
	if err != nil {
		return err
	}
	ctx = s.logg.WithPhotoID(ctx, photo.ID.String())

	if err := s.storage.Delete(ctx, photo.GCSKey); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "delete photo from storage")
	}
	if err := s.repo.Delete(ctx, photo.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete photo record")
	}

	s.logg.Info(ctx, "photo deleted")
	return nil
}

func buildStorageKey(userID, photoID uuid.UUID, fileName string) string {
	cleanName := sanitizeFileName(fileName)
	if cleanName == "" {
		cleanName = photoID.String()
	}
	return fmt.Sprintf("photos/%s/%s/%s", userID.String(), photoID.String(), cleanName)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
