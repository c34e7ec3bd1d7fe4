package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/landmarklens/landmark-api/api/middleware"
	"github.com/landmarklens/landmark-api/api/responses"
	"github.com/landmarklens/landmark-api/api/validators"
	"github.com/landmarklens/landmark-api/internal/photos"
	"github.com/landmarklens/landmark-api/pkg/db/models"
	pkgerrors "github.com/landmarklens/landmark-api/pkg/errors"
	"github.com/landmarklens/landmark-api/pkg/logger"
)

// Analyzer runs the landmark pipeline for one photo.
type Analyzer interface {
	Analyze(ctx context.Context, userID, photoID uuid.UUID) (*models.Photo, error)
}

func callerID(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return uuid.Nil, false
	}
	return userID, true
}

// PhotoUpload accepts a multipart image under the "image" field.
func PhotoUpload(svc photos.Service, maxBytes int64, publicURL func(string) string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(w, r, svc, logg) {
			return
		}
		userID, ok := callerID(w, r, logg)
		if !ok {
			return
		}

		upload, err := validators.ParsePhotoUpload(w, r, maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer upload.Close()

		photo, err := svc.Upload(r.Context(), userID, photos.UploadInput{
			FileName:  upload.FileName,
			SizeBytes: upload.Size,
			Body:      upload.File,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, photos.ToPayload(photo, publicURL))
	}
}

// PhotoList returns the caller's photos.
func PhotoList(svc photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logg)
		if !ok {
			return
		}
		writePhotoList(w, r, svc, userID, logg)
	}
}

// UserPhotoList lists photos for the {userId} path segment, which must be the
// caller.
func UserPhotoList(svc photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logg)
		if !ok {
			return
		}
		target, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if target != userID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cannot list another user's photos"))
			return
		}
		writePhotoList(w, r, svc, userID, logg)
	}
}

func writePhotoList(w http.ResponseWriter, r *http.Request, svc photos.Service, userID uuid.UUID, logg *logger.Logger) {
	if !serviceReady(w, r, svc, logg) {
		return
	}
	query, err := validators.ParsePhotoListQuery(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	result, err := svc.List(r.Context(), photos.ListParams{
		UserID: userID,
		Status: query.StatusFilter(),
		Limit:  query.Limit,
		Cursor: query.Cursor,
	})
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, result)
}

// PhotoGet returns one photo with its landmark data.
func PhotoGet(svc photos.Service, publicURL func(string) string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(w, r, svc, logg) {
			return
		}
		ctx, userID, photoID, ok := photoRoute(w, r, logg)
		if !ok {
			return
		}
		photo, err := svc.Get(ctx, userID, photoID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, photos.ToPayload(photo, publicURL))
	}
}

// PhotoAnalyze triggers the landmark pipeline and returns the updated photo.
func PhotoAnalyze(analyzer Analyzer, publicURL func(string) string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if analyzer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analysis unavailable"))
			return
		}
		ctx, userID, photoID, ok := photoRoute(w, r, logg)
		if !ok {
			return
		}
		photo, err := analyzer.Analyze(ctx, userID, photoID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, photos.ToPayload(photo, publicURL))
	}
}

// PhotoSignedURL issues a time-limited read URL for the stored image.
func PhotoSignedURL(svc photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(w, r, svc, logg) {
			return
		}
		ctx, userID, photoID, ok := photoRoute(w, r, logg)
		if !ok {
			return
		}
		signed, err := svc.SignedURL(ctx, userID, photoID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, signed)
	}
}

// PhotoDelete removes the stored object and then the record.
func PhotoDelete(svc photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(w, r, svc, logg) {
			return
		}
		ctx, userID, photoID, ok := photoRoute(w, r, logg)
		if !ok {
			return
		}
		if err := svc.Delete(ctx, userID, photoID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func serviceReady(w http.ResponseWriter, r *http.Request, svc photos.Service, logg *logger.Logger) bool {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photo service unavailable"))
		return false
	}
	return true
}

// photoRoute resolves the caller and the {photoId} segment and tags the
// returned context with the photo id for logging.
func photoRoute(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (context.Context, uuid.UUID, uuid.UUID, bool) {
	userID, ok := callerID(w, r, logg)
	if !ok {
		return nil, uuid.Nil, uuid.Nil, false
	}
	photoID, err := validators.ParseUUIDParam(r, "photoId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, uuid.Nil, uuid.Nil, false
	}
	ctx := r.Context()
	if logg != nil {
		ctx = logg.WithPhotoID(ctx, photoID.String())
	}
	return ctx, userID, photoID, true
}
