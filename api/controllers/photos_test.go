package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landmarklens/landmark-api/api/middleware"
	"github.com/landmarklens/landmark-api/internal/photos"
	"github.com/landmarklens/landmark-api/pkg/db/models"
	"github.com/landmarklens/landmark-api/pkg/enums"
	pkgerrors "github.com/landmarklens/landmark-api/pkg/errors"
)

type fakePhotoService struct {
	uploaded   []byte
	uploadName string
	listParams photos.ListParams
	deleted    uuid.UUID
	err        error
	photo      *models.Photo
}

func (f *fakePhotoService) Upload(ctx context.Context, userID uuid.UUID, input photos.UploadInput) (*models.Photo, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(input.Body)
	f.uploaded = body
	f.uploadName = input.FileName
	return &models.Photo{
		ID:               uuid.New(),
		UserID:           userID,
		GCSKey:           "photos/" + userID.String() + "/x/" + input.FileName,
		OriginalFilename: input.FileName,
		ContentType:      "image/png",
		SizeBytes:        input.SizeBytes,
		ProcessingStatus: enums.ProcessingStatusPending,
		UploadedAt:       time.Now().UTC(),
	}, nil
}

func (f *fakePhotoService) Get(ctx context.Context, userID, photoID uuid.UUID) (*models.Photo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.photo, nil
}

func (f *fakePhotoService) List(ctx context.Context, params photos.ListParams) (*photos.ListResult, error) {
	f.listParams = params
	if f.err != nil {
		return nil, f.err
	}
	return &photos.ListResult{Items: []photos.PhotoPayload{}}, nil
}

func (f *fakePhotoService) SignedURL(ctx context.Context, userID, photoID uuid.UUID) (*photos.SignedURLPayload, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &photos.SignedURLPayload{SignedURL: "https://signed.example/x", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakePhotoService) Delete(ctx context.Context, userID, photoID uuid.UUID) error {
	f.deleted = photoID
	return f.err
}

type fakeAnalyzer struct {
	photo *models.Photo
	err   error
}

func (f fakeAnalyzer) Analyze(ctx context.Context, userID, photoID uuid.UUID) (*models.Photo, error) {
	return f.photo, f.err
}

func publicURL(key string) string { return "https://storage.googleapis.com/bucket/" + key }

func newPhotoRouter(svc photos.Service, analyzer Analyzer) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/photos", PhotoUpload(svc, 1<<20, publicURL, nil))
	r.Get("/photos", PhotoList(svc, nil))
	r.Get("/users/{userId}/photos", UserPhotoList(svc, nil))
	r.Get("/photos/{photoId}", PhotoGet(svc, publicURL, nil))
	r.Post("/photos/{photoId}/analyze", PhotoAnalyze(analyzer, publicURL, nil))
	r.Get("/photos/{photoId}/signed-url", PhotoSignedURL(svc, nil))
	r.Delete("/photos/{photoId}", PhotoDelete(svc, nil))
	return r
}

func asUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func multipartBody(t *testing.T, field, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestPhotoUploadCreated(t *testing.T) {
	svc := &fakePhotoService{}
	router := newPhotoRouter(svc, nil)
	userID := uuid.New()

	body, contentType := multipartBody(t, "image", "eiffel.png", []byte("png-bytes"))
	req := asUser(httptest.NewRequest(http.MethodPost, "/photos", body), userID)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []byte("png-bytes"), svc.uploaded)
	assert.Equal(t, "eiffel.png", svc.uploadName)

	var resp struct {
		Data photos.PhotoPayload `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, userID, resp.Data.UserID)
	assert.Equal(t, enums.ProcessingStatusPending, resp.Data.ProcessingStatus)
	assert.Contains(t, resp.Data.GCSURL, "https://storage.googleapis.com/bucket/photos/")
	assert.Nil(t, resp.Data.LandmarkData)
}

func TestPhotoUploadMissingField(t *testing.T) {
	router := newPhotoRouter(&fakePhotoService{}, nil)

	body, contentType := multipartBody(t, "file", "eiffel.png", []byte("png-bytes"))
	req := asUser(httptest.NewRequest(http.MethodPost, "/photos", body), uuid.New())
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, rec))
}

func TestPhotoUploadTooLarge(t *testing.T) {
	router := newPhotoRouter(&fakePhotoService{}, nil)

	body, contentType := multipartBody(t, "image", "big.png", bytes.Repeat([]byte("a"), 3<<20))
	req := asUser(httptest.NewRequest(http.MethodPost, "/photos", body), uuid.New())
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPhotoUploadStorageFailure(t *testing.T) {
	svc := &fakePhotoService{err: pkgerrors.New(pkgerrors.CodeStorage, "store photo bytes")}
	router := newPhotoRouter(svc, nil)

	body, contentType := multipartBody(t, "image", "eiffel.png", []byte("png-bytes"))
	req := asUser(httptest.NewRequest(http.MethodPost, "/photos", body), uuid.New())
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeStorage), errorCode(t, rec))
}

func TestPhotoUploadRequiresUser(t *testing.T) {
	router := newPhotoRouter(&fakePhotoService{}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/photos", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPhotoListPassesQuery(t *testing.T) {
	svc := &fakePhotoService{}
	router := newPhotoRouter(svc, nil)
	userID := uuid.New()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/photos?limit=10&status=failed", nil), userID))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, svc.listParams.UserID)
	assert.Equal(t, 10, svc.listParams.Limit)
	require.NotNil(t, svc.listParams.Status)
	assert.Equal(t, enums.ProcessingStatusFailed, *svc.listParams.Status)
}

func TestUserPhotoListForbidsOtherUsers(t *testing.T) {
	svc := &fakePhotoService{}
	router := newPhotoRouter(svc, nil)
	userID := uuid.New()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/users/"+uuid.NewString()+"/photos", nil), userID))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/users/"+userID.String()+"/photos", nil), userID))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, svc.listParams.UserID)
}

func TestPhotoGetInvalidID(t *testing.T) {
	router := newPhotoRouter(&fakePhotoService{}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/photos/nope", nil), uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPhotoGetNotFound(t *testing.T) {
	router := newPhotoRouter(&fakePhotoService{err: pkgerrors.New(pkgerrors.CodeNotFound, "photo not found")}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/photos/"+uuid.NewString(), nil), uuid.New()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPhotoAnalyzeOutcomes(t *testing.T) {
	userID := uuid.New()
	photoID := uuid.New()
	name := "Eiffel Tower"
	completed := &models.Photo{
		ID:               photoID,
		UserID:           userID,
		ProcessingStatus: enums.ProcessingStatusCompleted,
		Landmark:         &models.Landmark{PhotoID: photoID, DetectedLandmarkName: &name},
	}

	cases := []struct {
		name     string
		analyzer fakeAnalyzer
		status   int
		code     string
	}{
		{"completed", fakeAnalyzer{photo: completed}, http.StatusOK, ""},
		{"conflict", fakeAnalyzer{err: pkgerrors.New(pkgerrors.CodeConflict, "photo is already being processed")}, http.StatusConflict, string(pkgerrors.CodeConflict)},
		{"failed", fakeAnalyzer{err: pkgerrors.New(pkgerrors.CodeAnalysis, "landmark has no coordinates").WithDetails(map[string]any{"step": "locate"})}, http.StatusBadGateway, string(pkgerrors.CodeAnalysis)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newPhotoRouter(&fakePhotoService{}, tc.analyzer)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/photos/"+photoID.String()+"/analyze", nil), userID))
			require.Equal(t, tc.status, rec.Code)
			if tc.code != "" {
				assert.Equal(t, tc.code, errorCode(t, rec))
				return
			}
			var resp struct {
				Data photos.PhotoPayload `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotNil(t, resp.Data.LandmarkData)
			assert.Equal(t, "Eiffel Tower", *resp.Data.LandmarkData.DetectedLandmarkName)
		})
	}
}

func TestPhotoSignedURLAndDelete(t *testing.T) {
	svc := &fakePhotoService{}
	router := newPhotoRouter(svc, nil)
	userID := uuid.New()
	photoID := uuid.New()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/photos/"+photoID.String()+"/signed-url", nil), userID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"signed_url":"https://signed.example/x"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodDelete, "/photos/"+photoID.String(), nil), userID))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, photoID, svc.deleted)
}

func TestPhotoDeleteStorageFailure(t *testing.T) {
	svc := &fakePhotoService{err: pkgerrors.New(pkgerrors.CodeStorage, "delete photo bytes")}
	router := newPhotoRouter(svc, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodDelete, "/photos/"+uuid.NewString(), nil), uuid.New()))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeStorage), errorCode(t, rec))
}

func TestPhotoRoutesWithoutService(t *testing.T) {
	router := newPhotoRouter(nil, nil)
	photoPath := "/photos/" + uuid.NewString()

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/photos"},
		{http.MethodGet, photoPath},
		{http.MethodGet, photoPath + "/signed-url"},
		{http.MethodDelete, photoPath},
		{http.MethodPost, photoPath + "/analyze"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, asUser(httptest.NewRequest(tc.method, tc.path, nil), uuid.New()))
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, string(pkgerrors.CodeInternal), errorCode(t, rec))
		})
	}
}
