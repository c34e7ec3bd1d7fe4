package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/landmarklens/landmark-api/internal/analysis"
	"github.com/landmarklens/landmark-api/internal/photos"
	pkgAuth "github.com/landmarklens/landmark-api/pkg/auth"
	"github.com/landmarklens/landmark-api/pkg/config"
	"github.com/landmarklens/landmark-api/pkg/db/dbtest"
	"github.com/landmarklens/landmark-api/pkg/maps"
	"github.com/landmarklens/landmark-api/pkg/metrics"
	"github.com/landmarklens/landmark-api/pkg/vision"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessions struct{}

func (stubSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return accessID != "", nil
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) SignedURL(key string, ttl time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type countingLimiter struct {
	mu    sync.Mutex
	calls map[string]int64
}

func (c *countingLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[scope]++
	return c.calls[scope] <= limit, c.calls[scope], nil
}

type testEnv struct {
	handler http.Handler
	store   *memoryStore
	cfg     *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		App:       config.AppConfig{Env: "test", CORSOrigins: []string{"*"}},
		JWT:       config.JWTConfig{Secret: "secret", Issuer: "landmark", ExpirationMinutes: 60, RequireSession: true},
		RateLimit: config.RateLimitConfig{AnalyzeWindow: time.Minute, AnalyzeLimit: 3},
		GCS:       config.GCSConfig{BucketName: "bucket", DownloadURLExpiry: 15 * time.Minute, PublicBaseURL: "https://storage.googleapis.com"},
		Upload:    config.UploadConfig{MaxUploadMB: 1},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()

	visionSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"responses":[{"landmarkAnnotations":[{"description":"Eiffel Tower","score":0.93,"locations":[{"latLng":{"latitude":48.8584,"longitude":2.2945}}]}]}]}`)
	}))
	t.Cleanup(visionSrv.Close)

	mapsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"OK","results":[{"formatted_address":"Champ de Mars, Paris","address_components":[{"long_name":"France","short_name":"FR","types":["country","political"]}]}]}`)
	}))
	t.Cleanup(mapsSrv.Close)

	detector, err := vision.NewClient(context.Background(),
		option.WithEndpoint(visionSrv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(visionSrv.Client()),
	)
	require.NoError(t, err)
	geocoder, err := maps.NewClient("test-key", maps.WithBaseURL(mapsSrv.URL))
	require.NoError(t, err)

	repo := photos.NewRepository(dbtest.Open(t))
	store := &memoryStore{objects: map[string][]byte{}}
	svc, err := photos.NewService(photos.ServiceParams{
		Repo:         repo,
		Storage:      store,
		SignedURLTTL: cfg.GCS.DownloadURLExpiry,
		MaxBytes:     cfg.Upload.MaxBytes(),
		PublicURL:    cfg.GCS.PublicURL,
	})
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	orch, err := analysis.New(analysis.Params{
		Photos:       repo,
		Signer:       store,
		Detector:     detector,
		Geocoder:     geocoder,
		Metrics:      metrics.NewAnalysisMetrics(registry),
		SignedURLTTL: cfg.GCS.DownloadURLExpiry,
	})
	require.NoError(t, err)

	limiter := &countingLimiter{calls: map[string]int64{}}
	handler := NewRouter(cfg, nil, stubPinger{}, stubPinger{}, stubPinger{}, stubSessions{}, limiter, registry, svc, orch)
	return &testEnv{handler: handler, store: store, cfg: cfg}
}

func (e *testEnv) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	tok, err := pkgAuth.MintAccessToken(e.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: userID})
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func uploadBody(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("image", "eiffel.png")
	require.NoError(t, err)
	_, err = part.Write(append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

type photoEnvelope struct {
	Data photos.PhotoPayload `json:"data"`
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health/live", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = env.do(t, http.MethodGet, "/health/ready", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"gcs":"ok"`)

	rec = env.do(t, http.MethodGet, "/metrics", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/photos", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPhotoLifecycle(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	token := env.token(t, userID)

	body, contentType := uploadBody(t)
	rec := env.do(t, http.MethodPost, "/api/v1/photos", token, body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var uploaded photoEnvelope
	decodeInto(t, rec, &uploaded)
	assert.Equal(t, "pending", string(uploaded.Data.ProcessingStatus))
	assert.Equal(t, "image/png", uploaded.Data.ContentType)
	assert.True(t, strings.HasPrefix(uploaded.Data.GCSBlobName, "photos/"+userID.String()+"/"))
	assert.Equal(t, 1, env.store.count())

	photoPath := "/api/v1/photos/" + uploaded.Data.PhotoID.String()

	rec = env.do(t, http.MethodPost, photoPath+"/analyze", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var analyzed photoEnvelope
	decodeInto(t, rec, &analyzed)
	assert.Equal(t, "completed", string(analyzed.Data.ProcessingStatus))
	require.NotNil(t, analyzed.Data.LandmarkData)
	assert.Equal(t, "Eiffel Tower", *analyzed.Data.LandmarkData.DetectedLandmarkName)
	assert.InDelta(t, 48.8584, *analyzed.Data.LandmarkData.Latitude, 1e-9)
	assert.Equal(t, "Champ de Mars, Paris", *analyzed.Data.LandmarkData.FormattedAddress)
	assert.Equal(t, "France", *analyzed.Data.LandmarkData.Country)

	rec = env.do(t, http.MethodGet, photoPath, token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched photoEnvelope
	decodeInto(t, rec, &fetched)
	require.NotNil(t, fetched.Data.LandmarkData)

	rec = env.do(t, http.MethodGet, "/api/v1/photos?status=completed", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Data photos.ListResult `json:"data"`
	}
	decodeInto(t, rec, &listed)
	require.Len(t, listed.Data.Items, 1)
	assert.Empty(t, listed.Data.Cursor)

	rec = env.do(t, http.MethodGet, "/api/v1/users/"+userID.String()+"/photos", token, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, photoPath+"/signed-url", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://signed.example/photos/")

	rec = env.do(t, http.MethodDelete, photoPath, token, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, env.store.count())

	rec = env.do(t, http.MethodGet, photoPath, token, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOtherUsersCannotReachPhoto(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()

	body, contentType := uploadBody(t)
	rec := env.do(t, http.MethodPost, "/api/v1/photos", env.token(t, owner), body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code)
	var uploaded photoEnvelope
	decodeInto(t, rec, &uploaded)

	intruder := env.token(t, uuid.New())
	rec = env.do(t, http.MethodGet, "/api/v1/photos/"+uploaded.Data.PhotoID.String(), intruder, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/users/"+owner.String()+"/photos", intruder, nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAnalyzeIsRateLimited(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, uuid.New())
	target := "/api/v1/photos/" + uuid.NewString() + "/analyze"

	for i := 0; i < 3; i++ {
		rec := env.do(t, http.MethodPost, target, token, nil, "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
	rec := env.do(t, http.MethodPost, target, token, nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestUploadRejectsNonImage(t *testing.T) {
	env := newTestEnv(t)
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("image", "notes.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("just some text"))
	require.NoError(t, mw.Close())

	rec := env.do(t, http.MethodPost, "/api/v1/photos", env.token(t, uuid.New()), buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, env.store.count())
}
