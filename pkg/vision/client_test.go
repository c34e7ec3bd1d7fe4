package vision

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	pkgerrors "github.com/landmarklens/landmark-api/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return client
}

func TestDetectLandmarkSendsSingleFeatureRequest(t *testing.T) {
	var captured struct {
		Requests []struct {
			Image struct {
				Source struct {
					ImageURI string `json:"imageUri"`
				} `json:"source"`
			} `json:"image"`
			Features []struct {
				Type       string `json:"type"`
				MaxResults int64  `json:"maxResults"`
			} `json:"features"`
		} `json:"requests"`
	}
	var path string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"responses":[{"landmarkAnnotations":[{"description":"Eiffel Tower","score":0.92,"locations":[{"latLng":{"latitude":48.8584,"longitude":2.2945}}]}]}]}`)
	})

	det, err := client.DetectLandmark(context.Background(), "https://signed.example/photo.jpg")
	require.NoError(t, err)

	assert.Equal(t, "/v1/images:annotate", path)
	require.Len(t, captured.Requests, 1)
	assert.Equal(t, "https://signed.example/photo.jpg", captured.Requests[0].Image.Source.ImageURI)
	require.Len(t, captured.Requests[0].Features, 1)
	assert.Equal(t, "LANDMARK_DETECTION", captured.Requests[0].Features[0].Type)
	assert.Equal(t, int64(1), captured.Requests[0].Features[0].MaxResults)

	assert.Equal(t, KindFound, det.Kind)
	assert.Equal(t, "Eiffel Tower", det.Name)
	require.NotNil(t, det.Location)
	assert.InDelta(t, 48.8584, det.Location.Latitude, 1e-9)
	assert.InDelta(t, 2.2945, det.Location.Longitude, 1e-9)
}

func TestDetectLandmarkNoAnnotations(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"responses":[{}]}`)
	})

	det, err := client.DetectLandmark(context.Background(), "gs://bucket/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, KindNotFound, det.Kind)
	assert.Nil(t, det.Location)
}

func TestDetectLandmarkWithoutLocation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"responses":[{"landmarkAnnotations":[{"description":"Mystery Arch","score":0.4}]}]}`)
	})

	det, err := client.DetectLandmark(context.Background(), "gs://bucket/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, KindUnlocatable, det.Kind)
	assert.Equal(t, "Mystery Arch", det.Name)
	assert.Nil(t, det.Location)
}

func TestDetectLandmarkPerImageError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"responses":[{"error":{"code":7,"message":"image uri not reachable"}}]}`)
	})

	_, err := client.DetectLandmark(context.Background(), "https://nowhere/photo.jpg")
	require.Error(t, err)

	var detErr *DetectionError
	require.True(t, errors.As(err, &detErr))
	assert.Equal(t, int64(7), detErr.Code)
	assert.Contains(t, err.Error(), "image uri not reachable")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestDetectLandmarkTransportError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"billing disabled"}}`)
	})

	_, err := client.DetectLandmark(context.Background(), "https://signed.example/photo.jpg")
	require.Error(t, err)

	var detErr *DetectionError
	require.True(t, errors.As(err, &detErr))
	assert.Contains(t, err.Error(), "billing disabled")
}

func TestDetectLandmarkRequiresURI(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := client.DetectLandmark(context.Background(), " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "found", KindFound.String())
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "unlocatable", KindUnlocatable.String())
}
