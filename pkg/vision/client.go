package vision

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	visionapi "google.golang.org/api/vision/v1"

	pkgerrors "github.com/landmarklens/landmark-api/pkg/errors"
)

const featureLandmarkDetection = "LANDMARK_DETECTION"

// Kind tags the outcome of a detection call.
type Kind int

const (
	// KindNotFound means the service answered with no landmark annotations.
	KindNotFound Kind = iota
	// KindFound carries a named landmark with a coordinate.
	KindFound
	// KindUnlocatable carries a named landmark the service could not place.
	KindUnlocatable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindFound:
		return "found"
	case KindUnlocatable:
		return "unlocatable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Location is a coordinate in decimal degrees.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Detection is the top landmark candidate for one image. Location is set
// only when Kind is KindFound.
type Detection struct {
	Kind     Kind
	Name     string
	Score    float64
	Location *Location
}

// DetectionError reports a transport failure or a per-image error status
// returned by the service.
type DetectionError struct {
	Code    int64
	Message string
	Err     error
}

func (e *DetectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("landmark detection failed: %v", e.Err)
	}
	return fmt.Sprintf("landmark detection failed: code %d: %s", e.Code, e.Message)
}

func (e *DetectionError) Unwrap() error { return e.Err }

// Client calls Cloud Vision landmark detection.
type Client struct {
	svc *visionapi.Service
}

// NewClient builds a Vision client. Credentials and endpoint overrides are
// passed through as client options.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := visionapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// DetectLandmark asks for at most one landmark in the image at imageURI.
// Zero annotations is a KindNotFound detection, not an error.
func (c *Client) DetectLandmark(ctx context.Context, imageURI string) (Detection, error) {
	if c == nil || c.svc == nil {
		return Detection{}, pkgerrors.New(pkgerrors.CodeDependency, "vision client not configured")
	}
	uri := strings.TrimSpace(imageURI)
	if uri == "" {
		return Detection{}, pkgerrors.New(pkgerrors.CodeValidation, "image uri is required")
	}

	req := &visionapi.BatchAnnotateImagesRequest{
		Requests: []*visionapi.AnnotateImageRequest{{
			Image: &visionapi.Image{Source: &visionapi.ImageSource{ImageUri: uri}},
			Features: []*visionapi.Feature{{
				Type:       featureLandmarkDetection,
				MaxResults: 1,
			}},
		}},
	}

	resp, err := c.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return Detection{}, pkgerrors.Wrap(pkgerrors.CodeDependency, &DetectionError{Err: err}, "annotate image")
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return Detection{Kind: KindNotFound}, nil
	}

	image := resp.Responses[0]
	if image.Error != nil && (image.Error.Code != 0 || image.Error.Message != "") {
		detErr := &DetectionError{Code: image.Error.Code, Message: image.Error.Message}
		return Detection{}, pkgerrors.Wrap(pkgerrors.CodeDependency, detErr, "annotate image")
	}

	return toDetection(image.LandmarkAnnotations), nil
}

func toDetection(annotations []*visionapi.EntityAnnotation) Detection {
	if len(annotations) == 0 || annotations[0] == nil {
		return Detection{Kind: KindNotFound}
	}

	top := annotations[0]
	det := Detection{Name: top.Description, Score: top.Score}
	for _, loc := range top.Locations {
		if loc == nil || loc.LatLng == nil {
			continue
		}
		det.Kind = KindFound
		det.Location = &Location{Latitude: loc.LatLng.Latitude, Longitude: loc.LatLng.Longitude}
		return det
	}

	det.Kind = KindUnlocatable
	return det
}
