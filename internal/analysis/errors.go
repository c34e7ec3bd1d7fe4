package analysis

import (
	"errors"
	"fmt"

	pkgerrors "github.com/landmarklens/landmark-api/pkg/errors"
	"github.com/landmarklens/landmark-api/pkg/maps"
	"github.com/landmarklens/landmark-api/pkg/vision"
)

// Step names a stage of the analysis pipeline.
type Step string

const (
	StepSignURL      Step = "sign_url"
	StepDetect       Step = "detect"
	StepLocate       Step = "locate"
	StepGeocode      Step = "geocode"
	StepGeocodeEmpty Step = "geocode_empty"
	StepPersist      Step = "persist"
)

var (
	// ErrUnlocatableLandmark means the detector named a landmark but gave no
	// coordinate for it.
	ErrUnlocatableLandmark = errors.New("landmark detected without coordinates")
	// ErrEmptyGeocodeResult means the geocoder answered OK with no candidates.
	ErrEmptyGeocodeResult = errors.New("reverse geocoding returned no results")
)

type stepError struct {
	step Step
	err  error
}

func (e *stepError) Error() string {
	return fmt.Sprintf("%s: %v", e.step, e.err)
}

func (e *stepError) Unwrap() error { return e.err }

// StepOf reports which pipeline stage produced err.
func StepOf(err error) (Step, bool) {
	var se *stepError
	if errors.As(err, &se) {
		return se.step, true
	}
	return "", false
}

func failAt(step Step, err error) *stepError {
	return &stepError{step: step, err: err}
}

// toAnalysisError renders a stage failure as the caller-visible error. The
// reason is chosen per stage so request URLs carrying API keys never reach
// the response.
func toAnalysisError(se *stepError) *pkgerrors.Error {
	details := map[string]any{
		"step":   string(se.step),
		"reason": reasonFor(se),
	}

	var geoErr *maps.GeocodingError
	if errors.As(se.err, &geoErr) {
		if geoErr.Status != "" {
			details["upstream_status"] = geoErr.Status
		}
		if geoErr.Message != "" {
			details["upstream_message"] = geoErr.Message
		}
	}

	return pkgerrors.Wrap(pkgerrors.CodeAnalysis, se, "landmark analysis failed").WithDetails(details)
}

func reasonFor(se *stepError) string {
	switch se.step {
	case StepSignURL:
		return "could not create a read url for the photo"
	case StepDetect:
		var detErr *vision.DetectionError
		if errors.As(se.err, &detErr) {
			return detErr.Error()
		}
		return "landmark detection request failed"
	case StepLocate, StepGeocodeEmpty:
		return se.err.Error()
	case StepGeocode:
		var geoErr *maps.GeocodingError
		if errors.As(se.err, &geoErr) {
			return geoErr.Error()
		}
		return "reverse geocoding request failed"
	case StepPersist:
		return "could not save the analysis result"
	default:
		return "analysis failed"
	}
}
