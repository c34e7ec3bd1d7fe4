package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/landmarklens/landmark-api/pkg/db"
	"github.com/landmarklens/landmark-api/pkg/db/models"
	"github.com/landmarklens/landmark-api/pkg/enums"
	pkgerrors "github.com/landmarklens/landmark-api/pkg/errors"
	"github.com/landmarklens/landmark-api/pkg/logger"
	"github.com/landmarklens/landmark-api/pkg/maps"
	"github.com/landmarklens/landmark-api/pkg/metrics"
	"github.com/landmarklens/landmark-api/pkg/vision"
)

const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
)

type photoStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	BeginProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	Complete(ctx context.Context, landmark *models.Landmark) error
	Fail(ctx context.Context, id uuid.UUID) error
}

type urlSigner interface {
	SignedURL(key string, ttl time.Duration) (string, error)
}

// LandmarkDetector finds the top landmark in an image.
type LandmarkDetector interface {
	DetectLandmark(ctx context.Context, imageURI string) (vision.Detection, error)
}

// ReverseGeocoder turns a coordinate into ranked address candidates.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) ([]maps.GeocodeResult, error)
}

// Params wires the orchestrator collaborators. Publisher and Metrics are
// optional.
type Params struct {
	Photos       photoStore
	Signer       urlSigner
	Detector     LandmarkDetector
	Geocoder     ReverseGeocoder
	Publisher    EventPublisher
	Metrics      *metrics.AnalysisMetrics
	Logger       *logger.Logger
	SignedURLTTL time.Duration
}

// Orchestrator runs the landmark analysis pipeline for one photo at a time.
type Orchestrator struct {
	photos       photoStore
	signer       urlSigner
	detector     LandmarkDetector
	geocoder     ReverseGeocoder
	publisher    EventPublisher
	metrics      *metrics.AnalysisMetrics
	logg         *logger.Logger
	signedURLTTL time.Duration
}

// New constructs an Orchestrator.
func New(p Params) (*Orchestrator, error) {
	if p.Photos == nil {
		return nil, fmt.Errorf("photo store required")
	}
	if p.Signer == nil {
		return nil, fmt.Errorf("url signer required")
	}
	if p.Detector == nil {
		return nil, fmt.Errorf("landmark detector required")
	}
	if p.Geocoder == nil {
		return nil, fmt.Errorf("reverse geocoder required")
	}
	if p.SignedURLTTL <= 0 {
		return nil, fmt.Errorf("signed url ttl must be positive")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Orchestrator{
		photos:       p.Photos,
		signer:       p.Signer,
		detector:     p.Detector,
		geocoder:     p.Geocoder,
		publisher:    p.Publisher,
		metrics:      p.Metrics,
		logg:         logg,
		signedURLTTL: p.SignedURLTTL,
	}, nil
}

// Analyze runs detection and geocoding for the caller's photo and returns it
// with its landmark. A photo already in processing is rejected with a
// conflict. The run is detached from ctx cancellation.
func (o *Orchestrator) Analyze(ctx context.Context, userID, photoID uuid.UUID) (*models.Photo, error) {
	ctx = context.WithoutCancel(ctx)

	photo, err := o.photos.FindByID(ctx, photoID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "photo not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load photo")
	}
	if photo.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "photo not found")
	}
	if !photo.ProcessingStatus.CanTransitionTo(enums.ProcessingStatusProcessing) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "analysis already in progress")
	}

	started, err := o.photos.BeginProcessing(ctx, photo.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark photo processing")
	}
	if !started {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "analysis already in progress")
	}
	photo.ProcessingStatus = enums.ProcessingStatusProcessing

	ctx = o.logg.WithPhotoID(ctx, photo.ID.String())
	startedAt := time.Now()
	o.logg.Info(ctx, "landmark analysis started")

	landmark, se := o.run(ctx, photo)
	if se == nil {
		if err := o.photos.Complete(ctx, landmark); err != nil {
			se = failAt(StepPersist, err)
		}
	}
	if se != nil {
		return nil, o.fail(ctx, photo, startedAt, se)
	}

	photo.ProcessingStatus = enums.ProcessingStatusCompleted
	photo.Landmark = landmark

	o.metrics.IncOutcome(outcomeCompleted)
	o.metrics.ObserveDuration(outcomeCompleted, time.Since(startedAt))
	o.logg.Info(o.logg.WithFields(ctx, map[string]any{
		"outcome":  outcomeCompleted,
		"landmark": derefString(landmark.DetectedLandmarkName),
	}), "landmark analysis finished")
	o.publish(ctx, Event{
		EventType:    EventAnalysisCompleted,
		PhotoID:      photo.ID,
		UserID:       photo.UserID,
		Status:       enums.ProcessingStatusCompleted,
		LandmarkName: landmark.DetectedLandmarkName,
	})

	return photo, nil
}

func (o *Orchestrator) run(ctx context.Context, photo *models.Photo) (*models.Landmark, *stepError) {
	imageURI, err := o.signer.SignedURL(photo.GCSKey, o.signedURLTTL)
	if err != nil {
		return nil, failAt(StepSignURL, err)
	}

	det, err := o.detector.DetectLandmark(ctx, imageURI)
	if err != nil {
		return nil, failAt(StepDetect, err)
	}

	switch det.Kind {
	case vision.KindNotFound:
		return &models.Landmark{
			PhotoID:              photo.ID,
			DetectedLandmarkName: stringPtr(models.UnknownLandmarkName),
		}, nil
	case vision.KindUnlocatable:
		return nil, failAt(StepLocate, fmt.Errorf("%w: %q", ErrUnlocatableLandmark, det.Name))
	case vision.KindFound:
		if det.Location == nil {
			return nil, failAt(StepLocate, fmt.Errorf("%w: %q", ErrUnlocatableLandmark, det.Name))
		}
	default:
		return nil, failAt(StepDetect, fmt.Errorf("unexpected detection kind %s", det.Kind))
	}

	lat, lng := det.Location.Latitude, det.Location.Longitude
	results, err := o.geocoder.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		return nil, failAt(StepGeocode, err)
	}
	if len(results) == 0 {
		return nil, failAt(StepGeocodeEmpty, ErrEmptyGeocodeResult)
	}

	best := results[0]
	addr := maps.ExtractAddress(best.AddressComponents)
	return &models.Landmark{
		PhotoID:              photo.ID,
		DetectedLandmarkName: optionalString(det.Name),
		Latitude:             &lat,
		Longitude:            &lng,
		FormattedAddress:     optionalString(best.FormattedAddress),
		StreetNumber:         addr.StreetNumber,
		Route:                addr.Route,
		Neighborhood:         addr.Neighborhood,
		Sublocality:          addr.Sublocality,
		Locality:             addr.Locality,
		State:                addr.State,
		District:             addr.District,
		Country:              addr.Country,
		PostalCode:           addr.PostalCode,
	}, nil
}

// fail writes the failed status and returns the stage error. When the status
// write also fails both errors are returned together.
func (o *Orchestrator) fail(ctx context.Context, photo *models.Photo, startedAt time.Time, se *stepError) error {
	failure := toAnalysisError(se)
	var result error = failure

	if err := o.photos.Fail(ctx, photo.ID); err != nil {
		o.logg.Error(ctx, "mark photo failed", err)
		result = multierr.Append(failure, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark photo failed"))
	}

	reason := reasonFor(se)
	o.metrics.IncOutcome(outcomeFailed)
	o.metrics.IncFailure(string(se.step))
	o.metrics.ObserveDuration(outcomeFailed, time.Since(startedAt))
	o.logg.Error(o.logg.WithFields(ctx, map[string]any{
		"outcome": outcomeFailed,
		"step":    string(se.step),
	}), "landmark analysis finished", se)
	o.publish(ctx, Event{
		EventType: EventAnalysisFailed,
		PhotoID:   photo.ID,
		UserID:    photo.UserID,
		Status:    enums.ProcessingStatusFailed,
		Step:      string(se.step),
		Reason:    reason,
	})

	return result
}

func stringPtr(v string) *string { return &v }

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
