package photos

import (
	"time"

	"github.com/google/uuid"

	"github.com/landmarklens/landmark-api/pkg/db/models"
	"github.com/landmarklens/landmark-api/pkg/enums"
)

// PhotoPayload is the JSON shape returned for a photo.
type PhotoPayload struct {
	PhotoID          uuid.UUID              `json:"photo_id"`
	UserID           uuid.UUID              `json:"user_id"`
	GCSBlobName      string                 `json:"gcs_blob_name"`
	OriginalFilename string                 `json:"original_filename"`
	ContentType      string                 `json:"content_type"`
	SizeBytes        int64                  `json:"size_bytes"`
	UploadTime       time.Time              `json:"upload_time"`
	ProcessingStatus enums.ProcessingStatus `json:"processing_status"`
	GCSURL           string                 `json:"gcs_url"`
	LandmarkData     *LandmarkPayload       `json:"landmark_data"`
}

// LandmarkPayload is the JSON shape of an analysis result.
type LandmarkPayload struct {
	DetectedLandmarkName *string   `json:"detected_landmark_name"`
	Latitude             *float64  `json:"latitude"`
	Longitude            *float64  `json:"longitude"`
	FormattedAddress     *string   `json:"formatted_address"`
	StreetNumber         *string   `json:"street_number"`
	Route                *string   `json:"route"`
	Neighborhood         *string   `json:"neighborhood"`
	Sublocality          *string   `json:"sublocality"`
	Locality             *string   `json:"locality"`
	State                *string   `json:"state"`
	District             *string   `json:"district"`
	Country              *string   `json:"country"`
	PostalCode           *string   `json:"postal_code"`
	AnalysisTimestamp    time.Time `json:"analysis_timestamp"`
}

// SignedURLPayload is returned by the signed URL endpoint.
type SignedURLPayload struct {
	SignedURL string    `json:"signed_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ToPayload renders a photo with publicURL resolving its object URL.
func ToPayload(p *models.Photo, publicURL func(key string) string) PhotoPayload {
	out := PhotoPayload{
		PhotoID:          p.ID,
		UserID:           p.UserID,
		GCSBlobName:      p.GCSKey,
		OriginalFilename: p.OriginalFilename,
		ContentType:      p.ContentType,
		SizeBytes:        p.SizeBytes,
		UploadTime:       p.UploadedAt,
		ProcessingStatus: p.ProcessingStatus,
	}
	if publicURL != nil {
		out.GCSURL = publicURL(p.GCSKey)
	}
	if p.Landmark != nil {
		out.LandmarkData = toLandmarkPayload(p.Landmark)
	}
	return out
}

func toLandmarkPayload(l *models.Landmark) *LandmarkPayload {
	return &LandmarkPayload{
		DetectedLandmarkName: l.DetectedLandmarkName,
		Latitude:             l.Latitude,
		Longitude:            l.Longitude,
		FormattedAddress:     l.FormattedAddress,
		StreetNumber:         l.StreetNumber,
		Route:                l.Route,
		Neighborhood:         l.Neighborhood,
		Sublocality:          l.Sublocality,
		Locality:             l.Locality,
		State:                l.State,
		District:             l.District,
		Country:              l.Country,
		PostalCode:           l.PostalCode,
		AnalysisTimestamp:    l.AnalysisTimestamp,
	}
}
