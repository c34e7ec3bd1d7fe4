package models

import (
	"time"

	"github.com/google/uuid"
)

// UnknownLandmarkName marks an analysis that found no landmark in the photo.
const UnknownLandmarkName = "Unknown"

// Landmark is the analysis result owned by exactly one Photo. Latitude and
// Longitude are either both set or both nil.
type Landmark struct {
	ID                   uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PhotoID              uuid.UUID `gorm:"column:photo_id;type:uuid;not null;uniqueIndex"`
	DetectedLandmarkName *string   `gorm:"column:detected_landmark_name"`
	Latitude             *float64  `gorm:"column:latitude"`
	Longitude            *float64  `gorm:"column:longitude"`
	FormattedAddress     *string   `gorm:"column:formatted_address"`
	StreetNumber         *string   `gorm:"column:street_number"`
	Route                *string   `gorm:"column:route"`
	Neighborhood         *string   `gorm:"column:neighborhood"`
	Sublocality          *string   `gorm:"column:sublocality"`
	Locality             *string   `gorm:"column:locality"`
	State                *string   `gorm:"column:state"`
	District             *string   `gorm:"column:district"`
	Country              *string   `gorm:"column:country"`
	PostalCode           *string   `gorm:"column:postal_code"`
	AnalysisTimestamp    time.Time `gorm:"column:analysis_timestamp;autoUpdateTime"`
}

func (Landmark) TableName() string { return "landmarks" }

// HasCoordinate reports whether both halves of the coordinate are present.
func (l *Landmark) HasCoordinate() bool {
	return l != nil && l.Latitude != nil && l.Longitude != nil
}

// IsUnknown reports whether the record is the "nothing detected" outcome: the
// Unknown name with no coordinate. A detected landmark that happens to be
// called "Unknown" still carries its location and is not this outcome.
func (l *Landmark) IsUnknown() bool {
	return l != nil && !l.HasCoordinate() &&
		l.DetectedLandmarkName != nil && *l.DetectedLandmarkName == UnknownLandmarkName
}
