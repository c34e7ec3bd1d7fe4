package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/landmarklens/landmark-api/pkg/enums"
	pkgerrors "github.com/landmarklens/landmark-api/pkg/errors"
	"github.com/landmarklens/landmark-api/pkg/pagination"
)

// PhotoListQuery is the query string accepted by photo listings.
type PhotoListQuery struct {
	Limit  int    `json:"limit" validate:"min=1,max=100"`
	Cursor string `json:"cursor" validate:"max=512"`
	Status string `json:"status" validate:"omitempty,oneof=pending processing completed failed"`
}

// ParsePhotoListQuery reads limit, cursor and status. A missing limit means
// pagination.DefaultLimit; bounds are left to the validate tags.
func ParsePhotoListQuery(r *http.Request) (PhotoListQuery, error) {
	values := r.URL.Query()
	q := PhotoListQuery{
		Limit:  pagination.DefaultLimit,
		Cursor: SanitizeString(values.Get("cursor"), 0),
		Status: strings.ToLower(SanitizeString(values.Get("status"), 32)),
	}
	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return PhotoListQuery{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"limit": "must be a number"})
		}
		q.Limit = limit
	}
	if err := ValidateStruct(q); err != nil {
		return PhotoListQuery{}, err
	}
	return q, nil
}

// StatusFilter returns the parsed status or nil when none was given.
func (q PhotoListQuery) StatusFilter() *enums.ProcessingStatus {
	if q.Status == "" {
		return nil
	}
	status, err := enums.ParseProcessingStatus(q.Status)
	if err != nil {
		return nil
	}
	return &status
}
