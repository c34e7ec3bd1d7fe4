package photos

import (
	"context"

	"github.com/google/uuid"

	"github.com/landmarklens/landmark-api/pkg/db/models"
	"github.com/landmarklens/landmark-api/pkg/enums"
	pkgerrors "github.com/landmarklens/landmark-api/pkg/errors"
	"github.com/landmarklens/landmark-api/pkg/pagination"
)

// ListParams configures photo listing filters and pagination.
type ListParams struct {
	UserID uuid.UUID
	Status *enums.ProcessingStatus
	Limit  int
	Cursor string
}

// ListResult returns one page of photos.
type ListResult struct {
	Items  []PhotoPayload `json:"items"`
	Cursor string         `json:"cursor"`
}

type listQuery struct {
	userID uuid.UUID
	status *enums.ProcessingStatus
	limit  int
	cursor *pagination.Cursor
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid processing status")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, listQuery{
		userID: params.UserID,
		status: params.Status,
		limit:  pagination.LimitWithBuffer(limit),
		cursor: cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list photos")
	}

	rows, next := pagination.Page(rows, limit, func(p models.Photo) pagination.Cursor {
		return pagination.Cursor{At: p.UploadedAt, ID: p.ID}
	})

	items := make([]PhotoPayload, len(rows))
	for i := range rows {
		items[i] = ToPayload(&rows[i], s.publicURL)
	}
	return &ListResult{Items: items, Cursor: next}, nil
}
