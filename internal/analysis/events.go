package analysis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/landmarklens/landmark-api/pkg/enums"
)

const (
	EventAnalysisCompleted = "photo.analysis.completed"
	EventAnalysisFailed    = "photo.analysis.failed"
)

// EventPublisher delivers serialized analysis events.
type EventPublisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

// Event is the payload published after every finished analysis run.
type Event struct {
	EventID      uuid.UUID              `json:"event_id"`
	EventType    string                 `json:"event_type"`
	PhotoID      uuid.UUID              `json:"photo_id"`
	UserID       uuid.UUID              `json:"user_id"`
	Status       enums.ProcessingStatus `json:"processing_status"`
	LandmarkName *string                `json:"detected_landmark_name,omitempty"`
	Step         string                 `json:"step,omitempty"`
	Reason       string                 `json:"reason,omitempty"`
	OccurredAt   time.Time              `json:"occurred_at"`
}

func (o *Orchestrator) publish(ctx context.Context, evt Event) {
	if o.publisher == nil {
		return
	}
	evt.EventID = uuid.New()
	evt.OccurredAt = time.Now().UTC()

	data, err := json.Marshal(evt)
	if err != nil {
		o.logg.Error(ctx, "encode analysis event", err)
		return
	}
	attrs := map[string]string{
		"event_type": evt.EventType,
		"photo_id":   evt.PhotoID.String(),
	}
	if _, err := o.publisher.Publish(ctx, data, attrs); err != nil {
		o.logg.Error(o.logg.WithField(ctx, "event_type", evt.EventType), "publish analysis event", err)
	}
}
