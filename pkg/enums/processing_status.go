package enums

import "fmt"

// ProcessingStatus tracks a photo through the landmark analysis pipeline.
type ProcessingStatus string

const (
	ProcessingStatusPending    ProcessingStatus = "pending"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
)

var validProcessingStatuses = []ProcessingStatus{
	ProcessingStatusPending,
	ProcessingStatusProcessing,
	ProcessingStatusCompleted,
	ProcessingStatusFailed,
}

// Only processing may resolve to a terminal state. Terminal states (and
// pending) may only re-enter processing.
var processingTransitions = map[ProcessingStatus][]ProcessingStatus{
	ProcessingStatusPending:    {ProcessingStatusProcessing},
	ProcessingStatusProcessing: {ProcessingStatusCompleted, ProcessingStatusFailed},
	ProcessingStatusCompleted:  {ProcessingStatusProcessing},
	ProcessingStatusFailed:     {ProcessingStatusProcessing},
}

// String returns the literal string for the status.
func (s ProcessingStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s ProcessingStatus) IsValid() bool {
	for _, candidate := range validProcessingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends a pipeline run.
func (s ProcessingStatus) IsTerminal() bool {
	return s == ProcessingStatusCompleted || s == ProcessingStatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal edge.
func (s ProcessingStatus) CanTransitionTo(next ProcessingStatus) bool {
	for _, allowed := range processingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseProcessingStatus converts raw input into a ProcessingStatus.
func ParseProcessingStatus(value string) (ProcessingStatus, error) {
	for _, candidate := range validProcessingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid processing status %q", value)
}
