package enums

import "fmt"

// AnalyticsEventType is the canonical event_type for analytics routing.
type AnalyticsEventType string

const (
	AnalyticsEventAssignmentCreated   AnalyticsEventType = "assignment_created"
	AnalyticsEventAssignmentStarted   AnalyticsEventType = "assignment_started"
	AnalyticsEventAssignmentCompleted AnalyticsEventType = "assignment_completed"
	AnalyticsEventAssignmentCancelled AnalyticsEventType = "assignment_cancelled"
	AnalyticsEventAssignmentOverdue   AnalyticsEventType = "assignment_overdue"
	AnalyticsEventCheckpointScanned   AnalyticsEventType = "checkpoint_scanned"
)

var validAnalyticsEventTypes = []AnalyticsEventType{
	AnalyticsEventAssignmentCreated,
	AnalyticsEventAssignmentStarted,
	AnalyticsEventAssignmentCompleted,
	AnalyticsEventAssignmentCancelled,
	AnalyticsEventAssignmentOverdue,
	AnalyticsEventCheckpointScanned,
}

// IsValid reports whether the value matches the canonical analytics event_type enum.
func (a AnalyticsEventType) IsValid() bool {
	for _, candidate := range validAnalyticsEventTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAnalyticsEventType converts the raw string to AnalyticsEventType.
func ParseAnalyticsEventType(value string) (AnalyticsEventType, error) {
	for _, candidate := range validAnalyticsEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid analytics event type %q", value)
}
