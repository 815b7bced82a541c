package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateRouteAssignment OutboxAggregateType = "route_assignment"
	AggregateRoute           OutboxAggregateType = "route"
	AggregateCheckpoint      OutboxAggregateType = "checkpoint"
	AggregateMedia           OutboxAggregateType = "media"
	AggregateNotification    OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateRouteAssignment,
	AggregateRoute,
	AggregateCheckpoint,
	AggregateMedia,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventAssignmentCreated   OutboxEventType = "assignment_created"
	EventAssignmentStarted   OutboxEventType = "assignment_started"
	EventAssignmentCompleted OutboxEventType = "assignment_completed"
	EventAssignmentCancelled OutboxEventType = "assignment_cancelled"
	EventAssignmentOverdue   OutboxEventType = "assignment_overdue"
	EventCheckpointScanned   OutboxEventType = "checkpoint_scanned"
	EventMediaUploaded       OutboxEventType = "media_uploaded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventAssignmentCreated,
	EventAssignmentStarted,
	EventAssignmentCompleted,
	EventAssignmentCancelled,
	EventAssignmentOverdue,
	EventCheckpointScanned,
	EventMediaUploaded,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
