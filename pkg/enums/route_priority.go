package enums

import "fmt"

// RoutePriority maps to the route_priority enum in Postgres.
type RoutePriority string

const (
	RoutePriorityLow    RoutePriority = "low"
	RoutePriorityMedium RoutePriority = "medium"
	RoutePriorityHigh   RoutePriority = "high"
	RoutePriorityUrgent RoutePriority = "urgent"
)

var validRoutePriorities = []RoutePriority{
	RoutePriorityLow,
	RoutePriorityMedium,
	RoutePriorityHigh,
	RoutePriorityUrgent,
}

// String returns the literal string for the priority.
func (r RoutePriority) String() string {
	return string(r)
}

// IsValid reports whether the priority is known.
func (r RoutePriority) IsValid() bool {
	for _, candidate := range validRoutePriorities {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRoutePriority converts raw input into a RoutePriority.
func ParseRoutePriority(value string) (RoutePriority, error) {
	for _, candidate := range validRoutePriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid route priority %q", value)
}
