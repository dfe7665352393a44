package health

import "time"

func newStatus(component, state, message string) Status {
	return Status{
		Component: component,
		Healthy:   state == statusHealthy,
		Status:    state,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewHealthy builds a healthy status for a component.
func NewHealthy(component, message string) Status {
	return newStatus(component, statusHealthy, message)
}

// NewUnhealthy builds an unhealthy status for a component.
func NewUnhealthy(component, message string) Status {
	return newStatus(component, statusUnhealthy, message)
}

// NewDegraded builds a degraded status: the component works but below its
// normal service level, like a supervisor mid-reconnect.
func NewDegraded(component, message string) Status {
	return newStatus(component, statusDegraded, message)
}

// Aggregate folds sub-statuses into one: unhealthy dominates, then
// degraded, then healthy. The inputs are attached as sub-statuses so the
// health endpoint can show the per-component breakdown.
func Aggregate(component string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return NewHealthy(component, "No sub-components to aggregate")
	}

	worst := NewHealthy(component, "All sub-components are healthy")
	for _, sub := range subStatuses {
		if sub.IsUnhealthy() {
			worst = NewUnhealthy(component, "One or more sub-components are unhealthy")
			break
		}
		if sub.IsDegraded() {
			worst = NewDegraded(component, "One or more sub-components are degraded")
		}
	}

	worst.SubStatuses = make([]Status, len(subStatuses))
	copy(worst.SubStatuses, subStatuses)
	return worst
}
