package health

import (
	"fmt"
	"sync"
	"time"
)

// Monitor tracks the last reported status of each bridge component. It is a
// passive store: components (or the main health ticker) push updates, and
// the metrics server reads the aggregate. A component that stops reporting
// is degraded once its entry goes stale.
type Monitor struct {
	mu         sync.RWMutex
	statuses   map[string]Status
	staleAfter time.Duration
}

// NewMonitor creates a monitor with staleness detection disabled.
func NewMonitor() *Monitor {
	return &Monitor{
		statuses: make(map[string]Status),
	}
}

// SetStaleAfter enables staleness detection: a status older than d reads
// back as degraded. Zero disables it.
func (m *Monitor) SetStaleAfter(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staleAfter = d
}

// Update records the latest status for a named component. The name wins
// over whatever component the status names, and a missing timestamp is
// filled in.
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	m.statuses[name] = status
}

// UpdateHealthy records the component as healthy.
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateUnhealthy records the component as unhealthy.
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// UpdateDegraded records the component as degraded.
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, NewDegraded(name, message))
}

// decorate applies staleness to a stored status. Caller holds at least a
// read lock.
func (m *Monitor) decorate(status Status) Status {
	if m.staleAfter <= 0 {
		return status
	}
	if age := time.Since(status.Timestamp); age > m.staleAfter && status.IsHealthy() {
		status.Healthy = false
		status.Status = statusDegraded
		status.Message = fmt.Sprintf("no report for %s", age.Round(time.Second))
	}
	return status
}

// Get returns the current status for a named component.
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, exists := m.statuses[name]
	if !exists {
		return Status{}, false
	}
	return m.decorate(status), true
}

// GetAll returns a snapshot of every tracked component's status.
func (m *Monitor) GetAll() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := make(map[string]Status, len(m.statuses))
	for name, status := range m.statuses {
		snapshot[name] = m.decorate(status)
	}
	return snapshot
}

// Remove drops a component from tracking.
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, name)
}

// AggregateHealth folds every tracked status into one system-level status:
// any unhealthy component makes the system unhealthy, otherwise any
// degraded component makes it degraded.
func (m *Monitor) AggregateHealth(systemName string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subStatuses := make([]Status, 0, len(m.statuses))
	for _, status := range m.statuses {
		subStatuses = append(subStatuses, m.decorate(status))
	}
	return Aggregate(systemName, subStatuses)
}
