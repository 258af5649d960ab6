package health

import (
	"sort"
	"sync"
	"time"
)

// Status values reported by components.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusError    = "error"
	StatusUnknown  = "unknown"
)

// ComponentHealth represents the health status of a single component.
type ComponentHealth struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	LastOK    time.Time `json:"last_ok"`
	LastError time.Time `json:"last_error,omitempty"`
}

// HealthReport aggregates health from all components.
type HealthReport struct {
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
	Errors     []LogEntry                 `json:"recent_errors,omitempty"`
}

// LogEntry represents a persisted warn or error log record.
type LogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
}

// HealthChecker is implemented by components that report health.
type HealthChecker interface {
	HealthCheck() ComponentHealth
}

// Tracker records successes and failures of one component.
// The zero value is ready to use.
type Tracker struct {
	mu           sync.RWMutex
	lastSuccess  time.Time
	lastError    time.Time
	lastErrorMsg string
}

// RecordSuccess records a successful operation.
func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSuccess = time.Now()
}

// RecordError records a failed operation.
func (t *Tracker) RecordError(err error) {
	if err == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastError = time.Now()
	t.lastErrorMsg = err.Error()
}

// Check derives the component health from the recorded history.
func (t *Tracker) Check(name string) ComponentHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	h := ComponentHealth{Name: name, Status: StatusOK, LastOK: t.lastSuccess}
	if !t.lastError.IsZero() {
		// If last error is more recent than last success, we're in trouble
		if t.lastError.After(t.lastSuccess) {
			h.Status = StatusError
			h.Message = t.lastErrorMsg
			h.LastError = t.lastError
		} else if time.Since(t.lastError) < 5*time.Minute {
			h.Status = StatusDegraded
			h.Message = "recent error: " + t.lastErrorMsg
			h.LastError = t.lastError
		}
	}
	if t.lastSuccess.IsZero() && t.lastError.IsZero() {
		h.Status = StatusUnknown
		h.Message = "no calls yet"
	}
	return h
}

// Registry holds health checkers for all components.
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
}

// NewRegistry creates a new health registry.
func NewRegistry() *Registry {
	return &Registry{
		checkers: make(map[string]HealthChecker),
	}
}

// Register adds a component health checker.
func (r *Registry) Register(name string, checker HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = checker
}

// Names returns the registered component names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.checkers))
	for n := range r.checkers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Check runs all health checks and returns a report.
func (r *Registry) Check() HealthReport {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report := HealthReport{
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}
	for name, checker := range r.checkers {
		report.Components[name] = checker.HealthCheck()
	}
	return report
}

// GetStatus returns the overall system status.
func (r *Registry) GetStatus() string {
	report := r.Check()
	for _, c := range report.Components {
		if c.Status == StatusError {
			return StatusError
		}
	}
	for _, c := range report.Components {
		if c.Status == StatusDegraded {
			return StatusDegraded
		}
	}
	return StatusOK
}
