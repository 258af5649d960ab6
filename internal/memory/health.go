package memory

import (
	"github.com/webwright/webwright/internal/health"
)

// HealthCheck reports whether recent appends and searches succeeded.
func (l *Log) HealthCheck() health.ComponentHealth {
	h := l.tracker.Check("memory")
	if h.Status == health.StatusUnknown {
		h.Message = "no log activity yet (embedder " + l.embedder.Name() + ")"
	}
	return h
}
