package health

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fixed ComponentHealth

func (f fixed) HealthCheck() ComponentHealth { return ComponentHealth(f) }

func TestTracker(t *testing.T) {
	var tr Tracker
	assert.Equal(t, StatusUnknown, tr.Check("llm").Status)

	tr.RecordSuccess()
	assert.Equal(t, StatusOK, tr.Check("llm").Status)

	time.Sleep(time.Millisecond)
	tr.RecordError(errors.New("timeout"))
	h := tr.Check("llm")
	assert.Equal(t, StatusError, h.Status)
	assert.Equal(t, "timeout", h.Message)

	time.Sleep(time.Millisecond)
	tr.RecordSuccess()
	h = tr.Check("llm")
	assert.Equal(t, StatusDegraded, h.Status)
	assert.Equal(t, "recent error: timeout", h.Message)

	tr.RecordError(nil)
	assert.Equal(t, StatusDegraded, tr.Check("llm").Status)
}

func TestRegistry_Status(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, StatusOK, r.GetStatus())

	r.Register("memory", fixed{Name: "memory", Status: StatusOK})
	r.Register("database", fixed{Name: "database", Status: StatusDegraded})
	assert.Equal(t, []string{"database", "memory"}, r.Names())
	assert.Equal(t, StatusDegraded, r.GetStatus())

	r.Register("llm", fixed{Name: "llm", Status: StatusError})
	report := r.Check()
	assert.Len(t, report.Components, 3)
	assert.Equal(t, StatusError, r.GetStatus())
}
