package store

import (
	"github.com/webwright/webwright/internal/health"
)

// HealthCheck reports whether the database answers queries. The tracker
// keeps the last good and bad probe times across calls.
func (db *DB) HealthCheck() health.ComponentHealth {
	if err := db.Ping(); err != nil {
		db.tracker.RecordError(err)
		return db.tracker.Check("database")
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM log_entries").Scan(&count); err != nil {
		db.tracker.RecordError(err)
		h := db.tracker.Check("database")
		h.Status = health.StatusDegraded
		h.Message = "cannot query log_entries: " + err.Error()
		return h
	}

	db.tracker.RecordSuccess()
	return db.tracker.Check("database")
}

// EntryCount returns the number of stored conversation entries.
func (db *DB) EntryCount() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM log_entries").Scan(&count)
	return count, err
}
