package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/health"
)

// LogStore keeps warn and error records of the process log in SQLite so they
// can be read back by tools and the CLI, with automatic cleanup.
type LogStore struct {
	db         *DB
	mu         sync.Mutex
	maxEntries int // Max log entries to keep
	maxAgeDays int // Max age of logs in days
}

// NewLogStore creates a log store with default limits.
func NewLogStore(db *DB) *LogStore {
	return &LogStore{
		db:         db,
		maxEntries: 10000,
		maxAgeDays: 7,
	}
}

// Log writes a log entry.
func (s *LogStore) Log(level, component, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO system_logs (timestamp, level, component, message) VALUES (?, ?, ?, ?)",
		core.FormatTimestamp(time.Now()), level, component, message,
	)
	return err
}

// GetLogs retrieves recent logs, newest first, with optional filters.
func (s *LogStore) GetLogs(level, component string, limit int) ([]health.LogEntry, error) {
	query := "SELECT id, timestamp, level, component, message FROM system_logs WHERE 1=1"
	args := []interface{}{}

	if level != "" {
		query += " AND level = ?"
		args = append(args, level)
	}
	if component != "" {
		query += " AND component = ?"
		args = append(args, component)
	}

	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []health.LogEntry
	for rows.Next() {
		var entry health.LogEntry
		var ts string
		if err := rows.Scan(&entry.ID, &ts, &entry.Level, &entry.Component, &entry.Message); err != nil {
			return nil, err
		}
		entry.Timestamp, _ = core.ParseTimestamp(ts)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// GetErrors retrieves recent error logs.
func (s *LogStore) GetErrors(limit int) ([]health.LogEntry, error) {
	return s.GetLogs("error", "", limit)
}

// Cleanup removes old logs based on configured limits.
func (s *LogStore) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := core.FormatTimestamp(time.Now().AddDate(0, 0, -s.maxAgeDays))
	if _, err := s.db.Exec("DELETE FROM system_logs WHERE timestamp < ?", cutoff); err != nil {
		return fmt.Errorf("cleanup by age: %w", err)
	}

	_, err := s.db.Exec(`
		DELETE FROM system_logs WHERE id NOT IN (
			SELECT id FROM system_logs ORDER BY timestamp DESC, id DESC LIMIT ?
		)
	`, s.maxEntries)
	if err != nil {
		return fmt.Errorf("cleanup by count: %w", err)
	}
	return nil
}

// Count returns the number of log entries.
func (s *LogStore) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM system_logs").Scan(&count)
	return count, err
}
