package store

import (
	"context"
	"database/sql"
	"errors"
)

// LogRow is one persisted conversation log entry.
// Document is the text that was embedded; Metadata is the full entry as JSON.
type LogRow struct {
	ID        string
	Seq       int64
	Timestamp string
	Type      string
	Document  string
	Metadata  string
	Embedding []byte // serialised vector, nil when not loaded
	Embedder  string
}

// LogFilter narrows LogEntries. Zero values mean "no constraint".
type LogFilter struct {
	Type           string
	From, To       string // inclusive timestamp bounds
	Limit          int
	Newest         bool // order newest first (before Limit is applied)
	WithEmbeddings bool
}

// UpsertLogEntry inserts r or replaces the row with the same id.
// The sequence number of an existing row is kept so ordering stays stable.
func (db *DB) UpsertLogEntry(ctx context.Context, r LogRow) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO log_entries (id, seq, timestamp, type, document, metadata, embedding, embedder)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM log_entries), ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			timestamp = excluded.timestamp,
			type = excluded.type,
			document = excluded.document,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			embedder = excluded.embedder`,
		r.ID, r.Timestamp, r.Type, r.Document, r.Metadata, r.Embedding, r.Embedder,
	)
	return err
}

// LogEntryByID returns the row with the given id, or nil if there is none.
func (db *DB) LogEntryByID(ctx context.Context, id string) (*LogRow, error) {
	var r LogRow
	var emb []byte
	err := db.QueryRowContext(ctx,
		`SELECT id, seq, timestamp, type, document, metadata, embedding, embedder FROM log_entries WHERE id = ?`, id,
	).Scan(&r.ID, &r.Seq, &r.Timestamp, &r.Type, &r.Document, &r.Metadata, &emb, &r.Embedder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Embedding = emb
	return &r, nil
}

// LogEntries returns rows matching f ordered by (timestamp, seq).
// With f.Newest the order is reversed before the limit is applied and the
// result is returned newest first; callers reverse it for chronological views.
func (db *DB) LogEntries(ctx context.Context, f LogFilter) ([]LogRow, error) {
	cols := "id, seq, timestamp, type, document, metadata, embedder"
	if f.WithEmbeddings {
		cols += ", embedding"
	}
	query := "SELECT " + cols + " FROM log_entries WHERE 1=1"
	var args []interface{}
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, f.Type)
	}
	if f.From != "" {
		query += " AND timestamp >= ?"
		args = append(args, f.From)
	}
	if f.To != "" {
		query += " AND timestamp <= ?"
		args = append(args, f.To)
	}
	if f.Newest {
		query += " ORDER BY timestamp DESC, seq DESC"
	} else {
		query += " ORDER BY timestamp ASC, seq ASC"
	}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LogRow
	for rows.Next() {
		var r LogRow
		dest := []interface{}{&r.ID, &r.Seq, &r.Timestamp, &r.Type, &r.Document, &r.Metadata, &r.Embedder}
		if f.WithEmbeddings {
			dest = append(dest, &r.Embedding)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateEmbedding replaces the vector of one entry.
func (db *DB) UpdateEmbedding(ctx context.Context, id string, embedding []byte, embedder string) error {
	_, err := db.ExecContext(ctx, `UPDATE log_entries SET embedding = ?, embedder = ? WHERE id = ?`, embedding, embedder, id)
	return err
}

// CountLogEntries returns the number of stored entries.
func (db *DB) CountLogEntries(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM log_entries`).Scan(&n)
	return n, err
}

// CollectionMeta reads one collection-level setting.
func (db *DB) CollectionMeta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := db.QueryRowContext(ctx, `SELECT value FROM collection_meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetCollectionMeta writes one collection-level setting.
func (db *DB) SetCollectionMeta(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO collection_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// EntryStore is the persistence surface the conversation log needs.
type EntryStore interface {
	UpsertLogEntry(ctx context.Context, r LogRow) error
	LogEntryByID(ctx context.Context, id string) (*LogRow, error)
	LogEntries(ctx context.Context, f LogFilter) ([]LogRow, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []byte, embedder string) error
	CountLogEntries(ctx context.Context) (int, error)
	CollectionMeta(ctx context.Context, key string) (string, bool, error)
	SetCollectionMeta(ctx context.Context, key, value string) error
}

// Ensure *DB implements EntryStore.
var _ EntryStore = (*DB)(nil)
