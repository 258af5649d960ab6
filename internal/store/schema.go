package store

const schema = `
CREATE TABLE IF NOT EXISTS log_entries (
	id TEXT PRIMARY KEY,
	seq INTEGER NOT NULL,
	timestamp TEXT NOT NULL,
	type TEXT NOT NULL,
	document TEXT NOT NULL,
	metadata TEXT NOT NULL,
	embedding BLOB
);

CREATE INDEX IF NOT EXISTS idx_log_entries_timestamp ON log_entries(timestamp, seq);
CREATE INDEX IF NOT EXISTS idx_log_entries_type ON log_entries(type);

CREATE TABLE IF NOT EXISTS collection_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS system_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	level TEXT NOT NULL,
	component TEXT NOT NULL,
	message TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON system_logs(timestamp);
CREATE INDEX IF NOT EXISTS idx_logs_level ON system_logs(level);
`
