package db

func (db *DB) initSchema() error {
	schema := `
	-- Sessions table, one row per client session id and email. A session
	-- id survives an email change; the new email starts a new row.
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(session_id, email)
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_email ON sessions(email COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);

	-- Messages table, append-only in turn order
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('user', 'assistant')),
		content TEXT NOT NULL,
		created_at TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		UNIQUE(session_id, sequence),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}
