package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neilberkman/agentchat/internal/core/models"
)

// DefaultListLimit caps ListSessions when the filter sets no limit
const DefaultListLimit = 100

var (
	// ErrSessionNotFound is returned when no archived session matches an id
	ErrSessionNotFound = errors.New("session not found")
	// ErrAmbiguousSession is returned when an id or prefix matches several
	// sessions. An email narrows the match.
	ErrAmbiguousSession = errors.New("session id is ambiguous")
)

// SessionFilter narrows ListSessions
type SessionFilter struct {
	Email string    // case-insensitive exact match
	Since time.Time // sessions updated at or after
	Limit int
}

// RecordMessage archives one message of a live session. Rows are keyed on
// the session id and the email the message was sent under, so messages from
// before and after an email change never share a row. The row is created
// on first use and its updated_at follows the latest message. Messages get
// the next sequence number of their row.
func (db *DB) RecordMessage(sessionID, email string, msg models.Message) error {
	session := models.Session{SessionID: sessionID, Email: strings.TrimSpace(email)}
	if err := session.Validate(); err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	if !msg.Role.Valid() {
		return fmt.Errorf("record message: invalid role %q", msg.Role)
	}

	at := msg.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	stamp := formatTime(at)

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO sessions (session_id, email, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, email) DO UPDATE SET
			updated_at = excluded.updated_at
	`, session.SessionID, session.Email, stamp, stamp)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	var id int64
	err = tx.QueryRow(`SELECT id FROM sessions WHERE session_id = ? AND email = ?`,
		session.SessionID, session.Email).Scan(&id)
	if err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO messages (session_id, role, content, created_at, sequence)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(sequence), 0) + 1 FROM messages WHERE session_id = ?))
	`, id, string(msg.Role), msg.Content, stamp, id)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	return tx.Commit()
}

// ListSessions returns archived sessions, most recently updated first
func (db *DB) ListSessions(filter SessionFilter) ([]models.Session, error) {
	query := `
		SELECT
			s.id,
			s.session_id,
			s.email,
			s.created_at,
			s.updated_at,
			(SELECT COUNT(*) FROM messages WHERE session_id = s.id) as message_count,
			COALESCE((SELECT content FROM messages
			          WHERE session_id = s.id AND role = 'user'
			          ORDER BY sequence ASC LIMIT 1), '') as preview
		FROM sessions s
		WHERE 1 = 1`

	args := []interface{}{}
	if filter.Email != "" {
		query += " AND s.email = ? COLLATE NOCASE"
		args = append(args, strings.TrimSpace(filter.Email))
	}
	if !filter.Since.IsZero() {
		query += " AND s.updated_at >= ?"
		args = append(args, formatTime(filter.Since))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query += `
		ORDER BY s.updated_at DESC
		LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// GetTranscript loads a session and its messages in sequence order.
// sessionID may be a unique prefix of the full id. A non-empty email picks
// the row recorded under that email (case-insensitive); without one, a
// session id used with several emails is ambiguous.
func (db *DB) GetTranscript(sessionID, email string) (*models.Transcript, error) {
	sessionID = strings.TrimSpace(sessionID)
	email = strings.TrimSpace(email)
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	query := `
		SELECT
			s.id,
			s.session_id,
			s.email,
			s.created_at,
			s.updated_at,
			(SELECT COUNT(*) FROM messages WHERE session_id = s.id) as message_count,
			COALESCE((SELECT content FROM messages
			          WHERE session_id = s.id AND role = 'user'
			          ORDER BY sequence ASC LIMIT 1), '') as preview
		FROM sessions s
		WHERE (s.session_id = ? OR s.session_id LIKE ? ESCAPE '\')`
	args := []interface{}{sessionID, escapeLike(sessionID) + "%"}
	if email != "" {
		query += " AND s.email = ? COLLATE NOCASE"
		args = append(args, email)
	}
	query += `
		ORDER BY s.session_id = ? DESC
		LIMIT 2`
	args = append(args, sessionID)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	var matches []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		matches = append(matches, s)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Exact ids sort first, so a single exact match beats any prefix match
	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	case len(matches) > 1 && (matches[0].SessionID != sessionID || matches[1].SessionID == sessionID):
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousSession, sessionID)
	}

	transcript := &models.Transcript{Session: matches[0]}
	msgRows, err := db.conn.Query(`
		SELECT role, content, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY sequence ASC
	`, transcript.Session.ID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() { _ = msgRows.Close() }()

	for msgRows.Next() {
		var role, content, createdAt string
		if err := msgRows.Scan(&role, &content, &createdAt); err != nil {
			return nil, err
		}
		transcript.Messages = append(transcript.Messages, models.Message{
			Role:      models.Role(role),
			Content:   content,
			CreatedAt: parseTime(createdAt),
		})
	}

	return transcript, msgRows.Err()
}

func scanSession(rows *sql.Rows) (models.Session, error) {
	var s models.Session
	var createdAt, updatedAt string
	if err := rows.Scan(&s.ID, &s.SessionID, &s.Email, &createdAt, &updatedAt, &s.MessageCount, &s.Preview); err != nil {
		return s, err
	}
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return s, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
