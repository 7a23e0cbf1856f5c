package db

import (
	"database/sql"
	"os"
	"time"
)

// Stats represents archive statistics
type Stats struct {
	TotalSessions        int
	TotalMessages        int
	UserMessages         int
	Identities           int // distinct non-empty emails
	OldestSession        time.Time
	NewestSession        time.Time
	MostActiveEmail      string
	MostActiveEmailCount int
	SizeBytes            int64
}

// GetStats returns archive statistics
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := db.conn.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&stats.TotalSessions)
	if err != nil {
		return nil, err
	}

	err = db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN role = 'user' THEN 1 ELSE 0 END), 0)
		FROM messages
	`).Scan(&stats.TotalMessages, &stats.UserMessages)
	if err != nil {
		return nil, err
	}

	err = db.conn.QueryRow("SELECT COUNT(DISTINCT LOWER(email)) FROM sessions WHERE email != ''").Scan(&stats.Identities)
	if err != nil {
		return nil, err
	}

	// Date range (only if we have sessions)
	if stats.TotalSessions > 0 {
		var minCreated, maxUpdated sql.NullString
		err = db.conn.QueryRow("SELECT MIN(created_at), MAX(updated_at) FROM sessions").Scan(&minCreated, &maxUpdated)
		if err != nil {
			return nil, err
		}
		if minCreated.Valid {
			stats.OldestSession = parseTime(minCreated.String)
		}
		if maxUpdated.Valid {
			stats.NewestSession = parseTime(maxUpdated.String)
		}

		var email sql.NullString
		err = db.conn.QueryRow(`
			SELECT email, COUNT(*) as count
			FROM sessions
			WHERE email != ''
			GROUP BY LOWER(email)
			ORDER BY count DESC, MAX(updated_at) DESC
			LIMIT 1
		`).Scan(&email, &stats.MostActiveEmailCount)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
		stats.MostActiveEmail = email.String
	}

	if info, err := os.Stat(db.path); err == nil {
		stats.SizeBytes = info.Size()
	}

	return stats, nil
}
