package conversation

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteStore is a SQLite-backed conversation log. Messages are keyed by
// an autoincrement rowid, so insertion order and chronological order are
// the same thing even when two appends land within one clock tick.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store on an open database handle. The caller
// owns the handle; open it with the driver of your choice (the daemon
// uses mattn/go-sqlite3 with WAL, tests use modernc.org/sqlite in
// memory).
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate creates the database schema.
func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		attachments TEXT,
		created_at TIMESTAMP NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append durably writes one message. The INSERT has committed by the
// time Append returns; callers treat this as the durability barrier.
func (s *SQLiteStore) Append(m Message) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var attachments any
	if len(m.Attachments) > 0 {
		data, err := json.Marshal(m.Attachments)
		if err != nil {
			return fmt.Errorf("encode attachments: %w", err)
		}
		attachments = string(data)
	} // else nil (NULL)

	_, err := s.db.Exec(`
		INSERT INTO messages (role, content, attachments, created_at)
		VALUES (?, ?, ?, ?)
	`, m.Role, m.Content, attachments, ts)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Recent returns the last limit messages in chronological order. The
// query walks the log backwards for the LIMIT, then the slice is
// reversed so callers always see oldest-first.
func (s *SQLiteStore) Recent(limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT role, content, attachments, created_at
		FROM messages
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var attachments sql.NullString
		if err := rows.Scan(&m.Role, &m.Content, &attachments, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if attachments.Valid {
			if err := json.Unmarshal([]byte(attachments.String), &m.Attachments); err != nil {
				return nil, fmt.Errorf("decode attachments: %w", err)
			}
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Reverse to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Clear removes all persisted messages.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM messages`); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}

// Count reports the number of persisted messages.
func (s *SQLiteStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}
