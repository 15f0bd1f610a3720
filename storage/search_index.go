package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// MessageMatch is one search hit inside a stored session.
type MessageMatch struct {
	SessionID    string
	SessionName  string
	MessageIndex int
	Role         string
	Content      string
	Preview      string
	UpdatedAt    time.Time
}

// SearchIndex keeps a sqlite copy of every session's messages so full-text
// lookups do not reload each session file. IndexSession keeps it current;
// Rebuild regenerates it from disk.
type SearchIndex struct {
	db      *sql.DB
	storage *SessionStorage
}

func NewSearchIndex(dataDir string, storage *SessionStorage) (*SearchIndex, error) {
	dbPath := filepath.Join(dataDir, "search.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	si := &SearchIndex{db: db, storage: storage}

	if err := si.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return si, nil
}

func (si *SearchIndex) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		session_id TEXT NOT NULL,
		session_name TEXT NOT NULL,
		message_index INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (session_id, message_index)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_content ON messages(content);
	`

	_, err := si.db.Exec(schema)
	return err
}

// IndexSession replaces the stored rows for one session. System messages
// are not indexed; searching should surface conversation, not boilerplate.
func (si *SearchIndex) IndexSession(session *Session) error {
	tx, err := si.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, session.ID); err != nil {
		return err
	}

	insert := `
	INSERT INTO messages (session_id, session_name, message_index, role, content, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	for i, msg := range session.Messages {
		if msg.Role == "system" || msg.Content == "" {
			continue
		}
		if _, err := tx.Exec(insert, session.ID, session.Name, i, msg.Role, msg.Content, session.UpdatedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RemoveSession drops a session's rows from the index.
func (si *SearchIndex) RemoveSession(sessionID string) error {
	_, err := si.db.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID)
	return err
}

// Rebuild regenerates the whole index from the session files on disk.
func (si *SearchIndex) Rebuild() error {
	metas, err := si.storage.List()
	if err != nil {
		return err
	}

	if _, err := si.db.Exec(`DELETE FROM messages`); err != nil {
		return err
	}

	for _, meta := range metas {
		session, err := si.storage.Load(meta.ID)
		if err != nil {
			continue
		}
		if err := si.IndexSession(session); err != nil {
			return err
		}
	}
	return nil
}

// Search returns messages whose content contains the query,
// case-insensitively, newest session first.
func (si *SearchIndex) Search(query string) ([]MessageMatch, error) {
	if query == "" {
		return []MessageMatch{}, nil
	}

	rows, err := si.db.Query(`
	SELECT session_id, session_name, message_index, role, content, updated_at
	FROM messages
	WHERE content LIKE ? ESCAPE '\'
	ORDER BY updated_at DESC, message_index ASC
	`, "%"+escapeLike(query)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []MessageMatch
	for rows.Next() {
		var m MessageMatch
		err := rows.Scan(
			&m.SessionID,
			&m.SessionName,
			&m.MessageIndex,
			&m.Role,
			&m.Content,
			&m.UpdatedAt,
		)
		if err != nil {
			continue
		}
		m.Preview = previewOf(m.Content)
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

func (si *SearchIndex) Close() error {
	if si.db != nil {
		return si.db.Close()
	}
	return nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

func previewOf(content string) string {
	if len(content) > 100 {
		return content[:100] + "..."
	}
	return content
}
