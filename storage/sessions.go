// Package storage persists conversations and indexes them for search.
//
// Sessions are JSON files in the data directory; the transcript serializes
// as-is, including in-flight function_call state, so a reloaded session
// resumes exactly where it stopped.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"

	"terp/message"
)

// Session is one persisted conversation.
type Session struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Model        string            `json:"model"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Messages     []message.Message `json:"messages"`
	SystemPrompt string            `json:"system_prompt,omitempty"`
}

// SessionMetadata is a lightweight Session for listing.
type SessionMetadata struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// SessionStorage handles session persistence.
type SessionStorage struct {
	sessionsDir string
}

// NewSessionStorage creates the sessions directory if needed (0700,
// user-only: transcripts can contain anything).
func NewSessionStorage(dataDir string) (*SessionStorage, error) {
	sessionsDir := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &SessionStorage{sessionsDir: sessionsDir}, nil
}

// Save writes a session to disk, assigning an ID on first save.
func (s *SessionStorage) Save(session *Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	session.UpdatedAt = time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.UpdatedAt
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	path := filepath.Join(s.sessionsDir, session.ID+".json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Load reads one session by ID.
func (s *SessionStorage) Load(id string) (*Session, error) {
	data, err := os.ReadFile(filepath.Join(s.sessionsDir, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", id, err)
	}
	return &session, nil
}

// Delete removes a session file.
func (s *SessionStorage) Delete(id string) error {
	if err := os.Remove(filepath.Join(s.sessionsDir, id+".json")); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// List returns metadata for all sessions, newest first.
func (s *SessionStorage) List() ([]SessionMetadata, error) {
	entries, err := os.ReadDir(s.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	metas := make([]SessionMetadata, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		session, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		metas = append(metas, SessionMetadata{
			ID:           session.ID,
			Name:         session.Name,
			Model:        session.Model,
			CreatedAt:    session.CreatedAt,
			UpdatedAt:    session.UpdatedAt,
			MessageCount: len(session.Messages),
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// FindByName fuzzy-matches session names, best match first. An empty query
// returns everything in list order.
func (s *SessionStorage) FindByName(query string) ([]SessionMetadata, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if query == "" {
		return metas, nil
	}

	names := make([]string, len(metas))
	for i, m := range metas {
		names[i] = m.Name
	}

	matches := fuzzy.Find(query, names)
	result := make([]SessionMetadata, len(matches))
	for i, m := range matches {
		result[i] = metas[m.Index]
	}
	return result, nil
}
