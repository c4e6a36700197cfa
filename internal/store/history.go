package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/perchd/perch/internal/model"
)

// historyCap bounds the rolling history mirror per (user, device).
const historyCap = 50

// HistoryStore maintains the denormalized rolling history mirror. It is a
// best-effort cache of the chat_messages log: concurrent appenders may race
// and callers treat every write here as non-fatal.
type HistoryStore struct {
	db *sql.DB
}

func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) Get(userID, deviceID string) ([]model.HistoryEntry, error) {
	var raw string
	err := s.db.QueryRow(
		`SELECT history FROM chat_histories WHERE user_id = ? AND device_id = ?`,
		userID, deviceID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chat history: %w", err)
	}

	var entries []model.HistoryEntry
	if raw != "" && raw != "[]" {
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			return nil, fmt.Errorf("decode chat history: %w", err)
		}
	}
	return entries, nil
}

// Append reads the current history, appends the given entries, trims to the
// rolling cap, and writes the result back. Replace-or-insert semantics.
func (s *HistoryStore) Append(userID, deviceID string, entries ...model.HistoryEntry) error {
	current, err := s.Get(userID, deviceID)
	if err != nil {
		return err
	}

	current = append(current, entries...)
	if len(current) > historyCap {
		current = current[len(current)-historyCap:]
	}

	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode chat history: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO chat_histories (user_id, device_id, history, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, device_id) DO UPDATE SET history = excluded.history, updated_at = excluded.updated_at`,
		userID, deviceID, string(data), now, now,
	)
	if err != nil {
		return fmt.Errorf("store chat history: %w", err)
	}
	return nil
}

// Meta returns the created_at/updated_at pair for the history document, or
// zero times when none exists.
func (s *HistoryStore) Meta(userID, deviceID string) (createdAt, updatedAt time.Time, err error) {
	err = s.db.QueryRow(
		`SELECT created_at, updated_at FROM chat_histories WHERE user_id = ? AND device_id = ?`,
		userID, deviceID,
	).Scan(&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("get history meta: %w", err)
	}
	return createdAt, updatedAt, nil
}

func (s *HistoryStore) Clear(userID, deviceID string) error {
	_, err := s.db.Exec(
		`DELETE FROM chat_histories WHERE user_id = ? AND device_id = ?`,
		userID, deviceID,
	)
	if err != nil {
		return fmt.Errorf("clear chat history: %w", err)
	}
	return nil
}
