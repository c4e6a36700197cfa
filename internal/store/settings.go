package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/perchd/perch/internal/model"
)

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Upsert stores the settings override, replacing any existing row for the
// same (user, device).
func (s *SettingsStore) Upsert(cs *model.ChatSettings) error {
	cs.UpdatedAt = time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO chat_settings (user_id, device_id, role_name, system_message, instructions, model, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, device_id) DO UPDATE SET
		   role_name = excluded.role_name,
		   system_message = excluded.system_message,
		   instructions = excluded.instructions,
		   model = excluded.model,
		   updated_at = excluded.updated_at`,
		cs.UserID, cs.DeviceID, cs.RoleName, cs.SystemMessage, cs.Instructions, cs.Model, cs.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert chat settings: %w", err)
	}
	return nil
}

func (s *SettingsStore) Get(userID, deviceID string) (*model.ChatSettings, error) {
	var cs model.ChatSettings
	err := s.db.QueryRow(
		`SELECT user_id, device_id, role_name, system_message, instructions, model, updated_at
		 FROM chat_settings WHERE user_id = ? AND device_id = ?`,
		userID, deviceID,
	).Scan(&cs.UserID, &cs.DeviceID, &cs.RoleName, &cs.SystemMessage, &cs.Instructions, &cs.Model, &cs.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chat settings: %w", err)
	}
	return &cs, nil
}

// Delete removes the override so the device falls back to its built-in
// personality.
func (s *SettingsStore) Delete(userID, deviceID string) error {
	_, err := s.db.Exec(
		`DELETE FROM chat_settings WHERE user_id = ? AND device_id = ?`,
		userID, deviceID,
	)
	if err != nil {
		return fmt.Errorf("delete chat settings: %w", err)
	}
	return nil
}
