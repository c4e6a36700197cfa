package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/perchd/perch/internal/model"
)

type DirectiveStore struct {
	db *sql.DB
}

func NewDirectiveStore(db *sql.DB) *DirectiveStore {
	return &DirectiveStore{db: db}
}

// Upsert stores the directive, replacing any existing row for the same
// (user, device). At most one live directive per pair.
func (s *DirectiveStore) Upsert(d *model.MonitoringDirective) error {
	d.UpdatedAt = time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO monitoring_directives (user_id, device_id, instructions, system_prompt, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, device_id) DO UPDATE SET
		   instructions = excluded.instructions,
		   system_prompt = excluded.system_prompt,
		   updated_at = excluded.updated_at`,
		d.UserID, d.DeviceID, d.Instructions, d.SystemPrompt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert monitoring directive: %w", err)
	}
	return nil
}

func (s *DirectiveStore) Get(userID, deviceID string) (*model.MonitoringDirective, error) {
	var d model.MonitoringDirective
	err := s.db.QueryRow(
		`SELECT user_id, device_id, instructions, system_prompt, updated_at
		 FROM monitoring_directives WHERE user_id = ? AND device_id = ?`,
		userID, deviceID,
	).Scan(&d.UserID, &d.DeviceID, &d.Instructions, &d.SystemPrompt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get monitoring directive: %w", err)
	}
	return &d, nil
}

// Delete removes the directive. Only an explicit reset reaches this.
func (s *DirectiveStore) Delete(userID, deviceID string) error {
	_, err := s.db.Exec(
		`DELETE FROM monitoring_directives WHERE user_id = ? AND device_id = ?`,
		userID, deviceID,
	)
	if err != nil {
		return fmt.Errorf("delete monitoring directive: %w", err)
	}
	return nil
}
