package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/perchd/perch/internal/model"
)

type DeviceStore struct {
	db *sql.DB
}

func NewDeviceStore(db *sql.DB) *DeviceStore {
	return &DeviceStore{db: db}
}

func (s *DeviceStore) Create(d *model.Device) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	if d.LastSeen.IsZero() {
		d.LastSeen = now
	}
	if d.Status == "" {
		d.Status = model.DeviceStatusOnline
	}

	settings, err := marshalSettings(d.Settings)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO devices (id, name, type, user_id, status, location, description, settings, last_seen, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Type, d.UserID, d.Status, d.Location, d.Description, settings, d.LastSeen, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create device: %w", err)
	}
	return nil
}

func (s *DeviceStore) GetByID(id string) (*model.Device, error) {
	row := s.db.QueryRow(
		`SELECT id, name, type, user_id, status, location, description, settings, last_seen, created_at, updated_at
		 FROM devices WHERE id = ?`, id,
	)
	d, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	return d, nil
}

func (s *DeviceStore) ListByUser(userID string) ([]model.Device, error) {
	rows, err := s.db.Query(
		`SELECT id, name, type, user_id, status, location, description, settings, last_seen, created_at, updated_at
		 FROM devices WHERE user_id = ? ORDER BY created_at`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []model.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

// Update replaces the mutable fields of an existing device.
func (s *DeviceStore) Update(d *model.Device) error {
	d.UpdatedAt = time.Now().UTC()

	settings, err := marshalSettings(d.Settings)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(
		`UPDATE devices SET name = ?, type = ?, status = ?, location = ?, description = ?, settings = ?, updated_at = ?
		 WHERE id = ?`,
		d.Name, d.Type, d.Status, d.Location, d.Description, settings, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update device: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus sets the liveness status and bumps last_seen.
func (s *DeviceStore) UpdateStatus(id, status string) error {
	now := time.Now().UTC()
	result, err := s.db.Exec(
		`UPDATE devices SET status = ?, last_seen = ?, updated_at = ? WHERE id = ?`,
		status, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("update device status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *DeviceStore) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDevice(row scannable) (*model.Device, error) {
	var d model.Device
	var settings string
	if err := row.Scan(&d.ID, &d.Name, &d.Type, &d.UserID, &d.Status, &d.Location, &d.Description, &settings, &d.LastSeen, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if settings != "" && settings != "{}" {
		if err := json.Unmarshal([]byte(settings), &d.Settings); err != nil {
			return nil, fmt.Errorf("decode device settings: %w", err)
		}
	}
	return &d, nil
}

func marshalSettings(settings map[string]any) (string, error) {
	if settings == nil {
		return "{}", nil
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("encode device settings: %w", err)
	}
	return string(data), nil
}
