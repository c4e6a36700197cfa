package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/perchd/perch/internal/model"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Insert(n *model.Notification) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO notifications (id, user_id, device_id, type, content, media_url, video_url, sound_id, read, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.DeviceID, n.Type, n.Content, n.MediaURL, n.VideoURL, n.SoundID, boolToInt(n.Read), n.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListByUser returns the newest notifications for a user, optionally only
// unread ones.
func (s *NotificationStore) ListByUser(userID string, limit int, unreadOnly bool) ([]model.Notification, error) {
	return s.list(
		`SELECT id, user_id, device_id, type, content, media_url, video_url, sound_id, read, timestamp
		 FROM notifications WHERE user_id = ?`+unreadClause(unreadOnly)+` ORDER BY timestamp DESC LIMIT ?`,
		userID, limitOrDefault(limit),
	)
}

// ListByDevice returns the newest notifications for one (user, device) pair.
func (s *NotificationStore) ListByDevice(userID, deviceID string, limit int, unreadOnly bool) ([]model.Notification, error) {
	return s.list(
		`SELECT id, user_id, device_id, type, content, media_url, video_url, sound_id, read, timestamp
		 FROM notifications WHERE user_id = ? AND device_id = ?`+unreadClause(unreadOnly)+` ORDER BY timestamp DESC LIMIT ?`,
		userID, deviceID, limitOrDefault(limit),
	)
}

// MarkRead flags a notification as read. Returns false when the ID is unknown.
func (s *NotificationStore) MarkRead(id string) (bool, error) {
	result, err := s.db.Exec(`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

func (s *NotificationStore) list(query string, args ...any) ([]model.Notification, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		var read int
		if err := rows.Scan(&n.ID, &n.UserID, &n.DeviceID, &n.Type, &n.Content, &n.MediaURL, &n.VideoURL, &n.SoundID, &read, &n.Timestamp); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Read = read != 0
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func unreadClause(unreadOnly bool) string {
	if unreadOnly {
		return ` AND read = 0`
	}
	return ``
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
