package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/perchd/perch/internal/model"
)

type ChatStore struct {
	db *sql.DB
}

func NewChatStore(db *sql.DB) *ChatStore {
	return &ChatStore{db: db}
}

// Insert appends a chat message. Messages are immutable; there is no update path.
func (s *ChatStore) Insert(m *model.ChatMessage) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}

	mediaURLs, err := marshalJSONList(m.MediaURLs)
	if err != nil {
		return fmt.Errorf("encode media urls: %w", err)
	}
	attachments, err := marshalJSONList(m.Attachments)
	if err != nil {
		return fmt.Errorf("encode attachments: %w", err)
	}
	replyTo, err := marshalJSONList(m.ReplyTo)
	if err != nil {
		return fmt.Errorf("encode reply_to: %w", err)
	}

	var meta sql.NullString
	if m.Meta != nil {
		data, err := json.Marshal(m.Meta)
		if err != nil {
			return fmt.Errorf("encode meta: %w", err)
		}
		meta = sql.NullString{String: string(data), Valid: true}
	}

	_, err = s.db.Exec(
		`INSERT INTO chat_messages (id, user_id, device_id, message, sender, media_urls, attachments, reply_to, meta, error, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.DeviceID, m.Message, m.Sender, mediaURLs, attachments, replyTo, meta, boolToInt(m.Error), m.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (s *ChatStore) GetByID(id string) (*model.ChatMessage, error) {
	row := s.db.QueryRow(selectMessage+` WHERE id = ?`, id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chat message: %w", err)
	}
	return m, nil
}

// ListByIDs returns the messages for the given IDs in the same order as the
// input, skipping IDs that no longer resolve.
func (s *ChatStore) ListByIDs(ids []string) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	for _, id := range ids {
		m, err := s.GetByID(id)
		if err != nil {
			return nil, err
		}
		if m != nil {
			messages = append(messages, *m)
		}
	}
	return messages, nil
}

// List returns up to limit messages for (user, device) in chronological order.
func (s *ChatStore) List(userID, deviceID string, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		selectMessage+` WHERE user_id = ? AND device_id = ? ORDER BY timestamp DESC LIMIT ?`,
		userID, deviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query is newest-first for the limit; callers want chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// LatestAISender returns the most recent AI-authored message for (user,
// device), or nil if the device has never answered. Used as the implicit
// context for corrective feedback.
func (s *ChatStore) LatestAISender(userID, deviceID string) (*model.ChatMessage, error) {
	row := s.db.QueryRow(
		selectMessage+` WHERE user_id = ? AND device_id = ? AND sender = ? ORDER BY timestamp DESC LIMIT 1`,
		userID, deviceID, model.SenderAI,
	)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest ai message: %w", err)
	}
	return m, nil
}

// DeleteConversation removes all messages for (user, device) and returns the count.
func (s *ChatStore) DeleteConversation(userID, deviceID string) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM chat_messages WHERE user_id = ? AND device_id = ?`,
		userID, deviceID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete conversation: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

const selectMessage = `SELECT id, user_id, device_id, message, sender, media_urls, attachments, reply_to, meta, error, timestamp
	 FROM chat_messages`

func scanMessage(row scannable) (*model.ChatMessage, error) {
	var m model.ChatMessage
	var mediaURLs, attachments, replyTo string
	var meta sql.NullString
	var errFlag int
	if err := row.Scan(&m.ID, &m.UserID, &m.DeviceID, &m.Message, &m.Sender, &mediaURLs, &attachments, &replyTo, &meta, &errFlag, &m.Timestamp); err != nil {
		return nil, err
	}
	if err := unmarshalJSONList(mediaURLs, &m.MediaURLs); err != nil {
		return nil, fmt.Errorf("decode media urls: %w", err)
	}
	if err := unmarshalJSONList(attachments, &m.Attachments); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	if err := unmarshalJSONList(replyTo, &m.ReplyTo); err != nil {
		return nil, fmt.Errorf("decode reply_to: %w", err)
	}
	if meta.Valid && meta.String != "" {
		m.Meta = &model.MessageMeta{}
		if err := json.Unmarshal([]byte(meta.String), m.Meta); err != nil {
			return nil, fmt.Errorf("decode meta: %w", err)
		}
	}
	m.Error = errFlag != 0
	return &m, nil
}

func marshalJSONList[T any](list []T) (string, error) {
	if len(list) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalJSONList[T any](data string, out *[]T) error {
	if data == "" || data == "[]" {
		return nil
	}
	return json.Unmarshal([]byte(data), out)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
