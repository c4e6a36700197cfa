package store

import (
	"testing"
	"time"

	"github.com/perchd/perch/internal/database"
	"github.com/perchd/perch/internal/model"
)

func setupTestDB(t *testing.T) *ChatStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewChatStore(db)
}

func TestChatInsertAndGet(t *testing.T) {
	cs := setupTestDB(t)

	msg := &model.ChatMessage{
		ID:       "msg-1",
		UserID:   "user-1",
		DeviceID: "dev-1",
		Message:  "hello camera",
		Sender:   model.SenderUser,
		MediaURLs: []string{
			"https://example.com/a.jpg",
		},
		Attachments: []model.Attachment{
			{FileID: "file-1", Name: "notes.txt", ContentType: "text/plain", Size: 42},
		},
		ReplyTo: []string{"msg-0"},
		Meta:    &model.MessageMeta{CameraID: "cam-7", Title: "Motion"},
	}
	if err := cs.Insert(msg); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := cs.GetByID("msg-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected message")
	}
	if got.Message != "hello camera" {
		t.Errorf("message = %q, want %q", got.Message, "hello camera")
	}
	if len(got.MediaURLs) != 1 || got.MediaURLs[0] != "https://example.com/a.jpg" {
		t.Errorf("media_urls = %v", got.MediaURLs)
	}
	if len(got.Attachments) != 1 || got.Attachments[0].FileID != "file-1" {
		t.Errorf("attachments = %v", got.Attachments)
	}
	if len(got.ReplyTo) != 1 || got.ReplyTo[0] != "msg-0" {
		t.Errorf("reply_to = %v", got.ReplyTo)
	}
	if got.Meta == nil || got.Meta.CameraID != "cam-7" {
		t.Errorf("meta = %+v", got.Meta)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected timestamp set on insert")
	}
}

func TestChatGetMissing(t *testing.T) {
	cs := setupTestDB(t)
	got, err := cs.GetByID("nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestChatReplyToPreservesOrder(t *testing.T) {
	cs := setupTestDB(t)

	msg := &model.ChatMessage{
		ID:       "msg-5",
		UserID:   "user-1",
		DeviceID: "dev-1",
		Message:  "about those answers",
		Sender:   model.SenderUser,
		ReplyTo:  []string{"msg-3", "msg-1", "msg-2"},
	}
	if err := cs.Insert(msg); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := cs.GetByID("msg-5")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected message")
	}
	want := []string{"msg-3", "msg-1", "msg-2"}
	if len(got.ReplyTo) != len(want) {
		t.Fatalf("reply_to = %v, want %v", got.ReplyTo, want)
	}
	for i := range want {
		if got.ReplyTo[i] != want[i] {
			t.Errorf("reply_to[%d] = %q, want %q", i, got.ReplyTo[i], want[i])
		}
	}
}

func TestChatListChronological(t *testing.T) {
	cs := setupTestDB(t)
	base := time.Now().UTC().Add(-time.Hour)

	for i, text := range []string{"first", "second", "third"} {
		err := cs.Insert(&model.ChatMessage{
			ID:        text,
			UserID:    "user-1",
			DeviceID:  "dev-1",
			Message:   text,
			Sender:    model.SenderUser,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("insert %s: %v", text, err)
		}
	}

	messages, err := cs.List("user-1", "dev-1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("len = %d, want 2", len(messages))
	}
	// Limit keeps the newest two, returned oldest first.
	if messages[0].Message != "second" || messages[1].Message != "third" {
		t.Errorf("order = [%s %s], want [second third]", messages[0].Message, messages[1].Message)
	}
}

func TestChatLatestAISender(t *testing.T) {
	cs := setupTestDB(t)
	base := time.Now().UTC().Add(-time.Hour)

	inserts := []struct {
		id     string
		sender string
	}{
		{"u1", model.SenderUser},
		{"a1", model.SenderAI},
		{"u2", model.SenderUser},
		{"a2", model.SenderAI},
		{"u3", model.SenderUser},
	}
	for i, in := range inserts {
		err := cs.Insert(&model.ChatMessage{
			ID: in.id, UserID: "user-1", DeviceID: "dev-1",
			Message: in.id, Sender: in.sender,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := cs.LatestAISender("user-1", "dev-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got == nil || got.ID != "a2" {
		t.Errorf("latest AI = %+v, want a2", got)
	}
}

func TestChatListByIDsPreservesOrder(t *testing.T) {
	cs := setupTestDB(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := cs.Insert(&model.ChatMessage{ID: id, UserID: "u", DeviceID: "d", Message: id, Sender: model.SenderUser}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	messages, err := cs.ListByIDs([]string{"c", "missing", "a"})
	if err != nil {
		t.Fatalf("list by ids: %v", err)
	}
	if len(messages) != 2 || messages[0].ID != "c" || messages[1].ID != "a" {
		t.Errorf("messages = %v, want [c a]", messages)
	}
}

func TestChatDeleteConversation(t *testing.T) {
	cs := setupTestDB(t)
	for _, id := range []string{"a", "b"} {
		if err := cs.Insert(&model.ChatMessage{ID: id, UserID: "u", DeviceID: "d", Message: id, Sender: model.SenderUser}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := cs.Insert(&model.ChatMessage{ID: "other", UserID: "u", DeviceID: "other-dev", Message: "x", Sender: model.SenderUser}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	n, err := cs.DeleteConversation("u", "d")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	remaining, err := cs.List("u", "other-dev", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("other conversation affected, len = %d", len(remaining))
	}
}
