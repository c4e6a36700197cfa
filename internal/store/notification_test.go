package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/perchd/perch/internal/database"
	"github.com/perchd/perch/internal/model"
)

func setupNotificationTest(t *testing.T) *NotificationStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewNotificationStore(db)
}

func TestNotificationInsertAndList(t *testing.T) {
	ns := setupNotificationTest(t)

	n := &model.Notification{
		ID:       "n1",
		UserID:   "user-1",
		DeviceID: "dev-1",
		Type:     model.NotifTypeAlert,
		Content:  "person at the door",
		MediaURL: "https://example.com/frame.jpg",
	}
	if err := ns.Insert(n); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n.Timestamp.IsZero() {
		t.Error("expected timestamp set on insert")
	}

	got, err := ns.ListByUser("user-1", 0, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Content != "person at the door" {
		t.Errorf("content = %q", got[0].Content)
	}
	if got[0].Read {
		t.Error("new notification should be unread")
	}
}

func TestNotificationListNewestFirst(t *testing.T) {
	ns := setupNotificationTest(t)
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		err := ns.Insert(&model.Notification{
			ID: fmt.Sprintf("n%d", i), UserID: "u", DeviceID: "d",
			Type: model.NotifTypeMessage, Content: fmt.Sprintf("c%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := ns.ListByUser("u", 3, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != "n4" {
		t.Errorf("first = %s, want n4 (newest)", got[0].ID)
	}
}

func TestNotificationListByDeviceFilters(t *testing.T) {
	ns := setupNotificationTest(t)

	for i, deviceID := range []string{"dev-1", "dev-2", "dev-1"} {
		err := ns.Insert(&model.Notification{
			ID: fmt.Sprintf("n%d", i), UserID: "u",
			DeviceID: deviceID, Type: model.NotifTypeMessage, Content: "x",
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := ns.ListByDevice("u", "dev-1", 0, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestNotificationMarkRead(t *testing.T) {
	ns := setupNotificationTest(t)

	if err := ns.Insert(&model.Notification{ID: "n1", UserID: "u", DeviceID: "d", Type: model.NotifTypeMessage, Content: "x"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ok, err := ns.MarkRead("n1")
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !ok {
		t.Error("expected true for existing notification")
	}

	unread, err := ns.ListByUser("u", 0, true)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 0 {
		t.Errorf("unread len = %d, want 0", len(unread))
	}

	ok, err = ns.MarkRead("missing")
	if err != nil {
		t.Fatalf("mark read missing: %v", err)
	}
	if ok {
		t.Error("expected false for unknown notification")
	}
}
