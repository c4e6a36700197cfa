// Package notify fans a notification out to a user's push subscriptions
// and live connection, and records it for history.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/perchd/perch/internal/model"
	"github.com/perchd/perch/internal/push"
	"github.com/perchd/perch/internal/registry"
	"github.com/perchd/perch/internal/store"
)

const (
	defaultIcon  = "/icons/icon-192.png"
	defaultBadge = "/icons/badge-72.png"
)

// GlobalDeviceID is the synthetic device identifier for notifications not
// tied to any one device.
const GlobalDeviceID = "global"

// MissionDeviceID returns the synthetic device identifier for
// mission-scoped notifications.
func MissionDeviceID(missionID string) string {
	return "mission:" + missionID
}

// Sender delivers one payload to one subscription. push.Service implements
// it; tests substitute fakes.
type Sender interface {
	Send(sub *model.PushSubscription, payload push.Payload) error
}

// Event is one notification to fan out.
type Event struct {
	UserID   string
	DeviceID string
	Type     string
	Title    string
	Body     string
	Image    string
	VideoURL string
	SoundID  string
	SoundURL string
	// Data is merged into the payload's data map; device_id is always set.
	Data    map[string]any
	Actions []push.Action
}

// Result aggregates delivery outcomes across the user's subscriptions.
type Result struct {
	Sent   int `json:"sent_count"`
	Failed int `json:"failed_count"`
}

// Dispatcher fans events out to push subscriptions and the live
// connection, pruning subscriptions the provider reports gone. Dispatch
// never fails the calling turn; everything here is best effort.
type Dispatcher struct {
	subs          *store.PushStore
	notifications *store.NotificationStore
	sender        Sender
	registry      *registry.Registry
	logger        *slog.Logger
}

func NewDispatcher(subs *store.PushStore, notifications *store.NotificationStore, sender Sender, reg *registry.Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		subs:          subs,
		notifications: notifications,
		sender:        sender,
		registry:      reg,
		logger:        logger,
	}
}

// Dispatch delivers the event to every push subscription the user has,
// emits a live event when the user is connected, and records a
// Notification regardless of delivery outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) Result {
	payload := d.buildPayload(ev)

	var result Result
	subs, err := d.subs.ListByUser(ev.UserID)
	if err != nil {
		d.logger.Error("list push subscriptions", "user_id", ev.UserID, "error", err)
	}

	for i := range subs {
		sub := &subs[i]
		err := d.sender.Send(sub, payload)
		switch {
		case err == nil:
			result.Sent++
		case errors.Is(err, push.ErrExpired):
			// Self-healing: the provider says this endpoint is dead.
			if delErr := d.subs.Delete(sub.ID); delErr != nil {
				d.logger.Error("delete expired subscription", "id", sub.ID, "error", delErr)
			}
			d.logger.Info("pruned expired push subscription", "user_id", ev.UserID, "id", sub.ID)
			result.Failed++
		default:
			d.logger.Warn("push delivery failed", "user_id", ev.UserID, "id", sub.ID, "error", err)
			result.Failed++
		}
	}

	d.registry.Send(ctx, ev.UserID, map[string]any{
		"type":      "notification",
		"title":     ev.Title,
		"body":      ev.Body,
		"device_id": ev.DeviceID,
		"data":      payload.Data,
	})

	// History record is stored even with zero working subscriptions.
	record := &model.Notification{
		ID:        uuid.NewString(),
		UserID:    ev.UserID,
		DeviceID:  ev.DeviceID,
		Type:      notifType(ev),
		Content:   ev.Body,
		MediaURL:  ev.Image,
		VideoURL:  ev.VideoURL,
		SoundID:   ev.SoundID,
		Timestamp: time.Now().UTC(),
	}
	if err := d.notifications.Insert(record); err != nil {
		d.logger.Error("record notification", "user_id", ev.UserID, "error", err)
	}

	return result
}

func (d *Dispatcher) buildPayload(ev Event) push.Payload {
	data := map[string]any{"device_id": ev.DeviceID}
	for k, v := range ev.Data {
		data[k] = v
	}

	return push.Payload{
		Title:              ev.Title,
		Body:               ev.Body,
		Icon:               defaultIcon,
		Badge:              defaultBadge,
		Image:              ev.Image,
		VideoURL:           ev.VideoURL,
		SoundID:            ev.SoundID,
		SoundURL:           ev.SoundURL,
		Data:               data,
		Actions:            ev.Actions,
		RequireInteraction: true,
		Timestamp:          push.Now(),
	}
}

func notifType(ev Event) string {
	switch {
	case ev.Type != "":
		return ev.Type
	case ev.Image != "" || ev.VideoURL != "":
		return model.NotifTypeMedia
	default:
		return model.NotifTypeMessage
	}
}
