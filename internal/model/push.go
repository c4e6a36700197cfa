package model

import "time"

// PushSubscription is an endpoint + key pair registered by a client.
// Many-to-one with user; deleted server-side when the push provider
// reports the endpoint gone.
type PushSubscription struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Endpoint  string    `json:"endpoint"`
	P256dhKey string    `json:"p256dh_key"`
	AuthKey   string    `json:"auth_key"`
	CreatedAt time.Time `json:"created_at"`
}
