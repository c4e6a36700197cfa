package ws

import (
	"log/slog"
	"net/http"

	websocket "github.com/coder/websocket"

	"github.com/perchd/perch/internal/auth"
	"github.com/perchd/perch/internal/chat"
	"github.com/perchd/perch/internal/registry"
)

// Handler upgrades HTTP requests on /ws/{user_id} and runs them as clients.
// The route sits behind the auth middleware; the path segment must match
// the authenticated identity so a valid token cannot attach to another
// user's stream.
func Handler(coordinator *chat.Coordinator, reg *registry.Registry, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.PathValue("user_id")
		if userID == "" {
			http.Error(w, "missing user id", http.StatusBadRequest)
			return
		}
		if auth.UserID(r.Context()) != userID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true, // browser clients connect cross-origin during development
		})
		if err != nil {
			logger.Warn("websocket accept", "user_id", userID, "error", err)
			return
		}

		client := NewClient(userID, conn, coordinator, reg, logger)
		client.Run(r.Context())
	}
}
