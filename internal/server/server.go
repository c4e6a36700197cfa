// Package server wires the stores, services, and handlers together and
// builds the HTTP router.
package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/perchd/perch/internal/ai"
	"github.com/perchd/perch/internal/auth"
	"github.com/perchd/perch/internal/chat"
	"github.com/perchd/perch/internal/command"
	"github.com/perchd/perch/internal/files"
	"github.com/perchd/perch/internal/handler"
	"github.com/perchd/perch/internal/middleware"
	"github.com/perchd/perch/internal/notify"
	"github.com/perchd/perch/internal/prompt"
	"github.com/perchd/perch/internal/push"
	"github.com/perchd/perch/internal/registry"
	"github.com/perchd/perch/internal/store"
	"github.com/perchd/perch/internal/ws"
)

// Config carries everything the server needs beyond the database handle.
type Config struct {
	TokenSecret string
	TokenTTL    time.Duration
	Push        push.Config
	Files       files.Store
	Backend     ai.Backend
}

type Server struct {
	db          *sql.DB
	registry    *registry.Registry
	coordinator *chat.Coordinator
	tokens      *auth.Tokens
	rateLimiter *middleware.RateLimiter

	authH   *handler.AuthHandler
	chatH   *handler.ChatHandler
	deviceH *handler.DeviceHandler
	pushH   *handler.PushHandler
	notifH  *handler.NotificationHandler
	simH    *handler.SimulateHandler

	logger *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	reg := registry.New(logger.With("component", "registry"))

	deviceStore := store.NewDeviceStore(db)
	chatStore := store.NewChatStore(db)
	historyStore := store.NewHistoryStore(db)
	directiveStore := store.NewDirectiveStore(db)
	settingsStore := store.NewSettingsStore(db)
	notificationStore := store.NewNotificationStore(db)
	pushStore := store.NewPushStore(db)

	pushSvc := push.NewService(cfg.Push)
	dispatcher := notify.NewDispatcher(pushStore, notificationStore, pushSvc, reg, logger.With("component", "notify"))

	assembler := prompt.NewAssembler(cfg.Files, logger.With("component", "prompt"))
	runner := command.NewRunner(directiveStore, settingsStore, chatStore, cfg.Backend, logger.With("component", "command"))

	coordinator := chat.NewCoordinator(
		deviceStore, chatStore, historyStore, settingsStore, directiveStore,
		assembler, cfg.Backend, runner, reg, dispatcher,
		logger.With("component", "chat"),
	)

	tokens := auth.NewTokens(cfg.TokenSecret, cfg.TokenTTL)

	return &Server{
		db:          db,
		registry:    reg,
		coordinator: coordinator,
		tokens:      tokens,
		rateLimiter: middleware.NewRateLimiter(),
		authH:       handler.NewAuthHandler(tokens, logger.With("component", "auth")),
		chatH:       handler.NewChatHandler(coordinator, chatStore, historyStore, logger.With("component", "chat_handler")),
		deviceH:     handler.NewDeviceHandler(deviceStore, logger.With("component", "device")),
		pushH:       handler.NewPushHandler(pushStore, pushSvc, dispatcher, logger.With("component", "push_handler")),
		notifH:      handler.NewNotificationHandler(notificationStore, logger.With("component", "notification")),
		simH:        handler.NewSimulateHandler(coordinator, logger.With("component", "simulate")),
		logger:      logger,
	}
}

// Registry returns the connection registry, for metrics and tests.
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()
	authMiddleware := middleware.RequireAuth(s.tokens)

	// Public routes
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("POST /auth/token", s.rateLimited(s.authH.Token, middleware.RealIP, 10))

	// Websocket clients authenticate with the ?token= query fallback.
	outerMux.Handle("GET /ws/{user_id}", authMiddleware(ws.Handler(s.coordinator, s.registry, s.logger.With("component", "ws"))))

	// Protected API routes
	apiMux := http.NewServeMux()
	s.registerAPIRoutes(apiMux)
	outerMux.Handle("/api/", authMiddleware(apiMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	// Chat
	mux.HandleFunc("POST /api/chat/send", s.rateLimited(s.chatH.Send, middleware.UserKey, 60))
	mux.HandleFunc("GET /api/chat/{device_id}", s.chatH.List)
	mux.HandleFunc("GET /api/chat/{device_id}/history", s.chatH.History)
	mux.HandleFunc("DELETE /api/chat/{device_id}/history", s.chatH.ClearHistory)

	// Devices
	mux.HandleFunc("POST /api/devices", s.deviceH.Create)
	mux.HandleFunc("GET /api/devices", s.deviceH.List)
	mux.HandleFunc("PUT /api/devices/{id}", s.deviceH.Update)
	mux.HandleFunc("PUT /api/devices/{id}/status", s.deviceH.UpdateStatus)
	mux.HandleFunc("DELETE /api/devices/{id}", s.deviceH.Delete)

	// Push subscriptions
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/unsubscribe", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/send", s.rateLimited(s.pushH.SendPush, middleware.UserKey, 30))

	// Notifications
	mux.HandleFunc("GET /api/notifications", s.notifH.List)
	mux.HandleFunc("GET /api/notifications/device/{device_id}", s.notifH.ListByDevice)
	mux.HandleFunc("PUT /api/notifications/{id}/read", s.notifH.MarkRead)

	// Simulation (testing rigs)
	mux.HandleFunc("POST /api/simulate/device-notification", s.simH.DeviceNotification)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"connections": s.registry.Count(),
	})
}

func (s *Server) rateLimited(h http.HandlerFunc, keyFunc func(*http.Request) string, perMinute int) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, perMinute, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}
