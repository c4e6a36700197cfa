package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/perchd/perch/internal/auth"
)

// AuthHandler issues bearer tokens. There is no account system; any client
// that knows the shared token secret's endpoint gets an identity, keyed by
// the user_id it presents or a fresh one.
type AuthHandler struct {
	tokens *auth.Tokens
	logger *slog.Logger
}

func NewAuthHandler(tokens *auth.Tokens, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, logger: logger}
}

type tokenRequest struct {
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Token handles POST /auth/token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = uuid.NewString()
	}

	token, err := h.tokens.Issue(userID, req.Name)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to issue token"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token, "user_id": userID})
}
