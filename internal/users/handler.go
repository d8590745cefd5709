package users

import (
	"log/slog"
	"net/http"

	"github.com/verse-app/verse/internal/api"
	"github.com/verse-app/verse/internal/identity"
	"github.com/verse-app/verse/internal/usage"
)

type Handler struct {
	svc      *Service
	usageSvc *usage.Service
}

func NewHandler(svc *Service, usageSvc *usage.Service) *Handler {
	return &Handler{svc: svc, usageSvc: usageSvc}
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) *User {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return nil
	}
	user, err := h.svc.GetByID(r.Context(), userID)
	if err != nil {
		slog.Error("loading user", "user_id", userID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return nil
	}
	if user == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return nil
	}
	return user
}

// Me handles GET /users/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	api.JSON(w, http.StatusOK, user)
}

// Usage handles GET /users/me/usage.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	status, err := h.usageSvc.Usage(r.Context(), user.ID, user.ProSubscription)
	if err != nil {
		slog.Error("reading usage status", "user_id", user.ID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, status)
}

// ClearData handles DELETE /users/me/data.
func (h *Handler) ClearData(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	deleted, err := h.svc.ClearUserData(r.Context(), user.ID)
	if err != nil {
		slog.Error("clearing user data", "user_id", user.ID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	slog.Info("user data cleared",
		"user_id", user.ID,
		"insights", deleted.Insights,
		"definitions", deleted.Definitions,
		"chat_messages", deleted.ChatMessages,
		"standalone_chats", deleted.StandaloneChats)

	api.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}
