package search

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/verse-app/verse/internal/api"
	"github.com/verse-app/verse/internal/identity"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// SearchConversations handles GET /search/conversations?q=.
func (h *Handler) SearchConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		api.HandleError(w, api.NewBadRequestError("query parameter q is required"))
		return
	}

	matches, err := h.svc.Search(r.Context(), userID, query)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			api.HandleError(w, &api.AppError{
				Code:    http.StatusServiceUnavailable,
				Message: "semantic search is not available",
			})
			return
		}
		slog.Error("searching conversations", "user_id", userID, "error", err)
		api.HandleError(w, api.ErrUpstreamUnavailable)
		return
	}

	if matches == nil {
		matches = []Match{}
	}
	api.JSON(w, http.StatusOK, map[string]any{"results": matches})
}
