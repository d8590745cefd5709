package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/verse-app/verse/internal/api"
	"github.com/verse-app/verse/internal/identity"
	"github.com/verse-app/verse/internal/sse"
	"github.com/verse-app/verse/internal/usage"
	"github.com/verse-app/verse/internal/users"
)

type Handler struct {
	svc      *Service
	userSvc  *users.Service
	validate *validator.Validate
}

func NewHandler(svc *Service, userSvc *users.Service) *Handler {
	return &Handler{
		svc:      svc,
		userSvc:  userSvc,
		validate: validator.New(),
	}
}

type MessageRequest struct {
	Message string `json:"message" validate:"required"`
}

type StreamRequest struct {
	Message          string `json:"message" validate:"required"`
	ChatID           *int64 `json:"chat_id"`
	PassageReference string `json:"passage_reference" validate:"max=200"`
	PassageText      string `json:"passage_text"`
}

// lazySink defers the SSE handshake until the first event, so errors
// raised before any token can still go out as a regular JSON response.
type lazySink struct {
	w   http.ResponseWriter
	enc *sse.Encoder
}

func (s *lazySink) Write(ev sse.Event) error {
	if s.enc == nil {
		enc, err := sse.NewEncoder(s.w)
		if err != nil {
			return err
		}
		s.enc = enc
	}
	return s.enc.Write(ev)
}

func (s *lazySink) started() bool { return s.enc != nil }

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) *users.User {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return nil
	}
	user, err := h.userSvc.GetByID(r.Context(), userID)
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

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// StreamInsightChat handles POST /insights/{id}/chat.
func (h *Handler) StreamInsightChat(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	insightID, ok := pathID(r)
	if !ok {
		api.HandleError(w, api.NewBadRequestError("invalid insight id"))
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	sink := &lazySink{w: w}
	err := h.svc.StreamInsightChat(r.Context(), user.ID, user.ProSubscription, insightID, req.Message, sink)
	h.finishStream(w, sink, err, "insight chat stream")
}

// StreamChat handles POST /chats/stream.
func (h *Handler) StreamChat(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	var req StreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	sink := &lazySink{w: w}
	err := h.svc.StreamStandaloneChat(r.Context(), user.ID, user.ProSubscription,
		req.ChatID, req.PassageReference, req.PassageText, req.Message, sink)
	h.finishStream(w, sink, err, "chat stream")
}

// finishStream maps pre-stream failures to JSON responses. Once the SSE
// handshake went out the service has already emitted a terminal frame.
func (h *Handler) finishStream(w http.ResponseWriter, sink *lazySink, err error, op string) {
	if err == nil || sink.started() {
		if err != nil {
			slog.Warn(op+" ended early", "error", err)
		}
		return
	}
	switch {
	case errors.Is(err, ErrInsightNotFound):
		api.HandleError(w, api.NewNotFoundError("insight not found"))
	case errors.Is(err, ErrChatNotFound):
		api.HandleError(w, api.NewNotFoundError("chat not found"))
	default:
		if qe, ok := usage.AsQuotaExceeded(err); ok {
			usage.WriteDenied(w, qe)
			return
		}
		slog.Error(op+" failed", "error", err)
		api.HandleError(w, api.ErrUpstreamUnavailable)
	}
}

// ListChats handles GET /chats.
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	chats, err := h.svc.ListChats(r.Context(), user.ID)
	if err != nil {
		slog.Error("listing chats", "user_id", user.ID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"chats": chats})
}

// ChatMessages handles GET /chats/{id}/messages.
func (h *Handler) ChatMessages(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	chatID, ok := pathID(r)
	if !ok {
		api.HandleError(w, api.NewBadRequestError("invalid chat id"))
		return
	}

	messages, err := h.svc.ChatMessages(r.Context(), user.ID, chatID)
	if err != nil {
		if errors.Is(err, ErrChatNotFound) {
			api.HandleError(w, api.NewNotFoundError("chat not found"))
			return
		}
		slog.Error("listing chat messages", "chat_id", chatID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// DeleteChat handles DELETE /chats/{id}.
func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	chatID, ok := pathID(r)
	if !ok {
		api.HandleError(w, api.NewBadRequestError("invalid chat id"))
		return
	}

	if err := h.svc.DeleteChat(r.Context(), user.ID, chatID); err != nil {
		if errors.Is(err, ErrChatNotFound) {
			api.HandleError(w, api.NewNotFoundError("chat not found"))
			return
		}
		slog.Error("deleting chat", "chat_id", chatID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSONMessage(w, http.StatusOK, "chat deleted")
}

// InsightMessages handles GET /insights/{id}/chat.
func (h *Handler) InsightMessages(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	insightID, ok := pathID(r)
	if !ok {
		api.HandleError(w, api.NewBadRequestError("invalid insight id"))
		return
	}

	messages, err := h.svc.InsightMessages(r.Context(), user.ID, insightID)
	if err != nil {
		if errors.Is(err, ErrInsightNotFound) {
			api.HandleError(w, api.NewNotFoundError("insight not found"))
			return
		}
		slog.Error("listing insight messages", "insight_id", insightID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// ClearInsightMessages handles DELETE /insights/{id}/chat.
func (h *Handler) ClearInsightMessages(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	insightID, ok := pathID(r)
	if !ok {
		api.HandleError(w, api.NewBadRequestError("invalid insight id"))
		return
	}

	deleted, err := h.svc.ClearInsightMessages(r.Context(), user.ID, insightID)
	if err != nil {
		slog.Error("clearing insight messages", "insight_id", insightID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}
