package definitions

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/verse-app/verse/internal/api"
	"github.com/verse-app/verse/internal/identity"
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

type DefineRequest struct {
	Word             string `json:"word" validate:"required,max=100"`
	PassageReference string `json:"passage_reference" validate:"required,max=200"`
	VerseText        string `json:"verse_text" validate:"required"`
}

type DefinitionResponse struct {
	ID               int64  `json:"id"`
	Word             string `json:"word"`
	PassageReference string `json:"passage_reference"`
	Definition       string `json:"definition"`
	BiblicalUsage    string `json:"biblical_usage"`
	OriginalLanguage string `json:"original_language"`
	Cached           bool   `json:"cached"`
}

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

// Define handles POST /definitions.
func (h *Handler) Define(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	var req DefineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	result, err := h.svc.Define(r.Context(), user.ID, user.ProSubscription, req.Word, req.PassageReference, req.VerseText)
	if err != nil {
		if qe, ok := usage.AsQuotaExceeded(err); ok {
			usage.WriteDenied(w, qe)
			return
		}
		slog.Error("generating definition", "word", req.Word, "error", err)
		api.HandleError(w, api.ErrUpstreamUnavailable)
		return
	}

	api.JSON(w, http.StatusOK, DefinitionResponse{
		ID:               result.Definition.ID,
		Word:             result.Definition.Word,
		PassageReference: result.Definition.PassageReference,
		Definition:       result.Definition.Definition,
		BiblicalUsage:    result.Definition.BiblicalUsage,
		OriginalLanguage: result.Definition.OriginalLanguage,
		Cached:           result.Cached,
	})
}

// List handles GET /definitions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	list, err := h.svc.List(r.Context(), user.ID)
	if err != nil {
		slog.Error("listing definitions", "user_id", user.ID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"definitions": list})
}

// Clear handles DELETE /definitions.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	deleted, err := h.svc.Clear(r.Context(), user.ID)
	if err != nil {
		slog.Error("clearing definitions", "user_id", user.ID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}
