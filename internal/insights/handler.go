package insights

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

type GenerateRequest struct {
	PassageReference string `json:"passage_reference" validate:"required,max=200"`
	PassageText      string `json:"passage_text" validate:"required"`
}

type InsightResponse struct {
	ID                      int64  `json:"id"`
	PassageReference        string `json:"passage_reference"`
	HistoricalContext       string `json:"historical_context"`
	TheologicalSignificance string `json:"theological_significance"`
	PracticalApplication    string `json:"practical_application"`
	Cached                  bool   `json:"cached"`
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

// Generate handles POST /insights.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	result, err := h.svc.Generate(r.Context(), user.ID, user.ProSubscription, req.PassageReference, req.PassageText)
	if err != nil {
		if qe, ok := usage.AsQuotaExceeded(err); ok {
			usage.WriteDenied(w, qe)
			return
		}
		slog.Error("generating insights", "reference", req.PassageReference, "error", err)
		api.HandleError(w, api.ErrUpstreamUnavailable)
		return
	}

	api.JSON(w, http.StatusOK, InsightResponse{
		ID:                      result.Insight.ID,
		PassageReference:        result.Insight.PassageReference,
		HistoricalContext:       result.Insight.HistoricalContext,
		TheologicalSignificance: result.Insight.TheologicalSignificance,
		PracticalApplication:    result.Insight.PracticalApplication,
		Cached:                  result.Cached,
	})
}

// List handles GET /insights.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	list, err := h.svc.List(r.Context(), user.ID)
	if err != nil {
		slog.Error("listing insights", "user_id", user.ID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"insights": list})
}

// Clear handles DELETE /insights.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	deleted, err := h.svc.Clear(r.Context(), user.ID)
	if err != nil {
		slog.Error("clearing insights", "user_id", user.ID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}
