package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/verse-app/verse/internal/api"
	"github.com/verse-app/verse/internal/identity"
	"github.com/verse-app/verse/internal/users"
)

type Handler struct {
	authSvc  *Service
	userSvc  *users.Service
	validate *validator.Validate
}

func NewHandler(authSvc *Service, userSvc *users.Service) *Handler {
	return &Handler{
		authSvc:  authSvc,
		userSvc:  userSvc,
		validate: validator.New(),
	}
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type SessionResponse struct {
	UserID string     `json:"user_id"`
	Tokens *TokenPair `json:"tokens"`
}

// CreateSession handles POST /auth/session. Every call mints a new
// anonymous account; devices keep their identity by holding on to the
// refresh token, not by proving anything at creation time.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	user, err := h.userSvc.CreateAnonymous(r.Context())
	if err != nil {
		slog.Error("creating anonymous user", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	tokens, err := h.authSvc.GenerateTokens(r.Context(), user.ID.String())
	if err != nil {
		slog.Error("generating session tokens", "user_id", user.ID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	slog.Info("anonymous session created", "user_id", user.ID)
	api.JSON(w, http.StatusCreated, SessionResponse{
		UserID: user.ID.String(),
		Tokens: tokens,
	})
}

// Refresh handles POST /auth/refresh with token rotation.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	tokens, err := h.authSvc.RefreshTokens(r.Context(), req.RefreshToken)
	if err != nil {
		api.HandleError(w, api.ErrInvalidToken)
		return
	}

	api.JSON(w, http.StatusOK, tokens)
}

// Logout handles POST /auth/logout, revoking every refresh token the
// authenticated user holds.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	if err := h.authSvc.Logout(r.Context(), userID.String()); err != nil {
		slog.Error("revoking refresh tokens", "user_id", userID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "logged out")
}
