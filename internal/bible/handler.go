package bible

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/verse-app/verse/internal/api"
	"github.com/verse-app/verse/internal/identity"
	"github.com/verse-app/verse/internal/users"
)

type Handler struct {
	svc     *Service
	userSvc *users.Service
}

func NewHandler(svc *Service, userSvc *users.Service) *Handler {
	return &Handler{svc: svc, userSvc: userSvc}
}

func (h *Handler) isPro(r *http.Request) (bool, error) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		return false, api.ErrUnauthorized
	}
	user, err := h.userSvc.GetByID(r.Context(), userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, api.ErrUnauthorized
	}
	return user.ProSubscription, nil
}

func writeProTranslationError(w http.ResponseWriter, e *ErrProTranslation) {
	api.JSONDetail(w, http.StatusForbidden, map[string]any{
		"message":      "The " + e.Translation + " translation requires a pro subscription.",
		"translation":  e.Translation,
		"requires_pro": true,
	})
}

// GetPassage handles GET /passage?book=&chapter=&verse_start=&verse_end=&translation=&save=
func (h *Handler) GetPassage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	book := q.Get("book")
	chapter, errChapter := strconv.Atoi(q.Get("chapter"))
	verseStart, errStart := strconv.Atoi(q.Get("verse_start"))
	if book == "" || errChapter != nil || errStart != nil || chapter < 1 || verseStart < 1 {
		api.HandleError(w, api.NewBadRequestError("book, chapter and verse_start are required"))
		return
	}

	verseEnd := 0
	if raw := q.Get("verse_end"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < verseStart {
			api.HandleError(w, api.NewBadRequestError("verse_end must be a number >= verse_start"))
			return
		}
		verseEnd = v
	}

	translation := q.Get("translation")
	if translation == "" {
		translation = "WEB"
	}

	isPro, err := h.isPro(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if err := h.svc.ValidateTranslationAccess(translation, isPro); err != nil {
		var proErr *ErrProTranslation
		if errors.As(err, &proErr) {
			writeProTranslationError(w, proErr)
			return
		}
		api.HandleError(w, err)
		return
	}

	passage, err := h.svc.GetPassage(r.Context(), book, chapter, verseStart, verseEnd, translation)
	if err != nil {
		slog.Error("fetching passage", "book", book, "chapter", chapter, "error", err)
		api.HandleError(w, api.ErrUpstreamUnavailable)
		return
	}
	if passage == nil {
		api.HandleError(w, api.ErrPassageNotFound)
		return
	}

	if q.Get("save") == "true" {
		if _, err := h.svc.SavePassage(r.Context(), passage); err != nil {
			slog.Error("saving passage", "reference", passage.Reference, "error", err)
			api.HandleError(w, api.ErrInternalServer)
			return
		}
	}

	api.JSON(w, http.StatusOK, passage)
}

// GetChapter handles GET /chapter?book=&chapter=&translation=&save=
func (h *Handler) GetChapter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	book := q.Get("book")
	chapter, errChapter := strconv.Atoi(q.Get("chapter"))
	if book == "" || errChapter != nil || chapter < 1 {
		api.HandleError(w, api.NewBadRequestError("book and chapter are required"))
		return
	}

	translation := q.Get("translation")
	if translation == "" {
		translation = "WEB"
	}

	isPro, err := h.isPro(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if err := h.svc.ValidateTranslationAccess(translation, isPro); err != nil {
		var proErr *ErrProTranslation
		if errors.As(err, &proErr) {
			writeProTranslationError(w, proErr)
			return
		}
		api.HandleError(w, err)
		return
	}

	passage, err := h.svc.GetChapter(r.Context(), book, chapter, translation)
	if err != nil {
		slog.Error("fetching chapter", "book", book, "chapter", chapter, "error", err)
		api.HandleError(w, api.ErrUpstreamUnavailable)
		return
	}
	if passage == nil {
		api.HandleError(w, api.ErrChapterNotFound)
		return
	}

	if q.Get("save") == "true" {
		if _, err := h.svc.SavePassage(r.Context(), passage); err != nil {
			slog.Error("saving chapter", "reference", passage.Reference, "error", err)
			api.HandleError(w, api.ErrInternalServer)
			return
		}
	}

	api.JSON(w, http.StatusOK, passage)
}

// ListTranslations handles GET /translations.
func (h *Handler) ListTranslations(w http.ResponseWriter, r *http.Request) {
	isPro, err := h.isPro(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{
		"translations": h.svc.AvailableTranslations(isPro),
	})
}
