package usage

import (
	"fmt"
	"net/http"

	"github.com/verse-app/verse/internal/api"
)

// WriteDenied renders the 429 body every metered endpoint returns when
// the daily quota is exhausted.
func WriteDenied(w http.ResponseWriter, e *ErrQuotaExceeded) {
	api.JSONDetail(w, http.StatusTooManyRequests, map[string]any{
		"message":       fmt.Sprintf("Daily limit of %d AI interactions reached. Upgrade to Pro for unlimited access.", e.Limit),
		"current_usage": e.CurrentUsage,
		"limit":         e.Limit,
		"is_pro":        e.IsPro,
	})
}
