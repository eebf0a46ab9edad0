package policy

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/netpanel/netpanel/internal/auth"
	"github.com/netpanel/netpanel/internal/httputil"
)

// Handler exposes the password-policy admin path: read the active snapshot
// and hot-reload it. Updates are partial; omitted fields keep their current
// values, so the policy can never end up with an undefined field.
type Handler struct {
	logger   *slog.Logger
	policies *auth.PolicyStore
}

// NewHandler creates a new policy handler.
func NewHandler(logger *slog.Logger, policies *auth.PolicyStore) *Handler {
	return &Handler{logger: logger, policies: policies}
}

// PolicyResponse mirrors the active policy snapshot.
type PolicyResponse struct {
	MinLength         int      `json:"minLength"`
	RequireUppercase  bool     `json:"requireUppercase"`
	RequireLowercase  bool     `json:"requireLowercase"`
	RequireNumber     bool     `json:"requireNumber"`
	RequireSpecial    bool     `json:"requireSpecial"`
	DictionaryEnabled bool     `json:"dictionaryEnabled"`
	Dictionary        []string `json:"dictionary"`
	HistoryCount      int      `json:"historyCount"`
	MaxLoginAttempts  int      `json:"maxLoginAttempts"`
}

func toResponse(p *auth.Policy) PolicyResponse {
	return PolicyResponse{
		MinLength:         p.MinLength,
		RequireUppercase:  p.RequireUppercase,
		RequireLowercase:  p.RequireLowercase,
		RequireNumber:     p.RequireNumber,
		RequireSpecial:    p.RequireSpecial,
		DictionaryEnabled: p.DictionaryEnabled,
		Dictionary:        p.Dictionary,
		HistoryCount:      p.HistoryCount,
		MaxLoginAttempts:  p.MaxLoginAttempts,
	}
}

// Get returns the active policy.
// GET /admin/password-policy
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"policy":  toResponse(h.policies.Current()),
	})
}

// Update applies a partial policy update atomically.
// PUT /admin/password-policy
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var update auth.PolicyUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if update.MinLength != nil && *update.MinLength < 1 {
		httputil.Fail(w, http.StatusBadRequest, "minLength must be at least 1")
		return
	}
	if update.HistoryCount != nil && *update.HistoryCount < 0 {
		httputil.Fail(w, http.StatusBadRequest, "historyCount must not be negative")
		return
	}
	if update.MaxLoginAttempts != nil && *update.MaxLoginAttempts < 1 {
		httputil.Fail(w, http.StatusBadRequest, "maxLoginAttempts must be at least 1")
		return
	}

	next := h.policies.Update(update)
	h.logger.Info("password policy updated", "min_length", next.MinLength, "max_login_attempts", next.MaxLoginAttempts)

	httputil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"policy":  toResponse(next),
	})
}
