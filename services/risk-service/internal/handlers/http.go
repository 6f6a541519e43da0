package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/covergrid/covergrid/services/risk-service/internal/domain"
	"github.com/covergrid/covergrid/services/risk-service/internal/storage"
)

// Handler exposes the risk read surface. Profiles are written only by the
// event stream; there are no commands here.
type Handler struct {
	repo   *storage.Repository
	logger *slog.Logger
}

func New(repo *storage.Repository, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) Mount(mux *http.ServeMux) {
	mux.HandleFunc("/profiles/", h.profile)
}

// profile handles GET /profiles/{customer_id}.
func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	customerID := strings.TrimPrefix(r.URL.Path, "/profiles/")
	if customerID == "" || strings.Contains(customerID, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	profile, err := h.repo.GetByCustomer(r.Context(), customerID)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get profile failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse(profile))
}

func profileResponse(p *domain.Profile) map[string]any {
	return map[string]any{
		"id":              p.ID,
		"customer_id":     p.CustomerID,
		"score":           p.Score,
		"filed_claims":    p.FiledClaims,
		"approved_claims": p.ApprovedClaims,
		"lapses":          p.Lapses,
		"version":         p.Version,
		"opened_at":       p.OpenedAt,
		"updated_at":      p.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
