package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/covergrid/covergrid/libs/choreo"
	"github.com/covergrid/covergrid/libs/db"
	"github.com/covergrid/covergrid/libs/event"
	"github.com/covergrid/covergrid/libs/outbox"
	"github.com/covergrid/covergrid/services/policy-service/internal/domain"
	"github.com/covergrid/covergrid/services/policy-service/internal/events"
	"github.com/covergrid/covergrid/services/policy-service/internal/riskcheck"
	"github.com/covergrid/covergrid/services/policy-service/internal/storage"
)

// Handler is the synchronous command boundary of the policy context. Drafting
// returns immediately; activation happens when the risk assessment event
// comes back.
type Handler struct {
	pool       *db.Pool
	repo       *storage.Repository
	outboxRepo *outbox.Repository
	risk       riskcheck.Provider
	logger     *slog.Logger
}

func New(pool *db.Pool, repo *storage.Repository, outboxRepo *outbox.Repository, risk riskcheck.Provider, logger *slog.Logger) *Handler {
	return &Handler{pool: pool, repo: repo, outboxRepo: outboxRepo, risk: risk, logger: logger}
}

func (h *Handler) Mount(mux *http.ServeMux) {
	mux.HandleFunc("/policies", h.policies)
	mux.HandleFunc("/policies/", h.policy)
}

type draftRequest struct {
	CustomerID string `json:"customer_id"`
	Product    string `json:"product"`
	Coverage   string `json:"coverage"`
}

func (h *Handler) policies(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.draftPolicy(w, r)
	case http.MethodGet:
		h.listPolicies(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) draftPolicy(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.Product = strings.TrimSpace(req.Product)
	if req.CustomerID == "" || req.Product == "" || req.Coverage == "" {
		http.Error(w, "customer_id, product and coverage are required", http.StatusBadRequest)
		return
	}
	coverage, err := decimal.NewFromString(req.Coverage)
	if err != nil {
		http.Error(w, "coverage must be a decimal number", http.StatusBadRequest)
		return
	}

	policy, err := domain.Draft(uuid.NewString(), req.CustomerID, req.Product, coverage)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	env, err := event.New(events.AggregatePolicy, policy.ID, events.PolicyDrafted, policy.Version, events.PolicyPayload{
		PolicyID:   policy.ID,
		CustomerID: policy.CustomerID,
		Product:    policy.Product,
		Coverage:   policy.Coverage.String(),
	})
	if err != nil {
		h.logger.Error("envelope build failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	err = outbox.Commit(r.Context(), h.pool, h.outboxRepo, func(tx pgx.Tx) ([]event.Envelope, error) {
		if err := h.repo.Insert(r.Context(), tx, policy); err != nil {
			return nil, err
		}
		return []event.Envelope{env}, nil
	})
	if err != nil {
		h.logger.Error("draft policy failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := policyResponse(policy)
	// Advisory only; the binding assessment arrives as a RiskAssessed event.
	if score, err := h.risk.Score(r.Context(), policy.CustomerID); err == nil {
		resp["advisory_risk_score"] = score
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) listPolicies(w http.ResponseWriter, r *http.Request) {
	customerID := strings.TrimSpace(r.URL.Query().Get("customer_id"))
	if customerID == "" {
		http.Error(w, "customer_id is required", http.StatusBadRequest)
		return
	}
	policies, err := h.repo.ListByCustomer(r.Context(), customerID, 100)
	if err != nil {
		h.logger.Error("list policies failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]map[string]any, 0, len(policies))
	for _, p := range policies {
		out = append(out, policyResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"policies": out})
}

func (h *Handler) policy(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/policies/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.getPolicy(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "cancel" && r.Method == http.MethodPost:
		h.cancelPolicy(w, r, parts[0])
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) getPolicy(w http.ResponseWriter, r *http.Request, id string) {
	policy, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get policy failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, policyResponse(policy))
}

func (h *Handler) cancelPolicy(w http.ResponseWriter, r *http.Request, id string) {
	var updated *domain.Policy
	err := outbox.Commit(r.Context(), h.pool, h.outboxRepo, func(tx pgx.Tx) ([]event.Envelope, error) {
		policy, err := h.repo.GetForUpdate(r.Context(), tx, id)
		if err != nil {
			return nil, err
		}
		if err := policy.Cancel(); err != nil {
			return nil, err
		}
		if err := h.repo.Update(r.Context(), tx, policy); err != nil {
			return nil, err
		}
		updated = policy
		env, err := event.New(events.AggregatePolicy, policy.ID, events.PolicyCancelled, policy.Version, events.PolicyPayload{
			PolicyID:   policy.ID,
			CustomerID: policy.CustomerID,
		})
		if err != nil {
			return nil, err
		}
		return []event.Envelope{env}, nil
	})

	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case isInvariant(err):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		h.logger.Error("cancel policy failed", "policy_id", id, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, policyResponse(updated))
	}
}

func isInvariant(err error) bool {
	var iv *choreo.InvariantViolation
	return errors.As(err, &iv)
}

func policyResponse(p *domain.Policy) map[string]any {
	return map[string]any{
		"id":          p.ID,
		"customer_id": p.CustomerID,
		"product":     p.Product,
		"coverage":    p.Coverage.String(),
		"premium":     p.Premium.String(),
		"status":      string(p.Status),
		"version":     p.Version,
		"drafted_at":  p.DraftedAt,
		"updated_at":  p.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
