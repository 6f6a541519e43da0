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
	"github.com/covergrid/covergrid/services/claims-service/internal/domain"
	"github.com/covergrid/covergrid/services/claims-service/internal/events"
	"github.com/covergrid/covergrid/services/claims-service/internal/storage"
)

// Handler is the synchronous command boundary of the claims context. The
// gateway routes each request to exactly this service; asynchronous
// propagation (payout, risk updates) is not awaited here.
type Handler struct {
	pool       *db.Pool
	repo       *storage.Repository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
}

func New(pool *db.Pool, repo *storage.Repository, outboxRepo *outbox.Repository, logger *slog.Logger) *Handler {
	return &Handler{pool: pool, repo: repo, outboxRepo: outboxRepo, logger: logger}
}

func (h *Handler) Mount(mux *http.ServeMux) {
	mux.HandleFunc("/claims", h.claims)
	mux.HandleFunc("/claims/", h.claim)
}

type fileClaimRequest struct {
	PolicyID   string `json:"policy_id"`
	CustomerID string `json:"customer_id"`
	Amount     string `json:"amount"`
}

func (h *Handler) claims(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.fileClaim(w, r)
	case http.MethodGet:
		h.listClaims(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) fileClaim(w http.ResponseWriter, r *http.Request) {
	var req fileClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.PolicyID = strings.TrimSpace(req.PolicyID)
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	if req.PolicyID == "" || req.CustomerID == "" || req.Amount == "" {
		http.Error(w, "policy_id, customer_id and amount are required", http.StatusBadRequest)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		http.Error(w, "amount must be a decimal number", http.StatusBadRequest)
		return
	}

	claim, err := domain.File(uuid.NewString(), req.PolicyID, req.CustomerID, amount)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	env, err := event.New(events.AggregateClaim, claim.ID, events.ClaimFiled, claim.Version, events.ClaimPayload{
		ClaimID:    claim.ID,
		PolicyID:   claim.PolicyID,
		CustomerID: claim.CustomerID,
		Amount:     claim.Amount.String(),
	})
	if err != nil {
		h.logger.Error("envelope build failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	err = outbox.Commit(r.Context(), h.pool, h.outboxRepo, func(tx pgx.Tx) ([]event.Envelope, error) {
		if err := h.repo.Insert(r.Context(), tx, claim); err != nil {
			return nil, err
		}
		return []event.Envelope{env}, nil
	})
	if err != nil {
		h.logger.Error("file claim failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, claimResponse(claim))
}

func (h *Handler) listClaims(w http.ResponseWriter, r *http.Request) {
	customerID := strings.TrimSpace(r.URL.Query().Get("customer_id"))
	if customerID == "" {
		http.Error(w, "customer_id is required", http.StatusBadRequest)
		return
	}
	claims, err := h.repo.ListByCustomer(r.Context(), customerID, 100)
	if err != nil {
		h.logger.Error("list claims failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]map[string]any, 0, len(claims))
	for _, c := range claims {
		out = append(out, claimResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"claims": out})
}

func (h *Handler) claim(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/claims/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.getClaim(w, r, parts[0])
	case len(parts) == 2 && r.Method == http.MethodPost:
		h.command(w, r, parts[0], parts[1])
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) getClaim(w http.ResponseWriter, r *http.Request, id string) {
	claim, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get claim failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse(claim))
}

// command applies an adjuster decision. Only review/approve/reject are
// exposed over HTTP; paid and reopened are reached exclusively through
// billing's payout events.
func (h *Handler) command(w http.ResponseWriter, r *http.Request, id, verb string) {
	var apply func(*domain.Claim) error
	var eventType string
	switch verb {
	case "review":
		apply, eventType = (*domain.Claim).StartReview, ""
	case "approve":
		apply, eventType = (*domain.Claim).Approve, events.ClaimApproved
	case "reject":
		apply, eventType = (*domain.Claim).Reject, events.ClaimRejected
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var updated *domain.Claim
	err := outbox.Commit(r.Context(), h.pool, h.outboxRepo, func(tx pgx.Tx) ([]event.Envelope, error) {
		claim, err := h.repo.GetForUpdate(r.Context(), tx, id)
		if err != nil {
			return nil, err
		}
		if err := apply(claim); err != nil {
			return nil, err
		}
		if err := h.repo.Update(r.Context(), tx, claim); err != nil {
			return nil, err
		}
		updated = claim
		if eventType == "" {
			return nil, nil
		}
		env, err := event.New(events.AggregateClaim, claim.ID, eventType, claim.Version, events.ClaimPayload{
			ClaimID:    claim.ID,
			PolicyID:   claim.PolicyID,
			CustomerID: claim.CustomerID,
			Amount:     claim.Amount.String(),
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
		h.logger.Error("claim command failed", "verb", verb, "claim_id", id, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, claimResponse(updated))
	}
}

func isInvariant(err error) bool {
	var iv *choreo.InvariantViolation
	return errors.As(err, &iv)
}

func claimResponse(c *domain.Claim) map[string]any {
	return map[string]any{
		"id":          c.ID,
		"policy_id":   c.PolicyID,
		"customer_id": c.CustomerID,
		"amount":      c.Amount.String(),
		"status":      string(c.Status),
		"version":     c.Version,
		"filed_at":    c.FiledAt,
		"updated_at":  c.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
