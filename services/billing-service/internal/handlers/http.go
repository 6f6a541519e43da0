package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/covergrid/covergrid/libs/choreo"
	"github.com/covergrid/covergrid/libs/db"
	"github.com/covergrid/covergrid/libs/event"
	"github.com/covergrid/covergrid/libs/outbox"
	"github.com/covergrid/covergrid/services/billing-service/internal/domain"
	"github.com/covergrid/covergrid/services/billing-service/internal/events"
	"github.com/covergrid/covergrid/services/billing-service/internal/storage"
)

// Handler exposes billing's operator surface: account freeze/unfreeze and
// marking invoices paid. Accounts are opened only by PolicyIssued events,
// never over HTTP.
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
	mux.HandleFunc("/accounts/", h.account)
	mux.HandleFunc("/invoices/", h.invoice)
}

func (h *Handler) account(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/accounts/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.getAccount(w, r, parts[0])
	case len(parts) == 2 && r.Method == http.MethodPost:
		h.command(w, r, parts[0], parts[1])
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request, id string) {
	account, err := h.repo.GetAccount(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get account failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse(account))
}

func (h *Handler) command(w http.ResponseWriter, r *http.Request, id, verb string) {
	var apply func(*domain.Account) error
	var eventType string
	switch verb {
	case "freeze":
		apply, eventType = (*domain.Account).Freeze, events.AccountFrozen
	case "unfreeze":
		apply, eventType = (*domain.Account).Unfreeze, events.AccountUnfrozen
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var updated *domain.Account
	err := outbox.Commit(r.Context(), h.pool, h.outboxRepo, func(tx pgx.Tx) ([]event.Envelope, error) {
		account, err := h.repo.GetAccountForUpdate(r.Context(), tx, id)
		if err != nil {
			return nil, err
		}
		if err := apply(account); err != nil {
			return nil, err
		}
		if err := h.repo.UpdateAccount(r.Context(), tx, account); err != nil {
			return nil, err
		}
		updated = account
		env, err := event.New(events.AggregateBillingAccount, account.ID, eventType, account.Version, events.AccountPayload{
			AccountID:  account.ID,
			PolicyID:   account.PolicyID,
			CustomerID: account.CustomerID,
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
		h.logger.Error("account command failed", "verb", verb, "account_id", id, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, accountResponse(updated))
	}
}

// invoice handles POST /invoices/{id}/pay, recorded directly; payments do not
// travel through the event plane.
func (h *Handler) invoice(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/invoices/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "pay" || r.Method != http.MethodPost {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	paid, err := h.repo.MarkInvoicePaid(r.Context(), parts[0])
	if err != nil {
		h.logger.Error("pay invoice failed", "invoice_id", parts[0], "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !paid {
		http.Error(w, "invoice not payable", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoice_id": parts[0], "status": "paid"})
}

func isInvariant(err error) bool {
	var iv *choreo.InvariantViolation
	return errors.As(err, &iv)
}

func accountResponse(a *domain.Account) map[string]any {
	return map[string]any{
		"id":          a.ID,
		"policy_id":   a.PolicyID,
		"customer_id": a.CustomerID,
		"status":      string(a.Status),
		"version":     a.Version,
		"opened_at":   a.OpenedAt,
		"updated_at":  a.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
