package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/covergrid/covergrid/libs/choreo"
	"github.com/covergrid/covergrid/libs/db"
	"github.com/covergrid/covergrid/libs/event"
	"github.com/covergrid/covergrid/libs/outbox"
	"github.com/covergrid/covergrid/services/customer-service/internal/domain"
	"github.com/covergrid/covergrid/services/customer-service/internal/events"
	"github.com/covergrid/covergrid/services/customer-service/internal/storage"
)

// Handler is the synchronous command boundary of the customer context.
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
	mux.HandleFunc("/customers", h.customers)
	mux.HandleFunc("/customers/", h.customer)
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *Handler) customers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	customer, err := domain.Register(uuid.NewString(), req.Email, req.Name, req.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	env, err := event.New(events.AggregateCustomer, customer.ID, events.CustomerRegistered, customer.Version, events.CustomerPayload{
		CustomerID: customer.ID,
		Email:      customer.Email,
		Name:       customer.Name,
	})
	if err != nil {
		h.logger.Error("envelope build failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	err = outbox.Commit(r.Context(), h.pool, h.outboxRepo, func(tx pgx.Tx) ([]event.Envelope, error) {
		if err := h.repo.Insert(r.Context(), tx, customer); err != nil {
			return nil, err
		}
		return []event.Envelope{env}, nil
	})
	if isUniqueViolation(err) {
		http.Error(w, "email already registered", http.StatusConflict)
		return
	}
	if err != nil {
		h.logger.Error("register customer failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, customerResponse(customer))
}

func (h *Handler) customer(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/customers/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.getCustomer(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "policies" && r.Method == http.MethodGet:
		h.listPolicies(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "archive" && r.Method == http.MethodPost:
		h.archiveCustomer(w, r, parts[0])
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request, id string) {
	customer, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get customer failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, customerResponse(customer))
}

func (h *Handler) listPolicies(w http.ResponseWriter, r *http.Request, id string) {
	refs, err := h.repo.ListPolicies(r.Context(), id)
	if err != nil {
		h.logger.Error("list customer policies failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]map[string]any, 0, len(refs))
	for _, ref := range refs {
		out = append(out, map[string]any{
			"policy_id": ref.PolicyID,
			"product":   ref.Product,
			"premium":   ref.Premium,
			"issued_at": ref.IssuedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"policies": out})
}

func (h *Handler) archiveCustomer(w http.ResponseWriter, r *http.Request, id string) {
	var updated *domain.Customer
	err := outbox.Commit(r.Context(), h.pool, h.outboxRepo, func(tx pgx.Tx) ([]event.Envelope, error) {
		customer, err := h.repo.GetForUpdate(r.Context(), tx, id)
		if err != nil {
			return nil, err
		}
		if err := customer.Archive(); err != nil {
			return nil, err
		}
		if err := h.repo.Update(r.Context(), tx, customer); err != nil {
			return nil, err
		}
		updated = customer
		env, err := event.New(events.AggregateCustomer, customer.ID, events.CustomerArchived, customer.Version, events.CustomerPayload{
			CustomerID: customer.ID,
			Email:      customer.Email,
			Name:       customer.Name,
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
		h.logger.Error("archive customer failed", "customer_id", id, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, customerResponse(updated))
	}
}

func isInvariant(err error) bool {
	var iv *choreo.InvariantViolation
	return errors.As(err, &iv)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func customerResponse(c *domain.Customer) map[string]any {
	return map[string]any{
		"id":            c.ID,
		"email":         c.Email,
		"name":          c.Name,
		"status":        string(c.Status),
		"version":       c.Version,
		"registered_at": c.RegisteredAt,
		"updated_at":    c.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
