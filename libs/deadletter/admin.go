package deadletter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// Admin exposes the operational dead-letter surface each service mounts:
//
//	GET  /admin/dead-letters                list quarantined events
//	GET  /admin/dead-letters/{event_id}     inspect one entry
//	POST /admin/dead-letters/{event_id}/replay
type Admin struct {
	repo     *Repository
	replayer *Replayer
	logger   *slog.Logger
}

func NewAdmin(repo *Repository, replayer *Replayer, logger *slog.Logger) *Admin {
	return &Admin{repo: repo, replayer: replayer, logger: logger}
}

func (a *Admin) Mount(mux *http.ServeMux) {
	mux.HandleFunc("/admin/dead-letters", a.list)
	mux.HandleFunc("/admin/dead-letters/", a.entry)
}

func (a *Admin) list(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	includeReplayed := r.URL.Query().Get("all") == "true"

	entries, err := a.repo.List(r.Context(), limit, includeReplayed)
	if err != nil {
		a.logger.Error("dead-letter list failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

func (a *Admin) entry(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/admin/dead-letters/")
	if eventID, ok := strings.CutSuffix(rest, "/replay"); ok {
		a.replay(w, r, eventID)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entry, err := a.repo.Get(r.Context(), rest)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.logger.Error("dead-letter get failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *Admin) replay(w http.ResponseWriter, r *http.Request, eventID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	err := a.replayer.Replay(r.Context(), eventID)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.logger.Error("replay failed", "event_id", eventID, "err", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "replayed", "event_id": eventID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
