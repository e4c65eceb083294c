package postgres

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// Register adds GET /transcripts to mux. Query parameters session_id and
// limit narrow the result.
func (s *Store) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /transcripts", s.handleRecent)
}

func (s *Store) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			http.Error(w, "limit must be between 1 and 1000", http.StatusBadRequest)
			return
		}
		limit = n
	}
	evs, err := s.Recent(r.Context(), r.URL.Query().Get("session_id"), limit)
	if err != nil {
		slog.Warn("postgres store: listing transcripts", "err", err)
		http.Error(w, "transcript store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(evs); err != nil {
		slog.Warn("postgres store: encoding transcripts", "err", err)
	}
}
