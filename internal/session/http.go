package session

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// maxBodyBytes bounds the size of a start request body.
const maxBodyBytes = 64 << 10

// StartRequest is the optional JSON body of POST /session/start. Nil fields
// keep the manager's defaults.
type StartRequest struct {
	DeviceName        *string `json:"device_name,omitempty"`
	LoopbackOnly      *bool   `json:"loopback_only,omitempty"`
	VADAggressiveness *int    `json:"vad_aggressiveness,omitempty"`
}

type errorBody struct {
	Error   string `json:"error"`
	Session *Info  `json:"session,omitempty"`
}

// Register adds the session control routes to mux.
func (m *Manager) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /session/start", m.handleStart)
	mux.HandleFunc("POST /session/stop", m.handleStop)
	mux.HandleFunc("GET /session", m.handleInfo)
}

func (m *Manager) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}

	cfg := m.Defaults()
	if req.DeviceName != nil {
		cfg.DeviceName = *req.DeviceName
	}
	if req.LoopbackOnly != nil {
		cfg.LoopbackOnly = *req.LoopbackOnly
	}
	if req.VADAggressiveness != nil {
		cfg.VADAggressiveness = *req.VADAggressiveness
	}

	info, err := m.Start(r.Context(), cfg)
	switch {
	case errors.Is(err, ErrSessionActive):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Session: &info})
	case err != nil:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusCreated, info)
	}
}

func (m *Manager) handleStop(w http.ResponseWriter, _ *http.Request) {
	if err := m.Stop(); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, m.Info())
}

func (m *Manager) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, m.Info())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("session: encoding response", "err", err)
	}
}
