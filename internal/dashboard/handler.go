// Package dashboard is the HTTP presentation layer: session commands, the
// latest status and frame, the hazard log, and a websocket status feed.
package dashboard

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hazardwatch/internal/hazardlog"
	"hazardwatch/internal/orchestrator"
	"hazardwatch/internal/platform/metrics"
)

const (
	defaultHazardLimit = 50
	maxHazardLimit     = 1000
)

// Handler exposes the dashboard endpoints using go-chi.
type Handler struct {
	orch    *orchestrator.Orchestrator
	hazards hazardlog.Reader
	frames  *FrameStore
	board   *StatusBoard
	hub     *Hub
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler. Metrics may be nil to disable metric
// recording (e.g. in tests).
func NewHandler(orch *orchestrator.Orchestrator, hazards hazardlog.Reader, frames *FrameStore, board *StatusBoard, hub *Hub, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{orch: orch, hazards: hazards, frames: frames, board: board, hub: hub, log: log, metrics: m}
}

type startRequest struct {
	Source string `json:"source"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// StartSession handles POST /session.
// Body: { "source": "0" } for a webcam or { "source": "/videos/road.mp4" }.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid start body", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		writeError(w, http.StatusBadRequest, errors.New("source is required"))
		return
	}

	s, err := h.orch.Start(orchestrator.ParseSource(req.Source))
	if err != nil {
		if errors.Is(err, orchestrator.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, err)
			return
		}
		h.log.Error("start session failed", slog.String("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.Info())
}

// StopSession handles POST /session/stop.
func (h *Handler) StopSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.orch.Current()
	if !ok {
		writeError(w, http.StatusNotFound, orchestrator.ErrNoSession)
		return
	}
	if err := h.orch.Stop(s); err != nil {
		h.log.Error("stop session failed", slog.String("session_id", s.ID), slog.String("error", err.Error()))
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Info())
}

// Snapshot handles POST /session/snapshot.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	s, ok := h.orch.Current()
	if !ok {
		writeError(w, http.StatusNotFound, orchestrator.ErrNoSession)
		return
	}
	if err := h.orch.RequestSnapshot(s); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// GetSession handles GET /session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orch.Info())
}

// GetStatus handles GET /status: the latest status message.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.board.Latest())
}

// GetFrame handles GET /frame.jpg.
func (h *Handler) GetFrame(w http.ResponseWriter, r *http.Request) {
	data, ok, err := h.frames.JPEG()
	if err != nil {
		h.log.Error("encode frame failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ListHazards handles GET /hazards?limit=N, newest first.
func (h *Handler) ListHazards(w http.ResponseWriter, r *http.Request) {
	limit := defaultHazardLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = min(n, maxHazardLimit)
	}

	records, err := h.hazards.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("list hazards failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, errors.New("hazard log unavailable"))
		return
	}
	if records == nil {
		records = []orchestrator.LogRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// HazardSummary handles GET /hazards/summary: logged totals per label.
func (h *Handler) HazardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := hazardlog.Summarize(r.Context(), h.hazards, h.orch.Vocabulary().Labels())
	if err != nil {
		h.log.Error("hazard summary failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, errors.New("hazard log unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ServeWS handles GET /ws. The first message carries the current status.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	latest := h.board.Latest()
	h.hub.ServeWS(w, r, &Message{Type: "status", Payload: latest, Timestamp: time.Now().Unix()})
}
