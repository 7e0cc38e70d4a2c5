package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/raysh454/shieldsuite/internal/alerts"
	"github.com/raysh454/shieldsuite/internal/logging"
)

// sseEvent names the stream event for a: updates and deletions keep their
// own event type, everything else is a new alert.
func sseEvent(a alerts.Alert) string {
	switch a.Type {
	case alerts.EventUpdated, alerts.EventDeleted:
		return a.Type
	default:
		return "alert"
	}
}

// handleCreateAlert godoc
// @Summary Create an alert and broadcast it to live subscribers
// @Tags alerts
// @Accept json
// @Produce json
// @Param request body CreateAlertRequest true "Alert"
// @Success 201 {object} map[string]any
// @Failure 400 {object} ErrorResponse
// @Router /api/alerts [post]
func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var body CreateAlertRequest
	if !s.decode(w, r, "create alert", &body) {
		return
	}

	a, err := s.orchestrator.Alerts().Create(r.Context(), alerts.NewAlert{
		Type:      body.Type,
		Severity:  body.Severity,
		Message:   body.Message,
		Source:    body.Source,
		Timestamp: body.Timestamp,
	})
	if err != nil {
		s.fail(w, "creating alert", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status": "alert created", "alert": a})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.orchestrator.Alerts().List(r.Context(), alerts.Filter{
		Status:   q.Get("status"),
		Severity: q.Get("severity"),
		Type:     q.Get("type"),
	})
	if err != nil {
		s.fail(w, "listing alerts", err)
		return
	}
	s.logger.Info("listed alerts", logging.Field{Key: "count", Value: len(list)})
	writeJSON(w, http.StatusOK, map[string]any{"alerts": list})
}

func (s *Server) handleUpdateAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "alertId")
	var body UpdateAlertRequest
	if !s.decode(w, r, "update alert", &body) {
		return
	}

	a, err := s.orchestrator.Alerts().UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		s.fail(w, "updating alert", err, logging.Field{Key: "alert_id", Value: id})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "alert updated", "alert": a})
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "alertId")
	a, err := s.orchestrator.Alerts().Delete(r.Context(), id)
	if err != nil {
		s.fail(w, "deleting alert", err, logging.Field{Key: "alert_id", Value: id})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "alert deleted", "alert": a})
}

func (s *Server) handleAlertStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.orchestrator.Alerts().Stats(r.Context())
	if err != nil {
		s.fail(w, "computing alert stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// --- Live alerts ---

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// handleSubscribeAlerts streams every new or changed alert as a server-sent
// event until the client goes away or the server shuts down.
func (s *Server) handleSubscribeAlerts(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, unsubscribe := s.orchestrator.Hub().Subscribe()
	defer unsubscribe()

	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()
	s.logger.Info("alert stream opened", logging.Field{Key: "subscribers", Value: s.orchestrator.Hub().Subscribers()})

	keepAlive := time.NewTicker(s.cfg.KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("alert stream closed")
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case a, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(a)
			if err != nil {
				s.logger.Warn("encoding alert event", logging.Field{Key: "error", Value: err.Error()})
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", sseEvent(a), data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleAlertsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	ch, unsubscribe := s.orchestrator.Hub().Subscribe()
	defer unsubscribe()

	// Reads only detect the peer closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case a, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(a); err != nil {
				return
			}
		}
	}
}
