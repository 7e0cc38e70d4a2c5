package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/raysh454/shieldsuite/internal/devicescan"
	"github.com/raysh454/shieldsuite/internal/logging"
	"github.com/raysh454/shieldsuite/internal/riskscore"
)

type healthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "healthy",
		Environment: s.orchestrator.Config().Server.Env,
	})
}

// handleAnalyzeAPK godoc
// @Summary Score one APK
// @Tags apk
// @Accept json
// @Produce json
// @Param request body AnalyzeAPKRequest true "APK descriptor"
// @Success 200 {object} AnalyzeAPKResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/apk/analyze [post]
func (s *Server) handleAnalyzeAPK(w http.ResponseWriter, r *http.Request) {
	var body AnalyzeAPKRequest
	if !s.decode(w, r, "analyze apk", &body) {
		return
	}

	d := body.Descriptor()
	a, err := s.orchestrator.AnalyzeAPK(r.Context(), d)
	if err != nil {
		s.fail(w, "analyzing apk", err, logging.Field{Key: "name", Value: d.Name})
		return
	}
	s.logger.Info("analyzed apk",
		logging.Field{Key: "name", Value: d.Name},
		logging.Field{Key: "risk_score", Value: a.RiskScore},
		logging.Field{Key: "risk_level", Value: a.RiskLevel})
	writeJSON(w, http.StatusOK, AnalyzeAPKResponse{Success: true, APKName: d.Name, Analysis: a})
}

func descriptors(items []APKItem) []riskscore.Descriptor {
	ds := make([]riskscore.Descriptor, len(items))
	for i, it := range items {
		ds[i] = it.Descriptor()
	}
	return ds
}

// handleBulkAnalyze godoc
// @Summary Score a batch of APKs
// @Tags apk
// @Accept json
// @Produce json
// @Param request body BulkAnalyzeRequest true "APK batch"
// @Success 200 {object} BulkAnalyzeResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/apk/bulk-analyze [post]
func (s *Server) handleBulkAnalyze(w http.ResponseWriter, r *http.Request) {
	var body BulkAnalyzeRequest
	if !s.decode(w, r, "bulk analyze", &body) {
		return
	}

	items := body.Items()
	res, err := s.orchestrator.BulkAnalyze(r.Context(), descriptors(items))
	if err != nil {
		s.fail(w, "bulk analyzing apks", err, logging.Field{Key: "count", Value: len(items)})
		return
	}

	out := BulkAnalyzeResponse{
		Success:  true,
		Summary:  res.Summary,
		Results:  make([]BulkItemResult, len(items)),
		ScanTime: time.Now().UTC(),
	}
	for i, it := range items {
		out.Results[i] = BulkItemResult{APKItem: it, Analysis: res.Results[i]}
	}
	s.logger.Info("bulk analyzed apks",
		logging.Field{Key: "total", Value: res.Summary.Total},
		logging.Field{Key: "threats", Value: res.Summary.Threats},
		logging.Field{Key: "critical", Value: res.Summary.Critical})
	writeJSON(w, http.StatusOK, out)
}

type scanDeviceResponse struct {
	Success bool `json:"success"`
	devicescan.Result
}

func (s *Server) handleScanDevice(w http.ResponseWriter, r *http.Request) {
	var body ScanDeviceRequest
	if r.ContentLength != 0 && !s.decode(w, r, "scan device", &body) {
		return
	}
	if body.DeviceID == "" {
		body.DeviceID = "unknown"
	}

	res := s.orchestrator.ScanDevice(body.DeviceID)
	s.logger.Info("scanned device",
		logging.Field{Key: "device_id", Value: res.DeviceID},
		logging.Field{Key: "apks_found", Value: res.APKsFound})
	writeJSON(w, http.StatusOK, scanDeviceResponse{Success: true, Result: res})
}

// Jobs (REST)

func (s *Server) handleStartBulkJob(w http.ResponseWriter, r *http.Request) {
	var body BulkAnalyzeRequest
	if !s.decode(w, r, "start bulk job", &body) {
		return
	}

	// The job outlives the request.
	job, err := s.orchestrator.StartBulkJob(context.Background(), descriptors(body.Items()))
	if err != nil {
		s.fail(w, "starting bulk job", err)
		return
	}
	s.logger.Info("started bulk job", logging.Field{Key: "job_id", Value: job.ID}, logging.Field{Key: "total", Value: job.Total})
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		s.logger.Warn("getting job: not found", logging.Field{Key: "job_id", Value: jobID})
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if s.orchestrator.GetJob(jobID) == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.orchestrator.CancelJob(jobID)
	s.logger.Info("canceled job", logging.Field{Key: "job_id", Value: jobID})
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.orchestrator.ListJobs()
	s.logger.Info("listed jobs", logging.Field{Key: "count", Value: len(jobs)})
	writeJSON(w, http.StatusOK, jobs)
}

// WebSockets

// handleJobWS sends the job's current state, then replays its events and
// relays new ones until the job finishes. A failed write cancels the job.
func (s *Server) handleJobWS(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, events, stop, ok := s.orchestrator.SubscribeJob(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	defer stop()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(job); err != nil {
		return
	}

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			// Assume client disconnected; cancel job
			s.orchestrator.CancelJob(job.ID)
			return
		}
	}
}
