package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/raysh454/shieldsuite/internal/logging"
	"github.com/raysh454/shieldsuite/internal/permissions"
)

// VirusTotal's upload limit for the v2 file/scan endpoint.
const maxUploadBytes = 32 << 20

// Protection

func (s *Server) handleVerifyApp(w http.ResponseWriter, r *http.Request) {
	var body VerifyAppRequest
	if !s.decode(w, r, "verify app", &body) {
		return
	}
	v := s.orchestrator.VerifyApp(body.PackageName, body.Hash)
	s.logger.Info("verified app", logging.Field{Key: "package", Value: body.PackageName}, logging.Field{Key: "verified", Value: v.IsVerified})
	writeJSON(w, http.StatusOK, v)
}

// handleScanHash godoc
// @Summary Look up a file hash on VirusTotal
// @Tags protection
// @Accept json
// @Produce json
// @Param request body ScanHashRequest true "Hash"
// @Success 200 {object} app.HashScan
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/protection/scan-hash [post]
func (s *Server) handleScanHash(w http.ResponseWriter, r *http.Request) {
	var body ScanHashRequest
	if !s.decode(w, r, "scan hash", &body) {
		return
	}
	res, err := s.orchestrator.ScanHash(r.Context(), body.Hash)
	if err != nil {
		s.fail(w, "scanning hash", err, logging.Field{Key: "hash", Value: body.Hash})
		return
	}
	s.logger.Info("scanned hash", logging.Field{Key: "hash", Value: body.Hash}, logging.Field{Key: "malicious", Value: res.Malicious})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCheckMalware(w http.ResponseWriter, r *http.Request) {
	var body CheckMalwareRequest
	if !s.decode(w, r, "check malware", &body) {
		return
	}
	writeJSON(w, http.StatusOK, s.orchestrator.CheckMalware(body.Hash))
}

func (s *Server) handleAnalyzePermissions(w http.ResponseWriter, r *http.Request) {
	var body AnalyzePermissionsRequest
	if !s.decode(w, r, "analyze permissions", &body) {
		return
	}
	a := permissions.Analyze(body.Permissions)
	s.logger.Info("analyzed permissions", logging.Field{Key: "requested", Value: len(body.Permissions)}, logging.Field{Key: "risk_level", Value: a.RiskLevel})
	writeJSON(w, http.StatusOK, a)
}

type reportMalwareResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleReportMalware(w http.ResponseWriter, r *http.Request) {
	var body ReportMalwareRequest
	if !s.decode(w, r, "report malware", &body) {
		return
	}
	if _, err := s.orchestrator.ReportMalware(r.Context(), body.Hash, body.PackageName, body.Reason); err != nil {
		s.fail(w, "reporting malware", err, logging.Field{Key: "hash", Value: body.Hash})
		return
	}
	writeJSON(w, http.StatusOK, reportMalwareResponse{Success: true, Message: "Malware report submitted successfully"})
}

func (s *Server) handleProtectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orchestrator.ProtectionStats())
}

// Security

func (s *Server) handleScanFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the 32MB upload limit")
			return
		}
		s.logger.Warn("reading uploaded file", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		s.fail(w, "reading uploaded file", err)
		return
	}
	if len(content) > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the 32MB upload limit")
		return
	}

	res, err := s.orchestrator.ScanFile(r.Context(), header.Filename, content)
	if err != nil {
		s.fail(w, "scanning file", err, logging.Field{Key: "file", Value: header.Filename})
		return
	}
	s.logger.Info("scanned file", logging.Field{Key: "file", Value: header.Filename}, logging.Field{Key: "positives", Value: res.Positives})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCheckURL(w http.ResponseWriter, r *http.Request) {
	var body CheckURLRequest
	if !s.decode(w, r, "check url", &body) {
		return
	}
	res, err := s.orchestrator.CheckURL(r.Context(), body.URL)
	if err != nil {
		s.fail(w, "checking url", err, logging.Field{Key: "url", Value: body.URL})
		return
	}
	s.logger.Info("checked url", logging.Field{Key: "url", Value: body.URL}, logging.Field{Key: "positives", Value: res.Positives})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleScanHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}
	history, err := s.orchestrator.History().List(r.Context(), limit)
	if err != nil {
		s.fail(w, "listing scan history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}
