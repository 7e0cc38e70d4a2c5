package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/raysh454/shieldsuite/internal/app"
	"github.com/raysh454/shieldsuite/internal/logging"
	"github.com/raysh454/shieldsuite/internal/metrics"
	_ "github.com/raysh454/shieldsuite/internal/server/docs"
)

const defaultKeepAlive = 15 * time.Second

// Server is the HTTP, SSE and WebSocket API surface for ShieldSuite.
type Server struct {
	cfg          Config
	orchestrator *app.Orchestrator
	router       chi.Router
	upgrader     websocket.Upgrader
	validate     *validator.Validate
	logger       logging.Logger
	metrics      *metrics.Metrics

	// db is set only when the server opened the database itself.
	db *sql.DB

	cancel context.CancelFunc
}

// NewServer creates a new Server with its own Orchestrator.
func NewServer(cfg Config) (*Server, error) {
	if cfg.AppConfig == nil {
		cfg.AppConfig = app.DefaultConfig()
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = cfg.AppConfig.Server.Addr
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = defaultKeepAlive
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	deps := cfg.Deps
	deps.Logger = logger
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	var ownedDB *sql.DB
	if deps.DB == nil {
		db, err := cfg.AppConfig.OpenStorage()
		if err != nil {
			return nil, err
		}
		deps.DB = db
		ownedDB = db
	}

	ctx, cancel := context.WithCancel(context.Background())
	orch, err := app.NewOrchestrator(ctx, cfg.AppConfig, deps)
	if err != nil {
		cancel()
		if ownedDB != nil {
			_ = ownedDB.Close()
		}
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	r := chi.NewRouter()
	s := &Server{
		cfg:          cfg,
		orchestrator: orch,
		router:       r,
		logger:       logger,
		metrics:      deps.Metrics,
		validate:     newValidator(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict to the mobile app's origins once they are known
				return true
			},
		},
		db:     ownedDB,
		cancel: cancel,
	}

	s.routes()
	return s, nil
}

// Orchestrator returns the underlying orchestrator for advanced use (tests, etc.).
func (s *Server) Orchestrator() *app.Orchestrator {
	return s.orchestrator
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(s.metrics.Middleware)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api/apk", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyzeAPK)
		r.Post("/analyze-apk", s.handleAnalyzeAPK)
		r.Post("/bulk-analyze", s.handleBulkAnalyze)
		r.Post("/scan-device", s.handleScanDevice)

		// Bulk jobs over REST
		r.Post("/jobs", s.handleStartBulkJob)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{jobID}", s.handleGetJob)
		r.Delete("/jobs/{jobID}", s.handleCancelJob)
	})

	r.Route("/api/protection", func(r chi.Router) {
		r.Post("/verify-app", s.handleVerifyApp)
		r.Post("/scan-hash", s.handleScanHash)
		r.Post("/check-malware", s.handleCheckMalware)
		r.Post("/analyze-permissions", s.handleAnalyzePermissions)
		r.Post("/report-malware", s.handleReportMalware)
		r.Get("/stats", s.handleProtectionStats)
	})

	r.Route("/api/security", func(r chi.Router) {
		r.Post("/scan-file", s.handleScanFile)
		r.Post("/check-url", s.handleCheckURL)
		r.Get("/scan-history", s.handleScanHistory)
	})

	r.Route("/api/alerts", func(r chi.Router) {
		r.Post("/", s.handleCreateAlert)
		r.Post("/create", s.handleCreateAlert)
		r.Get("/", s.handleListAlerts)
		r.Get("/subscribe", s.handleSubscribeAlerts)
		r.Get("/stats", s.handleAlertStats)
		r.Patch("/{alertId}", s.handleUpdateAlert)
		r.Delete("/{alertId}", s.handleDeleteAlert)
	})

	r.Route("/api/vpn", func(r chi.Router) {
		r.Get("/status", s.handleVPNStatus)
		r.Post("/connect", s.handleVPNConnect)
		r.Post("/disconnect", s.handleVPNDisconnect)
		r.Post("/block-domain", s.handleBlockDomain)
		r.Post("/unblock-domain", s.handleUnblockDomain)
		r.Get("/blocked-domains", s.handleBlockedDomains)
	})

	r.Route("/api/device", func(r chi.Router) {
		r.Get("/system", s.handleSystemInfo)
		r.Get("/health", s.handleDeviceHealth)
		r.Post("/optimize", s.handleOptimize)
		r.Get("/network", s.handleNetwork)
		r.Get("/location", s.handleGetLocation)
		r.Post("/location", s.handleUpdateLocation)
		r.Post("/remote-wipe", s.handleRemoteWipe)
		r.Post("/lock", s.handleLock)
		r.Post("/wipe", s.handleWipe)
		r.Post("/play-sound", s.handlePlaySound)
	})

	r.Route("/api/apps", func(r chi.Router) {
		r.Get("/", s.handleListApps)
		r.Post("/installation", s.handleRecordInstallation)
		r.Get("/installation-history", s.handleInstallationHistory)
	})

	// WebSockets
	r.Get("/ws/alerts", s.handleAlertsWS)
	r.Get("/ws/jobs/{jobID}", s.handleJobWS)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		// CORS preflight
		if r.Method == http.MethodOptions {
			s.optionsHandler("GET, POST, PATCH, DELETE")(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// maxJSONBodyBytes caps request bodies other than file uploads.
const maxJSONBodyBytes = 1 << 20

// secretFields are request body keys whose values never reach the logs.
var secretFields = map[string]bool{
	"confirmationcode": true,
	"pin":              true,
	"password":         true,
	"apikey":           true,
	"token":            true,
}

func redactSecrets(v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if secretFields[strings.ToLower(k)] {
				t[k] = "[REDACTED]"
				continue
			}
			redactSecrets(val)
		}
	case []any:
		for _, val := range t {
			redactSecrets(val)
		}
	}
}

// loggableBody returns the body as it may be logged. Bodies that are not
// JSON are reported by size only, since they cannot be redacted.
func loggableBody(body []byte) logging.Field {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return logging.Field{Key: "body_bytes", Value: len(body)}
	}
	redactSecrets(v)
	out, err := json.Marshal(v)
	if err != nil {
		return logging.Field{Key: "body_bytes", Value: len(body)}
	}
	return logging.Field{Key: "body", Value: string(out)}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	// Uploaded files are not logged; handleScanFile applies its own limit.
	multipart := strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/")
	if r.Body != nil && !multipart && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
		bodyBytes, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				s.logger.Warn("http_request", append(fields, logging.Field{Key: "error", Value: "body too large"})...)
				writeError(w, http.StatusRequestEntityTooLarge, "request body exceeds 1MB")
				return
			}
			s.logger.Warn("http_request", append(fields, logging.Field{Key: "error", Value: err.Error()})...)
			writeError(w, http.StatusBadRequest, "unreadable request body")
			return
		}
		if len(bodyBytes) > 0 {
			fields = append(fields, loggableBody(bodyBytes))
		}
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close shuts down the orchestrator and underlying resources.
func (s *Server) Close() {
	if s.orchestrator != nil {
		s.orchestrator.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// decode reads a JSON body into v and validates it. On failure it writes a
// 400 and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Warn("decoding "+op+" body", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		msg := err.Error()
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msg = validationMessage(verrs[0])
		}
		s.logger.Warn("validating "+op+" body", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

// fail logs err and writes it with the status it maps to.
func (s *Server) fail(w http.ResponseWriter, op string, err error, fields ...logging.Field) {
	status := statusFor(err)
	fields = append(fields, logging.Field{Key: "error", Value: err.Error()})
	if status >= http.StatusInternalServerError {
		s.logger.Error(op, fields...)
	} else {
		s.logger.Warn(op, fields...)
	}
	writeError(w, status, err.Error())
}
