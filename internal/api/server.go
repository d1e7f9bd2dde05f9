package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/netspec/statusync/internal/logbuffer"
	"github.com/netspec/statusync/internal/reconciler"
	"github.com/netspec/statusync/internal/types"
)

// maxEventBytes caps the size of an inbound alert body
const maxEventBytes = 1 << 20

// Handler reconciles a single alert event
type Handler interface {
	Handle(ctx context.Context, ev types.AlertEvent) reconciler.Result
}

// Server accepts alert events over HTTP and exposes health and metrics
type Server struct {
	handler   Handler
	logger    zerolog.Logger
	port      string
	logBuffer *logbuffer.Buffer
	gatherer  prometheus.Gatherer
	startTime time.Time

	version   string
	commit    string
	buildDate string
	versionMu sync.RWMutex

	delivered atomic.Int64
	failed    atomic.Int64

	srv *http.Server
}

// NewServer creates a new API server
func NewServer(handler Handler, logger zerolog.Logger, port string) *Server {
	return &Server{
		handler:   handler,
		logger:    logger.With().Str("component", "api").Logger(),
		port:      port,
		startTime: time.Now(),
	}
}

// SetLogBuffer sets the buffer served on /api/logs
func (s *Server) SetLogBuffer(lb *logbuffer.Buffer) {
	s.logBuffer = lb
}

// SetGatherer sets the registry served on /metrics
func (s *Server) SetGatherer(g prometheus.Gatherer) {
	s.gatherer = g
}

// SetVersion sets the version information
func (s *Server) SetVersion(version, commit, buildDate string) {
	s.versionMu.Lock()
	defer s.versionMu.Unlock()
	s.version = version
	s.commit = commit
	s.buildDate = buildDate
}

// Router builds the HTTP routes
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/alerts", s.handleAlert).Methods(http.MethodPost)
	r.HandleFunc("/api/logs", s.handleLogsAPI).Methods(http.MethodGet)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	addr := ":" + s.port
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().
		Str("address", addr).
		Msg("Starting alert intake server")

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight deliveries
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// handleHealth returns service health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus returns delivery counters and build info
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.versionMu.RLock()
	version, commit, buildDate := s.version, s.commit, s.buildDate
	s.versionMu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"delivered":  s.delivered.Load(),
		"failed":     s.failed.Load(),
		"time":       time.Now().UTC().Format(time.RFC3339),
		"uptime":     time.Since(s.startTime).String(),
		"version":    version,
		"commit":     commit,
		"build_date": buildDate,
	})
}

type alertResponse struct {
	Handled        bool   `json:"handled"`
	DeliveryID     string `json:"delivery_id,omitempty"`
	CorrelationKey string `json:"correlation_key,omitempty"`
	Action         string `json:"action,omitempty"`
	Outcome        string `json:"outcome,omitempty"`
	IncidentID     string `json:"incident_id,omitempty"`
	Error          string `json:"error,omitempty"`
	ErrorKind      string `json:"error_kind,omitempty"`
}

// handleAlert reconciles one posted alert event
func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	var ev types.AlertEvent
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err := dec.Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, alertResponse{Error: "invalid alert event: " + err.Error()})
		return
	}
	if err := ev.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, alertResponse{Error: err.Error()})
		return
	}

	res := s.handler.Handle(r.Context(), ev)
	resp := alertResponse{
		Handled:        res.Err == nil,
		DeliveryID:     res.DeliveryID,
		CorrelationKey: string(res.Key),
		Action:         string(res.Action),
		Outcome:        string(res.Outcome),
		IncidentID:     string(res.IncidentID),
	}
	if res.Err != nil {
		s.failed.Add(1)
		resp.Error = res.Err.Error()
		resp.ErrorKind = reconciler.ErrorKind(res.Err)
		writeJSON(w, statusForKind(resp.ErrorKind), resp)
		return
	}
	s.delivered.Add(1)
	writeJSON(w, http.StatusOK, resp)
}

func statusForKind(kind string) int {
	switch kind {
	case "configuration":
		return http.StatusInternalServerError
	case "component_not_found":
		return http.StatusUnprocessableEntity
	case "timeout":
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// handleLogsAPI returns recent log entries, optionally filtered by ?level= and ?limit=
func (s *Server) handleLogsAPI(w http.ResponseWriter, r *http.Request) {
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	var entries []logbuffer.Entry
	if s.logBuffer != nil {
		entries = s.logBuffer.Recent(limit, r.URL.Query().Get("level"))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}
