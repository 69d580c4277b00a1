package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kcloudops/kcloud-monitor/internal/monitor"
	"github.com/kcloudops/kcloud-monitor/internal/observability"
	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// ReadinessChecker reports whether the monitor is ready to serve traffic.
type ReadinessChecker interface {
	IsReady() bool
}

// MonitorView is the read surface the debug endpoints expose.
type MonitorView interface {
	Mode() monitor.Mode
	Report() monitor.Report
	ActiveAlerts(filter model.AlertFilter) []model.Alert
	AlertSummary() model.AlertSummary
	GroupStatus(groupID string) (model.GroupSnapshot, bool)
	Groups() []model.GroupSnapshot
	ActiveErrorCodes() []string
	AcknowledgeAlert(ctx context.Context, id string) bool
	ResolveAlert(ctx context.Context, id string) bool
}

// Server exposes health, readiness, metrics, and debug endpoints.
type Server struct {
	srv       *http.Server
	readiness ReadinessChecker
	view      MonitorView
	addr      string
}

// NewServer creates a health server on the given port. Pass port=0 to let the
// OS pick a free port (useful for tests). When enableDebug is true, pprof and
// the debug read endpoints are registered as well.
func NewServer(port int, metrics *observability.Metrics, readiness ReadinessChecker, view MonitorView, enableDebug bool) *Server {
	s := &Server{readiness: readiness, view: view}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	if enableDebug {
		s.registerDebug(mux)
	}

	s.srv = &http.Server{
		Addr:           net.JoinHostPort("", strconv.Itoa(port)),
		Handler:        mux,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return s
}

// registerDebug mounts pprof and the read-only debug surface. Gated behind
// KCLOUD_DEBUG_ENDPOINTS because the report dumps full cluster snapshots.
func (s *Server) registerDebug(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.HandleFunc("/debug/report", s.handleDebugReport)
	mux.HandleFunc("/debug/alerts", s.handleDebugAlerts)
	mux.HandleFunc("/debug/alerts/summary", s.handleDebugAlertSummary)
	mux.HandleFunc("/debug/alerts/ack", s.alertAction(s.view.AcknowledgeAlert))
	mux.HandleFunc("/debug/alerts/resolve", s.alertAction(s.view.ResolveAlert))
	mux.HandleFunc("/debug/groups", s.handleDebugGroups)
}

// alertAction adapts an operator alert operation into a POST handler taking
// the alert id as a query parameter.
func (s *Server) alertAction(op func(ctx context.Context, id string) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
			return
		}
		id := r.URL.Query().Get("id")
		if id == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
			return
		}
		if !op(r.Context(), id) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown alert"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"alert_id": id})
	}
}

// Start binds the listener and serves in a background goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr().String()

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("health server exited", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address after Start, including the resolved port.
func (s *Server) Addr() string { return s.addr }

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	codes := s.view.ActiveErrorCodes()
	status := "ok"
	if len(codes) > 0 {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"mode":   string(s.view.Mode()),
		"errors": codes,
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	code := http.StatusOK
	ready := s.readiness.IsReady()
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]bool{"ready": ready})
}

func (s *Server) handleDebugReport(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.view.Report())
}

func (s *Server) handleDebugAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.view.ActiveAlerts(model.AlertFilter{
		ClusterName: q.Get("cluster"),
		Severity:    model.Severity(q.Get("severity")),
	}))
}

func (s *Server) handleDebugAlertSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.view.AlertSummary())
}

func (s *Server) handleDebugGroups(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusOK, s.view.Groups())
		return
	}
	gs, ok := s.view.GroupStatus(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown group"})
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
