package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/srt-translator/internal/jobs"
	"github.com/MimeLyc/srt-translator/internal/metrics"
	"github.com/MimeLyc/srt-translator/internal/service"
	"github.com/MimeLyc/srt-translator/internal/translator"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

// Server exposes the run queue over HTTP.
type Server struct {
	queue     *jobs.Queue
	scheduler *service.Scheduler
	defaults  translator.Request

	streamInterval time.Duration

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

// WithScheduler enables GET /api/schedule and POST /api/schedule/scan.
func WithScheduler(s *service.Scheduler) Option {
	return func(srv *Server) {
		srv.scheduler = s
	}
}

// WithDefaultRequest sets the language pair used when a POST omits one.
func WithDefaultRequest(req translator.Request) Option {
	return func(s *Server) {
		s.defaults = req
	}
}

func WithStreamInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.streamInterval = d
		}
	}
}

func NewServer(queue *jobs.Queue, opts ...Option) *Server {
	s := &Server{
		queue:          queue,
		defaults:       translator.Request{SourceLanguage: translator.AutoDetect, TargetLanguage: "es"},
		streamInterval: time.Second,
		mux:            http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return instrument(s.mux)
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/runs", s.handleRuns)
	s.mux.HandleFunc("/api/runs/stream", s.handleRunStream)
	s.mux.HandleFunc("/api/runs/", s.handleRunRoutes)
	s.mux.HandleFunc("/api/languages", s.handleLanguages)
	s.mux.HandleFunc("/api/schedule", s.handleSchedule)
	s.mux.HandleFunc("/api/schedule/scan", s.handleScheduleScan)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", metrics.Handler())
}

type wrappedWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *wrappedWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE working through the wrapper.
func (w *wrappedWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// silentPaths are polled often and only logged on errors.
var silentPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &wrappedWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		metrics.RecordHTTPRequest(methodLabel(r.Method), endpointLabel(r.URL.Path), strconv.Itoa(wrapped.statusCode))
		if silentPaths[r.URL.Path] && wrapped.statusCode < 400 {
			return
		}
		log.Debug("%s %s %d %s", r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
	})
}

// staticEndpoints are the fixed routes registered in routes().
var staticEndpoints = map[string]bool{
	"/api/runs":          true,
	"/api/runs/stream":   true,
	"/api/languages":     true,
	"/api/schedule":      true,
	"/api/schedule/scan": true,
	"/healthz":           true,
	"/metrics":           true,
}

const otherLabel = "other"

// endpointLabel maps a request path onto a registered route so the metric stays low-cardinality.
func endpointLabel(path string) string {
	if staticEndpoints[path] {
		return path
	}
	if !strings.HasPrefix(path, "/api/runs/") {
		return otherLabel
	}
	_, action, ok := parseRunRoute(path)
	switch {
	case !ok:
		return otherLabel
	case action == "":
		return "/api/runs/{id}"
	case action == "cancel":
		return "/api/runs/{id}/cancel"
	default:
		return otherLabel
	}
}

var knownMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodConnect: true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

func methodLabel(method string) string {
	if knownMethods[method] {
		return method
	}
	return otherLabel
}
