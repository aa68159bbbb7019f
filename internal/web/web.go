package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"classcal/internal/config"
	appLog "classcal/internal/log"
	"classcal/internal/model"
	"classcal/internal/schedule"
)

// maxUploadBytes caps import request bodies.
const maxUploadBytes = 10 << 20

// Server exposes the schedule store over a JSON HTTP API.
type Server struct {
	cfg *config.Config
	now func() time.Time

	// mu serializes every store call; the store is not safe for
	// concurrent use.
	mu    sync.Mutex
	store *schedule.Store
}

// NewServer constructs a Server over store. now defaults to time.Now.
func NewServer(cfg *config.Config, store *schedule.Store, now func() time.Time) *Server {
	if now == nil {
		now = time.Now
	}
	return &Server{
		cfg:   cfg,
		now:   now,
		store: store,
	}
}

// Handler returns the routed http.Handler for this server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Route("/classes", func(r chi.Router) {
			r.Get("/", s.listClasses)
			r.Post("/", s.addClass)
			r.Get("/{key}", s.getClasses)
			r.Delete("/{key}/{index}", s.removeClass)
		})
		r.Get("/upcoming", s.handleUpcoming)
		r.Get("/upcoming.ics", s.handleUpcomingICS)
		r.Get("/options", s.handleOptions)
		r.Get("/export.csv", s.exportCSV)
		r.Get("/export.xlsx", s.exportXLSX)
		r.Post("/import", s.handleImport)
	})

	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(r)
	}
	return r
}

// requestLogger writes one access line per request through the app logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			appLog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Either credential empty means disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="classcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// withStore runs fn with exclusive access to the store.
func (s *Server) withStore(fn func(st *schedule.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.store)
}

func (s *Server) windowDays(r *http.Request) int {
	def := 7
	if s.cfg != nil && s.cfg.WindowDays > 0 {
		def = s.cfg.WindowDays
	}
	days := parseIntDefault(r.URL.Query().Get("days"), def)
	if days < 0 {
		return def
	}
	return days
}

func filterFrom(r *http.Request) schedule.Filter {
	q := r.URL.Query()
	return schedule.Filter{
		Day:     q.Get("day"),
		Subject: q.Get("subject"),
		Teacher: q.Get("teacher"),
		Where:   q.Get("where"),
	}
}

// filtered runs the request's filter under the store lock.
func (s *Server) filtered(r *http.Request) (schedule.Scheme, []model.Entry, error) {
	var scheme schedule.Scheme
	var entries []model.Entry
	err := s.withStore(func(st *schedule.Store) error {
		scheme = st.Scheme()
		var err error
		entries, err = st.Filtered(filterFrom(r))
		return err
	})
	return scheme, entries, err
}

// statusFor maps store error kinds to HTTP status codes.
func statusFor(err error) int {
	var (
		ve *schedule.ValidationError
		nf *schedule.NotFoundError
		ie *schedule.ImportError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &ie):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeStoreError reports err with the status for its kind. Server-side
// failures are logged and not echoed verbatim.
func writeStoreError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		appLog.Error("api "+op+" failed", err)
		writeError(w, status, op+" failed")
		return
	}
	writeError(w, status, err.Error())
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
