// Package runs exposes optimisation runs over HTTP.
package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/vpp/app"
	"github.com/kilianp07/vpp/core/model"
	"github.com/kilianp07/vpp/core/report"
	"github.com/kilianp07/vpp/core/runlog"
	"github.com/kilianp07/vpp/core/scenario"
	"github.com/kilianp07/vpp/infra/logger"
)

// Optimizer runs one optimisation.
type Optimizer interface {
	Optimize(ctx context.Context, req app.RunRequest) (*report.Schedule, error)
}

// Auth selects how /api requests are authenticated. A request passes
// when it carries the static Token or an HS256 JWT signed with JWTSecret.
// With both empty the API is open.
type Auth struct {
	Token     string
	JWTSecret string
}

func (a Auth) open() bool { return a.Token == "" && a.JWTSecret == "" }

// Handler serves the runs API.
type Handler struct {
	opt   Optimizer
	store runlog.Store
	auth  Auth
	log   logger.Logger

	Mux *chi.Mux
}

// NewHandler registers the routes. Requests to /api must carry
// "Authorization: Bearer <credential>" unless auth is empty. metrics, when
// not nil, is served on /metrics without authentication.
func NewHandler(opt Optimizer, store runlog.Store, auth Auth, metrics http.Handler) *Handler {
	h := &Handler{opt: opt, store: store, auth: auth, log: logger.New("api"), Mux: chi.NewRouter()}
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)
	h.Mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if metrics != nil {
		h.Mux.Handle("/metrics", metrics)
	}
	h.Mux.Route("/api/runs", func(r chi.Router) {
		r.Use(h.authenticate)
		r.Post("/", h.createRun)
		r.Get("/", h.listRuns)
		r.Get("/{id}", h.getRun)
	})
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) { h.Mux.ServeHTTP(w, r) }

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		h.log.Debugw("request handled", map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rw.status,
			"duration": time.Since(start).String(),
		})
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.log.Errorf("panic on %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())
				writeError(w, http.StatusInternalServerError, fmt.Errorf("internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.auth.open() {
			next.ServeHTTP(w, r)
			return
		}
		cred, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || cred == "" {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("missing bearer token"))
			return
		}
		if h.auth.Token != "" && cred == h.auth.Token {
			next.ServeHTTP(w, r)
			return
		}
		if h.auth.JWTSecret != "" {
			claims, err := ParseToken(cred, h.auth.JWTSecret)
			if err == nil {
				ctx := context.WithValue(r.Context(), subjectKey{}, claims.Subject)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			h.log.Debugw("token rejected", map[string]any{"error": err.Error()})
		}
		writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid token"))
	})
}

func (h *Handler) createRun(w http.ResponseWriter, r *http.Request) {
	var req app.RunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
			return
		}
	}
	if sub := Subject(r.Context()); sub != "" {
		h.log.Infof("run requested by %s", sub)
	}
	sched, err := h.opt.Optimize(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, sched)
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	recs, err := h.store.Query(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if recs == nil {
		recs = []runlog.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func parseQuery(r *http.Request) (runlog.Query, error) {
	v := r.URL.Query()
	q := runlog.Query{Scenario: v.Get("scenario"), Status: v.Get("status")}
	var err error
	if s := v.Get("start"); s != "" {
		if q.Start, err = time.Parse(time.RFC3339, s); err != nil {
			return q, fmt.Errorf("start: %w", err)
		}
	}
	if s := v.Get("end"); s != "" {
		if q.End, err = time.Parse(time.RFC3339, s); err != nil {
			return q, fmt.Errorf("end: %w", err)
		}
	}
	if s := v.Get("feasible"); s != "" {
		if q.FeasibleOnly, err = strconv.ParseBool(s); err != nil {
			return q, fmt.Errorf("feasible: %w", err)
		}
	}
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil || q.Limit < 0 {
			return q, fmt.Errorf("limit must be a non-negative integer")
		}
	}
	return q, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrConfig):
		return http.StatusBadRequest
	case errors.Is(err, runlog.ErrNotFound), errors.Is(err, scenario.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
