// Package api exposes the workspace over a small JSON HTTP API
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/YoshitsuguKoike/moltfocus/internal/app"
	"github.com/YoshitsuguKoike/moltfocus/internal/application/dto"
	"github.com/YoshitsuguKoike/moltfocus/internal/application/usecase/finalize"
	"github.com/YoshitsuguKoike/moltfocus/internal/infrastructure/di"
)

// RequestIDHeader carries the per-request id, generated when absent
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// Server handles HTTP requests for one workspace
type Server struct {
	c    *di.Container
	addr string
	log  app.Logger
}

// New creates a new API server
func New(c *di.Container, addr string, log app.Logger) *Server {
	if log == nil {
		log = app.GetLogger()
	}
	return &Server{c: c, addr: addr, log: log}
}

// Handler returns the routed handler with request ids attached
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.health)
	mux.HandleFunc("GET /api/state", s.state)
	mux.HandleFunc("GET /api/checkin_draft", s.getDraft)
	mux.HandleFunc("POST /api/checkin_draft", s.saveDraft)
	mux.HandleFunc("POST /api/finalize", s.finalize)
	mux.HandleFunc("GET /api/plan", s.getPlan)
	mux.HandleFunc("POST /api/plan", s.savePlan)
	mux.HandleFunc("GET /api/focus", s.getFocus)
	mux.HandleFunc("POST /api/focus", s.saveFocus)

	return s.withRequestID(mux)
}

// Run listens on the configured address until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Info("listening on %s", ln.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) withRequestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		s.log.Debug("http %s %s id=%s", r.Method, r.URL.Path, id)
		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	view, err := s.c.Status(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) getDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.c.GetCheckinUseCase().Today(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewDraftView(d))
}

func (s *Server) saveDraft(w http.ResponseWriter, r *http.Request) {
	var req dto.CheckinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := s.c.GetCheckinUseCase().Save(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "day": d.Day})
}

func (s *Server) finalize(w http.ResponseWriter, r *http.Request) {
	res, err := s.c.Finalize(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// planRequest accepts JSON {"plan": ...}; form posts use the plan_md field
type planRequest struct {
	Plan string `json:"plan"`
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.c.GetPlanRepository().Current(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(plan))
}

func (s *Server) savePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		req.Plan = r.FormValue("plan_md")
	} else if !decodeJSON(w, r, &req) {
		return
	}

	plans := s.c.GetPlanRepository()
	if err := plans.Save(r.Context(), req.Plan); err != nil {
		s.fail(w, r, err)
		return
	}
	changed, err := plans.Changed(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "changed": changed})
}

func (s *Server) getFocus(w http.ResponseWriter, r *http.Request) {
	note, err := s.c.GetFocusRepository().Load(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) saveFocus(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if err := s.c.GetFocusRepository().Save(r.Context(), payload, s.c.Clock().Now()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// fail maps an operation error to a 500 with its kind
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := "internal"
	var se *finalize.StorageError
	switch {
	case finalize.IsIntegrity(err):
		kind = "integrity"
	case errors.As(err, &se):
		kind = "storage"
	}
	s.log.Error("%s %s (id=%s): %v", r.Method, r.URL.Path, w.Header().Get(RequestIDHeader), err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"ok":    false,
		"error": err.Error(),
		"kind":  kind,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}
