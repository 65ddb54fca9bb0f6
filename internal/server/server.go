// Package server exposes comparison runs over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/valpere/transcompare/internal/pipeline"
	"github.com/valpere/transcompare/internal/project"
)

// maxBodyBytes bounds a project request body.
const maxBodyBytes = 1 << 20

// Runner executes a project.
type Runner interface {
	Execute(ctx context.Context, p project.Project) (*project.Outcome, error)
}

type Server struct {
	router    *chi.Mux
	runner    Runner
	providers []string
	log       zerolog.Logger
}

type response struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	SheetURL  string `json:"sheetUrl,omitempty"`
	OutputGID *int64 `json:"outputGid,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

// New builds the router. providers is the list reported by /api/providers.
func New(runner Runner, providers []string, log zerolog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		runner:    runner,
		providers: providers,
		log:       log,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/providers", s.handleProviders)
		r.Post("/project", s.handleProject)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	providers := s.providers
	if providers == nil {
		providers = []string{}
	}
	writeJSON(w, http.StatusOK, providers)
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	var p project.Project
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: "Invalid request body: " + err.Error()})
		return
	}

	s.log.Info().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("spreadsheet", p.SpreadsheetID).
		Int64("gid", p.GID).
		Str("test", p.TestName).
		Int("translators", len(p.Translators)).
		Msg("project received")

	out, err := s.runner.Execute(r.Context(), p)
	if err != nil {
		status := pipeline.HTTPStatus(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			msg = "An error occurred during project processing."
		}
		s.log.Error().Err(err).Str("test", p.TestName).Int("status", status).Msg("project failed")
		writeJSON(w, status, response{Status: "error", Message: msg})
		return
	}

	resp := response{
		Status:    "success",
		Message:   fmt.Sprintf("Project processed! Results in sheet: %q.", p.TestName),
		SheetURL:  out.SheetURL,
		OutputGID: &out.OutputGID,
	}
	if out.FormatErr != nil {
		resp.Warning = "Results written but the sheet could not be formatted: " + out.FormatErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
