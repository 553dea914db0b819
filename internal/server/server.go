// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes conversion sessions over HTTP: a small JSON API
// driven by the embedded single-page UI.
package server

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/pdiddy/docmorph/internal/session"
)

//go:embed web/index.html
var webFS embed.FS

var indexTmpl = template.Must(template.ParseFS(webFS, "web/index.html"))

// SessionCookie names the cookie carrying the session ID.
const SessionCookie = "docmorph_session"

// Config configures the HTTP handler.
type Config struct {
	Sessions    *session.Manager
	Logger      zerolog.Logger
	CORSOrigins []string
	// Model is shown in the UI footer.
	Model   string
	Version string
}

// Server holds the handler dependencies.
type Server struct {
	sessions *session.Manager
	logger   zerolog.Logger
	model    string
	version  string
}

// New builds the router with request logging, panic recovery and CORS.
func New(cfg Config) http.Handler {
	s := &Server{
		sessions: cfg.Sessions,
		logger:   cfg.Logger,
		model:    cfg.Model,
		version:  cfg.Version,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(hlog.NewHandler(cfg.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chimiddleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: true,
		}).Handler)
	}

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/api/formats", s.handleFormats)

	r.Route("/api/session", func(r chi.Router) {
		r.Get("/", s.handleSnapshot)
		r.Post("/file", s.handleSelectFile)
		r.Delete("/file", s.handleClearFile)
		r.Put("/options", s.handleOptions)
		r.Post("/convert", s.handleConvert)
		r.Post("/reset", s.handleReset)
		r.Get("/result", s.handleResult)
		r.Get("/result/download", s.handleDownload)
	})

	return r
}

// session returns the caller's session, issuing a cookie for new ones.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if sess, ok := s.sessions.Get(c.Value); ok {
			return sess
		}
	}
	sess := s.sessions.GetOrCreate("")
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}
