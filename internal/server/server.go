// Package server exposes loaded forms over HTTP: rendered surfaces,
// url-encoded submits, JSON item listings and websocket live sessions.
package server

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-crudform/pkg/orchestrator"
	"github.com/goliatone/go-crudform/pkg/renderers/vanilla"
)

const defaultAutoSearchDelay = 300 * time.Millisecond

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request and session failures.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRenderer selects the renderer used for HTML surfaces.
func WithRenderer(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.renderer = name
		}
	}
}

// WithAutoSearchDelay sets the debounce advertised on search surfaces and
// used by live search sessions. Zero disables auto search.
func WithAutoSearchDelay(delay time.Duration) Option {
	return func(s *Server) {
		if delay >= 0 {
			s.autoSearch = delay
		}
	}
}

// WithOriginPatterns lists extra host patterns allowed to open live
// sessions. Without it only same-origin websocket requests are accepted.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) {
		s.originPatterns = append(s.originPatterns, patterns...)
	}
}

// Server serves the forms known to an orchestrator.
type Server struct {
	orch           *orchestrator.Orchestrator
	logger         *log.Logger
	renderer       string
	autoSearch     time.Duration
	originPatterns []string
	sessions       *sessions
}

// New builds a server over orch.
func New(orch *orchestrator.Orchestrator, opts ...Option) *Server {
	s := &Server{
		orch:       orch,
		logger:     log.Default(),
		renderer:   vanilla.Name,
		autoSearch: defaultAutoSearchDelay,
		sessions:   newSessions(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the server routes on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(vanilla.AssetsFS()))))

	r.Route("/forms", func(r chi.Router) {
		r.Get("/", s.handleListForms)
		r.Route("/{form}", func(r chi.Router) {
			r.Get("/", s.handleRender)
			r.Post("/", s.handleSubmit)
			r.Get("/items", s.handleItems)
			r.Get("/live", s.handleLive)
		})
	})
	r.Get("/sessions", s.handleSessions)
}
