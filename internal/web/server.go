// Package web serves the devboard proxy API in front of Azure DevOps.
package web

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/metalagman/devboard/internal/db"
	"github.com/metalagman/devboard/internal/logging"
	"github.com/metalagman/devboard/internal/session"
	"github.com/metalagman/devboard/internal/tracker"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// AuthHeader carries the session token.
const AuthHeader = "X-Auth-Token"

// Remote is a remote store that can also check credentials at login.
type Remote interface {
	tracker.Remote
	ValidateCredentials(ctx context.Context) error
}

// RemoteFactory builds a remote scoped to one login.
type RemoteFactory func(organization, project, pat string) (Remote, error)

// Options configures a Server.
type Options struct {
	Sessions       *session.Store
	Events         *db.Store
	NewRemote      RemoteFactory
	AllowedOrigins []string
}

// Server provides the API handlers and shared state.
type Server struct {
	sessions  *session.Store
	events    *db.Store
	newRemote RemoteFactory
	origins   []string
	locks     *tracker.Locks
}

// NewServer creates a new API server.
func NewServer(opts Options) (*Server, error) {
	if opts.Sessions == nil {
		return nil, errors.New("web: session store is required")
	}
	if opts.NewRemote == nil {
		return nil, errors.New("web: remote factory is required")
	}
	return &Server{
		sessions:  opts.Sessions,
		events:    opts.Events,
		newRemote: opts.NewRemote,
		origins:   slices.Clone(opts.AllowedOrigins),
		locks:     tracker.NewLocks(),
	}, nil
}

// Routes returns the router for the API.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("POST /api/score", s.handleScore)

	mux.HandleFunc("GET /api/workitems", s.authed(s.handleListItems))
	mux.HandleFunc("POST /api/workitems", s.authed(s.handleCreateItem))
	mux.HandleFunc("PATCH /api/workitems/{id}", s.authed(s.handleUpdateItem))
	mux.HandleFunc("GET /api/areapaths", s.authed(s.handleAreaPaths))
	mux.HandleFunc("GET /api/workitems/{id}/relations", s.authed(s.handleRelations))
	mux.HandleFunc("PUT /api/workitems/{id}/parent", s.authed(s.handleSetParent))
	mux.HandleFunc("POST /api/workitems/{id}/children", s.authed(s.handleAddChild))
	mux.HandleFunc("DELETE /api/workitems/{id}/children/{childId}", s.authed(s.handleRemoveChild))
	mux.HandleFunc("GET /api/workitems/{id}/events", s.authed(s.handleItemEvents))

	return logRequests(s.cors().Handler(mux))
}

// scope is what an authenticated request works against.
type scope struct {
	session session.Session
	tracker *tracker.Service
}

type scopedHandler func(w http.ResponseWriter, r *http.Request, sc scope)

func (s *Server) authed(next scopedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get(AuthHeader))
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "authentication token required"})
			return
		}
		sess, err := s.sessions.Lookup(r.Context(), token)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				err = internalError(err)
			}
			writeError(w, err)
			return
		}
		remote, err := s.newRemote(sess.Organization, sess.Project, sess.PAT)
		if err != nil {
			writeError(w, internalError(err))
			return
		}
		var recorder tracker.Recorder
		if s.events != nil {
			recorder = s.events
		}
		next(w, r, scope{
			session: sess,
			tracker: tracker.NewService(remote, s.locks, recorder),
		})
	}
}

func (s *Server) cors() *cors.Cors {
	opts := cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
		},
		AllowedHeaders: []string{"Content-Type", AuthHeader},
		MaxAge:         600,
	}
	if logging.DebugEnabled() {
		logger := log.With().Str("component", "cors").Logger()
		opts.Debug = true
		opts.Logger = &logger
	}
	return cors.New(opts)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
