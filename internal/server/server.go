// package server exposes the catalog over a REST API with a WebSocket
// realtime channel. Routing is chi, responses use one JSON envelope, and
// every API route is bearer-token authenticated and scoped to the caller's
// organization.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/tunesmith-hq/tunesmith/internal/importer"
	"github.com/tunesmith-hq/tunesmith/internal/realtime"
	"github.com/tunesmith-hq/tunesmith/internal/reminders"
	"github.com/tunesmith-hq/tunesmith/internal/repositories"
	"github.com/tunesmith-hq/tunesmith/internal/services"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

// Default and maximum page sizes for list endpoints.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Server wires the repositories, import engine, reminder engine, and realtime
// hub behind the HTTP API.
type Server struct {
	config        shared.Config
	logger        *log.Logger
	jwtSecret     string
	collaborators *repositories.CollaboratorRepository
	albums        *repositories.AlbumRepository
	tracks        *repositories.TrackRepository
	sessions      *repositories.SessionRepository
	importEngine  *importer.ImportEngine
	reminders     *reminders.Engine
	hub           *realtime.Hub
}

// NewServer builds a Server over an open database handle.
func NewServer(db *sql.DB, cfg shared.Config, catalog services.Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	collaborators := repositories.NewCollaboratorRepository(db)
	albums := repositories.NewAlbumRepository(db)
	tracks := repositories.NewTrackRepository(db)
	sessions := repositories.NewSessionRepository(db)

	return &Server{
		config:        cfg,
		logger:        logger.With("component", "server"),
		jwtSecret:     cfg.Server.JWTSecret,
		collaborators: collaborators,
		albums:        albums,
		tracks:        tracks,
		sessions:      sessions,
		importEngine:  importer.NewImportEngine(catalog, collaborators, albums, tracks, cfg.Import.RateLimit),
		reminders:     reminders.NewEngine(tracks, collaborators),
		hub:           realtime.NewHub(logger),
	}
}

// Hub exposes the realtime hub so other components can publish events.
func (s *Server) Hub() *realtime.Hub {
	return s.hub
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondData(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)

		r.With(requirePermission(func(p PermissionSet) bool { return p.RunImports })).
			Post("/import-from-spotify", s.handleImport)

		r.Route("/collaborators", func(r chi.Router) {
			r.Get("/", s.handleListCollaborators)
			r.Get("/{id}", s.handleGetCollaborator)

			r.Group(func(r chi.Router) {
				r.Use(requirePermission(func(p PermissionSet) bool { return p.WriteCatalog }))
				r.Post("/", s.handleCreateCollaborator)
				r.Put("/{id}", s.handleUpdateCollaborator)
				r.Delete("/{id}", s.handleDeleteCollaborator)
			})

			r.With(requirePermission(func(p PermissionSet) bool { return p.ManageMembers })).
				Post("/merge", s.handleMergeCollaborators)
		})

		r.Route("/tracks", func(r chi.Router) {
			r.Get("/", s.handleListTracks)
			r.Get("/{id}", s.handleGetTrack)

			r.Group(func(r chi.Router) {
				r.Use(requirePermission(func(p PermissionSet) bool { return p.WriteCatalog }))
				r.Post("/", s.handleCreateTrack)
				r.Put("/{id}", s.handleUpdateTrack)
				r.Delete("/{id}", s.handleDeleteTrack)
				r.Put("/{id}/links", s.handleSetTrackLinks)
			})

			r.With(requirePermission(func(p PermissionSet) bool { return p.ManageSplits })).
				Put("/{id}/splits", s.handleSetTrackSplits)
		})

		r.Route("/albums", func(r chi.Router) {
			r.Get("/", s.handleListAlbums)
			r.Get("/{id}", s.handleGetAlbum)

			r.Group(func(r chi.Router) {
				r.Use(requirePermission(func(p PermissionSet) bool { return p.WriteCatalog }))
				r.Post("/", s.handleCreateAlbum)
				r.Put("/{id}", s.handleUpdateAlbum)
				r.Delete("/{id}", s.handleDeleteAlbum)
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Get("/{id}", s.handleGetSession)

			r.Group(func(r chi.Router) {
				r.Use(requirePermission(func(p PermissionSet) bool { return p.WriteCatalog }))
				r.Post("/", s.handleCreateSession)
				r.Put("/{id}", s.handleUpdateSession)
				r.Delete("/{id}", s.handleDeleteSession)
			})
		})

		r.Get("/reminders", s.handleListReminders)
	})

	r.Get("/ws", s.handleWebSocket)

	return r
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.config.Server.Addr(),
		Handler: s.Router(),
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// publish sends a realtime event for the organization, if anyone is listening.
func (s *Server) publish(organizationID, eventType, entityID string, payload any) {
	s.hub.Publish(realtime.Event{
		Type:           eventType,
		OrganizationID: organizationID,
		EntityID:       entityID,
		Payload:        payload,
	})
}
