package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/courtside/leagued/gameevents"
	"github.com/courtside/leagued/internal/config"
	"github.com/courtside/leagued/internal/logger"
	"github.com/courtside/leagued/internal/metrics"
	"github.com/courtside/leagued/league"
)

type Server struct {
	db       *sql.DB
	store    league.Store
	recorder *gameevents.Recorder
	metrics  *metrics.Collector
	logger   *slog.Logger
	router   *chi.Mux
}

// NewServer wires the production dependency set: Postgres-backed stores,
// a database-sequence sequencer and the chi router.
func NewServer(cfg *config.Config) (*Server, error) {
	log, err := logger.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := league.NewPostgresStore(db)
	s := newServer(store,
		gameevents.NewPostgresSequencer(db),
		gameevents.NewPostgresEventLog(db),
		log)
	s.db = db
	return s, nil
}

// newServer assembles a Server from explicit collaborators; tests pass
// the in-memory implementations here.
func newServer(store league.Store, seq gameevents.Sequencer, log gameevents.EventLog, slogger *slog.Logger) *Server {
	resolver := storeResolver{store: store}
	s := &Server{
		store:    store,
		recorder: gameevents.NewRecorder(resolver, resolver, seq, log, slogger),
		metrics:  metrics.New(),
		logger:   slogger,
	}
	s.setupRoutes()
	return s
}

// storeResolver adapts the management store to the engine's interfaces,
// translating storage errors into the engine's vocabulary.
type storeResolver struct {
	store league.Store
}

func (r storeResolver) LeagueForGame(ctx context.Context, gameID string) (string, error) {
	name, err := r.store.LeagueForGame(ctx, gameID)
	if errors.Is(err, league.ErrNotFound) {
		return "", gameevents.ErrGameNotFound
	}
	return name, err
}

func (r storeResolver) HasLeague(ctx context.Context, name string) (bool, error) {
	return r.store.HasLeague(ctx, name)
}

func (r storeResolver) RuleDocument(ctx context.Context, leagueName string) (string, error) {
	doc, err := r.store.RuleDocument(ctx, leagueName)
	if errors.Is(err, league.ErrNotFound) {
		return "", gameevents.ErrLeagueNotFound
	}
	return doc, err
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1/leagues", func(r chi.Router) {
		r.Post("/", s.handleCreateLeague)
		r.Get("/", s.handleListLeagues)

		r.Route("/{leagueName}", func(r chi.Router) {
			r.Get("/", s.handleLeagueSummary)
			r.Delete("/", s.handleDeleteLeague)
			r.Post("/finalize", s.handleFinalizeLeague)

			r.Put("/rules", s.handleSetRules)
			r.Get("/rules", s.handleGetRules)

			r.Post("/teams", s.handleCreateTeam)
			r.Delete("/teams/{teamName}", s.handleDeleteTeam)
		})
	})

	r.Route("/api/v1/scorekeepers", func(r chi.Router) {
		r.Post("/", s.handleCreateScorekeeper)
		r.Get("/", s.handleListScorekeepers)
		r.Post("/{name}/register", s.handleRegisterScorekeeper)
		r.Post("/{name}/unregister", s.handleUnregisterScorekeeperFromLeague)
		r.Delete("/{name}", s.handleUnregisterScorekeeper)
	})

	r.Route("/api/v1/games", func(r chi.Router) {
		r.Post("/", s.handleCreateGame)
		r.Get("/", s.handleListGames)

		r.Route("/{gameId}", func(r chi.Router) {
			r.Get("/", s.handleRetrieveGame)
			r.Delete("/", s.handleDeleteGame)
			r.Post("/finalize", s.handleFinalizeGame)
			r.Post("/unfinalize", s.handleUnfinalizeGame)

			r.Post("/scorekeepers", s.handleAssignScorekeeper)
			r.Delete("/scorekeepers/{name}", s.handleUnassignScorekeeper)

			r.Post("/events", s.handleCreateGameEvent)
			r.Get("/play-by-play", s.handlePlayByPlay)
		})
	})

	r.Get("/api/v1/reports/access", s.handleAccessReport)

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError classifies err into the wire taxonomy and writes it.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status, category := classifyError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "category", category, "error", err)
	}
	respondJSON(w, status, ErrorResponse{Category: category, Message: err.Error()})
}

func classifyError(err error) (int, string) {
	var noRule *gameevents.NoRuleError
	switch {
	case errors.Is(err, gameevents.ErrInvalidPayload):
		return http.StatusBadRequest, "client_input"
	case errors.Is(err, league.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.As(err, &noRule),
		errors.Is(err, gameevents.ErrGameNotFound),
		errors.Is(err, gameevents.ErrLeagueNotFound),
		errors.Is(err, league.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, league.ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, league.ErrLeagueFinalized):
		return http.StatusConflict, "league_finalized"
	case errors.Is(err, gameevents.ErrRuleDocumentCorrupt):
		return http.StatusInternalServerError, "rule_document_corrupt"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON in body", gameevents.ErrInvalidPayload)
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	server, err := NewServer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create server: %v\n", err)
		os.Exit(1)
	}
	defer server.db.Close()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		server.logger.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	server.logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		server.logger.Error("shutdown error", "error", err)
	}
}
