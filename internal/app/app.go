// Package app wires configuration, storage, services, and transports into a
// running process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/gridwise/layout-backend/internal/adapter/postgres"
	layoutrepo "github.com/gridwise/layout-backend/internal/adapter/postgres/layout"
	regionrepo "github.com/gridwise/layout-backend/internal/adapter/postgres/region"
	versionrepo "github.com/gridwise/layout-backend/internal/adapter/postgres/version"
	"github.com/gridwise/layout-backend/internal/auth"
	"github.com/gridwise/layout-backend/internal/config"
	"github.com/gridwise/layout-backend/internal/service/collab"
	"github.com/gridwise/layout-backend/internal/service/history"
	"github.com/gridwise/layout-backend/internal/transport/middleware"
	"github.com/gridwise/layout-backend/internal/transport/rest"
	"github.com/gridwise/layout-backend/internal/transport/ws"
)

// Run is the application entry point. It blocks until ctx is cancelled,
// then shuts the HTTP server down gracefully.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	layouts := layoutrepo.New(pool)
	versions := versionrepo.New(pool)
	regions := regionrepo.New(pool)
	tx := postgres.NewTxManager(pool)

	jwtMgr := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)

	hub := ws.NewHub(logger)
	collabSvc := collab.NewService(logger, regions, hub, clockwork.NewRealClock(), cfg.Collab)
	historySvc := history.NewService(logger, layouts, versions, regions, tx, hub, cfg.Retention)

	// Lock and presence reaper.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		if err := collabSvc.Run(sweepCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("collaboration sweeper stopped", slog.Any("error", err))
		}
	}()

	limiter := middleware.NewRateLimiter(time.Minute)
	defer limiter.Stop()

	mux := newRouter(logger, pool, hub, collabSvc, historySvc, jwtMgr, cfg)

	chain := middleware.Chain(
		middleware.RequestID,
		middleware.Recovery(logger),
		middleware.Logger(logger),
		middleware.CORS(cfg.CORS),
		limiter.Limit(cfg.Server.RateLimitPerMin),
		middleware.Auth(jwtMgr),
	)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: chain(mux),
		// Websocket upgrades hijack the connection, so these only bound
		// plain HTTP requests.
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newRouter assembles all HTTP routes. Every websocket command has a REST
// twin here so clients behind websocket-hostile proxies lose nothing but
// latency.
func newRouter(
	logger *slog.Logger,
	pool *pgxpool.Pool,
	hub *ws.Hub,
	collabSvc *collab.Service,
	historySvc *history.Service,
	jwtMgr *auth.JWTManager,
	cfg *config.Config,
) *http.ServeMux {
	mux := http.NewServeMux()

	healthHandler := rest.NewHealthHandler(pool, BuildVersion())
	mux.HandleFunc("GET /live", healthHandler.Live)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /health", healthHandler.Health)

	layoutHandler := rest.NewLayoutHandler(historySvc, logger)
	mux.HandleFunc("POST /api/layouts", layoutHandler.Create)
	mux.HandleFunc("GET /api/layouts", layoutHandler.List)
	mux.HandleFunc("GET /api/layouts/{layout_id}", layoutHandler.Get)
	mux.HandleFunc("POST /api/layouts/{layout_id}/versions", layoutHandler.SaveDraft)
	mux.HandleFunc("GET /api/layouts/{layout_id}/versions", layoutHandler.ListVersions)
	mux.HandleFunc("GET /api/layouts/{layout_id}/versions/{version_id}", layoutHandler.GetVersion)
	mux.HandleFunc("POST /api/layouts/{layout_id}/versions/{version_id}/status", layoutHandler.Promote)
	mux.HandleFunc("POST /api/layouts/{layout_id}/versions/{version_id}/revert", layoutHandler.Revert)
	mux.HandleFunc("GET /api/layouts/{layout_id}/versions/{version_a}/diff/{version_b}", layoutHandler.Diff)

	collabHandler := rest.NewCollabHandler(collabSvc, logger)
	mux.HandleFunc("POST /api/layouts/{layout_id}/regions/{region_id}/presence", collabHandler.Join)
	mux.HandleFunc("DELETE /api/layouts/{layout_id}/regions/{region_id}/presence", collabHandler.Leave)
	mux.HandleFunc("PUT /api/layouts/{layout_id}/regions/{region_id}/presence", collabHandler.UpdatePresence)
	mux.HandleFunc("POST /api/layouts/{layout_id}/regions/{region_id}/lock", collabHandler.AcquireLock)
	mux.HandleFunc("DELETE /api/layouts/{layout_id}/regions/{region_id}/lock", collabHandler.ReleaseLock)
	mux.HandleFunc("PUT /api/layouts/{layout_id}/regions/{region_id}", collabHandler.SubmitWrite)
	mux.HandleFunc("POST /api/layouts/{layout_id}/regions/{region_id}/conflict", collabHandler.ResolveConflict)
	mux.HandleFunc("POST /api/sessions/heartbeat", collabHandler.Heartbeat)
	mux.HandleFunc("DELETE /api/sessions", collabHandler.Disconnect)

	wsHandler := ws.NewHandler(logger, hub, collabSvc, jwtMgr, cfg.Channel, cfg.CORS)
	mux.Handle("GET /ws/layouts/{layout_id}", wsHandler)

	return mux
}
