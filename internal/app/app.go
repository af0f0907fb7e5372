package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/pawsit-server/internal/auth"
	"github.com/vovakirdan/pawsit-server/internal/config"
	"github.com/vovakirdan/pawsit-server/internal/core"
	"github.com/vovakirdan/pawsit-server/internal/presence"
	"github.com/vovakirdan/pawsit-server/internal/service/requests"
	"github.com/vovakirdan/pawsit-server/internal/store"
	"github.com/vovakirdan/pawsit-server/internal/store/postgres"
	"github.com/vovakirdan/pawsit-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/pawsit-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// OpenStore opens the configured database and applies migrations.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		st, err = postgres.New(cfg.DatabaseDSN)
	case config.DriverSQLite, "":
		st, err = sqlite.New(cfg.DatabasePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("driver", cfg.DatabaseDriver).Msg("database initialized")

	issuer := auth.NewTokenIssuer(auth.JWTConfig{
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		Issuer:        cfg.JWTIssuer,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	authService := auth.NewService(st, issuer)

	registry := presence.NewRegistry()
	router := core.NewRouter(st, st, issuer, registry, logger, core.WithStoreTimeout(cfg.StoreTimeout))

	server := transporthttp.NewServer(transporthttp.Deps{
		Auth:     authService,
		Router:   router,
		Store:    st,
		Requests: requests.New(st, st),
	}, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
