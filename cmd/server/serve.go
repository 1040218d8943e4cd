package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watchlist/pkg/auth"
	"watchlist/pkg/broker"
	"watchlist/pkg/cache"
	"watchlist/pkg/config"
	"watchlist/pkg/database"
	"watchlist/pkg/logger"
	"watchlist/pkg/metrics"
	"watchlist/pkg/repository"
	"watchlist/pkg/server"
	"watchlist/pkg/services"
	"watchlist/pkg/tmdb"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const serviceName = "watchlist"

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

type stores struct {
	users  repository.UserRepository
	movies repository.MovieRepository
	close  func()
}

func openStores(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*stores, error) {
	if cfg.StoreDriver == "memory" {
		log.Warn("[DB] using in-memory store, data is lost on exit")
		return &stores{
			users:  repository.NewMemoryUserRepository(),
			movies: repository.NewMemoryMovieRepository(),
			close:  func() {},
		}, nil
	}

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("[DB] connected and migrated")

	return &stores{
		users:  repository.NewUserRepository(db),
		movies: repository.NewMovieRepository(db),
		close:  func() { db.Close() },
	}, nil
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.close()

	var (
		events      services.EventPublisher
		resultCache tmdb.ResultCache
	)
	if cfg.RedisURL != "" {
		log.Info("[REDIS] connecting")
		rdb, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		events = broker.New(rdb.Client(), cfg.EventsChannel, serviceName, log)
		resultCache = cache.NewRedisMetadata(rdb, log)
		log.Info("[REDIS] connected")
	} else {
		resultCache = cache.NewLocalMetadata(10 * time.Minute)
	}

	m := metrics.New()

	client := tmdb.NewClient(tmdb.Options{
		APIKey:       cfg.TMDBAPIKey,
		BaseURL:      cfg.TMDBBaseURL,
		ImageBaseURL: cfg.TMDBImageBaseURL,
		Timeout:      cfg.TMDBTimeout,
	}, log)
	lookup := tmdb.NewCachedClient(client, resultCache, cfg.MetadataCacheTTL, log)

	authSvc := services.NewAuthService(services.AuthDeps{
		Users:    st.users,
		Hasher:   auth.NewHasher(cfg.BcryptCost),
		Tokens:   auth.NewTokenCodec(cfg.JWTSecret),
		TokenTTL: cfg.TokenTTL,
		Events:   events,
		Metrics:  m,
		Logger:   log,
	})
	movieSvc := services.NewMovieService(services.MovieDeps{
		Movies:  st.movies,
		Lookup:  lookup,
		Events:  events,
		Metrics: m,
		Logger:  log,
	})

	app := server.NewApp(server.Options{
		Name:    serviceName,
		Origins: cfg.Origins(),
		Logger:  log,
		Metrics: m,
	})
	server.Register(app, authSvc, movieSvc)

	errCh := make(chan error, 1)
	go func() {
		addr := "0.0.0.0:" + cfg.Port
		log.Infof("[WATCHLIST] server starting on %s", addr)
		errCh <- app.Listen(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Infof("[WATCHLIST] received %s, shutting down", sig)
	case <-ctx.Done():
	}
	return app.ShutdownWithTimeout(10 * time.Second)
}
