package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rest-polls/internal/app"
	"rest-polls/internal/auth"
	"rest-polls/internal/config"
	"rest-polls/internal/infra/memory"
	"rest-polls/internal/infra/postgres"
	infraredis "rest-polls/internal/infra/redis"
	transport "rest-polls/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the poll server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg)

	tokens, err := auth.NewManager(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	if err != nil {
		return fmt.Errorf("auth.secret or AUTH_SECRET must be set: %w", err)
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	// Postgres is the system of record when configured; otherwise everything lives in memory.
	var (
		store  app.Store
		loader app.AnswerKeyLoader
	)
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		db := postgres.Open(cfg.Postgres.URL)
		defer db.Close()
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewStore(db)
		loader = postgres.NewAnswerKeyLoader(pool)
	} else {
		logrus.Warn("postgres url not configured, using in-memory store")
		mem := memory.NewStore()
		store = mem
		loader = app.NewStoreKeyLoader(mem)
	}

	keyTTL := config.TTLDuration(cfg.AnswerKey.TTL, 10*time.Minute)
	var (
		keys   app.AnswerKeyRepository
		locker app.SubmissionLocker
	)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		keys = infraredis.NewAnswerKeyRepository(redisClient, loader, keyTTL)
		locker = infraredis.NewLocker(redisClient, config.TTLDuration(cfg.Redis.TTL, 30*time.Second))
	} else {
		keys = memory.NewAnswerKeyRepository(loader, keyTTL)
		locker = memory.NewLocker()
	}

	service := app.NewPollService(store, keys, locker, auth.Gate{})
	handler := transport.NewHandler(service, tokens)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logrus.WithField("port", finalPort).Info("starting poll service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		logrus.WithError(err).Error("failed to start server")
		return fmt.Errorf("listen on :%s: %w", finalPort, err)
	case <-stop:
		logrus.Info("shutting down server...")
	case <-ctx.Done():
		logrus.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
