package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"quizforge-service/internal/app"
	"quizforge-service/internal/auth"
	"quizforge-service/internal/config"
	"quizforge-service/internal/infra/memory"
	mongostore "quizforge-service/internal/infra/mongo"
	"quizforge-service/internal/infra/postgres"
	rediscache "quizforge-service/internal/infra/redis"
	"quizforge-service/internal/templates"
	transport "quizforge-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// attemptSweepInterval is how often the attempt registry drops stale entries.
const attemptSweepInterval = time.Minute

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel == "" {
		if err := setupLogging(cfg.Log.Level); err != nil {
			return err
		}
	}
	if cfg.Auth.Secret == "" {
		return errors.New("auth secret not configured")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	attemptTTL := config.TTLDuration(cfg.Attempt.TTL, config.TTLDuration(cfg.Redis.TTL, time.Hour))

	var cached app.QuizStore
	var attempts app.AttemptRegistry
	var sweep func(context.Context) error
	if redisClient != nil {
		cached = rediscache.NewCachedQuizStore(redisClient, store, quizTTL)
		registry := rediscache.NewAttemptStore(redisClient, attemptTTL)
		attempts = registry
		sweep = func(ctx context.Context) error { return registry.Run(ctx, attemptSweepInterval) }
	} else {
		cached = memory.NewCachedQuizStore(store, quizTTL)
		registry := memory.NewAttemptStore(attemptTTL)
		attempts = registry
		sweep = func(ctx context.Context) error { return registry.Run(ctx, attemptSweepInterval) }
	}

	catalog, err := templates.Default()
	if err != nil {
		return err
	}
	service := app.NewQuizService(cached, attempts, app.WithPublicURL(cfg.Server.PublicURL))
	authoring := app.NewAuthoring(cached, catalog)
	verifier := auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewServer(service, authoring, catalog).Routes(verifier, nil),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sweep(gctx) })
	g.Go(func() error {
		log.WithFields(log.Fields{"port": finalPort, "store": cfg.Store.Driver}).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStore connects the configured document store and returns its cleanup func.
func openStore(ctx context.Context, cfg config.Config) (app.QuizStore, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory quiz store; data is lost on restart")
		return memory.NewQuizStore(), func() {}, nil

	case config.DriverPostgres:
		if cfg.Postgres.URL == "" {
			return nil, nil, errors.New("postgres url not configured")
		}
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return postgres.NewQuizStore(pool), pool.Close, nil

	case config.DriverMongo:
		if cfg.Mongo.URI == "" {
			return nil, nil, errors.New("mongo uri not configured")
		}
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		store := mongostore.NewQuizStore(client.Database(cfg.Mongo.Database))
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return store, func() { _ = client.Disconnect(context.Background()) }, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
