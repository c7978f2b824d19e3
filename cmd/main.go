// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
//
// Run "main hash-password <password>" to produce ADMIN_PASSWORD_HASH.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/auth"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/config"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/database"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/handler"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/ratelimit"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/realtime"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/repository"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/service"
)

func main() {
	if len(os.Args) == 3 && os.Args[1] == "hash-password" {
		hash, err := auth.HashPassword(os.Args[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	log.Info("connected to PostgreSQL")

	if cfg.RunMigrations {
		if err := database.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations applied")
	}

	// ── 2. Rate limiting and metrics ──────────────────────────────────────
	var (
		limiter  ratelimit.Limiter
		recorder metrics.Recorder
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis not reachable at startup, limiter will fail open", zap.Error(err))
		}
		limiter = ratelimit.NewRedisLimiter(rdb, log, "techfest:ratelimit")
		recorder = metrics.NewRedisRecorder(rdb, "techfest:metrics")
		log.Info("using redis for rate limiting and metrics")
	} else {
		limiter = ratelimit.NewMemoryLimiter(ratelimit.WithMaxKeys(cfg.RateLimitMaxKeys))
		recorder = metrics.NewMemoryRecorder()
		log.Info("using in-process rate limiting and metrics")
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	regSvc := service.NewRegistrationService(repository.NewRegistrationRepository(pool), log)
	contactSvc := service.NewContactService(repository.NewContactRepository(pool), log)

	// ── 4. Change notifications ───────────────────────────────────────────
	events := realtime.NewSSEServer()

	sinks := []realtime.Sink{realtime.NewSSESink(events)}
	if cfg.AMQPURL != "" {
		amqpSink, closeAMQP, err := realtime.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			log.Warn("amqp unavailable, changes will only be streamed", zap.Error(err))
		} else {
			defer closeAMQP()
			sinks = append(sinks, amqpSink)
		}
	}
	listener := realtime.NewListener(realtime.PoolAcquirer(pool), realtime.NewHub(log, sinks...), log)
	listenerDone := make(chan struct{})
	go func() {
		defer close(listenerDone)
		listener.Run(ctx)
	}()

	// ── 5. Build the router ───────────────────────────────────────────────
	routerCfg := handler.RouterConfig{
		Log:               log,
		Registrations:     regSvc,
		Contacts:          contactSvc,
		Limiter:           limiter,
		RegistrationLimit: ratelimit.Limit{Max: cfg.RateLimitMax, Window: cfg.RateLimitWindow},
		ContactLimit:      ratelimit.Limit{Max: cfg.ContactRateLimitMax, Window: cfg.ContactRateLimitWindow},
		Metrics:           recorder,
		Production:        cfg.IsProduction(),
		AllowedOrigins:    cfg.AllowedOrigins,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		Events:            events,
	}
	if cfg.AdminEnabled() {
		routerCfg.Admin = &handler.AdminConfig{
			JWTSecret:    []byte(cfg.AdminJWTSecret),
			PasswordHash: cfg.AdminPasswordHash,
			TokenTTL:     cfg.AdminTokenTTL,
			LoginRate:    rate.Every(2 * time.Second),
			LoginBurst:   5,
		}
	} else {
		log.Info("admin API disabled, ADMIN_JWT_SECRET and ADMIN_PASSWORD_HASH not set")
	}

	// ── 6. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Block until SIGINT or SIGTERM, or the server fails.
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Open event streams would otherwise hold Shutdown until the timeout.
	events.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	stop()
	<-listenerDone
	log.Info("server stopped")
	return nil
}
