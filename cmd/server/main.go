package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	accounthandler "kindred/internal/accounts/handler"
	"kindred/internal/audit"
	audithandler "kindred/internal/audit/handler"
	"kindred/internal/directory"
	linkhandler "kindred/internal/links/handler"
	linkservice "kindred/internal/links/service"
	linkstore "kindred/internal/links/store"
	linkmemory "kindred/internal/links/store/memory"
	linkpostgres "kindred/internal/links/store/postgres"
	"kindred/internal/notifications"
	"kindred/internal/notifications/adapters"
	notificationhandler "kindred/internal/notifications/handler"
	"kindred/internal/platform/config"
	"kindred/internal/platform/httpserver"
	"kindred/internal/platform/logger"
	"kindred/internal/platform/metrics"
	platformpostgres "kindred/internal/platform/postgres"
	platformredis "kindred/internal/platform/redis"
	"kindred/internal/projection"
	projectionhandler "kindred/internal/projection/handler"
	"kindred/internal/token"
	transport "kindred/internal/transport/http"
)

func main() {
	log := logger.New()
	cfg := config.FromEnv()
	m := metrics.New(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		linkStore         linkstore.Store
		auditStore        audit.Store
		notificationStore notifications.Store
		healthCheck       func() error
	)
	if cfg.DatabaseURL != "" {
		db, err := platformpostgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := platformpostgres.Migrate(ctx, db); err != nil {
			log.Error("failed to migrate schema", "error", err)
			os.Exit(1)
		}
		linkStore = linkpostgres.New(db)
		auditStore = audit.NewPostgresStore(db)
		notificationStore = notifications.NewPostgresStore(db)
		healthCheck = db.Ping
	} else {
		log.Warn("KINDRED_DATABASE_URL not set, using in-memory stores")
		linkStore = linkmemory.New()
		auditStore = audit.NewInMemoryStore()
		notificationStore = notifications.NewInMemoryStore()
	}

	var push notifications.Push
	if cfg.RedisURL != "" {
		redisClient, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		push = notifications.NewRedisPush(redisClient)
	}

	var producer *kgo.Client
	if len(cfg.KafkaBrokers) > 0 {
		var err error
		producer, err = kgo.NewClient(
			kgo.SeedBrokers(cfg.KafkaBrokers...),
			kgo.DefaultProduceTopic(cfg.KafkaTopic),
		)
		if err != nil {
			log.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
	}

	// The accounts directory is owned by the identity service; this fake
	// backs local and single-node deployments until that integration lands.
	users := directory.NewInMemory()

	auditPublisher := audit.NewPublisher(auditStore, producer, cfg.KafkaTopic, log)
	roster := adapters.NewLinksRoster(linkStore)
	notificationService := notifications.NewService(notificationStore, push, roster, m, log)
	linkService := linkservice.New(linkStore, users, notificationService, auditPublisher, m, log, cfg.CodeTTL)
	projectionService := projection.New(linkStore, users, notificationService, auditPublisher, m, log)
	validator := token.NewJWTService(cfg.JWTSigningKey)

	router := transport.NewRouter(transport.Dependencies{
		Logger:        log,
		Metrics:       m,
		Validator:     validator,
		Accounts:      accounthandler.New(log),
		Links:         linkhandler.New(linkService, log),
		Projection:    projectionhandler.New(projectionService, log),
		Audit:         audithandler.New(auditPublisher, linkService, log),
		Notifications: notificationhandler.New(notificationService, log),
		Health:        healthCheck,
	})

	server := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				swept, err := linkService.SweepExpired(ctx)
				if err != nil {
					log.Error("expiry sweep failed", "error", err)
					continue
				}
				if swept > 0 {
					log.Info("expired pending links", "count", swept)
				}
			}
		}
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
