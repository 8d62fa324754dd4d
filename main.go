package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Billy-Davies-2/futdraw/internal/auth"
	"github.com/Billy-Davies-2/futdraw/internal/blobstore"
	"github.com/Billy-Davies-2/futdraw/internal/clickhouse"
	"github.com/Billy-Davies-2/futdraw/internal/config"
	"github.com/Billy-Davies-2/futdraw/internal/dal"
	"github.com/Billy-Davies-2/futdraw/internal/draw"
	grpcserver "github.com/Billy-Davies-2/futdraw/internal/grpc"
	"github.com/Billy-Davies-2/futdraw/internal/handlers"
	"github.com/Billy-Davies-2/futdraw/internal/logger"
	"github.com/Billy-Davies-2/futdraw/internal/mocks"
	"github.com/Billy-Davies-2/futdraw/internal/pubsub"
	"github.com/Billy-Davies-2/futdraw/internal/server"
)

// devOwner owns the demo roster seeded in development.
const devOwner = "dev"

// eventBus is the NATS-backed event transport shared across instances.
type eventBus interface {
	pubsub.Upstream
	Close()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger first
	logger.Init(cfg.LogLevel)
	logger.Info("Starting futdraw", "environment", cfg.Environment, "address", cfg.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.SeedDemo && cfg.IsDevelopment() {
		n, err := dal.SeedDemo(ctx, store, devOwner)
		if err != nil {
			return fmt.Errorf("seeding demo roster: %w", err)
		}
		if token, err := auth.IssueToken(cfg.TokenSecret, devOwner, "Dev", 24*time.Hour); err == nil {
			logger.Info("Demo roster ready", "owner", devOwner, "seeded", n,
				"login", "/auth/login?token="+token)
		}
	}

	bus, err := openEventBus(cfg)
	if err != nil {
		return err
	}
	defer bus.Close()
	ps := pubsub.NewWithUpstream(bus)

	analytics, err := openAnalytics(ctx, cfg)
	if err != nil {
		return err
	}
	defer analytics.Close()

	images, err := blobstore.Open(ctx, cfg.ImageStore)
	if err != nil {
		return fmt.Errorf("opening image store: %w", err)
	}
	logger.Info("Image store ready", "url", cfg.ImageStore)

	cache, err := handlers.NewImageCache(cfg.ImageCacheSize)
	if err != nil {
		return fmt.Errorf("creating image cache: %w", err)
	}
	go cache.Watch(ctx, ps)

	svc := draw.NewService(store,
		draw.WithPublisher(ps),
		draw.WithRecorder(analytics),
		draw.WithMinSelection(cfg.MinSelection),
		draw.WithImageStore(images, cfg.MaxImageBytes),
	)

	health := handlers.NewHealth(map[string]handlers.Pinger{
		"database":   store,
		"clickhouse": analytics,
		"nats": handlers.PingFunc(func(context.Context) error {
			if h, ok := bus.(interface{ Healthy() bool }); ok && !h.Healthy() {
				return errors.New("nats connection is down")
			}
			return nil
		}),
	})

	api := handlers.NewAPIHandlers(svc, ps, analytics, cache, cfg.MaxImageBytes)
	router := handlers.NewRouter(api, newAuthProvider(cfg), health)

	gs, hs := grpcserver.NewGRPCServer(grpcserver.NewServer(svc, cfg.TokenSecret))
	defer hs.Shutdown()

	srv, err := server.New(cfg.Addr, router, gs)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// openStore selects the roster store by db_driver.
func openStore(cfg *config.Config) (dal.RosterDAL, error) {
	switch strings.ToLower(cfg.DBDriver) {
	case "sqlite":
		store, err := dal.NewSQLiteDAL(cfg.SQLiteFile)
		if err != nil {
			return nil, fmt.Errorf("initializing SQLite: %w", err)
		}
		logger.Info("Connected to SQLite database", "file", cfg.SQLiteFile)
		return store, nil
	case "postgres":
		// mock://<file> stands Postgres in with SQLite on a developer machine.
		if file, ok := strings.CutPrefix(cfg.DatabaseURL, "mock://"); ok && cfg.IsDevelopment() {
			if file == "" {
				file = cfg.SQLiteFile
			}
			store, err := mocks.NewMockPostgresDAL(file)
			if err != nil {
				return nil, fmt.Errorf("initializing mock Postgres: %w", err)
			}
			return store, nil
		}
		store, err := dal.NewPostgresDAL(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("initializing Postgres: %w", err)
		}
		logger.Info("Connected to Postgres database")
		return store, nil
	default:
		logger.Info("Using in-memory data store")
		return dal.NewMemoryDAL(), nil
	}
}

// openEventBus uses embedded NATS in development and a real NATS JetStream
// deployment in production. nats_url mock:// skips NATS entirely.
func openEventBus(cfg *config.Config) (eventBus, error) {
	if strings.HasPrefix(cfg.NATSURL, "mock://") {
		return pubsub.NewMockNATSPubSub(cfg.NATSSubject), nil
	}
	if cfg.IsDevelopment() {
		logger.Info("Starting embedded NATS server for local development")
		embedded, err := pubsub.NewEmbeddedNATSPubSub(pubsub.EmbeddedNATSOptions{
			Port:       -1,
			Subject:    cfg.NATSSubject,
			StreamName: cfg.NATSStream,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing embedded NATS: %w", err)
		}
		logger.Info("Embedded NATS server ready", "url", embedded.GetServerURL())
		return embedded, nil
	}

	bus, err := pubsub.NewNATSPubSub(cfg.NATSURL, cfg.NATSSubject, cfg.NATSStream)
	if err != nil {
		return nil, fmt.Errorf("initializing NATS: %w", err)
	}
	logger.Info("Connected to NATS", "url", cfg.NATSURL)
	return bus, nil
}

func openAnalytics(ctx context.Context, cfg *config.Config) (clickhouse.Analytics, error) {
	if cfg.IsDevelopment() {
		logger.Info("Using mock ClickHouse for local development (no ClickHouse server required)")
		return mocks.NewMockAnalytics(), nil
	}
	client, err := clickhouse.NewClient(ctx, cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePassword)
	if err != nil {
		return nil, fmt.Errorf("initializing ClickHouse at %s: %w", cfg.ClickHouseAddr, err)
	}
	logger.Info("Connected to ClickHouse", "address", cfg.ClickHouseAddr, "database", cfg.ClickHouseDB)
	return client, nil
}

// newAuthProvider uses guest sign-in in development, Authentik OAuth2 in production.
func newAuthProvider(cfg *config.Config) auth.AuthProvider {
	if cfg.IsDevelopment() {
		logger.Info("Using guest authentication for local development (no Authentik server required)")
		return auth.NewGuestAuth(cfg.TokenSecret)
	}
	logger.Info("Using Authentik authentication", "url", cfg.AuthentikBaseURL)
	return auth.NewAuthentikAuth(&auth.AuthentikConfig{
		BaseURL:      cfg.AuthentikBaseURL,
		ClientID:     cfg.AuthentikClientID,
		ClientSecret: cfg.AuthentikClientSecret,
		RedirectURL:  cfg.AuthentikRedirectURL,
		Scopes:       []string{"openid", "profile", "email"},
		TokenSecret:  cfg.TokenSecret,
	})
}
