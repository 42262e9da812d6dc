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

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/phillip/group-contributions-go/config"
	"github.com/phillip/group-contributions-go/controllers"
	"github.com/phillip/group-contributions-go/logger"
	"github.com/phillip/group-contributions-go/metrics"
	"github.com/phillip/group-contributions-go/routes"
	"github.com/phillip/group-contributions-go/store"
	"github.com/phillip/group-contributions-go/utils"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open store", "backend", cfg.StoreBackend, "error", err)
	}
	defer closeStore()

	deps := &controllers.Deps{
		Cfg:   cfg,
		Store: st,
		Log:   log,
	}
	if cfg.MetricsEnabled {
		deps.Metrics = metrics.New()
	}
	if cfg.CloudinaryEnabled() {
		publisher, err := utils.NewCloudinaryPublisher(cfg)
		if err != nil {
			log.Fatal("Failed to configure Cloudinary", "error", err)
		}
		deps.Publisher = publisher
	} else {
		log.Warn("Cloudinary not configured, report sharing disabled")
	}
	if cfg.EmailEnabled() {
		deps.Mailer = utils.NewZeptoMailer(cfg, log)
	}
	if !cfg.AuthEnabled() {
		log.Warn("JWT_SECRET not set, API authentication disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting server", "port", cfg.Port, "env", cfg.Env, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", "error", err)
		closeStore()
		log.Sync()
		os.Exit(1)
	}
	log.Info("Server stopped gracefully")
}

// openStore builds the configured backend and returns its cleanup func.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		log.Info("Using in-memory store")
		return store.NewMemoryStore(), func() {}, nil
	default:
		client, err := store.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		disconnect := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(dctx); err != nil {
				log.Warn("Mongo disconnect failed", "error", err)
			}
		}

		ms := store.NewMongoStore(client, cfg.DBName, cfg.UseTransactions, log)
		ictx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := ms.EnsureIndexes(ictx); err != nil {
			disconnect()
			return nil, nil, fmt.Errorf("ensure indexes: %w", err)
		}
		log.Info("Connected to MongoDB", "db", cfg.DBName, "transactions", cfg.UseTransactions)
		return ms, disconnect, nil
	}
}
