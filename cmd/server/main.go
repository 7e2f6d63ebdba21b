package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/nikhil/splitledger/internal/cache"
	"github.com/nikhil/splitledger/internal/config"
	neo4jstore "github.com/nikhil/splitledger/internal/storage/neo4j"
	"github.com/nikhil/splitledger/internal/storage/sqlite"

	"github.com/nikhil/splitledger/internal/server"
	"github.com/nikhil/splitledger/internal/service"
	"github.com/nikhil/splitledger/internal/storage"
	"github.com/nikhil/splitledger/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Colored: cfg.Logging.Colored,
	})

	banner := figure.NewFigure("SplitLedger", "", true)
	banner.Print()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("storage initialized", "database", cfg.Storage.SQLitePath)

	// In shadow mode reads still come from SQLite; the graph store only
	// receives the comparison traffic.
	var reads storage.ReadStore = store
	var shadow *storage.Shadow
	if cfg.Storage.Mode == config.ModeShadow {
		graph, err := neo4jstore.New(ctx, neo4jstore.Options{
			URI:            cfg.Graph.URI,
			Database:       cfg.Graph.Database,
			Username:       cfg.Graph.Username,
			Password:       cfg.Graph.Password,
			MaxConnections: cfg.Graph.MaxConnections,
		})
		if err != nil {
			return err
		}
		defer graph.Close(context.Background())

		shadow = storage.NewShadow(store, graph, logger)
		reads = shadow
		logger.Info("shadow reads enabled", "secondary", cfg.Graph.URI)
	}

	client, err := cacheClient(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}

	cacheOpts := []cache.Option{cache.WithNamespace(cfg.Cache.Namespace)}
	ttls, err := cfg.Cache.CacheTTLs()
	if err != nil {
		return err
	}
	for scope, ttl := range ttls {
		cacheOpts = append(cacheOpts, cache.WithTTL(cache.Scope(scope), ttl))
	}
	readCache := cache.New(client, logger, cacheOpts...)

	api := server.NewAPIHandlers(logger,
		service.NewSocialService(store, reads, readCache, logger),
		service.NewExpenseService(store, reads, readCache, logger),
		service.NewLedgerService(store, readCache, logger),
	)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:         store,
		API:            api,
		AllowedOrigins: splitCSV(cfg.HTTP.AllowedOriginsCSV),
	})

	// h2c allows HTTP/2 without TLS for clients behind the ingress.
	handler := h2c.NewHandler(router, &http2.Server{})
	srv := server.New(logger, cfg.HTTP, handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if shadow != nil {
		shadow.Wait()
	}
	return nil
}

// cacheClient connects to Redis when configured, otherwise falls back to the
// in-process cache.
func cacheClient(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (cache.Client, error) {
	if cfg.Addr == "" {
		logger.Info("no redis configured, using in-process cache")
		return cache.NewMemoryClient(), nil
	}

	client := cache.NewRedisClient(cfg.Addr, cfg.Password, cfg.DB)
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}
	logger.Info("redis cache connected", "addr", cfg.Addr)
	return client, nil
}

func splitCSV(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
