// Command feedcached runs the feed, signed-URL and profile caches with their sweeper,
// telemetry logger and admin HTTP surface.
//
// Configuration comes from the environment, or from a YAML file passed with -config.
// With storage configured the posts, profiles and notifications services run on the
// SQLite database and their reads are served by the admin router.
// SIGINT and SIGTERM stop the supervisor tree and shut the admin server down gracefully.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	feedcache "github.com/Borislavv/go-feed-cache"
	"github.com/Borislavv/go-feed-cache/config"
	"github.com/Borislavv/go-feed-cache/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	path := flag.String("config", "", "path to a YAML config file; the environment is used when empty")
	flag.Parse()

	cfg, err := load(*path)
	if err != nil {
		return err
	}
	logger := telemetry.NewLogger(cfg.Log, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := feedcache.OpenMarker(ctx, cfg.Marker)
	if err != nil {
		return fmt.Errorf("open marker store: %w", err)
	}
	if store == nil {
		logger.Warn("no marker store configured, feed cache relies on ttl and local invalidation")
	}

	caches := feedcache.New(cfg, store, logger)
	defer func() {
		if err := caches.Close(); err != nil {
			logger.Error("close caches", "err", err)
		}
	}()

	if cfg.Storage.Enabled() {
		db, err := feedcache.OpenStore(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("close storage", "err", err)
			}
		}()
		caches.NewServices(db, feedcache.NewSigner(cfg.Storage, logger))
		logger.Info("services ready", "database", cfg.Storage.DatabasePath, "signing", cfg.Storage.Signing())
	} else {
		logger.Warn("no storage configured, caches are only reachable through the admin invalidation routes")
	}

	logger.Info("feedcached started")
	if err := caches.Serve(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("supervisor: %w", err)
	}
	logger.Info("feedcached stopped")
	return nil
}

func load(path string) (*config.Cache, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	return config.LoadFromEnv()
}
