package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moontv/work/cache"
	"moontv/work/client"
	"moontv/work/config"
	"moontv/work/filter"
	"moontv/work/handlers"
	"moontv/work/liveness"
	"moontv/work/logger"
	"moontv/work/metrics"
	"moontv/work/playback"
	"moontv/work/source"
	"moontv/work/watcher"
)

var Version = "v0.1.0"

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	writeExample := flag.String("write-example-config", "", "write an example config to the given path and exit")
	flag.Parse()

	if *writeExample != "" {
		if err := config.CreateExampleConfig(*writeExample); err != nil {
			logger.Error("{main} failed to write example config: %v", err)
			os.Exit(1)
		}
		return
	}

	cfg := config.LoadConfig(*configPath)
	logger.SetLogLevel(cfg.LogLevel)

	httpClient := client.New(cfg)

	catalogCache := cache.NewCatalogCache(source.New(cfg.SourceURL, httpClient), cfg.CacheTTL)
	catalogCache.Filter = filter.New(cfg.IncludePattern, cfg.ExcludePattern)
	renderCache := cache.NewRenderCache(cfg.RenderCacheTTL)
	catalogCache.OnReload = func(ok bool) {
		if ok {
			metrics.CatalogReloads.WithLabelValues("success").Inc()
			renderCache.InvalidateAll()
		} else {
			metrics.CatalogReloads.WithLabelValues("failure").Inc()
		}
	}

	checker, err := liveness.NewChecker(httpClient, cfg.WorkerThreads, cfg.ProbesPerSecond, cfg.LivenessTimeout, cfg.ObfuscateURLs)
	if err != nil {
		logger.Error("{main} failed to create liveness pool: %v", err)
		os.Exit(1)
	}
	defer checker.Release()

	app := handlers.NewApp(cfg, catalogCache, renderCache, checker, playback.NewManager(), httpClient)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The watcher warms the catalog on startup and keeps Active flags
	// current with periodic probe sweeps.
	sweeper := watcher.New(catalogCache, checker, cfg.SweepInterval)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: app.Router(),
	}

	logger.Info("{main} moontv %s listening on %s", Version, cfg.ListenAddr)
	logger.Info("{main}   - base url: %s", cfg.BaseURL)
	logger.Info("{main}   - page scheme: %s", cfg.PageScheme)
	logger.Info("{main}   - catalog source: %s", cfg.SourceURL)
	logger.Info("{main}   - cache ttl: %s", cfg.CacheTTL)
	logger.Info("{main}   - liveness workers: %d (%d probes/s)", cfg.WorkerThreads, cfg.ProbesPerSecond)
	logger.Info("{main}   - url obfuscation: %v", cfg.ObfuscateURLs)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("{main} server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("{main} shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("{main} shutdown incomplete: %v", err)
	}
}
