package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/userdir/cmd/userdir/cli"
	"github.com/odyssey-erp/userdir/internal/app"
	"github.com/odyssey-erp/userdir/internal/directory"
	directoryhttp "github.com/odyssey-erp/userdir/internal/directory/http"
	"github.com/odyssey-erp/userdir/internal/directory/remote"
	"github.com/odyssey-erp/userdir/internal/observability"
	"github.com/odyssey-erp/userdir/internal/platform/cache"
	"github.com/odyssey-erp/userdir/internal/view"
	"github.com/odyssey-erp/userdir/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobs(ctx, cfg, logger, os.Args[2:]))
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, directory cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	var directoryCache *directory.Cache
	if redisClient != nil {
		directoryCache = directory.NewCache(redisClient, cfg.DirectoryCacheTTL).WithLogger(logger)
	}
	source := remote.NewClient(cfg.DirectorySourceURL, &http.Client{Timeout: cfg.DirectoryFetchTimeout})
	loader := directory.NewLoader(source, directoryCache, logger, metrics)
	defer loader.Close()

	if err := directoryCache.ListenForInvalidation(ctx, func(version int64) {
		logger.Info("directory cache bumped", slog.Int64("version", version))
		if err := loader.Reload(ctx); err != nil && !errors.Is(err, directory.ErrLoaderClosed) {
			logger.Warn("directory reload", slog.Any("error", err))
		}
	}); err != nil {
		logger.Warn("subscribe directory invalidation", slog.Any("error", err))
	}
	if err := loader.Mount(ctx); err != nil {
		logger.Error("mount directory", slog.Any("error", err))
		os.Exit(1)
	}

	directoryService := directory.NewService(loader, cfg.DirectoryPageSize)
	directoryHandler := directoryhttp.NewHandler(logger, directoryService, templates)

	var inspector *asynq.Inspector
	if redisClient != nil {
		inspector = asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
	}
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		DirectoryHandler: directoryHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func runJobs(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		logger.Error("init jobs cli", slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
	}()
	return jobsCLI.Command(ctx, cli.JobsOptions{Args: args, Stdout: os.Stdout, Stderr: os.Stderr})
}
