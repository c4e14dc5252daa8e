package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/rishabhv97/kiwisqft/internal/api"
	"github.com/rishabhv97/kiwisqft/internal/cache"
	"github.com/rishabhv97/kiwisqft/internal/config"
	"github.com/rishabhv97/kiwisqft/internal/db"
	"github.com/rishabhv97/kiwisqft/internal/describe"
	"github.com/rishabhv97/kiwisqft/internal/email"
	"github.com/rishabhv97/kiwisqft/internal/logging"
	"github.com/rishabhv97/kiwisqft/internal/repository"
	"github.com/rishabhv97/kiwisqft/internal/search"
	"github.com/rishabhv97/kiwisqft/internal/services"
	"github.com/rishabhv97/kiwisqft/internal/storage"
	"github.com/rishabhv97/kiwisqft/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	switch cfg.RunMode {
	case "api", "bg", "all":
	default:
		slog.Error("invalid run mode", "mode", cfg.RunMode)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			slog.Warn("error disconnecting from MongoDB", "error", err)
		}
	}()
	if err := db.EnsureIndexes(ctx, mongoDb); err != nil {
		fatal("failed to ensure indexes", err)
	}

	// Redis backs the search cache and the task queue
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		fatal("failed to connect to Redis", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			slog.Warn("error disconnecting from Redis", "error", err)
		}
	}()

	images, err := storage.NewS3Storage(cfg)
	if err != nil {
		fatal("failed to initialise S3 storage", err)
	}

	var capture email.Sender
	if cfg.EmailRedisCapture {
		slog.Info("capturing outgoing e-mail in Redis")
		capture = email.NewRedisSender(redisClient)
	}
	emailSender, err := email.NewSender(cfg, capture)
	if err != nil {
		fatal("failed to initialise e-mail sender", err)
	}

	listings := repository.NewListingRepository(mongoDb)
	leads := repository.NewLeadRepository(mongoDb)
	profiles := repository.NewProfileRepository(mongoDb)
	searchCache := cache.NewSearchCache(redisClient, cfg.SearchCacheTTL)

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()

	var (
		wg         sync.WaitGroup
		apiSrv     *http.Server
		taskServer *asynq.Server
	)

	slog.Info("starting application", "mode", cfg.RunMode)

	if cfg.RunMode == "api" || cfg.RunMode == "all" {
		sessions := search.NewSessions(cfg.SearchSessionIdle)
		sessions.StartJanitor(ctx, time.Minute)

		listingService := services.NewListingService(cfg, listings, images, describe.NewGeminiDescriber(cfg), searchCache, sessions, taskClient)
		leadService := services.NewLeadService(listings, leads, taskClient)

		apiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: api.SetupRouter(ctx, cfg, listingService, leadService),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Info("API listening", "port", cfg.ApiPort)
			if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fatal("API server error", err)
			}
			slog.Info("API server stopped")
		}()
	}

	if cfg.RunMode == "bg" || cfg.RunMode == "all" {
		processor := tasks.NewTaskProcessor(cfg, emailSender, images, listings, leads, profiles, searchCache)
		taskServer = tasks.SetupServer(redisClient)
		if err := taskServer.Start(processor.Mux()); err != nil {
			fatal("failed to start task server", err)
		}
		slog.Info("background worker started")
	}

	<-ctx.Done()
	slog.Info("shutting down gracefully")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if apiSrv != nil {
		if err := apiSrv.Shutdown(ctxShutdown); err != nil {
			slog.Warn("API server shutdown error", "error", err)
		}
	}
	if taskServer != nil {
		taskServer.Shutdown()
	}

	wg.Wait()
	slog.Info("server gracefully stopped")
}
