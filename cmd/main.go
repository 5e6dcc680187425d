package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/craig7351/youtube-eng-cloud/internal/acquire"
	"github.com/craig7351/youtube-eng-cloud/internal/config"
	"github.com/craig7351/youtube-eng-cloud/internal/httpapi"
	"github.com/craig7351/youtube-eng-cloud/internal/learner"
	"github.com/craig7351/youtube-eng-cloud/internal/persistence"
	"github.com/craig7351/youtube-eng-cloud/internal/translate"
	"github.com/craig7351/youtube-eng-cloud/internal/youtube"
	"github.com/craig7351/youtube-eng-cloud/pkg/icron"
	"github.com/craig7351/youtube-eng-cloud/pkg/log"
)

// httpServer is the part of httpapi.Server the run loop needs.
type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

// cronRunner is the part of cron.Cron the run loop needs.
type cronRunner interface {
	Start()
	Stop() context.Context
}

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	initLogging(cfg.Log)

	store, err := persistence.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		log.Fatal("Failed to open database %s: %v", cfg.Storage.DBPath, err)
	}
	defer store.Close()

	if videos, err := store.SubtitleCacheCount(context.Background()); err == nil {
		pairs, _ := store.TranslationCount(context.Background())
		log.Info("Cache warm: %d videos, %d translation pairs", videos, pairs)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := youtube.NewClient(
		youtube.WithRetries(cfg.Acquire.Retries),
		youtube.WithSleepSeconds(int(cfg.Acquire.BaseDelay/time.Second)),
	)
	if err := youtube.Install(ctx); err != nil {
		log.Warn("yt-dlp install check failed, relying on system binary: %v", err)
	}

	acquirer := acquire.NewAcquirer(client, youtube.NewFetcher(), store,
		acquire.WithBaseDelay(cfg.Acquire.BaseDelay),
		acquire.WithCloudProfile(cfg.Cloud),
	)

	cache := translate.NewCache(ctx, store)
	provider := translate.NewGoogleProvider()
	registry := translate.NewRegistry(cfg.Translate.ProgressTTL)
	pipeline := translate.NewPipeline(provider, cache, store, registry,
		cfg.Translate.SourceLanguage.String(), cfg.Translate.TargetLanguage.String())

	learners := learner.NewStore(store)

	server := httpapi.NewServer(acquirer, pipeline, registry, store, learners, provider,
		httpapi.WithUI(cfg.HTTP.StaticDir, cfg.HTTP.ServeUI),
	)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Translate.SweepCron, func() {
		registry.Sweep(time.Now())
	}); err != nil {
		log.Fatal("Invalid sweep cron expression %q: %v", cfg.Translate.SweepCron, err)
	}
	if info, err := icron.GetTriggerInfo(cfg.Translate.SweepCron, time.Now()); err == nil {
		log.Info("Job sweeper scheduled, next run at %s", info.Next.Format(time.RFC3339))
	}

	if err := run(ctx, cfg.HTTP.Addr(), scheduler, server); err != nil {
		log.Fatal("Server error: %v", err)
	}
}

// run starts the cron scheduler and the HTTP server, then blocks until the
// context is canceled or the server fails. Shutdown drains in-flight
// requests for up to ten seconds.
func run(ctx context.Context, addr string, scheduler cronRunner, server httpServer) error {
	scheduler.Start()
	defer scheduler.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening on %s", addr)
		errCh <- server.ListenAndServe(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func initLogging(cfg config.LogConfig) {
	level := log.ParseLevel(cfg.Level)
	log.InitLogger(level)

	if cfg.File != "" {
		fileLogger, err := log.NewFileLogger(cfg.File, level)
		if err != nil {
			log.Warn("Failed to open log file %s: %v", cfg.File, err)
			return
		}
		log.SetLogger(fileLogger.Logger)
	}
}
