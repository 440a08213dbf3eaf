package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/user/committracker/internal/config"
	"github.com/user/committracker/internal/github"
	"github.com/user/committracker/internal/notifier"
	"github.com/user/committracker/internal/storage"
	"github.com/user/committracker/internal/telegram"
	"github.com/user/committracker/internal/tracker"
	"github.com/user/committracker/pkg/logger"
)

// firstPollDelay gives a fresh subscription a quiet moment before its
// first poll cycle.
const firstPollDelay = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Try to initialize basic logger for error output
		logger.Init(true, "")
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	debug := cfg.Log.Level == "debug"
	if err := logger.Init(debug, cfg.Log.File); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	logger.Info().Msg("Starting Commit Tracker Bot")

	// Database
	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	store := storage.NewSubscriptionStore(db)
	logger.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	// GitHub client
	ghClient := github.NewClient(cfg.GitHub.Token)

	// Tracker core: resolver, scheduler, lifecycle controller. The
	// transport is attached after the Telegram bot is authorized.
	resolver := tracker.NewResolver(ghClient, cfg.GitHub.Lookback)

	// The notifier is constructed once the bot API is authorized below;
	// jobs only deliver well after that.
	var notify *notifier.Notifier
	transport := tracker.TransportFunc(func(target tracker.Target, text string) error {
		return notify.Deliver(target, text)
	})

	scheduler := tracker.NewScheduler(
		store, resolver, ghClient, transport,
		notifier.BuildCommitMessage,
		cfg.PollInterval(), firstPollDelay,
	)
	controller := tracker.NewController(store, ghClient, scheduler)

	// Telegram bot
	handlers := telegram.NewHandlers(controller, store, ghClient, scheduler)
	bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.Debug, handlers)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}
	notify = notifier.NewNotifier(bot.API())

	// Resume polling for every stored subscription; the store is the
	// single source of truth for what should be polled.
	if err := controller.Reconcile(); err != nil {
		logger.Error().Err(err).Msg("Startup reconcile failed, continuing with empty job set")
	}

	// Operational HTTP surface
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		count, err := store.Count()
		if err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"subscriptions":    count,
			"active_poll_jobs": scheduler.ActiveJobs(),
			"poll_interval_s":  cfg.GitHub.PollInterval,
		})
	})

	server := &http.Server{
		Addr:    cfg.ServerAddress(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("address", cfg.ServerAddress()).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	bot.Start()
	logger.Info().Int("interval_sec", cfg.GitHub.PollInterval).Msg("Commit polling active")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scheduler.Stop()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	bot.Stop()

	logger.Info().Msg("Shutdown complete")
}
