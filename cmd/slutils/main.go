package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nooperation/slutils/internal/api"
	"github.com/nooperation/slutils/internal/auth"
	"github.com/nooperation/slutils/internal/config"
	"github.com/nooperation/slutils/internal/service"
	"github.com/nooperation/slutils/internal/storage"
	"github.com/nooperation/slutils/internal/storage/cassandra"
	"github.com/nooperation/slutils/internal/storage/sqlite"
	"github.com/nooperation/slutils/pkg/logger"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load configuration", logger.F("error", err.Error()))
		os.Exit(1)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			log.Error("Failed to create database directory", logger.F("error", err.Error()))
			os.Exit(1)
		}
	}

	db, err := sqlite.OpenDB(cfg.DBPath)
	if err != nil {
		log.Error("Failed to open database", logger.F("path", cfg.DBPath), logger.F("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()
	store := sqlite.NewStore(db)
	log.Info("Database opened", logger.F("path", cfg.DBPath))

	var soundStore storage.SoundStore = store
	if cfg.Sounds.Backend == "cassandra" {
		client, err := cassandra.NewClient(cfg.Cassandra, log)
		if err != nil {
			log.Error("Failed to connect to Cassandra", logger.F("error", err.Error()))
			os.Exit(1)
		}
		defer client.Close()
		soundStore = cassandra.NewSoundRepository(client, log)
	}

	var sessionStore auth.SessionStore
	if cfg.Session.Backend == "redis" {
		redisStore, err := auth.NewRedisSessionStore(cfg.Session)
		if err != nil {
			log.Error("Failed to connect to Redis", logger.F("error", err.Error()))
			os.Exit(1)
		}
		defer redisStore.Close()
		sessionStore = redisStore
		log.Info("Using Redis session store", logger.F("addr", cfg.Session.RedisAddr))
	} else {
		sessionStore = auth.NewMemorySessionStore()
	}

	tokens := service.NewTokenGenerator(store)
	prober := service.NewProber(cfg.Probe, log)
	registry := service.NewRegistryService(store, tokens, prober, log)
	proxies := service.NewProxyService(store, cfg.Probe, log)
	sounds := service.NewSoundService(soundStore, log)
	authService := auth.NewService(store, sessionStore, cfg.Session.TTL, log)

	handler := api.NewHandler(registry, proxies, sounds, authService, cfg.ServerListLimit, log)

	router := chi.NewRouter()
	router.Use(api.RequestIDMiddleware)
	router.Use(middleware.RealIP)
	router.Use(api.LoggingMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))
	router.Mount("/", handler.Routes())

	server := &http.Server{
		Addr:    cfg.Address(),
		Handler: router,
	}

	go func() {
		log.Info("Server starting", logger.F("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", logger.F("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.F("error", err.Error()))
		os.Exit(1)
	}

	log.Info("Server exited")
}
