package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"whisper.share/config"
	"whisper.share/internal/api"
	"whisper.share/internal/crypto"
	"whisper.share/internal/logging"
	"whisper.share/internal/purge"
	"whisper.share/internal/service"
	"whisper.share/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Errorf("config error: %v", err)
		os.Exit(1)
	}

	key, err := cfg.KeyBytes()
	if err != nil {
		logging.Errorf("config error: %v", err)
		os.Exit(1)
	}
	envelope, err := crypto.NewEnvelope(key)
	if err != nil {
		// Refuse to serve rather than fall through to plaintext storage.
		logging.Errorf("crypto error: %v", err)
		os.Exit(1)
	}

	st, err := initStore(cfg)
	if err != nil {
		logging.Errorf("store init failed: %v", err)
		os.Exit(1)
	}
	defer st.Close()

	svc := service.New(st, envelope, cfg.Server.BaseURL, cfg.Secrets.DefaultTTL, cfg.Secrets.MaxTTL)

	scheduler := purge.NewScheduler(st, cfg.PurgeInterval())
	scheduler.Start()
	defer scheduler.Stop()

	router := api.SetupRouter(svc, api.NewHeaderAuthenticator())

	logging.Infof("server starting on %s", cfg.Addr())
	logging.Infof("base URL: %s", cfg.Server.BaseURL)
	logging.Infof("store: %s", cfg.Store.Type)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Errorf("server error: %v", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logging.Infof("received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logging.Errorf("shutdown error: %v", err)
		}
	}
}

func initStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Type {
	case "redis":
		return store.NewRedisStore(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
	case "sqlite", "postgres":
		return store.NewSQLStore(cfg.Store.Type, cfg.Store.DSN)
	default:
		return store.NewMemoryStore(), nil
	}
}
