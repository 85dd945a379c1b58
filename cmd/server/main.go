package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"chatterbox/internal/app"
	"chatterbox/internal/config"
	"chatterbox/internal/engine"
	"chatterbox/internal/server"
	"chatterbox/internal/session"
	"chatterbox/internal/store"
	"chatterbox/internal/util"
	"chatterbox/pkg/ai"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	userStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init user store: %v", err)
	}
	sessions := session.NewManager(session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword), sessionTTL)
	model := ai.NewMistralClient(cfg.MistralBaseURL, cfg.MistralAPIKey, cfg.MistralModel)

	appCore, err := app.New(app.Config{
		Store:  userStore,
		Engine: engine.New(model, cfg.SystemPrompt),
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer := server.New(server.Config{
		App:        appCore,
		Sessions:   sessions,
		ContactURL: cfg.ContactURL,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:        addr,
		Handler:     httpServer.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		// No WriteTimeout: /chat streams model output for as long as the
		// model takes to finish.
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}
