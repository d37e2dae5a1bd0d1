package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/persona-chat/backend/internal/config"
	"github.com/zhouzirui/persona-chat/backend/internal/handler"
	"github.com/zhouzirui/persona-chat/backend/internal/logging"
	"github.com/zhouzirui/persona-chat/backend/internal/registry"
	"github.com/zhouzirui/persona-chat/backend/internal/service/ai"
	"github.com/zhouzirui/persona-chat/backend/internal/service/chat"
	"github.com/zhouzirui/persona-chat/backend/internal/service/persona"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	prompts, err := registry.OpenSQLite(cfg.Registry.Path)
	if err != nil {
		logger.Fatal("failed to open prompt registry", zap.String("path", cfg.Registry.Path), zap.Error(err))
	}
	defer prompts.Close()

	if !cfg.AI.Enabled() {
		logger.Warn("model provider is not fully configured; turns will answer with the apology message",
			zap.String("provider", cfg.AI.Provider))
	}

	resolver := persona.NewResolver(prompts, cfg.Registry.Project, logger.Named("persona"))
	completer := ai.NewService(cfg.AI, logger.Named("ai"))
	chatService := chat.NewService(resolver, completer, logger.Named("chat"))
	lister := ai.NewModelLister(cfg.AI.OllamaBin, nil, cfg.AI.FallbackModels)

	router := handler.NewRouter(handler.Deps{
		Personas: resolver,
		Models:   lister,
		Chat:     chatService,
		Logger:   logger.Named("http"),
	})

	startServer(ctx, logger, cfg.Server, router)
}

func startServer(ctx context.Context, logger *zap.Logger, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("persona chat backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
