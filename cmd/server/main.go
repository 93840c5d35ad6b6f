package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/studychat/backend/api/handlers"
	"github.com/studychat/backend/internal/auth"
	"github.com/studychat/backend/internal/config"
	"github.com/studychat/backend/internal/db"
	"github.com/studychat/backend/internal/model"
	"github.com/studychat/backend/internal/repository"
	"github.com/studychat/backend/internal/session"
	"github.com/studychat/backend/internal/ws"
	"github.com/studychat/backend/pkg/driver"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if os.Getenv("LOG_LEVEL") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		log.Fatal().Err(err).Msg("failed to create database directory")
	}

	database, err := db.InitDB(cfg.Store.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.CloseDB()

	repo := repository.NewConversationRepository(database)
	registry := session.NewRegistry()
	generationDriver := driver.NewAnthropicDriver()

	defaults := model.GenerationConfig{
		Model:       cfg.Chat.Model,
		Temperature: cfg.Chat.Temperature,
		TopP:        cfg.Chat.TopP,
	}

	router := ws.NewRouter(registry, repo, generationDriver, auth.StaticVerifier{}, defaults)
	manager := ws.NewClientManager()
	wsHandler := ws.NewHandler(router, manager)
	sweeper := ws.NewSweeper(router, manager, cfg.Sweeper.Interval, cfg.Sweeper.IdleThreshold)

	chatHandler := handlers.NewChatHandler(wsHandler)
	exportHandler := handlers.NewExportHandler(cfg.Export.BaseURL)

	r := gin.Default()
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	chatHandler.RegisterRoutes(r)

	api := r.Group("/api")
	{
		exportHandler.RegisterRoutes(api)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := sweeper.Run(ctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("server shutdown incomplete")
		}

		manager.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
