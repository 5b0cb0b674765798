package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"rednote/internal/auth"
	"rednote/internal/config"
	"rednote/internal/gateway"
	"rednote/internal/handlers"
	"rednote/internal/identity"
	"rednote/internal/middleware"
	"rednote/internal/observability"
	"rednote/internal/store"
	"rednote/internal/telemetry"
	"rednote/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), "rednote", cfg.OTLP.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}
	defer shutdownTracing(context.Background())

	var st store.Store
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.OpenPostgres(cfg.Store.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open postgres store")
		}
	case "memory":
		st = store.NewMemory()
	}
	defer st.Close()

	cache, err := identity.OpenCache(cfg.Cache.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Cache.Path).Msg("failed to open profile cache")
	}
	defer cache.Close()

	provider, err := auth.NewProvider(cfg.Auth.Secret, cfg.Auth.TTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build auth provider")
	}

	resolver := identity.NewResolver(provider, cache, st)
	gw := gateway.New(st)

	publisher := observability.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	auditEmitter := telemetry.NewAuditEmitter(publisher, "audit.rednote", "rednote", cfg.Environment)
	if mode := observability.PublisherMode(publisher); mode == "noop" {
		log.Info().Str("reason", observability.NoopReason(publisher)).Msg("mutation events disabled")
	}

	hub := ws.NewHub()
	sockets := ws.NewSocketHandler(hub, st, provider)

	authHandler := handlers.NewAuthHandler(resolver)
	profileHandler := handlers.NewProfileHandler(resolver)
	feedHandler := handlers.NewFeedHandler(gw, resolver)
	chatHandler := handlers.NewChatHandler(gw, resolver)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(provider)

	router.POST("/auth/anonymous", authHandler.SignInAnonymously)

	router.GET("/profile", authMiddleware, profileHandler.GetProfile)
	router.POST("/profile", authMiddleware, profileHandler.SetProfile)

	router.POST("/posts", authMiddleware, feedHandler.CreatePost)
	router.POST("/posts/:post_id/like", authMiddleware, feedHandler.ToggleLike)
	router.POST("/posts/:post_id/comments", authMiddleware, feedHandler.AddComment)

	router.POST("/chats/start", authMiddleware, chatHandler.StartChat)
	router.POST("/chats/:chat_id/messages", authMiddleware, chatHandler.PostMessage)

	router.GET("/ws/feed", sockets.Feed)
	router.GET("/ws/conversations", sockets.Conversations)
	router.GET("/ws/chats/:chat_id/messages", sockets.Messages)

	router.GET("/healthz", handlers.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.Debug)

	log.Info().Str("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("rednote listening")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
