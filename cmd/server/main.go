package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Naveenchinthakindi/whatsapp-application/internal/cache"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/config"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/handlers"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/hub"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/kafka"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/logger"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/middleware"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/repository"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/routes"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/service"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if cfg.App.JWTSecret == "" {
		log.Fatal("app.jwt_secret is required")
	}

	lg, err := logger.New(logger.Config{Development: cfg.App.Env == "development"})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}

	ctx := context.Background()
	repo, err := repository.NewMongoRepository(ctx, cfg.Mongo.URI, cfg.Mongo.DB)
	if err != nil {
		lg.Fatalw("mongo connect", "err", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	presence := cache.NewStore(rdb, cfg.Redis.Prefix, 24*time.Hour)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)

	h := hub.New(repo, presence, lg, hub.Options{
		TypingTTL:  cfg.TypingTTL,
		SendBuffer: cfg.WS.SendBufferSize,
	})
	svc := service.NewChatService(repo, repo, h.Registry, producer, lg)

	chatHandler := handlers.NewChatHandler(svc, h)
	wsHandler := handlers.NewWSHandler(h, svc, cfg.App.JWTSecret, handlers.WSConfig{
		PingInterval:  cfg.PingInterval,
		WriteDeadline: cfg.WriteDeadline,
		MaxMsgSize:    cfg.WS.MaxMessageSizeBytes,
		EventsPerSec:  cfg.WS.EventsPerSecond,
		EventBurst:    cfg.WS.EventBurst,
	}, lg)
	limiter := middleware.NewRateLimiter(rdb, cfg.Redis.Prefix, cfg.RateLimit.Limit, cfg.RateLimitWindow)

	app := fiber.New(fiber.Config{DisableStartupMessage: cfg.App.Env != "development"})
	routes.Register(app, chatHandler, wsHandler, cfg.App.JWTSecret, limiter)

	errs := make(chan error, 1)
	go func() {
		lg.Infow("starting realtime chat service", "port", cfg.App.Port)
		errs <- app.Listen(":" + cfg.App.Port)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case e := <-errs:
		lg.Fatalw("server error", "err", e)
	case s := <-sig:
		lg.Infow("signal received", "signal", s.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Shutdown(); err != nil {
		lg.Warnw("fiber shutdown", "err", err)
	}
	if err := producer.Close(); err != nil {
		lg.Warnw("kafka producer close", "err", err)
	}
	if err := rdb.Close(); err != nil {
		lg.Warnw("redis close", "err", err)
	}
	if err := repo.Disconnect(shutdownCtx); err != nil {
		lg.Warnw("mongo disconnect", "err", err)
	}
	lg.Info("shut down")
}
