package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"helpdesk-relay/internal/api"
	"helpdesk-relay/internal/api/router"
	"helpdesk-relay/internal/database"
	"helpdesk-relay/internal/env"
	"helpdesk-relay/internal/logger"
	"helpdesk-relay/internal/queue"
	"helpdesk-relay/internal/relay"
	"helpdesk-relay/internal/storage"
	"helpdesk-relay/internal/websocket"

	"github.com/joho/godotenv"
)

const apiPrefix = "/api/relay/v1"

func main() {
	envErr := godotenv.Load()

	log := logger.New(os.Stdout, env.GetOrDefault(env.LogLevel, "info"), env.GetOrDefault(env.LogFormat, "text"))
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn("failed to load .env", "error", envErr)
	}

	if err := run(log); err != nil {
		log.Error("relay stopped", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	if err := env.Require(env.AWSRegion); err != nil {
		return err
	}

	jwtSecret := env.GetOrDefault(env.JWTSecret, env.InsecureJWTSecret)
	if jwtSecret == env.InsecureJWTSecret {
		log.Warn("JWT_SECRET is not set, using the insecure default secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDatabase(ctx, database.Config{
		Region:       env.Get(env.AWSRegion),
		AccessKey:    env.Get(env.AWSID),
		SecretKey:    env.Get(env.AWSSecret),
		SessionToken: env.Get(env.AWSToken),
		Endpoint:     env.Get(env.DynamoDBEndpoint),
	})
	if err != nil {
		return fmt.Errorf("db init: %w", err)
	}

	uploads, err := storage.NewLocalStore(
		env.GetOrDefault(env.UploadDir, "./uploads"),
		env.GetOrDefault(env.UploadPublicPath, "/uploads"),
	)
	if err != nil {
		return fmt.Errorf("upload storage init: %w", err)
	}

	hub := websocket.NewHub(log)
	if addr := env.Get(env.ChatRedisURL); addr != "" {
		bridge := websocket.NewRedisBridge(
			websocket.NewRedisClient(addr, env.Get(env.ChatRedisPass)),
			env.GetOrDefault(env.ChatRedisChannel, websocket.DefaultBridgeChannel),
			log,
		)
		hub.SetPublisher(bridge)
		go func() {
			if err := bridge.Run(ctx, hub); err != nil {
				log.Error("redis bridge stopped", "error", err)
			}
		}()
	} else {
		log.Info("CHAT_REDIS_URL not set, running as a single instance")
	}
	go hub.Run(ctx)

	rl := relay.New(relay.Options{
		Repository:  relay.NewDynamoRepository(db),
		Broadcaster: hub,
		Files:       uploads,
		JWTSecret:   jwtSecret,
		Logger:      log,
	})

	queueManager := queue.NewRequestQueueManager(env.GetInt(env.QueueSize, 256), env.GetInt(env.Workers, 32), log)
	defer queueManager.Shutdown()

	server := api.NewAPIServer(
		api.Config{
			ListenAddr:     env.GetOrDefault(env.ListenAddr, ":83"),
			AllowedOrigins: env.GetList(env.AllowedOrigins, []string{"*"}),
			ServiceKeyHash: env.Get(env.ServiceKeyHash),
			Logger:         log,
		},
		queueManager,
		rl,
		hub,
		uploads,
		router.UtilsRoutes(apiPrefix),
		router.RelayRoutes(apiPrefix),
		router.UploadRoutes(),
	)

	if env.Get(env.ServiceKeyHash) == "" {
		log.Warn("RELAY_SERVICE_KEY_HASH is not set, service endpoints will reject every request")
	}

	return server.Run(ctx)
}
