package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"halfandhalf/internal/app/events"
	authsvc "halfandhalf/internal/app/services/auth"
	chatsvc "halfandhalf/internal/app/services/chat"
	postsvc "halfandhalf/internal/app/services/posts"
	userssvc "halfandhalf/internal/app/services/users"
	"halfandhalf/internal/app/sweep"
	domainauth "halfandhalf/internal/domain/auth"
	domainchat "halfandhalf/internal/domain/chat"
	domainpost "halfandhalf/internal/domain/post"
	domainuser "halfandhalf/internal/domain/user"
	"halfandhalf/internal/infra/archive/sqlite"
	"halfandhalf/internal/infra/broker/kafka"
	"halfandhalf/internal/infra/config"
	"halfandhalf/internal/infra/db/mongo"
	ginserver "halfandhalf/internal/infra/http/gin"
	"halfandhalf/internal/infra/obs"
	"halfandhalf/internal/infra/security"
	"halfandhalf/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
		cfg.ArchivePath = getenv("ARCHIVE_DB_PATH", "halfandhalf-archive.db")
		cfg.ChatTrimSpace = true
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	stores, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage initialization failed", "error", err)
		os.Exit(1)
	}
	defer stores.close(logger)

	publisher, closeProducer := buildPublisher(cfg, logger)
	defer closeProducer()

	authService := &authsvc.Service{
		Users:      stores.users,
		Sessions:   stores.sessions,
		Passwords:  security.PasswordHasher{},
		Tokens:     security.TokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}
	chatService := chatsvc.NewService(stores.chat, stores.posts, publisher, logger, chatsvc.Config{
		BatchLimit:     cfg.DeleteBatchSize,
		TrimWhitespace: cfg.ChatTrimSpace,
	})
	postService := &postsvc.Service{
		Posts:    stores.posts,
		Users:    stores.users,
		Archives: stores.archive,
		Cascade:  chatService,
		Events:   publisher,
		Logger:   logger,
		RadiusKm: cfg.NearbyRadiusKm,
	}
	userService := &userssvc.Service{Users: stores.users, Logger: logger}

	sweeper := &sweep.Sweeper{
		Posts:    stores.posts,
		Archives: stores.archive,
		Cascade:  chatService,
		Events:   publisher,
		Logger:   logger,
		Interval: cfg.SweepInterval,
	}
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("expiry sweeper stopped", "error", err)
		}
	}()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: stores.ready,
	}, ginserver.Handlers{
		Auth: ginserver.AuthHandler{Service: authService, Logger: logger},
		Post: ginserver.PostHandler{Service: postService, Logger: logger},
		Chat: ginserver.ChatHandler{Service: chatService, Logger: logger},
		Me:   ginserver.MeHandler{Posts: postService, Users: userService, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{
			Service: authService,
			Logger:  logger,
		}.Handle,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type stores struct {
	posts    domainpost.Repository
	users    domainuser.Repository
	sessions domainauth.SessionStore
	chat     domainchat.Repository
	archive  *sqlite.Store
	mongo    *mongo.Client
	ready    func() error
}

// buildStores wires the Mongo-backed repositories, falling back to
// in-memory storage when no MONGO_URI is configured so the server runs
// standalone in development.
func buildStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	archive, err := sqlite.Open(cfg.ArchivePath)
	if err != nil {
		return nil, err
	}

	if cfg.MongoURI == "" {
		logger.Warn("MONGO_URI not set, using in-memory storage")
		return &stores{
			posts:    memory.NewPostRepository(),
			users:    memory.NewUserRepository(),
			sessions: memory.NewSessionStore(),
			chat:     memory.NewChatRepository(),
			archive:  archive,
			ready:    func() error { return nil },
		}, nil
	}

	client, err := mongo.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		archive.Close()
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		logger.Warn("mongo not reachable at startup", "error", err)
	}
	return &stores{
		posts:    mongo.NewPostRepository(client.DB),
		users:    mongo.NewUserRepository(client.DB),
		sessions: mongo.NewSessionStore(client.DB),
		chat:     mongo.NewChatRepository(client.DB),
		archive:  archive,
		mongo:    client,
		ready: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		},
	}, nil
}

func (s *stores) close(logger *slog.Logger) {
	if s.archive != nil {
		if err := s.archive.Close(); err != nil {
			logger.Warn("archive close failed", "error", err)
		}
	}
	if s.mongo != nil {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.mongo.Disconnect(disconnectCtx); err != nil {
			logger.Warn("mongo disconnect failed", "error", err)
		}
	}
}

// buildPublisher returns a Kafka-backed event publisher when brokers
// are configured and a no-op otherwise.
func buildPublisher(cfg config.Config, logger *slog.Logger) (events.Publisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.Nop{}, func() {}
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		logger.Warn("kafka producer initialization failed, events disabled", "error", err)
		return events.Nop{}, func() {}
	}
	logger.Info("kafka events enabled", "brokers", cfg.KafkaBrokers)
	pub := events.BrokerPublisher{
		Producer:    producer,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Logger:      logger,
	}
	return pub, func() {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
