// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/echo-labs/support-platform/internal/agent"
	"github.com/echo-labs/support-platform/internal/config"
	"github.com/echo-labs/support-platform/internal/extract"
	"github.com/echo-labs/support-platform/internal/handler"
	"github.com/echo-labs/support-platform/internal/llm"
	"github.com/echo-labs/support-platform/internal/middleware"
	natsclient "github.com/echo-labs/support-platform/internal/nats"
	"github.com/echo-labs/support-platform/internal/rag"
	"github.com/echo-labs/support-platform/internal/secrets"
	"github.com/echo-labs/support-platform/internal/service"
	"github.com/echo-labs/support-platform/internal/storage"
	"github.com/echo-labs/support-platform/internal/store/sqlstore"
	"github.com/echo-labs/support-platform/pkg/logger"
	"github.com/echo-labs/support-platform/pkg/tracing"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "support-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Postgres
	provider, err := sqlstore.Open(cfg.DatabaseDSN, cfg.DatabaseMaxOpenConns, cfg.DatabaseMaxIdleConns)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		os.Exit(1)
	}
	defer provider.Close()

	sessionStore := sqlstore.NewContactSessionStore(provider)
	conversationStore := sqlstore.NewConversationStore(provider)
	knowledgeStore := sqlstore.NewKnowledgeStore(provider)
	pluginStore := sqlstore.NewPluginStore(provider)
	subscriptionStore := sqlstore.NewSubscriptionStore(provider)
	widgetSettingsStore := sqlstore.NewWidgetSettingsStore(provider)

	// NATS
	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsClient.Close()

	threadLog := natsclient.NewThreadLog(natsClient)
	if err := threadLog.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure thread stream", zap.Error(err))
		os.Exit(1)
	}

	taskQueue := natsclient.NewTaskQueue(natsClient, log)
	if err := taskQueue.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure task stream", zap.Error(err))
		os.Exit(1)
	}

	// Blob storage and secrets
	blobStore, err := storage.NewS3Store(ctx, storage.Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		log.Error("failed to create blob store", zap.Error(err))
		os.Exit(1)
	}

	secretManager, err := secrets.NewManager(ctx, secrets.Config{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		log.Error("failed to create secret manager", zap.Error(err))
		os.Exit(1)
	}

	// LLM clients: OpenAI drives the agent and embeddings, Gemini handles
	// content extraction.
	openaiClient, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	if err != nil {
		log.Error("failed to create OpenAI client", zap.Error(err))
		os.Exit(1)
	}
	openaiClient = openaiClient.WithEmbeddingModel(cfg.EmbeddingModel)

	geminiClient, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Error("failed to create Gemini client", zap.Error(err))
		os.Exit(1)
	}
	defer geminiClient.Close()

	// Services
	ragSvc := rag.NewService(knowledgeStore, openaiClient, log)
	extractor := extract.New(geminiClient)

	sessionSvc := service.NewSessionService(sessionStore, cfg.SessionDuration, cfg.AutoRefreshThreshold, log)
	conversationSvc := service.NewConversationService(conversationStore, widgetSettingsStore, sessionSvc, threadLog, log)
	supportAgent := agent.New(openaiClient, cfg.ChatModel, ragSvc, conversationStore, threadLog, log)
	messageSvc := service.NewMessageService(conversationStore, subscriptionStore, sessionSvc, threadLog, supportAgent, log)
	fileSvc := service.NewFileService(blobStore, extractor, ragSvc, knowledgeStore, log)
	pluginSvc := service.NewPluginService(pluginStore, secretManager, taskQueue, log)
	subscriptionSvc := service.NewSubscriptionService(subscriptionStore, log)
	widgetSettingsSvc := service.NewWidgetSettingsService(widgetSettingsStore, log)
	voiceSvc := service.NewVoiceService(pluginSvc, log)

	// Background worker for plugin secret writes.
	consumeCtx, err := taskQueue.Consume(ctx, func(ctx context.Context, task *natsclient.Task) error {
		switch task.Type {
		case natsclient.TaskTypeSecretUpsert:
			return pluginSvc.HandleSecretUpsert(ctx, task)
		default:
			log.Warn("unknown task type", zap.String("type", task.Type))
			return nil
		}
	})
	if err != nil {
		log.Error("failed to start task worker", zap.Error(err))
		os.Exit(1)
	}
	defer consumeCtx.Stop()

	// Handlers
	healthHandler := handler.NewHealthHandler(natsClient)
	widgetHandler := handler.NewWidgetHandler(sessionSvc, conversationSvc, messageSvc, log)
	filesHandler := handler.NewFilesHandler(fileSvc, log)
	conversationsHandler := handler.NewConversationsHandler(conversationSvc, messageSvc, log)
	pluginsHandler := handler.NewPluginsHandler(pluginSvc, log)
	widgetSettingsHandler := handler.NewWidgetSettingsHandler(widgetSettingsSvc, log)
	voiceHandler := handler.NewVoiceHandler(voiceSvc, log)
	webhooksHandler := handler.NewWebhooksHandler(subscriptionSvc, cfg.BillingWebhookSecret, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/webhooks/billing", webhooksHandler.Billing)

	// Widget surface, authorized by contact session payloads.
	r.Route("/api/v1/widget", func(r chi.Router) {
		r.Use(middleware.SessionRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/sessions", widgetHandler.CreateSession)
		r.Post("/sessions/validate", widgetHandler.ValidateSession)
		r.Post("/conversations", widgetHandler.CreateConversation)
		r.Get("/conversations/{id}", widgetHandler.GetConversation)
		r.Post("/messages", widgetHandler.PostMessage)
		r.Get("/messages", widgetHandler.ListMessages)
	})

	// Dashboard surface, authorized by operator JWTs.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/files", func(r chi.Router) {
			r.Post("/", filesHandler.Create)
			r.Get("/", filesHandler.List)
			r.Delete("/{id}", filesHandler.Delete)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationsHandler.List)
			r.Patch("/{id}/status", conversationsHandler.UpdateStatus)
			r.Get("/{id}/contact", conversationsHandler.Contact)
		})
		r.Get("/threads/{threadID}/messages", conversationsHandler.Messages)

		r.Route("/widget-settings", func(r chi.Router) {
			r.Get("/", widgetSettingsHandler.Get)
			r.Put("/", widgetSettingsHandler.Upsert)
		})

		r.Route("/plugins/{service}", func(r chi.Router) {
			r.Get("/", pluginsHandler.Get)
			r.Delete("/", pluginsHandler.Delete)
			r.Post("/secret", pluginsHandler.UpsertSecret)
		})

		r.Route("/voice", func(r chi.Router) {
			r.Get("/assistants", voiceHandler.Assistants)
			r.Get("/phone-numbers", voiceHandler.PhoneNumbers)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
