package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/franmoretti/tiendabot-backend/api/routes"
	"github.com/franmoretti/tiendabot-backend/internal/catalog"
	"github.com/franmoretti/tiendabot-backend/internal/conversation"
	"github.com/franmoretti/tiendabot-backend/internal/delivery"
	"github.com/franmoretti/tiendabot-backend/internal/messaging"
	"github.com/franmoretti/tiendabot-backend/internal/reconcile"
	"github.com/franmoretti/tiendabot-backend/internal/schedule"
	"github.com/franmoretti/tiendabot-backend/internal/session"
	"github.com/franmoretti/tiendabot-backend/pkg/config"
	"github.com/franmoretti/tiendabot-backend/pkg/db"
	"github.com/franmoretti/tiendabot-backend/pkg/geo"
	"github.com/franmoretti/tiendabot-backend/pkg/llm"
	"github.com/franmoretti/tiendabot-backend/pkg/logger"
	"github.com/franmoretti/tiendabot-backend/pkg/metrics"
	"github.com/franmoretti/tiendabot-backend/pkg/migrate"
	"github.com/franmoretti/tiendabot-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	chatMetrics := metrics.NewChatMetrics(registry)

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:            catalog.NewRepository(dbClient.DB()),
		Cache:           redisClient,
		Logger:          logg,
		CacheTTL:        cfg.Chat.CatalogCacheTTL,
		DeliveryKeyword: cfg.Store.DeliveryKeyword,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	geocoder, err := geo.NewClient(cfg.Geocoder.APIKey,
		geo.WithBaseURL(cfg.Geocoder.BaseURL),
		geo.WithRegion(cfg.Geocoder.Region),
		geo.WithLanguage(cfg.Geocoder.Language),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create geocoder client", err)
		os.Exit(1)
	}

	resolver, err := delivery.NewResolver(geocoder, catalogService, cfg.Store)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery resolver", err)
		os.Exit(1)
	}

	reconciler, err := reconcile.NewReconciler(catalogService, resolver, cfg.Store.DeliveryKeyword)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler", err)
		os.Exit(1)
	}

	completer, err := llm.NewClient(cfg.OpenAI.APIKey,
		llm.WithBaseURL(cfg.OpenAI.BaseURL),
		llm.WithModel(cfg.OpenAI.Model),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create model client", err)
		os.Exit(1)
	}

	sessions, err := session.NewRedisStore(redisClient, cfg.Chat.SessionTTL, cfg.Chat.HistoryLimit)
	if err != nil {
		logg.Error(context.Background(), "failed to create session store", err)
		os.Exit(1)
	}

	var messenger messaging.Messenger
	if cfg.Messaging.WebhookURL != "" {
		messenger, err = messaging.NewWebhookMessenger(cfg.Messaging.WebhookURL, messaging.WithToken(cfg.Messaging.Token))
		if err != nil {
			logg.Error(context.Background(), "failed to create webhook messenger", err)
			os.Exit(1)
		}
	} else {
		messenger = messaging.NewLogMessenger(logg)
	}

	hoursStore := schedule.NewHoursStore(dbClient.DB(), redisClient, logg, cfg.Chat.CatalogCacheTTL)

	conversationService, err := conversation.NewService(conversation.ServiceParams{
		Repo:       conversation.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		Sessions:   sessions,
		Completer:  completer,
		Reconciler: reconciler,
		Catalog:    catalogService,
		Hours:      hoursStore,
		Messenger:  messenger,
		Metrics:    chatMetrics,
		Logger:     logg,
		Store:      cfg.Store,
		Chat:       cfg.Chat,
		LLMTimeout: cfg.OpenAI.Timeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create conversation service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Idempotency:   redisClient,
			Conversations: conversationService,
			Catalog:       catalogService,
			Hours:         hoursStore,
			Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
