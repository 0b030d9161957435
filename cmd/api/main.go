package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pmconsole/internal/api"
	"pmconsole/internal/backend"
	"pmconsole/internal/config"
	"pmconsole/internal/domain"
	"pmconsole/internal/events"
	"pmconsole/internal/logging"
	"pmconsole/internal/metrics"
	"pmconsole/internal/models"
	"pmconsole/internal/notify"
	"pmconsole/internal/realtime"
	"pmconsole/internal/refresh"
	"pmconsole/internal/repository"
	"pmconsole/internal/service"
	"pmconsole/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	client := backend.New(cfg.Backend, &logger)
	if redisClient != nil {
		client.UseRedisCache(redisClient, cfg.Cache.PropertyTTL())
	}

	bus := events.NewEventBus()
	markers := initMarkerStore(redisClient, &logger)

	properties := service.NewPropertyService(client, &logger)
	reservations := service.NewReservationService(client, properties, markers, &logger)
	coordinator := refresh.NewCoordinator(cfg.Refresh, markers, bus, reservations, &logger)
	defer coordinator.Stop()
	bookings := service.NewBookingService(client, coordinator, reservations, cfg.Backend.DefaultCountryCode, &logger)

	hub := realtime.NewHub(initAuthenticator(cfg, reservations, &logger), &logger)
	hub.Attach(bus)
	defer hub.Close()

	if kafka := initKafka(cfg, bus, &logger); kafka != nil {
		defer func() { _ = kafka.Close() }()
	}
	initTelegram(cfg, bus, &logger)

	services := api.Services{
		RatePlans:    service.NewRatePlanService(client, &logger),
		Reservations: reservations,
		Bookings:     bookings,
		Properties:   properties,
		Billing:      service.NewBillingService(client, &logger),
		Events:       hub,
	}
	if redisClient != nil {
		services.Ready = func(ctx context.Context) error { return repository.Ping(ctx, redisClient) }
	}

	httpServer := api.NewHTTPServer(cfg.API, services, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initMarkerStore prefers redis so markers survive a restart and are shared
// between replicas; memory keeps the feature alive without it.
func initMarkerStore(redisClient *redis.Client, logger *zerolog.Logger) domain.MarkerStore {
	memory := repository.NewMemoryMarkerStore()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverMarkerStore(repository.NewRedisMarkerStore(redisClient), memory, logger)
}

// initAuthenticator verifies websocket owners locally when the signing secret
// is known; otherwise the token must survive one reservations fetch.
func initAuthenticator(cfg *config.Config, reservations *service.ReservationService, logger *zerolog.Logger) session.Authenticator {
	if cfg.Auth.JWTSecret != "" {
		return session.NewSignedTokens(cfg.Auth.JWTSecret)
	}
	logger.Info().Msg("no jwt secret configured, websocket owners are checked against the backend")
	return session.CheckFunc(func(ctx context.Context, token string) error {
		page := reservations.FetchReservations(ctx, token, 1, 1)
		if page.Success {
			return nil
		}
		if page.Message == models.MsgSessionExpired {
			return session.ErrExpired
		}
		return errors.New(page.Message)
	})
}

func initKafka(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) *events.KafkaPublisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil
	}

	publisher := events.NewKafkaPublisher(cfg.Kafka, logger)
	publisher.Attach(bus, events.EventBookingCreated, events.EventReservationsConfirmed, events.EventReservationsStale)
	logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publishing enabled")
	return publisher
}

func initTelegram(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Telegram.BotToken == "" || len(cfg.Telegram.ChatIDs) == 0 {
		logger.Info().Msg("telegram notifications disabled")
		return
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram bot init failed, continuing without notifications")
		return
	}
	botAPI.Debug = cfg.Telegram.Debug

	notify.NewTelegramNotifier(botAPI, cfg.Telegram.ChatIDs, logger).Attach(bus)
	logger.Info().Str("bot", botAPI.Self.UserName).Int("chats", len(cfg.Telegram.ChatIDs)).Msg("telegram notifications enabled")
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
