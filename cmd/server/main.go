package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"valetcore/internal/api"
	"valetcore/internal/archive"
	"valetcore/internal/cache"
	"valetcore/internal/config"
	"valetcore/internal/database"
	"valetcore/internal/domain"
	"valetcore/internal/events"
	"valetcore/internal/lifecycle"
	"valetcore/internal/logging"
	"valetcore/internal/metrics"
	"valetcore/internal/models"
	"valetcore/internal/notify"
	"valetcore/internal/service"
	"valetcore/internal/syncer"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, logger); err != nil {
		return err
	}

	metrics.Register()

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("database init failed")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, bookingCache := initCache(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = cache.Close(redisClient) }()
	}

	eventBus := events.NewEventBus()
	registerEventSubscribers(eventBus, logger)
	notifier := initNotifier(cfg, logger)

	catalog := service.NewCatalog(cfg.Packages, cfg.AdditionalServices)
	machine := lifecycle.NewStateMachine(bookingCache, notifier, eventBus, catalog.Package, logger)

	reconciler := syncer.NewReconciler(db, bookingCache, eventBus, time.Duration(cfg.Sync.IntervalMinutes)*time.Minute, logger)
	go func() {
		if err := reconciler.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("reconciler stopped")
		}
	}()

	archiver := archive.NewEngine(bookingCache, eventBus, cfg.Archive.RetentionDays, logger)
	go runArchiveSweeps(ctx, archiver, logger)

	bookingService := service.NewBookingService(bookingCache, machine, reconciler, eventBus, catalog, cfg.Booking, logger)
	trackingService := service.NewTrackingService(bookingCache, logger)

	apiServer := api.NewHTTPServer(cfg.Server, bookingService, trackingService, archiver, eventBus, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("API server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("API shutdown error")
	}

	// final push so local changes survive the restart
	if err := reconciler.SyncNow(shutdownCtx); err != nil && err != domain.ErrSyncInFlight {
		logger.Error().Err(err).Msg("final sync failed")
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := baseLogger.With().Str("component", "server-main").Logger()
	return cfg, &logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create database directory")
		return err
	}
	if cfg.Exports.Path != "" {
		if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
			logger.Error().Err(err).Msg("failed to create exports directory")
			return err
		}
	}
	return nil
}

func initCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.Cache) {
	fallback := cache.NewMemoryCache()
	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return nil, fallback
	}

	redisClient := cache.NewRedisClient(cfg.Redis)
	if errPing := cache.Ping(ctx, redisClient); errPing != nil {
		logger.Warn().Err(errPing).Msg("Redis unavailable")
	}

	primary := cache.NewRedisCache(redisClient, time.Duration(cfg.Redis.TTL)*time.Second)
	return redisClient, cache.NewFailoverCache(primary, fallback, logger)
}

func initNotifier(cfg *config.Config, logger *zerolog.Logger) domain.Notifier {
	var transports []notify.Transport

	if cfg.Notifications.Telegram.Enabled {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Notifications.Telegram.BotToken)
		if err != nil {
			logger.Error().Err(err).Msg("telegram bot init failed")
		} else {
			transports = append(transports, notify.NewTelegramTransport(botAPI, cfg.Notifications.Telegram.ChatID))
		}
	}

	if cfg.Notifications.SMTP.Enabled {
		client, err := notify.NewEmailClient(cfg.Notifications.SMTP)
		if err != nil {
			logger.Error().Err(err).Msg("smtp client init failed")
		} else {
			transports = append(transports, notify.NewEmailTransport(client, cfg.Notifications.SMTP.From))
		}
	}

	return notify.NewDispatcher(cfg.Notifications.FeedbackURL, logger, transports...)
}

// registerEventSubscribers attaches the operational consumers of the event
// bus. Per-connection tracking subscribers are attached by the SSE endpoint.
func registerEventSubscribers(bus *events.EventBus, logger *zerolog.Logger) {
	bus.Subscribe(events.EventSyncCompleted, func(event *events.Event) error {
		var payload events.SyncEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		logger.Info().
			Int("pushed", payload.Pushed).
			Int("failed", payload.Failed).
			Bool("manual", payload.Manual).
			Msg("sync pass finished")
		return nil
	})

	bus.Subscribe(events.EventBookingArchived, func(event *events.Event) error {
		var payload events.BookingEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		logger.Info().Str("booking_id", payload.BookingID).Msg("booking archived")
		return nil
	})
}

// runArchiveSweeps moves finished bookings to the archive partition on a
// fixed cadence. The sweep is idempotent, so the interval only affects how
// quickly finished jobs leave the active list.
func runArchiveSweeps(ctx context.Context, archiver *archive.Engine, logger *zerolog.Logger) {
	ticker := time.NewTicker(time.Duration(models.DefaultSyncIntervalMinutes) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if moved, err := archiver.Sweep(ctx); err != nil {
				logger.Error().Err(err).Msg("archive sweep failed")
			} else if moved > 0 {
				logger.Info().Int("moved", moved).Msg("archive sweep")
			}
		}
	}
}
