// Точка входа Certstore — админка выдачи сертификатов участия.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт клиент табличного API, кэш и очередь отложенных обновлений,
// сервисный слой и API handlers, запускает topologymetrics,
// HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/certstore/internal/api/handlers"
	"github.com/bigkaa/certstore/internal/api/middleware"
	"github.com/bigkaa/certstore/internal/cache"
	"github.com/bigkaa/certstore/internal/config"
	"github.com/bigkaa/certstore/internal/database"
	"github.com/bigkaa/certstore/internal/domain/model"
	"github.com/bigkaa/certstore/internal/notify"
	"github.com/bigkaa/certstore/internal/repository"
	"github.com/bigkaa/certstore/internal/server"
	"github.com/bigkaa/certstore/internal/service"
	"github.com/bigkaa/certstore/internal/sheetclient"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Certstore запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// Предупреждения о дефолтных значениях topologymetrics
	if os.Getenv("CS_DEPHEALTH_GROUP") == "" {
		logger.Warn("CS_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL идёт через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Клиент табличного API (SheetDB-совместимый)
	sheetClient := sheetclient.New(sheetclient.Options{
		BaseURL:        cfg.SheetAPIURL,
		Token:          cfg.SheetAPIToken,
		RateLimitDelay: cfg.SheetRateLimitDelay,
		MaxRetries:     cfg.SheetMaxRetries,
		BatchSize:      cfg.SheetBatchSize,
		BatchPause:     cfg.SheetBatchPause,
	}, logger)
	logger.Info("Клиент табличного API создан", slog.String("url", cfg.SheetAPIURL))

	// 6. Кэш чтения таблицы и очередь отложенных обновлений
	sheetCache := cache.NewSheetCache(cfg.CacheSize, cfg.CacheTTL)
	batcher := cache.NewBatcher(cfg.SheetBatchDelay, func(ctx context.Context, updates []model.RowUpdate) error {
		result, flushErr := sheetClient.BatchUpdateRows(ctx, updates)
		if flushErr != nil {
			return flushErr
		}
		if result.Failed > 0 {
			logger.Warn("Часть отложенных обновлений таблицы не применена",
				slog.Int("succeeded", result.Succeeded),
				slog.Int("failed", result.Failed),
			)
		}
		return nil
	}, logger)

	// 7. Уведомления (Discord webhook, опционально)
	var notifier notify.Notifier = notify.Nop{}
	var discord *notify.Discord
	if cfg.DiscordWebhookURL != "" {
		discord = notify.NewDiscord(cfg.DiscordWebhookURL, cfg.DiscordErrorWebhookURL, logger)
		notifier = discord
		logger.Info("Discord-уведомления включены")
	}

	// 8. Repositories
	certRepo := repository.NewCertificateRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	logsRepo := repository.NewVerificationLogRepository(pool)

	// 9. Services
	certsSvc := service.NewCertificatesService(
		certRepo, eventRepo, sheetClient, batcher, sheetCache, notifier,
		cfg.PortalBaseURL,
		logger,
	)
	eventsSvc := service.NewEventsService(eventRepo, logger)
	syncSvc := service.NewSheetSyncService(
		sheetClient, certRepo, eventRepo, sheetCache, notifier,
		cfg.PortalBaseURL, cfg.DefaultEventCode,
		logger,
	)
	sheetViewSvc := service.NewSheetViewService(sheetClient, sheetCache, logger)
	statsSvc := service.NewStatsService(certRepo, eventRepo, logger)
	settingsSvc := service.NewSettingsService(settingsRepo, logger)

	// 10. Readiness checkers (PostgreSQL + IdP)
	pgChecker := database.NewReadinessChecker(pool)
	idpChecker, err := middleware.NewIdPReadinessChecker(cfg.JWTJWKSURL, cfg.JWTCACert, 5*time.Second)
	if err != nil {
		logger.Error("Ошибка создания IdP readiness checker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	healthHandler := handlers.NewHealthHandler(pgChecker, idpChecker)

	// 11. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		certsSvc,
		eventsSvc,
		syncSvc,
		sheetViewSvc,
		statsSvc,
		settingsSvc,
		logsRepo,
		logger,
	)

	// 12. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.JWTCACert,
		cfg.JWTIssuer,
		cfg.JWTGroupsClaim,
		cfg.RoleAdminGroups,
		cfg.RoleReadonlyGroups,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 13. topologymetrics — мониторинг зависимостей (PostgreSQL + табличное API + JWKS)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"certstore",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.SheetAPIURL,
		cfg.JWTJWKSURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 14. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 15. Graceful shutdown фоновых компонентов
	logger.Info("Останавливаем фоновые компоненты...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Сбрасываем накопленные обновления таблицы перед выходом
	if err := batcher.Close(shutdownCtx); err != nil {
		logger.Warn("Не удалось сбросить отложенные обновления таблицы",
			slog.String("error", err.Error()),
		)
	}
	if discord != nil {
		discord.Wait()
	}
	if dephealthSvc != nil && dephealthErr == nil {
		dephealthSvc.Stop()
	}

	logger.Info("Certstore остановлен")
}
