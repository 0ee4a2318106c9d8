// Точка входа сервиса учёта экспедиентов DREM Apurímac.
// Загружает конфигурацию, подключает хранилище документов (PostgreSQL, Redis
// или память), создаёт сервисный слой и API handlers, запускает фоновые задачи
// (подсказки классификатора, topologymetrics), HTTP-сервер с проверкой сессии
// и graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/drem-apurimac/tramite/internal/api/handlers"
	"github.com/drem-apurimac/tramite/internal/api/middleware"
	"github.com/drem-apurimac/tramite/internal/api/openapi"
	"github.com/drem-apurimac/tramite/internal/attachment"
	"github.com/drem-apurimac/tramite/internal/auth"
	"github.com/drem-apurimac/tramite/internal/classifier"
	"github.com/drem-apurimac/tramite/internal/config"
	"github.com/drem-apurimac/tramite/internal/database"
	"github.com/drem-apurimac/tramite/internal/domain/area"
	"github.com/drem-apurimac/tramite/internal/domain/tracking"
	"github.com/drem-apurimac/tramite/internal/domain/validation"
	"github.com/drem-apurimac/tramite/internal/events"
	"github.com/drem-apurimac/tramite/internal/gateway"
	"github.com/drem-apurimac/tramite/internal/gateway/memory"
	pggateway "github.com/drem-apurimac/tramite/internal/gateway/postgres"
	redisgateway "github.com/drem-apurimac/tramite/internal/gateway/redis"
	"github.com/drem-apurimac/tramite/internal/repository"
	"github.com/drem-apurimac/tramite/internal/server"
	"github.com/drem-apurimac/tramite/internal/service"
	"github.com/drem-apurimac/tramite/internal/telemetry"
)

// suggestionTTL — время жизни сессии подсказок без обращений.
const suggestionTTL = 30 * time.Minute

func main() {
	if err := run(); err != nil {
		slog.Error("Сервис остановлен с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("загрузка конфигурации: %w", err)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Сервис учёта экспедиентов запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("storage", cfg.StorageBackend),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Трассировка (OpenTelemetry)
	tp, err := telemetry.New(ctx, telemetry.Options{
		Endpoint: cfg.OTelEndpoint,
		Sampling: cfg.OTelSampling,
		Version:  config.Version,
	}, logger)
	if err != nil {
		return fmt.Errorf("инициализация трассировки: %w", err)
	}
	defer shutdownWithTimeout(logger, "трассировка", tp.Shutdown)

	// 4. Хранилище документов
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()
	gw := gateway.Instrument(store.gw, cfg.StorageBackend, cfg.GatewayTimeout)

	// 5. Repositories
	caseRepo := repository.NewCaseRepository(gw)
	userRepo := repository.NewUserRepository(gw)
	notificationRepo := repository.NewNotificationRepository(gw)
	settingsRepo := repository.NewSettingsRepository(gw)

	// 6. Начальные данные
	if cfg.Seed {
		if err := service.NewSeeder(userRepo, caseRepo, notificationRepo, logger).Seed(ctx); err != nil {
			return fmt.Errorf("начальные данные: %w", err)
		}
	}

	// 7. Домен: справочник областей, валидатор, движок маршрутизации
	areas := area.Default()
	v := validation.New()
	engine, err := tracking.New(areas, v, tracking.WithIntakeArea(cfg.IntakeArea))
	if err != nil {
		return fmt.Errorf("движок маршрутизации: %w", err)
	}

	// 8. Классификатор (опционально)
	cl := classifier.New(classifier.Options{
		BaseURL:   cfg.ClassifierURL,
		APIKey:    cfg.ClassifierAPIKey,
		Model:     cfg.ClassifierModel,
		Timeout:   cfg.ClassifierTimeout,
		CacheSize: cfg.ClassifierCacheSize,
		CacheTTL:  cfg.ClassifierCacheTTL,
	}, areas, nil, logger)
	var summarizer service.Summarizer
	if cl.Enabled() {
		summarizer = cl
		logger.Info("Классификатор включён", slog.String("model", cfg.ClassifierModel))
	} else {
		logger.Info("Классификатор отключён (TR_CLASSIFIER_API_KEY не задан)")
	}
	suggestions := service.NewSuggestions(cl, cfg.ClassifierTimeout, suggestionTTL, logger)
	defer suggestions.Close()

	// 9. События (Kafka, опционально)
	var publisher events.Publisher = events.Nop{}
	checks := []handlers.Check{
		{Name: "storage", Checker: gateway.NewReadinessChecker(cfg.StorageBackend, gw), Critical: true},
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			return err
		}
		defer kafka.Close()
		publisher = kafka
		checks = append(checks, handlers.Check{Name: "kafka", Checker: gateway.NewReadinessChecker("kafka", kafka)})
		logger.Info("Публикация событий в Kafka", slog.String("topic", cfg.KafkaTopic))
	}

	// 10. Хранилище вложений
	attachments, err := attachment.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("хранилище вложений: %w", err)
	}
	var filesDir string
	if local, ok := attachments.(*attachment.Local); ok && local.BaseURL() == "/files" {
		filesDir = local.Dir()
	}

	// 11. Services
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer)
	caseSvc := service.NewCaseService(service.CaseDeps{
		Cases:         caseRepo,
		Notifications: notificationRepo,
		Settings:      settingsRepo,
		Engine:        engine,
		Publisher:     publisher,
		Attachments:   attachments,
		Summarizer:    summarizer,
		MaxAttachment: cfg.AttachmentMaxSize,
		Location:      cfg.Location,
	}, logger)
	userSvc := service.NewUserService(userRepo, tokens, areas, v, logger)
	settingsSvc := service.NewSettingsService(settingsRepo, logger)
	notificationSvc := service.NewNotificationService(notificationRepo, logger)

	// 12. topologymetrics — мониторинг зависимостей
	var classifierURL string
	if cl.Enabled() {
		classifierURL = cfg.ClassifierURL
	}
	dephealthSvc, err := service.NewDephealthService(service.DephealthOptions{
		ServiceID:     telemetry.ServiceName,
		Group:         cfg.DephealthGroup,
		DB:            store.sqlDB,
		PostgresURL:   store.postgresURL,
		ClassifierURL: classifierURL,
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	switch {
	case service.IsNoDependencies(err):
		logger.Info("topologymetrics: нет зависимостей для мониторинга")
	case err != nil:
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	default:
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		} else {
			defer dephealthSvc.Stop()
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 13. API handler и проверка запросов по контракту
	apiHandler := handlers.NewAPIHandler(handlers.NewHealthHandler(checks...), handlers.Services{
		Cases:         caseSvc,
		Users:         userSvc,
		Settings:      settingsSvc,
		Notifications: notificationSvc,
		Suggestions:   suggestions,
		Areas:         areas,
	}, logger)

	doc, err := openapi.Load(ctx)
	if err != nil {
		return err
	}
	validator, err := middleware.NewRequestValidator(doc, logger)
	if err != nil {
		return err
	}

	// 14. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, server.Options{
		Auth:      middleware.NewSessionAuth(tokens, logger),
		Validator: validator,
		FilesDir:  filesDir,
	})
	if err := srv.Run(ctx); err != nil {
		return err
	}

	// 15. Остановка фоновых задач выполняется отложенными вызовами
	logger.Info("Останавливаем фоновые задачи...")
	return nil
}

// documentStore — выбранный backend хранилища документов.
type documentStore struct {
	gw gateway.Gateway
	// sqlDB и postgresURL заданы только для postgres (topologymetrics).
	sqlDB       *sql.DB
	postgresURL string
	close       func()
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*documentStore, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendPostgres:
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			return nil, fmt.Errorf("миграции БД: %w", err)
		}
		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("подключение к PostgreSQL: %w", err)
		}
		// Адаптер pgxpool → *sql.DB: проверка здоровья идёт через пул соединений.
		db := stdlib.OpenDBFromPool(pool)
		return &documentStore{
			gw:          pggateway.New(pool),
			sqlDB:       db,
			postgresURL: cfg.DatabaseURL(),
			close: func() {
				_ = db.Close()
				pool.Close()
			},
		}, nil

	case config.StorageBackendRedis:
		client, err := redisgateway.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		logger.Info("Подключение к Redis установлено", slog.String("addr", client.Options().Addr))
		return &documentStore{
			gw:    redisgateway.New(client, ""),
			close: func() { _ = client.Close() },
		}, nil

	default:
		logger.Warn("Хранилище в памяти: данные не переживут перезапуск")
		return &documentStore{gw: memory.New(), close: func() {}}, nil
	}
}

func shutdownWithTimeout(logger *slog.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Warn("Ошибка остановки", slog.String("component", name), slog.String("error", err.Error()))
	}
}
