// Пакет config — загрузка и валидация конфигурации сервиса tramite
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // часовые пояса в образах без zoneinfo
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Допустимые backend'ы хранилища документов.
const (
	StorageBackendPostgres = "postgres"
	StorageBackendRedis    = "redis"
	StorageBackendMemory   = "memory"
)

// Допустимые backend'ы хранилища вложений.
const (
	AttachmentBackendLocal = "local"
	AttachmentBackendS3    = "s3"
)

// Config содержит все параметры конфигурации сервиса.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Хранилище документов ---

	// Backend Persistence Gateway: postgres, redis, memory
	StorageBackend string
	// Таймаут одного обращения к хранилищу
	GatewayTimeout time.Duration
	// Заполнять пустое хранилище начальными данными
	Seed bool

	// --- PostgreSQL (StorageBackend=postgres) ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Redis (StorageBackend=redis) ---

	// URL Redis в формате redis://[:password@]host:port/db
	RedisURL string

	// --- Маршрутизация ---

	// Область приёма новых документов (по умолчанию MESA)
	IntakeArea string
	// Часовой пояс для статистики по датам
	Location *time.Location

	// --- Сессии ---

	// Секрет подписи HS256-токенов
	JWTSecret string
	// Время жизни токена сессии
	JWTTTL time.Duration
	// Issuer токена
	JWTIssuer string

	// --- Классификатор (опционально) ---

	// Базовый URL Generative Language API
	ClassifierURL string
	// API-ключ; если пуст, классификатор отключён
	ClassifierAPIKey string
	// Модель
	ClassifierModel string
	// Таймаут одного запроса к классификатору
	ClassifierTimeout time.Duration
	// Размер LRU-кэша подсказок
	ClassifierCacheSize int
	// TTL записи в кэше подсказок
	ClassifierCacheTTL time.Duration

	// --- Kafka (опционально) ---

	// Брокеры Kafka; если пусто, события не публикуются
	KafkaBrokers []string
	// Топик событий по экспедиентам
	KafkaTopic string

	// --- Вложения ---

	// Backend вложений: local, s3
	AttachmentBackend string
	// Каталог для local backend
	AttachmentDir string
	// Публичный базовый URL для ссылок на вложения (local backend)
	AttachmentBaseURL string
	// Максимальный размер PDF в байтах
	AttachmentMaxSize int64
	S3Bucket          string
	S3Region          string
	// Кастомный endpoint (MinIO и т.п.)
	S3Endpoint string
	// Публичный базовый URL бакета
	S3PublicURL string

	// --- Наблюдаемость ---

	// OTLP gRPC endpoint; если пуст, трассировка отключена
	OTelEndpoint string
	// Доля семплируемых трасс (0..1)
	OTelSampling float64
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Группа в метриках dephealth
	DephealthGroup string

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// TR_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("TR_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("TR_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("TR_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("TR_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("TR_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("TR_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("TR_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Хранилище документов ---

	cfg.StorageBackend = getEnvDefault("TR_STORAGE_BACKEND", StorageBackendPostgres)
	switch cfg.StorageBackend {
	case StorageBackendPostgres, StorageBackendRedis, StorageBackendMemory:
	default:
		return nil, fmt.Errorf("TR_STORAGE_BACKEND: недопустимое значение %q, допустимые: postgres, redis, memory", cfg.StorageBackend)
	}

	cfg.GatewayTimeout, err = getEnvDuration("TR_GATEWAY_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TR_GATEWAY_TIMEOUT: %w", err)
	}

	cfg.Seed, err = getEnvBool("TR_SEED", true)
	if err != nil {
		return nil, fmt.Errorf("TR_SEED: %w", err)
	}

	if cfg.StorageBackend == StorageBackendPostgres {
		if err := loadPostgres(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.StorageBackend == StorageBackendRedis {
		cfg.RedisURL, err = getEnvRequired("TR_REDIS_URL")
		if err != nil {
			return nil, err
		}
	}

	// --- Маршрутизация ---

	cfg.IntakeArea = strings.ToUpper(getEnvDefault("TR_INTAKE_AREA", "MESA"))

	tz := getEnvDefault("TR_TIMEZONE", "America/Lima")
	cfg.Location, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("TR_TIMEZONE: неизвестный часовой пояс %q", tz)
	}

	// --- Сессии ---

	cfg.JWTSecret, err = getEnvRequired("TR_JWT_SECRET")
	if err != nil {
		return nil, err
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("TR_JWT_SECRET: длина секрета %d, минимум 32 символа", len(cfg.JWTSecret))
	}

	cfg.JWTTTL, err = getEnvDuration("TR_JWT_TTL", 8*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("TR_JWT_TTL: %w", err)
	}

	cfg.JWTIssuer = getEnvDefault("TR_JWT_ISSUER", "tramite")

	// --- Классификатор ---

	cfg.ClassifierURL = strings.TrimRight(
		getEnvDefault("TR_CLASSIFIER_URL", "https://generativelanguage.googleapis.com"), "/")
	if _, err := url.ParseRequestURI(cfg.ClassifierURL); err != nil {
		return nil, fmt.Errorf("TR_CLASSIFIER_URL: некорректный URL %q", cfg.ClassifierURL)
	}
	cfg.ClassifierAPIKey = getEnvDefault("TR_CLASSIFIER_API_KEY", "")
	cfg.ClassifierModel = getEnvDefault("TR_CLASSIFIER_MODEL", "gemini-2.5-flash")

	cfg.ClassifierTimeout, err = getEnvDuration("TR_CLASSIFIER_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TR_CLASSIFIER_TIMEOUT: %w", err)
	}

	cfg.ClassifierCacheSize, err = getEnvInt("TR_CLASSIFIER_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("TR_CLASSIFIER_CACHE_SIZE: %w", err)
	}
	if cfg.ClassifierCacheSize < 1 {
		return nil, fmt.Errorf("TR_CLASSIFIER_CACHE_SIZE: значение %d должно быть положительным", cfg.ClassifierCacheSize)
	}

	cfg.ClassifierCacheTTL, err = getEnvDuration("TR_CLASSIFIER_CACHE_TTL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("TR_CLASSIFIER_CACHE_TTL: %w", err)
	}

	// --- Kafka ---

	cfg.KafkaBrokers = parseCSV(getEnvDefault("TR_KAFKA_BROKERS", ""))
	cfg.KafkaTopic = getEnvDefault("TR_KAFKA_TOPIC", "tramite.case-events")

	// --- Вложения ---

	cfg.AttachmentBackend = getEnvDefault("TR_ATTACHMENT_BACKEND", AttachmentBackendLocal)
	switch cfg.AttachmentBackend {
	case AttachmentBackendLocal:
		cfg.AttachmentDir = getEnvDefault("TR_ATTACHMENT_DIR", "./data/attachments")
		cfg.AttachmentBaseURL = strings.TrimRight(getEnvDefault("TR_ATTACHMENT_BASE_URL", "/files"), "/")
	case AttachmentBackendS3:
		cfg.S3Bucket, err = getEnvRequired("TR_S3_BUCKET")
		if err != nil {
			return nil, err
		}
		cfg.S3Region = getEnvDefault("TR_S3_REGION", "us-east-1")
		cfg.S3Endpoint = getEnvDefault("TR_S3_ENDPOINT", "")
		cfg.S3PublicURL = strings.TrimRight(getEnvDefault("TR_S3_PUBLIC_URL", ""), "/")
	default:
		return nil, fmt.Errorf("TR_ATTACHMENT_BACKEND: недопустимое значение %q, допустимые: local, s3", cfg.AttachmentBackend)
	}

	maxSize, err := getEnvInt("TR_ATTACHMENT_MAX_SIZE", 20<<20)
	if err != nil {
		return nil, fmt.Errorf("TR_ATTACHMENT_MAX_SIZE: %w", err)
	}
	if maxSize < 1 {
		return nil, fmt.Errorf("TR_ATTACHMENT_MAX_SIZE: значение %d должно быть положительным", maxSize)
	}
	cfg.AttachmentMaxSize = int64(maxSize)

	// --- Наблюдаемость ---

	cfg.OTelEndpoint = getEnvDefault("TR_OTEL_ENDPOINT", "")
	cfg.OTelSampling, err = getEnvFloat("TR_OTEL_SAMPLING", 1.0)
	if err != nil {
		return nil, fmt.Errorf("TR_OTEL_SAMPLING: %w", err)
	}
	if cfg.OTelSampling < 0 || cfg.OTelSampling > 1 {
		return nil, fmt.Errorf("TR_OTEL_SAMPLING: значение %v вне диапазона 0..1", cfg.OTelSampling)
	}

	cfg.DephealthCheckInterval, err = getEnvDuration("TR_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TR_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthGroup = getEnvDefault("TR_DEPHEALTH_GROUP", "drem")

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("TR_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TR_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// loadPostgres читает параметры PostgreSQL (обязательны только для backend postgres).
func loadPostgres(cfg *Config) error {
	var err error

	cfg.DBHost, err = getEnvRequired("TR_DB_HOST")
	if err != nil {
		return err
	}

	cfg.DBPort, err = getEnvInt("TR_DB_PORT", 5432)
	if err != nil {
		return fmt.Errorf("TR_DB_PORT: %w", err)
	}

	cfg.DBName, err = getEnvRequired("TR_DB_NAME")
	if err != nil {
		return err
	}

	cfg.DBUser, err = getEnvRequired("TR_DB_USER")
	if err != nil {
		return err
	}

	cfg.DBPassword, err = getEnvRequired("TR_DB_PASSWORD")
	if err != nil {
		return err
	}

	cfg.DBSSLMode = getEnvDefault("TR_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return fmt.Errorf("TR_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}
	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL (для метрик dephealth и миграций).
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// ClassifierEnabled сообщает, настроен ли классификатор.
func (c *Config) ClassifierEnabled() bool {
	return c.ClassifierAPIKey != ""
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное число: %q", val)
	}
	return f, nil
}

// getEnvBool принимает true/false, 1/0, yes/no.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := strings.ToLower(os.Getenv(key))
	switch val {
	case "":
		return defaultVal, nil
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("некорректное логическое значение: %q", val)
	}
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
