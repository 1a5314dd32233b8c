// Пакет config — загрузка и валидация конфигурации Certstore
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
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Certstore.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8000-8009)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Табличное API (SheetDB) ---

	// Базовый URL API таблицы (например, https://sheetdb.io/api/v1/xxxx)
	SheetAPIURL string
	// Bearer-токен доступа к API таблицы (опционально)
	SheetAPIToken string
	// Минимальный интервал между запросами к API таблицы
	SheetRateLimitDelay time.Duration
	// Максимальное число повторов запроса при ошибках
	SheetMaxRetries int
	// Размер под-пакета при пакетной записи строк
	SheetBatchSize int
	// Пауза между под-пакетами
	SheetBatchPause time.Duration
	// Окно накопления отложенных обновлений перед сбросом
	SheetBatchDelay time.Duration

	// --- Кэш ---

	// TTL записей кэша чтения таблицы
	CacheTTL time.Duration
	// Максимальное число записей кэша
	CacheSize int

	// --- Публичный портал ---

	// Базовый URL публичного портала проверки сертификатов
	PortalBaseURL string
	// Код события по умолчанию при импорте строк без события
	DefaultEventCode string

	// --- JWT ---

	// Issuer JWT
	JWTIssuer string
	// URL JWKS endpoint
	JWTJWKSURL string
	// Claim для групп в JWT
	JWTGroupsClaim string
	// Путь к CA-сертификату для TLS к JWKS (опционально)
	JWTCACert string
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// --- Маппинг групп → ролей ---

	// Группы, дающие роль admin (через запятую)
	RoleAdminGroups []string
	// Группы, дающие роль readonly (через запятую)
	RoleReadonlyGroups []string

	// --- Уведомления ---

	// URL Discord webhook для событий сертификатов (опционально)
	DiscordWebhookURL string
	// URL Discord webhook для ошибок (опционально, по умолчанию общий)
	DiscordErrorWebhookURL string

	// --- Здоровье зависимостей ---

	// Группа сервиса в topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

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

	// CS_PORT — порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("CS_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("CS_PORT: %w", err)
	}
	if cfg.Port < 8000 || cfg.Port > 8009 {
		return nil, fmt.Errorf("CS_PORT: значение %d вне допустимого диапазона 8000-8009", cfg.Port)
	}

	// CS_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("CS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("CS_LOG_LEVEL: %w", err)
	}

	// CS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("CS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("CS_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// CS_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("CS_DB_HOST")
	if err != nil {
		return nil, err
	}

	// CS_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("CS_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("CS_DB_PORT: %w", err)
	}

	// CS_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("CS_DB_NAME")
	if err != nil {
		return nil, err
	}

	// CS_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("CS_DB_USER")
	if err != nil {
		return nil, err
	}

	// CS_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("CS_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// CS_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("CS_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("CS_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Табличное API ---

	// CS_SHEET_API_URL — обязательный
	cfg.SheetAPIURL, err = getEnvRequired("CS_SHEET_API_URL")
	if err != nil {
		return nil, err
	}
	// Убираем trailing slash
	cfg.SheetAPIURL = strings.TrimRight(cfg.SheetAPIURL, "/")

	// CS_SHEET_API_TOKEN — опциональный bearer-токен
	cfg.SheetAPIToken = getEnvDefault("CS_SHEET_API_TOKEN", "")

	// CS_SHEET_RATE_LIMIT_DELAY — минимальный интервал между запросами (по умолчанию 1s)
	cfg.SheetRateLimitDelay, err = getEnvDuration("CS_SHEET_RATE_LIMIT_DELAY", time.Second)
	if err != nil {
		return nil, fmt.Errorf("CS_SHEET_RATE_LIMIT_DELAY: %w", err)
	}

	// CS_SHEET_MAX_RETRIES — максимум повторов (по умолчанию 3)
	cfg.SheetMaxRetries, err = getEnvInt("CS_SHEET_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("CS_SHEET_MAX_RETRIES: %w", err)
	}
	if cfg.SheetMaxRetries < 0 || cfg.SheetMaxRetries > 10 {
		return nil, fmt.Errorf("CS_SHEET_MAX_RETRIES: значение %d вне допустимого диапазона 0-10", cfg.SheetMaxRetries)
	}

	// CS_SHEET_BATCH_SIZE — размер под-пакета (по умолчанию 5)
	cfg.SheetBatchSize, err = getEnvInt("CS_SHEET_BATCH_SIZE", 5)
	if err != nil {
		return nil, fmt.Errorf("CS_SHEET_BATCH_SIZE: %w", err)
	}
	if cfg.SheetBatchSize < 1 || cfg.SheetBatchSize > 100 {
		return nil, fmt.Errorf("CS_SHEET_BATCH_SIZE: значение %d вне допустимого диапазона 1-100", cfg.SheetBatchSize)
	}

	// CS_SHEET_BATCH_PAUSE — пауза между под-пакетами (по умолчанию 500ms)
	cfg.SheetBatchPause, err = getEnvDuration("CS_SHEET_BATCH_PAUSE", 500*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("CS_SHEET_BATCH_PAUSE: %w", err)
	}

	// CS_SHEET_BATCH_DELAY — окно накопления отложенных обновлений (по умолчанию 3s)
	cfg.SheetBatchDelay, err = getEnvDuration("CS_SHEET_BATCH_DELAY", 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CS_SHEET_BATCH_DELAY: %w", err)
	}

	// --- Кэш ---

	// CS_CACHE_TTL — TTL кэша чтения таблицы (по умолчанию 30s)
	cfg.CacheTTL, err = getEnvDuration("CS_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CS_CACHE_TTL: %w", err)
	}

	// CS_CACHE_SIZE — максимум записей кэша (по умолчанию 128)
	cfg.CacheSize, err = getEnvInt("CS_CACHE_SIZE", 128)
	if err != nil {
		return nil, fmt.Errorf("CS_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 1 || cfg.CacheSize > 100000 {
		return nil, fmt.Errorf("CS_CACHE_SIZE: значение %d вне допустимого диапазона 1-100000", cfg.CacheSize)
	}

	// --- Публичный портал ---

	// CS_PORTAL_BASE_URL — обязательный, вместе с путём до страницы проверки
	// (например https://certs.example.com/certificate); Verification_URL
	// получается добавлением идентификатора
	cfg.PortalBaseURL, err = getEnvRequired("CS_PORTAL_BASE_URL")
	if err != nil {
		return nil, err
	}
	cfg.PortalBaseURL = strings.TrimRight(cfg.PortalBaseURL, "/")

	// CS_DEFAULT_EVENT_CODE — код события по умолчанию при импорте (по умолчанию GENERAL)
	cfg.DefaultEventCode = getEnvDefault("CS_DEFAULT_EVENT_CODE", "GENERAL")

	// --- JWT ---

	// CS_JWT_JWKS_URL — обязательный
	cfg.JWTJWKSURL, err = getEnvRequired("CS_JWT_JWKS_URL")
	if err != nil {
		return nil, err
	}

	// CS_JWT_ISSUER — опциональный, пустой отключает проверку issuer
	cfg.JWTIssuer = getEnvDefault("CS_JWT_ISSUER", "")

	// CS_JWT_GROUPS_CLAIM — claim для групп (по умолчанию groups)
	cfg.JWTGroupsClaim = getEnvDefault("CS_JWT_GROUPS_CLAIM", "groups")

	// CS_JWT_CA_CERT — путь к CA-сертификату для TLS к JWKS (опционально)
	cfg.JWTCACert = getEnvDefault("CS_JWT_CA_CERT", "")

	// CS_JWKS_REFRESH_INTERVAL — интервал обновления JWKS-ключей (по умолчанию 5m)
	cfg.JWKSRefreshInterval, err = getEnvDuration("CS_JWKS_REFRESH_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CS_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// CS_JWT_LEEWAY — допустимое отклонение времени при проверке JWT (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("CS_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CS_JWT_LEEWAY: %w", err)
	}

	// --- Маппинг групп → ролей ---

	// CS_ROLE_ADMIN_GROUPS — группы для роли admin (по умолчанию "certstore-admins")
	cfg.RoleAdminGroups = parseCSV(getEnvDefault("CS_ROLE_ADMIN_GROUPS", "certstore-admins"))

	// CS_ROLE_READONLY_GROUPS — группы для роли readonly (по умолчанию "certstore-viewers")
	cfg.RoleReadonlyGroups = parseCSV(getEnvDefault("CS_ROLE_READONLY_GROUPS", "certstore-viewers"))

	// --- Уведомления ---

	// CS_DISCORD_WEBHOOK_URL — webhook для событий сертификатов (опционально)
	cfg.DiscordWebhookURL = getEnvDefault("CS_DISCORD_WEBHOOK_URL", "")

	// CS_DISCORD_ERROR_WEBHOOK_URL — webhook для ошибок (по умолчанию общий)
	cfg.DiscordErrorWebhookURL = getEnvDefault("CS_DISCORD_ERROR_WEBHOOK_URL", cfg.DiscordWebhookURL)

	// --- Здоровье зависимостей ---

	// CS_DEPHEALTH_GROUP — группа сервиса в topologymetrics (по умолчанию certstore)
	cfg.DephealthGroup = getEnvDefault("CS_DEPHEALTH_GROUP", "certstore")

	// CS_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("CS_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CS_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// CS_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("CS_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CS_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL
// (используется topologymetrics для разбора адреса зависимости).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword),
		c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
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

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
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
