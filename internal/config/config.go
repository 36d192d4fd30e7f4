// Пакет config — загрузка и валидация конфигурации Diary Module
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

// Config содержит все параметры конфигурации Diary Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL (disable, require, verify-ca, verify-full)
	DBSSLMode string

	// --- Redis (хранилище сессий) ---

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Префикс ключа сессии; пусто — ключом служит сам токен
	SessionKeyPrefix string
	// Размер in-process кэша сессий (0 — кэш выключен)
	SessionCacheSize int
	// Время жизни записи в кэше сессий
	SessionCacheTTL time.Duration

	// --- Медиа ---

	// Корневой каталог для файлов записей
	MediaDir string
	// Публичный базовый URL файлов (без завершающего /)
	MediaBaseURL string
	// Максимальный размер файла в байтах
	MediaMaxSize int64
	// Раздавать MediaDir по пути MediaBaseURL
	MediaServe bool

	// --- Дневник ---

	// Часовой пояс для дат (по умолчанию Asia/Seoul)
	Timezone string
	// Размер каталога штампов (идентификаторы 1..N)
	StampCount int
	// Размер страницы /diary/list по умолчанию
	PageSize int

	// --- topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// DIARY_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("DIARY_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("DIARY_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("DIARY_PORT: значение %d вне диапазона 1-65535", cfg.Port)
	}

	logLevel := getEnvDefault("DIARY_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("DIARY_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("DIARY_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("DIARY_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("DIARY_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DIARY_HTTP_READ_TIMEOUT: %w", err)
	}

	// Загрузка файла укладывается в write timeout, поэтому значение больше, чем у read
	cfg.HTTPWriteTimeout, err = getEnvDuration("DIARY_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DIARY_HTTP_WRITE_TIMEOUT: %w", err)
	}

	cfg.HTTPIdleTimeout, err = getEnvDuration("DIARY_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DIARY_HTTP_IDLE_TIMEOUT: %w", err)
	}

	cfg.ShutdownTimeout, err = getEnvDuration("DIARY_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DIARY_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	cfg.DBHost, err = getEnvRequired("DIARY_DB_HOST")
	if err != nil {
		return nil, err
	}

	cfg.DBPort, err = getEnvInt("DIARY_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("DIARY_DB_PORT: %w", err)
	}

	cfg.DBName, err = getEnvRequired("DIARY_DB_NAME")
	if err != nil {
		return nil, err
	}

	cfg.DBUser, err = getEnvRequired("DIARY_DB_USER")
	if err != nil {
		return nil, err
	}

	cfg.DBPassword, err = getEnvRequired("DIARY_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	cfg.DBSSLMode = getEnvDefault("DIARY_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("DIARY_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Redis ---

	cfg.RedisAddr = getEnvDefault("DIARY_REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("DIARY_REDIS_PASSWORD")

	cfg.RedisDB, err = getEnvInt("DIARY_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("DIARY_REDIS_DB: %w", err)
	}
	if cfg.RedisDB < 0 {
		return nil, fmt.Errorf("DIARY_REDIS_DB: значение должно быть >= 0")
	}

	cfg.SessionKeyPrefix = os.Getenv("DIARY_SESSION_KEY_PREFIX")

	cfg.SessionCacheSize, err = getEnvInt("DIARY_SESSION_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("DIARY_SESSION_CACHE_SIZE: %w", err)
	}
	if cfg.SessionCacheSize < 0 {
		return nil, fmt.Errorf("DIARY_SESSION_CACHE_SIZE: значение должно быть >= 0")
	}

	cfg.SessionCacheTTL, err = getEnvDuration("DIARY_SESSION_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DIARY_SESSION_CACHE_TTL: %w", err)
	}

	// --- Медиа ---

	cfg.MediaDir = getEnvDefault("DIARY_MEDIA_DIR", "/data/media")

	cfg.MediaBaseURL = strings.TrimRight(getEnvDefault("DIARY_MEDIA_BASE_URL", "/media"), "/")
	if cfg.MediaBaseURL == "" {
		return nil, fmt.Errorf("DIARY_MEDIA_BASE_URL: значение не может быть пустым")
	}
	if _, err := url.Parse(cfg.MediaBaseURL); err != nil {
		return nil, fmt.Errorf("DIARY_MEDIA_BASE_URL: %w", err)
	}

	// DIARY_MEDIA_MAX_SIZE — по умолчанию 10 MiB
	cfg.MediaMaxSize, err = getEnvInt64("DIARY_MEDIA_MAX_SIZE", 10<<20)
	if err != nil {
		return nil, fmt.Errorf("DIARY_MEDIA_MAX_SIZE: %w", err)
	}
	if cfg.MediaMaxSize <= 0 {
		return nil, fmt.Errorf("DIARY_MEDIA_MAX_SIZE: значение должно быть > 0")
	}

	cfg.MediaServe, err = getEnvBool("DIARY_MEDIA_SERVE", false)
	if err != nil {
		return nil, fmt.Errorf("DIARY_MEDIA_SERVE: %w", err)
	}
	if cfg.MediaServe && !strings.HasPrefix(cfg.MediaBaseURL, "/") {
		return nil, fmt.Errorf("DIARY_MEDIA_SERVE: раздача файлов требует относительный DIARY_MEDIA_BASE_URL, получен %q", cfg.MediaBaseURL)
	}

	// --- Дневник ---

	cfg.Timezone = getEnvDefault("DIARY_TIMEZONE", "Asia/Seoul")
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("DIARY_TIMEZONE: %w", err)
	}

	cfg.StampCount, err = getEnvInt("DIARY_STAMP_COUNT", 12)
	if err != nil {
		return nil, fmt.Errorf("DIARY_STAMP_COUNT: %w", err)
	}
	if cfg.StampCount < 0 {
		return nil, fmt.Errorf("DIARY_STAMP_COUNT: значение должно быть >= 0")
	}

	cfg.PageSize, err = getEnvInt("DIARY_PAGE_SIZE", 3)
	if err != nil {
		return nil, fmt.Errorf("DIARY_PAGE_SIZE: %w", err)
	}
	if cfg.PageSize < 1 {
		return nil, fmt.Errorf("DIARY_PAGE_SIZE: значение должно быть >= 1")
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("DIARY_DEPHEALTH_GROUP", "tiptap")

	cfg.DephealthCheckInterval, err = getEnvDuration("DIARY_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DIARY_DEPHEALTH_CHECK_INTERVAL: %w", err)
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

// DatabaseURL возвращает URL PostgreSQL без пароля (для лейблов topologymetrics).
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.User(c.DBUser),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
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

func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

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

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
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
