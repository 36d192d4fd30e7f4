// Точка входа Diary Module.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL и Redis,
// собирает сервисный слой и запускает HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/giseoplee/tiptap-mobile-api-server/internal/api/handlers"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/api/middleware"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/clock"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/config"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/database"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/media"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/repository"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/server"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/service"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/session"
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
	logger.Info("Diary Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("timezone", cfg.Timezone),
	)

	clk, err := clock.New(cfg.Timezone)
	if err != nil {
		logger.Error("Ошибка часового пояса", slog.String("error", err.Error()))
		os.Exit(1)
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

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Redis — хранилище сессий
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Ошибка подключения к Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	logger.Info("Подключение к Redis установлено", slog.String("addr", cfg.RedisAddr))

	// 6. Хранилище файлов
	mediaStore, err := media.New(cfg.MediaDir, cfg.MediaBaseURL, cfg.MediaMaxSize, clk)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища файлов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 7. Сервисный слой
	sessions := session.NewRedisStore(rdb, cfg.SessionKeyPrefix)
	sessionCache := service.NewSessionCache(cfg.SessionCacheSize, cfg.SessionCacheTTL)
	tokens := service.NewTokenResolver(sessions, sessionCache, logger)
	stamps := service.NewStampAllocator(
		service.StampCatalog{Size: cfg.StampCount},
		sessions, sessionCache, nil, logger,
	)
	diarySvc := service.NewDiaryService(
		tokens,
		repository.NewDiaryRepository(pool),
		mediaStore,
		stamps,
		clk,
		cfg.PageSize,
		logger,
	)

	// 8. topologymetrics — мониторинг PostgreSQL
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"diary-module",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	}

	// 9. HTTP handlers
	healthHandler := handlers.NewHealthHandler(
		database.NewReadinessChecker(pool),
		session.NewReadinessChecker(rdb),
	)
	diaryHandler := handlers.NewDiaryHandler(diarySvc, logger)

	// 10. HTTP-сервер: metrics → logging
	srv := server.New(cfg, logger, diaryHandler, healthHandler,
		middleware.MetricsMiddleware(cfg.MediaBaseURL),
		middleware.RequestLogger(logger),
	)

	// 11. Запуск сервера (блокирующий вызов с graceful shutdown)
	runErr := srv.Run()

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
		os.Exit(1)
	}

	logger.Info("Diary Module остановлен")
}
