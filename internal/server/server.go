// Пакет server — HTTP-сервер Diary Module с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/giseoplee/tiptap-mobile-api-server/internal/api/handlers"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/api/middleware"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/api/validator"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/config"
)

// Server — HTTP-сервер Diary Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с маршрутами /diary, health и (опционально) раздачей медиа.
// middlewares применяются ко всем маршрутам в порядке переданного среза.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	diary *handlers.DiaryHandler,
	health *handlers.HealthHandler,
	middlewares ...func(http.Handler) http.Handler,
) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(cfg, diary, health, middlewares...),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-роутер Diary Module.
func NewRouter(
	cfg *config.Config,
	diary *handlers.DiaryHandler,
	health *handlers.HealthHandler,
	middlewares ...func(http.Handler) http.Handler,
) chi.Router {
	router := chi.NewRouter()
	for _, mw := range middlewares {
		router.Use(mw)
	}

	router.Get("/health/live", health.HealthLive)
	router.Get("/health/ready", health.HealthReady)
	router.Get("/metrics", health.GetMetrics)

	router.Route("/diary", func(r chi.Router) {
		r.Use(middleware.ParamForm(cfg.MediaMaxSize + validator.MaxFormOverhead))
		r.Post("/write", diary.Write)
		r.Get("/list", diary.List)
		r.Get("/today", diary.Today)
		r.Post("/update", diary.Update)
		r.Post("/delete", diary.Delete)
	})

	if cfg.MediaServe {
		files := http.StripPrefix(cfg.MediaBaseURL, noListing(http.FileServer(http.Dir(cfg.MediaDir))))
		router.Get(cfg.MediaBaseURL+"/*", files.ServeHTTP)
	}

	return router
}

// noListing запрещает вывод содержимого каталогов.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
