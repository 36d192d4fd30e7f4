// metrics.go — Prometheus HTTP метрики Diary Module.
// Регистрирует метрики: diary_http_requests_total, diary_http_request_duration_seconds.
// Нормализация путей предотвращает взрывной рост кардинальности.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diary_http_requests_total",
			Help: "Общее количество HTTP-запросов к Diary Module",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diary_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Diary Module в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// mediaBaseURL — префикс раздачи файлов, все пути под ним сводятся к одному лейблу.
func MetricsMiddleware(mediaBaseURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			normalizedPath := normalizePath(r.URL.Path, mediaBaseURL)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			status := strconv.Itoa(wrapped.statusCode)
			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(time.Since(start).Seconds())
		})
	}
}

// normalizePath сводит путь к конечному набору лейблов.
// /media/20261019/abc.png → /media/*
// /diary/write/ → /diary/write
// неизвестные пути → other
func normalizePath(path, mediaBaseURL string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics":
		return path
	}

	if mediaBaseURL != "" && strings.HasPrefix(path, mediaBaseURL+"/") {
		return mediaBaseURL + "/*"
	}

	trimmed := strings.TrimRight(path, "/")
	switch trimmed {
	case "/diary/write", "/diary/list", "/diary/today", "/diary/update", "/diary/delete":
		return trimmed
	}

	return "other"
}
