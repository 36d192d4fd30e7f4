// Пакет service — бизнес-логика Diary Module.
// SessionCache — LRU-кэш сессий с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/giseoplee/tiptap-mobile-api-server/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	sessionCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "diary_session_cache_hits_total",
		Help: "Общее количество попаданий в кэш сессий.",
	})
	sessionCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "diary_session_cache_misses_total",
		Help: "Общее количество промахов кэша сессий.",
	})
)

// SessionCache — in-process кэш сессий по токену.
// Каждый экземпляр сервиса имеет собственный кэш. Наружу отдаются копии,
// поэтому изменение полученной сессии не портит кэш.
// Нулевой размер выключает кэш: Get всегда промахивается, Set ничего не делает.
type SessionCache struct {
	cache *expirable.LRU[string, *model.Session]
}

// NewSessionCache создаёт кэш с указанным максимальным размером и TTL.
func NewSessionCache(maxSize int, ttl time.Duration) *SessionCache {
	if maxSize <= 0 {
		return &SessionCache{}
	}
	return &SessionCache{cache: expirable.NewLRU[string, *model.Session](maxSize, nil, ttl)}
}

// Get возвращает сессию по токену.
// Обновляет Prometheus-метрики hit/miss.
func (c *SessionCache) Get(token string) (*model.Session, bool) {
	if c == nil || c.cache == nil {
		return nil, false
	}
	val, ok := c.cache.Get(token)
	if ok {
		sessionCacheHitsTotal.Inc()
		return val.Clone(), true
	}
	sessionCacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет сессию в кэше.
func (c *SessionCache) Set(sess *model.Session) {
	if c == nil || c.cache == nil {
		return
	}
	c.cache.Add(sess.Token, sess.Clone())
}

// Delete удаляет сессию из кэша.
func (c *SessionCache) Delete(token string) {
	if c == nil || c.cache == nil {
		return
	}
	c.cache.Remove(token)
}
