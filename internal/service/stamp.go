// stamp.go — начисление штампов за записи дневника.
// Штамп выдаётся после успешного создания записи: случайный из ещё не полученных.
// Каталог исчерпан — начисление пропускается.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/giseoplee/tiptap-mobile-api-server/internal/session"
)

// Prometheus-метрики штампов.
var (
	stampsAwardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "diary_stamps_awarded_total",
		Help: "Общее количество выданных штампов.",
	})
	stampPersistFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "diary_stamp_persist_failures_total",
		Help: "Количество штампов, которые не удалось сохранить в сессии.",
	})
)

// StampCatalog — каталог штампов с идентификаторами 1..Size.
type StampCatalog struct {
	Size int
}

// Remaining возвращает ещё не полученные штампы по возрастанию.
// Идентификаторы вне каталога в held игнорируются.
func (c StampCatalog) Remaining(held []int) []int {
	have := make(map[int]bool, len(held))
	for _, id := range held {
		have[id] = true
	}
	rest := make([]int, 0, c.Size)
	for id := 1; id <= c.Size; id++ {
		if !have[id] {
			rest = append(rest, id)
		}
	}
	return rest
}

// StampAllocator выбирает и сохраняет штамп в сессии пользователя.
type StampAllocator struct {
	catalog StampCatalog
	store   SessionStore
	cache   *SessionCache
	logger  *slog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewStampAllocator создаёт аллокатор. rnd == nil — генератор с случайным seed.
// cache может быть nil.
func NewStampAllocator(catalog StampCatalog, store SessionStore, cache *SessionCache, rnd *rand.Rand, logger *slog.Logger) *StampAllocator {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &StampAllocator{
		catalog: catalog,
		store:   store,
		cache:   cache,
		rnd:     rnd,
		logger:  logger.With(slog.String("component", "stamp_allocator")),
	}
}

// Pick выбирает равновероятно один из оставшихся штампов.
// ok=false, если каталог исчерпан.
func (a *StampAllocator) Pick(held []int) (stamp int, ok bool) {
	rest := a.catalog.Remaining(held)
	if len(rest) == 0 {
		return 0, false
	}
	a.mu.Lock()
	i := a.rnd.IntN(len(rest))
	a.mu.Unlock()
	return rest[i], true
}

// Allocate начисляет штамп сессии token.
// Ошибка сохранения не возвращается: запись уже создана, поэтому сбой
// только логируется и учитывается в diary_stamp_persist_failures_total.
// Возвращает выданный штамп и признак выдачи.
func (a *StampAllocator) Allocate(ctx context.Context, token string) (stamp int, awarded bool) {
	sess, err := a.store.UpdateStamps(ctx, token, func(held []int) ([]int, bool) {
		id, ok := a.Pick(held)
		if !ok {
			stamp, awarded = 0, false
			return held, false
		}
		stamp, awarded = id, true
		next := append(append(make([]int, 0, len(held)+1), held...), id)
		sort.Ints(next)
		return next, true
	})
	if err != nil {
		// Сессия истекла между Resolve и начислением
		if errors.Is(err, session.ErrNotFound) {
			a.cache.Delete(token)
		}
		stampPersistFailuresTotal.Inc()
		a.logger.Warn("Не удалось сохранить штамп",
			slog.Int("stamp", stamp),
			slog.String("error", err.Error()),
		)
		return 0, false
	}

	a.cache.Set(sess)

	if !awarded {
		a.logger.Debug("Каталог штампов исчерпан", slog.String("user_id", sess.UserID))
		return 0, false
	}

	stampsAwardedTotal.Inc()
	a.logger.Debug("Штамп выдан",
		slog.String("user_id", sess.UserID),
		slog.Int("stamp", stamp),
	)
	return stamp, true
}
