// diary.go — сервис записей дневника.
// Каждая операция — последовательность шагов с ранним выходом:
// токен → (файл) → хранилище записей → (пагинация | штамп).
// Первый же шаг с ошибкой останавливает операцию.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/giseoplee/tiptap-mobile-api-server/internal/clock"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/domain/model"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/media"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/repository"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/session"
)

// Prometheus-метрики операций с записями.
var entryOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "diary_entry_operations_total",
	Help: "Количество операций с записями дневника по типу и результату.",
}, []string{"operation", "result"})

// Границы диапазона /diary/list по умолчанию.
var (
	defaultStartDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	defaultEndDate   = time.Date(3000, 12, 31, 0, 0, 0, 0, time.UTC)
)

// EntryRepository — хранилище записей дневника.
type EntryRepository interface {
	Create(ctx context.Context, e *model.DiaryEntry) error
	Update(ctx context.Context, changes repository.EntryChanges, w repository.Where) (int64, error)
	Delete(ctx context.Context, w repository.Where) (int64, error)
	Count(ctx context.Context, f repository.ListFilter) (int, error)
	FindAll(ctx context.Context, opts repository.ListOptions) ([]*model.DiaryEntry, error)
	FindToday(ctx context.Context, f repository.ListFilter) ([]*model.DiaryEntry, error)
	FindDeleteTarget(ctx context.Context, w repository.Where) (*model.DiaryEntry, error)
}

// SessionStore — хранилище сессий.
type SessionStore interface {
	Get(ctx context.Context, token string) (*model.Session, error)
	Exists(ctx context.Context, token string) (bool, error)
	UpdateStamps(ctx context.Context, token string, fn session.StampsFunc) (*model.Session, error)
}

// MediaStore — хранилище прикреплённых файлов.
type MediaStore interface {
	Prepare(u media.Upload, token string) (*media.Target, error)
	Commit(target *media.Target, r io.Reader) (*media.Attachment, error)
	Delete(relPath string) error
}

// TokenResolver — сопоставление токена с сессией.
type TokenResolver struct {
	store  SessionStore
	cache  *SessionCache
	logger *slog.Logger
}

// NewTokenResolver создаёт резолвер токенов. cache может быть nil.
func NewTokenResolver(store SessionStore, cache *SessionCache, logger *slog.Logger) *TokenResolver {
	return &TokenResolver{
		store:  store,
		cache:  cache,
		logger: logger.With(slog.String("component", "token_resolver")),
	}
}

// Resolve возвращает сессию по токену или ErrUnknownToken.
// Сбой самого хранилища возвращается как обычная ошибка.
// Сессия из кэша возвращается только пока её ключ есть в Redis.
func (r *TokenResolver) Resolve(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrUnknownToken
	}

	if sess, ok := r.cache.Get(token); ok {
		exists, err := r.store.Exists(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("проверка сессии: %w", err)
		}
		if exists {
			return sess, nil
		}
		r.cache.Delete(token)
		r.logger.Debug("Сессия удалена из Redis, запись кэша сброшена")
		return nil, ErrUnknownToken
	}

	sess, err := r.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrMalformed) {
			r.logger.Debug("Неизвестный токен", slog.String("reason", err.Error()))
			return nil, ErrUnknownToken
		}
		return nil, fmt.Errorf("получение сессии: %w", err)
	}

	r.cache.Set(sess)
	return sess, nil
}

// EntryInput — поля записи из запроса.
// Location, Latitude и Longitude равны nil, если поле не передано.
type EntryInput struct {
	Content   string
	Location  *string
	Latitude  *float64
	Longitude *float64
	// File — прикреплённый файл (nil, если не передан)
	File *media.Upload
}

// ListInput — параметры /diary/list. Нулевые значения — значения по умолчанию.
type ListInput struct {
	Page  int
	Limit int
	// StartDate, EndDate — календарные даты; EndDate включительно
	StartDate *time.Time
	EndDate   *time.Time
}

// ListResult — страница записей.
type ListResult struct {
	List []*model.DiaryEntry
	// TotalPages — количество страниц при текущем размере
	TotalPages int
	// Stamps — штампы пользователя
	Stamps []int
}

// TodayResult — записи за сегодня.
type TodayResult struct {
	List   []*model.DiaryEntry
	Stamps []int
}

// DiaryService — операции с записями дневника.
type DiaryService struct {
	tokens   *TokenResolver
	repo     EntryRepository
	media    MediaStore
	stamps   *StampAllocator
	clock    *clock.Clock
	pageSize int
	logger   *slog.Logger
}

// NewDiaryService создаёт сервис записей.
func NewDiaryService(
	tokens *TokenResolver,
	repo EntryRepository,
	mediaStore MediaStore,
	stamps *StampAllocator,
	clk *clock.Clock,
	pageSize int,
	logger *slog.Logger,
) *DiaryService {
	return &DiaryService{
		tokens:   tokens,
		repo:     repo,
		media:    mediaStore,
		stamps:   stamps,
		clock:    clk,
		pageSize: pageSize,
		logger:   logger.With(slog.String("component", "diary_service")),
	}
}

// Write создаёт запись и начисляет штамп.
func (s *DiaryService) Write(ctx context.Context, token string, in EntryInput) (*model.DiaryEntry, error) {
	sess, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	entry := &model.DiaryEntry{
		UserID:    sess.UserID,
		Content:   in.Content,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
	}
	if in.Location != nil {
		entry.Location = *in.Location
	}

	if in.File != nil {
		att, err := s.attach(*in.File, token)
		if err != nil {
			entryOpsTotal.WithLabelValues("write", "error").Inc()
			return nil, err
		}
		entry.ImagePath = &att.Path
		entry.ImageURL = &att.URL
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		entryOpsTotal.WithLabelValues("write", "error").Inc()
		return nil, fmt.Errorf("создание записи: %w", err)
	}
	entryOpsTotal.WithLabelValues("write", "success").Inc()

	s.logger.Info("Запись создана",
		slog.Int64("id", entry.ID),
		slog.String("user_id", entry.UserID),
		slog.Bool("with_image", entry.HasImage()),
	)

	s.stamps.Allocate(ctx, token)
	return entry, nil
}

// List возвращает страницу записей пользователя за диапазон дат.
func (s *DiaryService) List(ctx context.Context, token string, in ListInput) (*ListResult, error) {
	sess, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	page := in.Page
	if page < 1 {
		page = 1
	}
	size := in.Limit
	if size < 1 {
		size = s.pageSize
	}

	start, end := defaultStartDate, defaultEndDate
	if in.StartDate != nil {
		start = *in.StartDate
	}
	if in.EndDate != nil {
		end = *in.EndDate
	}
	from := s.clock.Midnight(start)
	to := s.clock.Midnight(end).AddDate(0, 0, 1)

	filter := repository.ListFilter{UserID: sess.UserID, CreatedFrom: &from, CreatedTo: &to}

	count, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("подсчёт записей: %w", err)
	}

	win := Paginate(count, page, size)
	list := []*model.DiaryEntry{}
	if count > 0 {
		list, err = s.repo.FindAll(ctx, repository.ListOptions{Filter: filter, Limit: win.Limit, Offset: win.Offset})
		if err != nil {
			return nil, fmt.Errorf("выборка записей: %w", err)
		}
	}

	return &ListResult{List: list, TotalPages: win.TotalPages, Stamps: sess.HeldStamps()}, nil
}

// Today возвращает записи пользователя за текущий день.
func (s *DiaryService) Today(ctx context.Context, token string) (*TodayResult, error) {
	sess, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	from, to := s.clock.DayRange(s.clock.Now())
	list, err := s.repo.FindToday(ctx, repository.ListFilter{UserID: sess.UserID, CreatedFrom: &from, CreatedTo: &to})
	if err != nil {
		return nil, fmt.Errorf("выборка записей за сегодня: %w", err)
	}

	return &TodayResult{List: list, Stamps: sess.HeldStamps()}, nil
}

// Update изменяет запись владельца. С новым файлом старый файл удаляется.
func (s *DiaryService) Update(ctx context.Context, token string, id int64, in EntryInput) error {
	sess, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return err
	}

	where := repository.Where{ID: id, UserID: sess.UserID}
	changes := repository.EntryChanges{
		Content:   in.Content,
		Location:  in.Location,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
	}

	if in.File != nil {
		prev, err := s.repo.FindDeleteTarget(ctx, where)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("поиск записи: %w", err)
		}

		target, err := s.media.Prepare(*in.File, token)
		if err != nil {
			return err
		}

		if prev.HasImage() {
			if err := s.media.Delete(*prev.ImagePath); err != nil {
				s.logger.Warn("Не удалось удалить прежний файл записи",
					slog.Int64("id", id),
					slog.String("path", *prev.ImagePath),
					slog.String("error", err.Error()),
				)
			}
		}

		att, err := s.media.Commit(target, in.File.Reader)
		if err != nil {
			return err
		}
		changes.ImagePath = &att.Path
		changes.ImageURL = &att.URL
	}

	n, err := s.repo.Update(ctx, changes, where)
	if err != nil {
		entryOpsTotal.WithLabelValues("update", "error").Inc()
		return fmt.Errorf("обновление записи: %w", err)
	}
	if n == 0 {
		entryOpsTotal.WithLabelValues("update", "not_found").Inc()
		return ErrNotFound
	}
	entryOpsTotal.WithLabelValues("update", "success").Inc()

	s.logger.Info("Запись обновлена", slog.Int64("id", id), slog.String("user_id", sess.UserID))
	return nil
}

// Delete удаляет запись по id.
// Токен проверяется, но удаление не ограничено владельцем.
func (s *DiaryService) Delete(ctx context.Context, token string, id int64) error {
	sess, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return err
	}

	n, err := s.repo.Delete(ctx, repository.Where{ID: id})
	if err != nil {
		entryOpsTotal.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("удаление записи: %w", err)
	}
	if n == 0 {
		entryOpsTotal.WithLabelValues("delete", "not_found").Inc()
		return ErrNotFound
	}
	entryOpsTotal.WithLabelValues("delete", "success").Inc()

	s.logger.Info("Запись удалена", slog.Int64("id", id), slog.String("user_id", sess.UserID))
	return nil
}

// attach записывает файл новой записи.
func (s *DiaryService) attach(u media.Upload, token string) (*media.Attachment, error) {
	target, err := s.media.Prepare(u, token)
	if err != nil {
		return nil, err
	}
	return s.media.Commit(target, u.Reader)
}
