package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/giseoplee/tiptap-mobile-api-server/internal/domain/model"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/media"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/repository"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mock repository ---

// mockRepo — мок EntryRepository. calls считает все вызовы.
type mockRepo struct {
	mu    sync.Mutex
	calls int

	createFn           func(ctx context.Context, e *model.DiaryEntry) error
	updateFn           func(ctx context.Context, c repository.EntryChanges, w repository.Where) (int64, error)
	deleteFn           func(ctx context.Context, w repository.Where) (int64, error)
	countFn            func(ctx context.Context, f repository.ListFilter) (int, error)
	findAllFn          func(ctx context.Context, o repository.ListOptions) ([]*model.DiaryEntry, error)
	findTodayFn        func(ctx context.Context, f repository.ListFilter) ([]*model.DiaryEntry, error)
	findDeleteTargetFn func(ctx context.Context, w repository.Where) (*model.DiaryEntry, error)
}

func (m *mockRepo) hit() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *mockRepo) Create(ctx context.Context, e *model.DiaryEntry) error {
	m.hit()
	if m.createFn != nil {
		return m.createFn(ctx, e)
	}
	e.ID = 1
	return nil
}

func (m *mockRepo) Update(ctx context.Context, c repository.EntryChanges, w repository.Where) (int64, error) {
	m.hit()
	if m.updateFn != nil {
		return m.updateFn(ctx, c, w)
	}
	return 1, nil
}

func (m *mockRepo) Delete(ctx context.Context, w repository.Where) (int64, error) {
	m.hit()
	if m.deleteFn != nil {
		return m.deleteFn(ctx, w)
	}
	return 1, nil
}

func (m *mockRepo) Count(ctx context.Context, f repository.ListFilter) (int, error) {
	m.hit()
	if m.countFn != nil {
		return m.countFn(ctx, f)
	}
	return 0, nil
}

func (m *mockRepo) FindAll(ctx context.Context, o repository.ListOptions) ([]*model.DiaryEntry, error) {
	m.hit()
	if m.findAllFn != nil {
		return m.findAllFn(ctx, o)
	}
	return []*model.DiaryEntry{}, nil
}

func (m *mockRepo) FindToday(ctx context.Context, f repository.ListFilter) ([]*model.DiaryEntry, error) {
	m.hit()
	if m.findTodayFn != nil {
		return m.findTodayFn(ctx, f)
	}
	return []*model.DiaryEntry{}, nil
}

func (m *mockRepo) FindDeleteTarget(ctx context.Context, w repository.Where) (*model.DiaryEntry, error) {
	m.hit()
	if m.findDeleteTargetFn != nil {
		return m.findDeleteTargetFn(ctx, w)
	}
	return nil, repository.ErrNotFound
}

// --- Mock session store ---

// memSessions — потокобезопасное хранилище сессий в памяти.
type memSessions struct {
	mu        sync.Mutex
	sessions  map[string]*model.Session
	gets      int
	exists    int
	updateErr error
}

func newMemSessions(sessions ...*model.Session) *memSessions {
	m := &memSessions{sessions: map[string]*model.Session{}}
	for _, s := range sessions {
		m.sessions[s.Token] = s.Clone()
	}
	return m
}

func (m *memSessions) Get(_ context.Context, token string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	s, ok := m.sessions[token]
	if !ok {
		return nil, session.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *memSessions) Exists(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exists++
	_, ok := m.sessions[token]
	return ok, nil
}

func (m *memSessions) revoke(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

func (m *memSessions) UpdateStamps(_ context.Context, token string, fn session.StampsFunc) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	s, ok := m.sessions[token]
	if !ok {
		return nil, session.ErrNotFound
	}
	next, changed := fn(s.HeldStamps())
	if changed {
		s.Stamps = next
	}
	return s.Clone(), nil
}

func (m *memSessions) stamps(token string) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.sessions[token].Stamps...)
}

// --- Mock media store ---

type mockMedia struct {
	calls     int
	prepareFn func(u media.Upload, token string) (*media.Target, error)
	commitFn  func(t *media.Target, r io.Reader) (*media.Attachment, error)
	deleteFn  func(relPath string) error
	order     []string
}

func (m *mockMedia) Prepare(u media.Upload, token string) (*media.Target, error) {
	m.calls++
	m.order = append(m.order, "prepare")
	if m.prepareFn != nil {
		return m.prepareFn(u, token)
	}
	return &media.Target{DateKey: "20261019", Name: "n.png", RelPath: "20261019/n.png"}, nil
}

func (m *mockMedia) Commit(t *media.Target, r io.Reader) (*media.Attachment, error) {
	m.calls++
	m.order = append(m.order, "commit")
	if m.commitFn != nil {
		return m.commitFn(t, r)
	}
	return &media.Attachment{Path: t.RelPath, URL: "/media/" + t.RelPath, Name: t.Name}, nil
}

func (m *mockMedia) Delete(relPath string) error {
	m.calls++
	m.order = append(m.order, "delete:"+relPath)
	if m.deleteFn != nil {
		return m.deleteFn(relPath)
	}
	return nil
}
