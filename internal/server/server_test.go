package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/giseoplee/tiptap-mobile-api-server/internal/api/handlers"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/config"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/domain/model"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/service"
)

// todayOnly — DiaryService, отвечающий только на Today.
type todayOnly struct{}

func (todayOnly) Write(context.Context, string, service.EntryInput) (*model.DiaryEntry, error) {
	return nil, service.ErrUnknownToken
}

func (todayOnly) List(context.Context, string, service.ListInput) (*service.ListResult, error) {
	return nil, service.ErrUnknownToken
}

func (todayOnly) Today(context.Context, string) (*service.TodayResult, error) {
	return &service.TodayResult{Stamps: []int{}}, nil
}

func (todayOnly) Update(context.Context, string, int64, service.EntryInput) error {
	return service.ErrUnknownToken
}

func (todayOnly) Delete(context.Context, string, int64) error {
	return service.ErrUnknownToken
}

func newTestRouter(t *testing.T, serveMedia bool) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{MediaDir: dir, MediaBaseURL: "/media", MediaServe: serveMedia}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := NewRouter(cfg,
		handlers.NewDiaryHandler(todayOnly{}, logger),
		handlers.NewHealthHandler(nil, nil),
	)
	return r, dir
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRouter_Routes(t *testing.T) {
	r, _ := newTestRouter(t, false)

	tests := []struct {
		target string
		status int
	}{
		{"/health/live", http.StatusOK},
		{"/health/ready", http.StatusServiceUnavailable},
		{"/metrics", http.StatusOK},
		{"/diary/today", http.StatusOK},
		{"/diary/today?extra=1", http.StatusBadRequest},
		{"/diary/list", http.StatusUnauthorized},
		{"/media/20261019/a.png", http.StatusNotFound},
	}
	for _, tt := range tests {
		if rec := get(r, tt.target); rec.Code != tt.status {
			t.Errorf("GET %s: status = %d, ожидался %d", tt.target, rec.Code, tt.status)
		}
	}
}

func TestRouter_ServesMedia(t *testing.T) {
	r, dir := newTestRouter(t, true)

	if err := os.MkdirAll(filepath.Join(dir, "20261019"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "20261019", "a.png"), []byte("png"), 0o640); err != nil {
		t.Fatal(err)
	}

	rec := get(r, "/media/20261019/a.png")
	if rec.Code != http.StatusOK || rec.Body.String() != "png" {
		t.Errorf("файл: status = %d, тело %q", rec.Code, rec.Body.String())
	}

	if rec := get(r, "/media/20261019/"); rec.Code != http.StatusNotFound {
		t.Errorf("каталог: status = %d, ожидался 404", rec.Code)
	}
}
