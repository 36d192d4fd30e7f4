package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/giseoplee/tiptap-mobile-api-server/internal/domain/model"
)

// --- Тесты buildWhere ---

func TestBuildWhere_Empty(t *testing.T) {
	where, args := buildWhere(criteria{}, 1)

	if where != "" {
		t.Errorf("where = %q, ожидалась пустая строка", where)
	}
	if len(args) != 0 {
		t.Errorf("args count = %d, ожидался 0", len(args))
	}
}

// TestBuildWhere_IDAndOwner проверяет адресацию записи по id и владельцу.
func TestBuildWhere_IDAndOwner(t *testing.T) {
	where, args := buildWhere(Where{ID: 7, UserID: "user-1"}.criteria(), 1)

	if where != "WHERE id = $1 AND user_id = $2" {
		t.Errorf("where = %q", where)
	}
	if len(args) != 2 || args[0] != int64(7) || args[1] != "user-1" {
		t.Errorf("args = %v", args)
	}
}

// TestBuildWhere_Range проверяет полуинтервал created_at.
func TestBuildWhere_Range(t *testing.T) {
	from := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(3001, 1, 1, 0, 0, 0, 0, time.UTC)
	f := ListFilter{UserID: "user-1", CreatedFrom: &from, CreatedTo: &to}

	where, args := buildWhere(f.criteria(), 1)

	if !strings.Contains(where, "created_at >= $2") {
		t.Errorf("where = %q, ожидалось created_at >= $2", where)
	}
	if !strings.Contains(where, "created_at < $3") {
		t.Errorf("where = %q, ожидалось created_at < $3 (исключительная граница)", where)
	}
	if len(args) != 3 {
		t.Errorf("args count = %d, ожидался 3", len(args))
	}
}

func TestBuildWhere_StartArgOffset(t *testing.T) {
	where, _ := buildWhere(Where{ID: 1, UserID: "u"}.criteria(), 5)

	if where != "WHERE id = $5 AND user_id = $6" {
		t.Errorf("where = %q", where)
	}
}

// --- Мок DBTX ---

type mockRow struct {
	scanFn func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	return r.scanFn(dest...)
}

type mockDB struct {
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.execFn(ctx, sql, args...)
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return m.queryFn(ctx, sql, args...)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.queryRowFn(ctx, sql, args...)
}

// TestUpdate_WithoutImage проверяет, что без нового файла image_path не трогается.
func TestUpdate_WithoutImage(t *testing.T) {
	var gotSQL string
	var gotArgs []any
	db := &mockDB{
		execFn: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			gotSQL, gotArgs = sql, args
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}
	repo := NewDiaryRepository(db)

	loc := "l"
	n, err := repo.Update(context.Background(), EntryChanges{Content: "c", Location: &loc}, Where{ID: 3, UserID: "u"})
	if err != nil {
		t.Fatalf("Update ошибка: %v", err)
	}
	if n != 1 {
		t.Errorf("rows = %d, ожидалась 1", n)
	}
	if strings.Contains(gotSQL, "image_path") {
		t.Errorf("SQL = %q, image_path не должен обновляться", gotSQL)
	}
	if !strings.Contains(gotSQL, "SET content = $1, location = $2, updated_at = now()") {
		t.Errorf("SQL = %q", gotSQL)
	}
	if !strings.Contains(gotSQL, "WHERE id = $3 AND user_id = $4") {
		t.Errorf("SQL = %q, ожидалось условие по id и владельцу", gotSQL)
	}
	if len(gotArgs) != 4 {
		t.Errorf("args count = %d, ожидалось 4", len(gotArgs))
	}
}

// TestUpdate_OnlyContent проверяет, что непереданные поля не попадают в SET.
func TestUpdate_OnlyContent(t *testing.T) {
	var gotSQL string
	var gotArgs []any
	db := &mockDB{
		execFn: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			gotSQL, gotArgs = sql, args
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}
	repo := NewDiaryRepository(db)

	if _, err := repo.Update(context.Background(), EntryChanges{Content: "new"}, Where{ID: 3, UserID: "u"}); err != nil {
		t.Fatalf("Update ошибка: %v", err)
	}
	for _, col := range []string{"location", "latitude", "longitude", "image_path"} {
		if strings.Contains(gotSQL, col) {
			t.Errorf("SQL = %q, столбец %s не должен обновляться", gotSQL, col)
		}
	}
	if !strings.Contains(gotSQL, "WHERE id = $2 AND user_id = $3") {
		t.Errorf("SQL = %q", gotSQL)
	}
	if len(gotArgs) != 3 || gotArgs[0] != "new" {
		t.Errorf("args = %v", gotArgs)
	}
}

// TestUpdate_Coordinates проверяет нумерацию плейсхолдеров при частичном наборе полей.
func TestUpdate_Coordinates(t *testing.T) {
	var gotSQL string
	var gotArgs []any
	db := &mockDB{
		execFn: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			gotSQL, gotArgs = sql, args
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}
	repo := NewDiaryRepository(db)

	lat, lng := 37.5, 127.0
	if _, err := repo.Update(context.Background(),
		EntryChanges{Content: "c", Latitude: &lat, Longitude: &lng},
		Where{ID: 9, UserID: "u"}); err != nil {
		t.Fatalf("Update ошибка: %v", err)
	}
	if !strings.Contains(gotSQL, "SET content = $1, latitude = $2, longitude = $3, updated_at = now()") {
		t.Errorf("SQL = %q", gotSQL)
	}
	if len(gotArgs) != 5 || gotArgs[1] != 37.5 || gotArgs[2] != 127.0 {
		t.Errorf("args = %v", gotArgs)
	}
}

// TestUpdate_WithImage проверяет, что файл обновляется парой path + url.
func TestUpdate_WithImage(t *testing.T) {
	var gotSQL string
	db := &mockDB{
		execFn: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			gotSQL = sql
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
	}
	repo := NewDiaryRepository(db)

	path, url := "20261019/a.png", "/media/20261019/a.png"
	n, err := repo.Update(context.Background(),
		EntryChanges{Content: "c", ImagePath: &path, ImageURL: &url},
		Where{ID: 3, UserID: "u"})
	if err != nil {
		t.Fatalf("Update ошибка: %v", err)
	}
	if n != 0 {
		t.Errorf("rows = %d, ожидался 0", n)
	}
	if !strings.Contains(gotSQL, "image_path = $2, image_url = $3") {
		t.Errorf("SQL = %q", gotSQL)
	}
	if !strings.Contains(gotSQL, "WHERE id = $4 AND user_id = $5") {
		t.Errorf("SQL = %q", gotSQL)
	}
}

// TestUpdate_Unscoped проверяет защиту от UPDATE без id.
func TestUpdate_Unscoped(t *testing.T) {
	db := &mockDB{
		execFn: func(context.Context, string, ...any) (pgconn.CommandTag, error) {
			t.Fatal("Exec не должен вызываться")
			return pgconn.CommandTag{}, nil
		},
	}
	repo := NewDiaryRepository(db)

	if _, err := repo.Update(context.Background(), EntryChanges{}, Where{UserID: "u"}); !errors.Is(err, ErrUnscoped) {
		t.Errorf("ошибка = %v, ожидалась ErrUnscoped", err)
	}
	if _, err := repo.Delete(context.Background(), Where{}); !errors.Is(err, ErrUnscoped) {
		t.Errorf("ошибка = %v, ожидалась ErrUnscoped", err)
	}
}

func TestFindDeleteTarget_NotFound(t *testing.T) {
	db := &mockDB{
		queryRowFn: func(context.Context, string, ...any) pgx.Row {
			return &mockRow{scanFn: func(...any) error { return pgx.ErrNoRows }}
		},
	}
	repo := NewDiaryRepository(db)

	_, err := repo.FindDeleteTarget(context.Background(), Where{ID: 1, UserID: "u"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ошибка = %v, ожидалась ErrNotFound", err)
	}
}

// TestCreate_ScansReturning проверяет заполнение полей из RETURNING.
func TestCreate_ScansReturning(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	db := &mockDB{
		queryRowFn: func(_ context.Context, sql string, args ...any) pgx.Row {
			if !strings.Contains(sql, "RETURNING id, created_at, updated_at") {
				t.Errorf("SQL = %q", sql)
			}
			if args[0] != "user-1" {
				t.Errorf("user_id = %v", args[0])
			}
			return &mockRow{scanFn: func(dest ...any) error {
				*dest[0].(*int64) = 42
				*dest[1].(*time.Time) = now
				*dest[2].(*time.Time) = now
				return nil
			}}
		},
	}
	repo := NewDiaryRepository(db)

	e := &model.DiaryEntry{UserID: "user-1", Content: "hello"}
	if err := repo.Create(context.Background(), e); err != nil {
		t.Fatalf("Create ошибка: %v", err)
	}
	if e.ID != 42 || !e.CreatedAt.Equal(now) {
		t.Errorf("entry = %+v", e)
	}
}

func TestCount_WrapsError(t *testing.T) {
	dbErr := errors.New("connection reset")
	db := &mockDB{
		queryRowFn: func(context.Context, string, ...any) pgx.Row {
			return &mockRow{scanFn: func(...any) error { return dbErr }}
		},
	}
	repo := NewDiaryRepository(db)

	_, err := repo.Count(context.Background(), ListFilter{UserID: "u"})
	if !errors.Is(err, dbErr) {
		t.Errorf("ошибка = %v, ожидалась обёртка над %v", err, dbErr)
	}
}
