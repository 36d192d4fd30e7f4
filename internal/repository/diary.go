package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/giseoplee/tiptap-mobile-api-server/internal/domain/model"
)

// entryColumns — список столбцов diary_entries для SELECT-запросов.
const entryColumns = `id, user_id, content, location, latitude, longitude,
	image_path, image_url, created_at, updated_at`

// Where — адресация одной записи. Нулевые поля не участвуют в условии.
type Where struct {
	ID     int64
	UserID string
}

// ListFilter — фильтр выборки записей владельца.
// CreatedFrom включительно, CreatedTo исключительно.
type ListFilter struct {
	UserID      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ListOptions — параметры постраничной выборки (ORDER BY id DESC).
type ListOptions struct {
	Filter ListFilter
	Limit  int
	Offset int
}

// EntryChanges — изменяемые поля записи.
// Поля с nil не попадают в SET и сохраняют прежнее значение.
// ImagePath и ImageURL обновляются только парой и только если ImagePath != nil.
type EntryChanges struct {
	Content   string
	Location  *string
	Latitude  *float64
	Longitude *float64
	ImagePath *string
	ImageURL  *string
}

// criteria — общее представление условий для buildWhere.
type criteria struct {
	id          int64
	userID      string
	createdFrom *time.Time
	createdTo   *time.Time
}

func (w Where) criteria() criteria {
	return criteria{id: w.ID, userID: w.UserID}
}

func (f ListFilter) criteria() criteria {
	return criteria{userID: f.UserID, createdFrom: f.CreatedFrom, createdTo: f.CreatedTo}
}

// DiaryRepository — реализация хранилища записей дневника через pgx.
type DiaryRepository struct {
	db DBTX
}

// NewDiaryRepository создаёт репозиторий записей дневника.
func NewDiaryRepository(db DBTX) *DiaryRepository {
	return &DiaryRepository{db: db}
}

// Create вставляет запись. ID, CreatedAt и UpdatedAt заполняются из БД.
func (r *DiaryRepository) Create(ctx context.Context, e *model.DiaryEntry) error {
	query := `
		INSERT INTO diary_entries (user_id, content, location, latitude, longitude, image_path, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		e.UserID, e.Content, e.Location, e.Latitude, e.Longitude, e.ImagePath, e.ImageURL,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания записи: %w", err)
	}
	return nil
}

// Update изменяет запись по условию w. Возвращает число изменённых строк.
func (r *DiaryRepository) Update(ctx context.Context, changes EntryChanges, w Where) (int64, error) {
	if w.ID <= 0 {
		return 0, ErrUnscoped
	}

	sets := []string{"content = $1"}
	args := []any{changes.Content}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if changes.Location != nil {
		set("location", *changes.Location)
	}
	if changes.Latitude != nil {
		set("latitude", *changes.Latitude)
	}
	if changes.Longitude != nil {
		set("longitude", *changes.Longitude)
	}
	if changes.ImagePath != nil {
		set("image_path", *changes.ImagePath)
		set("image_url", changes.ImageURL)
	}
	sets = append(sets, "updated_at = now()")

	where, whereArgs := buildWhere(w.criteria(), len(args)+1)
	args = append(args, whereArgs...)

	query := fmt.Sprintf(`UPDATE diary_entries SET %s %s`, strings.Join(sets, ", "), where)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("ошибка обновления записи: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete удаляет запись по условию w. Возвращает число удалённых строк.
func (r *DiaryRepository) Delete(ctx context.Context, w Where) (int64, error) {
	if w.ID <= 0 {
		return 0, ErrUnscoped
	}

	where, args := buildWhere(w.criteria(), 1)
	tag, err := r.db.Exec(ctx, `DELETE FROM diary_entries `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления записи: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count возвращает количество записей, попадающих под фильтр.
func (r *DiaryRepository) Count(ctx context.Context, f ListFilter) (int, error) {
	where, args := buildWhere(f.criteria(), 1)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM diary_entries `+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта записей: %w", err)
	}
	return total, nil
}

// FindAll возвращает страницу записей, новые первыми.
func (r *DiaryRepository) FindAll(ctx context.Context, opts ListOptions) ([]*model.DiaryEntry, error) {
	where, args := buildWhere(opts.Filter.criteria(), 1)
	argNum := len(args) + 1

	query := fmt.Sprintf(
		`SELECT %s FROM diary_entries %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		entryColumns, where, argNum, argNum+1,
	)
	args = append(args, opts.Limit, opts.Offset)

	return r.query(ctx, query, args...)
}

// FindToday возвращает все записи за интервал фильтра, новые первыми.
func (r *DiaryRepository) FindToday(ctx context.Context, f ListFilter) ([]*model.DiaryEntry, error) {
	where, args := buildWhere(f.criteria(), 1)
	query := fmt.Sprintf(`SELECT %s FROM diary_entries %s ORDER BY id DESC`, entryColumns, where)

	return r.query(ctx, query, args...)
}

// FindDeleteTarget возвращает запись, чей файл будет заменён или удалён, или ErrNotFound.
func (r *DiaryRepository) FindDeleteTarget(ctx context.Context, w Where) (*model.DiaryEntry, error) {
	if w.ID <= 0 {
		return nil, ErrUnscoped
	}

	where, args := buildWhere(w.criteria(), 1)
	query := fmt.Sprintf(`SELECT %s FROM diary_entries %s`, entryColumns, where)

	e, err := scanEntry(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}
	return e, nil
}

func (r *DiaryRepository) query(ctx context.Context, query string, args ...any) ([]*model.DiaryEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки записей: %w", err)
	}
	defer rows.Close()

	result := make([]*model.DiaryEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

func scanEntry(row pgx.Row) (*model.DiaryEntry, error) {
	e := &model.DiaryEntry{}
	err := row.Scan(
		&e.ID, &e.UserID, &e.Content, &e.Location, &e.Latitude, &e.Longitude,
		&e.ImagePath, &e.ImageURL, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// buildWhere строит WHERE-условие и аргументы.
// startArg — номер первого $-параметра (для корректной нумерации).
func buildWhere(c criteria, startArg int) (whereClause string, args []any) {
	var conditions []string
	argNum := startArg

	if c.id > 0 {
		conditions = append(conditions, fmt.Sprintf("id = $%d", argNum))
		args = append(args, c.id)
		argNum++
	}

	if c.userID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argNum))
		args = append(args, c.userID)
		argNum++
	}

	if c.createdFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argNum))
		args = append(args, *c.createdFrom)
		argNum++
	}

	if c.createdTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argNum))
		args = append(args, *c.createdTo)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}
