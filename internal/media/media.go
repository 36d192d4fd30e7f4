// Пакет media — файлы, прикреплённые к записям дневника.
// Файлы раскладываются по каталогам дня (YYYYMMDD в часовом поясе сервиса)
// и записываются по схеме temp файл → SHA-256 → fsync → atomic rename.
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/giseoplee/tiptap-mobile-api-server/internal/clock"
)

// Ошибки медиа-конвейера.
var (
	// ErrInvalidType — тип файла не входит в список разрешённых изображений.
	ErrInvalidType = errors.New("недопустимый тип файла")
	// ErrTooLarge — файл превышает допустимый размер.
	ErrTooLarge = errors.New("файл превышает допустимый размер")
	// ErrWrite — сбой файловой системы при записи файла.
	ErrWrite = errors.New("ошибка записи файла")
)

// allowedTypes — разрешённые MIME-типы.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
	"image/heic": true,
	"image/heif": true,
}

// extraExtTypes — собственная таблица расширений. Проверяется раньше системной
// таблицы mime, содержимое которой зависит от хоста.
var extraExtTypes = map[string]string{
	".heic": "image/heic",
	".heif": "image/heif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// Upload — входящий файл из multipart-запроса.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Target — место будущей записи файла.
type Target struct {
	// DateKey — каталог дня, YYYYMMDD
	DateKey string
	// Dir — абсолютный путь каталога дня
	Dir string
	// Name — имя файла на диске
	Name string
	// RelPath — путь относительно корня медиа: DateKey/Name
	RelPath string
	// FullPath — абсолютный путь файла
	FullPath string
	// ContentType — проверенный MIME-тип
	ContentType string
}

// Attachment — результат записи файла.
type Attachment struct {
	// Path — путь относительно корня медиа (хранится в image_path)
	Path string
	// URL — публичный URL (хранится в image_url)
	URL string
	// Name — имя файла на диске
	Name string
	// Size — записано байт
	Size int64
	// Checksum — SHA-256 содержимого
	Checksum string
}

// Store — хранилище файлов записей на локальной файловой системе.
type Store struct {
	root    string
	baseURL string
	maxSize int64
	clock   *clock.Clock
}

// New создаёт Store. Корневой каталог создаётся при отсутствии.
func New(root, baseURL string, maxSize int64, clk *clock.Clock) (*Store, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог медиа %s: %w", root, err)
	}
	return &Store{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
		clock:   clk,
	}, nil
}

// EnsureDir создаёт каталог дня для момента now. Идемпотентна.
func (s *Store) EnsureDir(now time.Time) (dateKey, dir string, err error) {
	dateKey = s.clock.PartitionKey(now)
	dir = filepath.Join(s.root, dateKey)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", "", fmt.Errorf("%w: создание каталога %s: %v", ErrWrite, dir, err)
	}
	return dateKey, dir, nil
}

// DeriveTarget формирует имя файла: <sha256(token)[:12]>_<HHMMSS>_<uuid[:8]><.ext>.
func (s *Store) DeriveTarget(filename, dateKey, token string, now time.Time) *Target {
	sum := sha256.Sum256([]byte(token))
	name := fmt.Sprintf("%s_%s_%s%s",
		hex.EncodeToString(sum[:])[:12],
		now.In(s.clock.Location()).Format("150405"),
		uuid.New().String()[:8],
		safeExt(filename),
	)
	rel := path.Join(dateKey, name)
	return &Target{
		DateKey:  dateKey,
		Dir:      filepath.Join(s.root, dateKey),
		Name:     name,
		RelPath:  rel,
		FullPath: filepath.Join(s.root, filepath.FromSlash(rel)),
	}
}

// CheckType возвращает MIME-тип файла или ErrInvalidType.
// Заявленный тип части multipart приоритетнее; если его нет
// или он не конкретен, тип определяется по расширению.
func CheckType(contentType, filename string) (string, error) {
	typ := ""
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			typ = strings.ToLower(mt)
		}
	}
	if typ == "" || typ == "application/octet-stream" {
		typ = typeByExt(filename)
	}
	if !allowedTypes[typ] {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, typ)
	}
	return typ, nil
}

// Prepare готовит запись файла: каталог дня, имя, проверка типа.
func (s *Store) Prepare(u Upload, token string) (*Target, error) {
	if u.Size > s.maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, u.Size, s.maxSize)
	}

	now := s.clock.Now()
	dateKey, _, err := s.EnsureDir(now)
	if err != nil {
		return nil, err
	}

	target := s.DeriveTarget(u.Filename, dateKey, token, now)

	typ, err := CheckType(u.ContentType, u.Filename)
	if err != nil {
		return nil, err
	}
	target.ContentType = typ

	return target, nil
}

// Commit записывает данные из reader в target.
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (s *Store) Commit(target *Target, reader io.Reader) (*Attachment, error) {
	tmpPath := target.FullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("%w: создание временного файла: %v", ErrWrite, err)
	}

	hasher := sha256.New()
	// +1 байт, чтобы отличить файл ровно maxSize от превышения
	tee := io.TeeReader(io.LimitReader(reader, s.maxSize+1), hasher)

	size, err := io.Copy(f, tee)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: запись данных: %v", ErrWrite, err)
	}
	if size > s.maxSize {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: больше %d байт", ErrTooLarge, s.maxSize)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: fsync: %v", ErrWrite, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: закрытие файла: %v", ErrWrite, err)
	}

	if err := os.Rename(tmpPath, target.FullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: атомарное переименование: %v", ErrWrite, err)
	}

	return &Attachment{
		Path:     target.RelPath,
		URL:      s.URL(target.RelPath),
		Name:     target.Name,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// URL возвращает публичный URL файла по относительному пути.
func (s *Store) URL(relPath string) string {
	return s.baseURL + "/" + relPath
}

// Delete удаляет файл по относительному пути.
// Возвращает nil, если файла уже нет.
func (s *Store) Delete(relPath string) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", relPath, err)
	}
	return nil
}

// resolve переводит относительный путь в абсолютный, не выпуская его за корень.
func (s *Store) resolve(relPath string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(relPath))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("путь %q вне каталога медиа", relPath)
	}
	return full, nil
}

func typeByExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return ""
	}
	if typ, ok := extraExtTypes[ext]; ok {
		return typ
	}
	if typ := mime.TypeByExtension(ext); typ != "" {
		if mt, _, err := mime.ParseMediaType(typ); err == nil {
			return mt
		}
	}
	return ""
}

// safeExt возвращает расширение в нижнем регистре или "", если оно подозрительное.
func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}
