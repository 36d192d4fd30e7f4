// Пакет model — доменные модели diary module.
package model

import "time"

// DiaryEntry — запись дневника (таблица diary_entries).
// ImagePath и ImageURL либо оба заданы, либо оба nil.
type DiaryEntry struct {
	// ID — идентификатор, назначается БД
	ID int64 `json:"id"`
	// UserID — владелец записи (из сессии), после создания не меняется
	UserID string `json:"userId"`
	// Content — текст записи
	Content string `json:"content"`
	// Location — название места
	Location string `json:"location"`
	// Latitude, Longitude — координаты (опционально)
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	// ImagePath — путь файла относительно корня медиа (опционально)
	ImagePath *string `json:"imagePath,omitempty"`
	// ImageURL — публичный URL файла (опционально)
	ImageURL *string `json:"imageUrl,omitempty"`
	// CreatedAt — время создания, назначается БД
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt — время последнего изменения
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasImage сообщает, прикреплён ли к записи файл.
func (e *DiaryEntry) HasImage() bool {
	return e.ImagePath != nil && *e.ImagePath != ""
}
