// Пакет clock — единая точка работы со временем и часовым поясом сервиса.
// Ключ партиции медиа (YYYYMMDD), границы «сегодня» и диапазоны дат /list
// вычисляются только здесь, чтобы тесты могли зафиксировать часы.
package clock

import (
	"fmt"
	"time"
	_ "time/tzdata" // Asia/Seoul доступен и в distroless-образе без zoneinfo
)

// DefaultZone — часовой пояс по умолчанию.
const DefaultZone = "Asia/Seoul"

const partitionLayout = "20060102"

// Clock — источник текущего времени в фиксированном часовом поясе.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New создаёт Clock для указанного часового пояса.
// Пустая строка — DefaultZone.
func New(zone string) (*Clock, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("загрузка часового пояса %q: %w", zone, err)
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// Fixed создаёт Clock, всегда возвращающий t (для тестов).
func Fixed(t time.Time, loc *time.Location) *Clock {
	return &Clock{loc: loc, now: func() time.Time { return t }}
}

// Location возвращает часовой пояс.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Now возвращает текущее время в часовом поясе сервиса.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// PartitionKey возвращает ключ партиции медиа для момента t: YYYYMMDD.
func (c *Clock) PartitionKey(t time.Time) string {
	return t.In(c.loc).Format(partitionLayout)
}

// DayRange возвращает полуинтервал [начало дня, начало следующего дня) для t.
func (c *Clock) DayRange(t time.Time) (from, to time.Time) {
	t = t.In(c.loc)
	from = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
	return from, from.AddDate(0, 0, 1)
}

// Midnight переносит календарную дату d в полночь часового пояса сервиса.
func (c *Clock) Midnight(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, c.loc)
}
