package service

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // драйвер "pgx" для sql.Open
	"github.com/prometheus/client_golang/prometheus"
)

// TestNewDephealthService проверяет создание сервиса с изолированным registry.
// sql.Open не устанавливает соединение, поэтому PostgreSQL для теста не нужен.
func TestNewDephealthService(t *testing.T) {
	db, err := sql.Open("pgx", "postgres://tiptap@localhost:5432/tiptap?sslmode=disable")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	ds, err := NewDephealthServiceWithRegisterer(
		"diary-module-test",
		"tiptap",
		db,
		"postgres://tiptap@localhost:5432/tiptap?sslmode=disable",
		5*time.Second,
		discardLogger(),
		prometheus.NewRegistry(),
	)
	if err != nil {
		t.Fatalf("Ошибка создания DephealthService: %v", err)
	}
	if ds == nil {
		t.Fatal("DephealthService nil")
	}
}
