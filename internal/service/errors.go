// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrUnknownToken — токен не найден в хранилище сессий или сессия повреждена.
	ErrUnknownToken = errors.New("unknown token")
	// ErrNotFound — запись дневника не найдена (или принадлежит другому пользователю).
	ErrNotFound = errors.New("diary not found")
)
