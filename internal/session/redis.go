// Пакет session — хранилище сессий пользователей в Redis.
// Сессии создаются login flow вне Diary Module; здесь они читаются
// и дополняются полученными штампами.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/giseoplee/tiptap-mobile-api-server/internal/domain/model"
)

// Ошибки хранилища сессий.
var (
	// ErrNotFound — ключа сессии нет в Redis.
	ErrNotFound = errors.New("сессия не найдена")
	// ErrMalformed — значение сессии не является ожидаемым JSON.
	ErrMalformed = errors.New("некорректное значение сессии")
	// ErrConflict — штампы не удалось записать за maxTxRetries попыток.
	ErrConflict = errors.New("конкурентное изменение сессии")
)

// maxTxRetries — число повторов WATCH/MULTI при конкурентной записи.
const maxTxRetries = 5

// stampField — имя поля штампов в JSON-значении сессии.
const stampField = "stamp"

// StampsFunc получает текущие штампы и возвращает новые.
// changed=false — запись не нужна.
type StampsFunc func(held []int) (next []int, changed bool)

// RedisStore — хранилище сессий поверх go-redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore создаёт хранилище. prefix добавляется к токену при построении ключа.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + token
}

// Get возвращает сессию по токену.
func (s *RedisStore) Get(ctx context.Context, token string) (*model.Session, error) {
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("чтение сессии: %w", err)
	}
	return decode(token, data)
}

// Exists проверяет, что ключ сессии ещё есть в Redis.
func (s *RedisStore) Exists(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("проверка сессии: %w", err)
	}
	return n > 0, nil
}

// UpdateStamps атомарно изменяет штампы сессии через WATCH/MULTI/EXEC.
// fn может вызываться несколько раз (при конфликте транзакция повторяется).
// Остальные поля значения и TTL ключа сохраняются.
// Возвращает сессию в том виде, в каком она лежит в Redis после вызова.
func (s *RedisStore) UpdateStamps(ctx context.Context, token string, fn StampsFunc) (*model.Session, error) {
	key := s.key(token)
	var result *model.Session

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}

		sess, err := decode(token, data)
		if err != nil {
			return err
		}

		next, changed := fn(sess.HeldStamps())
		if !changed {
			result = sess
			return nil
		}

		updated, err := withStamps(data, next)
		if err != nil {
			return err
		}

		ttl, err := tx.TTL(ctx, key).Result()
		if err != nil {
			return err
		}
		var expiration time.Duration
		if ttl > 0 {
			expiration = ttl
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, expiration)
			return nil
		})
		if err != nil {
			return err
		}

		sess.Stamps = next
		result = sess
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrMalformed) {
			return nil, err
		}
		return nil, fmt.Errorf("запись штампов: %w", err)
	}
	return nil, ErrConflict
}

// decode разбирает JSON-значение сессии.
func decode(token string, data []byte) (*model.Session, error) {
	sess := &model.Session{}
	if err := json.Unmarshal(data, sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if sess.UserID == "" {
		return nil, fmt.Errorf("%w: пустой key", ErrMalformed)
	}
	sess.Token = token
	return sess, nil
}

// withStamps заменяет поле stamp, не трогая остальные поля значения.
func withStamps(data []byte, stamps []int) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	raw, err := json.Marshal(stamps)
	if err != nil {
		return nil, err
	}
	fields[stampField] = raw
	return json.Marshal(fields)
}

// ReadinessChecker — проверка готовности Redis для health endpoint.
type ReadinessChecker struct {
	client *redis.Client
}

// NewReadinessChecker создаёт проверку готовности Redis.
func NewReadinessChecker(client *redis.Client) *ReadinessChecker {
	return &ReadinessChecker{client: client}
}

// CheckReady проверяет подключение к Redis через PING.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return "fail", fmt.Sprintf("Redis недоступен: %v", err)
	}
	return "ok", "подключение активно"
}
