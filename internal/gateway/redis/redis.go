// Пакет redis — Persistence Gateway поверх Redis.
//
// Коллекция хранится в hash {prefix}:{collection} (поле — id, значение — JSON),
// порядок первой записи — в sorted set {prefix}:{collection}:order.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/drem-apurimac/tramite/internal/gateway"
)

// DefaultPrefix — префикс ключей по умолчанию.
const DefaultPrefix = "tramite"

// maxMergeRetries — число повторов optimistic-транзакции merge.
const maxMergeRetries = 10

// Store — хранилище документов в Redis.
type Store struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ gateway.Gateway = (*Store)(nil)

// Connect разбирает URL, создаёт клиент и проверяет соединение ping'ом.
func Connect(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора URL Redis: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
	}
	return client, nil
}

// New создаёт хранилище. Пустой prefix заменяется на DefaultPrefix.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix, now: time.Now}
}

func (s *Store) dataKey(collection string) string {
	return s.prefix + ":" + collection
}

func (s *Store) orderKey(collection string) string {
	return s.prefix + ":" + collection + ":order"
}

// List возвращает документы в порядке первой записи.
func (s *Store) List(ctx context.Context, collection string) ([]gateway.Document, error) {
	ids, err := s.client.ZRange(ctx, s.orderKey(collection), 0, -1).Result()
	if err != nil {
		return nil, gateway.ConnectionError("list", err)
	}
	out := make([]gateway.Document, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	values, err := s.client.HMGet(ctx, s.dataKey(collection), ids...).Result()
	if err != nil {
		return nil, gateway.ConnectionError("list", err)
	}
	for i, v := range values {
		// Документ удалён между ZRANGE и HMGET.
		str, ok := v.(string)
		if !ok {
			continue
		}
		out = append(out, gateway.Document{ID: ids[i], Data: json.RawMessage(str)})
	}
	return out, nil
}

// Get возвращает документ или gateway.ErrNotFound.
func (s *Store) Get(ctx context.Context, collection, id string) (gateway.Document, error) {
	data, err := s.client.HGet(ctx, s.dataKey(collection), id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return gateway.Document{}, gateway.ErrNotFound
		}
		return gateway.Document{}, gateway.ConnectionError("get", err)
	}
	return gateway.Document{ID: id, Data: data}, nil
}

// Put записывает документ. Merge выполняется в WATCH-транзакции,
// конкурентная запись того же ключа приводит к повтору.
func (s *Store) Put(ctx context.Context, collection, id string, fields json.RawMessage, merge bool) error {
	if err := gateway.ValidateObject(fields); err != nil {
		return err
	}
	if !merge {
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.write(ctx, pipe, collection, id, fields)
			return nil
		})
		if err != nil {
			return gateway.ConnectionError("put", err)
		}
		return nil
	}

	key := s.dataKey(collection)
	txf := func(tx *redis.Tx) error {
		data := fields
		existing, err := tx.HGet(ctx, key, id).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			data, err = gateway.MergeObjects(existing, fields)
			if err != nil {
				return err
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.write(ctx, pipe, collection, id, data)
			return nil
		})
		return err
	}

	for range maxMergeRetries {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, gateway.ErrInvalidDocument) {
			return err
		}
		return gateway.ConnectionError("put", err)
	}
	return gateway.ConnectionError("put", fmt.Errorf("merge %s/%s: превышено число повторов", collection, id))
}

func (s *Store) write(ctx context.Context, pipe redis.Pipeliner, collection, id string, data json.RawMessage) {
	pipe.HSet(ctx, s.dataKey(collection), id, string(data))
	// NX сохраняет позицию первой записи.
	pipe.ZAddNX(ctx, s.orderKey(collection), redis.Z{
		Score:  float64(s.now().UnixNano()),
		Member: id,
	})
}

// Remove удаляет документ или возвращает gateway.ErrNotFound.
func (s *Store) Remove(ctx context.Context, collection, id string) error {
	var deleted *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.HDel(ctx, s.dataKey(collection), id)
		pipe.ZRem(ctx, s.orderKey(collection), id)
		return nil
	})
	if err != nil {
		return gateway.ConnectionError("remove", err)
	}
	if deleted.Val() == 0 {
		return gateway.ErrNotFound
	}
	return nil
}

// Ping проверяет доступность Redis.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return gateway.ConnectionError("ping", err)
	}
	return nil
}
