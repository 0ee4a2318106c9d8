// Пакет repository — типизированный доступ к коллекциям поверх
// Persistence Gateway. Документы сериализуются в JSON.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/drem-apurimac/tramite/internal/gateway"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = gateway.ErrNotFound
	// ErrConflict — конфликт уникальности (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — запись уже существует")
	// ErrCorrupt — документ хранилища не разбирается в ожидаемую структуру.
	ErrCorrupt = errors.New("повреждённый документ хранилища")
)

// collection — типизированная обёртка над одной коллекцией gateway.
type collection[T any] struct {
	gw   gateway.Gateway
	name string
}

func (c collection[T]) list(ctx context.Context) ([]T, error) {
	docs, err := c.gw.List(ctx, c.name)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка %s: %w", c.name, err)
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := c.decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c collection[T]) get(ctx context.Context, id string) (T, error) {
	var zero T
	doc, err := c.gw.Get(ctx, c.name, id)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("ошибка получения %s[%s]: %w", c.name, id, err)
	}
	return c.decode(doc)
}

func (c collection[T]) put(ctx context.Context, id string, v any, merge bool) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ошибка сериализации %s[%s]: %w", c.name, id, err)
	}
	if err := c.gw.Put(ctx, c.name, id, data, merge); err != nil {
		return fmt.Errorf("ошибка сохранения %s[%s]: %w", c.name, id, err)
	}
	return nil
}

func (c collection[T]) remove(ctx context.Context, id string) error {
	if err := c.gw.Remove(ctx, c.name, id); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка удаления %s[%s]: %w", c.name, id, err)
	}
	return nil
}

func (c collection[T]) decode(doc gateway.Document) (T, error) {
	var v T
	if err := json.Unmarshal(doc.Data, &v); err != nil {
		return v, fmt.Errorf("%w: %s[%s]: %v", ErrCorrupt, c.name, doc.ID, err)
	}
	return v, nil
}
