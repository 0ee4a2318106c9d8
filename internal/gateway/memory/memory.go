// Пакет memory — Persistence Gateway в памяти процесса.
// Данные теряются при перезапуске; используется в тестах и для разработки.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/drem-apurimac/tramite/internal/gateway"
)

type collection struct {
	order []string
	docs  map[string]json.RawMessage
}

// Store — потокобезопасное хранилище документов в памяти.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

var _ gateway.Gateway = (*Store)(nil)

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// List возвращает копии документов в порядке первой записи.
func (s *Store) List(ctx context.Context, name string) ([]gateway.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, gateway.ConnectionError("list", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return []gateway.Document{}, nil
	}
	out := make([]gateway.Document, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, gateway.Document{ID: id, Data: clone(c.docs[id])})
	}
	return out, nil
}

// Get возвращает документ или gateway.ErrNotFound.
func (s *Store) Get(ctx context.Context, name, id string) (gateway.Document, error) {
	if err := ctx.Err(); err != nil {
		return gateway.Document{}, gateway.ConnectionError("get", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return gateway.Document{}, gateway.ErrNotFound
	}
	data, ok := c.docs[id]
	if !ok {
		return gateway.Document{}, gateway.ErrNotFound
	}
	return gateway.Document{ID: id, Data: clone(data)}, nil
}

// Put записывает документ; при merge=true сливает поля с существующим.
func (s *Store) Put(ctx context.Context, name, id string, fields json.RawMessage, merge bool) error {
	if err := ctx.Err(); err != nil {
		return gateway.ConnectionError("put", err)
	}
	if err := gateway.ValidateObject(fields); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]json.RawMessage)}
		s.collections[name] = c
	}

	existing, exists := c.docs[id]
	data := clone(fields)
	if merge && exists {
		merged, err := gateway.MergeObjects(existing, fields)
		if err != nil {
			return err
		}
		data = merged
	}
	if !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = data
	return nil
}

// Remove удаляет документ или возвращает gateway.ErrNotFound.
func (s *Store) Remove(ctx context.Context, name, id string) error {
	if err := ctx.Err(); err != nil {
		return gateway.ConnectionError("remove", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return gateway.ErrNotFound
	}
	if _, ok := c.docs[id]; !ok {
		return gateway.ErrNotFound
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Ping всегда успешен.
func (s *Store) Ping(context.Context) error {
	return nil
}

func clone(data json.RawMessage) json.RawMessage {
	return bytes.Clone(data)
}
