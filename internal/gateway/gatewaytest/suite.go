// Пакет gatewaytest — общий набор проверок контракта gateway.Gateway
// для всех backend'ов.
package gatewaytest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drem-apurimac/tramite/internal/gateway"
)

// Run прогоняет проверки контракта. newGateway вызывается для каждого
// подтеста и должен возвращать пустое хранилище.
func Run(t *testing.T, newGateway func(t *testing.T) gateway.Gateway) {
	t.Helper()

	t.Run("пустая коллекция", func(t *testing.T) {
		g := newGateway(t)
		docs, err := g.List(context.Background(), "users")
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("put и get", func(t *testing.T) {
		g := newGateway(t)
		ctx := context.Background()

		require.NoError(t, g.Put(ctx, "users", "u1", json.RawMessage(`{"name":"Ana","role":"Analista"}`), false))

		doc, err := g.Get(ctx, "users", "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", doc.ID)
		assert.JSONEq(t, `{"name":"Ana","role":"Analista"}`, string(doc.Data))
	})

	t.Run("get отсутствующего", func(t *testing.T) {
		g := newGateway(t)
		_, err := g.Get(context.Background(), "users", "nope")
		assert.True(t, errors.Is(err, gateway.ErrNotFound), "ожидается ErrNotFound, получено %v", err)
	})

	t.Run("перезапись без merge", func(t *testing.T) {
		g := newGateway(t)
		ctx := context.Background()

		require.NoError(t, g.Put(ctx, "users", "u1", json.RawMessage(`{"name":"Ana","role":"Analista"}`), false))
		require.NoError(t, g.Put(ctx, "users", "u1", json.RawMessage(`{"name":"Ana María"}`), false))

		doc, err := g.Get(ctx, "users", "u1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"Ana María"}`, string(doc.Data))
	})

	t.Run("слияние при merge", func(t *testing.T) {
		g := newGateway(t)
		ctx := context.Background()

		require.NoError(t, g.Put(ctx, "users", "u1", json.RawMessage(`{"name":"Ana","role":"Analista"}`), false))
		require.NoError(t, g.Put(ctx, "users", "u1", json.RawMessage(`{"role":"Administrador","status":"Activo"}`), true))

		doc, err := g.Get(ctx, "users", "u1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"Ana","role":"Administrador","status":"Activo"}`, string(doc.Data))
	})

	t.Run("merge создаёт отсутствующий документ", func(t *testing.T) {
		g := newGateway(t)
		ctx := context.Background()

		require.NoError(t, g.Put(ctx, "config", "system", json.RawMessage(`{"currentYear":"2026"}`), true))

		doc, err := g.Get(ctx, "config", "system")
		require.NoError(t, err)
		assert.JSONEq(t, `{"currentYear":"2026"}`, string(doc.Data))
	})

	t.Run("порядок list", func(t *testing.T) {
		g := newGateway(t)
		ctx := context.Background()

		for _, id := range []string{"c", "a", "b"} {
			require.NoError(t, g.Put(ctx, "documents", id, json.RawMessage(`{"id":"`+id+`"}`), false))
		}
		// Повторная запись не меняет позицию.
		require.NoError(t, g.Put(ctx, "documents", "c", json.RawMessage(`{"id":"c","v":2}`), false))

		docs, err := g.List(ctx, "documents")
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, []string{"c", "a", "b"}, []string{docs[0].ID, docs[1].ID, docs[2].ID})
	})

	t.Run("коллекции изолированы", func(t *testing.T) {
		g := newGateway(t)
		ctx := context.Background()

		require.NoError(t, g.Put(ctx, "users", "x", json.RawMessage(`{"k":"users"}`), false))
		require.NoError(t, g.Put(ctx, "documents", "x", json.RawMessage(`{"k":"documents"}`), false))

		doc, err := g.Get(ctx, "users", "x")
		require.NoError(t, err)
		assert.JSONEq(t, `{"k":"users"}`, string(doc.Data))
	})

	t.Run("remove", func(t *testing.T) {
		g := newGateway(t)
		ctx := context.Background()

		require.NoError(t, g.Put(ctx, "documents", "d1", json.RawMessage(`{}`), false))
		require.NoError(t, g.Remove(ctx, "documents", "d1"))

		_, err := g.Get(ctx, "documents", "d1")
		assert.True(t, errors.Is(err, gateway.ErrNotFound))

		err = g.Remove(ctx, "documents", "d1")
		assert.True(t, errors.Is(err, gateway.ErrNotFound), "повторный remove: %v", err)

		docs, err := g.List(ctx, "documents")
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("не объект отклоняется", func(t *testing.T) {
		g := newGateway(t)
		err := g.Put(context.Background(), "documents", "d1", json.RawMessage(`[1,2]`), false)
		assert.True(t, errors.Is(err, gateway.ErrInvalidDocument), "ожидается ErrInvalidDocument, получено %v", err)
	})
}
