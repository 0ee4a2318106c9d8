package redis

import (
	"context"
	"os"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/drem-apurimac/tramite/internal/gateway"
	"github.com/drem-apurimac/tramite/internal/gateway/gatewaytest"
)

// setupClient запускает Redis в Docker-контейнере через testcontainers.
func setupClient(t *testing.T) *goredis.Client {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "docker.io/redis:7-alpine")
	if err != nil {
		t.Fatalf("Не удалось запустить Redis контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить адрес Redis: %v", err)
	}
	client, err := Connect(ctx, uri)
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestStore_Contract(t *testing.T) {
	client := setupClient(t)

	gatewaytest.Run(t, func(t *testing.T) gateway.Gateway {
		if err := client.FlushDB(context.Background()).Err(); err != nil {
			t.Fatalf("FLUSHDB: %v", err)
		}
		return New(client, "")
	})
}

func TestConnect_InvalidURL(t *testing.T) {
	if _, err := Connect(context.Background(), "::not-a-url"); err == nil {
		t.Error("Connect() с некорректным URL должен вернуть ошибку")
	}
}

func TestStore_Keys(t *testing.T) {
	s := New(nil, "x")
	if got := s.dataKey("users"); got != "x:users" {
		t.Errorf("dataKey() = %q", got)
	}
	if got := s.orderKey("users"); got != "x:users:order" {
		t.Errorf("orderKey() = %q", got)
	}
	if got := New(nil, "").prefix; got != DefaultPrefix {
		t.Errorf("prefix = %q, ожидается %q", got, DefaultPrefix)
	}
}
