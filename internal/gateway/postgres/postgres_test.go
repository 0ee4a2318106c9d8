package postgres

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/drem-apurimac/tramite/internal/config"
	"github.com/drem-apurimac/tramite/internal/database"
	"github.com/drem-apurimac/tramite/internal/gateway"
	"github.com/drem-apurimac/tramite/internal/gateway/gatewaytest"
)

// setupPool поднимает PostgreSQL, применяет миграции и возвращает пул.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		tcpostgres.WithDatabase("tramite_test"),
		tcpostgres.WithUsername("tramite"),
		tcpostgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432")

	t.Setenv("TR_DB_HOST", host)
	t.Setenv("TR_DB_PORT", port.Port())
	t.Setenv("TR_DB_NAME", "tramite_test")
	t.Setenv("TR_DB_USER", "tramite")
	t.Setenv("TR_DB_PASSWORD", "test-password")
	t.Setenv("TR_JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Migrate() вернул ошибку: %v", err)
	}
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestStore_Contract(t *testing.T) {
	pool := setupPool(t)

	gatewaytest.Run(t, func(t *testing.T) gateway.Gateway {
		if _, err := pool.Exec(context.Background(), `TRUNCATE documents`); err != nil {
			t.Fatalf("TRUNCATE: %v", err)
		}
		return New(pool)
	})
}

func TestStore_Ping(t *testing.T) {
	pool := setupPool(t)
	if err := New(pool).Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v", err)
	}
}
