// Пакет postgres — Persistence Gateway поверх таблицы documents (JSONB).
// Запросы — чистый SQL через pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/drem-apurimac/tramite/internal/gateway"
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store — хранилище документов в PostgreSQL.
type Store struct {
	db DBTX
}

var _ gateway.Gateway = (*Store)(nil)

// New создаёт хранилище поверх db.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// List возвращает документы коллекции в порядке первой записи.
func (s *Store) List(ctx context.Context, collection string) ([]gateway.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, data FROM documents WHERE collection = $1 ORDER BY seq`,
		collection,
	)
	if err != nil {
		return nil, gateway.ConnectionError("list", err)
	}
	defer rows.Close()

	out := make([]gateway.Document, 0)
	for rows.Next() {
		var doc gateway.Document
		var data []byte
		if err := rows.Scan(&doc.ID, &data); err != nil {
			return nil, gateway.ConnectionError("list", err)
		}
		doc.Data = data
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, gateway.ConnectionError("list", err)
	}
	return out, nil
}

// Get возвращает документ или gateway.ErrNotFound.
func (s *Store) Get(ctx context.Context, collection, id string) (gateway.Document, error) {
	var data []byte
	err := s.db.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return gateway.Document{}, gateway.ErrNotFound
		}
		return gateway.Document{}, gateway.ConnectionError("get", err)
	}
	return gateway.Document{ID: id, Data: data}, nil
}

// Put выполняет upsert. При merge=true поля сливаются оператором ||
// (слияние верхнего уровня JSONB), иначе документ заменяется.
func (s *Store) Put(ctx context.Context, collection, id string, fields json.RawMessage, merge bool) error {
	if err := gateway.ValidateObject(fields); err != nil {
		return err
	}

	query := `INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = NOW()`
	if merge {
		query = `INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET
			data = documents.data || EXCLUDED.data,
			updated_at = NOW()`
	}

	if _, err := s.db.Exec(ctx, query, collection, id, string(fields)); err != nil {
		return gateway.ConnectionError("put", err)
	}
	return nil
}

// Remove удаляет документ или возвращает gateway.ErrNotFound.
func (s *Store) Remove(ctx context.Context, collection, id string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return gateway.ConnectionError("remove", err)
	}
	if tag.RowsAffected() == 0 {
		return gateway.ErrNotFound
	}
	return nil
}

// Ping проверяет доступность базы.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return gateway.ConnectionError("ping", err)
	}
	return nil
}
