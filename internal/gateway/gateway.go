// Пакет gateway — Persistence Gateway: непрозрачное хранилище JSON-документов,
// сгруппированных по коллекциям, с операциями list/get/put/remove по id.
//
// Реализации: memory (тесты, разработка), postgres (JSONB), redis.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Коллекции сервиса.
const (
	CollectionDocuments     = "documents"
	CollectionUsers         = "users"
	CollectionNotifications = "notifications"
	CollectionConfig        = "config"
)

// Ошибки Persistence Gateway.
var (
	// ErrNotFound — документ отсутствует в коллекции.
	ErrNotFound = errors.New("документ не найден")
	// ErrConnection — хранилище недоступно или вернуло ошибку.
	ErrConnection = errors.New("ошибка соединения с хранилищем")
	// ErrInvalidDocument — данные не являются JSON-объектом.
	ErrInvalidDocument = errors.New("документ должен быть JSON-объектом")
)

// Document — документ коллекции. Data — JSON-объект.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Gateway — контракт хранилища документов.
//
// List возвращает документы в порядке первой записи.
// Put с merge=true сохраняет поля, отсутствующие в fields (слияние верхнего
// уровня); merge=false перезаписывает документ целиком. Запись одного
// документа атомарна.
type Gateway interface {
	List(ctx context.Context, collection string) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Put(ctx context.Context, collection, id string, fields json.RawMessage, merge bool) error
	Remove(ctx context.Context, collection, id string) error
}

// Pinger — хранилище, умеющее проверять доступность.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionError оборачивает ошибку backend'а в ErrConnection.
func ConnectionError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrConnection, op, err)
}

// ValidateObject проверяет, что data — JSON-объект.
func ValidateObject(data json.RawMessage) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return ErrInvalidDocument
	}
	return nil
}

// MergeObjects выполняет слияние верхнего уровня: ключи patch заменяют
// ключи base, остальные ключи base сохраняются.
func MergeObjects(base, patch json.RawMessage) (json.RawMessage, error) {
	var dst map[string]json.RawMessage
	if err := json.Unmarshal(base, &dst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var src map[string]json.RawMessage
	if err := json.Unmarshal(patch, &src); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if dst == nil {
		dst = make(map[string]json.RawMessage, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return json.Marshal(dst)
}

// ReadinessChecker — проверка готовности хранилища для health endpoint.
type ReadinessChecker struct {
	name    string
	pinger  Pinger
	timeout time.Duration
}

// NewReadinessChecker создаёт проверку готовности; name попадает в сообщение.
func NewReadinessChecker(name string, p Pinger) *ReadinessChecker {
	return &ReadinessChecker{name: name, pinger: p, timeout: 3 * time.Second}
}

// CheckReady выполняет ping. Возвращает статус ("ok", "fail") и сообщение.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.pinger.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("%s недоступен: %v", c.name, err)
	}
	return "ok", "подключение активно"
}
