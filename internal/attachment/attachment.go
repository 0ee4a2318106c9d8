// Пакет attachment — хранение PDF-вложений экспедиентов.
// Backend'ы: локальная файловая система и S3-совместимое хранилище.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/drem-apurimac/tramite/internal/config"
)

// ErrInvalidKey — ключ выходит за пределы хранилища.
var ErrInvalidKey = errors.New("недопустимый ключ вложения")

// Store — хранилище вложений.
type Store interface {
	// Put сохраняет содержимое под ключом и возвращает публичный URL.
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	// Delete удаляет объект. Отсутствующий объект не считается ошибкой.
	Delete(ctx context.Context, key string) error
}

// CaseKey формирует ключ вложения экспедиента: cases/{id}/{uuid}{ext}.
func CaseKey(caseID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".pdf"
	}
	return fmt.Sprintf("cases/%s/%s%s", caseID, uuid.NewString(), ext)
}

// cleanKey нормализует ключ и отклоняет выход из корня.
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.HasPrefix(cleaned, "..") || cleaned != key {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// New создаёт хранилище по конфигурации.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.AttachmentBackend {
	case config.AttachmentBackendLocal:
		return NewLocal(cfg.AttachmentDir, cfg.AttachmentBaseURL)
	case config.AttachmentBackendS3:
		return NewS3(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PublicURL: cfg.S3PublicURL,
		})
	default:
		return nil, fmt.Errorf("неизвестный backend вложений: %s", cfg.AttachmentBackend)
	}
}
