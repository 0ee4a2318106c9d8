package attachment

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local — вложения в каталоге файловой системы, раздаются по baseURL.
type Local struct {
	dir     string
	baseURL string
}

// NewLocal создаёт каталог при необходимости.
func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога вложений: %w", err)
	}
	return &Local{dir: dir, baseURL: baseURL}, nil
}

// Dir возвращает корневой каталог (для раздачи файлов HTTP-сервером).
func (l *Local) Dir() string {
	return l.dir
}

// BaseURL возвращает префикс публичных URL.
func (l *Local) BaseURL() string {
	return l.baseURL
}

// Put записывает файл атомарно через временный файл.
func (l *Local) Put(ctx context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	full := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("ошибка создания каталога: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("ошибка создания файла: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // после rename файла уже нет

	if _, err := io.Copy(tmp, readerWithContext(ctx, body)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("ошибка записи файла: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("ошибка записи файла: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", fmt.Errorf("ошибка сохранения файла: %w", err)
	}
	return l.baseURL + "/" + key, nil
}

// Delete удаляет файл.
func (l *Local) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(l.dir, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла: %w", err)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
