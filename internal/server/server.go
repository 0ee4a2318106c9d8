// Пакет server — HTTP-сервер сервиса учёта экспедиентов с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/drem-apurimac/tramite/internal/api/handlers"
	"github.com/drem-apurimac/tramite/internal/api/middleware"
	"github.com/drem-apurimac/tramite/internal/api/openapi"
	"github.com/drem-apurimac/tramite/internal/config"
)

// publicPrefixes — пути без аутентификации.
// Health и metrics проверяются Kubernetes напрямую, ссылки /files открываются браузером.
var publicPrefixes = []string{"/health/", "/metrics", "/api/v1/auth/", "/api/v1/openapi.yaml", "/files/"}

// Options — необязательные компоненты сервера.
type Options struct {
	// Auth — проверка сессии; nil отключает аутентификацию (тесты).
	Auth *middleware.SessionAuth
	// Validator — проверка запросов по OpenAPI-контракту.
	Validator *middleware.RequestValidator
	// FilesDir — каталог локальных вложений, раздаваемый по /files/.
	FilesDir string
}

// Server — HTTP-сервер API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, handler handlers.ServerInterface, opts Options) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      newRouter(logger, handler, opts),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
		cfg:    cfg,
	}
}

// Handler возвращает корневой обработчик.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func newRouter(logger *slog.Logger, handler handlers.ServerInterface, opts Options) chi.Router {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.Tracing("tramite"))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	if opts.Auth != nil {
		router.Use(withExclusions(opts.Auth.Middleware(), publicPrefixes...))
	}
	if opts.Validator != nil {
		router.Use(opts.Validator.Middleware())
	}

	if opts.FilesDir != "" {
		router.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(opts.FilesDir))))
	}

	router.Get("/api/v1/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(openapi.Raw())
	})

	handlers.HandlerFromMux(handler, router)
	return router
}

// withExclusions пропускает запросы к excludePrefixes мимо mw.
func withExclusions(mw func(http.Handler) http.Handler, excludePrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		protected := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			protected.ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM)
// или отмены ctx. Затем выполняется graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case <-ctx.Done():
		s.logger.Info("Контекст сервера отменён")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
