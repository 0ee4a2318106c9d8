// dephealth.go — мониторинг зависимостей через topologymetrics SDK.
//
// Сервис мониторит:
//   - PostgreSQL — SQL checker через существующий pgxpool (critical), только для backend postgres
//   - классификатор — HTTP checker к Generative Language API (non-critical), только если задан ключ
//
// Метрики app_dependency_* публикуются на /metrics.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// classifierHealthPath — публичный discovery-документ API, не требует ключа.
const classifierHealthPath = "/$discovery/rest?version=v1beta"

// errNoDependencies — не задано ни одной зависимости для мониторинга.
var errNoDependencies = errors.New("нет зависимостей для мониторинга")

// DephealthOptions — параметры мониторинга.
type DephealthOptions struct {
	ServiceID string
	Group     string
	// DB и PostgresURL задаются только для backend postgres.
	DB          *sql.DB
	PostgresURL string
	// ClassifierURL пуст, если классификатор отключён.
	ClassifierURL string
	CheckInterval time.Duration
	// Registerer — nil означает глобальный registry.
	Registerer prometheus.Registerer
}

// DephealthService — мониторинг зависимостей.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис. Если зависимостей нет, возвращает
// errNoDependencies; вызывающий код в этом случае работает без мониторинга.
func NewDephealthService(opts DephealthOptions, logger *slog.Logger) (*DephealthService, error) {
	deps := make([]dephealth.Option, 0, 4)

	if opts.DB != nil && opts.PostgresURL != "" {
		// Connection pool mode: проверка через *sql.DB поверх pgxpool
		// обнаруживает и исчерпание пула.
		deps = append(deps, dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(opts.DB)),
			dephealth.FromURL(opts.PostgresURL),
			dephealth.CheckInterval(opts.CheckInterval),
			dephealth.Critical(true),
		))
	}

	if opts.ClassifierURL != "" {
		clOpts := []dephealth.DependencyOption{
			dephealth.FromURL(opts.ClassifierURL),
			dephealth.WithHTTPHealthPath(classifierHealthPath),
			dephealth.CheckInterval(opts.CheckInterval),
			dephealth.Critical(false),
		}
		if parsed, err := url.Parse(opts.ClassifierURL); err == nil && parsed.Scheme == "https" {
			clOpts = append(clOpts, dephealth.WithHTTPTLSSkipVerify(false))
		}
		deps = append(deps, dephealth.HTTP("classifier", clOpts...))
	}

	if len(deps) == 0 {
		return nil, errNoDependencies
	}

	all := append([]dephealth.Option{dephealth.WithLogger(logger)}, deps...)
	if opts.Registerer != nil {
		all = append(all, dephealth.WithRegisterer(opts.Registerer))
	}

	dh, err := dephealth.New(opts.ServiceID, opts.Group, all...)
	if err != nil {
		return nil, err
	}
	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// IsNoDependencies сообщает, что мониторить нечего.
func IsNoDependencies(err error) bool {
	return errors.Is(err, errNoDependencies)
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает состояние зависимостей: имя → ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
