package repository

import (
	"context"
	"errors"

	"github.com/drem-apurimac/tramite/internal/domain/model"
	"github.com/drem-apurimac/tramite/internal/gateway"
)

// systemConfigID — id единственного документа конфигурации.
const systemConfigID = "system"

// SettingsRepository — документ config/system.
type SettingsRepository interface {
	// Get возвращает конфигурацию; при отсутствии документа — значения по умолчанию.
	Get(ctx context.Context) (model.SystemConfig, error)
	// Save перезаписывает конфигурацию целиком.
	Save(ctx context.Context, cfg model.SystemConfig) error
}

type settingsRepo struct {
	c collection[model.SystemConfig]
}

// NewSettingsRepository создаёт репозиторий системной конфигурации.
func NewSettingsRepository(gw gateway.Gateway) SettingsRepository {
	return &settingsRepo{c: collection[model.SystemConfig]{gw: gw, name: gateway.CollectionConfig}}
}

func (r *settingsRepo) Get(ctx context.Context) (model.SystemConfig, error) {
	cfg, err := r.c.get(ctx, systemConfigID)
	if errors.Is(err, ErrNotFound) {
		return model.DefaultSystemConfig(), nil
	}
	return cfg, err
}

func (r *settingsRepo) Save(ctx context.Context, cfg model.SystemConfig) error {
	return r.c.put(ctx, systemConfigID, cfg, false)
}
