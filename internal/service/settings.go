package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/drem-apurimac/tramite/internal/domain/model"
	"github.com/drem-apurimac/tramite/internal/domain/validation"
	"github.com/drem-apurimac/tramite/internal/repository"
)

// SettingsService — системная конфигурация учреждения.
type SettingsService struct {
	settings repository.SettingsRepository
	logger   *slog.Logger
}

// NewSettingsService создаёт сервис конфигурации.
func NewSettingsService(settings repository.SettingsRepository, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		settings: settings,
		logger:   logger.With(slog.String("component", "settings_service")),
	}
}

// Get возвращает конфигурацию; при первом обращении — значения по умолчанию.
func (s *SettingsService) Get(ctx context.Context) (model.SystemConfig, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return model.SystemConfig{}, classify("получение конфигурации", err)
	}
	return cfg, nil
}

// Save сохраняет конфигурацию целиком.
func (s *SettingsService) Save(ctx context.Context, cfg model.SystemConfig) (model.SystemConfig, error) {
	cfg.InstitutionName = strings.TrimSpace(cfg.InstitutionName)
	cfg.CurrentYear = strings.TrimSpace(cfg.CurrentYear)
	if err := validateConfig(cfg); err != nil {
		return model.SystemConfig{}, classify("сохранение конфигурации", err)
	}
	if err := s.settings.Save(ctx, cfg); err != nil {
		return model.SystemConfig{}, classify("сохранение конфигурации", err)
	}
	s.logger.Info("Конфигурация сохранена",
		slog.String("current_year", cfg.CurrentYear),
		slog.Bool("maintenance", cfg.SystemMaintenanceMode),
	)
	return cfg, nil
}

func validateConfig(cfg model.SystemConfig) error {
	var fields []validation.FieldError
	if cfg.InstitutionName == "" {
		fields = append(fields, validation.FieldError{Field: "institutionName", Reason: "обязательное поле"})
	}
	if !isYear(cfg.CurrentYear) {
		fields = append(fields, validation.FieldError{
			Field: "currentYear", Reason: fmt.Sprintf("ожидается год из 4 цифр, получено %q", cfg.CurrentYear),
		})
	}
	if cfg.DeadlineNormal < 1 {
		fields = append(fields, validation.FieldError{Field: "deadlineNormal", Reason: "должно быть не меньше 1"})
	}
	if cfg.DeadlineUrgent < 1 {
		fields = append(fields, validation.FieldError{Field: "deadlineUrgent", Reason: "должно быть не меньше 1"})
	}
	return validation.Fields(fields...)
}

func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
