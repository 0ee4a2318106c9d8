// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"

	"github.com/drem-apurimac/tramite/internal/classifier"
	"github.com/drem-apurimac/tramite/internal/domain/tracking"
	"github.com/drem-apurimac/tramite/internal/domain/validation"
	"github.com/drem-apurimac/tramite/internal/gateway"
	"github.com/drem-apurimac/tramite/internal/repository"
)

var (
	// ErrValidation — ошибка валидации входных данных.
	// Подробности по полям — в *validation.Error той же цепочки.
	ErrValidation = errors.New("ошибка валидации")
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — недопустимый переход статуса или дублирующийся ресурс.
	ErrConflict = errors.New("конфликт состояния ресурса")
	// ErrConnection — хранилище недоступно.
	ErrConnection = errors.New("хранилище недоступно")
	// ErrInvalidCredentials — неверный идентификатор или пароль.
	ErrInvalidCredentials = errors.New("неверный идентификатор или пароль")
	// ErrForbidden — операция запрещена для текущего пользователя.
	ErrForbidden = errors.New("операция запрещена")
	// ErrUnavailable — классификатор или хранилище вложений недоступны.
	ErrUnavailable = errors.New("внешний сервис недоступен")
)

// classify переводит ошибку нижних слоёв в ошибку сервиса,
// сохраняя исходную цепочку для errors.As.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		verr *validation.Error
		terr *tracking.TransitionError
	)
	switch {
	case errors.As(err, &verr):
		return fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
	case errors.As(err, &terr):
		return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
	case errors.Is(err, classifier.ErrUnavailable):
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	case errors.Is(err, gateway.ErrConnection):
		return fmt.Errorf("%s: %w: %w", op, ErrConnection, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
