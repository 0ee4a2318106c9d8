package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/drem-apurimac/tramite/internal/domain/model"
	"github.com/drem-apurimac/tramite/internal/gateway"
)

// UserPatch — частичное обновление пользователя. nil-поле не меняется.
type UserPatch struct {
	Name     *string           `json:"name,omitempty" validate:"omitnil,notblank,max=128"`
	Email    *string           `json:"email,omitempty" validate:"omitnil,email"`
	Role     *string           `json:"role,omitempty" validate:"omitnil,max=64"`
	Password *string           `json:"password,omitempty" validate:"omitnil,notblank,max=128"`
	AreaID   *string           `json:"areaId,omitempty"`
	Status   *model.UserStatus `json:"status,omitempty" validate:"omitnil,oneof=Activo Inactivo Vacaciones"`
}

// UserRepository — коллекция users.
type UserRepository interface {
	List(ctx context.Context) ([]model.User, error)
	// Get возвращает пользователя по id. Если не найден — ErrNotFound.
	Get(ctx context.Context, id string) (model.User, error)
	// FindByEmail ищет по email без учёта регистра. Если не найден — ErrNotFound.
	FindByEmail(ctx context.Context, email string) (model.User, error)
	// Create сохраняет нового пользователя. Занятый email — ErrConflict.
	Create(ctx context.Context, u model.User) error
	// Update сливает patch с существующей записью и возвращает результат.
	Update(ctx context.Context, id string, patch UserPatch) (model.User, error)
	Delete(ctx context.Context, id string) error
}

type userRepo struct {
	c collection[model.User]
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(gw gateway.Gateway) UserRepository {
	return &userRepo{c: collection[model.User]{gw: gw, name: gateway.CollectionUsers}}
}

func (r *userRepo) List(ctx context.Context) ([]model.User, error) {
	return r.c.list(ctx)
}

func (r *userRepo) Get(ctx context.Context, id string) (model.User, error) {
	return r.c.get(ctx, id)
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	users, err := r.c.list(ctx)
	if err != nil {
		return model.User{}, err
	}
	email = strings.TrimSpace(email)
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, ErrNotFound
}

func (r *userRepo) Create(ctx context.Context, u model.User) error {
	if u.Email != "" {
		_, err := r.FindByEmail(ctx, u.Email)
		switch {
		case err == nil:
			return ErrConflict
		case !errors.Is(err, ErrNotFound):
			return err
		}
	}
	return r.c.put(ctx, u.ID, u, false)
}

func (r *userRepo) Update(ctx context.Context, id string, patch UserPatch) (model.User, error) {
	current, err := r.c.get(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if patch.Email != nil && !strings.EqualFold(*patch.Email, current.Email) {
		other, err := r.FindByEmail(ctx, *patch.Email)
		switch {
		case err == nil && other.ID != id:
			return model.User{}, ErrConflict
		case err != nil && !errors.Is(err, ErrNotFound):
			return model.User{}, err
		}
	}
	if err := r.c.put(ctx, id, patch, true); err != nil {
		return model.User{}, err
	}
	return r.c.get(ctx, id)
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	return r.c.remove(ctx, id)
}
