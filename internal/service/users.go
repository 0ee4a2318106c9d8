package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/drem-apurimac/tramite/internal/auth"
	"github.com/drem-apurimac/tramite/internal/domain/area"
	"github.com/drem-apurimac/tramite/internal/domain/model"
	"github.com/drem-apurimac/tramite/internal/domain/validation"
	"github.com/drem-apurimac/tramite/internal/repository"
)

// Session — результат успешного входа.
type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      model.User `json:"user"`
}

// NewUser — поля создаваемого пользователя. Пустые поля получают значения
// по умолчанию: статус Activo, роль Operador, пароль Drem2026.
type NewUser struct {
	Name     string           `json:"name" validate:"notblank,max=128"`
	Email    string           `json:"email" validate:"required,email"`
	Role     string           `json:"role" validate:"max=64"`
	Password string           `json:"password" validate:"max=128"`
	AreaID   string           `json:"areaId"`
	Status   model.UserStatus `json:"status" validate:"omitempty,oneof=Activo Inactivo Vacaciones"`
}

// UserService — учётные записи и вход.
type UserService struct {
	users     repository.UserRepository
	tokens    *auth.Tokens
	areas     *area.Directory
	validator *validation.Validator
	logger    *slog.Logger
}

// NewUserService создаёт сервис пользователей.
func NewUserService(users repository.UserRepository, tokens *auth.Tokens, areas *area.Directory, v *validation.Validator, logger *slog.Logger) *UserService {
	return &UserService{
		users:     users,
		tokens:    tokens,
		areas:     areas,
		validator: v,
		logger:    logger.With(slog.String("component", "user_service")),
	}
}

// Authenticate ищет первого пользователя, у которого email или роль
// совпадает с identifier без учёта регистра, и сравнивает пароль.
// Статус пользователя на вход не влияет.
func (s *UserService) Authenticate(ctx context.Context, identifier, password string) (model.User, error) {
	id := strings.ToLower(strings.TrimSpace(identifier))
	if id == "" || password == "" {
		return model.User{}, ErrInvalidCredentials
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return model.User{}, classify("аутентификация", err)
	}
	for _, u := range users {
		if (strings.ToLower(u.Email) == id || strings.ToLower(u.Role) == id) && u.Password == password {
			return u.Public(), nil
		}
	}
	return model.User{}, ErrInvalidCredentials
}

// Login аутентифицирует пользователя и выпускает токен сессии.
func (s *UserService) Login(ctx context.Context, identifier, password string) (Session, error) {
	u, err := s.Authenticate(ctx, identifier, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Warn("Неудачная попытка входа", slog.String("identifier", identifier))
		}
		return Session{}, err
	}

	token, expires, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, fmt.Errorf("выпуск токена: %w", err)
	}

	s.logger.Info("Пользователь вошёл в систему",
		slog.String("user_id", u.ID),
		slog.String("role", u.Role),
	)
	return Session{Token: token, ExpiresAt: expires, User: u}, nil
}

// List возвращает пользователей без паролей.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, classify("список пользователей", err)
	}
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// Get возвращает пользователя без пароля.
func (s *UserService) Get(ctx context.Context, id string) (model.User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return model.User{}, classify("получение пользователя", err)
	}
	return u.Public(), nil
}

// Create добавляет пользователя.
func (s *UserService) Create(ctx context.Context, in NewUser) (model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return model.User{}, classify("создание пользователя", err)
	}
	if err := s.checkArea(in.AreaID); err != nil {
		return model.User{}, classify("создание пользователя", err)
	}

	u := model.User{
		ID:       uuid.NewString(),
		Name:     in.Name,
		Email:    in.Email,
		Role:     in.Role,
		Password: in.Password,
		AreaID:   in.AreaID,
		Status:   in.Status,
	}
	if u.Role == "" {
		u.Role = model.RoleOperator
	}
	if u.Password == "" {
		u.Password = model.DefaultPassword
	}
	if u.Status == "" {
		u.Status = model.UserActive
	}

	if err := s.users.Create(ctx, u); err != nil {
		return model.User{}, classify("создание пользователя", err)
	}
	s.logger.Info("Пользователь создан",
		slog.String("user_id", u.ID),
		slog.String("email", u.Email),
		slog.String("role", u.Role),
	)
	return u.Public(), nil
}

// Update сливает изменения с сохранённой записью.
func (s *UserService) Update(ctx context.Context, id string, patch repository.UserPatch) (model.User, error) {
	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		patch.Email = &email
	}

	var fields []validation.FieldError
	if err := s.validator.Struct(patch); err != nil {
		ve, ok := validation.As(err)
		if !ok {
			return model.User{}, classify("обновление пользователя", err)
		}
		fields = append(fields, ve.Fields...)
	}
	if patch.AreaID != nil {
		if err := s.checkArea(*patch.AreaID); err != nil {
			ve, _ := validation.As(err)
			fields = append(fields, ve.Fields...)
		}
	}
	if err := validation.Fields(fields...); err != nil {
		return model.User{}, classify("обновление пользователя", err)
	}

	u, err := s.users.Update(ctx, id, patch)
	if err != nil {
		return model.User{}, classify("обновление пользователя", err)
	}
	s.logger.Info("Пользователь обновлён", slog.String("user_id", id))
	return u.Public(), nil
}

// Delete удаляет пользователя. Удалить собственную учётную запись нельзя.
func (s *UserService) Delete(ctx context.Context, id string, actor Actor) error {
	if id == actor.UserID {
		return fmt.Errorf("удаление пользователя: собственная учётная запись: %w", ErrForbidden)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return classify("удаление пользователя", err)
	}
	s.logger.Info("Пользователь удалён",
		slog.String("user_id", id),
		slog.String("by", actor.UserID),
	)
	return nil
}

// ChangePassword меняет пароль пользователя. Новый пароль вводится дважды.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next, confirm string) error {
	switch {
	case next == "":
		return classify("смена пароля", validation.Fields(validation.FieldError{
			Field: "newPassword", Reason: "не может быть пустым",
		}))
	case next != confirm:
		return classify("смена пароля", validation.Fields(validation.FieldError{
			Field: "confirmPassword", Reason: "пароли не совпадают",
		}))
	}

	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return classify("смена пароля", err)
	}
	if u.Password != current {
		return fmt.Errorf("смена пароля: %w", ErrInvalidCredentials)
	}

	if _, err := s.users.Update(ctx, userID, repository.UserPatch{Password: &next}); err != nil {
		return classify("смена пароля", err)
	}
	s.logger.Info("Пароль изменён", slog.String("user_id", userID))
	return nil
}

// RecoverPassword проверяет, что email зарегистрирован. Письмо не отправляется.
func (s *UserService) RecoverPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return classify("восстановление пароля", validation.Fields(validation.FieldError{
			Field: "email", Reason: "обязательное поле",
		}))
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return classify("восстановление пароля", err)
	}
	s.logger.Info("Запрошено восстановление пароля", slog.String("user_id", u.ID))
	return nil
}

func (s *UserService) checkArea(id string) error {
	if id == "" || s.areas.Contains(id) {
		return nil
	}
	return validation.Fields(validation.FieldError{
		Field: "areaId", Reason: fmt.Sprintf("неизвестная область %q", id),
	})
}
