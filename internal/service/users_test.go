package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/drem-apurimac/tramite/internal/auth"
	"github.com/drem-apurimac/tramite/internal/domain/area"
	"github.com/drem-apurimac/tramite/internal/domain/model"
	"github.com/drem-apurimac/tramite/internal/domain/validation"
	"github.com/drem-apurimac/tramite/internal/gateway/memory"
	"github.com/drem-apurimac/tramite/internal/repository"
)

const testSecret = "test-secret-0123456789abcdef0123456789"

func newUserEnv(t *testing.T) (*UserService, repository.UserRepository, *auth.Tokens) {
	t.Helper()
	users := repository.NewUserRepository(memory.New())
	for _, u := range defaultUsers() {
		if err := users.Create(context.Background(), u); err != nil {
			t.Fatalf("Create ошибка: %v", err)
		}
	}
	tokens := auth.NewTokens(testSecret, time.Hour, "tramite-test")
	return NewUserService(users, tokens, area.Default(), validation.New(), slog.Default()), users, tokens
}

// TestUserService_Authenticate проверяет вход по email или роли.
func TestUserService_Authenticate(t *testing.T) {
	svc, _, _ := newUserEnv(t)

	tests := []struct {
		name       string
		identifier string
		password   string
		wantID     string
		wantErr    error
	}{
		{"email", "director@drem.gob.pe", "AdminDrem2026", "1", nil},
		{"email в другом регистре с пробелами", "  MESA@Drem.gob.pe ", "MesaDrem2026", "2", nil},
		{"роль", "analista", "Mineria2026", "3", nil},
		{"неверный пароль", "director@drem.gob.pe", "wrong", "", ErrInvalidCredentials},
		{"неизвестный идентификатор", "nadie@drem.gob.pe", "AdminDrem2026", "", ErrInvalidCredentials},
		{"пустой пароль", "director@drem.gob.pe", "", "", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := svc.Authenticate(context.Background(), tt.identifier, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ошибка = %v, ожидается %v", err, tt.wantErr)
			}
			if u.ID != tt.wantID {
				t.Errorf("ID = %q, ожидается %q", u.ID, tt.wantID)
			}
			if u.Password != "" {
				t.Error("пароль не должен возвращаться")
			}
		})
	}
}

// TestUserService_Login_WrongPassword проверяет, что неудачный вход ничего не меняет.
func TestUserService_Login_WrongPassword(t *testing.T) {
	svc, users, _ := newUserEnv(t)
	before, _ := users.List(context.Background())

	sess, err := svc.Login(context.Background(), "director@drem.gob.pe", "nope")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("ошибка = %v, ожидается ErrInvalidCredentials", err)
	}
	if sess.Token != "" || sess.User.ID != "" {
		t.Errorf("сессия = %+v, ожидается пустая", sess)
	}

	after, _ := users.List(context.Background())
	if len(after) != len(before) {
		t.Errorf("len(users) = %d, ожидается %d", len(after), len(before))
	}
}

// TestUserService_Login проверяет выпуск токена с ролью пользователя.
func TestUserService_Login(t *testing.T) {
	svc, _, tokens := newUserEnv(t)

	sess, err := svc.Login(context.Background(), "mesa@drem.gob.pe", "MesaDrem2026")
	if err != nil {
		t.Fatalf("Login ошибка: %v", err)
	}
	claims, err := tokens.Parse(sess.Token)
	if err != nil {
		t.Fatalf("Parse ошибка: %v", err)
	}
	if claims.Subject != "2" || claims.Role != model.RoleIntake || claims.AreaID != "MESA" {
		t.Errorf("claims = %+v, ожидается sub=2 role=%q area=MESA", claims, model.RoleIntake)
	}
	if !sess.ExpiresAt.After(time.Now()) {
		t.Errorf("ExpiresAt = %v, ожидается в будущем", sess.ExpiresAt)
	}
}

// TestUserService_Create проверяет значения по умолчанию и конфликт email.
func TestUserService_Create(t *testing.T) {
	svc, users, _ := newUserEnv(t)

	u, err := svc.Create(context.Background(), NewUser{Name: "Nuevo", Email: "nuevo@drem.gob.pe"})
	if err != nil {
		t.Fatalf("Create ошибка: %v", err)
	}
	if u.Role != model.RoleOperator || u.Status != model.UserActive {
		t.Errorf("Role/Status = %q/%q, ожидается %q/%q", u.Role, u.Status, model.RoleOperator, model.UserActive)
	}
	stored, _ := users.Get(context.Background(), u.ID)
	if stored.Password != model.DefaultPassword {
		t.Errorf("Password = %q, ожидается %q", stored.Password, model.DefaultPassword)
	}

	tests := []struct {
		name string
		in   NewUser
		want error
	}{
		{"занятый email", NewUser{Name: "Otro", Email: "DIRECTOR@drem.gob.pe"}, ErrConflict},
		{"пустое имя", NewUser{Name: " ", Email: "x@drem.gob.pe"}, ErrValidation},
		{"некорректный email", NewUser{Name: "X", Email: "no-email"}, ErrValidation},
		{"неизвестная область", NewUser{Name: "X", Email: "y@drem.gob.pe", AreaID: "MARTE"}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.in); !errors.Is(err, tt.want) {
				t.Errorf("ошибка = %v, ожидается %v", err, tt.want)
			}
		})
	}
}

// TestUserService_Update проверяет слияние изменений.
func TestUserService_Update(t *testing.T) {
	svc, _, _ := newUserEnv(t)

	status := model.UserOnLeave
	u, err := svc.Update(context.Background(), "3", repository.UserPatch{Status: &status})
	if err != nil {
		t.Fatalf("Update ошибка: %v", err)
	}
	if u.Status != model.UserOnLeave || u.Email != "mineria@drem.gob.pe" {
		t.Errorf("user = %+v, ожидается статус %q и прежний email", u, model.UserOnLeave)
	}

	// Статус не влияет на вход.
	if _, err := svc.Authenticate(context.Background(), "mineria@drem.gob.pe", "Mineria2026"); err != nil {
		t.Errorf("вход пользователя в отпуске: %v", err)
	}

	taken := "mesa@drem.gob.pe"
	if _, err := svc.Update(context.Background(), "3", repository.UserPatch{Email: &taken}); !errors.Is(err, ErrConflict) {
		t.Errorf("занятый email: ошибка = %v, ожидается ErrConflict", err)
	}
	if _, err := svc.Update(context.Background(), "missing", repository.UserPatch{Status: &status}); !errors.Is(err, ErrNotFound) {
		t.Errorf("нет пользователя: ошибка = %v, ожидается ErrNotFound", err)
	}
}

// TestUserService_Update_Validation проверяет те же правила полей, что и при создании.
func TestUserService_Update_Validation(t *testing.T) {
	svc, _, _ := newUserEnv(t)

	str := func(s string) *string { return &s }
	badStatus := model.UserStatus("Jubilado")
	tests := []struct {
		name  string
		patch repository.UserPatch
		field string
	}{
		{"email без домена", repository.UserPatch{Email: str("x@")}, "email"},
		{"email без @", repository.UserPatch{Email: str("mineria.drem.gob.pe")}, "email"},
		{"пустое имя", repository.UserPatch{Name: str("   ")}, "name"},
		{"пустой пароль", repository.UserPatch{Password: str("")}, "password"},
		{"неизвестный статус", repository.UserPatch{Status: &badStatus}, "status"},
		{"неизвестная область", repository.UserPatch{AreaID: str("NOWHERE")}, "areaId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(context.Background(), "3", tt.patch)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("ошибка = %v, ожидается ErrValidation", err)
			}
			if ve, ok := validation.As(err); !ok || !ve.Has(tt.field) {
				t.Errorf("ожидается ошибка поля %s, получено %v", tt.field, err)
			}
		})
	}

	// Пробелы вокруг корректного адреса обрезаются.
	u, err := svc.Update(context.Background(), "3", repository.UserPatch{Email: str("  mineria2@drem.gob.pe ")})
	if err != nil {
		t.Fatalf("Update ошибка: %v", err)
	}
	if u.Email != "mineria2@drem.gob.pe" {
		t.Errorf("Email = %q, ожидается mineria2@drem.gob.pe", u.Email)
	}
}

// TestUserService_Delete проверяет запрет удаления собственной записи.
func TestUserService_Delete(t *testing.T) {
	svc, _, _ := newUserEnv(t)
	admin := Actor{UserID: "1", Name: "Director Regional", Role: model.RoleAdmin}

	if err := svc.Delete(context.Background(), "1", admin); !errors.Is(err, ErrForbidden) {
		t.Errorf("ошибка = %v, ожидается ErrForbidden", err)
	}
	if err := svc.Delete(context.Background(), "3", admin); err != nil {
		t.Fatalf("Delete ошибка: %v", err)
	}
	if _, err := svc.Get(context.Background(), "3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ошибка = %v, ожидается ErrNotFound", err)
	}
}

// TestUserService_ChangePassword проверяет подтверждение и текущий пароль.
func TestUserService_ChangePassword(t *testing.T) {
	svc, _, _ := newUserEnv(t)
	ctx := context.Background()

	tests := []struct {
		name                   string
		current, next, confirm string
		want                   error
	}{
		{"не совпадает подтверждение", "MesaDrem2026", "Nueva2026", "Otra2026", ErrValidation},
		{"пустой новый пароль", "MesaDrem2026", "", "", ErrValidation},
		{"неверный текущий", "wrong", "Nueva2026", "Nueva2026", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.ChangePassword(ctx, "2", tt.current, tt.next, tt.confirm); !errors.Is(err, tt.want) {
				t.Errorf("ошибка = %v, ожидается %v", err, tt.want)
			}
		})
	}

	if err := svc.ChangePassword(ctx, "2", "MesaDrem2026", "Nueva2026", "Nueva2026"); err != nil {
		t.Fatalf("ChangePassword ошибка: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "mesa@drem.gob.pe", "Nueva2026"); err != nil {
		t.Errorf("вход с новым паролем: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "mesa@drem.gob.pe", "MesaDrem2026"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("вход со старым паролем: ошибка = %v, ожидается ErrInvalidCredentials", err)
	}
}

// TestUserService_RecoverPassword проверяет проверку существования email.
func TestUserService_RecoverPassword(t *testing.T) {
	svc, _, _ := newUserEnv(t)

	if err := svc.RecoverPassword(context.Background(), "Director@drem.gob.pe"); err != nil {
		t.Errorf("RecoverPassword ошибка: %v", err)
	}
	if err := svc.RecoverPassword(context.Background(), "nadie@drem.gob.pe"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ошибка = %v, ожидается ErrNotFound", err)
	}
	if err := svc.RecoverPassword(context.Background(), " "); !errors.Is(err, ErrValidation) {
		t.Errorf("ошибка = %v, ожидается ErrValidation", err)
	}
}
