package model

// UserStatus — отображаемый статус пользователя. На вход не влияет.
type UserStatus string

const (
	UserActive   UserStatus = "Activo"
	UserInactive UserStatus = "Inactivo"
	UserOnLeave  UserStatus = "Vacaciones"
)

// Роли. Набор не закрыт: значение хранится как строка.
const (
	RoleAdmin    = "Administrador"
	RoleIntake   = "Mesa de Partes"
	RoleAnalyst  = "Analista"
	RoleOperator = "Operador"
)

// DefaultPassword — пароль нового пользователя, если не задан.
const DefaultPassword = "Drem2026."

// User — учётная запись оператора.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	// Password хранится в открытом виде и сравнивается напрямую
	Password string     `json:"password,omitempty"`
	AreaID   string     `json:"areaId,omitempty"`
	Status   UserStatus `json:"status"`
}

// Public возвращает копию без пароля.
func (u User) Public() User {
	u.Password = ""
	return u
}
