// Пакет validation — полевая валидация доменных структур через
// go-playground/validator с приведением ошибок к списку FieldError.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var rucPattern = regexp.MustCompile(`^\d{11}$`)

// FieldError — нарушение ограничения одного поля.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error — набор полевых ошибок. Пустым не бывает.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "ошибка валидации: " + strings.Join(parts, "; ")
}

// Has сообщает, есть ли ошибка для указанного поля.
func (e *Error) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Fields собирает *Error из готовых нарушений. Без аргументов возвращает nil.
func Fields(fields ...FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return &Error{Fields: fields}
}

// As извлекает *Error из цепочки ошибок.
func As(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Validator — обёртка над validator.Validate с доменными правилами.
type Validator struct {
	validate *validator.Validate
}

// New создаёт валидатор с зарегистрированными правилами:
//   - ruc — пусто или ровно 11 цифр
//   - notblank — строка не пуста после TrimSpace
//   - optionalurl — пусто или URL; для *string в частичных правках, где
//     omitempty не пропускает указатель на пустую строку
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Имена полей в ошибках берутся из json-тегов.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("ruc", validateRUC)
	_ = v.RegisterValidation("notblank", validateNotBlank)
	v.RegisterAlias("optionalurl", "eq=|url")

	return &Validator{validate: v}
}

// Struct проверяет структуру и возвращает *Error или nil.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("валидация: %w", err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:  fe.Field(),
			Reason: reason(fe),
		})
	}
	return &Error{Fields: fields}
}

// ValidRUC проверяет RUC: пусто или ровно 11 цифр. Контрольная сумма не проверяется.
func ValidRUC(ruc string) bool {
	return ruc == "" || rucPattern.MatchString(ruc)
}

func validateRUC(fl validator.FieldLevel) bool {
	return ValidRUC(fl.Field().String())
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// reason формирует текст нарушения по тегу правила.
func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "обязательное поле"
	case "ruc":
		return "должен содержать ровно 11 цифр"
	case "email":
		return "некорректный адрес электронной почты"
	case "oneof":
		return "допустимые значения: " + fe.Param()
	case "datetime":
		return "ожидается дата в формате " + fe.Param()
	case "url", "optionalurl":
		return "некорректный URL"
	case "max":
		return "максимальная длина " + fe.Param()
	case "min":
		return "минимальное значение " + fe.Param()
	case "eqfield":
		return "должно совпадать с полем " + fe.Param()
	default:
		return "не прошло проверку " + fe.Tag()
	}
}
