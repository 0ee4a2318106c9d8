// Пакет tracking — модель экспедиента и журнала движений:
// регистрация, деривация, архивирование и административная правка.
//
// Операции не обращаются к хранилищу. Каждая принимает запись по значению
// и возвращает новую запись целиком, поэтому вызывающий код сохраняет
// результат одним Put или не сохраняет ничего.
package tracking

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/drem-apurimac/tramite/internal/domain/area"
	"github.com/drem-apurimac/tramite/internal/domain/model"
	"github.com/drem-apurimac/tramite/internal/domain/validation"
)

// Значения по умолчанию для регистрации.
const (
	DefaultType     = "Resolución"
	DefaultProvince = "Abancay"
	DefaultDistrict = "Abancay"

	// Имя исполнителя, если регистрирующий не указан.
	DefaultRegistrar = "Usuario"
	// Имя исполнителя для derive/archive без указания.
	DefaultActor = "Sistema"

	initialNotes = "Ingreso inicial por Mesa de Partes."
	archiveNotes = "Expediente archivado."

	// maxCodeAttempts — число попыток сгенерировать незанятый код.
	maxCodeAttempts = 5
)

// ErrCodeExhausted — не удалось подобрать свободный код за maxCodeAttempts.
var ErrCodeExhausted = errors.New("не удалось сгенерировать уникальный код экспедиента")

// Engine выполняет операции над экспедиентами.
type Engine struct {
	areas     *area.Directory
	validator *validation.Validator
	intake    string
	now       func() time.Time
	newID     func() string
	intN      func(n int) int
}

// Option настраивает Engine.
type Option func(*Engine)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator подменяет генератор идентификаторов.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// WithRandom подменяет источник случайных чисел для кода (возвращает [0, n)).
func WithRandom(intN func(n int) int) Option {
	return func(e *Engine) { e.intN = intN }
}

// WithIntakeArea задаёт область приёма новых документов.
func WithIntakeArea(id string) Option {
	return func(e *Engine) { e.intake = id }
}

// New создаёт Engine. Область приёма должна присутствовать в справочнике.
func New(areas *area.Directory, v *validation.Validator, opts ...Option) (*Engine, error) {
	e := &Engine{
		areas:     areas,
		validator: v,
		intake:    area.DefaultIntake,
		now:       time.Now,
		newID:     uuid.NewString,
		intN:      rand.IntN,
	}
	for _, opt := range opts {
		opt(e)
	}
	if !areas.Contains(e.intake) {
		return nil, fmt.Errorf("область приёма %q отсутствует в справочнике", e.intake)
	}
	return e, nil
}

// Areas возвращает справочник областей.
func (e *Engine) Areas() *area.Directory {
	return e.areas
}

// RegisterInput — поля нового экспедиента.
type RegisterInput struct {
	Type             string         `json:"type" validate:"max=64"`
	ResolutionNumber string         `json:"resolutionNumber" validate:"max=64"`
	Year             string         `json:"year" validate:"omitempty,numeric,len=4"`
	EmissionDate     string         `json:"emissionDate" validate:"omitempty,datetime=2006-01-02"`
	Administrado     string         `json:"administrado" validate:"notblank,max=256"`
	RUC              string         `json:"ruc" validate:"ruc"`
	Province         string         `json:"province" validate:"max=128"`
	District         string         `json:"district" validate:"max=128"`
	Subject          string         `json:"subject" validate:"notblank"`
	PDFURL           string         `json:"pdfUrl" validate:"omitempty,url"`
	ExternalURL      string         `json:"externalUrl" validate:"omitempty,url"`
	Priority         model.Priority `json:"priority" validate:"omitempty,oneof=Baja Normal Alta Urgente"`
	AISummary        string         `json:"aiSummary"`
}

// Validate проверяет поля регистрации без построения записи.
// Ошибка: *validation.Error.
func (e *Engine) Validate(in RegisterInput) error {
	return e.validator.Struct(normalize(in))
}

func normalize(in RegisterInput) RegisterInput {
	in.Administrado = strings.TrimSpace(in.Administrado)
	in.Subject = strings.TrimSpace(in.Subject)
	in.RUC = strings.TrimSpace(in.RUC)
	return in
}

// Create валидирует поля и строит новый экспедиент со статусом Pending
// и одним движением EXTERNO → область приёма.
//
// Пустой год заменяется годом по часам движка. Год из системной
// конфигурации подставляет вызывающий код до вызова Create.
//
// taken сообщает, занят ли код; при nil уникальность не проверяется.
// Ошибки: *validation.Error, ErrCodeExhausted.
func (e *Engine) Create(in RegisterInput, registrar string, taken func(code string) bool) (model.CaseRecord, error) {
	in = normalize(in)
	if err := e.validator.Struct(in); err != nil {
		return model.CaseRecord{}, err
	}

	now := e.now()
	if in.Type == "" {
		in.Type = DefaultType
	}
	if in.Year == "" {
		in.Year = strconv.Itoa(now.Year())
	}
	if in.Priority == "" {
		in.Priority = model.PriorityNormal
	}
	if in.Province == "" {
		in.Province = DefaultProvince
	}
	if in.District == "" {
		in.District = DefaultDistrict
	}
	if strings.TrimSpace(registrar) == "" {
		registrar = DefaultRegistrar
	}

	code, err := e.uniqueCode(in.Type, in.Year, taken)
	if err != nil {
		return model.CaseRecord{}, err
	}

	rec := model.CaseRecord{
		ID:               e.newID(),
		Code:             code,
		Type:             in.Type,
		ResolutionNumber: in.ResolutionNumber,
		Year:             in.Year,
		EmissionDate:     in.EmissionDate,
		Administrado:     in.Administrado,
		RUC:              in.RUC,
		Province:         in.Province,
		District:         in.District,
		Subject:          in.Subject,
		AISummary:        in.AISummary,
		PDFURL:           in.PDFURL,
		ExternalURL:      in.ExternalURL,
		CurrentAreaID:    e.intake,
		Status:           model.StatusPending,
		Priority:         in.Priority,
		RegisterDate:     now,
	}
	return e.AppendMovement(rec, area.External, e.intake, model.ActionRegister, initialNotes, registrar), nil
}

// CodePrefix возвращает первые три буквы типа в верхнем регистре.
func CodePrefix(docType string) string {
	r := []rune(strings.TrimSpace(docType))
	if len(r) > 3 {
		r = r[:3]
	}
	return strings.ToUpper(string(r))
}

// GenerateCode — {префикс типа}-{год}-{1000..9999}.
func (e *Engine) GenerateCode(docType, year string) string {
	return fmt.Sprintf("%s-%s-%d", CodePrefix(docType), year, 1000+e.intN(9000))
}

func (e *Engine) uniqueCode(docType, year string, taken func(string) bool) (string, error) {
	for range maxCodeAttempts {
		code := e.GenerateCode(docType, year)
		if taken == nil || !taken(code) {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}

// AppendMovement добавляет движение с текущим временем в конец журнала.
// Статус и текущая область не меняются.
func (e *Engine) AppendMovement(rec model.CaseRecord, from, to, action, notes, actor string) model.CaseRecord {
	out := rec.Clone()
	out.Movements = append(out.Movements, model.Movement{
		ID:         e.newID(),
		DocumentID: rec.ID,
		FromAreaID: from,
		ToAreaID:   to,
		Date:       e.now(),
		Action:     action,
		Notes:      notes,
		User:       actor,
	})
	return out
}

// LastMovement возвращает последнее движение; ok=false для пустого журнала.
func LastMovement(rec model.CaseRecord) (model.Movement, bool) {
	if len(rec.Movements) == 0 {
		return model.Movement{}, false
	}
	return rec.Movements[len(rec.Movements)-1], true
}

// Derive перемещает экспедиент в область to: добавляет движение «Derivación»,
// выставляет CurrentAreaID = to и статус Derived.
//
// Ошибки: *validation.Error (неизвестная или текущая область), *TransitionError.
func (e *Engine) Derive(rec model.CaseRecord, to, notes, actor string) (model.CaseRecord, error) {
	to = strings.TrimSpace(to)
	switch {
	case !e.areas.Contains(to):
		return model.CaseRecord{}, validation.Fields(validation.FieldError{
			Field: "toAreaId", Reason: fmt.Sprintf("неизвестная область %q", to),
		})
	case to == rec.CurrentAreaID:
		return model.CaseRecord{}, validation.Fields(validation.FieldError{
			Field: "toAreaId", Reason: "совпадает с текущей областью",
		})
	}
	if err := checkTransition(rec.Status, model.StatusDerived); err != nil {
		return model.CaseRecord{}, err
	}
	if strings.TrimSpace(actor) == "" {
		actor = DefaultActor
	}

	out := e.AppendMovement(rec, rec.CurrentAreaID, to, model.ActionDerive, notes, actor)
	out.CurrentAreaID = to
	out.Status = model.StatusDerived
	return out, nil
}

// Archive переводит экспедиент в Archived и всегда добавляет закрывающее
// движение «Archivado» в текущей области.
func (e *Engine) Archive(rec model.CaseRecord, notes, actor string) (model.CaseRecord, error) {
	if err := checkTransition(rec.Status, model.StatusArchived); err != nil {
		return model.CaseRecord{}, err
	}
	if strings.TrimSpace(actor) == "" {
		actor = DefaultActor
	}
	if strings.TrimSpace(notes) == "" {
		notes = archiveNotes
	}

	out := e.AppendMovement(rec, rec.CurrentAreaID, rec.CurrentAreaID, model.ActionArchive, notes, actor)
	out.Status = model.StatusArchived
	return out, nil
}
