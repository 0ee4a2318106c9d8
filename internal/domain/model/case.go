// Пакет model — доменные модели сервиса учёта экспедиентов.
package model

import "time"

// Status — статус экспедиента. Значения совпадают с исходными строками
// и хранятся как есть.
type Status string

const (
	StatusPending   Status = "Pendiente"
	StatusInProcess Status = "En Trámite"
	StatusArchived  Status = "Archivado"
	StatusDerived   Status = "Derivado"
)

// Statuses — все статусы в порядке отображения.
var Statuses = []Status{StatusPending, StatusInProcess, StatusDerived, StatusArchived}

// Valid сообщает, является ли значение известным статусом.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProcess, StatusArchived, StatusDerived:
		return true
	}
	return false
}

// Priority — приоритет экспедиента.
type Priority string

const (
	PriorityLow    Priority = "Baja"
	PriorityNormal Priority = "Normal"
	PriorityHigh   Priority = "Alta"
	PriorityUrgent Priority = "Urgente"
)

// Priorities — все приоритеты по возрастанию.
var Priorities = []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}

// Valid сообщает, является ли значение известным приоритетом.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Elevated — High или Urgent.
func (p Priority) Elevated() bool {
	return p == PriorityHigh || p == PriorityUrgent
}

// Метки действий в журнале движений.
const (
	ActionRegister   = "Registro en Sistema"
	ActionDerive     = "Derivación"
	ActionArchive    = "Archivado"
	ActionCorrection = "Corrección Administrativa"
)

// DocumentTypes — рекомендуемые типы документов (не enum).
var DocumentTypes = []string{"Resolución", "Oficio", "Informe", "Memorándum", "Carta", "Solicitud"}

// Movement — запись журнала движений экспедиента.
// После добавления в журнал не изменяется.
type Movement struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	FromAreaID string    `json:"fromAreaId"`
	ToAreaID   string    `json:"toAreaId"`
	Date       time.Time `json:"date"`
	Action     string    `json:"action"`
	Notes      string    `json:"notes"`
	// User — снимок отображаемого имени исполнителя, не ссылка на User
	User string `json:"user"`
}

// CaseRecord — отслеживаемый документ (экспедиент).
type CaseRecord struct {
	ID   string `json:"id"`
	Code string `json:"code"`

	Type             string `json:"type"`
	ResolutionNumber string `json:"resolutionNumber,omitempty"`
	Year             string `json:"year"`
	// EmissionDate — календарная дата в формате 2006-01-02
	EmissionDate string `json:"emissionDate,omitempty"`

	Administrado string `json:"administrado"`
	RUC          string `json:"ruc,omitempty"`
	Province     string `json:"province,omitempty"`
	District     string `json:"district,omitempty"`

	Subject   string `json:"subject"`
	AISummary string `json:"aiSummary,omitempty"`

	PDFURL      string `json:"pdfUrl,omitempty"`
	ExternalURL string `json:"externalUrl,omitempty"`

	CurrentAreaID string   `json:"currentAreaId"`
	Status        Status   `json:"status"`
	Priority      Priority `json:"priority"`

	RegisterDate time.Time  `json:"registerDate"`
	Movements    []Movement `json:"movements"`
}

// Clone возвращает копию с независимым журналом движений.
func (c CaseRecord) Clone() CaseRecord {
	out := c
	out.Movements = make([]Movement, len(c.Movements))
	copy(out.Movements, c.Movements)
	return out
}
