package tracking

import (
	"fmt"

	"github.com/drem-apurimac/tramite/internal/domain/model"
)

// validTransitions — матрица переходов статусов для derive/archive.
// Ключ — текущий статус, значение — набор допустимых целевых.
// Archived — конечный статус; выйти из него можно только через Edit.
var validTransitions = map[model.Status]map[model.Status]bool{
	model.StatusPending:   {model.StatusInProcess: true, model.StatusDerived: true, model.StatusArchived: true},
	model.StatusInProcess: {model.StatusDerived: true, model.StatusArchived: true},
	model.StatusDerived:   {model.StatusInProcess: true, model.StatusDerived: true, model.StatusArchived: true},
	model.StatusArchived:  {},
}

// CanTransition проверяет, допустим ли переход from → to.
func CanTransition(from, to model.Status) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// AllowedTransitions возвращает допустимые целевые статусы в порядке model.Statuses.
func AllowedTransitions(from model.Status) []model.Status {
	out := make([]model.Status, 0, len(model.Statuses))
	for _, s := range model.Statuses {
		if CanTransition(from, s) {
			out = append(out, s)
		}
	}
	return out
}

// TransitionError — недопустимый переход статуса.
type TransitionError struct {
	From model.Status
	To   model.Status
}

func (e *TransitionError) Error() string {
	if e.From == model.StatusArchived {
		return fmt.Sprintf("экспедиент в статусе %q: переход в %q запрещён, используйте редактирование для повторного открытия", e.From, e.To)
	}
	return fmt.Sprintf("недопустимый переход статуса %q → %q", e.From, e.To)
}

func checkTransition(from, to model.Status) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}
