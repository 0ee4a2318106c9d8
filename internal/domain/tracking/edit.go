package tracking

import (
	"fmt"
	"strings"

	"github.com/drem-apurimac/tramite/internal/domain/model"
	"github.com/drem-apurimac/tramite/internal/domain/validation"
)

// Patch — частичная правка метаданных. nil-поле не меняется.
type Patch struct {
	Type             *string         `json:"type,omitempty" validate:"omitnil,notblank,max=64"`
	ResolutionNumber *string         `json:"resolutionNumber,omitempty" validate:"omitnil,max=64"`
	Administrado     *string         `json:"administrado,omitempty" validate:"omitnil,notblank,max=256"`
	Subject          *string         `json:"subject,omitempty" validate:"omitnil,notblank"`
	RUC              *string         `json:"ruc,omitempty" validate:"omitnil,ruc"`
	Province         *string         `json:"province,omitempty" validate:"omitnil,max=128"`
	District         *string         `json:"district,omitempty" validate:"omitnil,max=128"`
	ExternalURL      *string         `json:"externalUrl,omitempty" validate:"omitnil,optionalurl"`
	Priority         *model.Priority `json:"priority,omitempty" validate:"omitnil,oneof=Baja Normal Alta Urgente"`
	Status           *model.Status   `json:"status,omitempty"`
	CurrentAreaID    *string         `json:"currentAreaId,omitempty"`
}

// Empty сообщает, что правка ничего не меняет.
func (p Patch) Empty() bool {
	return p.Type == nil && p.ResolutionNumber == nil && p.Administrado == nil &&
		p.Subject == nil && p.RUC == nil && p.Province == nil && p.District == nil &&
		p.ExternalURL == nil && p.Priority == nil && p.Status == nil && p.CurrentAreaID == nil
}

// Edit применяет административную правку. Матрица переходов не проверяется:
// правка может вернуть архивный экспедиент в работу.
//
// Если меняется статус или текущая область, в журнал добавляется движение
// «Corrección Administrativa», чтобы последняя запись журнала оставалась
// согласованной с CurrentAreaID.
func (e *Engine) Edit(rec model.CaseRecord, p Patch, actor string) (model.CaseRecord, error) {
	if err := e.validatePatch(p); err != nil {
		return model.CaseRecord{}, err
	}

	out := rec.Clone()
	setString(&out.Type, p.Type)
	setString(&out.ResolutionNumber, p.ResolutionNumber)
	setTrimmed(&out.Administrado, p.Administrado)
	setTrimmed(&out.Subject, p.Subject)
	setTrimmed(&out.RUC, p.RUC)
	setString(&out.Province, p.Province)
	setString(&out.District, p.District)
	setString(&out.ExternalURL, p.ExternalURL)
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.CurrentAreaID != nil {
		out.CurrentAreaID = strings.TrimSpace(*p.CurrentAreaID)
	}

	statusChanged := out.Status != rec.Status
	areaChanged := out.CurrentAreaID != rec.CurrentAreaID
	if !statusChanged && !areaChanged {
		return out, nil
	}

	if strings.TrimSpace(actor) == "" {
		actor = DefaultActor
	}
	notes := correctionNotes(rec, out, statusChanged, areaChanged)
	corrected := e.AppendMovement(out, rec.CurrentAreaID, out.CurrentAreaID, model.ActionCorrection, notes, actor)
	return corrected, nil
}

func (e *Engine) validatePatch(p Patch) error {
	var fields []validation.FieldError
	if err := e.validator.Struct(p); err != nil {
		ve, ok := validation.As(err)
		if !ok {
			return err
		}
		fields = append(fields, ve.Fields...)
	}
	if p.Status != nil && !p.Status.Valid() {
		fields = append(fields, validation.FieldError{
			Field: "status", Reason: fmt.Sprintf("неизвестный статус %q", *p.Status),
		})
	}
	if p.CurrentAreaID != nil && !e.areas.Contains(strings.TrimSpace(*p.CurrentAreaID)) {
		fields = append(fields, validation.FieldError{
			Field: "currentAreaId", Reason: fmt.Sprintf("неизвестная область %q", *p.CurrentAreaID),
		})
	}
	return validation.Fields(fields...)
}

func correctionNotes(before, after model.CaseRecord, statusChanged, areaChanged bool) string {
	parts := make([]string, 0, 2)
	if statusChanged {
		parts = append(parts, fmt.Sprintf("Estado: %s → %s", before.Status, after.Status))
	}
	if areaChanged {
		parts = append(parts, fmt.Sprintf("Área: %s → %s", before.CurrentAreaID, after.CurrentAreaID))
	}
	return strings.Join(parts, "; ")
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
