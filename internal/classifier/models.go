package classifier

import (
	"fmt"
	"strings"

	"github.com/drem-apurimac/tramite/internal/domain/area"
	"github.com/drem-apurimac/tramite/internal/domain/model"
)

// generateRequest — тело generateContent.
type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *schema `json:"responseSchema,omitempty"`
}

// schema — подмножество OpenAPI Schema, которое принимает Gemini.
type schema struct {
	Type       string             `json:"type"`
	Properties map[string]*schema `json:"properties,omitempty"`
	Enum       []string           `json:"enum,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

// generateResponse — ответ generateContent (используемые поля).
type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

var routingSchema = &schema{
	Type: "OBJECT",
	Properties: map[string]*schema{
		"suggestedAreaId": {Type: "STRING"},
		"reasoning":       {Type: "STRING"},
		"prioritySuggestion": {
			Type: "STRING",
			Enum: []string{
				string(model.PriorityLow), string(model.PriorityNormal),
				string(model.PriorityHigh), string(model.PriorityUrgent),
			},
		},
	},
	Required: []string{"suggestedAreaId", "reasoning", "prioritySuggestion"},
}

const summaryPrompt = "Resume el siguiente texto técnico/administrativo en un solo párrafo conciso " +
	"para un sistema de trámite documentario. Texto: "

func routingPrompt(areas *area.Directory, text string) string {
	names := make([]string, 0, len(areas.All()))
	for _, a := range areas.All() {
		names = append(names, fmt.Sprintf("%s (%s)", a.ID, a.Name))
	}
	return fmt.Sprintf(`Eres un asistente administrativo experto para la Dirección Regional de Energía y Minas (DREM) de Apurímac.
Tu tarea es analizar un documento entrante y sugerir a qué área debe ser derivado.

Áreas disponibles: %s.

Documento:
%s

Reglas:
1. Temas legales, normativos o denuncias legales -> LEGAL (Asesoría Jurídica).
2. Temas de presupuesto, personal, logística -> ADMIN (Administración).
3. Concesiones mineras, fiscalización minera, REINFO -> MINERIA.
4. Electrificación, concesiones eléctricas -> ENERGIA.
5. Estudios de Impacto Ambiental, contaminación -> AMBIENTAL.
6. Si no está claro -> DIRECCION.

Responde con un JSON indicando el ID del área sugerida, una breve razón (reasoning) y la prioridad sugerida.`,
		strings.Join(names, ", "), text)
}
