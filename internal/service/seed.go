// seed.go — начальные данные для пустого хранилища: учётные записи
// по умолчанию, демонстрационные экспедиенты и уведомления.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/drem-apurimac/tramite/internal/domain/model"
	"github.com/drem-apurimac/tramite/internal/repository"
)

// Seeder заполняет пустые коллекции. Непустая коллекция не трогается.
type Seeder struct {
	users         repository.UserRepository
	cases         repository.CaseRepository
	notifications repository.NotificationRepository
	now           func() time.Time
	logger        *slog.Logger
}

// NewSeeder создаёт Seeder.
func NewSeeder(users repository.UserRepository, cases repository.CaseRepository, notifications repository.NotificationRepository, logger *slog.Logger) *Seeder {
	return &Seeder{
		users:         users,
		cases:         cases,
		notifications: notifications,
		now:           time.Now,
		logger:        logger.With(slog.String("component", "seeder")),
	}
}

// Seed записывает начальные данные в пустые коллекции.
func (s *Seeder) Seed(ctx context.Context) error {
	users, err := s.users.List(ctx)
	if err != nil {
		return fmt.Errorf("начальные данные: пользователи: %w", err)
	}
	if len(users) == 0 {
		for _, u := range defaultUsers() {
			if err := s.users.Create(ctx, u); err != nil {
				return fmt.Errorf("начальные данные: пользователь %s: %w", u.Email, err)
			}
		}
		s.logger.Info("Созданы учётные записи по умолчанию", slog.Int("count", len(defaultUsers())))
	}

	cases, err := s.cases.List(ctx)
	if err != nil {
		return fmt.Errorf("начальные данные: экспедиенты: %w", err)
	}
	if len(cases) == 0 {
		samples := sampleCases()
		for _, rec := range samples {
			if err := s.cases.Save(ctx, rec); err != nil {
				return fmt.Errorf("начальные данные: экспедиент %s: %w", rec.Code, err)
			}
		}
		s.logger.Info("Созданы демонстрационные экспедиенты", slog.Int("count", len(samples)))
	}

	notes, err := s.notifications.Latest(ctx, 1)
	if err != nil {
		return fmt.Errorf("начальные данные: уведомления: %w", err)
	}
	if len(notes) == 0 {
		for _, n := range sampleNotifications(s.now()) {
			if err := s.notifications.Add(ctx, n); err != nil {
				return fmt.Errorf("начальные данные: уведомление %s: %w", n.ID, err)
			}
		}
	}
	return nil
}

func defaultUsers() []model.User {
	return []model.User{
		{ID: "1", Name: "Director Regional", Email: "director@drem.gob.pe", Role: model.RoleAdmin, Password: "AdminDrem2026", AreaID: "DIRECCION", Status: model.UserActive},
		{ID: "2", Name: "Mesa de Partes", Email: "mesa@drem.gob.pe", Role: model.RoleIntake, Password: "MesaDrem2026", AreaID: "MESA", Status: model.UserActive},
		{ID: "3", Name: "Analista Técnico", Email: "mineria@drem.gob.pe", Role: model.RoleAnalyst, Password: "Mineria2026", AreaID: "MINERIA", Status: model.UserActive},
	}
}

func sampleNotifications(now time.Time) []model.Notification {
	return []model.Notification{
		{ID: "1", Title: "Nuevo Expediente", Message: "Se ha registrado la Res. 0892-2026.", Type: model.NotificationInfo, Date: now.Add(-5 * time.Minute)},
		{ID: "2", Title: "Plazo por Vencer", Message: "Expediente INF-2026-0905 vence hoy.", Type: model.NotificationWarning, Date: now.Add(-time.Hour)},
		{ID: "3", Title: "Documento Derivado", Message: "Administración derivó 3 oficios a su área.", Type: model.NotificationSuccess, Read: true, Date: now.Add(-2 * time.Hour)},
	}
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleCases() []model.CaseRecord {
	return []model.CaseRecord{
		{
			ID: "1", Code: "RES-2026-0001", Type: "Resolución", ResolutionNumber: "0001-2026-DREM-AP",
			Year: "2026", EmissionDate: "2026-01-05",
			Administrado: "Minera El Dorado S.A.C.", RUC: "20100123456",
			Province: "Abancay", District: "Curahuasi",
			Subject:       "Otorgar concesión minera para el proyecto El Dorado zona II.",
			PDFURL:        "https://example.com/resolucion1.pdf",
			RegisterDate:  ts("2026-01-05T09:00:00Z"),
			CurrentAreaID: "MINERIA", Status: model.StatusInProcess, Priority: model.PriorityHigh,
			Movements: []model.Movement{
				{ID: "m1", DocumentID: "1", FromAreaID: "MESA", ToAreaID: "DIRECCION", Date: ts("2026-01-05T09:15:00Z"), Action: "Registro Inicial", Notes: "Ingreso por mesa de partes.", User: "Mesa de Partes"},
				{ID: "m2", DocumentID: "1", FromAreaID: "DIRECCION", ToAreaID: "MINERIA", Date: ts("2026-01-06T10:00:00Z"), Action: model.ActionDerive, Notes: "Para evaluación técnica urgente.", User: "Director Regional"},
			},
		},
		{
			ID: "2", Code: "INF-2026-0002", Type: "Informe",
			Year: "2026", EmissionDate: "2026-01-10",
			Administrado: "Comunidad Campesina San Jerónimo", RUC: "10445566778",
			Province: "Andahuaylas", District: "San Jerónimo",
			Subject:       "Informe técnico sobre vertimiento de residuos en Río Chumbao.",
			PDFURL:        "https://example.com/informe2.pdf",
			RegisterDate:  ts("2026-01-10T14:30:00Z"),
			CurrentAreaID: "AMBIENTAL", Status: model.StatusInProcess, Priority: model.PriorityUrgent,
			Movements: []model.Movement{
				{ID: "m3", DocumentID: "2", FromAreaID: "MESA", ToAreaID: "AMBIENTAL", Date: ts("2026-01-10T14:45:00Z"), Action: "Derivación Directa", Notes: "Atención prioritaria por riesgo ambiental.", User: "Mesa de Partes"},
			},
		},
		{
			ID: "3", Code: "OFI-2026-0045", Type: "Oficio",
			Year: "2026", EmissionDate: "2026-02-15",
			Administrado: "Municipalidad Provincial de Abancay", RUC: "20131367012",
			Province: "Abancay", District: "Abancay",
			Subject:       "Solicitud de apoyo técnico para electrificación rural en zonas periféricas.",
			PDFURL:        "https://example.com/oficio3.pdf",
			RegisterDate:  ts("2026-02-15T08:20:00Z"),
			CurrentAreaID: "ENERGIA", Status: model.StatusPending, Priority: model.PriorityNormal,
			Movements: []model.Movement{
				{ID: "m4", DocumentID: "3", FromAreaID: "MESA", ToAreaID: "ENERGIA", Date: ts("2026-02-15T08:45:00Z"), Action: "Registro y Derivación", Notes: "Atender según disponibilidad de especialistas.", User: "Mesa de Partes"},
			},
		},
		{
			ID: "4", Code: "SOL-2026-0102", Type: "Solicitud",
			Year: "2026", EmissionDate: "2026-03-01",
			Administrado: "Asociación de Mineros Artesanales de Huancabamba", RUC: "20556677889",
			Province: "Andahuaylas", District: "Huancabamba",
			Subject:       "Inscripción en el Registro Integral de Formalización Minera (REINFO).",
			PDFURL:        "https://example.com/solicitud4.pdf",
			RegisterDate:  ts("2026-03-01T11:00:00Z"),
			CurrentAreaID: "LEGAL", Status: model.StatusDerived, Priority: model.PriorityHigh,
			Movements: []model.Movement{
				{ID: "m5", DocumentID: "4", FromAreaID: "MESA", ToAreaID: "MINERIA", Date: ts("2026-03-01T11:15:00Z"), Action: "Ingreso", Notes: "Revisión de requisitos legales.", User: "Mesa de Partes"},
				{ID: "m6", DocumentID: "4", FromAreaID: "MINERIA", ToAreaID: "LEGAL", Date: ts("2026-03-02T09:30:00Z"), Action: model.ActionDerive, Notes: "Opinión legal sobre vigencia de personería jurídica.", User: "Analista Técnico"},
			},
		},
		{
			ID: "5", Code: "MEM-2026-0012", Type: "Memorándum",
			Year: "2026", EmissionDate: "2026-03-10",
			Administrado: "Oficina de Recursos Humanos - DREM",
			Province:     "Abancay", District: "Abancay",
			Subject:       "Cronograma de capacitaciones en gestión pública para el segundo trimestre.",
			RegisterDate:  ts("2026-03-10T16:00:00Z"),
			CurrentAreaID: "ADMIN", Status: model.StatusInProcess, Priority: model.PriorityLow,
			Movements: []model.Movement{
				{ID: "m7", DocumentID: "5", FromAreaID: "DIRECCION", ToAreaID: "ADMIN", Date: ts("2026-03-10T16:10:00Z"), Action: "Instrucción Directa", Notes: "Ejecutar conforme a presupuesto aprobado.", User: "Director Regional"},
			},
		},
	}
}
