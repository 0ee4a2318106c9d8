package tracking

import (
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/drem-apurimac/tramite/internal/domain/area"
	"github.com/drem-apurimac/tramite/internal/domain/model"
	"github.com/drem-apurimac/tramite/internal/domain/validation"
)

// testEngine создаёт Engine с детерминированными часами и генераторами.
func testEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tick := 0
	seq := 0
	defaults := []Option{
		WithClock(func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Minute)
		}),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
		WithRandom(func(n int) int { return 234 }),
	}

	e, err := New(area.Default(), validation.New(), append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("New() вернул ошибку: %v", err)
	}
	return e
}

func validInput() RegisterInput {
	return RegisterInput{
		Type:         "Resolución",
		Year:         "2026",
		Administrado: "ACME S.A.C.",
		Subject:      "Test",
	}
}

// Сценарий A: регистрация.
func TestCreate_Register(t *testing.T) {
	e := testEngine(t)

	rec, err := e.Create(validInput(), "Mesa de Partes", nil)
	if err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}

	if rec.Status != model.StatusPending {
		t.Errorf("Status = %q, ожидается %q", rec.Status, model.StatusPending)
	}
	if len(rec.Movements) != 1 {
		t.Fatalf("len(Movements) = %d, ожидается 1", len(rec.Movements))
	}
	if !regexp.MustCompile(`^RES-2026-\d{4}$`).MatchString(rec.Code) {
		t.Errorf("Code = %q не соответствует RES-2026-NNNN", rec.Code)
	}
	if rec.Code != "RES-2026-1234" {
		t.Errorf("Code = %q, ожидается RES-2026-1234", rec.Code)
	}
	if rec.CurrentAreaID != area.DefaultIntake {
		t.Errorf("CurrentAreaID = %q, ожидается %q", rec.CurrentAreaID, area.DefaultIntake)
	}
	if rec.Priority != model.PriorityNormal {
		t.Errorf("Priority = %q, ожидается Normal", rec.Priority)
	}
	if rec.Province != DefaultProvince || rec.District != DefaultDistrict {
		t.Errorf("Province/District = %q/%q, ожидается Abancay", rec.Province, rec.District)
	}

	m := rec.Movements[0]
	if m.FromAreaID != area.External || m.ToAreaID != area.DefaultIntake {
		t.Errorf("движение %s → %s, ожидается EXTERNO → MESA", m.FromAreaID, m.ToAreaID)
	}
	if m.Action != model.ActionRegister {
		t.Errorf("Action = %q, ожидается %q", m.Action, model.ActionRegister)
	}
	if m.DocumentID != rec.ID {
		t.Errorf("DocumentID = %q, ожидается %q", m.DocumentID, rec.ID)
	}
	if m.User != "Mesa de Partes" {
		t.Errorf("User = %q", m.User)
	}
}

func TestCreate_Defaults(t *testing.T) {
	e := testEngine(t)

	rec, err := e.Create(RegisterInput{Administrado: "X", Subject: "Y"}, "", nil)
	if err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}
	if rec.Type != DefaultType {
		t.Errorf("Type = %q, ожидается %q", rec.Type, DefaultType)
	}
	if rec.Year != "2026" {
		t.Errorf("Year = %q, ожидается год часов 2026", rec.Year)
	}
	if rec.Movements[0].User != DefaultRegistrar {
		t.Errorf("User = %q, ожидается %q", rec.Movements[0].User, DefaultRegistrar)
	}
}

// P1 и сценарий C: недопустимые поля отклоняются.
func TestCreate_Validation(t *testing.T) {
	e := testEngine(t)

	tests := []struct {
		name  string
		mut   func(*RegisterInput)
		field string
	}{
		{"пустой administrado", func(in *RegisterInput) { in.Administrado = "" }, "administrado"},
		{"administrado из пробелов", func(in *RegisterInput) { in.Administrado = "   " }, "administrado"},
		{"пустой subject", func(in *RegisterInput) { in.Subject = "" }, "subject"},
		{"ruc из 5 цифр", func(in *RegisterInput) { in.RUC = "12345" }, "ruc"},
		{"ruc с буквами", func(in *RegisterInput) { in.RUC = "2010012345X" }, "ruc"},
		{"неизвестный приоритет", func(in *RegisterInput) { in.Priority = "Máxima" }, "priority"},
		{"некорректная дата", func(in *RegisterInput) { in.EmissionDate = "10/03/2026" }, "emissionDate"},
		{"некорректный год", func(in *RegisterInput) { in.Year = "26" }, "year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mut(&in)

			called := false
			_, err := e.Create(in, "", func(string) bool { called = true; return false })

			ve, ok := validation.As(err)
			if !ok {
				t.Fatalf("Create() = %v, ожидается *validation.Error", err)
			}
			if !ve.Has(tt.field) {
				t.Errorf("нет ошибки для %q: %+v", tt.field, ve.Fields)
			}
			if called {
				t.Error("проверка кода вызвана до завершения валидации")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	e := testEngine(t)

	if err := e.Validate(validInput()); err != nil {
		t.Errorf("Validate() = %v, ожидается nil", err)
	}

	in := validInput()
	in.Administrado = "   "
	in.RUC = " 12345 "
	ve, ok := validation.As(e.Validate(in))
	if !ok {
		t.Fatal("Validate() не вернул *validation.Error")
	}
	if !ve.Has("administrado") || !ve.Has("ruc") {
		t.Errorf("Fields = %+v, ожидаются administrado и ruc", ve.Fields)
	}
}

func TestCreate_CodeCollisionRetry(t *testing.T) {
	values := []int{1, 1, 2}
	i := 0
	e := testEngine(t, WithRandom(func(int) int {
		v := values[i%len(values)]
		i++
		return v
	}))

	taken := map[string]bool{"RES-2026-1001": true}
	rec, err := e.Create(validInput(), "", func(code string) bool { return taken[code] })
	if err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}
	if rec.Code != "RES-2026-1002" {
		t.Errorf("Code = %q, ожидается RES-2026-1002", rec.Code)
	}
}

func TestCreate_CodeExhausted(t *testing.T) {
	e := testEngine(t)

	_, err := e.Create(validInput(), "", func(string) bool { return true })
	if !errors.Is(err, ErrCodeExhausted) {
		t.Errorf("Create() = %v, ожидается ErrCodeExhausted", err)
	}
}

func TestCodePrefix(t *testing.T) {
	tests := map[string]string{
		"Resolución": "RES",
		"Memorándum": "MEM",
		"oficio":     "OFI",
		"Ca":         "CA",
		"Ínforme":    "ÍNF",
	}
	for in, want := range tests {
		if got := CodePrefix(in); got != want {
			t.Errorf("CodePrefix(%q) = %q, ожидается %q", in, got, want)
		}
	}
}

// Сценарий B и P3: деривация.
func TestDerive(t *testing.T) {
	e := testEngine(t)
	rec, _ := e.Create(validInput(), "", nil)

	out, err := e.Derive(rec, "LEGAL", "Revisión", "Director Regional")
	if err != nil {
		t.Fatalf("Derive() вернул ошибку: %v", err)
	}

	if out.CurrentAreaID != "LEGAL" {
		t.Errorf("CurrentAreaID = %q, ожидается LEGAL", out.CurrentAreaID)
	}
	if out.Status != model.StatusDerived {
		t.Errorf("Status = %q, ожидается %q", out.Status, model.StatusDerived)
	}
	if len(out.Movements) != 2 {
		t.Fatalf("len(Movements) = %d, ожидается 2", len(out.Movements))
	}
	last, _ := LastMovement(out)
	if last.ToAreaID != "LEGAL" || last.FromAreaID != "MESA" {
		t.Errorf("последнее движение %s → %s, ожидается MESA → LEGAL", last.FromAreaID, last.ToAreaID)
	}
	if last.Action != model.ActionDerive || last.Notes != "Revisión" {
		t.Errorf("последнее движение = %+v", last)
	}

	// Исходная запись не изменилась.
	if len(rec.Movements) != 1 || rec.CurrentAreaID != "MESA" {
		t.Error("Derive() изменил исходную запись")
	}
}

// P2: журнал только дополняется.
func TestDerive_AppendOnly(t *testing.T) {
	e := testEngine(t)
	rec, _ := e.Create(validInput(), "", nil)

	route := []string{"LEGAL", "ADMIN", "MINERIA", "LEGAL", "DIRECCION"}
	history := []model.Movement{rec.Movements[0]}
	for _, to := range route {
		next, err := e.Derive(rec, to, "", "")
		if err != nil {
			t.Fatalf("Derive(%s) вернул ошибку: %v", to, err)
		}
		if len(next.Movements) != len(rec.Movements)+1 {
			t.Fatalf("len = %d, ожидается %d", len(next.Movements), len(rec.Movements)+1)
		}
		for i, m := range history {
			if next.Movements[i] != m {
				t.Fatalf("движение %d изменено: %+v → %+v", i, m, next.Movements[i])
			}
		}
		last, _ := LastMovement(next)
		if last.User != DefaultActor {
			t.Errorf("User = %q, ожидается %q", last.User, DefaultActor)
		}
		history = append(history, last)
		rec = next
	}
}

func TestDerive_Rejects(t *testing.T) {
	e := testEngine(t)
	rec, _ := e.Create(validInput(), "", nil)

	if _, err := e.Derive(rec, "MESA", "", ""); err == nil {
		t.Error("Derive() в текущую область не вернул ошибку")
	}
	if _, err := e.Derive(rec, "NOWHERE", "", ""); err == nil {
		t.Error("Derive() в неизвестную область не вернул ошибку")
	}
	if _, err := e.Derive(rec, area.External, "", ""); err == nil {
		t.Error("Derive() в EXTERNO не вернул ошибку")
	}

	archived, err := e.Archive(rec, "", "")
	if err != nil {
		t.Fatalf("Archive() вернул ошибку: %v", err)
	}
	_, err = e.Derive(archived, "LEGAL", "", "")
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Errorf("Derive(archived) = %v, ожидается *TransitionError", err)
	}
}

func TestArchive(t *testing.T) {
	e := testEngine(t)
	rec, _ := e.Create(validInput(), "", nil)
	rec, _ = e.Derive(rec, "LEGAL", "", "")

	out, err := e.Archive(rec, "", "Analista")
	if err != nil {
		t.Fatalf("Archive() вернул ошибку: %v", err)
	}
	if out.Status != model.StatusArchived {
		t.Errorf("Status = %q, ожидается %q", out.Status, model.StatusArchived)
	}
	last, _ := LastMovement(out)
	if last.Action != model.ActionArchive || last.FromAreaID != "LEGAL" || last.ToAreaID != "LEGAL" {
		t.Errorf("последнее движение = %+v", last)
	}
	if last.Notes != archiveNotes {
		t.Errorf("Notes = %q, ожидается %q", last.Notes, archiveNotes)
	}

	if _, err := e.Archive(out, "", ""); err == nil {
		t.Error("повторный Archive() не вернул ошибку")
	}
}

func TestEdit_MetadataOnly(t *testing.T) {
	e := testEngine(t)
	rec, _ := e.Create(validInput(), "", nil)

	subject := "  Nuevo asunto  "
	prio := model.PriorityUrgent
	out, err := e.Edit(rec, Patch{Subject: &subject, Priority: &prio}, "")
	if err != nil {
		t.Fatalf("Edit() вернул ошибку: %v", err)
	}
	if out.Subject != "Nuevo asunto" {
		t.Errorf("Subject = %q", out.Subject)
	}
	if out.Priority != model.PriorityUrgent {
		t.Errorf("Priority = %q", out.Priority)
	}
	if len(out.Movements) != 1 {
		t.Errorf("len(Movements) = %d, ожидается 1 (правка без смены маршрута)", len(out.Movements))
	}
}

func TestEdit_RoutingChangeAppendsCorrection(t *testing.T) {
	e := testEngine(t)
	rec, _ := e.Create(validInput(), "", nil)
	rec, _ = e.Archive(rec, "", "")

	status := model.StatusInProcess
	areaID := "AMBIENTAL"
	out, err := e.Edit(rec, Patch{Status: &status, CurrentAreaID: &areaID}, "Director Regional")
	if err != nil {
		t.Fatalf("Edit() вернул ошибку: %v", err)
	}
	if out.Status != model.StatusInProcess || out.CurrentAreaID != "AMBIENTAL" {
		t.Errorf("Status/Area = %q/%q", out.Status, out.CurrentAreaID)
	}

	last, _ := LastMovement(out)
	if last.Action != model.ActionCorrection {
		t.Fatalf("Action = %q, ожидается %q", last.Action, model.ActionCorrection)
	}
	if last.FromAreaID != "MESA" || last.ToAreaID != "AMBIENTAL" {
		t.Errorf("движение %s → %s, ожидается MESA → AMBIENTAL", last.FromAreaID, last.ToAreaID)
	}
	want := "Estado: Archivado → En Trámite; Área: MESA → AMBIENTAL"
	if last.Notes != want {
		t.Errorf("Notes = %q, ожидается %q", last.Notes, want)
	}
}

func TestEdit_Validation(t *testing.T) {
	e := testEngine(t)
	rec, _ := e.Create(validInput(), "", nil)

	empty := ""
	badRUC := "123"
	badStatus := model.Status("Cerrado")
	badArea := "NOWHERE"
	badURL := "not a url"

	_, err := e.Edit(rec, Patch{
		Administrado:  &empty,
		RUC:           &badRUC,
		Status:        &badStatus,
		CurrentAreaID: &badArea,
		ExternalURL:   &badURL,
	}, "")

	ve, ok := validation.As(err)
	if !ok {
		t.Fatalf("Edit() = %v, ожидается *validation.Error", err)
	}
	for _, f := range []string{"administrado", "ruc", "status", "currentAreaId", "externalUrl"} {
		if !ve.Has(f) {
			t.Errorf("нет ошибки для %q: %+v", f, ve.Fields)
		}
	}

	// Очистка RUC допустима.
	out, err := e.Edit(rec, Patch{RUC: &empty}, "")
	if err != nil || out.RUC != "" {
		t.Errorf("Edit(ruc=\"\") = %v, ruc=%q", err, out.RUC)
	}

	// Очистка внешней ссылки допустима.
	link := "https://drem.gob.pe/exp/1"
	withLink, err := e.Edit(rec, Patch{ExternalURL: &link}, "")
	if err != nil || withLink.ExternalURL != link {
		t.Fatalf("Edit(externalUrl) = %v, externalUrl=%q", err, withLink.ExternalURL)
	}
	cleared, err := e.Edit(withLink, Patch{ExternalURL: &empty}, "")
	if err != nil {
		t.Fatalf("Edit(externalUrl=\"\") вернул ошибку: %v", err)
	}
	if cleared.ExternalURL != "" {
		t.Errorf("ExternalURL = %q, ожидается пусто", cleared.ExternalURL)
	}
}

func TestLastMovement_Empty(t *testing.T) {
	if _, ok := LastMovement(model.CaseRecord{}); ok {
		t.Error("LastMovement() на пустом журнале вернул ok=true")
	}
}

func TestNew_UnknownIntake(t *testing.T) {
	if _, err := New(area.Default(), validation.New(), WithIntakeArea("NOWHERE")); err == nil {
		t.Error("New() не вернул ошибку для неизвестной области приёма")
	}
}
