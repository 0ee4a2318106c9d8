package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/drem-apurimac/tramite/internal/domain/area"
	"github.com/drem-apurimac/tramite/internal/domain/model"
	"github.com/drem-apurimac/tramite/internal/domain/query"
	"github.com/drem-apurimac/tramite/internal/domain/tracking"
	"github.com/drem-apurimac/tramite/internal/domain/validation"
	"github.com/drem-apurimac/tramite/internal/events"
	"github.com/drem-apurimac/tramite/internal/gateway"
	"github.com/drem-apurimac/tramite/internal/gateway/memory"
	"github.com/drem-apurimac/tramite/internal/repository"
)

// --- Моки ---

// mockPublisher — мок events.Publisher, запоминает события.
type mockPublisher struct {
	mu        sync.Mutex
	events    []events.Event
	publishFn func(ctx context.Context, e events.Event) error
}

func (m *mockPublisher) Publish(ctx context.Context, e events.Event) error {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
	if m.publishFn != nil {
		return m.publishFn(ctx, e)
	}
	return nil
}

func (m *mockPublisher) types() []events.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Type, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

// mockStore — мок attachment.Store.
type mockStore struct {
	putFn    func(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	deleteFn func(ctx context.Context, key string) error
}

func (m *mockStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if m.putFn != nil {
		return m.putFn(ctx, key, contentType, body, size)
	}
	return "http://files/" + key, nil
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	return nil
}

// downGateway — недоступное хранилище, считает обращения.
type downGateway struct {
	mu    sync.Mutex
	calls int
}

func (g *downGateway) fail(op string) error {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return gateway.ConnectionError(op, errors.New("connection refused"))
}

func (g *downGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *downGateway) List(context.Context, string) ([]gateway.Document, error) {
	return nil, g.fail("list")
}

func (g *downGateway) Get(context.Context, string, string) (gateway.Document, error) {
	return gateway.Document{}, g.fail("get")
}

func (g *downGateway) Put(context.Context, string, string, json.RawMessage, bool) error {
	return g.fail("put")
}

func (g *downGateway) Remove(context.Context, string, string) error {
	return g.fail("remove")
}

// mockSummarizer — мок Summarizer.
type mockSummarizer struct {
	summarizeFn func(ctx context.Context, text string) (string, error)
}

func (m *mockSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	return m.summarizeFn(ctx, text)
}

// --- Окружение ---

type caseEnv struct {
	svc           *CaseService
	cases         repository.CaseRepository
	notifications repository.NotificationRepository
	settings      repository.SettingsRepository
	publisher     *mockPublisher
}

func newCaseEnv(t *testing.T, mutate func(*CaseDeps)) *caseEnv {
	t.Helper()
	return newCaseEnvOn(t, memory.New(), mutate)
}

func newCaseEnvOn(t *testing.T, gw gateway.Gateway, mutate func(*CaseDeps)) *caseEnv {
	t.Helper()

	engine, err := tracking.New(area.Default(), validation.New())
	if err != nil {
		t.Fatalf("tracking.New ошибка: %v", err)
	}
	env := &caseEnv{
		cases:         repository.NewCaseRepository(gw),
		notifications: repository.NewNotificationRepository(gw),
		settings:      repository.NewSettingsRepository(gw),
		publisher:     &mockPublisher{},
	}
	deps := CaseDeps{
		Cases:         env.cases,
		Notifications: env.notifications,
		Settings:      env.settings,
		Engine:        engine,
		Publisher:     env.publisher,
		Location:      time.UTC,
	}
	if mutate != nil {
		mutate(&deps)
	}
	env.svc = NewCaseService(deps, slog.Default())
	return env
}

var mesaActor = Actor{UserID: "2", Name: "Mesa de Partes", Role: model.RoleIntake}

func registerACME(t *testing.T, env *caseEnv) model.CaseRecord {
	t.Helper()
	rec, err := env.svc.Register(context.Background(), tracking.RegisterInput{
		Type:         "Resolución",
		Year:         "2026",
		Administrado: "ACME S.A.C.",
		Subject:      "Test",
	}, mesaActor)
	if err != nil {
		t.Fatalf("Register ошибка: %v", err)
	}
	return rec
}

// --- Register ---

// TestCaseService_Register проверяет регистрацию нового экспедиента.
func TestCaseService_Register(t *testing.T) {
	env := newCaseEnv(t, nil)
	rec := registerACME(t, env)

	if rec.Status != model.StatusPending {
		t.Errorf("Status = %q, ожидается %q", rec.Status, model.StatusPending)
	}
	if len(rec.Movements) != 1 {
		t.Fatalf("len(Movements) = %d, ожидается 1", len(rec.Movements))
	}
	if !regexp.MustCompile(`^RES-2026-\d{4}$`).MatchString(rec.Code) {
		t.Errorf("Code = %q, ожидается RES-2026-NNNN", rec.Code)
	}
	if rec.CurrentAreaID != area.DefaultIntake {
		t.Errorf("CurrentAreaID = %q, ожидается %q", rec.CurrentAreaID, area.DefaultIntake)
	}
	if rec.Movements[0].User != mesaActor.Name {
		t.Errorf("Movements[0].User = %q, ожидается %q", rec.Movements[0].User, mesaActor.Name)
	}

	stored, err := env.cases.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("запись не сохранена: %v", err)
	}
	if stored.Code != rec.Code {
		t.Errorf("сохранённый Code = %q, ожидается %q", stored.Code, rec.Code)
	}

	notes, _ := env.notifications.Latest(context.Background(), 10)
	if len(notes) != 1 || notes[0].Title != "Nuevo Registro" {
		t.Errorf("уведомления = %+v, ожидается одно «Nuevo Registro»", notes)
	} else if !strings.Contains(notes[0].Message, rec.Code) {
		t.Errorf("Message = %q, ожидается код %s", notes[0].Message, rec.Code)
	}

	if got := env.publisher.types(); len(got) != 1 || got[0] != events.CaseRegistered {
		t.Errorf("события = %v, ожидается [%s]", got, events.CaseRegistered)
	}
}

// TestCaseService_Register_YearFromSettings проверяет год по умолчанию из конфигурации.
func TestCaseService_Register_YearFromSettings(t *testing.T) {
	env := newCaseEnv(t, nil)
	cfg := model.DefaultSystemConfig()
	cfg.CurrentYear = "2031"
	if err := env.settings.Save(context.Background(), cfg); err != nil {
		t.Fatalf("Save ошибка: %v", err)
	}

	rec, err := env.svc.Register(context.Background(), tracking.RegisterInput{
		Type: "Oficio", Administrado: "Municipalidad", Subject: "Apoyo técnico",
	}, mesaActor)
	if err != nil {
		t.Fatalf("Register ошибка: %v", err)
	}
	if rec.Year != "2031" {
		t.Errorf("Year = %q, ожидается 2031", rec.Year)
	}
	if !strings.HasPrefix(rec.Code, "OFI-2031-") {
		t.Errorf("Code = %q, ожидается префикс OFI-2031-", rec.Code)
	}
}

// TestCaseService_Register_InvalidRUC проверяет отказ при некорректном RUC.
func TestCaseService_Register_InvalidRUC(t *testing.T) {
	env := newCaseEnv(t, nil)

	_, err := env.svc.Register(context.Background(), tracking.RegisterInput{
		Type: "Resolución", Year: "2026", Administrado: "ACME S.A.C.", Subject: "Test", RUC: "12345",
	}, mesaActor)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ошибка = %v, ожидается ErrValidation", err)
	}
	ve, ok := validation.As(err)
	if !ok || !ve.Has("ruc") {
		t.Errorf("ожидается ошибка поля ruc, получено %v", err)
	}

	all, _ := env.cases.List(context.Background())
	if len(all) != 0 {
		t.Errorf("len(cases) = %d, ожидается 0", len(all))
	}
	if got := env.publisher.types(); len(got) != 0 {
		t.Errorf("события = %v, ожидается пусто", got)
	}
}

// TestCaseService_Register_ValidationBeforeStorage проверяет, что
// некорректные поля отклоняются без обращения к хранилищу, даже если
// оно недоступно.
func TestCaseService_Register_ValidationBeforeStorage(t *testing.T) {
	tests := []struct {
		name  string
		in    tracking.RegisterInput
		field string
	}{
		{"пустой administrado", tracking.RegisterInput{Administrado: "  ", Subject: "x"}, "administrado"},
		{"RUC из 5 цифр", tracking.RegisterInput{Administrado: "ACME", Subject: "x", RUC: "12345"}, "ruc"},
		{"пустой subject", tracking.RegisterInput{Administrado: "ACME"}, "subject"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &downGateway{}
			env := newCaseEnvOn(t, gw, nil)

			_, err := env.svc.Register(context.Background(), tt.in, mesaActor)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("ошибка = %v, ожидается ErrValidation", err)
			}
			if errors.Is(err, ErrConnection) {
				t.Errorf("ошибка = %v, не ожидается ErrConnection", err)
			}
			if ve, ok := validation.As(err); !ok || !ve.Has(tt.field) {
				t.Errorf("ожидается ошибка поля %s, получено %v", tt.field, err)
			}
			if n := gw.callCount(); n != 0 {
				t.Errorf("обращений к хранилищу = %d, ожидается 0", n)
			}
		})
	}
}

// TestCaseService_Register_StorageDown проверяет ErrConnection для
// корректных полей при недоступном хранилище.
func TestCaseService_Register_StorageDown(t *testing.T) {
	env := newCaseEnvOn(t, &downGateway{}, nil)

	_, err := env.svc.Register(context.Background(), tracking.RegisterInput{
		Year: "2026", Administrado: "ACME", Subject: "Test",
	}, mesaActor)
	if !errors.Is(err, ErrConnection) {
		t.Errorf("ошибка = %v, ожидается ErrConnection", err)
	}
}

// TestCaseService_Register_PublishFailure проверяет, что сбой брокера не отменяет регистрацию.
func TestCaseService_Register_PublishFailure(t *testing.T) {
	env := newCaseEnv(t, nil)
	env.publisher.publishFn = func(context.Context, events.Event) error {
		return errors.New("broker down")
	}

	rec := registerACME(t, env)
	if _, err := env.cases.Get(context.Background(), rec.ID); err != nil {
		t.Errorf("запись должна быть сохранена: %v", err)
	}
}

// --- Derive / Archive ---

// TestCaseService_Derive проверяет передачу экспедиента в другую область.
func TestCaseService_Derive(t *testing.T) {
	env := newCaseEnv(t, nil)
	rec := registerACME(t, env)

	out, err := env.svc.Derive(context.Background(), rec.ID, "LEGAL", "Revisión", mesaActor)
	if err != nil {
		t.Fatalf("Derive ошибка: %v", err)
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
	if out.Movements[1].ToAreaID != "LEGAL" || out.Movements[1].Notes != "Revisión" {
		t.Errorf("Movements[1] = %+v, ожидается toAreaId=LEGAL notes=Revisión", out.Movements[1])
	}

	stored, _ := env.cases.Get(context.Background(), rec.ID)
	if stored.CurrentAreaID != "LEGAL" || len(stored.Movements) != 2 {
		t.Errorf("сохранённая запись не обновлена: %+v", stored)
	}

	notes, _ := env.notifications.Latest(context.Background(), 10)
	if len(notes) != 2 || notes[0].Title != "Expediente Derivado" {
		t.Errorf("последнее уведомление = %+v, ожидается «Expediente Derivado»", notes)
	}

	got := env.publisher.types()
	if len(got) != 2 || got[1] != events.CaseDerived {
		t.Errorf("события = %v, ожидается [registered derived]", got)
	}
}

// TestCaseService_Derive_Errors проверяет классификацию ошибок деривации.
func TestCaseService_Derive_Errors(t *testing.T) {
	env := newCaseEnv(t, nil)
	rec := registerACME(t, env)
	archived, err := env.svc.Archive(context.Background(), registerACME(t, env).ID, "", mesaActor)
	if err != nil {
		t.Fatalf("Archive ошибка: %v", err)
	}

	tests := []struct {
		name string
		id   string
		to   string
		want error
	}{
		{"неизвестная область", rec.ID, "MARTE", ErrValidation},
		{"текущая область", rec.ID, area.DefaultIntake, ErrValidation},
		{"не найден", "missing", "LEGAL", ErrNotFound},
		{"архивный экспедиент", archived.ID, "LEGAL", ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Derive(context.Background(), tt.id, tt.to, "", mesaActor)
			if !errors.Is(err, tt.want) {
				t.Errorf("ошибка = %v, ожидается %v", err, tt.want)
			}
		})
	}

	stored, _ := env.cases.Get(context.Background(), rec.ID)
	if len(stored.Movements) != 1 {
		t.Errorf("len(Movements) = %d, ожидается 1 после отказов", len(stored.Movements))
	}
}

// TestCaseService_Archive проверяет архивирование и повторный отказ.
func TestCaseService_Archive(t *testing.T) {
	env := newCaseEnv(t, nil)
	rec := registerACME(t, env)

	out, err := env.svc.Archive(context.Background(), rec.ID, "", mesaActor)
	if err != nil {
		t.Fatalf("Archive ошибка: %v", err)
	}
	if out.Status != model.StatusArchived {
		t.Errorf("Status = %q, ожидается %q", out.Status, model.StatusArchived)
	}
	last, _ := tracking.LastMovement(out)
	if last.Action != model.ActionArchive {
		t.Errorf("Action = %q, ожидается %q", last.Action, model.ActionArchive)
	}

	if _, err := env.svc.Archive(context.Background(), rec.ID, "", mesaActor); !errors.Is(err, ErrConflict) {
		t.Errorf("повторное архивирование: ошибка = %v, ожидается ErrConflict", err)
	}
}

// --- Edit ---

// TestCaseService_Edit_Reopen проверяет возврат архивного экспедиента через правку.
func TestCaseService_Edit_Reopen(t *testing.T) {
	env := newCaseEnv(t, nil)
	rec := registerACME(t, env)
	if _, err := env.svc.Archive(context.Background(), rec.ID, "", mesaActor); err != nil {
		t.Fatalf("Archive ошибка: %v", err)
	}

	status := model.StatusInProcess
	areaID := "ENERGIA"
	out, err := env.svc.Edit(context.Background(), rec.ID, tracking.Patch{Status: &status, CurrentAreaID: &areaID}, mesaActor)
	if err != nil {
		t.Fatalf("Edit ошибка: %v", err)
	}
	if out.Status != model.StatusInProcess || out.CurrentAreaID != "ENERGIA" {
		t.Errorf("Status/Area = %q/%q, ожидается %q/ENERGIA", out.Status, out.CurrentAreaID, model.StatusInProcess)
	}
	last, _ := tracking.LastMovement(out)
	if last.Action != model.ActionCorrection {
		t.Errorf("Action = %q, ожидается %q", last.Action, model.ActionCorrection)
	}

	got := env.publisher.types()
	if got[len(got)-1] != events.CaseCorrected {
		t.Errorf("последнее событие = %s, ожидается %s", got[len(got)-1], events.CaseCorrected)
	}
}

// TestCaseService_Edit_MetadataOnly проверяет правку без движения и пустую правку.
func TestCaseService_Edit_MetadataOnly(t *testing.T) {
	env := newCaseEnv(t, nil)
	rec := registerACME(t, env)

	subject := "Asunto corregido"
	out, err := env.svc.Edit(context.Background(), rec.ID, tracking.Patch{Subject: &subject}, mesaActor)
	if err != nil {
		t.Fatalf("Edit ошибка: %v", err)
	}
	if out.Subject != subject {
		t.Errorf("Subject = %q, ожидается %q", out.Subject, subject)
	}
	if len(out.Movements) != 1 {
		t.Errorf("len(Movements) = %d, ожидается 1", len(out.Movements))
	}

	same, err := env.svc.Edit(context.Background(), rec.ID, tracking.Patch{}, mesaActor)
	if err != nil {
		t.Fatalf("пустая правка: %v", err)
	}
	if same.Subject != subject {
		t.Errorf("пустая правка: Subject = %q, ожидается %q", same.Subject, subject)
	}
}

// --- Delete ---

// TestCaseService_Delete проверяет удаление только администратором.
func TestCaseService_Delete(t *testing.T) {
	env := newCaseEnv(t, nil)
	rec := registerACME(t, env)

	if err := env.svc.Delete(context.Background(), rec.ID, mesaActor); !errors.Is(err, ErrForbidden) {
		t.Fatalf("ошибка = %v, ожидается ErrForbidden", err)
	}

	admin := Actor{UserID: "1", Name: "Director Regional", Role: model.RoleAdmin}
	if err := env.svc.Delete(context.Background(), rec.ID, admin); err != nil {
		t.Fatalf("Delete ошибка: %v", err)
	}
	if _, err := env.svc.Get(context.Background(), rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get после удаления: ошибка = %v, ожидается ErrNotFound", err)
	}
	if err := env.svc.Delete(context.Background(), rec.ID, admin); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторное удаление: ошибка = %v, ожидается ErrNotFound", err)
	}
}

// --- Представления ---

// TestCaseService_ListAndInbox проверяет фильтрацию, пагинацию и входящие.
func TestCaseService_ListAndInbox(t *testing.T) {
	env := newCaseEnv(t, nil)
	var ids []string
	for range 3 {
		ids = append(ids, registerACME(t, env).ID)
	}
	if _, err := env.svc.Archive(context.Background(), ids[0], "", mesaActor); err != nil {
		t.Fatalf("Archive ошибка: %v", err)
	}

	res, err := env.svc.List(context.Background(), query.Criteria{Query: "acme"}, 2, 0)
	if err != nil {
		t.Fatalf("List ошибка: %v", err)
	}
	if res.Total != 3 || len(res.Items) != 2 {
		t.Errorf("Total/Items = %d/%d, ожидается 3/2", res.Total, len(res.Items))
	}
	if len(res.Years) != 1 || res.Years[0] != "2026" {
		t.Errorf("Years = %v, ожидается [2026]", res.Years)
	}

	res, err = env.svc.List(context.Background(), query.Criteria{Status: model.StatusArchived}, 0, 0)
	if err != nil {
		t.Fatalf("List ошибка: %v", err)
	}
	if res.Total != 1 {
		t.Errorf("архивных = %d, ожидается 1", res.Total)
	}

	items, total, err := env.svc.Inbox(context.Background(), query.FilterAll, 0, 0)
	if err != nil {
		t.Fatalf("Inbox ошибка: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("входящих = %d, ожидается 2", total)
	}
}

// TestCaseService_Stats проверяет окно статистики и отказ дня без месяца.
func TestCaseService_Stats(t *testing.T) {
	env := newCaseEnv(t, nil)
	now := time.Now().UTC()
	registerACME(t, env)

	st, err := env.svc.Stats(context.Background(), now.Format("2006"), query.FilterAll, query.FilterAll)
	if err != nil {
		t.Fatalf("Stats ошибка: %v", err)
	}
	if st.TotalEntries != 1 {
		t.Errorf("TotalEntries = %d, ожидается 1", st.TotalEntries)
	}
	if len(st.Buckets) != 12 {
		t.Errorf("len(Buckets) = %d, ожидается 12", len(st.Buckets))
	}

	_, err = env.svc.Stats(context.Background(), "2026", query.FilterAll, "5")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("день без месяца: ошибка = %v, ожидается ErrValidation", err)
	}
}

// TestCaseService_Dashboard проверяет сборку панели из двух коллекций.
func TestCaseService_Dashboard(t *testing.T) {
	env := newCaseEnv(t, nil)
	rec := registerACME(t, env)
	if _, err := env.svc.Derive(context.Background(), rec.ID, "LEGAL", "", mesaActor); err != nil {
		t.Fatalf("Derive ошибка: %v", err)
	}

	view, err := env.svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard ошибка: %v", err)
	}
	if view.Total != 1 {
		t.Errorf("Total = %d, ожидается 1", view.Total)
	}
	if len(view.Notifications) != 2 || view.Unread != 2 {
		t.Errorf("Notifications/Unread = %d/%d, ожидается 2/2", len(view.Notifications), view.Unread)
	}
	if len(view.RecentMovements) != 2 {
		t.Errorf("len(RecentMovements) = %d, ожидается 2", len(view.RecentMovements))
	}
}

// --- Вложения и резюме ---

// TestCaseService_AttachPDF проверяет загрузку PDF и запись pdfUrl.
func TestCaseService_AttachPDF(t *testing.T) {
	var gotKey string
	store := &mockStore{
		putFn: func(_ context.Context, key, contentType string, body io.Reader, _ int64) (string, error) {
			gotKey = key
			if contentType != PDFContentType {
				t.Errorf("contentType = %q, ожидается %q", contentType, PDFContentType)
			}
			_, _ = io.Copy(io.Discard, body)
			return "http://files/" + key, nil
		},
	}
	env := newCaseEnv(t, func(d *CaseDeps) {
		d.Attachments = store
		d.MaxAttachment = 1024
	})
	rec := registerACME(t, env)

	out, err := env.svc.AttachPDF(context.Background(), rec.ID, "res.pdf", "application/pdf", strings.NewReader("%PDF-1.7"), 8, mesaActor)
	if err != nil {
		t.Fatalf("AttachPDF ошибка: %v", err)
	}
	if !strings.HasPrefix(gotKey, "cases/"+rec.ID+"/") {
		t.Errorf("key = %q, ожидается префикс cases/%s/", gotKey, rec.ID)
	}
	if out.PDFURL != "http://files/"+gotKey {
		t.Errorf("PDFURL = %q, ожидается http://files/%s", out.PDFURL, gotKey)
	}

	tests := []struct {
		name        string
		contentType string
		size        int64
	}{
		{"не PDF", "image/png", 8},
		{"слишком большой", "application/pdf", 4096},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.AttachPDF(context.Background(), rec.ID, "x", tt.contentType, strings.NewReader("x"), tt.size, mesaActor)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("ошибка = %v, ожидается ErrValidation", err)
			}
		})
	}
}

// TestCaseService_AttachPDF_NoStore проверяет отказ без хранилища вложений.
func TestCaseService_AttachPDF_NoStore(t *testing.T) {
	env := newCaseEnv(t, nil)
	rec := registerACME(t, env)

	_, err := env.svc.AttachPDF(context.Background(), rec.ID, "a.pdf", PDFContentType, strings.NewReader("x"), 1, mesaActor)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("ошибка = %v, ожидается ErrUnavailable", err)
	}
}

// TestCaseService_Summarize проверяет запись резюме и недоступность классификатора.
func TestCaseService_Summarize(t *testing.T) {
	summarizer := &mockSummarizer{
		summarizeFn: func(_ context.Context, text string) (string, error) {
			if !strings.Contains(text, "ACME S.A.C.") {
				t.Errorf("text = %q, ожидается administrado", text)
			}
			return "Resumen breve.", nil
		},
	}
	env := newCaseEnv(t, func(d *CaseDeps) { d.Summarizer = summarizer })
	rec := registerACME(t, env)

	out, err := env.svc.Summarize(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Summarize ошибка: %v", err)
	}
	if out.AISummary != "Resumen breve." {
		t.Errorf("AISummary = %q, ожидается «Resumen breve.»", out.AISummary)
	}

	plain := newCaseEnv(t, nil)
	other := registerACME(t, plain)
	if _, err := plain.svc.Summarize(context.Background(), other.ID); !errors.Is(err, ErrUnavailable) {
		t.Errorf("без классификатора: ошибка = %v, ожидается ErrUnavailable", err)
	}
}
