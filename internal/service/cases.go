// Пакет service — бизнес-логика сервиса учёта экспедиентов.
// cases.go — сервис экспедиентов: регистрация, маршрутизация, правка,
// удаление и представления (список, входящие, статистика, панель).
// Каждая мутация вычисляет запись целиком и сохраняет её одним Save.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/drem-apurimac/tramite/internal/attachment"
	"github.com/drem-apurimac/tramite/internal/domain/model"
	"github.com/drem-apurimac/tramite/internal/domain/query"
	"github.com/drem-apurimac/tramite/internal/domain/tracking"
	"github.com/drem-apurimac/tramite/internal/domain/validation"
	"github.com/drem-apurimac/tramite/internal/events"
	"github.com/drem-apurimac/tramite/internal/repository"
)

const tracerName = "github.com/drem-apurimac/tramite/internal/service"

// Prometheus-метрики экспедиентов.
var (
	casesRegisteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tr_cases_registered_total",
		Help: "Количество зарегистрированных экспедиентов.",
	})
	caseMovementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tr_case_movements_total",
		Help: "Количество движений экспедиентов по действию.",
	}, []string{"action"})
	casesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tr_cases_deleted_total",
		Help: "Количество удалённых экспедиентов.",
	})
)

// Пределы пагинации списков.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// PDFContentType — допустимый тип вложения.
const PDFContentType = "application/pdf"

// Summarizer — источник кратких резюме текста.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Actor — пользователь, выполняющий операцию.
type Actor struct {
	UserID string
	Name   string
	Role   string
}

// CaseService — сервис экспедиентов.
type CaseService struct {
	cases         repository.CaseRepository
	notifications repository.NotificationRepository
	settings      repository.SettingsRepository
	engine        *tracking.Engine
	publisher     events.Publisher
	attachments   attachment.Store
	summarizer    Summarizer
	maxAttachment int64
	location      *time.Location
	now           func() time.Time
	logger        *slog.Logger
	tracer        trace.Tracer
}

// CaseDeps — зависимости CaseService. Publisher, Attachments и Summarizer
// необязательны.
type CaseDeps struct {
	Cases         repository.CaseRepository
	Notifications repository.NotificationRepository
	Settings      repository.SettingsRepository
	Engine        *tracking.Engine
	Publisher     events.Publisher
	Attachments   attachment.Store
	Summarizer    Summarizer
	// MaxAttachment — предельный размер PDF в байтах; 0 — без ограничения.
	MaxAttachment int64
	Location      *time.Location
}

// NewCaseService создаёт сервис экспедиентов.
func NewCaseService(deps CaseDeps, logger *slog.Logger) *CaseService {
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &CaseService{
		cases:         deps.Cases,
		notifications: deps.Notifications,
		settings:      deps.Settings,
		engine:        deps.Engine,
		publisher:     deps.Publisher,
		attachments:   deps.Attachments,
		summarizer:    deps.Summarizer,
		maxAttachment: deps.MaxAttachment,
		location:      deps.Location,
		now:           time.Now,
		logger:        logger.With(slog.String("component", "case_service")),
		tracer:        otel.Tracer(tracerName),
	}
}

// Register регистрирует новый экспедиент в области приёма.
// Пустой год берётся из системной конфигурации. Поля проверяются до
// первого обращения к хранилищу.
func (s *CaseService) Register(ctx context.Context, in tracking.RegisterInput, actor Actor) (model.CaseRecord, error) {
	ctx, span := s.startSpan(ctx, "cases.Register")
	defer span.End()

	if err := s.engine.Validate(in); err != nil {
		return model.CaseRecord{}, s.fail(span, classify("регистрация экспедиента", err))
	}

	if strings.TrimSpace(in.Year) == "" {
		cfg, err := s.settings.Get(ctx)
		if err != nil {
			s.logger.Warn("Не удалось получить текущий год из конфигурации",
				slog.String("error", err.Error()),
			)
		} else {
			in.Year = cfg.CurrentYear
		}
	}

	existing, err := s.cases.List(ctx)
	if err != nil {
		return model.CaseRecord{}, s.fail(span, classify("регистрация экспедиента", err))
	}
	codes := make(map[string]bool, len(existing))
	for _, r := range existing {
		codes[r.Code] = true
	}

	rec, err := s.engine.Create(in, actor.Name, func(code string) bool { return codes[code] })
	if err != nil {
		return model.CaseRecord{}, s.fail(span, classify("регистрация экспедиента", err))
	}
	if err := s.cases.Save(ctx, rec); err != nil {
		return model.CaseRecord{}, s.fail(span, classify("регистрация экспедиента", err))
	}

	casesRegisteredTotal.Inc()
	caseMovementsTotal.WithLabelValues(model.ActionRegister).Inc()
	span.SetAttributes(attribute.String("case.id", rec.ID), attribute.String("case.code", rec.Code))

	s.logger.Info("Экспедиент зарегистрирован",
		slog.String("id", rec.ID),
		slog.String("code", rec.Code),
		slog.String("user", actor.Name),
	)

	s.notify(ctx, "Nuevo Registro", fmt.Sprintf("Expediente %s registrado.", rec.Code), model.NotificationInfo)
	s.publish(ctx, events.CaseRegistered, rec, "", rec.CurrentAreaID, actor)
	return rec, nil
}

// Get возвращает экспедиент по id.
func (s *CaseService) Get(ctx context.Context, id string) (model.CaseRecord, error) {
	rec, err := s.cases.Get(ctx, id)
	if err != nil {
		return model.CaseRecord{}, classify("получение экспедиента", err)
	}
	return rec, nil
}

// ListResult — страница списка экспедиентов.
type ListResult struct {
	Items []model.CaseRecord
	Total int
	// Years — годы, встречающиеся во всей коллекции (для фильтра).
	Years []string
}

// List возвращает экспедиенты по критериям с пагинацией.
func (s *CaseService) List(ctx context.Context, c query.Criteria, limit, offset int) (ListResult, error) {
	records, err := s.cases.List(ctx)
	if err != nil {
		return ListResult{}, classify("список экспедиентов", err)
	}
	items, total := query.Paginate(query.Apply(records, c), pageLimit(limit), max(offset, 0))
	return ListResult{Items: items, Total: total, Years: query.Years(records)}, nil
}

// Inbox возвращает неархивные экспедиенты с фильтром приоритета.
func (s *CaseService) Inbox(ctx context.Context, priority string, limit, offset int) ([]model.CaseRecord, int, error) {
	records, err := s.cases.List(ctx)
	if err != nil {
		return nil, 0, classify("входящие", err)
	}
	items, total := query.Paginate(query.Inbox(records, priority), pageLimit(limit), max(offset, 0))
	return items, total, nil
}

// Derive передаёт экспедиент в другую область.
func (s *CaseService) Derive(ctx context.Context, id, toAreaID, notes string, actor Actor) (model.CaseRecord, error) {
	ctx, span := s.startSpan(ctx, "cases.Derive", attribute.String("case.id", id))
	defer span.End()

	rec, err := s.cases.Get(ctx, id)
	if err != nil {
		return model.CaseRecord{}, s.fail(span, classify("деривация экспедиента", err))
	}
	from := rec.CurrentAreaID

	out, err := s.engine.Derive(rec, toAreaID, notes, actor.Name)
	if err != nil {
		return model.CaseRecord{}, s.fail(span, classify("деривация экспедиента", err))
	}
	if err := s.cases.Save(ctx, out); err != nil {
		return model.CaseRecord{}, s.fail(span, classify("деривация экспедиента", err))
	}

	caseMovementsTotal.WithLabelValues(model.ActionDerive).Inc()
	s.logger.Info("Экспедиент передан",
		slog.String("id", out.ID),
		slog.String("code", out.Code),
		slog.String("from", from),
		slog.String("to", out.CurrentAreaID),
		slog.String("user", actor.Name),
	)

	areaName := s.engine.Areas().Name(out.CurrentAreaID)
	s.notify(ctx, "Expediente Derivado",
		fmt.Sprintf("Expediente %s derivado a %s.", out.Code, areaName), model.NotificationSuccess)
	s.publish(ctx, events.CaseDerived, out, from, out.CurrentAreaID, actor)
	return out, nil
}

// Archive закрывает экспедиент.
func (s *CaseService) Archive(ctx context.Context, id, notes string, actor Actor) (model.CaseRecord, error) {
	ctx, span := s.startSpan(ctx, "cases.Archive", attribute.String("case.id", id))
	defer span.End()

	rec, err := s.cases.Get(ctx, id)
	if err != nil {
		return model.CaseRecord{}, s.fail(span, classify("архивирование экспедиента", err))
	}
	out, err := s.engine.Archive(rec, notes, actor.Name)
	if err != nil {
		return model.CaseRecord{}, s.fail(span, classify("архивирование экспедиента", err))
	}
	if err := s.cases.Save(ctx, out); err != nil {
		return model.CaseRecord{}, s.fail(span, classify("архивирование экспедиента", err))
	}

	caseMovementsTotal.WithLabelValues(model.ActionArchive).Inc()
	s.logger.Info("Экспедиент архивирован",
		slog.String("id", out.ID),
		slog.String("code", out.Code),
		slog.String("user", actor.Name),
	)
	s.publish(ctx, events.CaseArchived, out, out.CurrentAreaID, out.CurrentAreaID, actor)
	return out, nil
}

// Edit применяет административную правку метаданных.
// Пустая правка возвращает запись без записи в хранилище.
func (s *CaseService) Edit(ctx context.Context, id string, patch tracking.Patch, actor Actor) (model.CaseRecord, error) {
	ctx, span := s.startSpan(ctx, "cases.Edit", attribute.String("case.id", id))
	defer span.End()

	rec, err := s.cases.Get(ctx, id)
	if err != nil {
		return model.CaseRecord{}, s.fail(span, classify("правка экспедиента", err))
	}
	if patch.Empty() {
		return rec, nil
	}

	out, err := s.engine.Edit(rec, patch, actor.Name)
	if err != nil {
		return model.CaseRecord{}, s.fail(span, classify("правка экспедиента", err))
	}
	if err := s.cases.Save(ctx, out); err != nil {
		return model.CaseRecord{}, s.fail(span, classify("правка экспедиента", err))
	}

	corrected := len(out.Movements) > len(rec.Movements)
	s.logger.Info("Экспедиент изменён",
		slog.String("id", out.ID),
		slog.String("code", out.Code),
		slog.Bool("correction", corrected),
		slog.String("user", actor.Name),
	)
	if corrected {
		caseMovementsTotal.WithLabelValues(model.ActionCorrection).Inc()
		s.publish(ctx, events.CaseCorrected, out, rec.CurrentAreaID, out.CurrentAreaID, actor)
	}
	return out, nil
}

// Delete удаляет экспедиент безвозвратно. Доступно только администратору.
func (s *CaseService) Delete(ctx context.Context, id string, actor Actor) error {
	ctx, span := s.startSpan(ctx, "cases.Delete", attribute.String("case.id", id))
	defer span.End()

	if actor.Role != model.RoleAdmin {
		return s.fail(span, fmt.Errorf("удаление экспедиента: %w", ErrForbidden))
	}
	rec, err := s.cases.Get(ctx, id)
	if err != nil {
		return s.fail(span, classify("удаление экспедиента", err))
	}
	if err := s.cases.Delete(ctx, id); err != nil {
		return s.fail(span, classify("удаление экспедиента", err))
	}

	casesDeletedTotal.Inc()
	s.logger.Info("Экспедиент удалён",
		slog.String("id", id),
		slog.String("code", rec.Code),
		slog.String("user", actor.Name),
	)
	s.publish(ctx, events.CaseDeleted, rec, rec.CurrentAreaID, "", actor)
	return nil
}

// Stats считает статистику за окно year/month/day (ALL — все).
func (s *CaseService) Stats(ctx context.Context, year, month, day string) (query.Stats, error) {
	w, err := query.ParseWindow(year, month, day, s.location)
	if err != nil {
		return query.Stats{}, classify("статистика", validation.Fields(validation.FieldError{
			Field: "window", Reason: err.Error(),
		}))
	}
	records, err := s.cases.List(ctx)
	if err != nil {
		return query.Stats{}, classify("статистика", err)
	}
	return query.TimeWindowStats(records, w, s.engine.Areas().All()), nil
}

// DashboardView — показатели панели и последние уведомления.
type DashboardView struct {
	query.Dashboard
	Notifications []model.Notification `json:"notifications"`
	Unread        int                  `json:"unread"`
}

// Dashboard загружает экспедиенты и уведомления параллельно.
func (s *CaseService) Dashboard(ctx context.Context) (DashboardView, error) {
	ctx, span := s.startSpan(ctx, "cases.Dashboard")
	defer span.End()

	var (
		records []model.CaseRecord
		notes   []model.Notification
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.cases.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		notes, err = s.notifications.Latest(gctx, NotificationsLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardView{}, s.fail(span, classify("панель", err))
	}

	view := DashboardView{
		Dashboard:     query.DashboardKPIs(records, s.engine.Areas().All(), query.DefaultRecentLimit),
		Notifications: notes,
	}
	for _, n := range notes {
		if !n.Read {
			view.Unread++
		}
	}
	return view, nil
}

// AttachPDF сохраняет PDF-вложение и записывает его URL в pdfUrl.
func (s *CaseService) AttachPDF(ctx context.Context, id, filename, contentType string, body io.Reader, size int64, actor Actor) (model.CaseRecord, error) {
	ctx, span := s.startSpan(ctx, "cases.AttachPDF", attribute.String("case.id", id))
	defer span.End()

	if s.attachments == nil {
		return model.CaseRecord{}, s.fail(span, fmt.Errorf("вложение: хранилище вложений не настроено: %w", ErrUnavailable))
	}
	if !strings.HasPrefix(strings.ToLower(contentType), PDFContentType) {
		return model.CaseRecord{}, s.fail(span, classify("вложение", validation.Fields(validation.FieldError{
			Field: "file", Reason: fmt.Sprintf("ожидается %s, получено %q", PDFContentType, contentType),
		})))
	}

	if s.maxAttachment > 0 && size > s.maxAttachment {
		return model.CaseRecord{}, s.fail(span, classify("вложение", validation.Fields(validation.FieldError{
			Field: "file", Reason: fmt.Sprintf("размер %d превышает %d байт", size, s.maxAttachment),
		})))
	}

	rec, err := s.cases.Get(ctx, id)
	if err != nil {
		return model.CaseRecord{}, s.fail(span, classify("вложение", err))
	}

	key := attachment.CaseKey(rec.ID, filename)
	url, err := s.attachments.Put(ctx, key, PDFContentType, body, size)
	if err != nil {
		return model.CaseRecord{}, s.fail(span, fmt.Errorf("вложение: %w", err))
	}

	out := rec.Clone()
	out.PDFURL = url
	if err := s.cases.Save(ctx, out); err != nil {
		// Запись не сохранена: удаляем загруженный объект.
		if derr := s.attachments.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.logger.Warn("Не удалось удалить осиротевшее вложение",
				slog.String("key", key),
				slog.String("error", derr.Error()),
			)
		}
		return model.CaseRecord{}, s.fail(span, classify("вложение", err))
	}

	s.logger.Info("Вложение сохранено",
		slog.String("id", out.ID),
		slog.String("code", out.Code),
		slog.String("url", url),
		slog.String("user", actor.Name),
	)
	return out, nil
}

// Summarize запрашивает у классификатора резюме и сохраняет его в aiSummary.
func (s *CaseService) Summarize(ctx context.Context, id string) (model.CaseRecord, error) {
	ctx, span := s.startSpan(ctx, "cases.Summarize", attribute.String("case.id", id))
	defer span.End()

	if s.summarizer == nil {
		return model.CaseRecord{}, s.fail(span, fmt.Errorf("резюме: %w", ErrUnavailable))
	}
	rec, err := s.cases.Get(ctx, id)
	if err != nil {
		return model.CaseRecord{}, s.fail(span, classify("резюме", err))
	}

	text := fmt.Sprintf("%s %s. Administrado: %s. Asunto: %s", rec.Type, rec.ResolutionNumber, rec.Administrado, rec.Subject)
	summary, err := s.summarizer.Summarize(ctx, text)
	if err != nil {
		s.logger.Warn("Резюме не получено", slog.String("id", id), slog.String("error", err.Error()))
		return model.CaseRecord{}, s.fail(span, classify("резюме", err))
	}

	out := rec.Clone()
	out.AISummary = summary
	if err := s.cases.Save(ctx, out); err != nil {
		return model.CaseRecord{}, s.fail(span, classify("резюме", err))
	}
	return out, nil
}

// notify добавляет уведомление. Ошибка не прерывает операцию.
func (s *CaseService) notify(ctx context.Context, title, message string, typ model.NotificationType) {
	n := model.Notification{
		ID:      uuid.NewString(),
		Title:   title,
		Message: message,
		Type:    typ,
		Date:    s.now(),
	}
	if err := s.notifications.Add(ctx, n); err != nil {
		s.logger.Warn("Не удалось сохранить уведомление",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
	}
}

// publish отправляет событие. Ошибка брокера только логируется.
func (s *CaseService) publish(ctx context.Context, typ events.Type, rec model.CaseRecord, from, to string, actor Actor) {
	e := events.Event{
		Type:       typ,
		CaseID:     rec.ID,
		Code:       rec.Code,
		Status:     string(rec.Status),
		FromAreaID: from,
		ToAreaID:   to,
		Actor:      actor.Name,
		At:         s.now(),
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("Не удалось опубликовать событие",
			slog.String("type", string(typ)),
			slog.String("case_id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}

// pageLimit приводит limit к диапазону 1..MaxPageLimit; 0 — значение по умолчанию.
func pageLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageLimit
	case limit > MaxPageLimit:
		return MaxPageLimit
	}
	return limit
}

func (s *CaseService) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *CaseService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
