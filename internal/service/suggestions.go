// suggestions.go — фоновые подсказки классификатора, привязанные к сессии
// формы регистрации. Новый запрос той же сессии отменяет предыдущий,
// закрытие сессии отбрасывает ещё не полученный результат.
// Сессия принадлежит пользователю: идентификатор формы уникален только
// в пределах владельца.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/drem-apurimac/tramite/internal/classifier"
	"github.com/drem-apurimac/tramite/internal/domain/validation"
)

// Состояния подсказки.
const (
	SuggestionPending     = "pending"
	SuggestionReady       = "ready"
	SuggestionUnavailable = "unavailable"
)

// minSuggestionText — минимальная длина текста для запроса подсказки.
const minSuggestionText = 10

// Router — источник рекомендаций по маршрутизации.
type Router interface {
	SuggestRouting(ctx context.Context, text string) (classifier.Suggestion, error)
}

// SuggestionView — состояние подсказки сессии.
type SuggestionView struct {
	SessionID  string                 `json:"sessionId"`
	State      string                 `json:"state"`
	Suggestion *classifier.Suggestion `json:"suggestion,omitempty"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

// sessionKey — ключ сессии в пределах владельца.
type sessionKey struct {
	owner string
	id    string
}

type suggestionSession struct {
	gen     uint64
	cancel  context.CancelFunc
	view    SuggestionView
	touched time.Time
}

// Suggestions управляет сессиями подсказок.
type Suggestions struct {
	router  Router
	timeout time.Duration
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu       sync.Mutex
	base     context.Context
	stop     context.CancelFunc
	sessions map[sessionKey]*suggestionSession
	gen      uint64
	wg       sync.WaitGroup
}

// NewSuggestions создаёт менеджер сессий. ttl — время жизни сессии
// без обращений; timeout — предел одного запроса к классификатору.
func NewSuggestions(router Router, timeout, ttl time.Duration, logger *slog.Logger) *Suggestions {
	base, stop := context.WithCancel(context.Background())
	return &Suggestions{
		router:   router,
		timeout:  timeout,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "suggestions")),
		base:     base,
		stop:     stop,
		sessions: make(map[sessionKey]*suggestionSession),
	}
}

// Start запускает подсказку для сессии владельца owner, отменяя
// незавершённую предыдущую.
func (s *Suggestions) Start(owner, sessionID, text string) (SuggestionView, error) {
	sessionID = strings.TrimSpace(sessionID)
	text = strings.TrimSpace(text)

	var fields []validation.FieldError
	if sessionID == "" {
		fields = append(fields, validation.FieldError{Field: "sessionId", Reason: "обязательное поле"})
	}
	if len([]rune(text)) < minSuggestionText {
		fields = append(fields, validation.FieldError{
			Field: "text", Reason: fmt.Sprintf("минимум %d символов", minSuggestionText),
		})
	}
	if err := validation.Fields(fields...); err != nil {
		return SuggestionView{}, classify("подсказка", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.base.Err() != nil {
		return SuggestionView{}, fmt.Errorf("подсказка: %w", ErrUnavailable)
	}
	s.evictLocked()

	key := sessionKey{owner: owner, id: sessionID}
	if prev, ok := s.sessions[key]; ok {
		prev.cancel()
	}

	s.gen++
	ctx, cancel := context.WithTimeout(s.base, s.timeout)
	now := s.now()
	sess := &suggestionSession{
		gen:     s.gen,
		cancel:  cancel,
		view:    SuggestionView{SessionID: sessionID, State: SuggestionPending, UpdatedAt: now},
		touched: now,
	}
	s.sessions[key] = sess

	s.wg.Add(1)
	go s.run(ctx, key, sess.gen, text)

	return sess.view, nil
}

func (s *Suggestions) run(ctx context.Context, key sessionKey, gen uint64, text string) {
	defer s.wg.Done()

	suggestion, err := s.router.SuggestRouting(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok || sess.gen != gen {
		// Сессия закрыта или перезапущена: результат устарел.
		return
	}
	sess.cancel()
	sess.view.UpdatedAt = s.now()

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("Подсказка классификатора недоступна",
				slog.String("session_id", key.id),
				slog.String("user_id", key.owner),
				slog.String("error", err.Error()),
			)
		}
		sess.view.State = SuggestionUnavailable
		return
	}
	sess.view.State = SuggestionReady
	sess.view.Suggestion = &suggestion
}

// Get возвращает состояние подсказки сессии владельца. Чужая или
// истёкшая сессия не находится.
func (s *Suggestions) Get(owner, sessionID string) (SuggestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()
	sess, ok := s.sessions[sessionKey{owner: owner, id: strings.TrimSpace(sessionID)}]
	if !ok {
		return SuggestionView{}, fmt.Errorf("подсказка %q: %w", sessionID, ErrNotFound)
	}
	sess.touched = s.now()
	return sess.view, nil
}

// Discard закрывает сессию. Незавершённый запрос отменяется.
// Повторное закрытие не является ошибкой.
func (s *Suggestions) Discard(owner, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey{owner: owner, id: strings.TrimSpace(sessionID)}
	if sess, ok := s.sessions[key]; ok {
		sess.cancel()
		delete(s.sessions, key)
	}
}

// Close отменяет все запросы и ждёт завершения горутин.
func (s *Suggestions) Close() {
	s.mu.Lock()
	s.stop()
	for id, sess := range s.sessions {
		sess.cancel()
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Suggestions) evictLocked() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.touched.Before(cutoff) {
			sess.cancel()
			delete(s.sessions, id)
		}
	}
}
