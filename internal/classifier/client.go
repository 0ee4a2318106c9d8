// Пакет classifier — клиент советующего классификатора (Gemini generateContent).
// Предлагает область и приоритет для нового документа и готовит краткое резюме.
// Результаты кэшируются в expirable LRU по хэшу текста.
package classifier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/drem-apurimac/tramite/internal/domain/area"
	"github.com/drem-apurimac/tramite/internal/domain/model"
)

// ErrUnavailable — классификатор не настроен, недоступен или вернул
// непригодный ответ. Ошибка не блокирует ручную регистрацию.
var ErrUnavailable = errors.New("классификатор недоступен")

// Suggestion — рекомендация по маршрутизации. Носит совещательный характер.
type Suggestion struct {
	SuggestedAreaID    string         `json:"suggestedAreaId"`
	Reasoning          string         `json:"reasoning"`
	PrioritySuggestion model.Priority `json:"prioritySuggestion"`
}

// Options — параметры клиента.
type Options struct {
	BaseURL   string
	APIKey    string
	Model     string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

// Client — HTTP-клиент к Gemini API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	areas   *area.Directory

	httpClient *http.Client
	logger     *slog.Logger

	routes    *expirable.LRU[string, Suggestion]
	summaries *expirable.LRU[string, string]
}

// New создаёт клиент. Пустой APIKey — клиент всегда возвращает ErrUnavailable.
func New(opts Options, areas *area.Directory, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.CacheSize < 1 {
		opts.CacheSize = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		model:      opts.Model,
		areas:      areas,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "classifier")),
		routes:     expirable.NewLRU[string, Suggestion](opts.CacheSize, nil, opts.CacheTTL),
		summaries:  expirable.NewLRU[string, string](opts.CacheSize, nil, opts.CacheTTL),
	}
}

// Enabled сообщает, задан ли ключ API.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// SuggestRouting предлагает область и приоритет для текста (тема + описание).
// Ответ с областью вне справочника считается непригодным (ErrUnavailable).
func (c *Client) SuggestRouting(ctx context.Context, text string) (Suggestion, error) {
	if !c.Enabled() {
		return Suggestion{}, ErrUnavailable
	}
	key := cacheKey(text)
	if s, ok := c.routes.Get(key); ok {
		return s, nil
	}

	raw, err := c.generate(ctx, generateRequest{
		Contents: []content{{Parts: []part{{Text: routingPrompt(c.areas, text)}}}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   routingSchema,
		},
	})
	if err != nil {
		return Suggestion{}, err
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Suggestion{}, fmt.Errorf("%w: разбор ответа: %v", ErrUnavailable, err)
	}
	s.SuggestedAreaID = strings.ToUpper(strings.TrimSpace(s.SuggestedAreaID))
	if !c.areas.Contains(s.SuggestedAreaID) {
		return Suggestion{}, fmt.Errorf("%w: неизвестная область %q в ответе", ErrUnavailable, s.SuggestedAreaID)
	}
	if !s.PrioritySuggestion.Valid() {
		s.PrioritySuggestion = model.PriorityNormal
	}

	c.routes.Add(key, s)
	return s, nil
}

// Summarize возвращает резюме текста одним абзацем.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	if !c.Enabled() {
		return "", ErrUnavailable
	}
	key := cacheKey(text)
	if s, ok := c.summaries.Get(key); ok {
		return s, nil
	}

	raw, err := c.generate(ctx, generateRequest{
		Contents: []content{{Parts: []part{{Text: summaryPrompt + text}}}},
	})
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(raw)
	if summary == "" {
		return "", fmt.Errorf("%w: пустое резюме", ErrUnavailable)
	}

	c.summaries.Add(key, summary)
	return summary, nil
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
}

// generate выполняет generateContent и возвращает текст первого кандидата.
// Любая ошибка оборачивается в ErrUnavailable.
func (c *Client) generate(ctx context.Context, body generateRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: сериализация запроса: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: создание запроса: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("%w: статус %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: декодирование ответа: %v", ErrUnavailable, err)
	}

	c.logger.Debug("Ответ классификатора получен",
		slog.String("model", c.model),
		slog.Duration("duration", time.Since(start)),
	)

	text := out.text()
	if text == "" {
		return "", fmt.Errorf("%w: пустой ответ", ErrUnavailable)
	}
	return text, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}
