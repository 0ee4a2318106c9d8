// Пакет events — публикация событий жизненного цикла экспедиентов.
//
// Публикация выполняется после успешной записи в хранилище и не влияет
// на результат операции: ошибка брокера только логируется вызывающим.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Type — тип события.
type Type string

const (
	CaseRegistered Type = "case.registered"
	CaseDerived    Type = "case.derived"
	CaseArchived   Type = "case.archived"
	CaseCorrected  Type = "case.corrected"
	CaseDeleted    Type = "case.deleted"
)

// Event — событие по экспедиенту.
type Event struct {
	Type       Type      `json:"type"`
	CaseID     string    `json:"caseId"`
	Code       string    `json:"code"`
	Status     string    `json:"status,omitempty"`
	FromAreaID string    `json:"fromAreaId,omitempty"`
	ToAreaID   string    `json:"toAreaId,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher — получатель событий.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop — публикатор, отбрасывающий события (брокер не настроен).
type Nop struct{}

// Publish ничего не делает.
func (Nop) Publish(context.Context, Event) error { return nil }

// Kafka — публикатор в топик Kafka через franz-go.
// Ключ записи — id экспедиента, поэтому события одного экспедиента
// попадают в одну партицию в порядке публикации.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka создаёт клиент-продюсер. Соединение устанавливается лениво.
func NewKafka(brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента Kafka: %w", err)
	}
	return &Kafka{
		client: client,
		topic:  topic,
		logger: logger.With(slog.String("component", "kafka_publisher")),
	}, nil
}

// Publish синхронно отправляет событие и ждёт подтверждения брокера.
func (k *Kafka) Publish(ctx context.Context, e Event) error {
	rec, err := record(k.topic, e)
	if err != nil {
		return err
	}
	if err := k.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("ошибка публикации события %s: %w", e.Type, err)
	}
	k.logger.Debug("Событие опубликовано",
		slog.String("type", string(e.Type)),
		slog.String("case_id", e.CaseID),
	)
	return nil
}

// Ping проверяет доступность брокеров.
func (k *Kafka) Ping(ctx context.Context) error {
	return k.client.Ping(ctx)
}

// Close завершает клиент, дожидаясь отправки буферизованных записей.
func (k *Kafka) Close() {
	k.client.Close()
}

func record(topic string, e Event) (*kgo.Record, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации события: %w", err)
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(e.CaseID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event-type", Value: []byte(e.Type)},
		},
	}, nil
}
