// Package kafka publica los eventos de dominio del motor en un tópico Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jhoicas/stock-control-api/internal/application/inventory"
	"github.com/jhoicas/stock-control-api/pkg/config"
)

// messageWriter es lo que el publisher usa de *kafkago.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher implementa inventory.EventPublisher sobre kafka-go.
type Publisher struct {
	w   messageWriter
	now func() time.Time
}

var _ inventory.EventPublisher = (*Publisher)(nil)

// Envelope es el mensaje publicado. La clave del mensaje es Reference, así los eventos de
// una misma transferencia o lote caen en la misma partición y conservan el orden.
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Reference  string    `json:"reference"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// NewPublisher crea un writer síncrono hacia cfg.Topic.
func NewPublisher(cfg config.KafkaConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: sin brokers")
	}
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w), nil
}

func newPublisher(w messageWriter) *Publisher {
	return &Publisher{w: w, now: time.Now}
}

// Publish serializa el evento y lo escribe con el contexto de traza en los headers.
func (p *Publisher) Publish(ctx context.Context, ev inventory.Event) error {
	value, err := json.Marshal(Envelope{
		ID:         uuid.New().String(),
		Type:       ev.Type,
		Reference:  ev.Reference,
		ActorID:    ev.ActorID,
		OccurredAt: p.now().UTC(),
		Payload:    ev.Payload,
	})
	if err != nil {
		return fmt.Errorf("serializar evento %s: %w", ev.Type, err)
	}

	msg := kafkago.Message{
		Key:     []byte(ev.Reference),
		Value:   value,
		Headers: []kafkago.Header{{Key: "event-type", Value: []byte(ev.Type)}},
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &msg})

	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publicar evento %s: %w", ev.Type, err)
	}
	return nil
}

// Close vacía y cierra el writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}

// headerCarrier adapta los headers de un mensaje Kafka a propagation.TextMapCarrier.
type headerCarrier struct {
	msg *kafkago.Message
}

var _ propagation.TextMapCarrier = headerCarrier{}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafkago.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
