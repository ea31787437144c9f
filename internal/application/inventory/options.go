package inventory

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/jhoicas/stock-control-api/internal/application/inventory"

// Option configura los colaboradores opcionales de un componente del motor.
type Option func(*collaborators)

// collaborators son las dependencias comunes: efectos post-commit, reloj, logger y tracer.
type collaborators struct {
	publisher EventPublisher
	notifier  ChangeNotifier
	log       zerolog.Logger
	now       func() time.Time
	tracer    trace.Tracer
}

func newCollaborators(opts []Option) collaborators {
	c := collaborators{
		log:    zerolog.Nop(),
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithPublisher publica eventos de dominio después de cada commit.
func WithPublisher(p EventPublisher) Option {
	return func(c *collaborators) { c.publisher = p }
}

// WithNotifier avisa al ChangeFeed después de cada commit.
func WithNotifier(n ChangeNotifier) Option {
	return func(c *collaborators) { c.notifier = n }
}

// WithLogger fija el logger para fallos de efectos post-commit.
func WithLogger(l zerolog.Logger) Option {
	return func(c *collaborators) { c.log = l }
}

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(c *collaborators) { c.now = now }
}

// afterCommit dispara notificaciones y eventos. La operación ya está confirmada:
// un fallo aquí se registra pero no revierte nada.
func (c collaborators) afterCommit(ctx context.Context, topics []string, events ...Event) {
	if c.notifier != nil && len(topics) > 0 {
		if err := c.notifier.Notify(ctx, topics...); err != nil {
			c.log.Warn().Err(err).Strs("topics", topics).Msg("notificar change feed")
		}
	}
	if c.publisher == nil {
		return
	}
	for _, ev := range events {
		if err := c.publisher.Publish(ctx, ev); err != nil {
			c.log.Warn().Err(err).Str("event", ev.Type).Str("reference", ev.Reference).Msg("publicar evento")
		}
	}
}

// clock devuelve la hora actual en UTC truncada a microsegundos (precisión de timestamptz).
func (c collaborators) clock() time.Time {
	return c.now().UTC().Truncate(time.Microsecond)
}
