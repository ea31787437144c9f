// Package feed implementa el ChangeFeed: suscripciones a consultas que reciben una foto completa
// al suscribirse y otra después de cada cambio confirmado en sus tópicos.
package feed

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-control-api/internal/application/inventory"
)

// Query es una consulta observable: Load se re-ejecuta cuando cambia cualquiera de sus tópicos.
type Query struct {
	Name   string
	Topics []string
	Load   func(ctx context.Context) (any, error)
}

// Snapshot es el resultado completo de una consulta en un instante.
type Snapshot struct {
	Query   string
	Version uint64
	At      time.Time
	Data    any
}

// Hub mantiene las suscripciones activas de esta instancia.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
	log  zerolog.Logger
}

var _ inventory.ChangeNotifier = (*Hub)(nil)

// NewHub crea un hub vacío.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{subs: make(map[string]*Subscription), log: log}
}

// Subscription es un handle cancelable. Updates entrega siempre la última foto: si el lector va
// atrasado, las fotos intermedias se descartan.
type Subscription struct {
	ID      string
	query   Query
	hub     *Hub
	updates chan Snapshot
	dirty   chan struct{}
	cancel  context.CancelFunc
	version uint64
}

// Subscribe registra la suscripción y carga la foto inicial. Un Notify que llegue durante esa
// carga deja una recarga pendiente. Termina cuando ctx se cancela o al llamar Cancel.
func (h *Hub) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	if q.Load == nil || len(q.Topics) == 0 {
		return nil, errors.New("feed: consulta sin tópicos o sin Load")
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		ID:      uuid.New().String(),
		query:   q,
		hub:     h,
		updates: make(chan Snapshot, 1),
		dirty:   make(chan struct{}, 1),
		cancel:  cancel,
	}
	h.mu.Lock()
	h.subs[s.ID] = s
	total := len(h.subs)
	h.mu.Unlock()

	data, err := q.Load(ctx)
	if err != nil {
		cancel()
		h.remove(s.ID)
		return nil, err
	}
	s.deliver(data)
	h.log.Debug().Str("subscription", s.ID).Str("query", q.Name).Int("total", total).Msg("feed: suscripción registrada")

	go s.run(ctx)
	return s, nil
}

// Notify marca como desactualizadas las suscripciones de los tópicos dados. No bloquea:
// la recarga ocurre en la goroutine de cada suscripción.
func (h *Hub) Notify(_ context.Context, topics ...string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if !s.watches(topics) {
			continue
		}
		select {
		case s.dirty <- struct{}{}:
		default:
			// Ya hay una recarga pendiente; la coalescemos.
		}
	}
	return nil
}

// Len devuelve el número de suscripciones activas.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	total := len(h.subs)
	h.mu.Unlock()
	h.log.Debug().Str("subscription", id).Int("total", total).Msg("feed: suscripción cerrada")
}

// Updates devuelve el canal de fotos. Se cierra al cancelar la suscripción.
func (s *Subscription) Updates() <-chan Snapshot { return s.updates }

// Cancel cierra la suscripción. Es idempotente.
func (s *Subscription) Cancel() { s.cancel() }

func (s *Subscription) run(ctx context.Context) {
	defer close(s.updates)
	defer s.hub.remove(s.ID)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.dirty:
			data, err := s.query.Load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.hub.log.Warn().Err(err).Str("query", s.query.Name).Msg("feed: recargar consulta")
				continue
			}
			s.deliver(data)
		}
	}
}

// deliver reemplaza la foto pendiente (si la hay) por la nueva.
func (s *Subscription) deliver(data any) {
	s.version++
	snap := Snapshot{Query: s.query.Name, Version: s.version, At: time.Now().UTC(), Data: data}
	for {
		select {
		case s.updates <- snap:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

func (s *Subscription) watches(topics []string) bool {
	for _, t := range topics {
		if slices.Contains(s.query.Topics, t) {
			return true
		}
	}
	return false
}
