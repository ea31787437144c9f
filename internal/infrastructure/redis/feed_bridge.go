// Package redis reparte los avisos del change feed entre instancias vía Redis Pub/Sub.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-control-api/internal/application/inventory"
	"github.com/jhoicas/stock-control-api/pkg/config"
)

// Connect abre el cliente y verifica la conexión.
func Connect(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second

	client := goredis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("conectar Redis: %w", err)
	}
	return client, nil
}

// notice es el mensaje publicado en el canal.
type notice struct {
	Origin string   `json:"origin"`
	Topics []string `json:"topics"`
}

// FeedBridge implementa inventory.ChangeNotifier: avisa al hub local y publica en Redis para
// que las demás instancias refresquen sus suscripciones.
type FeedBridge struct {
	client  *goredis.Client
	channel string
	origin  string
	local   inventory.ChangeNotifier
	log     zerolog.Logger
}

var _ inventory.ChangeNotifier = (*FeedBridge)(nil)

// NewFeedBridge conecta el hub local (local) con el canal de Redis.
func NewFeedBridge(client *goredis.Client, channel string, local inventory.ChangeNotifier, log zerolog.Logger) *FeedBridge {
	return &FeedBridge{
		client:  client,
		channel: channel,
		origin:  uuid.New().String(),
		local:   local,
		log:     log,
	}
}

// Notify avisa primero al hub local; un fallo al publicar solo afecta a las otras instancias.
func (b *FeedBridge) Notify(ctx context.Context, topics ...string) error {
	if err := b.local.Notify(ctx, topics...); err != nil {
		return err
	}
	payload, err := json.Marshal(notice{Origin: b.origin, Topics: topics})
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publicar aviso en %s: %w", b.channel, err)
	}
	return nil
}

// Listen reenvía al hub local los avisos de otras instancias hasta que ctx se cancele.
// Si el canal se cierra, se vuelve a suscribir.
func (b *FeedBridge) Listen(ctx context.Context) {
	for {
		pubsub := b.client.Subscribe(ctx, b.channel)
		b.log.Info().Str("channel", b.channel).Msg("escuchando avisos del change feed")
		b.consume(ctx, pubsub.Channel())
		if err := pubsub.Close(); err != nil {
			b.log.Warn().Err(err).Msg("cerrar pub/sub")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
			b.log.Warn().Str("channel", b.channel).Msg("pub/sub cerrado, re-suscribiendo")
		}
	}
}

func (b *FeedBridge) consume(ctx context.Context, ch <-chan *goredis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handle(ctx, msg.Payload)
		}
	}
}

// handle aplica un aviso recibido. Los propios se ignoran: el hub local ya fue avisado en Notify.
func (b *FeedBridge) handle(ctx context.Context, payload string) {
	var n notice
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		b.log.Warn().Err(err).Msg("aviso de change feed inválido")
		return
	}
	if n.Origin == b.origin || len(n.Topics) == 0 {
		return
	}
	if err := b.local.Notify(ctx, n.Topics...); err != nil {
		b.log.Warn().Err(err).Strs("topics", n.Topics).Msg("notificar hub local")
	}
}
