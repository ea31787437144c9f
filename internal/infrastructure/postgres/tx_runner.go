package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-control-api/internal/application/inventory"
	"github.com/jhoicas/stock-control-api/internal/domain"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool       *pgxpool.Pool
	maxRetries int
	log        zerolog.Logger
}

// NewTxRunner construye el runner. maxRetries es el número de reintentos ante 40001/40P01.
func NewTxRunner(pool *pgxpool.Pool, maxRetries int, log zerolog.Logger) *TxRunner {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &TxRunner{pool: pool, maxRetries: maxRetries, log: log}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Un fallo de serialización o deadlock re-ejecuta fn completa con backoff exponencial; agotados
// los reintentos devuelve domain.ErrConflict.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos inventory.Repos) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 20 * time.Millisecond
	policy.MaxInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = 0

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := r.runOnce(ctx, fn)
		if err == nil || isRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.maxRetries)), ctx), func(err error, wait time.Duration) {
		r.log.Debug().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("conflicto de transacción, reintentando")
	})
	if err != nil && isRetryable(err) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(ctx context.Context, repos inventory.Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w: %v", domain.ErrInfrastructure, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, reposFor(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isRetryable(err) || errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("commit transaction: %w: %v", domain.ErrInfrastructure, err)
	}
	return nil
}

func reposFor(q Querier) inventory.Repos {
	return inventory.Repos{
		Stock:     NewStockRepository(q),
		Movements: NewStockMovementRepository(q),
		Transfers: NewTransferRepository(q),
		Batches:   NewProductionBatchRepository(q),
		Waste:     NewWasteLogRepository(q),
	}
}

// ReadRepos devuelve los repositorios de lectura sobre el pool.
func ReadRepos(pool *pgxpool.Pool) inventory.ReadRepos {
	return inventory.ReadRepos{
		Stock:     NewStockRepository(pool),
		Transfers: NewTransferRepository(pool),
		Batches:   NewProductionBatchRepository(pool),
		Waste:     NewWasteLogRepository(pool),
		Products:  NewProductRepository(pool),
	}
}
