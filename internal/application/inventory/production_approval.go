package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/stock-control-api/internal/domain"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
	"github.com/jhoicas/stock-control-api/internal/domain/repository"
)

// SubmitBatchInput entrada para solicitar ingredientes de una corrida de receta.
type SubmitBatchInput struct {
	RecipeName  string
	Ingredients []entity.BatchIngredient
}

// IngredientAvailability compara lo requerido contra el stock central de un ingrediente.
type IngredientAvailability struct {
	IngredientID   string
	IngredientName string
	Unit           string
	Required       decimal.Decimal
	Available      decimal.Decimal
	Sufficient     bool
}

// BatchEvaluation es el resultado de Evaluate.
type BatchEvaluation struct {
	BatchID    string
	Status     string
	Lines      []IngredientAvailability
	CanApprove bool
}

// ProductionApprovalEngine evalúa y aprueba solicitudes de ingredientes. La aprobación descuenta
// todos los ingredientes del almacén central o ninguno.
type ProductionApprovalEngine struct {
	txRunner TxRunner
	ledger   *StockLedger
	batches  repository.ProductionBatchRepository
	c        collaborators
}

// NewProductionApprovalEngine construye el caso de uso. batches se usa para lecturas fuera de tx.
func NewProductionApprovalEngine(txRunner TxRunner, ledger *StockLedger, batches repository.ProductionBatchRepository, opts ...Option) *ProductionApprovalEngine {
	return &ProductionApprovalEngine{txRunner: txRunner, ledger: ledger, batches: batches, c: newCollaborators(opts)}
}

// Submit registra un lote en pending_approval. No toca stock.
func (e *ProductionApprovalEngine) Submit(ctx context.Context, user entity.CurrentUser, in SubmitBatchInput) (*entity.ProductionBatch, error) {
	ctx, span := e.c.tracer.Start(ctx, "ProductionApprovalEngine.Submit")
	defer span.End()

	if !user.Valid() {
		return nil, domain.Invalid("user", "actor requerido")
	}
	if in.RecipeName == "" {
		return nil, domain.Invalid("recipe_name", "requerido")
	}
	if len(in.Ingredients) == 0 {
		return nil, domain.Invalid("ingredients", "al menos un ingrediente")
	}
	for _, ing := range in.Ingredients {
		if ing.IngredientID == "" {
			return nil, domain.Invalid("ingredients.ingredient_id", "requerido")
		}
		if err := validQuantity("ingredients.quantity", ing.Quantity); err != nil {
			return nil, err
		}
	}

	b := &entity.ProductionBatch{
		ID:                 uuid.New().String(),
		RecipeName:         in.RecipeName,
		Ingredients:        in.Ingredients,
		RequestedByStaffID: user.StaffID,
		RequestedByName:    user.Name,
		Status:             entity.BatchStatusPendingApproval,
		CreatedAt:          e.c.clock(),
	}
	err := e.txRunner.Run(ctx, func(ctx context.Context, repos Repos) error {
		return repos.Batches.Create(ctx, b)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	e.c.afterCommit(ctx, []string{TopicBatches}, Event{Type: EventBatchSubmitted, Reference: b.ID, ActorID: user.StaffID, Payload: b})
	return b, nil
}

// Evaluate compara cada ingrediente con el stock central actual. Solo lectura.
func (e *ProductionApprovalEngine) Evaluate(ctx context.Context, batchID string) (*BatchEvaluation, error) {
	ctx, span := e.c.tracer.Start(ctx, "ProductionApprovalEngine.Evaluate")
	defer span.End()

	b, err := e.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	required := requiredByIngredient(b.Ingredients)

	ev := &BatchEvaluation{BatchID: b.ID, Status: b.Status, CanApprove: true}
	for _, ing := range b.Ingredients {
		available, err := e.ledger.Read(ctx, entity.ScopeCentral, ing.IngredientID)
		if err != nil {
			return nil, err
		}
		// Suficiencia contra el total pedido del ingrediente (puede repetirse en varias líneas).
		ok := available.GreaterThanOrEqual(required[ing.IngredientID])
		ev.Lines = append(ev.Lines, IngredientAvailability{
			IngredientID:   ing.IngredientID,
			IngredientName: ing.IngredientName,
			Unit:           ing.Unit,
			Required:       ing.Quantity,
			Available:      available,
			Sufficient:     ok,
		})
		if !ok {
			ev.CanApprove = false
		}
	}
	if b.Status != entity.BatchStatusPendingApproval {
		ev.CanApprove = false
	}
	return ev, nil
}

// Approve revalida y descuenta todos los ingredientes del almacén central y pasa a in_production.
// Si falta cualquiera, no descuenta nada y el lote sigue en pending_approval.
func (e *ProductionApprovalEngine) Approve(ctx context.Context, user entity.CurrentUser, batchID string) (*entity.ProductionBatch, error) {
	ctx, span := e.c.tracer.Start(ctx, "ProductionApprovalEngine.Approve")
	defer span.End()
	span.SetAttributes(attribute.String("batch.id", batchID))

	if !user.Valid() {
		return nil, domain.Invalid("user", "actor requerido")
	}
	var result *entity.ProductionBatch
	err := e.txRunner.Run(ctx, func(ctx context.Context, repos Repos) error {
		b, err := lockBatch(ctx, repos, batchID)
		if err != nil {
			return err
		}
		if b.Status != entity.BatchStatusPendingApproval {
			return domain.ErrInvalidStateTransition
		}
		adj := make([]Adjustment, 0, len(b.Ingredients))
		for _, ing := range b.Ingredients {
			adj = append(adj, Adjustment{Scope: entity.ScopeCentral, EntityID: ing.IngredientID, Delta: ing.Quantity.Neg()})
		}
		ref := MovementRef{Reason: entity.MovementReasonBatchApprove, Reference: b.ID, ActorID: user.StaffID}
		if _, err := e.ledger.ApplyInTx(ctx, repos, adj, ref); err != nil {
			return err
		}
		if err := b.Approve(user.StaffID, e.c.clock()); err != nil {
			return err
		}
		if err := repos.Batches.UpdateStatus(ctx, b, entity.BatchStatusPendingApproval); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	e.c.afterCommit(ctx, []string{TopicBatches, TopicStock}, Event{Type: EventBatchApproved, Reference: result.ID, ActorID: user.StaffID, Payload: result})
	return result, nil
}

// Decline rechaza la solicitud sin tocar stock. Terminal.
func (e *ProductionApprovalEngine) Decline(ctx context.Context, user entity.CurrentUser, batchID string) (*entity.ProductionBatch, error) {
	return e.transition(ctx, user, batchID, "ProductionApprovalEngine.Decline", EventBatchDeclined,
		func(b *entity.ProductionBatch) error { return b.Decline(user.StaffID, e.c.clock()) })
}

// Complete cierra un lote en producción. No toca stock: el ingreso del producto terminado
// lo registra el módulo de recetas.
func (e *ProductionApprovalEngine) Complete(ctx context.Context, user entity.CurrentUser, batchID string) (*entity.ProductionBatch, error) {
	return e.transition(ctx, user, batchID, "ProductionApprovalEngine.Complete", EventBatchCompleted,
		func(b *entity.ProductionBatch) error { return b.Complete(e.c.clock()) })
}

func (e *ProductionApprovalEngine) transition(
	ctx context.Context,
	user entity.CurrentUser,
	batchID, spanName, eventType string,
	apply func(*entity.ProductionBatch) error,
) (*entity.ProductionBatch, error) {
	ctx, span := e.c.tracer.Start(ctx, spanName)
	defer span.End()

	if !user.Valid() {
		return nil, domain.Invalid("user", "actor requerido")
	}
	var result *entity.ProductionBatch
	err := e.txRunner.Run(ctx, func(ctx context.Context, repos Repos) error {
		b, err := lockBatch(ctx, repos, batchID)
		if err != nil {
			return err
		}
		expected := b.Status
		if err := apply(b); err != nil {
			return err
		}
		if err := repos.Batches.UpdateStatus(ctx, b, expected); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	e.c.afterCommit(ctx, []string{TopicBatches}, Event{Type: eventType, Reference: result.ID, ActorID: user.StaffID, Payload: result})
	return result, nil
}

// Get devuelve un lote.
func (e *ProductionApprovalEngine) Get(ctx context.Context, batchID string) (*entity.ProductionBatch, error) {
	if batchID == "" {
		return nil, domain.Invalid("batch_id", "requerido")
	}
	b, err := e.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

// List lista lotes por estado.
func (e *ProductionApprovalEngine) List(ctx context.Context, status string) ([]*entity.ProductionBatch, error) {
	switch status {
	case entity.BatchStatusPendingApproval, entity.BatchStatusInProduction,
		entity.BatchStatusCompleted, entity.BatchStatusDeclined:
	default:
		return nil, domain.Invalid("status", "estado de lote desconocido")
	}
	return e.batches.ListByStatus(ctx, status)
}

func lockBatch(ctx context.Context, repos Repos, id string) (*entity.ProductionBatch, error) {
	if id == "" {
		return nil, domain.Invalid("batch_id", "requerido")
	}
	b, err := repos.Batches.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func requiredByIngredient(ings []entity.BatchIngredient) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(ings))
	for _, ing := range ings {
		out[ing.IngredientID] = out[ing.IngredientID].Add(ing.Quantity)
	}
	return out
}
