package inventory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-control-api/internal/application/inventory"
	"github.com/jhoicas/stock-control-api/internal/domain"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
)

func (f *fixture) submit(t *testing.T, ings ...entity.BatchIngredient) *entity.ProductionBatch {
	t.Helper()
	res, err := f.engine.SubmitBatch(context.Background(), baker, inventory.SubmitBatchInput{
		RecipeName:  "Pan de bono x100",
		Ingredients: ings,
	})
	return requireSuccess[*entity.ProductionBatch](t, res, err)
}

func ingredient(id, name, q string) entity.BatchIngredient {
	return entity.BatchIngredient{IngredientID: id, IngredientName: name, Quantity: qty(q), Unit: "kg"}
}

func TestSubmit_ValidaEntrada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.SubmitBatch(ctx, baker, inventory.SubmitBatchInput{RecipeName: "x"})
	requireKind(t, domain.KindValidation, res, err)
	res, err = f.engine.SubmitBatch(ctx, baker, inventory.SubmitBatchInput{
		Ingredients: []entity.BatchIngredient{ingredient(ingFlour, "Harina", "1")},
	})
	requireKind(t, domain.KindValidation, res, err)
	res, err = f.engine.SubmitBatch(ctx, baker, inventory.SubmitBatchInput{
		RecipeName: "x", Ingredients: []entity.BatchIngredient{ingredient(ingFlour, "Harina", "0")},
	})
	requireKind(t, domain.KindValidation, res, err)
	res, err = f.engine.SubmitBatch(ctx, baker, inventory.SubmitBatchInput{
		RecipeName: "x", Ingredients: []entity.BatchIngredient{ingredient(ingFlour, "Harina", "0.0005")},
	})
	requireKind(t, domain.KindValidation, res, err)
}

func TestEvaluate_ComparaContraStockCentral(t *testing.T) {
	f := newFixture(t)
	f.seed(entity.ScopeCentral, ingFlour, "3")
	f.seed(entity.ScopeCentral, ingSugar, "10")
	b := f.submit(t, ingredient(ingFlour, "Harina", "5"), ingredient(ingSugar, "Azúcar", "2"))

	res, err := f.engine.EvaluateBatch(context.Background(), b.ID)
	ev := requireSuccess[*inventory.BatchEvaluation](t, res, err)

	assert.False(t, ev.CanApprove)
	require.Len(t, ev.Lines, 2)
	assert.False(t, ev.Lines[0].Sufficient)
	requireQty(t, "3", ev.Lines[0].Available)
	requireQty(t, "5", ev.Lines[0].Required)
	assert.True(t, ev.Lines[1].Sufficient)
	requireQty(t, "3", f.qty(t, entity.ScopeCentral, ingFlour), "evaluar no toca stock")
}

func TestEvaluate_IngredienteRepetidoSumaRequerimiento(t *testing.T) {
	f := newFixture(t)
	f.seed(entity.ScopeCentral, ingFlour, "5")
	b := f.submit(t, ingredient(ingFlour, "Harina", "3"), ingredient(ingFlour, "Harina", "3"))

	res, err := f.engine.EvaluateBatch(context.Background(), b.ID)
	ev := requireSuccess[*inventory.BatchEvaluation](t, res, err)
	assert.False(t, ev.CanApprove)
}

// Escenario: el lote requiere 5kg de harina y hay 3kg.
func TestApprove_StockInsuficienteNoDescuentaNada(t *testing.T) {
	f := newFixture(t)
	f.seed(entity.ScopeCentral, ingFlour, "3")
	f.seed(entity.ScopeCentral, ingSugar, "10")
	b := f.submit(t, ingredient(ingSugar, "Azúcar", "2"), ingredient(ingFlour, "Harina", "5"))

	res, err := f.engine.ApproveIngredientRequest(context.Background(), storekeeper, b.ID)
	requireKind(t, domain.KindInsufficientStock, res, err)

	requireQty(t, "3", f.qty(t, entity.ScopeCentral, ingFlour))
	requireQty(t, "10", f.qty(t, entity.ScopeCentral, ingSugar), "ningún ingrediente se descuenta parcialmente")
	got, err := f.engine.Production.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BatchStatusPendingApproval, got.Status)
}

func TestApprove_DescuentaTodosLosIngredientes(t *testing.T) {
	f := newFixture(t)
	f.seed(entity.ScopeCentral, ingFlour, "12.5")
	f.seed(entity.ScopeCentral, ingSugar, "4")
	b := f.submit(t, ingredient(ingFlour, "Harina", "5"), ingredient(ingSugar, "Azúcar", "1.25"))

	res, err := f.engine.ApproveIngredientRequest(context.Background(), storekeeper, b.ID)
	approved := requireSuccess[*entity.ProductionBatch](t, res, err)

	assert.Equal(t, entity.BatchStatusInProduction, approved.Status)
	assert.Equal(t, storekeeper.StaffID, approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)
	requireQty(t, "7.5", f.qty(t, entity.ScopeCentral, ingFlour))
	requireQty(t, "2.75", f.qty(t, entity.ScopeCentral, ingSugar))
	assert.Contains(t, f.events.Types(), inventory.EventBatchApproved)

	res, err = f.engine.ApproveIngredientRequest(context.Background(), storekeeper, b.ID)
	requireKind(t, domain.KindInvalidStateTransition, res, err)
	requireQty(t, "7.5", f.qty(t, entity.ScopeCentral, ingFlour), "no hay doble descuento")
}

func TestDecline_NoTocaStockYEsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(entity.ScopeCentral, ingFlour, "10")
	b := f.submit(t, ingredient(ingFlour, "Harina", "5"))

	res, err := f.engine.DeclineProductionBatch(ctx, storekeeper, b.ID)
	declined := requireSuccess[*entity.ProductionBatch](t, res, err)
	assert.Equal(t, entity.BatchStatusDeclined, declined.Status)
	requireQty(t, "10", f.qty(t, entity.ScopeCentral, ingFlour))

	res, err = f.engine.ApproveIngredientRequest(ctx, storekeeper, b.ID)
	requireKind(t, domain.KindInvalidStateTransition, res, err)
	res, err = f.engine.DeclineProductionBatch(ctx, storekeeper, b.ID)
	requireKind(t, domain.KindInvalidStateTransition, res, err)
	requireQty(t, "10", f.qty(t, entity.ScopeCentral, ingFlour))
}

func TestComplete_SoloDesdeEnProduccion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(entity.ScopeCentral, ingFlour, "10")
	b := f.submit(t, ingredient(ingFlour, "Harina", "5"))

	res, err := f.engine.CompleteBatch(ctx, baker, b.ID)
	requireKind(t, domain.KindInvalidStateTransition, res, err)

	res, err = f.engine.ApproveIngredientRequest(ctx, storekeeper, b.ID)
	requireSuccess[*entity.ProductionBatch](t, res, err)
	res, err = f.engine.CompleteBatch(ctx, baker, b.ID)
	done := requireSuccess[*entity.ProductionBatch](t, res, err)
	assert.Equal(t, entity.BatchStatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	requireQty(t, "5", f.qty(t, entity.ScopeCentral, ingFlour), "completar no toca stock")

	for _, call := range []func() (inventory.Result, error){
		func() (inventory.Result, error) { return f.engine.ApproveIngredientRequest(ctx, storekeeper, b.ID) },
		func() (inventory.Result, error) { return f.engine.DeclineProductionBatch(ctx, storekeeper, b.ID) },
		func() (inventory.Result, error) { return f.engine.CompleteBatch(ctx, baker, b.ID) },
	} {
		res, err := call()
		requireKind(t, domain.KindInvalidStateTransition, res, err)
	}
}

func TestList_PorEstado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(entity.ScopeCentral, ingFlour, "10")
	a := f.submit(t, ingredient(ingFlour, "Harina", "1"))
	f.submit(t, ingredient(ingFlour, "Harina", "1"))

	res, err := f.engine.ApproveIngredientRequest(ctx, storekeeper, a.ID)
	requireSuccess[*entity.ProductionBatch](t, res, err)

	pending, err := f.engine.Production.List(ctx, entity.BatchStatusPendingApproval)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	inProd, err := f.engine.Production.List(ctx, entity.BatchStatusInProduction)
	require.NoError(t, err)
	require.Len(t, inProd, 1)
	assert.Equal(t, a.ID, inProd[0].ID)

	_, err = f.engine.Production.List(ctx, "otro")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// Escenario: cinco lotes de 3kg de harina compiten por 10kg y cada uno se aprueba dos veces a la vez.
// Solo caben tres; el resto sigue pendiente y el stock nunca queda negativo.
func TestApprove_ConcurrentesSobreElMismoIngrediente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(entity.ScopeCentral, ingFlour, "10")
	f.seed(entity.ScopeCentral, ingSugar, "100")

	const batches = 5
	ids := make([]string, 0, batches)
	for i := 0; i < batches; i++ {
		b := f.submit(t, ingredient(ingSugar, "Azúcar", "1"), ingredient(ingFlour, "Harina", "3"))
		ids = append(ids, b.ID)
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		kinds = map[domain.ErrorKind]int{}
	)
	for _, id := range ids {
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				res, err := f.engine.ApproveIngredientRequest(ctx, storekeeper, id)
				assert.NoError(t, err)
				mu.Lock()
				kinds[res.Error]++
				mu.Unlock()
			}(id)
		}
	}
	wg.Wait()

	assert.Equal(t, 3, kinds[domain.KindNone], "solo tres lotes caben en 10kg")
	assert.Equal(t, 2*batches, kinds[domain.KindNone]+kinds[domain.KindInsufficientStock]+kinds[domain.KindInvalidStateTransition])

	requireQty(t, "1", f.qty(t, entity.ScopeCentral, ingFlour))
	requireQty(t, "97", f.qty(t, entity.ScopeCentral, ingSugar), "los lotes rechazados no descuentan azúcar")

	inProd, err := f.engine.Production.List(ctx, entity.BatchStatusInProduction)
	require.NoError(t, err)
	assert.Len(t, inProd, 3)
	pending, err := f.engine.Production.List(ctx, entity.BatchStatusPendingApproval)
	require.NoError(t, err)
	assert.Len(t, pending, batches-3)
}
