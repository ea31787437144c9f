package inventory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-control-api/internal/application/inventory"
	"github.com/jhoicas/stock-control-api/internal/domain"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Initiate
// ──────────────────────────────────────────────────────────────────────────────

func TestInitiate_NoMueveStock(t *testing.T) {
	f := newFixture(t)
	f.seed(entity.ScopeCentral, productBread, "10")

	tr := f.initiate(t, storekeeper, showroom, item(productBread, "6"))

	assert.Equal(t, entity.TransferStatusPending, tr.Status)
	assert.Equal(t, entity.ScopeCentral, tr.SourceScope)
	assert.Equal(t, entity.StaffScope(showroom.StaffID), tr.DestinationScope)
	assert.Equal(t, "Pan de bono", tr.Items[0].ProductName, "el nombre se completa desde el catálogo")
	assert.Equal(t, storekeeper.StaffID, tr.FromStaffID, "el remitente por defecto es el actor")
	requireQty(t, "10", f.qty(t, entity.ScopeCentral, productBread))
	requireQty(t, "0", f.qty(t, tr.DestinationScope, productBread))
	assert.Contains(t, f.events.Types(), inventory.EventTransferInitiated)
}

func TestInitiate_ValidaEntrada(t *testing.T) {
	f := newFixture(t)
	f.seed(entity.ScopeCentral, productBread, "10")
	ctx := context.Background()

	cases := map[string]inventory.InitiateTransferInput{
		"sin líneas":        {ToStaffID: showroom.StaffID, ToStaffRole: showroom.Role},
		"cantidad cero":     {ToStaffID: showroom.StaffID, ToStaffRole: showroom.Role, Items: []entity.TransferItem{item(productBread, "0")}},
		"cantidad negativa": {ToStaffID: showroom.StaffID, ToStaffRole: showroom.Role, Items: []entity.TransferItem{item(productBread, "-1")}},
		"sin receptor":      {Items: []entity.TransferItem{item(productBread, "1")}},
		"a sí mismo":        {ToStaffID: storekeeper.StaffID, ToStaffRole: storekeeper.Role, Items: []entity.TransferItem{item(productBread, "1")}},
		"mismo stock":       {ToStaffID: "mgr-1", ToStaffRole: entity.RoleManager, Items: []entity.TransferItem{item(productBread, "1")}},
		"cuatro decimales":  {ToStaffID: showroom.StaffID, ToStaffRole: showroom.Role, Items: []entity.TransferItem{item(productBread, "0.0005")}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := f.engine.InitiateTransfer(ctx, storekeeper, in)
			requireKind(t, domain.KindValidation, res, err)
		})
	}

	res, err := f.engine.InitiateTransfer(ctx, entity.CurrentUser{}, inventory.InitiateTransferInput{
		ToStaffID: showroom.StaffID, Items: []entity.TransferItem{item(productBread, "1")},
	})
	requireKind(t, domain.KindValidation, res, err)
}

func TestInitiate_StockInsuficienteEnOrigen(t *testing.T) {
	f := newFixture(t)
	f.seed(entity.ScopeCentral, productBread, "3")

	res, err := f.engine.InitiateTransfer(context.Background(), storekeeper, inventory.InitiateTransferInput{
		ToStaffID: showroom.StaffID, ToStaffRole: showroom.Role,
		Items: []entity.TransferItem{item(productBread, "2"), item(productBread, "2")},
	})
	requireKind(t, domain.KindInsufficientStock, res, err)

	list, err := f.engine.Transfers.PendingFor(context.Background(), showroom.StaffID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestInitiate_RolDelReceptorFijaSalesRun(t *testing.T) {
	f := newFixture(t)
	f.seed(entity.ScopeCentral, productBread, "10")
	ctx := context.Background()

	res, err := f.engine.InitiateTransfer(ctx, storekeeper, inventory.InitiateTransferInput{
		ToStaffID: driver.StaffID, ToStaffRole: driver.Role, Items: []entity.TransferItem{item(productBread, "1")},
	})
	toDriver := requireSuccess[*entity.Transfer](t, res, err)
	assert.True(t, toDriver.IsSalesRun, "un repartidor siempre recibe en sales run")

	res, err = f.engine.InitiateTransfer(ctx, storekeeper, inventory.InitiateTransferInput{
		ToStaffID: showroom.StaffID, ToStaffRole: showroom.Role, IsSalesRun: true,
		Items: []entity.TransferItem{item(productBread, "1")},
	})
	toShowroom := requireSuccess[*entity.Transfer](t, res, err)
	assert.False(t, toShowroom.IsSalesRun, "el showroom nunca recibe en sales run")
}

func TestInitiate_ReintentoConMismoRequestID(t *testing.T) {
	f := newFixture(t)
	f.seed(entity.ScopeCentral, productBread, "10")
	ctx := context.Background()
	in := inventory.InitiateTransferInput{
		RequestID: "req-1", ToStaffID: showroom.StaffID, ToStaffRole: showroom.Role,
		Items: []entity.TransferItem{item(productBread, "4")},
	}

	res1, err := f.engine.InitiateTransfer(ctx, storekeeper, in)
	first := requireSuccess[*entity.Transfer](t, res1, err)
	res2, err := f.engine.InitiateTransfer(ctx, storekeeper, in)
	second := requireSuccess[*entity.Transfer](t, res2, err)

	assert.Equal(t, first.ID, second.ID)
	list, err := f.engine.Transfers.PendingFor(ctx, showroom.StaffID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// ──────────────────────────────────────────────────────────────────────────────
// Acknowledge
// ──────────────────────────────────────────────────────────────────────────────

// Escenario: remitente con 10, transfiere 6, el receptor acepta → 4 y 6, completed.
func TestAcknowledge_AceptarConservaCantidad(t *testing.T) {
	f := newFixture(t)
	f.seed(entity.StaffScope(baker.StaffID), productBread, "10")
	tr := f.initiate(t, baker, showroom, item(productBread, "6"))

	res, err := f.engine.AcknowledgeTransfer(context.Background(), showroom, tr.ID, entity.AcknowledgeAccept)
	done := requireSuccess[*entity.Transfer](t, res, err)

	assert.Equal(t, entity.TransferStatusCompleted, done.Status)
	require.NotNil(t, done.TimeReceived)
	require.NotNil(t, done.TimeCompleted)
	requireQty(t, "4", f.qty(t, entity.StaffScope(baker.StaffID), productBread))
	requireQty(t, "6", f.qty(t, entity.StaffScope(showroom.StaffID), productBread))
	requireQty(t, "10", f.store.TotalStock(productBread), "la cantidad total se conserva")

	movs, err := f.store.Movements().ListByReference(context.Background(), tr.ID)
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.Equal(t, movs[0].TransactionID, movs[1].TransactionID)
	assert.Contains(t, f.notifier.Topics(), inventory.TopicStock)
}

func TestAcknowledge_MultiplesLineasSeConservan(t *testing.T) {
	f := newFixture(t)
	f.seed(entity.ScopeCentral, productBread, "20")
	f.seed(entity.ScopeCentral, productCake, "5")
	tr := f.initiate(t, storekeeper, showroom, item(productBread, "7.5"), item(productCake, "2"), item(productBread, "2.5"))

	res, err := f.engine.AcknowledgeTransfer(context.Background(), showroom, tr.ID, entity.AcknowledgeAccept)
	requireSuccess[*entity.Transfer](t, res, err)

	requireQty(t, "10", f.qty(t, entity.ScopeCentral, productBread))
	requireQty(t, "10", f.qty(t, entity.StaffScope(showroom.StaffID), productBread))
	requireQty(t, "3", f.qty(t, entity.ScopeCentral, productCake))
	requireQty(t, "2", f.qty(t, entity.StaffScope(showroom.StaffID), productCake))
}

func TestAcknowledge_RechazarNoMueveStock(t *testing.T) {
	f := newFixture(t)
	f.seed(entity.ScopeCentral, productBread, "10")
	tr := f.initiate(t, storekeeper, showroom, item(productBread, "6"))

	res, err := f.engine.AcknowledgeTransfer(context.Background(), showroom, tr.ID, entity.AcknowledgeDecline)
	declined := requireSuccess[*entity.Transfer](t, res, err)

	assert.Equal(t, entity.TransferStatusDeclined, declined.Status)
	assert.Nil(t, declined.TimeReceived)
	requireQty(t, "10", f.qty(t, entity.ScopeCentral, productBread))
}

func TestAcknowledge_StockConsumidoAntesDeAceptar(t *testing.T) {
	f := newFixture(t)
	f.seed(entity.ScopeCentral, productBread, "10")
	tr := f.initiate(t, storekeeper, showroom, item(productBread, "6"))

	// Otra operación consume el stock entre initiate y accept.
	err := f.engine.Ledger.Adjust(context.Background(), entity.ScopeCentral, productBread, qty("-8"),
		inventory.MovementRef{Reason: entity.MovementReasonManual, ActorID: storekeeper.StaffID})
	require.NoError(t, err)

	res, err := f.engine.AcknowledgeTransfer(context.Background(), showroom, tr.ID, entity.AcknowledgeAccept)
	requireKind(t, domain.KindInsufficientStock, res, err)

	got, err := f.engine.Transfers.Get(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusPending, got.Status, "la transferencia sigue pendiente")
	requireQty(t, "2", f.qty(t, entity.ScopeCentral, productBread))
	requireQty(t, "0", f.qty(t, entity.StaffScope(showroom.StaffID), productBread))
}

func TestAcknowledge_SoloReceptorOTienda(t *testing.T) {
	f := newFixture(t)
	f.seed(entity.ScopeCentral, productBread, "10")
	tr := f.initiate(t, storekeeper, showroom, item(productBread, "1"))

	res, err := f.engine.AcknowledgeTransfer(context.Background(), baker, tr.ID, entity.AcknowledgeAccept)
	requireKind(t, domain.KindValidation, res, err)

	res, err = f.engine.AcknowledgeTransfer(context.Background(), storekeeper, tr.ID, entity.AcknowledgeAccept)
	requireSuccess[*entity.Transfer](t, res, err)
}

func TestAcknowledge_AccionDesconocida(t *testing.T) {
	f := newFixture(t)
	res, err := f.engine.AcknowledgeTransfer(context.Background(), showroom, "x", "maybe")
	requireKind(t, domain.KindValidation, res, err)
}

func TestAcknowledge_NoExiste(t *testing.T) {
	f := newFixture(t)
	res, err := f.engine.AcknowledgeTransfer(context.Background(), showroom, "no-existe", entity.AcknowledgeAccept)
	requireKind(t, domain.KindNotFound, res, err)
}

func TestAcknowledge_TerminalEsInmutable(t *testing.T) {
	ctx := context.Background()
	for _, first := range []string{entity.AcknowledgeAccept, entity.AcknowledgeDecline} {
		t.Run(first, func(t *testing.T) {
			f := newFixture(t)
			f.seed(entity.ScopeCentral, productBread, "10")
			tr := f.initiate(t, storekeeper, showroom, item(productBread, "6"))
			res, err := f.engine.AcknowledgeTransfer(ctx, showroom, tr.ID, first)
			requireSuccess[*entity.Transfer](t, res, err)

			central := f.qty(t, entity.ScopeCentral, productBread)
			for _, again := range []string{entity.AcknowledgeAccept, entity.AcknowledgeDecline} {
				res, err := f.engine.AcknowledgeTransfer(ctx, showroom, tr.ID, again)
				requireKind(t, domain.KindInvalidStateTransition, res, err)
				// Alguien ajeno a la transferencia recibe la misma respuesta.
				res, err = f.engine.AcknowledgeTransfer(ctx, baker, tr.ID, again)
				requireKind(t, domain.KindInvalidStateTransition, res, err)
			}
			requireQty(t, central.String(), f.qty(t, entity.ScopeCentral, productBread))
		})
	}
}

// Escenario: dos aceptaciones concurrentes; exactamente una gana.
func TestAcknowledge_AceptacionesConcurrentes(t *testing.T) {
	f := newFixture(t)
	f.seed(entity.ScopeCentral, productBread, "10")
	tr := f.initiate(t, storekeeper, driver, item(productBread, "6"))

	const workers = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		kinds = map[domain.ErrorKind]int{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.engine.AcknowledgeTransfer(context.Background(), driver, tr.ID, entity.AcknowledgeAccept)
			assert.NoError(t, err)
			mu.Lock()
			kinds[res.Error]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, kinds[domain.KindNone], "exactamente una aceptación gana")
	assert.Equal(t, workers-1, kinds[domain.KindInvalidStateTransition])
	requireQty(t, "4", f.qty(t, entity.ScopeCentral, productBread))
	requireQty(t, "6", f.qty(t, entity.StaffScope(driver.StaffID), productBread))
}

// Reintento tras un conflicto de commit: el resultado final es el de una única aceptación.
func TestAcknowledge_ReintentoTrasConflicto(t *testing.T) {
	flaky := &flakyRunner{err: domain.ErrConflict}
	f := newFixtureWithRunner(t, func(next inventory.TxRunner) inventory.TxRunner {
		flaky.next = next
		return flaky
	})
	f.seed(entity.ScopeCentral, productBread, "10")
	tr := f.initiate(t, storekeeper, showroom, item(productBread, "6"))

	flaky.failures = 1
	res, err := f.engine.AcknowledgeTransfer(context.Background(), showroom, tr.ID, entity.AcknowledgeAccept)
	requireKind(t, domain.KindConflictRetryable, res, err)
	requireQty(t, "10", f.qty(t, entity.ScopeCentral, productBread), "el conflicto no deja efectos")

	res, err = f.engine.AcknowledgeTransfer(context.Background(), showroom, tr.ID, entity.AcknowledgeAccept)
	requireSuccess[*entity.Transfer](t, res, err)
	res, err = f.engine.AcknowledgeTransfer(context.Background(), showroom, tr.ID, entity.AcknowledgeAccept)
	requireKind(t, domain.KindInvalidStateTransition, res, err)

	requireQty(t, "4", f.qty(t, entity.ScopeCentral, productBread))
	requireQty(t, "6", f.qty(t, entity.StaffScope(showroom.StaffID), productBread))
}

func TestAcknowledge_FalloDeInfraestructuraSeDevuelveComoError(t *testing.T) {
	boom := fmt.Errorf("conexión perdida: %w", domain.ErrInfrastructure)
	flaky := &flakyRunner{err: boom}
	f := newFixtureWithRunner(t, func(next inventory.TxRunner) inventory.TxRunner {
		flaky.next = next
		return flaky
	})
	f.seed(entity.ScopeCentral, productBread, "10")
	tr := f.initiate(t, storekeeper, showroom, item(productBread, "6"))

	flaky.failures = 1
	res, err := f.engine.AcknowledgeTransfer(context.Background(), showroom, tr.ID, entity.AcknowledgeAccept)
	require.ErrorIs(t, err, domain.ErrInfrastructure)
	assert.Equal(t, domain.KindInfrastructure, res.Error)
	requireQty(t, "10", f.qty(t, entity.ScopeCentral, productBread))
}

func TestAcknowledge_FalloAlPublicarNoRevierte(t *testing.T) {
	f := newFixture(t)
	f.events.fail = true
	f.seed(entity.ScopeCentral, productBread, "10")
	tr := f.initiate(t, storekeeper, showroom, item(productBread, "6"))

	res, err := f.engine.AcknowledgeTransfer(context.Background(), showroom, tr.ID, entity.AcknowledgeAccept)
	requireSuccess[*entity.Transfer](t, res, err)
	requireQty(t, "6", f.qty(t, entity.StaffScope(showroom.StaffID), productBread))
}

// ──────────────────────────────────────────────────────────────────────────────
// Sales run: devolución
// ──────────────────────────────────────────────────────────────────────────────

func TestSalesRun_DevolucionCompleta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(entity.ScopeCentral, productBread, "10")
	tr := f.initiate(t, storekeeper, driver, item(productBread, "6"))

	res, err := f.engine.AcknowledgeTransfer(ctx, driver, tr.ID, entity.AcknowledgeAccept)
	active := requireSuccess[*entity.Transfer](t, res, err)
	assert.Equal(t, entity.TransferStatusActive, active.Status)
	assert.Nil(t, active.TimeCompleted)

	// Vende 4 durante la ruta.
	require.NoError(t, f.engine.Ledger.Adjust(ctx, entity.StaffScope(driver.StaffID), productBread, qty("-4"),
		inventory.MovementRef{Reason: entity.MovementReasonManual, ActorID: driver.StaffID}))

	res, err = f.engine.RequestReturn(ctx, driver, tr.ID)
	pending := requireSuccess[*entity.Transfer](t, res, err)
	assert.Equal(t, entity.TransferStatusPendingReturn, pending.Status)

	res, err = f.engine.CompleteReturn(ctx, storekeeper, tr.ID, []entity.TransferItem{item(productBread, "2")})
	done := requireSuccess[*entity.Transfer](t, res, err)
	assert.Equal(t, entity.TransferStatusReturnCompleted, done.Status)
	require.NotNil(t, done.TimeCompleted)
	require.Len(t, done.ReturnedItems, 1)
	assert.Equal(t, "Pan de bono", done.ReturnedItems[0].ProductName)

	requireQty(t, "6", f.qty(t, entity.ScopeCentral, productBread))
	requireQty(t, "0", f.qty(t, entity.StaffScope(driver.StaffID), productBread))

	res, err = f.engine.CompleteReturn(ctx, storekeeper, tr.ID, nil)
	requireKind(t, domain.KindInvalidStateTransition, res, err)
	res, err = f.engine.AcknowledgeTransfer(ctx, driver, tr.ID, entity.AcknowledgeDecline)
	requireKind(t, domain.KindInvalidStateTransition, res, err)
}

func TestSalesRun_DevolucionMayorALoTransferido(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(entity.ScopeCentral, productBread, "10")
	tr := f.initiate(t, storekeeper, driver, item(productBread, "6"))
	res, err := f.engine.AcknowledgeTransfer(ctx, driver, tr.ID, entity.AcknowledgeAccept)
	requireSuccess[*entity.Transfer](t, res, err)
	res, err = f.engine.RequestReturn(ctx, driver, tr.ID)
	requireSuccess[*entity.Transfer](t, res, err)

	res, err = f.engine.CompleteReturn(ctx, storekeeper, tr.ID, []entity.TransferItem{item(productBread, "7")})
	requireKind(t, domain.KindValidation, res, err)

	got, err := f.engine.Transfers.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusPendingReturn, got.Status)
}

// El almacén guarda 3 decimales: una cantidad más fina se redondearía al persistir y el
// receptor recibiría más de lo que sale del origen.
func TestInitiate_CantidadConMasDeTresDecimales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(entity.ScopeCentral, productBread, "1")

	res, err := f.engine.InitiateTransfer(ctx, storekeeper, inventory.InitiateTransferInput{
		ToStaffID: showroom.StaffID, ToStaffRole: showroom.Role,
		Items: []entity.TransferItem{item(productBread, "0.0005")},
	})
	requireKind(t, domain.KindValidation, res, err)

	// Ceros a la derecha no cambian el valor: se aceptan.
	tr := f.initiate(t, storekeeper, showroom, item(productBread, "0.2500"))
	res, err = f.engine.AcknowledgeTransfer(ctx, showroom, tr.ID, entity.AcknowledgeAccept)
	requireSuccess[*entity.Transfer](t, res, err)
	requireQty(t, "0.75", f.qty(t, entity.ScopeCentral, productBread))
	requireQty(t, "0.25", f.qty(t, entity.StaffScope(showroom.StaffID), productBread))
}

func TestSalesRun_DevolucionConMasDeTresDecimales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(entity.ScopeCentral, productBread, "10")
	tr := f.initiate(t, storekeeper, driver, item(productBread, "6"))
	res, err := f.engine.AcknowledgeTransfer(ctx, driver, tr.ID, entity.AcknowledgeAccept)
	requireSuccess[*entity.Transfer](t, res, err)
	res, err = f.engine.RequestReturn(ctx, driver, tr.ID)
	requireSuccess[*entity.Transfer](t, res, err)

	res, err = f.engine.CompleteReturn(ctx, storekeeper, tr.ID, []entity.TransferItem{item(productBread, "1.0001")})
	requireKind(t, domain.KindValidation, res, err)
	requireQty(t, "4", f.qty(t, entity.ScopeCentral, productBread))
}

func TestRequestReturn_SoloSalesRunActivo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(entity.ScopeCentral, productBread, "10")
	tr := f.initiate(t, storekeeper, showroom, item(productBread, "1"))

	res, err := f.engine.RequestReturn(ctx, showroom, tr.ID)
	requireKind(t, domain.KindInvalidStateTransition, res, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestConsultas_ColaHistorialYValorTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(entity.ScopeCentral, productBread, "10")
	f.seed(entity.ScopeCentral, productCake, "10")

	a := f.initiate(t, storekeeper, showroom, item(productBread, "4"), item(productCake, "1"))
	f.initiate(t, storekeeper, showroom, item(productBread, "1"))

	pending, err := f.engine.Transfers.PendingFor(ctx, showroom.StaffID)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	res, err := f.engine.AcknowledgeTransfer(ctx, showroom, a.ID, entity.AcknowledgeAccept)
	requireSuccess[*entity.Transfer](t, res, err)

	pending, err = f.engine.Transfers.PendingFor(ctx, showroom.StaffID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	history, err := f.engine.Transfers.HistoryFor(ctx, showroom.StaffID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	requireQty(t, "22", history[0].TotalValue, "4 × 2.50 + 1 × 12")

	sent, err := f.engine.Transfers.InitiatedBy(ctx, storekeeper.StaffID)
	require.NoError(t, err)
	assert.Len(t, sent, 2)

	_, err = f.engine.Transfers.PendingFor(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.engine.Transfers.Get(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
