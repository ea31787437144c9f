package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-control-api/internal/application/inventory"
	"github.com/jhoicas/stock-control-api/internal/domain"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
	"github.com/jhoicas/stock-control-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

var (
	storekeeper = entity.CurrentUser{StaffID: "st-1", Name: "Ana", Role: entity.RoleStorekeeper}
	driver      = entity.CurrentUser{StaffID: "dr-1", Name: "Luis", Role: entity.RoleDeliveryStaff}
	showroom    = entity.CurrentUser{StaffID: "sh-1", Name: "Marta", Role: entity.RoleShowroomStaff}
	baker       = entity.CurrentUser{StaffID: "bk-1", Name: "Pedro", Role: entity.RoleBaker}

	testNow = time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC)
)

const (
	productBread = "p-bread"
	productCake  = "p-cake"
	ingFlour     = "i-flour"
	ingSugar     = "i-sugar"
)

type fixture struct {
	store    *memory.Store
	engine   *inventory.Engine
	notifier *recordingNotifier
	events   *recordingPublisher
}

// newFixture arma el motor sobre el almacén en memoria con un catálogo mínimo.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRunner(t, nil)
}

// newFixtureWithRunner permite envolver el TxRunner (inyección de fallos).
func newFixtureWithRunner(t *testing.T, wrap func(inventory.TxRunner) inventory.TxRunner) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddProduct(entity.Product{ID: productBread, Name: "Pan de bono", Kind: entity.ProductKindProduct, Unit: "und", Price: decimal.RequireFromString("2.50")})
	store.AddProduct(entity.Product{ID: productCake, Name: "Torta", Kind: entity.ProductKindProduct, Unit: "und", Price: decimal.NewFromInt(12)})
	store.AddProduct(entity.Product{ID: ingFlour, Name: "Harina", Kind: entity.ProductKindIngredient, Unit: "kg"})
	store.AddProduct(entity.Product{ID: ingSugar, Name: "Azúcar", Kind: entity.ProductKindIngredient, Unit: "kg"})

	var runner inventory.TxRunner = store
	if wrap != nil {
		runner = wrap(store)
	}
	f := &fixture{store: store, notifier: &recordingNotifier{}, events: &recordingPublisher{}}
	f.engine = inventory.NewEngine(runner, store.Repos(),
		inventory.WithClock(func() time.Time { return testNow }),
		inventory.WithNotifier(f.notifier),
		inventory.WithPublisher(f.events),
	)
	return f
}

func (f *fixture) seed(scope entity.Scope, entityID, qty string) {
	f.store.SeedStock(scope, entityID, decimal.RequireFromString(qty))
}

func (f *fixture) qty(t *testing.T, scope entity.Scope, entityID string) decimal.Decimal {
	t.Helper()
	q, err := f.engine.Ledger.Read(context.Background(), scope, entityID)
	require.NoError(t, err)
	return q
}

// requireQty compara cantidades decimales sin depender de la escala.
func requireQty(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "cantidad esperada %s, obtenida %s %v", want, got.String(), msgAndArgs)
}

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// requireKind exige un fallo de negocio del tipo indicado (sin error Go).
func requireKind(t *testing.T, want domain.ErrorKind, res inventory.Result, err error) {
	t.Helper()
	require.NoError(t, err, "un fallo de negocio no debe devolverse como error Go")
	require.False(t, res.Success)
	require.Equal(t, want, res.Error, res.Message)
}

// requireSuccess exige éxito y devuelve el dato tipado.
func requireSuccess[T any](t *testing.T, res inventory.Result, err error) T {
	t.Helper()
	require.NoError(t, err)
	require.True(t, res.Success, "se esperaba éxito: %s %s", res.Error, res.Message)
	data, ok := res.Data.(T)
	require.True(t, ok, "tipo de dato inesperado %T", res.Data)
	return data
}

func (f *fixture) initiate(t *testing.T, from, to entity.CurrentUser, items ...entity.TransferItem) *entity.Transfer {
	t.Helper()
	res, err := f.engine.InitiateTransfer(context.Background(), from, inventory.InitiateTransferInput{
		ToStaffID:   to.StaffID,
		ToStaffName: to.Name,
		ToStaffRole: to.Role,
		Items:       items,
	})
	return requireSuccess[*entity.Transfer](t, res, err)
}

func item(productID, q string) entity.TransferItem {
	return entity.TransferItem{ProductID: productID, Quantity: qty(q)}
}

type recordingNotifier struct {
	mu     sync.Mutex
	topics []string
}

func (n *recordingNotifier) Notify(_ context.Context, topics ...string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.topics = append(n.topics, topics...)
	return nil
}

func (n *recordingNotifier) Topics() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.topics...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []inventory.Event
	fail   bool
}

func (p *recordingPublisher) Publish(_ context.Context, ev inventory.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker caído")
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// flakyRunner hace fallar el commit de las primeras failures transacciones: fn se ejecuta
// completa y luego se descarta como si la BD hubiese detectado una escritura concurrente.
type flakyRunner struct {
	next     inventory.TxRunner
	mu       sync.Mutex
	failures int
	err      error
}

func (r *flakyRunner) Run(ctx context.Context, fn func(ctx context.Context, repos inventory.Repos) error) error {
	return r.next.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		if err := fn(ctx, repos); err != nil {
			return err
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.failures > 0 {
			r.failures--
			return r.err
		}
		return nil
	})
}
