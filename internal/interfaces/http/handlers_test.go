package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-control-api/internal/application/feed"
	"github.com/jhoicas/stock-control-api/internal/application/inventory"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
	"github.com/jhoicas/stock-control-api/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/stock-control-api/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type staff struct {
	id, name, role string
}

var (
	storekeeper = staff{"st-1", "Ana", entity.RoleStorekeeper}
	showroom    = staff{"sh-1", "Marta", entity.RoleShowroomStaff}
	driver      = staff{"dr-1", "Luis", entity.RoleDeliveryStaff}
	baker       = staff{"bk-1", "Pedro", entity.RoleBaker}
)

type fakeManifest struct{ calls int }

func (f *fakeManifest) GenerateTransferManifest(_ context.Context, _ *inventory.TransferView) ([]byte, error) {
	f.calls++
	return []byte("%PDF-1.4 fake"), nil
}

type apiFixture struct {
	app      *fiber.App
	store    *memory.Store
	manifest *fakeManifest
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	store.AddProduct(entity.Product{ID: "p-bread", Name: "Pan de bono", Kind: entity.ProductKindProduct, Unit: "und", Price: decimal.RequireFromString("2.50")})
	store.AddProduct(entity.Product{ID: "i-flour", Name: "Harina", Kind: entity.ProductKindIngredient, Unit: "kg"})

	hub := feed.NewHub(zerolog.Nop())
	engine := inventory.NewEngine(store, store.Repos(), inventory.WithNotifier(hub), inventory.WithLogger(zerolog.Nop()))
	f := &apiFixture{app: fiber.New(), store: store, manifest: &fakeManifest{}}
	apphttp.Router(f.app, apphttp.RouterDeps{
		Engine:    engine,
		Hub:       hub,
		Manifest:  f.manifest,
		JWTSecret: testJWTSecret,
		JWTIssuer: testIssuer,
		Log:       zerolog.Nop(),
	})
	return f
}

func (f *apiFixture) seed(scope entity.Scope, id, qty string) {
	f.store.SeedStock(scope, id, decimal.RequireFromString(qty))
}

// call ejecuta la petición autenticada como s y decodifica el cuerpo JSON.
func (f *apiFixture) call(t *testing.T, s staff, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, s.id, s.name, s.role))
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

// list ejecuta una consulta que devuelve un arreglo JSON.
func (f *apiFixture) list(t *testing.T, s staff, path string) []map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, s.id, s.name, s.role))
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *apiFixture) initiate(t *testing.T, from, to staff, qty string, salesRun bool) string {
	t.Helper()
	status, body := f.call(t, from, http.MethodPost, "/api/transfers", map[string]any{
		"to_staff_id":   to.id,
		"to_staff_name": to.name,
		"to_staff_role": to.role,
		"is_sales_run":  salesRun,
		"items":         []map[string]any{{"product_id": "p-bread", "quantity": qty}},
	})
	require.Equal(t, http.StatusCreated, status, "body: %v", body)
	return data(t, body)["id"].(string)
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "la respuesta debe traer data: %v", body)
	return d
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func stockOf(t *testing.T, f *apiFixture, s staff, scope string) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, r := range f.list(t, s, "/api/stock?scope="+scope) {
		out[r["entity_id"].(string)] = r["quantity"].(string)
	}
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Transfers
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfers_AceptarMueveStock(t *testing.T) {
	f := newAPI(t)
	f.seed(entity.ScopeCentral, "p-bread", "10")

	id := f.initiate(t, storekeeper, showroom, "6", false)

	pending := f.list(t, showroom, "/api/transfers/pending")
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0]["id"])
	assert.Equal(t, "15", pending[0]["total_value"])

	status, body := f.call(t, showroom, http.MethodPost, "/api/transfers/"+id+"/acknowledge", map[string]string{"action": entity.AcknowledgeAccept})
	require.Equal(t, http.StatusOK, status, "body: %v", body)
	assert.Equal(t, entity.TransferStatusCompleted, data(t, body)["status"])

	assert.Equal(t, "4", stockOf(t, f, storekeeper, "central")["p-bread"])
	assert.Equal(t, "6", stockOf(t, f, showroom, "staff:"+showroom.id)["p-bread"])
	assert.Empty(t, f.list(t, showroom, "/api/transfers/pending"))
	assert.Len(t, f.list(t, showroom, "/api/transfers/history"), 1)
	assert.Len(t, f.list(t, storekeeper, "/api/transfers/initiated"), 1)
}

func TestTransfers_SegundoAcuseRetorna409(t *testing.T) {
	f := newAPI(t)
	f.seed(entity.ScopeCentral, "p-bread", "10")
	id := f.initiate(t, storekeeper, showroom, "6", false)

	status, _ := f.call(t, showroom, http.MethodPost, "/api/transfers/"+id+"/acknowledge", map[string]string{"action": entity.AcknowledgeDecline})
	require.Equal(t, http.StatusOK, status)

	status, body := f.call(t, showroom, http.MethodPost, "/api/transfers/"+id+"/acknowledge", map[string]string{"action": entity.AcknowledgeAccept})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE_TRANSITION", errorCode(body))
	assert.Equal(t, "10", stockOf(t, f, storekeeper, "central")["p-bread"])
}

func TestTransfers_StockInsuficienteRetorna409(t *testing.T) {
	f := newAPI(t)
	f.seed(entity.ScopeCentral, "p-bread", "2")

	status, body := f.call(t, storekeeper, http.MethodPost, "/api/transfers", map[string]any{
		"to_staff_id": showroom.id, "to_staff_role": showroom.role,
		"items": []map[string]any{{"product_id": "p-bread", "quantity": "5"}},
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", errorCode(body))
}

func TestTransfers_ValidacionRetorna400(t *testing.T) {
	f := newAPI(t)

	status, body := f.call(t, storekeeper, http.MethodPost, "/api/transfers", map[string]any{
		"to_staff_id": showroom.id, "to_staff_role": showroom.role,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(body))
}

func TestTransfers_BakerNoPuedeIniciar(t *testing.T) {
	f := newAPI(t)

	status, body := f.call(t, baker, http.MethodPost, "/api/transfers", map[string]any{
		"to_staff_id": showroom.id, "to_staff_role": showroom.role,
		"items": []map[string]any{{"product_id": "p-bread", "quantity": "1"}},
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["code"])
}

func TestTransfers_GetInexistenteRetorna404(t *testing.T) {
	f := newAPI(t)

	status, body := f.call(t, storekeeper, http.MethodGet, "/api/transfers/no-existe", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestTransfers_ManifiestoPDF(t *testing.T) {
	f := newAPI(t)
	f.seed(entity.ScopeCentral, "p-bread", "10")
	id := f.initiate(t, storekeeper, showroom, "1", false)

	req := httptest.NewRequest(http.MethodGet, "/api/transfers/"+id+"/manifest.pdf", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, storekeeper.id, storekeeper.name, storekeeper.role))
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, 1, f.manifest.calls)
}

// ──────────────────────────────────────────────────────────────────────────────
// Sales runs
// ──────────────────────────────────────────────────────────────────────────────

func TestSalesRun_CicloCompletoConDevolucion(t *testing.T) {
	f := newAPI(t)
	f.seed(entity.ScopeCentral, "p-bread", "10")
	id := f.initiate(t, storekeeper, driver, "8", true)

	status, body := f.call(t, driver, http.MethodPost, "/api/transfers/"+id+"/acknowledge", map[string]string{"action": entity.AcknowledgeAccept})
	require.Equal(t, http.StatusOK, status, "body: %v", body)
	assert.Equal(t, entity.TransferStatusActive, data(t, body)["status"])

	runs := f.list(t, driver, "/api/sales-runs")
	require.Len(t, runs, 1)

	status, body = f.call(t, driver, http.MethodGet, "/api/sales-runs/"+id+"/inventory", nil)
	require.Equal(t, http.StatusOK, status, "body: %v", body)
	assert.Equal(t, id, data(t, body)["transfer_id"])

	status, _ = f.call(t, driver, http.MethodPost, "/api/transfers/"+id+"/return-request", nil)
	require.Equal(t, http.StatusOK, status)

	// Solo el almacén cierra la devolución.
	status, _ = f.call(t, driver, http.MethodPost, "/api/transfers/"+id+"/return-complete", map[string]any{})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = f.call(t, storekeeper, http.MethodPost, "/api/transfers/"+id+"/return-complete", map[string]any{
		"items": []map[string]any{{"product_id": "p-bread", "quantity": "3"}},
	})
	require.Equal(t, http.StatusOK, status, "body: %v", body)
	assert.Equal(t, entity.TransferStatusReturnCompleted, data(t, body)["status"])

	assert.Equal(t, "5", stockOf(t, f, storekeeper, "central")["p-bread"])
	assert.Equal(t, "5", stockOf(t, f, driver, "staff:"+driver.id)["p-bread"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Production
// ──────────────────────────────────────────────────────────────────────────────

func TestProduction_AprobarDescuentaIngredientes(t *testing.T) {
	f := newAPI(t)
	f.seed(entity.ScopeCentral, "i-flour", "20")

	status, body := f.call(t, baker, http.MethodPost, "/api/production-batches", map[string]any{
		"recipe_name": "Pan de bono",
		"ingredients": []map[string]any{{"ingredient_id": "i-flour", "quantity": "12", "unit": "kg"}},
	})
	require.Equal(t, http.StatusCreated, status, "body: %v", body)
	id := data(t, body)["id"].(string)

	assert.Len(t, f.list(t, storekeeper, "/api/production-batches"), 1)

	status, body = f.call(t, storekeeper, http.MethodGet, "/api/production-batches/"+id+"/evaluation", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, data(t, body)["can_approve"])

	status, _ = f.call(t, baker, http.MethodPost, "/api/production-batches/"+id+"/approve", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = f.call(t, storekeeper, http.MethodPost, "/api/production-batches/"+id+"/approve", nil)
	require.Equal(t, http.StatusOK, status, "body: %v", body)
	assert.Equal(t, entity.BatchStatusInProduction, data(t, body)["status"])
	assert.Equal(t, "8", stockOf(t, f, storekeeper, "central")["i-flour"])

	status, body = f.call(t, storekeeper, http.MethodPost, "/api/production-batches/"+id+"/decline", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE_TRANSITION", errorCode(body))
}

func TestProduction_EstadoDesconocidoRetorna400(t *testing.T) {
	f := newAPI(t)

	status, body := f.call(t, storekeeper, http.MethodGet, "/api/production-batches?status=otro", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", body["code"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Waste y stock
// ──────────────────────────────────────────────────────────────────────────────

func TestWaste_DescuentaDelStockPersonal(t *testing.T) {
	f := newAPI(t)
	f.seed(entity.StaffScope(showroom.id), "p-bread", "5")

	status, body := f.call(t, showroom, http.MethodPost, "/api/waste", map[string]any{
		"reason": entity.WasteReasonBurnt,
		"items":  []map[string]any{{"product_id": "p-bread", "quantity": "2"}},
	})
	require.Equal(t, http.StatusCreated, status, "body: %v", body)
	assert.Equal(t, "staff:"+showroom.id, data(t, body)["scope"])

	assert.Equal(t, "3", stockOf(t, f, showroom, "staff:"+showroom.id)["p-bread"])
	assert.Len(t, f.list(t, showroom, "/api/waste"), 1)
}

func TestStock_SoloAlmacenConsultaOtrosScopes(t *testing.T) {
	f := newAPI(t)

	status, body := f.call(t, showroom, http.MethodGet, "/api/stock?scope=central", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["code"])

	status, body = f.call(t, storekeeper, http.MethodGet, "/api/stock?scope=bodega", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", body["code"])
}
