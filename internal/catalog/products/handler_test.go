package products

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/stockledger"
)

type memoryProductReader struct {
	byID  map[int64]Product
	bySKU map[string]Product
	err   error
}

func (m *memoryProductReader) Get(_ context.Context, id int64) (Product, error) {
	if m.err != nil {
		return Product{}, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryProductReader) BySKU(_ context.Context, sku string) (Product, error) {
	if m.err != nil {
		return Product{}, m.err
	}
	p, ok := m.bySKU[sku]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryProductReader) List(_ context.Context, _ string, _, _ int) ([]Product, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	var out []Product
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out, len(out), nil
}

type memoryStockReader struct {
	onHand  map[int64][]stockledger.OnHandRow
	batches []stockledger.Batch
}

func (m *memoryStockReader) OnHand(_ context.Context, storeID int64) ([]stockledger.OnHandRow, error) {
	return m.onHand[storeID], nil
}

func (m *memoryStockReader) OnHandFor(_ context.Context, productID, storeID int64) (float64, error) {
	var qty float64
	for _, row := range m.onHand[storeID] {
		if row.ProductID == productID {
			qty += row.Qty
		}
	}
	return qty, nil
}

func (m *memoryStockReader) BatchesFor(_ context.Context, productID, storeID int64) ([]stockledger.Batch, error) {
	var out []stockledger.Batch
	for _, b := range m.batches {
		if b.ProductID == productID && b.StoreID == storeID {
			out = append(out, b)
		}
	}
	return out, nil
}

func newTestRouter(repo ProductReader, stock StockReader) *chi.Mux {
	h := NewHandler(repo, stock, slog.Default())
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func TestListBySKUReturnsSingleMatch(t *testing.T) {
	repo := &memoryProductReader{
		bySKU: map[string]Product{"PO1-L11": {ID: 7, Name: "Arabica Beans 1kg", SKU: "PO1-L11"}},
	}
	router := newTestRouter(repo, &memoryStockReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/catalog/products?sku=PO1-L11", nil))

	require.Equal(t, 200, rec.Code)
	var body struct {
		Items []Product `json:"items"`
		Total int       `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, int64(7), body.Items[0].ID)
	assert.Equal(t, 1, body.Total)
}

func TestListBySKUMissIsEmptyPage(t *testing.T) {
	router := newTestRouter(&memoryProductReader{}, &memoryStockReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/catalog/products?sku=NOPE", nil))

	require.Equal(t, 200, rec.Code)
	var body struct {
		Items []Product `json:"items"`
		Total int       `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Items)
	assert.Equal(t, 0, body.Total)
}

func TestGetUnknownProductIsNotFound(t *testing.T) {
	router := newTestRouter(&memoryProductReader{}, &memoryStockReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/catalog/products/99", nil))

	assert.Equal(t, 404, rec.Code)
	var pd struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pd))
	assert.Equal(t, "Not Found", pd.Title)
	assert.Contains(t, pd.Detail, "product not found")
}

func TestGetRepositoryFailureIsOpaque(t *testing.T) {
	repo := &memoryProductReader{err: errors.New("pool exhausted")}
	router := newTestRouter(repo, &memoryStockReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/catalog/products/1", nil))

	assert.Equal(t, 500, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pool exhausted")
}

func TestProductStockReturnsOnHandAndBatches(t *testing.T) {
	repo := &memoryProductReader{byID: map[int64]Product{7: {ID: 7, SKU: "PO1-L11"}}}
	stock := &memoryStockReader{
		onHand: map[int64][]stockledger.OnHandRow{
			2: {{ProductID: 7, StoreID: 2, Qty: 12}},
		},
		batches: []stockledger.Batch{
			{ID: 1, ProductID: 7, StoreID: 2, Qty: 10, UnitCost: 4.5},
			{ID: 2, ProductID: 7, StoreID: 2, Qty: 2, UnitCost: 4.8},
		},
	}
	router := newTestRouter(repo, stock)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/catalog/products/7/stock?store_id=2", nil))

	require.Equal(t, 200, rec.Code)
	var body struct {
		OnHand  float64             `json:"on_hand"`
		Batches []stockledger.Batch `json:"batches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 12.0, body.OnHand)
	assert.Len(t, body.Batches, 2)
}

func TestStoreStockListsPositions(t *testing.T) {
	stock := &memoryStockReader{
		onHand: map[int64][]stockledger.OnHandRow{
			2: {
				{ProductID: 7, StoreID: 2, Qty: 12},
				{ProductID: 9, StoreID: 2, Qty: 3},
			},
		},
	}
	router := newTestRouter(&memoryProductReader{}, stock)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/catalog/stores/2/stock", nil))

	require.Equal(t, 200, rec.Code)
	var body struct {
		StoreID int64                   `json:"store_id"`
		Items   []stockledger.OnHandRow `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.StoreID)
	assert.Len(t, body.Items, 2)
}

func TestStoreStockRejectsBadStoreID(t *testing.T) {
	router := newTestRouter(&memoryProductReader{}, &memoryStockReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/catalog/stores/zero/stock", nil))

	assert.Equal(t, 400, rec.Code)
}
