package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-retail/meridian/internal/platform/httpx"
	"github.com/meridian-retail/meridian/internal/stockledger"
)

// ProductReader abstracts catalog reads for the handler.
type ProductReader interface {
	Get(ctx context.Context, id int64) (Product, error)
	BySKU(ctx context.Context, sku string) (Product, error)
	List(ctx context.Context, search string, limit, offset int) ([]Product, int, error)
}

// StockReader abstracts stock position reads.
type StockReader interface {
	OnHand(ctx context.Context, storeID int64) ([]stockledger.OnHandRow, error)
	OnHandFor(ctx context.Context, productID, storeID int64) (float64, error)
	BatchesFor(ctx context.Context, productID, storeID int64) ([]stockledger.Batch, error)
}

// Handler exposes read-only catalog endpoints. Product creation happens
// through the receiving flow.
type Handler struct {
	repo  ProductReader
	stock StockReader
	log   *slog.Logger
}

// NewHandler constructs a handler.
func NewHandler(repo ProductReader, stock StockReader, log *slog.Logger) *Handler {
	return &Handler{repo: repo, stock: stock, log: log}
}

// Routes mounts the catalog routes on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/catalog/products", h.list)
	r.Get("/catalog/products/{productID}", h.get)
	r.Get("/catalog/products/{productID}/stock", h.getStock)
	r.Get("/catalog/stores/{storeID}/stock", h.storeStock)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.RespondError(w, fmt.Errorf("product not found: %w", httpx.ErrNotFound))
		return
	}
	h.log.Error("catalog request failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// Exact SKU lookup short-circuits the search. A miss is an empty page,
	// not a 404, so callers can probe SKUs without special-casing.
	if sku := q.Get("sku"); sku != "" {
		p, err := h.repo.BySKU(r.Context(), sku)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				httpx.JSON(w, http.StatusOK, map[string]any{"items": []Product{}, "total": 0})
				return
			}
			h.respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"items": []Product{p}, "total": 1})
		return
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.repo.List(r.Context(), q.Get("search"), limit, offset)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if items == nil {
		items = []Product{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, fmt.Errorf("invalid product id: %w", httpx.ErrValidation))
		return
	}

	p, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// getStock returns the on-hand quantity and cost-layer batches for a product
// at one store.
func (h *Handler) getStock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, fmt.Errorf("invalid product id: %w", httpx.ErrValidation))
		return
	}
	storeID, err := strconv.ParseInt(r.URL.Query().Get("store_id"), 10, 64)
	if err != nil || storeID <= 0 {
		httpx.RespondError(w, fmt.Errorf("invalid store_id: %w", httpx.ErrValidation))
		return
	}

	if _, err := h.repo.Get(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}

	onHand, err := h.stock.OnHandFor(r.Context(), id, storeID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	batches, err := h.stock.BatchesFor(r.Context(), id, storeID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if batches == nil {
		batches = []stockledger.Batch{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"product_id": id,
		"store_id":   storeID,
		"on_hand":    onHand,
		"batches":    batches,
	})
}

// storeStock returns the aggregated on-hand position for every product held
// at a store.
func (h *Handler) storeStock(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.ParseInt(chi.URLParam(r, "storeID"), 10, 64)
	if err != nil || storeID <= 0 {
		httpx.RespondError(w, fmt.Errorf("invalid store id: %w", httpx.ErrValidation))
		return
	}

	rows, err := h.stock.OnHand(r.Context(), storeID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if rows == nil {
		rows = []stockledger.OnHandRow{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"store_id": storeID, "items": rows})
}
