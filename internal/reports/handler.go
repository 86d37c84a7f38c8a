package reports

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-retail/meridian/internal/platform/httpx"
)

// Handler exposes the stock report endpoints.
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler constructs a handler.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes mounts the report routes on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/reports/stock", h.stock)
	r.Get("/reports/stock/export.csv", h.exportCSV)
}

func (h *Handler) stock(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.storeID(w, r)
	if !ok {
		return
	}
	rows, err := h.svc.Stock(r.Context(), storeID)
	if err != nil {
		h.log.Error("stock report failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if rows == nil {
		rows = []StockRow{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": rows})
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.storeID(w, r)
	if !ok {
		return
	}
	rows, err := h.svc.Stock(r.Context(), storeID)
	if err != nil {
		h.log.Error("stock export failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="stock_report.csv"`)
	if err := WriteStockCSV(w, rows); err != nil {
		h.log.Error("stock csv write failed", slog.Any("error", err))
	}
}

func (h *Handler) storeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("store_id")
	if raw == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "store_id is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid store_id")
		return 0, false
	}
	return id, true
}
