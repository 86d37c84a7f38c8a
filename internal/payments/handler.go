package payments

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-retail/meridian/internal/platform/httpx"
)

// Handler exposes the standalone payment endpoints.
type Handler struct {
	svc      *Service
	validate *validator.Validate
	log      *slog.Logger
}

// NewHandler constructs a handler.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, validate: validator.New(), log: log}
}

// Routes mounts the payment routes on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/orders/{orderID}/payments", h.apply)
	r.Get("/orders/{orderID}/payments", h.list)
}

type applyRequest struct {
	Amount float64 `json:"amount" validate:"gte=0"`
	Method string  `json:"method" validate:"omitempty,max=64"`
	Note   string  `json:"note" validate:"omitempty,max=500"`
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}

	var req applyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	fig, err := h.svc.Apply(r.Context(), ApplyInput{
		OrderID: orderID,
		Amount:  req.Amount,
		Method:  req.Method,
		Note:    req.Note,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fig)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}

	records, err := h.svc.History(r.Context(), orderID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if records == nil {
		records = []Record{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": records})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "purchase order not found")
	case errors.Is(err, ErrInvalidAmount):
		httpx.ProblemKind(w, http.StatusBadRequest, "Validation Failed", err.Error(), "validation_error", nil)
	case errors.Is(err, ErrOverpayment):
		httpx.ProblemKind(w, http.StatusBadRequest, "Validation Failed", err.Error(), "overpayment_error", nil)
	case errors.Is(err, ErrOrderCancelled):
		httpx.ProblemKind(w, http.StatusConflict, "Conflict", err.Error(), "terminal_state_error", nil)
	default:
		h.log.Error("payment request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
