package receiving

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-retail/meridian/internal/payments"
	"github.com/meridian-retail/meridian/internal/platform/httpx"
)

// Handler exposes the receiving endpoints.
type Handler struct {
	svc      *Service
	validate *validator.Validate
	log      *slog.Logger
}

// NewHandler constructs a handler.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, validate: validator.New(), log: log}
}

// Routes mounts the receiving routes on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/orders/{orderID}/receipts", h.receive)
	r.Get("/orders/{orderID}", h.get)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		httpx.ProblemKind(w, http.StatusBadRequest, "Validation Failed", "invalid order id", string(KindValidation), nil)
		return
	}

	var req ReceiveItemsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ProblemKind(w, http.StatusBadRequest, "Validation Failed", "invalid request body", string(KindValidation), nil)
		return
	}
	req.OrderID = orderID
	if err := h.validate.Struct(req); err != nil {
		httpx.ProblemKind(w, http.StatusBadRequest, "Validation Failed", err.Error(), string(KindValidation), nil)
		return
	}
	if req.Payment != nil {
		if err := h.validate.Struct(req.Payment); err != nil {
			httpx.ProblemKind(w, http.StatusBadRequest, "Validation Failed", err.Error(), string(KindValidation), nil)
			return
		}
	}

	result, err := h.svc.Receive(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if result.NewProductsCreated == nil {
		result.NewProductsCreated = []NewProduct{}
	}
	if result.UpdatedLineItems == nil {
		result.UpdatedLineItems = []UpdatedLine{}
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}

	order, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		lines := make([]httpx.LineError, 0, len(ve.Lines))
		for _, le := range ve.Lines {
			lines = append(lines, httpx.LineError{LineItemID: le.LineItemID, Reason: le.Reason})
		}
		httpx.ProblemKind(w, http.StatusBadRequest, "Validation Failed", ve.Reason, string(kind), lines)
	case errors.Is(err, payments.ErrOverpayment),
		errors.Is(err, payments.ErrInvalidAmount),
		errors.Is(err, ErrMissingPrice),
		errors.Is(err, ErrDuplicateSKU):
		httpx.ProblemKind(w, http.StatusBadRequest, "Validation Failed", err.Error(), string(kind), nil)
	case errors.Is(err, ErrTerminalState):
		httpx.ProblemKind(w, http.StatusConflict, "Conflict", err.Error(), string(kind), nil)
	case errors.Is(err, ErrConcurrentModification):
		httpx.ProblemKind(w, http.StatusConflict, "Conflict", err.Error(), string(kind), nil)
	case errors.Is(err, ErrOrderNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "purchase order not found")
	default:
		h.log.Error("receipt request failed", slog.Any("error", err))
		httpx.ProblemKind(w, http.StatusInternalServerError, "Internal Error", "", string(KindPersistence), nil)
	}
}
