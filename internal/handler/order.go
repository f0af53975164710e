package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/HanaFlU/TechZone-sub001/internal/middleware"
	"github.com/HanaFlU/TechZone-sub001/internal/model"
	"github.com/HanaFlU/TechZone-sub001/internal/repository"
	"github.com/HanaFlU/TechZone-sub001/internal/service"
	"github.com/HanaFlU/TechZone-sub001/internal/validation"
)

type createOrderRequest struct {
	AddressID     int64  `json:"addressId"`
	PaymentMethod string `json:"paymentMethod"`
	VoucherCode   string `json:"voucherCode"`
	TransactionID string `json:"transactionId"`
}

type stockErrorResponse struct {
	Error     string `json:"error"`
	Product   string `json:"product"`
	Available int64  `json:"available"`
	Requested int64  `json:"requested"`
}

// CreateOrder оформляет заказ из корзины текущего покупателя.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetCustomerIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.AddressID <= 0 || req.PaymentMethod == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	start := time.Now()
	order, err := h.service.Checkout(r.Context(), userID, service.CheckoutInput{
		AddressID:     req.AddressID,
		PaymentMethod: model.PaymentMethod(req.PaymentMethod),
		VoucherCode:   req.VoucherCode,
		TransactionID: req.TransactionID,
	})
	checkoutDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		checkoutRequests.WithLabelValues(checkoutOutcome(err)).Inc()

		var stockErr *repository.StockError
		switch {
		case errors.As(err, &stockErr):
			writeJSON(w, http.StatusBadRequest, stockErrorResponse{
				Error:     stockErr.Error(),
				Product:   stockErr.ProductName,
				Available: stockErr.Available,
				Requested: stockErr.Requested,
			})
		case errors.Is(err, repository.ErrCartEmpty):
			writeError(w, http.StatusNotFound, "cart is empty")
		case errors.Is(err, repository.ErrAddressNotFound):
			writeError(w, http.StatusNotFound, "address not found")
		case isVoucherError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrInvalidPaymentMethod),
			errors.Is(err, service.ErrMissingTransactionID),
			errors.Is(err, repository.ErrProductInactive):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrTransactionIDTaken):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("checkout error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	checkoutRequests.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusCreated, order)
}

// GetOrders возвращает заказы текущего покупателя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetCustomerIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.service.GetOrdersByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("get orders error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus переводит заказ в следующий статус выполнения.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if !validation.IsValidOrderNumber(number) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	var req orderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.AdvanceOrderStatus(r.Context(), number, model.OrderStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, service.ErrInvalidTransition),
			errors.Is(err, repository.ErrOrderStateConflict):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("update order status error", zap.Error(err), zap.String("order", number))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, order)
}
