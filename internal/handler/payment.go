package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/HanaFlU/TechZone-sub001/internal/middleware"
	"github.com/HanaFlU/TechZone-sub001/internal/model"
	"github.com/HanaFlU/TechZone-sub001/internal/payment"
	"github.com/HanaFlU/TechZone-sub001/internal/repository"
	"github.com/HanaFlU/TechZone-sub001/internal/service"
)

type createIntentRequest struct {
	AddressID   int64  `json:"addressId"`
	VoucherCode string `json:"voucherCode"`
}

type createIntentResponse struct {
	ClientSecret string            `json:"clientSecret"`
	TotalAmount  int64             `json:"totalAmount"`
	OrderItems   []model.OrderItem `json:"orderItems"`
}

// CreateIntent готовит платёжное намерение для текущей корзины покупателя.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetCustomerIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	result, err := h.service.CreateIntentForCart(r.Context(), userID, req.AddressID, req.VoucherCode)
	if err != nil {
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
			writeError(w, http.StatusBadRequest, "cart is empty")
		case errors.Is(err, repository.ErrAddressNotFound):
			writeError(w, http.StatusNotFound, "address not found")
		case isVoucherError(err), errors.Is(err, repository.ErrProductInactive):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, payment.ErrInvalidAmount), errors.Is(err, payment.ErrGateway):
			h.logger.Error("payment gateway error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		default:
			h.logger.Error("create intent error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, createIntentResponse{
		ClientSecret: result.ClientSecret,
		TotalAmount:  result.TotalAmount,
		OrderItems:   result.Items,
	})
}

type paymentWebhookRequest struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

// PaymentWebhook обрабатывает уведомление платёжной системы об итоге оплаты.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req paymentWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.PaymentCallback(r.Context(), req.TransactionID, model.PaymentStatus(req.Status))
	if err != nil {
		paymentCallbacks.WithLabelValues(callbackOutcome(err)).Inc()

		switch {
		case errors.Is(err, repository.ErrNoMatchingOrder):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, service.ErrInvalidPaymentStatus):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrDuplicateCallback):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("payment webhook error", zap.Error(err),
				zap.String("transactionID", req.TransactionID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	paymentCallbacks.WithLabelValues("applied").Inc()
	writeJSON(w, http.StatusOK, order)
}
