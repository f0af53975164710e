package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/HanaFlU/TechZone-sub001/internal/middleware"
	"github.com/HanaFlU/TechZone-sub001/internal/model"
	"github.com/HanaFlU/TechZone-sub001/internal/repository"
	"github.com/HanaFlU/TechZone-sub001/internal/service"
)

type applyVoucherRequest struct {
	Code        string `json:"code"`
	OrderAmount int64  `json:"orderAmount"`
}

type applyVoucherResponse struct {
	Voucher                    *model.Voucher `json:"voucher"`
	DiscountAmount             int64          `json:"discountAmount"`
	DiscountAppliedDescription string         `json:"discountAppliedDescription"`
	IsFreeShipping             bool           `json:"isFreeShipping"`
}

// ApplyVoucher проверяет промокод для текущей суммы заказа.
func (h *Handler) ApplyVoucher(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetCustomerIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req applyVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.OrderAmount < 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	result, err := h.service.ApplyVoucher(r.Context(), userID, req.Code, req.OrderAmount)
	if err != nil {
		if isVoucherError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("apply voucher error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, applyVoucherResponse{
		Voucher:                    result.Voucher,
		DiscountAmount:             result.Discount,
		DiscountAppliedDescription: result.Description,
		IsFreeShipping:             result.FreeShipping,
	})
}

// CreateVoucher регистрирует новый промокод.
func (h *Handler) CreateVoucher(w http.ResponseWriter, r *http.Request) {
	var voucher model.Voucher
	if err := json.NewDecoder(r.Body).Decode(&voucher); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.CreateVoucher(r.Context(), &voucher)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrVoucherExists):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrInvalidVoucherData):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("create voucher error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	voucher.ID = id
	writeJSON(w, http.StatusCreated, voucher)
}
