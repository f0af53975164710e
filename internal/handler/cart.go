package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/HanaFlU/TechZone-sub001/internal/middleware"
	"github.com/HanaFlU/TechZone-sub001/internal/model"
	"github.com/HanaFlU/TechZone-sub001/internal/repository"
)

// GetCart возвращает корзину текущего покупателя.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetCustomerIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	cart, err := h.service.GetCartByUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartEmpty) {
			writeJSON(w, http.StatusOK, model.Cart{Items: []model.CartItem{}})
			return
		}
		h.logger.Error("get cart error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

type cartItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int64 `json:"quantity"`
}

// UpsertCartItem добавляет позицию в корзину текущего покупателя.
func (h *Handler) UpsertCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetCustomerIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.ProductID <= 0 || req.Quantity < 1 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := h.service.UpsertCartItem(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("upsert cart item error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// RemoveCartItem удаляет позицию из корзины текущего покупателя.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetCustomerIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.RemoveCartItem(r.Context(), userID, productID); err != nil {
		h.logger.Error("remove cart item error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type addressRequest struct {
	Recipient string `json:"recipient"`
	Phone     string `json:"phone"`
	Line1     string `json:"line1"`
	City      string `json:"city"`
}

// CreateAddress сохраняет адрес доставки текущего покупателя.
func (h *Handler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetCustomerIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req addressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Recipient == "" || req.Line1 == "" || req.City == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	address := &model.Address{
		UserID:    userID,
		Recipient: req.Recipient,
		Phone:     req.Phone,
		Line1:     req.Line1,
		City:      req.City,
	}

	id, err := h.service.CreateAddress(r.Context(), address)
	if err != nil {
		h.logger.Error("create address error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	address.ID = id

	writeJSON(w, http.StatusCreated, address)
}

// GetAddresses возвращает адреса текущего покупателя.
func (h *Handler) GetAddresses(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetCustomerIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	addresses, err := h.service.GetAddressesByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("get addresses error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if addresses == nil {
		addresses = []model.Address{}
	}
	writeJSON(w, http.StatusOK, addresses)
}
