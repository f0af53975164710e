// Package handler содержит HTTP-обработчики API сервиса TechZone.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/HanaFlU/TechZone-sub001/internal/middleware"
	"github.com/HanaFlU/TechZone-sub001/internal/model"
	"github.com/HanaFlU/TechZone-sub001/internal/pricing"
	"github.com/HanaFlU/TechZone-sub001/internal/repository"
	"github.com/HanaFlU/TechZone-sub001/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (int64, error)
	CreateAddress(ctx context.Context, a *model.Address) (int64, error)
	GetAddressesByUser(ctx context.Context, userID int64) ([]model.Address, error)
	CreateProduct(ctx context.Context, p *model.Product) (int64, error)
	UpdateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListActiveProducts(ctx context.Context) ([]model.Product, error)
	GetCartByUser(ctx context.Context, userID int64) (*model.Cart, error)
	UpsertCartItem(ctx context.Context, userID, productID, quantity int64) error
	RemoveCartItem(ctx context.Context, userID, productID int64) error
	CreateVoucher(ctx context.Context, v *model.Voucher) (int64, error)
	ApplyVoucher(ctx context.Context, userID int64, code string, orderAmount int64) (*pricing.VoucherResult, error)
	Checkout(ctx context.Context, userID int64, in service.CheckoutInput) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	AdvanceOrderStatus(ctx context.Context, number string, to model.OrderStatus) (*model.Order, error)
	CreateIntentForCart(ctx context.Context, userID, addressID int64, voucherCode string) (*service.IntentResult, error)
	PaymentCallback(ctx context.Context, transactionID string, status model.PaymentStatus) (*model.Order, error)
}

// Handler реализует HTTP-обработчики API сервиса TechZone.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// isVoucherError сообщает, относится ли ошибка к проверке ваучера.
func isVoucherError(err error) bool {
	for _, target := range []error{
		pricing.ErrVoucherNotFound,
		pricing.ErrVoucherInactive,
		pricing.ErrVoucherNotStarted,
		pricing.ErrVoucherExpired,
		pricing.ErrVoucherExhausted,
		pricing.ErrVoucherAlreadyUsed,
		pricing.ErrVoucherBelowMinimum,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового покупателя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию покупателя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}
