package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/HanaFlU/TechZone-sub001/internal/middleware"
	"github.com/HanaFlU/TechZone-sub001/internal/model"
	"github.com/HanaFlU/TechZone-sub001/internal/pricing"
	"github.com/HanaFlU/TechZone-sub001/internal/repository"
	"github.com/HanaFlU/TechZone-sub001/internal/service"
)

type stubService struct {
	registerUserID int64
	registerErr    error

	authUserID int64
	authErr    error

	addressID    int64
	addressErr   error
	addressesRes []model.Address
	addressesErr error

	productID    int64
	productErr   error
	productRes   *model.Product
	productsRes  []model.Product
	updateErr    error
	listErr      error

	cartRes       *model.Cart
	cartErr       error
	upsertErr     error
	removeItemErr error

	voucherID  int64
	voucherErr error
	applyRes   *pricing.VoucherResult
	applyErr   error

	checkoutRes *model.Order
	checkoutErr error

	ordersRes []model.Order
	ordersErr error

	advanceRes *model.Order
	advanceErr error

	intentRes *service.IntentResult
	intentErr error

	callbackRes *model.Order
	callbackErr error
}

func (s *stubService) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	return s.registerUserID, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	return s.authUserID, s.authErr
}

func (s *stubService) CreateAddress(ctx context.Context, a *model.Address) (int64, error) {
	return s.addressID, s.addressErr
}

func (s *stubService) GetAddressesByUser(ctx context.Context, userID int64) ([]model.Address, error) {
	return s.addressesRes, s.addressesErr
}

func (s *stubService) CreateProduct(ctx context.Context, p *model.Product) (int64, error) {
	return s.productID, s.productErr
}

func (s *stubService) UpdateProduct(ctx context.Context, p *model.Product) error {
	return s.updateErr
}

func (s *stubService) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.productRes, s.productErr
}

func (s *stubService) ListActiveProducts(ctx context.Context) ([]model.Product, error) {
	return s.productsRes, s.listErr
}

func (s *stubService) GetCartByUser(ctx context.Context, userID int64) (*model.Cart, error) {
	return s.cartRes, s.cartErr
}

func (s *stubService) UpsertCartItem(ctx context.Context, userID, productID, quantity int64) error {
	return s.upsertErr
}

func (s *stubService) RemoveCartItem(ctx context.Context, userID, productID int64) error {
	return s.removeItemErr
}

func (s *stubService) CreateVoucher(ctx context.Context, v *model.Voucher) (int64, error) {
	return s.voucherID, s.voucherErr
}

func (s *stubService) ApplyVoucher(ctx context.Context, userID int64, code string, orderAmount int64) (*pricing.VoucherResult, error) {
	return s.applyRes, s.applyErr
}

func (s *stubService) Checkout(ctx context.Context, userID int64, in service.CheckoutInput) (*model.Order, error) {
	return s.checkoutRes, s.checkoutErr
}

func (s *stubService) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.ordersRes, s.ordersErr
}

func (s *stubService) AdvanceOrderStatus(ctx context.Context, number string, to model.OrderStatus) (*model.Order, error) {
	return s.advanceRes, s.advanceErr
}

func (s *stubService) CreateIntentForCart(ctx context.Context, userID, addressID int64, voucherCode string) (*service.IntentResult, error) {
	return s.intentRes, s.intentErr
}

func (s *stubService) PaymentCallback(ctx context.Context, transactionID string, status model.PaymentStatus) (*model.Order, error) {
	return s.callbackRes, s.callbackErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")

	return NewHandler(svc, logger, auth)
}

func doAuthed(t *testing.T, h *Handler, handlerFunc http.HandlerFunc, req *http.Request) *http.Response {
	t.Helper()

	rec := httptest.NewRecorder()
	h.authMiddleware.SetAuthCookie(rec, 1)
	req.AddCookie(rec.Result().Cookies()[0])

	respRec := httptest.NewRecorder()
	h.authMiddleware.Middleware(handlerFunc).ServeHTTP(respRec, req)

	return respRec.Result()
}

func TestRegister_Conflict(t *testing.T) {
	svc := &stubService{
		registerErr: repository.ErrUserExists,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "user",
		Password: "pass",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestLogin_UnauthorizedOnBadPassword(t *testing.T) {
	svc := &stubService{
		authErr: service.ErrInvalidCredentials,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "user",
		Password: "wrong",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestCreateOrder_Created(t *testing.T) {
	svc := &stubService{
		checkoutRes: &model.Order{
			Number:      "A1B2C3D4",
			Status:      model.OrderStatusPending,
			TotalAmount: 220000,
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(createOrderRequest{
		AddressID:     1,
		PaymentMethod: string(model.PaymentMethodCOD),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	res := doAuthed(t, h, h.CreateOrder, req)

	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var order model.Order
	if err := json.NewDecoder(res.Body).Decode(&order); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if order.Number != "A1B2C3D4" {
		t.Fatalf("order number = %q, want A1B2C3D4", order.Number)
	}
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	svc := &stubService{
		checkoutErr: repository.ErrCartEmpty,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(createOrderRequest{
		AddressID:     1,
		PaymentMethod: string(model.PaymentMethodCOD),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	res := doAuthed(t, h, h.CreateOrder, req)

	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	svc := &stubService{
		checkoutErr: &repository.StockError{
			ProductID:   7,
			ProductName: "Gaming Mouse",
			Available:   1,
			Requested:   3,
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(createOrderRequest{
		AddressID:     1,
		PaymentMethod: string(model.PaymentMethodCOD),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	res := doAuthed(t, h, h.CreateOrder, req)

	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}

	var resp stockErrorResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Product != "Gaming Mouse" {
		t.Fatalf("product = %q, want Gaming Mouse", resp.Product)
	}
	if resp.Available != 1 || resp.Requested != 3 {
		t.Fatalf("available/requested = %d/%d, want 1/3", resp.Available, resp.Requested)
	}
}

func TestCreateOrder_VoucherRejected(t *testing.T) {
	svc := &stubService{
		checkoutErr: pricing.ErrVoucherExpired,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(createOrderRequest{
		AddressID:     1,
		PaymentMethod: string(model.PaymentMethodCOD),
		VoucherCode:   "OLD",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	res := doAuthed(t, h, h.CreateOrder, req)

	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestGetOrders_NoContent(t *testing.T) {
	svc := &stubService{
		ordersRes: []model.Order{},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	res := doAuthed(t, h, h.GetOrders, req)

	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNoContent)
	}
}

func TestApplyVoucher_OK(t *testing.T) {
	maxDiscount := int64(50000)
	svc := &stubService{
		applyRes: &pricing.VoucherResult{
			Voucher: &model.Voucher{
				Code:          "SALE10",
				DiscountType:  model.DiscountTypePercent,
				DiscountValue: 10,
				MaxDiscount:   &maxDiscount,
			},
			Discount:    50000,
			Description: "Giảm 10%",
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(applyVoucherRequest{
		Code:        "SALE10",
		OrderAmount: 600000,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/vouchers/apply", bytes.NewReader(body))
	res := doAuthed(t, h, h.ApplyVoucher, req)

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp applyVoucherResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.DiscountAmount != 50000 {
		t.Fatalf("discount = %d, want 50000", resp.DiscountAmount)
	}
	if resp.Voucher == nil || resp.Voucher.Code != "SALE10" {
		t.Fatalf("voucher = %+v, want code SALE10", resp.Voucher)
	}
}

func TestApplyVoucher_Rejected(t *testing.T) {
	svc := &stubService{
		applyErr: pricing.ErrVoucherAlreadyUsed,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(applyVoucherRequest{
		Code:        "SALE10",
		OrderAmount: 600000,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/vouchers/apply", bytes.NewReader(body))
	res := doAuthed(t, h, h.ApplyVoucher, req)

	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}

	var resp errorResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" {
		t.Fatalf("expected rejection reason in response body")
	}
}

func TestCreateIntent_JSONResponse(t *testing.T) {
	svc := &stubService{
		intentRes: &service.IntentResult{
			ClientSecret: "pi_123_secret_abc",
			TotalAmount:  220000,
			Items: []model.OrderItem{
				{ProductID: 1, ProductName: "Keyboard", Quantity: 2, PriceAtOrder: 100000},
			},
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(createIntentRequest{AddressID: 1})

	req := httptest.NewRequest(http.MethodPost, "/api/payments/stripe/create-intent", bytes.NewReader(body))
	res := doAuthed(t, h, h.CreateIntent, req)

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp createIntentResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ClientSecret != "pi_123_secret_abc" {
		t.Fatalf("client secret = %q", resp.ClientSecret)
	}
	if resp.TotalAmount != 220000 {
		t.Fatalf("total = %d, want 220000", resp.TotalAmount)
	}
}

func TestPaymentWebhook_AppliesStatus(t *testing.T) {
	svc := &stubService{
		callbackRes: &model.Order{
			Number:        "A1B2C3D4",
			Status:        model.OrderStatusCancelled,
			PaymentStatus: model.PaymentStatusFailed,
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(paymentWebhookRequest{
		TransactionID: "txn_1",
		Status:        string(model.PaymentStatusFailed),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/payments/stripe/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.PaymentWebhook(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var order model.Order
	if err := json.NewDecoder(res.Body).Decode(&order); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if order.Status != model.OrderStatusCancelled {
		t.Fatalf("order status = %s, want CANCELLED", order.Status)
	}
}

func TestPaymentWebhook_Duplicate(t *testing.T) {
	svc := &stubService{
		callbackErr: repository.ErrDuplicateCallback,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(paymentWebhookRequest{
		TransactionID: "txn_1",
		Status:        string(model.PaymentStatusSuccessed),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/payments/stripe/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.PaymentWebhook(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestPaymentWebhook_NoMatchingOrder(t *testing.T) {
	svc := &stubService{
		callbackErr: repository.ErrNoMatchingOrder,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(paymentWebhookRequest{
		TransactionID: "txn_missing",
		Status:        string(model.PaymentStatusSuccessed),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/payments/stripe/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.PaymentWebhook(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestUpdateOrderStatus_Conflict(t *testing.T) {
	svc := &stubService{
		advanceErr: service.ErrInvalidTransition,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(orderStatusRequest{
		Status: string(model.OrderStatusDelivered),
	})

	req := httptest.NewRequest(http.MethodPatch, "/api/orders/A1B2C3D4/status", bytes.NewReader(body))

	rec := httptest.NewRecorder()
	h.authMiddleware.SetAuthCookie(rec, 1)
	req.AddCookie(rec.Result().Cookies()[0])

	respRec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(respRec, req)

	res := respRec.Result()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestUpdateOrderStatus_MalformedNumber(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	body, _ := json.Marshal(orderStatusRequest{
		Status: string(model.OrderStatusConfirmed),
	})

	req := httptest.NewRequest(http.MethodPatch, "/api/orders/lower-case!/status", bytes.NewReader(body))

	rec := httptest.NewRecorder()
	h.authMiddleware.SetAuthCookie(rec, 1)
	req.AddCookie(rec.Result().Cookies()[0])

	respRec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(respRec, req)

	res := respRec.Result()
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestGetCart_EmptyCartIsOK(t *testing.T) {
	svc := &stubService{
		cartErr: repository.ErrCartEmpty,
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	res := doAuthed(t, h, h.GetCart, req)

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}

func TestRouter_UnauthorizedWithoutCookie(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}
