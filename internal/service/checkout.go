package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/HanaFlU/TechZone-sub001/internal/model"
	"github.com/HanaFlU/TechZone-sub001/internal/notification"
	"github.com/HanaFlU/TechZone-sub001/internal/pricing"
	"github.com/HanaFlU/TechZone-sub001/internal/repository"
	"github.com/HanaFlU/TechZone-sub001/internal/validation"
)

// Ошибки оформления заказа и платёжных операций.
var (
	ErrInvalidPaymentMethod = errors.New("unknown payment method")
	ErrMissingTransactionID = errors.New("card payment requires transaction id")
	ErrInvalidPaymentStatus = errors.New("payment status must be SUCCESSED or FAILED")
	ErrInvalidTransition    = errors.New("order status transition is not allowed")
	ErrNumberSpaceExhausted = errors.New("could not generate unique order number")
)

// Фиксированный курс конвертации в минорные единицы валюты шлюза; живой курс
// не используется.
const (
	gatewayCurrency = "usd"
	vndPerUSD       = 24000
)

const orderNumberAttemptsPerLength = 3

const orderNumberCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CheckoutInput описывает запрос оформления заказа.
type CheckoutInput struct {
	AddressID     int64
	PaymentMethod model.PaymentMethod
	VoucherCode   string
	TransactionID string
}

// Checkout оформляет заказ из корзины покупателя. Номер заказа подбирается
// с ограниченным числом попыток: при коллизиях длина номера расширяется.
func (s *Service) Checkout(ctx context.Context, userID int64, in CheckoutInput) (*model.Order, error) {
	switch in.PaymentMethod {
	case model.PaymentMethodCOD, model.PaymentMethodEWallet:
		if in.TransactionID != "" {
			return nil, fmt.Errorf("%w: transaction id is only valid for card payments", ErrInvalidPaymentMethod)
		}
	case model.PaymentMethodCreditCard:
		if in.TransactionID == "" {
			return nil, ErrMissingTransactionID
		}
	default:
		return nil, ErrInvalidPaymentMethod
	}

	params := repository.CreateOrderParams{
		UserID:        userID,
		AddressID:     in.AddressID,
		PaymentMethod: in.PaymentMethod,
		TransactionID: in.TransactionID,
		VoucherCode:   validation.NormalizeVoucherCode(in.VoucherCode),
		Now:           nowUTC(),
	}

	order, err := s.createOrderWithUniqueNumber(ctx, params)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Enqueue(notification.Message{
			OrderNumber: order.Number,
			UserID:      order.UserID,
			TotalAmount: order.TotalAmount,
		})
	}

	return order, nil
}

func (s *Service) createOrderWithUniqueNumber(ctx context.Context, params repository.CreateOrderParams) (*model.Order, error) {
	lengths := []int{validation.OrderNumberLength, validation.ExtendedOrderNumberLength}

	for _, length := range lengths {
		for attempt := 0; attempt < orderNumberAttemptsPerLength; attempt++ {
			number, err := generateOrderNumber(length)
			if err != nil {
				return nil, err
			}

			params.Number = number
			order, err := s.repo.CreateOrder(ctx, params)
			if errors.Is(err, repository.ErrOrderNumberTaken) {
				continue
			}
			if err != nil {
				return nil, err
			}
			return order, nil
		}
	}

	return nil, ErrNumberSpaceExhausted
}

func generateOrderNumber(length int) (string, error) {
	// Байты >= limit отбрасываются, чтобы символы алфавита выпадали равномерно.
	const limit = byte(256 - 256%len(orderNumberCharset))

	buf := make([]byte, 0, length)
	raw := make([]byte, length)

	for len(buf) < length {
		if _, err := rand.Read(raw); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}

		for _, b := range raw {
			if b >= limit {
				continue
			}
			buf = append(buf, orderNumberCharset[int(b)%len(orderNumberCharset)])
			if len(buf) == length {
				break
			}
		}
	}

	return string(buf), nil
}

// IntentResult содержит данные платёжного намерения для клиентского подтверждения.
type IntentResult struct {
	ClientSecret string
	TotalAmount  int64
	Items        []model.OrderItem
}

// CreateIntentForCart рассчитывает итог по текущей корзине и создаёт платёжное
// намерение у шлюза. Заказ при этом не сохраняется: он будет оформлен после
// клиентского подтверждения платежа.
func (s *Service) CreateIntentForCart(ctx context.Context, userID, addressID int64, voucherCode string) (*IntentResult, error) {
	if s.gateway == nil {
		return nil, errors.New("payment system not configured")
	}

	if err := s.checkAddressOwnership(ctx, userID, addressID); err != nil {
		return nil, err
	}

	cart, err := s.repo.GetCartByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		items    []model.OrderItem
		subtotal int64
	)
	for _, ci := range cart.Items {
		p, err := s.repo.GetProduct(ctx, ci.ProductID)
		if err != nil {
			return nil, err
		}
		if p.Status != model.ProductStatusActive {
			return nil, fmt.Errorf("%w: %s", repository.ErrProductInactive, p.Name)
		}
		if p.Stock < ci.Quantity {
			return nil, &repository.StockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Available:   p.Stock,
				Requested:   ci.Quantity,
			}
		}

		items = append(items, model.OrderItem{
			ProductID:    p.ID,
			ProductName:  p.Name,
			Quantity:     ci.Quantity,
			PriceAtOrder: p.Price,
		})
		subtotal += ci.Quantity * p.Price
	}

	var (
		discount     int64
		freeShipping bool
	)
	if code := validation.NormalizeVoucherCode(voucherCode); code != "" {
		res, err := s.ApplyVoucher(ctx, userID, code, subtotal)
		if err != nil {
			return nil, err
		}
		discount = res.Discount
		freeShipping = res.FreeShipping
	}

	tiers, err := s.repo.GetShippingTiers(ctx)
	if err != nil {
		return nil, err
	}
	shippingFee := pricing.ShippingFee(tiers, subtotal)
	if freeShipping {
		shippingFee = 0
	}

	total := pricing.Total(subtotal, discount, shippingFee)

	intent, err := s.gateway.CreateIntent(ctx, toGatewayMinorUnits(total), gatewayCurrency)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	return &IntentResult{
		ClientSecret: intent.ClientSecret,
		TotalAmount:  total,
		Items:        items,
	}, nil
}

// checkAddressOwnership проверяет, что адрес доставки принадлежит покупателю.
func (s *Service) checkAddressOwnership(ctx context.Context, userID, addressID int64) error {
	addresses, err := s.repo.GetAddressesByUser(ctx, userID)
	if err != nil {
		return err
	}

	for _, a := range addresses {
		if a.ID == addressID {
			return nil
		}
	}

	return repository.ErrAddressNotFound
}

// toGatewayMinorUnits переводит сумму магазина в минорные единицы валюты шлюза
// по фиксированному курсу.
func toGatewayMinorUnits(amount int64) int64 {
	return amount * 100 / vndPerUSD
}

// ApplyVoucher проверяет ваучер для указанной суммы заказа и возвращает расчёт
// скидки. Состояние ваучера не изменяется; членство покупателя в множестве
// использовавших перечитывается из хранилища.
func (s *Service) ApplyVoucher(ctx context.Context, userID int64, code string, orderAmount int64) (*pricing.VoucherResult, error) {
	normalized := validation.NormalizeVoucherCode(code)
	if normalized == "" {
		return nil, pricing.ErrVoucherNotFound
	}

	voucher, err := s.repo.GetVoucherByCode(ctx, normalized)
	if err != nil {
		return nil, err
	}

	redeemed, err := s.repo.HasRedeemed(ctx, voucher.ID, userID)
	if err != nil {
		return nil, err
	}

	return pricing.EvaluateVoucher(voucher, orderAmount, redeemed, nowUTC())
}

// PaymentCallback применяет подтверждение платёжного шлюза к заказу.
func (s *Service) PaymentCallback(ctx context.Context, transactionID string, status model.PaymentStatus) (*model.Order, error) {
	if transactionID == "" {
		return nil, repository.ErrNoMatchingOrder
	}
	if status != model.PaymentStatusSuccessed && status != model.PaymentStatusFailed {
		return nil, ErrInvalidPaymentStatus
	}

	return s.repo.ApplyPaymentCallback(ctx, transactionID, status)
}

// Допустимые переходы статусов выполнения заказа.
var allowedTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:   {model.OrderStatusConfirmed, model.OrderStatusCancelled},
	model.OrderStatusConfirmed: {model.OrderStatusShipped, model.OrderStatusCancelled},
	model.OrderStatusShipped:   {model.OrderStatusDelivered, model.OrderStatusCancelled},
}

// AdvanceOrderStatus переводит заказ в следующий статус выполнения.
func (s *Service) AdvanceOrderStatus(ctx context.Context, number string, to model.OrderStatus) (*model.Order, error) {
	order, err := s.repo.GetOrderByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(order.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, to)
	}

	if err := s.repo.SetOrderStatus(ctx, number, order.Status, to); err != nil {
		return nil, err
	}

	order.Status = to
	return order, nil
}

func transitionAllowed(from, to model.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
