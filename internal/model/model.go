// Package model содержит доменные сущности магазина TechZone.
package model

import "time"

// User представляет зарегистрированного покупателя магазина.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Address описывает адрес доставки покупателя.
type Address struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Recipient string    `json:"recipient"`
	Phone     string    `json:"phone"`
	Line1     string    `json:"line1"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"-"`
}

// ProductStatus описывает статус товара в каталоге.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusInactive ProductStatus = "INACTIVE"
)

// Product описывает товар каталога. Цена хранится в целых единицах валюты магазина.
type Product struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Price     int64         `json:"price"`
	Stock     int64         `json:"stock"`
	Category  string        `json:"category"`
	Status    ProductStatus `json:"status"`
	CreatedAt time.Time     `json:"-"`
}

// CartItem описывает позицию корзины.
type CartItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int64 `json:"quantity"`
}

// Cart описывает активную корзину покупателя; у покупателя не более одной корзины.
type Cart struct {
	ID     int64      `json:"id"`
	UserID int64      `json:"-"`
	Items  []CartItem `json:"items"`
}

// OrderStatus описывает статус выполнения заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// PaymentMethod описывает способ оплаты заказа.
type PaymentMethod string

const (
	PaymentMethodCOD        PaymentMethod = "COD"
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodEWallet    PaymentMethod = "E_WALLET"
)

// PaymentStatus описывает статус оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSuccessed PaymentStatus = "SUCCESSED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// OrderItem описывает строку заказа с зафиксированной на момент оформления ценой.
type OrderItem struct {
	ProductID    int64  `json:"productId"`
	ProductName  string `json:"productName"`
	Quantity     int64  `json:"quantity"`
	PriceAtOrder int64  `json:"priceAtOrder"`
}

// Order описывает оформленный заказ. Заказы никогда не удаляются.
type Order struct {
	Number        string        `json:"number"`
	UserID        int64         `json:"-"`
	AddressID     int64         `json:"addressId"`
	Items         []OrderItem   `json:"items"`
	Status        OrderStatus   `json:"status"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Subtotal      int64         `json:"subtotal"`
	Discount      int64         `json:"discount"`
	ShippingFee   int64         `json:"shippingFee"`
	TotalAmount   int64         `json:"totalAmount"`
	VoucherCode   string        `json:"voucherCode,omitempty"`
	TransactionID string        `json:"transactionId,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// DiscountType описывает тип скидки ваучера.
type DiscountType string

const (
	DiscountTypePercent      DiscountType = "PERCENT"
	DiscountTypeFixedAmount  DiscountType = "FIXED_AMOUNT"
	DiscountTypeFreeShipping DiscountType = "FREE_SHIPPING"
)

// Voucher описывает купон на скидку. Код хранится нормализованным в верхнем регистре.
type Voucher struct {
	ID             int64        `json:"id"`
	Code           string       `json:"code"`
	DiscountType   DiscountType `json:"discountType"`
	DiscountValue  int64        `json:"discountValue"`
	MaxDiscount    *int64       `json:"maxDiscount,omitempty"`
	MinOrderAmount int64        `json:"minOrderAmount"`
	StartsAt       time.Time    `json:"startsAt"`
	EndsAt         time.Time    `json:"endsAt"`
	UsageLimit     int64        `json:"usageLimit"`
	UsedCount      int64        `json:"usedCount"`
	IsActive       bool         `json:"isActive"`
}

// ShippingTier описывает диапазон сумм заказа и стоимость доставки для него.
type ShippingTier struct {
	ID            int64
	MinOrderValue int64
	MaxOrderValue *int64
	Fee           int64
}
