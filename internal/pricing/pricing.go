// Package pricing реализует расчёт скидок, стоимости доставки и итоговой суммы заказа.
package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/HanaFlU/TechZone-sub001/internal/model"
)

// DefaultShippingFee применяется, если сумма заказа не попала ни в один тариф.
const DefaultShippingFee int64 = 30000

// Ошибки проверки ваучера. Порядок проверок фиксирован: первая неудачная побеждает.
var (
	ErrVoucherNotFound     = errors.New("voucher not found")
	ErrVoucherInactive     = errors.New("voucher is not active")
	ErrVoucherNotStarted   = errors.New("voucher is not started yet")
	ErrVoucherExpired      = errors.New("voucher is expired")
	ErrVoucherExhausted    = errors.New("voucher usage limit reached")
	ErrVoucherAlreadyUsed  = errors.New("voucher already used by this customer")
	ErrVoucherBelowMinimum = errors.New("order amount is below voucher minimum")
)

// VoucherResult содержит результат успешной проверки ваучера.
type VoucherResult struct {
	Voucher      *model.Voucher
	Discount     int64
	Description  string
	FreeShipping bool
}

// EvaluateVoucher проверяет применимость ваучера к сумме заказа и вычисляет скидку.
// Функция чистая: членство покупателя в множестве использовавших передаётся снаружи
// и должно быть перечитано из хранилища на каждую проверку.
func EvaluateVoucher(v *model.Voucher, orderAmount int64, alreadyRedeemed bool, now time.Time) (*VoucherResult, error) {
	if v == nil {
		return nil, ErrVoucherNotFound
	}
	if !v.IsActive {
		return nil, ErrVoucherInactive
	}
	if now.Before(v.StartsAt) {
		return nil, ErrVoucherNotStarted
	}
	if now.After(v.EndsAt) {
		return nil, ErrVoucherExpired
	}
	if v.UsedCount >= v.UsageLimit {
		return nil, ErrVoucherExhausted
	}
	if alreadyRedeemed {
		return nil, ErrVoucherAlreadyUsed
	}
	if orderAmount < v.MinOrderAmount {
		return nil, ErrVoucherBelowMinimum
	}

	res := &VoucherResult{Voucher: v}

	switch v.DiscountType {
	case model.DiscountTypePercent:
		discount := orderAmount * v.DiscountValue / 100
		if v.MaxDiscount != nil && discount > *v.MaxDiscount {
			discount = *v.MaxDiscount
		}
		res.Discount = discount
		res.Description = fmt.Sprintf("%d%% off", v.DiscountValue)
	case model.DiscountTypeFixedAmount:
		// Скидка не ограничивается суммой товаров: отрицательный итог
		// отсекается при расчёте Total.
		res.Discount = v.DiscountValue
		res.Description = fmt.Sprintf("%d off", v.DiscountValue)
	case model.DiscountTypeFreeShipping:
		res.FreeShipping = true
		res.Description = "free shipping"
	default:
		return nil, fmt.Errorf("unknown discount type: %s", v.DiscountType)
	}

	return res, nil
}

// ShippingFee подбирает тариф доставки по сумме товаров: подходит тариф, у которого
// minOrderValue <= subtotal и subtotal < maxOrderValue (или верхняя граница не задана).
func ShippingFee(tiers []model.ShippingTier, subtotal int64) int64 {
	for _, t := range tiers {
		if subtotal < t.MinOrderValue {
			continue
		}
		if t.MaxOrderValue != nil && subtotal >= *t.MaxOrderValue {
			continue
		}
		return t.Fee
	}
	return DefaultShippingFee
}

// Total вычисляет итоговую сумму заказа. Отрицательный итог усечётся до нуля.
func Total(subtotal, discount, shippingFee int64) int64 {
	total := subtotal - discount + shippingFee
	if total < 0 {
		total = 0
	}
	return total
}
