package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/HanaFlU/TechZone-sub001/internal/model"
	"github.com/HanaFlU/TechZone-sub001/internal/pricing"
)

// CreateVoucher создаёт ваучер; код должен быть заранее нормализован.
func (r *PostgresRepository) CreateVoucher(ctx context.Context, v *model.Voucher) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO vouchers
		   (code, discount_type, discount_value, max_discount, min_order_amount,
		    starts_at, ends_at, usage_limit, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		v.Code, string(v.DiscountType), v.DiscountValue, v.MaxDiscount, v.MinOrderAmount,
		v.StartsAt, v.EndsAt, v.UsageLimit, v.IsActive,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, "") {
			return 0, fmt.Errorf("%w: %s", ErrVoucherExists, v.Code)
		}
		return 0, fmt.Errorf("create voucher: %w", err)
	}
	return id, nil
}

// GetVoucherByCode возвращает ваучер по нормализованному коду.
func (r *PostgresRepository) GetVoucherByCode(ctx context.Context, code string) (*model.Voucher, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, code, discount_type, discount_value, max_discount, min_order_amount,
		        starts_at, ends_at, usage_limit, used_count, is_active
		 FROM vouchers
		 WHERE code = $1`,
		code,
	)

	v, err := scanVoucher(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pricing.ErrVoucherNotFound
		}
		return nil, fmt.Errorf("get voucher: %w", err)
	}

	return v, nil
}

// HasRedeemed сообщает, использовал ли покупатель ваучер ранее. Членство
// перечитывается из БД на каждую проверку, кэширование недопустимо.
func (r *PostgresRepository) HasRedeemed(ctx context.Context, voucherID, userID int64) (bool, error) {
	var redeemed bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM voucher_redemptions WHERE voucher_id = $1 AND user_id = $2
		 )`,
		voucherID, userID,
	).Scan(&redeemed)
	if err != nil {
		return false, fmt.Errorf("check redemption: %w", err)
	}
	return redeemed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoucher(row rowScanner) (*model.Voucher, error) {
	var v model.Voucher
	var discountType string
	err := row.Scan(&v.ID, &v.Code, &discountType, &v.DiscountValue, &v.MaxDiscount,
		&v.MinOrderAmount, &v.StartsAt, &v.EndsAt, &v.UsageLimit, &v.UsedCount, &v.IsActive)
	if err != nil {
		return nil, err
	}
	v.DiscountType = model.DiscountType(discountType)
	return &v, nil
}
