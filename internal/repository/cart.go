package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/HanaFlU/TechZone-sub001/internal/model"
)

// GetCartByUser возвращает активную корзину покупателя вместе с позициями.
// Если корзины нет, возвращается ErrCartEmpty.
func (r *PostgresRepository) GetCartByUser(ctx context.Context, userID int64) (*model.Cart, error) {
	var cart model.Cart
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id FROM carts WHERE user_id = $1`,
		userID,
	).Scan(&cart.ID, &cart.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartEmpty
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT product_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY product_id`,
		cart.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if len(cart.Items) == 0 {
		return nil, ErrCartEmpty
	}

	return &cart, nil
}

// UpsertCartItem добавляет позицию в корзину покупателя или заменяет её количество.
// Корзина создаётся при первой позиции.
func (r *PostgresRepository) UpsertCartItem(ctx context.Context, userID, productID, quantity int64) error {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND status = $2)`,
		productID, string(model.ProductStatusActive),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	if !exists {
		return ErrProductNotFound
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var cartID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO carts (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING id`,
		userID,
	).Scan(&cartID)
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3)
		 ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		cartID, productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// RemoveCartItem удаляет позицию из корзины покупателя.
func (r *PostgresRepository) RemoveCartItem(ctx context.Context, userID, productID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items
		 WHERE product_id = $2
		   AND cart_id = (SELECT id FROM carts WHERE user_id = $1)`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}
