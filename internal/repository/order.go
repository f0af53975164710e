package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/HanaFlU/TechZone-sub001/internal/model"
	"github.com/HanaFlU/TechZone-sub001/internal/pricing"
)

// CreateOrderParams описывает входные данные оформления заказа.
type CreateOrderParams struct {
	Number        string
	UserID        int64
	AddressID     int64
	PaymentMethod model.PaymentMethod
	TransactionID string
	VoucherCode   string
	Now           time.Time
}

// CreateOrder оформляет заказ из корзины покупателя в одной транзакции:
// блокировка корзины и товаров, проверка остатков, фиксация цен, повторная
// проверка ваучера, запись заказа, условное списание остатков, удаление корзины
// и отметка об использовании ваучера. Любая неудачная проверка откатывает всё.
func (r *PostgresRepository) CreateOrder(ctx context.Context, p CreateOrderParams) (*model.Order, error) {
	var order *model.Order
	err := r.withRetry(ctx, func() error {
		var err error
		order, err = r.createOrderTx(ctx, p)
		return err
	})
	return order, err
}

func (r *PostgresRepository) createOrderTx(ctx context.Context, p CreateOrderParams) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var addressOK bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM addresses WHERE id = $1 AND user_id = $2)`,
		p.AddressID, p.UserID,
	).Scan(&addressOK)
	if err != nil {
		return nil, fmt.Errorf("check address: %w", err)
	}
	if !addressOK {
		return nil, ErrAddressNotFound
	}

	// Блокируем корзину, чтобы два параллельных оформления одной корзины
	// сериализовались.
	var cartID int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM carts WHERE user_id = $1 FOR UPDATE`,
		p.UserID,
	).Scan(&cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartEmpty
		}
		return nil, fmt.Errorf("lock cart: %w", err)
	}

	items, subtotal, err := lockAndPriceItems(ctx, tx, cartID)
	if err != nil {
		return nil, err
	}

	var (
		discount     int64
		freeShipping bool
		voucher      *model.Voucher
	)
	if p.VoucherCode != "" {
		voucher, discount, freeShipping, err = revalidateVoucher(ctx, tx, p, subtotal)
		if err != nil {
			return nil, err
		}
	}

	tiers, err := shippingTiersTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	shippingFee := pricing.ShippingFee(tiers, subtotal)
	if freeShipping {
		shippingFee = 0
	}
	total := pricing.Total(subtotal, discount, shippingFee)

	order := &model.Order{
		Number:        p.Number,
		UserID:        p.UserID,
		AddressID:     p.AddressID,
		Items:         items,
		Status:        model.OrderStatusPending,
		PaymentMethod: p.PaymentMethod,
		PaymentStatus: model.PaymentStatusPending,
		Subtotal:      subtotal,
		Discount:      discount,
		ShippingFee:   shippingFee,
		TotalAmount:   total,
		VoucherCode:   p.VoucherCode,
		TransactionID: p.TransactionID,
	}

	var orderID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO orders
		   (number, user_id, address_id, status, payment_method, payment_status,
		    subtotal, discount, shipping_fee, total_amount, voucher_code, transaction_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at`,
		order.Number, order.UserID, order.AddressID, string(order.Status),
		string(order.PaymentMethod), string(order.PaymentStatus),
		order.Subtotal, order.Discount, order.ShippingFee, order.TotalAmount,
		textOrNil(order.VoucherCode), textOrNil(order.TransactionID),
	).Scan(&orderID, &order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "orders_number_key") {
			return nil, ErrOrderNumberTaken
		}
		if isUniqueViolation(err, "orders_transaction_id_key") {
			return nil, ErrTransactionIDTaken
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, quantity, price_at_order)
			 VALUES ($1, $2, $3, $4, $5)`,
			orderID, item.ProductID, item.ProductName, item.Quantity, item.PriceAtOrder,
		)
		if err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	// Условное списание остатков: даже под блокировкой сохраняем форму
	// decrement-if-sufficient, ограничение stock >= 0 страхует на уровне БД.
	for _, item := range order.Items {
		cmdTag, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
			item.ProductID, item.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return nil, &StockError{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Requested:   item.Quantity,
			}
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		return nil, fmt.Errorf("delete cart: %w", err)
	}

	if voucher != nil {
		if err := markVoucherUsed(ctx, tx, voucher.ID, p.UserID, order.Number); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return order, nil
}

// lockAndPriceItems блокирует строки товаров корзины, проверяет остатки и
// фиксирует цены. Первая позиция с нехваткой остатка прерывает оформление.
func lockAndPriceItems(ctx context.Context, tx pgx.Tx, cartID int64) ([]model.OrderItem, int64, error) {
	rows, err := tx.Query(ctx,
		`SELECT ci.product_id, ci.quantity, p.name, p.price, p.stock, p.status
		 FROM cart_items ci
		 JOIN products p ON p.id = ci.product_id
		 WHERE ci.cart_id = $1
		 ORDER BY ci.product_id
		 FOR UPDATE OF p`,
		cartID,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("lock cart products: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	var subtotal int64

	for rows.Next() {
		var (
			item   model.OrderItem
			stock  int64
			status string
		)
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.ProductName, &item.PriceAtOrder, &stock, &status); err != nil {
			return nil, 0, fmt.Errorf("scan cart product: %w", err)
		}

		if model.ProductStatus(status) != model.ProductStatusActive {
			return nil, 0, fmt.Errorf("%w: %s", ErrProductInactive, item.ProductName)
		}
		if stock < item.Quantity {
			return nil, 0, &StockError{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Available:   stock,
				Requested:   item.Quantity,
			}
		}

		subtotal += item.Quantity * item.PriceAtOrder
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	if len(items) == 0 {
		return nil, 0, ErrCartEmpty
	}

	return items, subtotal, nil
}

// revalidateVoucher повторно проверяет ваучер под блокировкой строки в момент
// записи заказа, закрывая гонку между предварительной проверкой и оформлением.
func revalidateVoucher(ctx context.Context, tx pgx.Tx, p CreateOrderParams, subtotal int64) (*model.Voucher, int64, bool, error) {
	row := tx.QueryRow(ctx,
		`SELECT id, code, discount_type, discount_value, max_discount, min_order_amount,
		        starts_at, ends_at, usage_limit, used_count, is_active
		 FROM vouchers
		 WHERE code = $1
		 FOR UPDATE`,
		p.VoucherCode,
	)

	voucher, err := scanVoucher(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, false, pricing.ErrVoucherNotFound
		}
		return nil, 0, false, fmt.Errorf("lock voucher: %w", err)
	}

	var redeemed bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM voucher_redemptions WHERE voucher_id = $1 AND user_id = $2
		 )`,
		voucher.ID, p.UserID,
	).Scan(&redeemed)
	if err != nil {
		return nil, 0, false, fmt.Errorf("check redemption: %w", err)
	}

	res, err := pricing.EvaluateVoucher(voucher, subtotal, redeemed, p.Now)
	if err != nil {
		return nil, 0, false, err
	}

	return voucher, res.Discount, res.FreeShipping, nil
}

// markVoucherUsed увеличивает счётчик использований и добавляет покупателя в
// множество использовавших. Ограничения БД не дают превысить лимит и
// повторно добавить того же покупателя.
func markVoucherUsed(ctx context.Context, tx pgx.Tx, voucherID, userID int64, orderNumber string) error {
	cmdTag, err := tx.Exec(ctx,
		`UPDATE vouchers SET used_count = used_count + 1
		 WHERE id = $1 AND used_count < usage_limit`,
		voucherID,
	)
	if err != nil {
		return fmt.Errorf("increment voucher usage: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return pricing.ErrVoucherExhausted
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO voucher_redemptions (voucher_id, user_id, order_number)
		 VALUES ($1, $2, $3)`,
		voucherID, userID, orderNumber,
	)
	if err != nil {
		if isUniqueViolation(err, "voucher_redemptions_pkey") {
			return pricing.ErrVoucherAlreadyUsed
		}
		return fmt.Errorf("insert redemption: %w", err)
	}

	return nil
}

func shippingTiersTx(ctx context.Context, tx pgx.Tx) ([]model.ShippingTier, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, min_order_value, max_order_value, fee FROM shipping_tiers ORDER BY min_order_value`,
	)
	if err != nil {
		return nil, fmt.Errorf("select shipping tiers: %w", err)
	}
	defer rows.Close()

	return collectTiers(rows)
}

// GetShippingTiers возвращает тарифы доставки.
func (r *PostgresRepository) GetShippingTiers(ctx context.Context) ([]model.ShippingTier, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, min_order_value, max_order_value, fee FROM shipping_tiers ORDER BY min_order_value`,
	)
	if err != nil {
		return nil, fmt.Errorf("select shipping tiers: %w", err)
	}
	defer rows.Close()

	return collectTiers(rows)
}

func collectTiers(rows pgx.Rows) ([]model.ShippingTier, error) {
	var res []model.ShippingTier
	for rows.Next() {
		var t model.ShippingTier
		if err := rows.Scan(&t.ID, &t.MinOrderValue, &t.MaxOrderValue, &t.Fee); err != nil {
			return nil, fmt.Errorf("scan shipping tier: %w", err)
		}
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetOrderByNumber возвращает заказ с позициями по номеру.
func (r *PostgresRepository) GetOrderByNumber(ctx context.Context, number string) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, number, user_id, address_id, status, payment_method, payment_status,
		        subtotal, discount, shipping_fee, total_amount,
		        COALESCE(voucher_code, ''), COALESCE(transaction_id, ''), created_at
		 FROM orders
		 WHERE number = $1`,
		number,
	)

	var id int64
	order, err := scanOrder(row, &id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := r.orderItems(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	order.Items = items[id]

	return order, nil
}

// GetOrdersByUser возвращает заказы покупателя с позициями, новые первыми.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, number, user_id, address_id, status, payment_method, payment_status,
		        subtotal, discount, shipping_fee, total_amount,
		        COALESCE(voucher_code, ''), COALESCE(transaction_id, ''), created_at
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	var ids []int64
	for rows.Next() {
		var id int64
		order, err := scanOrder(rows, &id)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	items, err := r.orderItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		orders[i].Items = items[id]
	}

	return orders, nil
}

func (r *PostgresRepository) orderItems(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT order_id, product_id, product_name, quantity, price_at_order
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY order_id, product_id`,
		orderIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	res := make(map[int64][]model.OrderItem)
	for rows.Next() {
		var orderID int64
		var item model.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.PriceAtOrder); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		res[orderID] = append(res[orderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ApplyPaymentCallback применяет подтверждение платёжного шлюза к заказу по
// внешнему идентификатору платежа. Повтор с тем же статусом отклоняется как
// дубликат; статус заказа меняется под блокировкой строки.
func (r *PostgresRepository) ApplyPaymentCallback(ctx context.Context, transactionID string, incoming model.PaymentStatus) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var number string
	var stored string
	err = tx.QueryRow(ctx,
		`SELECT number, payment_status FROM orders WHERE transaction_id = $1 FOR UPDATE`,
		transactionID,
	).Scan(&number, &stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoMatchingOrder
		}
		return nil, fmt.Errorf("lock order by transaction: %w", err)
	}

	next, err := paymentTransition(model.PaymentStatus(stored), incoming)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE orders SET payment_status = $2, status = $3 WHERE number = $1`,
		number, string(incoming), string(next),
	)
	if err != nil {
		return nil, fmt.Errorf("update order payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return r.GetOrderByNumber(ctx, number)
}

// paymentTransition определяет статус выполнения заказа для входящего статуса
// оплаты. Повтор уже применённого статуса — дубликат; успешная оплата оставляет
// заказ ожидающим обработки, неуспешная отменяет его.
func paymentTransition(stored, incoming model.PaymentStatus) (model.OrderStatus, error) {
	if stored == incoming {
		return "", ErrDuplicateCallback
	}

	switch incoming {
	case model.PaymentStatusSuccessed:
		return model.OrderStatusPending, nil
	case model.PaymentStatusFailed:
		return model.OrderStatusCancelled, nil
	default:
		return "", fmt.Errorf("unexpected payment status: %s", incoming)
	}
}

// SetOrderStatus переводит заказ из ожидаемого статуса в новый. Если заказ
// успел поменять статус параллельно, возвращается ErrOrderStateConflict.
func (r *PostgresRepository) SetOrderStatus(ctx context.Context, number string, from, to model.OrderStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $3 WHERE number = $1 AND status = $2`,
		number, string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE number = $1)`, number,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if !exists {
			return ErrOrderNotFound
		}
		return ErrOrderStateConflict
	}

	return nil
}

func scanOrder(row rowScanner, id *int64) (*model.Order, error) {
	var o model.Order
	var status, method, payStatus string
	err := row.Scan(id, &o.Number, &o.UserID, &o.AddressID, &status, &method, &payStatus,
		&o.Subtotal, &o.Discount, &o.ShippingFee, &o.TotalAmount,
		&o.VoucherCode, &o.TransactionID, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	o.PaymentMethod = model.PaymentMethod(method)
	o.PaymentStatus = model.PaymentStatus(payStatus)
	return &o, nil
}

func textOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
