package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/HanaFlU/TechZone-sub001/internal/model"
)

// CreateProduct добавляет товар в каталог.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *model.Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, price, stock, category, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		p.Name, p.Price, p.Stock, p.Category, string(p.Status),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create product: %w", err)
	}
	return id, nil
}

// UpdateProduct обновляет карточку товара целиком.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p *model.Product) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE products
		 SET name = $2, price = $3, stock = $4, category = $5, status = $6
		 WHERE id = $1`,
		p.ID, p.Name, p.Price, p.Stock, p.Category, string(p.Status),
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, price, stock, category, status, created_at
		 FROM products
		 WHERE id = $1`,
		id,
	)

	var p model.Product
	var status string
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Category, &status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	p.Status = model.ProductStatus(status)

	return &p, nil
}

// ListActiveProducts возвращает товары, доступные к продаже.
func (r *PostgresRepository) ListActiveProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, price, stock, category, status, created_at
		 FROM products
		 WHERE status = $1
		 ORDER BY id`,
		string(model.ProductStatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		var p model.Product
		var status string
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Category, &status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Status = model.ProductStatus(status)
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
