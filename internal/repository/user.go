package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/HanaFlU/TechZone-sub001/internal/model"
)

// CreateUser создаёт нового покупателя.
func (r *PostgresRepository) CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (login, password_hash) VALUES ($1, $2) RETURNING id`,
		login, passwordHash,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, "") {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByLogin возвращает покупателя по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, created_at FROM users WHERE login = $1`,
		login,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// CreateAddress сохраняет адрес доставки покупателя.
func (r *PostgresRepository) CreateAddress(ctx context.Context, a *model.Address) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO addresses (user_id, recipient, phone, line1, city)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		a.UserID, a.Recipient, a.Phone, a.Line1, a.City,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create address: %w", err)
	}
	return id, nil
}

// GetAddressesByUser возвращает адреса покупателя.
func (r *PostgresRepository) GetAddressesByUser(ctx context.Context, userID int64) ([]model.Address, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, recipient, phone, line1, city, created_at
		 FROM addresses
		 WHERE user_id = $1
		 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select addresses: %w", err)
	}
	defer rows.Close()

	var res []model.Address
	for rows.Next() {
		var a model.Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Recipient, &a.Phone, &a.Line1, &a.City, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		res = append(res, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
