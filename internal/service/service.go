// Package service реализует бизнес-логику магазина TechZone.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/HanaFlU/TechZone-sub001/internal/model"
	"github.com/HanaFlU/TechZone-sub001/internal/notification"
	"github.com/HanaFlU/TechZone-sub001/internal/payment"
	"github.com/HanaFlU/TechZone-sub001/internal/repository"
	"github.com/HanaFlU/TechZone-sub001/internal/validation"
)

var (
	// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidVoucherData возвращается при некорректных параметрах нового ваучера.
	ErrInvalidVoucherData = errors.New("invalid voucher data")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
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
	GetVoucherByCode(ctx context.Context, code string) (*model.Voucher, error)
	HasRedeemed(ctx context.Context, voucherID, userID int64) (bool, error)
	GetShippingTiers(ctx context.Context) ([]model.ShippingTier, error)
	CreateOrder(ctx context.Context, p repository.CreateOrderParams) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*model.Order, error)
	ApplyPaymentCallback(ctx context.Context, transactionID string, incoming model.PaymentStatus) (*model.Order, error)
	SetOrderStatus(ctx context.Context, number string, from, to model.OrderStatus) error
}

// PaymentGateway описывает контракт платёжного шлюза.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string) (*payment.Intent, error)
}

// Notifier ставит подтверждение заказа в очередь отправки.
type Notifier interface {
	Enqueue(msg notification.Message)
}

// Service содержит бизнес-логику магазина TechZone.
type Service struct {
	repo     Repository
	gateway  PaymentGateway
	notifier Notifier
}

// NewService создаёт новый сервис с указанным репозиторием, платёжным шлюзом
// и очередью уведомлений. Шлюз и очередь могут отсутствовать.
func NewService(repo Repository, gateway PaymentGateway, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		gateway:  gateway,
		notifier: notifier,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового покупателя.
func (s *Service) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	hashed := hashPassword(login, password)
	id, err := s.repo.CreateUser(ctx, login, hashed)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return 0, repository.ErrUserExists
		}
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет логин и пароль покупателя и возвращает его идентификатор.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		return 0, err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return 0, ErrInvalidCredentials
	}

	return u.ID, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// CreateAddress сохраняет адрес доставки покупателя.
func (s *Service) CreateAddress(ctx context.Context, a *model.Address) (int64, error) {
	return s.repo.CreateAddress(ctx, a)
}

// GetAddressesByUser возвращает адреса покупателя.
func (s *Service) GetAddressesByUser(ctx context.Context, userID int64) ([]model.Address, error) {
	return s.repo.GetAddressesByUser(ctx, userID)
}

// CreateProduct добавляет товар в каталог.
func (s *Service) CreateProduct(ctx context.Context, p *model.Product) (int64, error) {
	if p.Status == "" {
		p.Status = model.ProductStatusActive
	}
	return s.repo.CreateProduct(ctx, p)
}

// UpdateProduct обновляет карточку товара.
func (s *Service) UpdateProduct(ctx context.Context, p *model.Product) error {
	return s.repo.UpdateProduct(ctx, p)
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListActiveProducts возвращает товары, доступные к продаже.
func (s *Service) ListActiveProducts(ctx context.Context) ([]model.Product, error) {
	return s.repo.ListActiveProducts(ctx)
}

// GetCartByUser возвращает корзину покупателя.
func (s *Service) GetCartByUser(ctx context.Context, userID int64) (*model.Cart, error) {
	return s.repo.GetCartByUser(ctx, userID)
}

// UpsertCartItem добавляет позицию в корзину или заменяет её количество.
func (s *Service) UpsertCartItem(ctx context.Context, userID, productID, quantity int64) error {
	if quantity < 1 {
		return errors.New("quantity must be at least 1")
	}
	return s.repo.UpsertCartItem(ctx, userID, productID, quantity)
}

// RemoveCartItem удаляет позицию из корзины.
func (s *Service) RemoveCartItem(ctx context.Context, userID, productID int64) error {
	return s.repo.RemoveCartItem(ctx, userID, productID)
}

// CreateVoucher создаёт ваучер с нормализованным кодом.
func (s *Service) CreateVoucher(ctx context.Context, v *model.Voucher) (int64, error) {
	v.Code = validation.NormalizeVoucherCode(v.Code)
	if v.Code == "" {
		return 0, fmt.Errorf("%w: code is required", ErrInvalidVoucherData)
	}
	if v.EndsAt.Before(v.StartsAt) {
		return 0, fmt.Errorf("%w: validity window is inverted", ErrInvalidVoucherData)
	}
	if v.UsageLimit < 1 {
		return 0, fmt.Errorf("%w: usage limit must be at least 1", ErrInvalidVoucherData)
	}
	return s.repo.CreateVoucher(ctx, v)
}

// GetOrdersByUser возвращает заказы покупателя.
func (s *Service) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.repo.GetOrdersByUser(ctx, userID)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
