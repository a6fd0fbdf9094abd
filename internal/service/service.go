// Package service реализует бизнес-логику сервиса мастерской.
package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/DRAKEN-1974/product/internal/model"
	"github.com/DRAKEN-1974/product/internal/repository"
	"github.com/DRAKEN-1974/product/internal/validation"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNonPositiveCoins возвращается, если награда создаётся с нулевой или отрицательной стоимостью.
	ErrNonPositiveCoins = errors.New("coins must be positive")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateProfile(ctx context.Context, name, email string, passwordHash []byte) (string, error)
	GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error)
	GetProfileByID(ctx context.Context, id string) (*model.Profile, error)
	ListProfilesByRole(ctx context.Context, role model.Role) ([]model.Profile, error)
	ApproveWorker(ctx context.Context, id string) error
	RejectWorker(ctx context.Context, id string) error
	AdjustCoins(ctx context.Context, id string, delta int64) (int64, error)
	CreateProduct(ctx context.Context, p model.Product) (string, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	CreateBooking(ctx context.Context, b model.Booking) (string, error)
	ListBookings(ctx context.Context) ([]model.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	CreateContactMessage(ctx context.Context, m model.ContactMessage) (string, error)
	ListContactMessages(ctx context.Context) ([]model.ContactMessage, error)
	DeleteContactMessage(ctx context.Context, id string) error
	CreateCoupon(ctx context.Context, c model.Coupon) (string, error)
	ListCoupons(ctx context.Context) ([]model.Coupon, error)
	ListCouponsRedeemedBy(ctx context.Context, profileID string) ([]model.Coupon, error)
	DeleteCoupon(ctx context.Context, id string) error
	DeactivateExpiredCoupons(ctx context.Context) (int64, error)
	CreateMerchandise(ctx context.Context, m model.Merchandise) (string, error)
	ListMerchandise(ctx context.Context) ([]model.Merchandise, error)
	DeleteMerchandise(ctx context.Context, id string) error
	RedeemCoupon(ctx context.Context, profileID, code string) (*repository.RedeemedCoupon, error)
	RedeemMerchandise(ctx context.Context, profileID, merchID string) (int64, error)
}

// Service содержит бизнес-логику сервиса мастерской.
type Service struct {
	repo Repository
}

// NewService создаёт новый сервис с указанным репозиторием.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterProfile регистрирует новый профиль с ролью pending и нулевым балансом.
func (s *Service) RegisterProfile(ctx context.Context, name, email, password string) (string, error) {
	if err := validation.Required(map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}); err != nil {
		return "", err
	}
	if !validation.IsValidEmail(email) {
		return "", &validation.Error{Invalid: []string{"email"}}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return s.repo.CreateProfile(ctx, name, email, hash)
}

// Authenticate проверяет email и пароль и возвращает профиль пользователя.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.Profile, error) {
	p, err := s.repo.GetProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return p, nil
}

// GetProfile возвращает профиль по идентификатору.
func (s *Service) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	return s.repo.GetProfileByID(ctx, id)
}

// ListProfilesByRole возвращает профили с указанной ролью.
func (s *Service) ListProfilesByRole(ctx context.Context, role model.Role) ([]model.Profile, error) {
	return s.repo.ListProfilesByRole(ctx, role)
}

// ApproveWorker подтверждает профиль, ожидающий проверки: pending -> worker.
func (s *Service) ApproveWorker(ctx context.Context, id string) error {
	return s.repo.ApproveWorker(ctx, id)
}

// RejectWorker отклоняет заявку: профиль со статусом pending удаляется полностью.
func (s *Service) RejectWorker(ctx context.Context, id string) error {
	return s.repo.RejectWorker(ctx, id)
}

// AdjustCoins изменяет баланс профиля на указанную величину.
func (s *Service) AdjustCoins(ctx context.Context, id string, delta int64) (int64, error) {
	return s.repo.AdjustCoins(ctx, id, delta)
}

// AddProduct добавляет товар в каталог магазина.
func (s *Service) AddProduct(ctx context.Context, p model.Product) (string, error) {
	if err := validation.Required(map[string]string{"name": p.Name}); err != nil {
		return "", err
	}
	return s.repo.CreateProduct(ctx, p)
}

// ListProducts возвращает каталог магазина.
func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.repo.ListProducts(ctx)
}

// DeleteProduct удаляет товар из каталога.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.repo.DeleteProduct(ctx, id)
}

// CreateBooking сохраняет заявку на запись в мастерскую.
func (s *Service) CreateBooking(ctx context.Context, b model.Booking) (string, error) {
	if err := validation.Required(map[string]string{
		"service": b.Service,
		"name":    b.Name,
		"email":   b.Email,
		"date":    b.Date,
		"time":    b.Time,
	}); err != nil {
		return "", err
	}
	if !validation.IsValidEmail(b.Email) {
		return "", &validation.Error{Invalid: []string{"email"}}
	}
	return s.repo.CreateBooking(ctx, b)
}

// ListBookings возвращает все заявки на запись.
func (s *Service) ListBookings(ctx context.Context) ([]model.Booking, error) {
	return s.repo.ListBookings(ctx)
}

// DeleteBooking удаляет заявку.
func (s *Service) DeleteBooking(ctx context.Context, id string) error {
	return s.repo.DeleteBooking(ctx, id)
}

// CreateContactMessage сохраняет сообщение из формы обратной связи.
func (s *Service) CreateContactMessage(ctx context.Context, m model.ContactMessage) (string, error) {
	if err := validation.Required(map[string]string{
		"name":    m.Name,
		"email":   m.Email,
		"message": m.Message,
	}); err != nil {
		return "", err
	}
	if !validation.IsValidEmail(m.Email) {
		return "", &validation.Error{Invalid: []string{"email"}}
	}
	return s.repo.CreateContactMessage(ctx, m)
}

// ListContactMessages возвращает сообщения обратной связи.
func (s *Service) ListContactMessages(ctx context.Context) ([]model.ContactMessage, error) {
	return s.repo.ListContactMessages(ctx)
}

// DeleteContactMessage удаляет сообщение обратной связи.
func (s *Service) DeleteContactMessage(ctx context.Context, id string) error {
	return s.repo.DeleteContactMessage(ctx, id)
}

// AddCoupon добавляет купон в каталог наград.
func (s *Service) AddCoupon(ctx context.Context, c model.Coupon) (string, error) {
	c.Code = validation.NormalizeCouponCode(c.Code)
	if err := validation.Required(map[string]string{"code": c.Code}); err != nil {
		return "", err
	}
	if c.Coins <= 0 {
		return "", ErrNonPositiveCoins
	}
	return s.repo.CreateCoupon(ctx, c)
}

// ListCoupons возвращает каталог купонов.
func (s *Service) ListCoupons(ctx context.Context) ([]model.Coupon, error) {
	return s.repo.ListCoupons(ctx)
}

// ListCouponsRedeemedBy возвращает купоны, погашенные указанным работником.
func (s *Service) ListCouponsRedeemedBy(ctx context.Context, profileID string) ([]model.Coupon, error) {
	return s.repo.ListCouponsRedeemedBy(ctx, profileID)
}

// DeleteCoupon удаляет купон.
func (s *Service) DeleteCoupon(ctx context.Context, id string) error {
	return s.repo.DeleteCoupon(ctx, id)
}

// AddMerchandise добавляет товар за монеты в каталог наград.
func (s *Service) AddMerchandise(ctx context.Context, m model.Merchandise) (string, error) {
	if err := validation.Required(map[string]string{"name": m.Name}); err != nil {
		return "", err
	}
	if m.Coins <= 0 {
		return "", ErrNonPositiveCoins
	}
	return s.repo.CreateMerchandise(ctx, m)
}

// ListMerchandise возвращает каталог товаров за монеты.
func (s *Service) ListMerchandise(ctx context.Context) ([]model.Merchandise, error) {
	return s.repo.ListMerchandise(ctx)
}

// DeleteMerchandise удаляет товар за монеты.
func (s *Service) DeleteMerchandise(ctx context.Context, id string) error {
	return s.repo.DeleteMerchandise(ctx, id)
}

// RedeemCoupon погашает купон по коду и начисляет монеты работнику.
func (s *Service) RedeemCoupon(ctx context.Context, profileID, code string) (*repository.RedeemedCoupon, error) {
	code = validation.NormalizeCouponCode(code)
	if code == "" {
		return nil, &validation.Error{Missing: []string{"code"}}
	}
	return s.repo.RedeemCoupon(ctx, profileID, code)
}

// RedeemMerchandise выкупает товар за монеты и возвращает баланс после списания.
func (s *Service) RedeemMerchandise(ctx context.Context, profileID, merchID string) (int64, error) {
	return s.repo.RedeemMerchandise(ctx, profileID, merchID)
}

// StartCouponExpirySweeper запускает фоновую деактивацию просроченных купонов.
func (s *Service) StartCouponExpirySweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = s.repo.DeactivateExpiredCoupons(ctx)
			}
		}
	}()
}
