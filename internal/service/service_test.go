package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/DRAKEN-1974/product/internal/model"
	"github.com/DRAKEN-1974/product/internal/repository"
	"github.com/DRAKEN-1974/product/internal/validation"
)

type stubRepo struct {
	createProfileID  string
	createProfileErr error

	getProfile    *model.Profile
	getProfileErr error

	createdCoupon      model.Coupon
	createdMerch       model.Merchandise
	createdBooking     model.Booking
	redeemCouponRes    *repository.RedeemedCoupon
	redeemCouponErr    error
	redeemCouponCode   string
	redeemMerchBalance int64
	redeemMerchErr     error

	deactivateCalls atomic.Int64
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateProfile(ctx context.Context, name, email string, passwordHash []byte) (string, error) {
	return s.createProfileID, s.createProfileErr
}

func (s *stubRepo) GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return s.getProfile, s.getProfileErr
}

func (s *stubRepo) GetProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	return s.getProfile, s.getProfileErr
}

func (s *stubRepo) ListProfilesByRole(ctx context.Context, role model.Role) ([]model.Profile, error) {
	return nil, nil
}

func (s *stubRepo) ApproveWorker(ctx context.Context, id string) error { return nil }
func (s *stubRepo) RejectWorker(ctx context.Context, id string) error  { return nil }

func (s *stubRepo) AdjustCoins(ctx context.Context, id string, delta int64) (int64, error) {
	return 0, nil
}

func (s *stubRepo) CreateProduct(ctx context.Context, p model.Product) (string, error) {
	return "product-id", nil
}

func (s *stubRepo) ListProducts(ctx context.Context) ([]model.Product, error) { return nil, nil }
func (s *stubRepo) DeleteProduct(ctx context.Context, id string) error        { return nil }

func (s *stubRepo) CreateBooking(ctx context.Context, b model.Booking) (string, error) {
	s.createdBooking = b
	return "booking-id", nil
}

func (s *stubRepo) ListBookings(ctx context.Context) ([]model.Booking, error) { return nil, nil }
func (s *stubRepo) DeleteBooking(ctx context.Context, id string) error        { return nil }

func (s *stubRepo) CreateContactMessage(ctx context.Context, m model.ContactMessage) (string, error) {
	return "message-id", nil
}

func (s *stubRepo) ListContactMessages(ctx context.Context) ([]model.ContactMessage, error) {
	return nil, nil
}
func (s *stubRepo) DeleteContactMessage(ctx context.Context, id string) error { return nil }

func (s *stubRepo) CreateCoupon(ctx context.Context, c model.Coupon) (string, error) {
	s.createdCoupon = c
	return "coupon-id", nil
}

func (s *stubRepo) ListCoupons(ctx context.Context) ([]model.Coupon, error) { return nil, nil }

func (s *stubRepo) ListCouponsRedeemedBy(ctx context.Context, profileID string) ([]model.Coupon, error) {
	return nil, nil
}

func (s *stubRepo) DeleteCoupon(ctx context.Context, id string) error { return nil }

func (s *stubRepo) DeactivateExpiredCoupons(ctx context.Context) (int64, error) {
	s.deactivateCalls.Add(1)
	return 0, nil
}

func (s *stubRepo) CreateMerchandise(ctx context.Context, m model.Merchandise) (string, error) {
	s.createdMerch = m
	return "merch-id", nil
}

func (s *stubRepo) ListMerchandise(ctx context.Context) ([]model.Merchandise, error) {
	return nil, nil
}
func (s *stubRepo) DeleteMerchandise(ctx context.Context, id string) error { return nil }

func (s *stubRepo) RedeemCoupon(ctx context.Context, profileID, code string) (*repository.RedeemedCoupon, error) {
	s.redeemCouponCode = code
	return s.redeemCouponRes, s.redeemCouponErr
}

func (s *stubRepo) RedeemMerchandise(ctx context.Context, profileID, merchID string) (int64, error) {
	return s.redeemMerchBalance, s.redeemMerchErr
}

func TestRegisterProfile_Validation(t *testing.T) {
	svc := NewService(&stubRepo{})

	tests := []struct {
		name     string
		regName  string
		email    string
		password string
	}{
		{name: "empty name", regName: "", email: "a@b.com", password: "pass"},
		{name: "empty email", regName: "Ivan", email: "", password: "pass"},
		{name: "empty password", regName: "Ivan", email: "a@b.com", password: ""},
		{name: "malformed email", regName: "Ivan", email: "not-an-email", password: "pass"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterProfile(context.Background(), tt.regName, tt.email, tt.password)
			var vErr *validation.Error
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRegisterProfile_PropagatesDuplicateError(t *testing.T) {
	repo := &stubRepo{
		createProfileErr: repository.ErrProfileExists,
	}
	svc := NewService(repo)

	_, err := svc.RegisterProfile(context.Background(), "Ivan", "ivan@garage.com", "pass")
	if !errors.Is(err, repository.ErrProfileExists) {
		t.Fatalf("expected ErrProfileExists, got %v", err)
	}
}

func TestAuthenticate_InvalidCredentials(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("generate hash: %v", err)
	}

	repo := &stubRepo{
		getProfile: &model.Profile{
			ID:           "id-1",
			Email:        "ivan@garage.com",
			PasswordHash: hash,
			Role:         model.RoleWorker,
		},
	}
	svc := NewService(repo)

	_, err = svc.Authenticate(context.Background(), "ivan@garage.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticate_UnknownEmailHidesExistence(t *testing.T) {
	repo := &stubRepo{
		getProfileErr: repository.ErrProfileNotFound,
	}
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "ghost@garage.com", "pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticate_Success(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("generate hash: %v", err)
	}

	repo := &stubRepo{
		getProfile: &model.Profile{
			ID:           "id-1",
			Email:        "ivan@garage.com",
			PasswordHash: hash,
			Role:         model.RoleWorker,
			Coins:        50,
		},
	}
	svc := NewService(repo)

	p, err := svc.Authenticate(context.Background(), "ivan@garage.com", "correct")
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if p.ID != "id-1" || p.Coins != 50 {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestAddCoupon_NormalizesCode(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, err := svc.AddCoupon(context.Background(), model.Coupon{Code: "  save10 ", Coins: 10})
	if err != nil {
		t.Fatalf("AddCoupon error: %v", err)
	}
	if repo.createdCoupon.Code != "SAVE10" {
		t.Fatalf("coupon code = %q, want SAVE10", repo.createdCoupon.Code)
	}
}

func TestAddCoupon_NonPositiveCoins(t *testing.T) {
	svc := NewService(&stubRepo{})

	for _, coins := range []int64{0, -5} {
		_, err := svc.AddCoupon(context.Background(), model.Coupon{Code: "SAVE10", Coins: coins})
		if !errors.Is(err, ErrNonPositiveCoins) {
			t.Fatalf("coins=%d: expected ErrNonPositiveCoins, got %v", coins, err)
		}
	}
}

func TestAddMerchandise_NonPositiveCoins(t *testing.T) {
	svc := NewService(&stubRepo{})

	_, err := svc.AddMerchandise(context.Background(), model.Merchandise{Name: "Cap", Coins: 0})
	if !errors.Is(err, ErrNonPositiveCoins) {
		t.Fatalf("expected ErrNonPositiveCoins, got %v", err)
	}
}

func TestRedeemCoupon_NormalizesCode(t *testing.T) {
	repo := &stubRepo{
		redeemCouponRes: &repository.RedeemedCoupon{Code: "SAVE10", Coins: 10, Balance: 60},
	}
	svc := NewService(repo)

	res, err := svc.RedeemCoupon(context.Background(), "id-1", " save10 ")
	if err != nil {
		t.Fatalf("RedeemCoupon error: %v", err)
	}
	if repo.redeemCouponCode != "SAVE10" {
		t.Fatalf("redeemed code = %q, want SAVE10", repo.redeemCouponCode)
	}
	if res.Balance != 60 {
		t.Fatalf("balance = %d, want 60", res.Balance)
	}
}

func TestRedeemCoupon_EmptyCode(t *testing.T) {
	svc := NewService(&stubRepo{})

	_, err := svc.RedeemCoupon(context.Background(), "id-1", "   ")
	var vErr *validation.Error
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRedeemMerchandise_PropagatesLedgerErrors(t *testing.T) {
	tests := []struct {
		name    string
		repoErr error
	}{
		{name: "already redeemed", repoErr: repository.ErrAlreadyRedeemed},
		{name: "insufficient balance", repoErr: repository.ErrInsufficientBalance},
		{name: "ledger inconsistency", repoErr: repository.ErrLedgerInconsistency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&stubRepo{redeemMerchErr: tt.repoErr})

			_, err := svc.RedeemMerchandise(context.Background(), "id-1", "merch-1")
			if !errors.Is(err, tt.repoErr) {
				t.Fatalf("expected %v, got %v", tt.repoErr, err)
			}
		})
	}
}

func TestCreateBooking_Validation(t *testing.T) {
	svc := NewService(&stubRepo{})

	_, err := svc.CreateBooking(context.Background(), model.Booking{
		Service: "oil change",
		Name:    "Ivan",
	})
	var vErr *validation.Error
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStartCouponExpirySweeper(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	ctx, cancel := context.WithCancel(context.Background())
	svc.StartCouponExpirySweeper(ctx, 10*time.Millisecond)

	deadline := time.After(500 * time.Millisecond)
	for repo.deactivateCalls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("sweeper did not run")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
}
