// Package handler содержит HTTP-обработчики API сервиса мастерской.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DRAKEN-1974/product/internal/middleware"
	"github.com/DRAKEN-1974/product/internal/model"
	"github.com/DRAKEN-1974/product/internal/repository"
	"github.com/DRAKEN-1974/product/internal/service"
	"github.com/DRAKEN-1974/product/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterProfile(ctx context.Context, name, email, password string) (string, error)
	Authenticate(ctx context.Context, email, password string) (*model.Profile, error)
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	ListProfilesByRole(ctx context.Context, role model.Role) ([]model.Profile, error)
	ApproveWorker(ctx context.Context, id string) error
	RejectWorker(ctx context.Context, id string) error
	AdjustCoins(ctx context.Context, id string, delta int64) (int64, error)
	AddProduct(ctx context.Context, p model.Product) (string, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	CreateBooking(ctx context.Context, b model.Booking) (string, error)
	ListBookings(ctx context.Context) ([]model.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	CreateContactMessage(ctx context.Context, m model.ContactMessage) (string, error)
	ListContactMessages(ctx context.Context) ([]model.ContactMessage, error)
	DeleteContactMessage(ctx context.Context, id string) error
	AddCoupon(ctx context.Context, c model.Coupon) (string, error)
	ListCoupons(ctx context.Context) ([]model.Coupon, error)
	ListCouponsRedeemedBy(ctx context.Context, profileID string) ([]model.Coupon, error)
	DeleteCoupon(ctx context.Context, id string) error
	AddMerchandise(ctx context.Context, m model.Merchandise) (string, error)
	ListMerchandise(ctx context.Context) ([]model.Merchandise, error)
	DeleteMerchandise(ctx context.Context, id string) error
	RedeemCoupon(ctx context.Context, profileID, code string) (*repository.RedeemedCoupon, error)
	RedeemMerchandise(ctx context.Context, profileID, merchID string) (int64, error)
}

// Handler реализует HTTP-обработчики API сервиса мастерской.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// statusForError переводит доменную ошибку в HTTP-статус.
// Неизвестные ошибки считаются внутренними.
func statusForError(err error) int {
	var vErr *validation.Error
	switch {
	case errors.As(err, &vErr), errors.Is(err, service.ErrNonPositiveCoins):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, repository.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, repository.ErrProfileNotFound),
		errors.Is(err, repository.ErrCouponNotFound),
		errors.Is(err, repository.ErrMerchandiseNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrProfileExists),
		errors.Is(err, repository.ErrCouponExists),
		errors.Is(err, repository.ErrAlreadyRedeemed),
		errors.Is(err, repository.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error, logMsg string, fields ...zap.Field) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(logMsg, append(fields, zap.Error(err))...)
		h.writeError(w, status, http.StatusText(http.StatusInternalServerError))
		return
	}
	h.writeError(w, status, err.Error())
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового профиля.
// Профиль создаётся со статусом pending и ждёт подтверждения администратора.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.service.RegisterProfile(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.respondError(w, err, "register profile error")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{
		"id":     id,
		"status": "pending approval",
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Coins int64  `json:"coins"`
}

// Login выполняет аутентификацию и установку cookie.
// Профили со статусом pending в систему не допускаются.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	p, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, err, "login error")
		return
	}

	if p.Role == model.RolePending {
		h.writeError(w, http.StatusForbidden, "profile is awaiting admin approval")
		return
	}

	h.authMiddleware.SetAuthCookie(w, p.ID)
	h.writeJSON(w, http.StatusOK, profileResponse{
		ID:    p.ID,
		Name:  p.Name,
		Email: p.Email,
		Role:  string(p.Role),
		Coins: p.Coins,
	})
}

// Logout сбрасывает cookie авторизации.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusOK)
}

type productResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageurl,omitempty"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// GetProducts возвращает каталог магазина. Доступен без авторизации.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.respondError(w, err, "list products error")
		return
	}

	if len(products) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, productResponse{
			ID:          p.ID,
			Name:        p.Name,
			Price:       float64(p.PriceCents) / 100,
			ImageURL:    p.ImageURL,
			Description: p.Description,
			Category:    p.Category,
			CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type bookingRequest struct {
	Service      string `json:"service"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	VehicleModel string `json:"vehicle_model"`
	Message      string `json:"message"`
}

// CreateBooking принимает заявку на запись в мастерскую. Доступен без авторизации.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.service.CreateBooking(r.Context(), model.Booking{
		Service:      req.Service,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Date:         req.Date,
		Time:         req.Time,
		VehicleModel: req.VehicleModel,
		Message:      req.Message,
	})
	if err != nil {
		h.respondError(w, err, "create booking error")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// CreateContactMessage принимает сообщение из формы обратной связи. Доступен без авторизации.
func (h *Handler) CreateContactMessage(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.service.CreateContactMessage(r.Context(), model.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		h.respondError(w, err, "create contact message error")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// GetWorkerProfile возвращает профиль и баланс текущего работника.
func (h *Handler) GetWorkerProfile(w http.ResponseWriter, r *http.Request) {
	profileID, ok := middleware.GetProfileIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	p, err := h.service.GetProfile(r.Context(), profileID)
	if err != nil {
		h.respondError(w, err, "get profile error", zap.String("profileID", profileID))
		return
	}

	h.writeJSON(w, http.StatusOK, profileResponse{
		ID:    p.ID,
		Name:  p.Name,
		Email: p.Email,
		Role:  string(p.Role),
		Coins: p.Coins,
	})
}

type couponResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Coins       int64  `json:"coins"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toCouponResponse(c model.Coupon) couponResponse {
	resp := couponResponse{
		ID:          c.ID,
		Code:        c.Code,
		Coins:       c.Coins,
		Description: c.Description,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
	if c.ExpiresAt != nil {
		resp.ExpiresAt = c.ExpiresAt.Format(time.RFC3339)
	}
	return resp
}

// GetMyCoupons возвращает купоны, погашенные текущим работником.
func (h *Handler) GetMyCoupons(w http.ResponseWriter, r *http.Request) {
	profileID, ok := middleware.GetProfileIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	coupons, err := h.service.ListCouponsRedeemedBy(r.Context(), profileID)
	if err != nil {
		h.respondError(w, err, "list redeemed coupons error", zap.String("profileID", profileID))
		return
	}

	if len(coupons) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]couponResponse, 0, len(coupons))
	for _, c := range coupons {
		resp = append(resp, toCouponResponse(c))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type redeemCouponRequest struct {
	Code string `json:"code"`
}

type redeemCouponResponse struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Coins       int64  `json:"coins"`
	Balance     int64  `json:"balance"`
}

// RedeemCoupon погашает купон по коду и начисляет монеты текущему работнику.
func (h *Handler) RedeemCoupon(w http.ResponseWriter, r *http.Request) {
	profileID, ok := middleware.GetProfileIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	var req redeemCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.service.RedeemCoupon(r.Context(), profileID, req.Code)
	if err != nil {
		h.respondError(w, err, "redeem coupon error",
			zap.String("profileID", profileID), zap.String("code", req.Code))
		return
	}

	h.writeJSON(w, http.StatusOK, redeemCouponResponse{
		Code:        res.Code,
		Description: res.Description,
		Coins:       res.Coins,
		Balance:     res.Balance,
	})
}

type merchandiseResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ImageURL    string `json:"imageurl,omitempty"`
	Description string `json:"description,omitempty"`
	Coins       int64  `json:"coins"`
	CreatedAt   string `json:"created_at"`
}

// GetMerchandise возвращает каталог товаров за монеты.
func (h *Handler) GetMerchandise(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListMerchandise(r.Context())
	if err != nil {
		h.respondError(w, err, "list merchandise error")
		return
	}

	if len(items) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]merchandiseResponse, 0, len(items))
	for _, m := range items {
		resp = append(resp, merchandiseResponse{
			ID:          m.ID,
			Name:        m.Name,
			ImageURL:    m.ImageURL,
			Description: m.Description,
			Coins:       m.Coins,
			CreatedAt:   m.CreatedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type redeemMerchandiseResponse struct {
	Balance int64 `json:"balance"`
}

// RedeemMerchandise выкупает товар за монеты от имени текущего работника.
func (h *Handler) RedeemMerchandise(w http.ResponseWriter, r *http.Request) {
	profileID, ok := middleware.GetProfileIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	merchID := pathID(r, "merchID")
	if merchID == "" {
		h.writeError(w, http.StatusBadRequest, "merchandise id is required")
		return
	}

	balance, err := h.service.RedeemMerchandise(r.Context(), profileID, merchID)
	if err != nil {
		h.respondError(w, err, "redeem merchandise error",
			zap.String("profileID", profileID), zap.String("merchID", merchID))
		return
	}

	h.writeJSON(w, http.StatusOK, redeemMerchandiseResponse{Balance: balance})
}
