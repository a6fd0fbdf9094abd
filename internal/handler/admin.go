package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DRAKEN-1974/product/internal/model"
)

// GetPendingWorkers возвращает профили, ожидающие подтверждения.
func (h *Handler) GetPendingWorkers(w http.ResponseWriter, r *http.Request) {
	h.listProfiles(w, r, model.RolePending)
}

// GetWorkers возвращает подтверждённых работников.
func (h *Handler) GetWorkers(w http.ResponseWriter, r *http.Request) {
	h.listProfiles(w, r, model.RoleWorker)
}

func (h *Handler) listProfiles(w http.ResponseWriter, r *http.Request, role model.Role) {
	profiles, err := h.service.ListProfilesByRole(r.Context(), role)
	if err != nil {
		h.respondError(w, err, "list profiles error", zap.String("role", string(role)))
		return
	}

	if len(profiles) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]profileResponse, 0, len(profiles))
	for _, p := range profiles {
		resp = append(resp, profileResponse{
			ID:    p.ID,
			Name:  p.Name,
			Email: p.Email,
			Role:  string(p.Role),
			Coins: p.Coins,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// ApproveWorker подтверждает профиль: pending -> worker.
func (h *Handler) ApproveWorker(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "profileID")
	if err := h.service.ApproveWorker(r.Context(), id); err != nil {
		h.respondError(w, err, "approve worker error", zap.String("profileID", id))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// RejectWorker отклоняет заявку и удаляет профиль.
func (h *Handler) RejectWorker(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "profileID")
	if err := h.service.RejectWorker(r.Context(), id); err != nil {
		h.respondError(w, err, "reject worker error", zap.String("profileID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adjustCoinsRequest struct {
	Delta int64 `json:"delta"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

// AdjustWorkerCoins изменяет баланс работника на указанную величину.
func (h *Handler) AdjustWorkerCoins(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "profileID")

	var req adjustCoinsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Delta == 0 {
		h.writeError(w, http.StatusBadRequest, "delta must be non-zero")
		return
	}

	balance, err := h.service.AdjustCoins(r.Context(), id, req.Delta)
	if err != nil {
		h.respondError(w, err, "adjust coins error",
			zap.String("profileID", id), zap.Int64("delta", req.Delta))
		return
	}

	h.writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

type productRequest struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageurl"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}

// AddProduct добавляет товар в каталог магазина.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Price < 0 {
		h.writeError(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	id, err := h.service.AddProduct(r.Context(), model.Product{
		Name:        req.Name,
		PriceCents:  int64(req.Price * 100),
		ImageURL:    req.ImageURL,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		h.respondError(w, err, "add product error")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// DeleteProduct удаляет товар из каталога.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "productID")
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.respondError(w, err, "delete product error", zap.String("productID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type couponRequest struct {
	Code        string `json:"code"`
	Coins       int64  `json:"coins"`
	Description string `json:"description"`
	ExpiresAt   string `json:"expires_at"`
}

// AddCoupon добавляет купон в каталог наград.
func (h *Handler) AddCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c := model.Coupon{
		Code:        req.Code,
		Coins:       req.Coins,
		Description: req.Description,
	}

	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "expires_at must be RFC3339")
			return
		}
		c.ExpiresAt = &t
	}

	id, err := h.service.AddCoupon(r.Context(), c)
	if err != nil {
		h.respondError(w, err, "add coupon error", zap.String("code", req.Code))
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// GetCoupons возвращает все купоны каталога.
func (h *Handler) GetCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.service.ListCoupons(r.Context())
	if err != nil {
		h.respondError(w, err, "list coupons error")
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

// DeleteCoupon удаляет купон из каталога.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "couponID")
	if err := h.service.DeleteCoupon(r.Context(), id); err != nil {
		h.respondError(w, err, "delete coupon error", zap.String("couponID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type merchandiseRequest struct {
	Name        string `json:"name"`
	ImageURL    string `json:"imageurl"`
	Description string `json:"description"`
	Coins       int64  `json:"coins"`
}

// AddMerchandise добавляет товар за монеты в каталог наград.
func (h *Handler) AddMerchandise(w http.ResponseWriter, r *http.Request) {
	var req merchandiseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.service.AddMerchandise(r.Context(), model.Merchandise{
		Name:        req.Name,
		ImageURL:    req.ImageURL,
		Description: req.Description,
		Coins:       req.Coins,
	})
	if err != nil {
		h.respondError(w, err, "add merchandise error", zap.String("name", req.Name))
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// DeleteMerchandise удаляет товар за монеты из каталога.
func (h *Handler) DeleteMerchandise(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "merchID")
	if err := h.service.DeleteMerchandise(r.Context(), id); err != nil {
		h.respondError(w, err, "delete merchandise error", zap.String("merchID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bookingResponse struct {
	ID           string `json:"id"`
	Service      string `json:"service"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	VehicleModel string `json:"vehicle_model,omitempty"`
	Message      string `json:"message,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// GetBookings возвращает все заявки на запись.
func (h *Handler) GetBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.ListBookings(r.Context())
	if err != nil {
		h.respondError(w, err, "list bookings error")
		return
	}

	if len(bookings) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, bookingResponse{
			ID:           b.ID,
			Service:      b.Service,
			Name:         b.Name,
			Email:        b.Email,
			Phone:        b.Phone,
			Date:         b.Date,
			Time:         b.Time,
			VehicleModel: b.VehicleModel,
			Message:      b.Message,
			CreatedAt:    b.CreatedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// DeleteBooking удаляет заявку на запись.
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "bookingID")
	if err := h.service.DeleteBooking(r.Context(), id); err != nil {
		h.respondError(w, err, "delete booking error", zap.String("bookingID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type contactMessageResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject,omitempty"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// GetContactMessages возвращает сообщения обратной связи.
func (h *Handler) GetContactMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.ListContactMessages(r.Context())
	if err != nil {
		h.respondError(w, err, "list contact messages error")
		return
	}

	if len(messages) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]contactMessageResponse, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, contactMessageResponse{
			ID:        m.ID,
			Name:      m.Name,
			Email:     m.Email,
			Subject:   m.Subject,
			Message:   m.Message,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// DeleteContactMessage удаляет сообщение обратной связи.
func (h *Handler) DeleteContactMessage(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "messageID")
	if err := h.service.DeleteContactMessage(r.Context(), id); err != nil {
		h.respondError(w, err, "delete contact message error", zap.String("messageID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
